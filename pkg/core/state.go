package core

import "context"

// Store defines the interface for repo persistence.
type Store interface {
	// ListRepos returns all repos ordered by ID.
	ListRepos(ctx context.Context) ([]Repo, error)
	// CreateRepo inserts r, filling in ID and CreatedAt.
	CreateRepo(ctx context.Context, r *Repo) error
	// GetRepo looks a repo up by full name and branch.
	GetRepo(ctx context.Context, name, branch string) (*Repo, error)
	Close() error
}
