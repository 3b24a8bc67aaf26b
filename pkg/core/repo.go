package core

import (
	"strings"
	"time"
)

// DefaultBranch is the branch used when a repo is registered without one.
const DefaultBranch = "master"

// Repo binds a GitHub repository branch to a cluster app.
// (Name, Branch) is unique.
type Repo struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Branch    string     `json:"branch"`
	App       string     `json:"app"`
	CreatedAt *time.Time `json:"created_at"`
}

// Normalize trims whitespace and applies the default branch.
func (r *Repo) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Branch = strings.TrimSpace(r.Branch)
	r.App = strings.TrimSpace(r.App)
	if r.Branch == "" {
		r.Branch = DefaultBranch
	}
}

// Validate reports whether the repo has the fields required for storage.
func (r *Repo) Validate() error {
	if r.Name == "" || r.App == "" {
		return ErrInvalidRepo
	}
	return nil
}
