package webhook

import "strings"

// Event types handled by the webhook.
const (
	EventPing = "ping"
	EventPush = "push"
)

// PushEvent is the subset of a GitHub push payload needed to deploy.
type PushEvent struct {
	Ref        string     `json:"ref"`
	Deleted    bool       `json:"deleted"`
	HeadCommit Commit     `json:"head_commit"`
	Repository Repository `json:"repository"`
}

// Commit identifies the pushed head commit.
type Commit struct {
	ID string `json:"id"`
}

// Repository describes the pushed repository.
type Repository struct {
	FullName string `json:"full_name"`
	CloneURL string `json:"clone_url"`
	URL      string `json:"url"`
}

// Branch returns the pushed branch name.
func (e PushEvent) Branch() string {
	return strings.TrimPrefix(e.Ref, "refs/heads/")
}
