package core

// SystemAppMetaKey marks internal cluster apps in App.Meta.
const SystemAppMetaKey = "flynn-system-app"

// App is an application definition known to the cluster controller.
type App struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Meta      map[string]string `json:"meta,omitempty"`
	ReleaseID string            `json:"release,omitempty"`
}

// IsSystemApp reports whether the app is flagged as an internal system app.
// Only the literal string "true" counts.
func (a App) IsSystemApp() bool {
	return a.Meta != nil && a.Meta[SystemAppMetaKey] == "true"
}

// Release is an immutable app configuration the controller can run jobs from.
type Release struct {
	ID         string            `json:"id"`
	ArtifactID string            `json:"artifact,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
}

// NewJob describes a one-off job to run against a release.
type NewJob struct {
	ReleaseID  string   `json:"release"`
	ReleaseEnv bool     `json:"release_env"`
	Args       []string `json:"args"`
}

// Job states reported by the controller.
const (
	JobPending  = "pending"
	JobStarting = "starting"
	JobUp       = "up"
	JobStopping = "stopping"
	JobDown     = "down"
	JobCrashed  = "crashed"
	JobFailed   = "failed"
)

// Job is a job as reported by the controller.
type Job struct {
	ID         string `json:"id"`
	AppID      string `json:"app,omitempty"`
	ReleaseID  string `json:"release,omitempty"`
	State      string `json:"state,omitempty"`
	ExitStatus *int   `json:"exit_status,omitempty"`
}

// Done reports whether the job has reached a state it cannot leave.
func (j Job) Done() bool {
	switch j.State {
	case JobDown, JobCrashed, JobFailed:
		return true
	}
	return false
}

// Succeeded reports whether the job stopped cleanly. A job that went down
// without reporting an exit status counts as clean.
func (j Job) Succeeded() bool {
	return j.State == JobDown && (j.ExitStatus == nil || *j.ExitStatus == 0)
}
