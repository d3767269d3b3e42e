package models

import "fmt"

// JobStatus is the lifecycle state of a training job on the server.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is a server-side training run. The progress channel only needs ID.
type Job struct {
	ID           int64          `json:"id"`
	UserID       int64          `json:"user_id"`
	ModelVersion int64          `json:"model_version"`
	Status       JobStatus      `json:"status"`
	Parameters   map[string]any `json:"parameters"`
	Results      map[string]any `json:"results"`
	CreatedAt    Timestamp      `json:"created_at"`
	UpdatedAt    Timestamp      `json:"updated_at"`
}

func (j Job) String() string {
	return fmt.Sprintf("#%d v%d %s", j.ID, j.ModelVersion, j.Status)
}

// TrainingRequest is the body of POST /training/start. CSVFile carries the
// dataset as text; when empty the server expects Parameters["data"] instead.
type TrainingRequest struct {
	Parameters map[string]any `json:"parameters"`
	CSVFile    string         `json:"csv_file,omitempty"`
}

// Summary is the per-user dashboard aggregate.
type Summary struct {
	Count        int       `json:"count"`
	LastTraining Timestamp `json:"last_training"`
	SuccessRate  float64   `json:"success_rate"`
}
