package domain

import "time"

// Snapshot is a point-in-time view of one group's shared context.
type Snapshot struct {
	Group      string    `json:"group"`
	Extension  string    `json:"extension"`
	Created    bool      `json:"created"`
	Stopped    bool      `json:"stopped"`
	Executions int       `json:"executions"`
	Running    int       `json:"running"`
	Restarts   uint64    `json:"restarts"`
	Waiting    []string  `json:"waiting,omitempty"`
	Phase      string    `json:"phase,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}
