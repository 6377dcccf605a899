package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Failure describes an operation that did not complete. Loaders emit it
// when a destination write fails and stages emit it when a step panics.
// It travels the rest of the chain as an ordinary payload.
type Failure struct {
	ID        string    `json:"id"`
	Stage     string    `json:"stage,omitempty"`
	Operation string    `json:"operation"`
	Targets   []string  `json:"targets,omitempty"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error"`
	Time      time.Time `json:"time"`
}

// NewFailure builds a failure record for operation on targets.
func NewFailure(operation string, targets []string, data any, err error) *Failure {
	f := &Failure{
		ID:        uuid.NewString(),
		Operation: operation,
		Targets:   targets,
		Data:      data,
		Time:      time.Now().UTC(),
	}
	if err != nil {
		f.Error = err.Error()
	}
	return f
}
