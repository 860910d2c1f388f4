// Package workflows implements the workflow engine: durable instances with
// append-only transition history, advanced by pure state functions and
// persisted with optimistic version checks.
package workflows

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a workflow instance.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Nodes every instance shares regardless of definition: instances are born
// pending at NodeStart and finish at NodeComplete when they complete.
const (
	NodeStart    = "start"
	NodeComplete = "complete"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Transition is one entry in an instance's append-only history.
type Transition struct {
	Node      string         `json:"node"`
	Status    Status         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Instance is a durable workflow execution. Version equals len(History);
// every applied event appends exactly one transition and bumps Version.
type Instance struct {
	ID           uuid.UUID      `json:"id"`
	OwnerID      string         `json:"-"`
	WorkflowType string         `json:"workflowType"`
	Status       Status         `json:"status"`
	CurrentNode  string         `json:"currentNode"`
	Data         map[string]any `json:"data,omitempty"`
	History      []Transition   `json:"history"`
	Version      int            `json:"version"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// clone returns a deep enough copy of i for a pure apply function to modify:
// fresh Data map and History slice, shared transition Data (never mutated).
func (i Instance) clone() Instance {
	out := i

	out.Data = make(map[string]any, len(i.Data))
	for k, v := range i.Data {
		out.Data[k] = v
	}

	out.History = make([]Transition, len(i.History), len(i.History)+1)
	copy(out.History, i.History)

	return out
}
