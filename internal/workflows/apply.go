package workflows

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// The apply functions are pure: each takes an instance value, returns a new
// instance with exactly one history entry appended and Version incremented,
// and never touches storage. The engine persists the result with an
// optimistic check against the input version.

// newInstance creates a pending instance at NodeStart with empty history.
// The first transition moves it to running inside the definition's node set.
func newInstance(owner string, def Definition, data map[string]any, now time.Time) Instance {
	inst := Instance{
		ID:           uuid.New(),
		OwnerID:      owner,
		WorkflowType: def.Type,
		Status:       StatusPending,
		CurrentNode:  NodeStart,
		Data:         map[string]any{},
		History:      []Transition{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for k, v := range data {
		inst.Data[k] = v
	}

	return inst
}

// applyTransition advances a pending or running instance to node, merging
// data into the instance data. A pending instance becomes running on its
// first transition.
func applyTransition(inst Instance, def Definition, node string, data map[string]any, now time.Time) (Instance, error) {
	if inst.Status != StatusPending && inst.Status != StatusRunning {
		return Instance{}, fmt.Errorf("%w: cannot transition %s instance", ErrInvalidTransition, inst.Status)
	}
	if !def.HasNode(node) {
		return Instance{}, fmt.Errorf("%w: %s", ErrUnknownNode, node)
	}

	out := inst.clone()
	out.Status = StatusRunning
	out.CurrentNode = node
	mergeData(out.Data, data)

	return appendTransition(out, Transition{
		Node:      node,
		Status:    StatusRunning,
		Timestamp: now,
		Data:      data,
	}), nil
}

// applyPause suspends a running instance pending human review, recording the
// review hold in the instance data.
func applyPause(inst Instance, reasons []string, now time.Time) (Instance, error) {
	if inst.Status != StatusRunning {
		return Instance{}, fmt.Errorf("%w: cannot pause %s instance", ErrInvalidTransition, inst.Status)
	}

	hold := map[string]any{
		"requiresHITL": true,
		"hitlReasons":  reasons,
	}

	out := inst.clone()
	out.Status = StatusPaused
	mergeData(out.Data, hold)

	return appendTransition(out, Transition{
		Node:      inst.CurrentNode,
		Status:    StatusPaused,
		Timestamp: now,
		Data:      hold,
	}), nil
}

// applyResume settles a paused instance with the review outcome: approved
// returns it to running, a rejection fails it terminally. The response is
// recorded in the instance data either way.
func applyResume(inst Instance, approved bool, response map[string]any, now time.Time) (Instance, error) {
	if inst.Status != StatusPaused {
		return Instance{}, fmt.Errorf("%w: cannot resume %s instance", ErrInvalidTransition, inst.Status)
	}

	status := StatusRunning
	if !approved {
		status = StatusFailed
	}

	resolution := map[string]any{"hitlResponse": response}

	out := inst.clone()
	out.Status = status
	mergeData(out.Data, resolution)

	return appendTransition(out, Transition{
		Node:      inst.CurrentNode,
		Status:    status,
		Timestamp: now,
		Data:      resolution,
	}), nil
}

// applyComplete moves a running instance to its terminal completed state at
// NodeComplete.
func applyComplete(inst Instance, data map[string]any, now time.Time) (Instance, error) {
	if inst.Status != StatusRunning {
		return Instance{}, fmt.Errorf("%w: cannot complete %s instance", ErrInvalidTransition, inst.Status)
	}

	out := inst.clone()
	out.Status = StatusCompleted
	out.CurrentNode = NodeComplete
	mergeData(out.Data, data)

	return appendTransition(out, Transition{
		Node:      NodeComplete,
		Status:    StatusCompleted,
		Timestamp: now,
		Data:      data,
	}), nil
}

// applyFail moves an instance to its terminal failed state. Failure is
// allowed from any non-terminal status so a stuck review can still be
// failed out.
func applyFail(inst Instance, reason string, now time.Time) (Instance, error) {
	if inst.Status.Terminal() {
		return Instance{}, fmt.Errorf("%w: cannot fail %s instance", ErrInvalidTransition, inst.Status)
	}

	out := inst.clone()
	out.Status = StatusFailed

	return appendTransition(out, Transition{
		Node:      inst.CurrentNode,
		Status:    StatusFailed,
		Timestamp: now,
		Data:      map[string]any{"reason": reason},
	}), nil
}

func appendTransition(inst Instance, t Transition) Instance {
	inst.History = append(inst.History, t)
	inst.Version = len(inst.History)
	inst.UpdatedAt = t.Timestamp
	return inst
}

func mergeData(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}
