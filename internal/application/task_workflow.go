package application

import (
	"fmt"
	"time"
)

type transitionActor int

const (
	actorAssignee transitionActor = iota
	actorSupervisor
)

type statusPair struct {
	from TaskStatus
	to   TaskStatus
}

// taskTransitions lists every allowed status change. Pairs not listed are
// rejected, which also makes COMPLETED and REJECTED terminal.
var taskTransitions = map[statusPair]transitionActor{
	{TaskStatusPending, TaskStatusInProgress}:       actorAssignee,
	{TaskStatusInProgress, TaskStatusWaitingReview}: actorAssignee,
	{TaskStatusWaitingReview, TaskStatusCompleted}:  actorSupervisor,
	{TaskStatusWaitingReview, TaskStatusRejected}:   actorSupervisor,
}

// checkTransition validates a status change requested by actorID.
// The actor must first be a task participant, then the pair must be allowed,
// then the actor must hold the role the pair requires.
func checkTransition(task Task, actorID string, to TaskStatus) error {
	if !task.IsParticipant(actorID) {
		return fmt.Errorf("%w: only assignees, the supervisor or the assigner may change task status", ErrForbidden)
	}

	actor, ok := taskTransitions[statusPair{from: task.Status, to: to}]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, to)
	}

	switch actor {
	case actorAssignee:
		if !task.IsAssignee(actorID) {
			return fmt.Errorf("%w: only an assignee may move a task to %s", ErrForbidden, to)
		}
	case actorSupervisor:
		if task.SupervisorID != actorID {
			return fmt.Errorf("%w: only the supervisor may move a task to %s", ErrForbidden, to)
		}
	}
	return nil
}

// applyTransition sets the new status and its timestamp side effect.
func applyTransition(task Task, to TaskStatus, now time.Time) Task {
	task.Status = to
	task.UpdatedAt = now
	stamp := now
	switch to {
	case TaskStatusInProgress:
		task.StartedAt = &stamp
	case TaskStatusWaitingReview:
		task.SubmittedAt = &stamp
	case TaskStatusCompleted:
		task.CompletedAt = &stamp
	}
	return task
}
