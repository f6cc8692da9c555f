package application

import (
	"context"
	"time"
)

// Notifier delivers outbound messages for state changes. Implementations
// should not block; services log returned errors and carry on.
type Notifier interface {
	OTPIssued(ctx context.Context, employee Employee, code string, expiresAt time.Time) error
	PasswordReset(ctx context.Context, employee Employee, newPassword string) error
	EmployeeWelcome(ctx context.Context, employee Employee, password string) error
	TaskAssigned(ctx context.Context, task Task, assigner Employee, assignees []Employee) error
	TaskSubmitted(ctx context.Context, task Task, submitter, supervisor Employee) error
	TaskReviewed(ctx context.Context, task Task, reviewer Employee, assignees []Employee) error
	ProjectMembersAdded(ctx context.Context, project Project, members []Employee) error
}

type nopNotifier struct{}

func (nopNotifier) OTPIssued(context.Context, Employee, string, time.Time) error { return nil }
func (nopNotifier) PasswordReset(context.Context, Employee, string) error         { return nil }
func (nopNotifier) EmployeeWelcome(context.Context, Employee, string) error       { return nil }
func (nopNotifier) TaskAssigned(context.Context, Task, Employee, []Employee) error {
	return nil
}
func (nopNotifier) TaskSubmitted(context.Context, Task, Employee, Employee) error { return nil }
func (nopNotifier) TaskReviewed(context.Context, Task, Employee, []Employee) error {
	return nil
}
func (nopNotifier) ProjectMembersAdded(context.Context, Project, []Employee) error { return nil }

func defaultNotifier(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
