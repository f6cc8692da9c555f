package mail

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/example/hrm-service/internal/application"
)

// ErrQueueFull is returned when a message is dropped because the queue is at capacity.
var ErrQueueFull = errors.New("mail queue is full")

// ErrClosed is returned for messages enqueued after Close.
var ErrClosed = errors.New("mail dispatcher is closed")

const defaultQueueSize = 100

// Dispatcher renders notifications and hands them to a background worker.
// It implements application.Notifier; enqueueing never blocks the caller.
type Dispatcher struct {
	sender   Sender
	renderer *Renderer
	location *time.Location
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Message
	done   chan struct{}
}

var _ application.Notifier = (*Dispatcher)(nil)

// NewDispatcher constructs a dispatcher and starts its worker. Times in
// messages are formatted in location.
func NewDispatcher(sender Sender, renderer *Renderer, queueSize int, location *time.Location, logger *slog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if location == nil {
		location = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		sender:   sender,
		renderer: renderer,
		location: location,
		logger:   logger.With("component", "MailDispatcher"),
		queue:    make(chan Message, queueSize),
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for msg := range d.queue {
		if err := d.sender.Send(context.Background(), msg); err != nil {
			d.logger.Error("failed to send email", "to", msg.To, "subject", msg.Subject, "error", err)
			continue
		}
		d.logger.Debug("email sent", "to", msg.To, "subject", msg.Subject)
	}
}

// Close stops accepting messages and waits for the queue to drain or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue schedules a rendered message.
func (d *Dispatcher) Enqueue(ctx context.Context, msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- msg:
		return nil
	default:
		d.logger.WarnContext(ctx, "email dropped", "to", msg.To, "subject", msg.Subject, "queue_size", cap(d.queue))
		return ErrQueueFull
	}
}

func (d *Dispatcher) deliver(ctx context.Context, template string, recipients []application.Employee, data func(application.Employee) TemplateData) error {
	var errs []error
	for _, recipient := range recipients {
		if recipient.Email == "" {
			continue
		}
		subject, body, err := d.renderer.Render(template, data(recipient))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := d.Enqueue(ctx, Message{To: recipient.Email, Subject: subject, HTMLBody: body}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) formatTime(t time.Time) string {
	return t.In(d.location).Format("15:04 02/01/2006")
}

// OTPIssued implements application.Notifier.
func (d *Dispatcher) OTPIssued(ctx context.Context, employee application.Employee, code string, expiresAt time.Time) error {
	return d.deliver(ctx, TemplateOTP, []application.Employee{employee}, func(e application.Employee) TemplateData {
		return TemplateData{Name: e.FullName, Code: code, ExpiresAt: d.formatTime(expiresAt)}
	})
}

// PasswordReset implements application.Notifier.
func (d *Dispatcher) PasswordReset(ctx context.Context, employee application.Employee, newPassword string) error {
	return d.deliver(ctx, TemplatePasswordReset, []application.Employee{employee}, func(e application.Employee) TemplateData {
		return TemplateData{Name: e.FullName, Password: newPassword}
	})
}

// EmployeeWelcome implements application.Notifier. An empty password means
// the administrator chose it and it is not repeated in the mail.
func (d *Dispatcher) EmployeeWelcome(ctx context.Context, employee application.Employee, password string) error {
	return d.deliver(ctx, TemplateWelcome, []application.Employee{employee}, func(e application.Employee) TemplateData {
		return TemplateData{Name: e.FullName, Email: e.Email, Password: password}
	})
}

// TaskAssigned implements application.Notifier.
func (d *Dispatcher) TaskAssigned(ctx context.Context, task application.Task, assigner application.Employee, assignees []application.Employee) error {
	var due string
	if task.DueDate != nil {
		due = task.DueDate.In(d.location).Format("02/01/2006")
	}
	return d.deliver(ctx, TemplateTaskAssigned, assignees, func(e application.Employee) TemplateData {
		return TemplateData{Name: e.FullName, Title: task.Title, Actor: assigner.FullName, DueDate: due}
	})
}

// TaskSubmitted implements application.Notifier.
func (d *Dispatcher) TaskSubmitted(ctx context.Context, task application.Task, submitter, supervisor application.Employee) error {
	return d.deliver(ctx, TemplateTaskSubmitted, []application.Employee{supervisor}, func(e application.Employee) TemplateData {
		return TemplateData{Name: e.FullName, Title: task.Title, Actor: submitter.FullName}
	})
}

// TaskReviewed implements application.Notifier.
func (d *Dispatcher) TaskReviewed(ctx context.Context, task application.Task, reviewer application.Employee, assignees []application.Employee) error {
	approved := task.Status == application.TaskStatusCompleted
	return d.deliver(ctx, TemplateTaskReviewed, assignees, func(e application.Employee) TemplateData {
		return TemplateData{Name: e.FullName, Title: task.Title, Actor: reviewer.FullName, Approved: approved}
	})
}

// ProjectMembersAdded implements application.Notifier.
func (d *Dispatcher) ProjectMembersAdded(ctx context.Context, project application.Project, members []application.Employee) error {
	return d.deliver(ctx, TemplateProjectMember, members, func(e application.Employee) TemplateData {
		return TemplateData{Name: e.FullName, Title: project.Name}
	})
}
