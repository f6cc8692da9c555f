package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// CommentInput captures caller provided comment fields.
type CommentInput struct {
	TaskID    string
	Content   string
	IsSummary bool
}

// CommentService manages task comments.
type CommentService struct {
	comments    CommentRepository
	tasks       TaskRepository
	projects    ProjectRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCommentService constructs a comment service.
func NewCommentService(comments CommentRepository, tasks TaskRepository, projects ProjectRepository, idGenerator func() string, now func() time.Time) *CommentService {
	return NewCommentServiceWithLogger(comments, tasks, projects, idGenerator, now, nil)
}

// NewCommentServiceWithLogger constructs a comment service with a specified logger.
func NewCommentServiceWithLogger(comments CommentRepository, tasks TaskRepository, projects ProjectRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CommentService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CommentService{
		comments:    comments,
		tasks:       tasks,
		projects:    projects,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *CommentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CommentService", operation, attrs...)
}

func (s *CommentService) configured() error {
	if s == nil || s.comments == nil || s.tasks == nil || s.projects == nil {
		return fmt.Errorf("comment repositories not configured")
	}
	return nil
}

// CreateComment adds a comment to a task the principal may view.
func (s *CommentService) CreateComment(ctx context.Context, principal Principal, input CommentInput) (comment Comment, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateComment", "principal_id", principal.EmployeeID, "task_id", input.TaskID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create comment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("comment_id", comment.ID).InfoContext(ctx, "comment created")
	}()

	content := strings.TrimSpace(input.Content)
	vErr := &ValidationError{}
	if strings.TrimSpace(input.TaskID) == "" {
		vErr.add("taskId", "task is required")
	}
	if content == "" {
		vErr.add("content", "content is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var task Task
	task, _, err = loadVisibleTask(ctx, s.tasks, s.projects, principal, strings.TrimSpace(input.TaskID))
	if err != nil {
		return
	}

	now := s.now()
	comment, err = s.comments.CreateComment(ctx, Comment{
		ID:        s.idGenerator(),
		TaskID:    task.ID,
		AuthorID:  principal.EmployeeID,
		Content:   content,
		IsSummary: input.IsSummary,
		CreatedAt: now,
		UpdatedAt: now,
	})
	err = mapRepoError(err)
	return
}

// ListByTask returns the comments of a task, oldest first.
func (s *CommentService) ListByTask(ctx context.Context, principal Principal, taskID string) ([]Comment, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	if _, _, err := loadVisibleTask(ctx, s.tasks, s.projects, principal, taskID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListCommentsByTask(ctx, taskID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if comments == nil {
		comments = []Comment{}
	}
	return comments, nil
}

// MarkAsSummary sets the summary flag. The author, the task supervisor and
// the task assigner may do so.
func (s *CommentService) MarkAsSummary(ctx context.Context, principal Principal, id string, isSummary bool) (comment Comment, err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "MarkAsSummary", "principal_id", principal.EmployeeID, "comment_id", id, "is_summary", isSummary)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to mark comment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "comment summary flag updated")
	}()

	var existing Comment
	existing, err = s.comments.GetComment(ctx, id)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	var task Task
	task, err = s.tasks.GetTask(ctx, existing.TaskID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if !canMarkSummary(principal, existing, task) {
		err = ErrForbidden
		return
	}

	existing.IsSummary = isSummary
	existing.UpdatedAt = s.now()
	comment, err = s.comments.UpdateComment(ctx, existing)
	err = mapRepoError(err)
	return
}

// DeleteComment removes a comment. Only its author may delete it.
func (s *CommentService) DeleteComment(ctx context.Context, principal Principal, id string) (err error) {
	if err = s.configured(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteComment", "principal_id", principal.EmployeeID, "comment_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete comment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "comment deleted")
	}()

	comment, err := s.comments.GetComment(ctx, id)
	if err != nil {
		return mapRepoError(err)
	}
	if !canDeleteComment(principal, comment) {
		return fmt.Errorf("%w: only the author may delete a comment", ErrForbidden)
	}
	return mapRepoError(s.comments.DeleteComment(ctx, id))
}
