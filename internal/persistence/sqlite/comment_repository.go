package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/hrm-service/internal/application"
	"github.com/example/hrm-service/internal/persistence"
)

// CommentRepository implements application.CommentRepository using SQLite
type CommentRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

var _ application.CommentRepository = (*CommentRepository)(nil)

// NewCommentRepository creates a new SQLite comment repository
func NewCommentRepository(pool *ConnectionPool) *CommentRepository {
	return &CommentRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const commentColumns = `id, task_id, author_id, content, is_summary, created_at, updated_at`

// CreateComment inserts a comment
func (r *CommentRepository) CreateComment(ctx context.Context, comment application.Comment) (application.Comment, error) {
	if comment.ID == "" {
		return application.Comment{}, persistence.ErrConstraintViolation
	}
	if err := insertComment(ctx, r.pool.DB(), comment); err != nil {
		return application.Comment{}, r.mapper.MapError(err)
	}
	return r.GetComment(ctx, comment.ID)
}

// GetComment retrieves a comment by ID
func (r *CommentRepository) GetComment(ctx context.Context, id string) (application.Comment, error) {
	if id == "" {
		return application.Comment{}, persistence.ErrNotFound
	}
	comment, err := scanComment(r.helper.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id))
	if err != nil {
		return application.Comment{}, r.mapper.MapError(err)
	}
	return comment, nil
}

// UpdateComment overwrites the content and summary flag
func (r *CommentRepository) UpdateComment(ctx context.Context, comment application.Comment) (application.Comment, error) {
	err := r.helper.ExecAffecting(ctx, nil,
		`UPDATE comments SET content = ?, is_summary = ?, updated_at = ? WHERE id = ?`,
		comment.Content, comment.IsSummary, formatTime(comment.UpdatedAt), comment.ID,
	)
	if err != nil {
		return application.Comment{}, r.mapper.MapError(err)
	}
	return r.GetComment(ctx, comment.ID)
}

// DeleteComment removes a comment
func (r *CommentRepository) DeleteComment(ctx context.Context, id string) error {
	return r.mapper.MapError(r.helper.ExecAffecting(ctx, nil, `DELETE FROM comments WHERE id = ?`, id))
}

// ListCommentsByTask returns the comments of a task, oldest first
func (r *CommentRepository) ListCommentsByTask(ctx context.Context, taskID string) ([]application.Comment, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE task_id = ? ORDER BY created_at ASC, id ASC`, taskID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	comments := []application.Comment{}
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return comments, nil
}

func insertComment(ctx context.Context, q queryer, comment application.Comment) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO comments (id, task_id, author_id, content, is_summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		comment.ID,
		comment.TaskID,
		comment.AuthorID,
		comment.Content,
		comment.IsSummary,
		formatTime(comment.CreatedAt),
		formatTime(comment.UpdatedAt),
	)
	return err
}

func scanComment(row rowScanner) (application.Comment, error) {
	var (
		comment              application.Comment
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&comment.ID,
		&comment.TaskID,
		&comment.AuthorID,
		&comment.Content,
		&comment.IsSummary,
		&createdAt,
		&updatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return application.Comment{}, persistence.ErrNotFound
		}
		return application.Comment{}, err
	}

	var err error
	if comment.CreatedAt, err = parseTime(createdAt); err != nil {
		return application.Comment{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if comment.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return application.Comment{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return comment, nil
}
