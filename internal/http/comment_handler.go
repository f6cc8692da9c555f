package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/hrm-service/internal/application"
)

type commentService interface {
	CreateComment(ctx context.Context, principal application.Principal, input application.CommentInput) (application.Comment, error)
	ListByTask(ctx context.Context, principal application.Principal, taskID string) ([]application.Comment, error)
	MarkAsSummary(ctx context.Context, principal application.Principal, id string, isSummary bool) (application.Comment, error)
	DeleteComment(ctx context.Context, principal application.Principal, id string) error
}

type CommentHandler struct {
	service   commentService
	responder responder
	logger    *slog.Logger
}

func NewCommentHandler(service commentService, logger *slog.Logger) *CommentHandler {
	base := defaultLogger(logger)
	return &CommentHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CommentHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "CommentHandler", operation, attrs...)
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.EmployeeID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode comment", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.EmployeeID, "task_id", req.TaskID)
	comment, err := h.service.CreateComment(r.Context(), principal, application.CommentInput{
		TaskID:    strings.TrimSpace(req.TaskID),
		Content:   req.Content,
		IsSummary: req.IsSummary,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "comment creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("comment_id", comment.ID).InfoContext(r.Context(), "comment created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, commentResponse{Comment: toCommentDTO(comment)})
}

func (h *CommentHandler) ListByTask(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	taskID := pathParam(r, "taskId")
	logger := h.log(r.Context(), "ListByTask", "principal_id", principal.EmployeeID, "task_id", taskID)

	comments, err := h.service.ListByTask(r.Context(), principal, taskID)
	if err != nil {
		logger.ErrorContext(r.Context(), "comment list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]commentDTO, 0, len(comments))
	for _, comment := range comments {
		out = append(out, toCommentDTO(comment))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listCommentsResponse{Comments: out})
}

func (h *CommentHandler) MarkAsSummary(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")

	flag, err := optionalBool(r.URL.Query().Get("isSummary"))
	if err != nil {
		h.log(r.Context(), "MarkAsSummary", "principal_id", principal.EmployeeID, "comment_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "invalid isSummary flag", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBoolean)
		return
	}
	isSummary := flag == nil || *flag

	logger := h.log(r.Context(), "MarkAsSummary", "principal_id", principal.EmployeeID, "comment_id", id, "is_summary", isSummary)
	comment, err := h.service.MarkAsSummary(r.Context(), principal, id, isSummary)
	if err != nil {
		logger.ErrorContext(r.Context(), "marking comment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "comment summary flag updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, commentResponse{Comment: toCommentDTO(comment)})
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	id := pathParam(r, "id")
	logger := h.log(r.Context(), "Delete", "principal_id", principal.EmployeeID, "comment_id", id)

	if err := h.service.DeleteComment(r.Context(), principal, id); err != nil {
		logger.ErrorContext(r.Context(), "comment delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "comment deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type commentRequest struct {
	TaskID    string `json:"taskId"`
	Content   string `json:"content"`
	IsSummary bool   `json:"isSummary"`
}

type commentResponse struct {
	Comment commentDTO `json:"comment"`
}

type listCommentsResponse struct {
	Comments []commentDTO `json:"comments"`
}

type commentDTO struct {
	ID        string `json:"id"`
	TaskID    string `json:"taskId"`
	AuthorID  string `json:"authorId"`
	Content   string `json:"content"`
	IsSummary bool   `json:"isSummary"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toCommentDTO(comment application.Comment) commentDTO {
	return commentDTO{
		ID:        comment.ID,
		TaskID:    comment.TaskID,
		AuthorID:  comment.AuthorID,
		Content:   comment.Content,
		IsSummary: comment.IsSummary,
		CreatedAt: formatTime(comment.CreatedAt),
		UpdatedAt: formatTime(comment.UpdatedAt),
	}
}
