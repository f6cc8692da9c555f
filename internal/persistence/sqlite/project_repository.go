package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/hrm-service/internal/application"
	"github.com/example/hrm-service/internal/persistence"
)

// ProjectRepository implements application.ProjectRepository using SQLite
type ProjectRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

var _ application.ProjectRepository = (*ProjectRepository)(nil)

// NewProjectRepository creates a new SQLite project repository
func NewProjectRepository(pool *ConnectionPool) *ProjectRepository {
	return &ProjectRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

const projectColumns = `p.id, p.name, p.description, p.department_id, p.manager_id, p.status, p.created_at, p.updated_at`

// CreateProject inserts a project and its member roster
func (r *ProjectRepository) CreateProject(ctx context.Context, project application.Project) (application.Project, error) {
	if project.ID == "" {
		return application.Project{}, persistence.ErrConstraintViolation
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projects (id, name, description, department_id, manager_id, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			project.ID,
			project.Name,
			project.Description,
			project.DepartmentID,
			project.ManagerID,
			project.Status,
			formatTime(project.CreatedAt),
			formatTime(project.UpdatedAt),
		); err != nil {
			return err
		}
		return insertMembers(ctx, tx, project.ID, project.MemberIDs, project.CreatedAt)
	})
	if err != nil {
		return application.Project{}, r.mapper.MapError(err)
	}
	return r.GetProject(ctx, project.ID)
}

// GetProject retrieves a project with its members
func (r *ProjectRepository) GetProject(ctx context.Context, id string) (application.Project, error) {
	if id == "" {
		return application.Project{}, persistence.ErrNotFound
	}
	project, err := scanProject(r.helper.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = ?`, id))
	if err != nil {
		return application.Project{}, r.mapper.MapError(err)
	}

	members, err := r.loadMembers(ctx, []string{project.ID})
	if err != nil {
		return application.Project{}, err
	}
	project.MemberIDs = members[project.ID]
	if project.MemberIDs == nil {
		project.MemberIDs = []string{}
	}
	return project, nil
}

// UpdateProject overwrites the project fields and replaces the member roster
func (r *ProjectRepository) UpdateProject(ctx context.Context, project application.Project) (application.Project, error) {
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := r.helper.ExecAffecting(ctx, tx, `
			UPDATE projects
			SET name = ?, description = ?, department_id = ?, manager_id = ?, status = ?, updated_at = ?
			WHERE id = ?
		`,
			project.Name,
			project.Description,
			project.DepartmentID,
			project.ManagerID,
			project.Status,
			formatTime(project.UpdatedAt),
			project.ID,
		); err != nil {
			return err
		}

		existing, err := memberSet(ctx, tx, project.ID)
		if err != nil {
			return err
		}
		keep := make(map[string]bool, len(project.MemberIDs))
		var added []string
		for _, id := range project.MemberIDs {
			keep[id] = true
			if !existing[id] {
				added = append(added, id)
			}
		}
		for id := range existing {
			if keep[id] {
				continue
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM project_members WHERE project_id = ? AND employee_id = ?`, project.ID, id); err != nil {
				return err
			}
		}
		return insertMembers(ctx, tx, project.ID, added, project.UpdatedAt)
	})
	if err != nil {
		return application.Project{}, r.mapper.MapError(err)
	}
	return r.GetProject(ctx, project.ID)
}

// DeleteProject removes a project; members and tasks cascade
func (r *ProjectRepository) DeleteProject(ctx context.Context, id string) error {
	return r.mapper.MapError(r.helper.ExecAffecting(ctx, nil, `DELETE FROM projects WHERE id = ?`, id))
}

// ListProjects returns projects ordered by creation time, newest first
func (r *ProjectRepository) ListProjects(ctx context.Context, filter application.ProjectFilter) ([]application.Project, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.DepartmentID != "" {
		conditions = append(conditions, "p.department_id = ?")
		args = append(args, filter.DepartmentID)
	}
	if filter.ParticipantID != "" {
		conditions = append(conditions, `(p.manager_id = ? OR EXISTS (
			SELECT 1 FROM project_members m WHERE m.project_id = p.id AND m.employee_id = ?))`)
		args = append(args, filter.ParticipantID, filter.ParticipantID)
	}

	query := `SELECT ` + projectColumns + ` FROM projects p`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY p.created_at DESC, p.id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	projects := []application.Project{}
	var ids []string
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		projects = append(projects, project)
		ids = append(ids, project.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	rows.Close()

	if len(ids) == 0 {
		return projects, nil
	}
	members, err := r.loadMembers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		projects[i].MemberIDs = members[projects[i].ID]
		if projects[i].MemberIDs == nil {
			projects[i].MemberIDs = []string{}
		}
	}
	return projects, nil
}

// AddProjectMembers appends members to the roster; existing members are ignored
func (r *ProjectRepository) AddProjectMembers(ctx context.Context, projectID string, memberIDs []string) error {
	if len(memberIDs) == 0 {
		return nil
	}
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ?`, projectID).Scan(&exists); err != nil {
			return err
		}
		return insertMembers(ctx, tx, projectID, memberIDs, r.now())
	})
	return r.mapper.MapError(err)
}

// RemoveProjectMember drops one member from the roster
func (r *ProjectRepository) RemoveProjectMember(ctx context.Context, projectID, memberID string) error {
	err := r.helper.ExecAffecting(ctx, nil,
		`DELETE FROM project_members WHERE project_id = ? AND employee_id = ?`, projectID, memberID)
	return r.mapper.MapError(err)
}

// IsProjectMember reports whether employeeID is on the project roster
func (r *ProjectRepository) IsProjectMember(ctx context.Context, projectID, employeeID string) (bool, error) {
	var found int
	err := r.helper.QueryRow(ctx,
		`SELECT COUNT(1) FROM project_members WHERE project_id = ? AND employee_id = ?`, projectID, employeeID,
	).Scan(&found)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	return found > 0, nil
}

func (r *ProjectRepository) loadMembers(ctx context.Context, projectIDs []string) (map[string][]string, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT project_id, employee_id FROM project_members
		 WHERE project_id IN (`+placeholders(len(projectIDs))+`)
		 ORDER BY added_at ASC, rowid ASC`,
		stringArgs(projectIDs)...,
	)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	members := make(map[string][]string, len(projectIDs))
	for rows.Next() {
		var projectID, employeeID string
		if err := rows.Scan(&projectID, &employeeID); err != nil {
			return nil, r.mapper.MapError(err)
		}
		members[projectID] = append(members[projectID], employeeID)
	}
	return members, r.mapper.MapError(rows.Err())
}

func memberSet(ctx context.Context, tx *sql.Tx, projectID string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, `SELECT employee_id FROM project_members WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		set[id] = true
	}
	return set, rows.Err()
}

func insertMembers(ctx context.Context, tx *sql.Tx, projectID string, memberIDs []string, addedAt time.Time) error {
	for _, id := range memberIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO project_members (project_id, employee_id, added_at) VALUES (?, ?, ?)`,
			projectID, id, formatTime(addedAt),
		); err != nil {
			return err
		}
	}
	return nil
}

func scanProject(row rowScanner) (application.Project, error) {
	var (
		project              application.Project
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&project.ID,
		&project.Name,
		&project.Description,
		&project.DepartmentID,
		&project.ManagerID,
		&project.Status,
		&createdAt,
		&updatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return application.Project{}, persistence.ErrNotFound
		}
		return application.Project{}, err
	}

	var err error
	if project.CreatedAt, err = parseTime(createdAt); err != nil {
		return application.Project{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if project.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return application.Project{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return project, nil
}
