package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jatinpathania/University-assignment-approval-system/internal/domain"
	"github.com/jatinpathania/University-assignment-approval-system/internal/errdefs"
)

type AssignmentRepository struct {
	db *sql.DB
}

func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `
id, title, description, category, course_code, status,
student_id, department_id, reviewer_id,
file_url, original_file_name, submission_date, history,
created_at, edited_at
`

// TransitionUpdate is one state-machine step persisted as a single UPDATE:
// the status write and the history append land in the same statement, so
// they are never observably separated. FromStatuses guards the source
// state against a concurrent transition that won the race.
type TransitionUpdate struct {
	ID           uuid.UUID
	FromStatuses []domain.Status
	Status       domain.Status

	ReviewerID     *uuid.UUID
	SubmissionDate *time.Time

	FileURL          *string
	OriginalFileName *string
	Description      *string

	Entry domain.HistoryEntry
}

func (r *AssignmentRepository) Create(ctx context.Context, assignment *domain.Assignment) error {
	query := `
		INSERT INTO assignments
			(id, title, description, category, course_code, status,
			 student_id, department_id, file_url, original_file_name,
			 history, created_at, edited_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, '[]'::jsonb, $11, $11)
	`

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate UUID: %w", err)
	}

	now := time.Now()
	_, err = r.db.ExecContext(ctx, query,
		id,
		assignment.Title,
		assignment.Description,
		assignment.Category,
		assignment.CourseCode,
		assignment.Status,
		assignment.StudentID,
		assignment.DepartmentID,
		assignment.FileURL,
		assignment.OriginalFileName,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}

	assignment.ID = id
	assignment.CreatedAt = now
	assignment.EditedAt = now
	return nil
}

func (r *AssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	assignment, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errdefs.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return assignment, nil
}

// ApplyTransition writes one validated transition. A zero rows-affected
// result means the record is gone or its status moved under us; the
// caller gets ErrConflict and the record plus its history stay untouched.
func (r *AssignmentRepository) ApplyTransition(ctx context.Context, upd TransitionUpdate) (*domain.Assignment, error) {
	entryJSON, err := json.Marshal([]domain.HistoryEntry{upd.Entry})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history entry: %w", err)
	}

	set := []string{"status = $1", "history = history || $2::jsonb", "edited_at = NOW()"}
	args := []interface{}{upd.Status, string(entryJSON)}
	argIdx := 3

	if upd.ReviewerID != nil {
		set = append(set, fmt.Sprintf("reviewer_id = $%d", argIdx))
		args = append(args, *upd.ReviewerID)
		argIdx++
	}
	if upd.SubmissionDate != nil {
		set = append(set, fmt.Sprintf("submission_date = $%d", argIdx))
		args = append(args, *upd.SubmissionDate)
		argIdx++
	}
	if upd.FileURL != nil {
		set = append(set, fmt.Sprintf("file_url = $%d", argIdx))
		args = append(args, *upd.FileURL)
		argIdx++
	}
	if upd.OriginalFileName != nil {
		set = append(set, fmt.Sprintf("original_file_name = $%d", argIdx))
		args = append(args, *upd.OriginalFileName)
		argIdx++
	}
	if upd.Description != nil {
		set = append(set, fmt.Sprintf("description = $%d", argIdx))
		args = append(args, *upd.Description)
		argIdx++
	}

	statuses := make([]string, 0, len(upd.FromStatuses))
	for _, s := range upd.FromStatuses {
		statuses = append(statuses, string(s))
	}

	query := fmt.Sprintf(
		`UPDATE assignments SET %s WHERE id = $%d AND status = ANY($%d) RETURNING %s`,
		strings.Join(set, ", "), argIdx, argIdx+1, assignmentColumns,
	)
	args = append(args, upd.ID, pq.Array(statuses))

	row := r.db.QueryRowContext(ctx, query, args...)
	assignment, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errdefs.ErrConflict
		}
		return nil, fmt.Errorf("failed to apply transition: %w", err)
	}
	return assignment, nil
}

type StatusFilter struct {
	StudentID    uuid.UUID
	ReviewerID   uuid.UUID
	DepartmentID uuid.UUID
}

func (r *AssignmentRepository) CountByStatus(ctx context.Context, filter StatusFilter) (map[domain.Status]int, error) {
	query := `SELECT status, COUNT(*) FROM assignments WHERE 1=1`
	var args []interface{}
	argIdx := 1

	if filter.StudentID != uuid.Nil {
		query += fmt.Sprintf(" AND student_id = $%d", argIdx)
		args = append(args, filter.StudentID)
		argIdx++
	}
	if filter.ReviewerID != uuid.Nil {
		query += fmt.Sprintf(" AND reviewer_id = $%d", argIdx)
		args = append(args, filter.ReviewerID)
		argIdx++
	}
	if filter.DepartmentID != uuid.Nil {
		query += fmt.Sprintf(" AND department_id = $%d", argIdx)
		args = append(args, filter.DepartmentID)
		argIdx++
	}

	query += " GROUP BY status"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count assignments: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[domain.ToStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return counts, nil
}

// CountBlockingDeletion returns how many assignments pin the user: records
// they own that are not yet approved or rejected, plus records they are
// currently reviewing.
func (r *AssignmentRepository) CountBlockingDeletion(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM assignments
		WHERE (student_id = $1 AND status IN ('Draft', 'Submitted', 'Forwarded'))
		   OR (reviewer_id = $1 AND status IN ('Submitted', 'Forwarded'))
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending assignments: %w", err)
	}
	return count, nil
}

func scanAssignment(row *sql.Row) (*domain.Assignment, error) {
	var a domain.Assignment
	var historyRaw []byte

	err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Description,
		&a.Category,
		&a.CourseCode,
		&a.Status,
		&a.StudentID,
		&a.DepartmentID,
		&a.ReviewerID,
		&a.FileURL,
		&a.OriginalFileName,
		&a.SubmissionDate,
		&historyRaw,
		&a.CreatedAt,
		&a.EditedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(historyRaw, &a.History); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	return &a, nil
}
