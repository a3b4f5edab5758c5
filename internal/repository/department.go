package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jatinpathania/University-assignment-approval-system/internal/domain"
	"github.com/jatinpathania/University-assignment-approval-system/internal/errdefs"
)

type DepartmentRepository struct {
	db *sql.DB
}

func NewDepartmentRepository(db *sql.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Department, error) {
	query := `SELECT id, name, program_type, short_code, created_at FROM departments WHERE id = $1`

	var d domain.Department
	err := r.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.Name, &d.ProgramType, &d.ShortCode, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errdefs.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return &d, nil
}
