// internal/repository/user_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/emrekoca/taskwarden/internal/models"
)

const userColumns = `id, name, role, department_id, wecom_user_id, created_at`

// ErrUserNotFound is returned when a user id resolves to no row.
var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user %s: %w", id, err)
	}
	return &user, nil
}

// DepartmentManagers returns the users holding the manager role in a
// department, ordered by id so callers that pick the first get a
// deterministic choice.
func (r *UserRepository) DepartmentManagers(ctx context.Context, departmentID string) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users,
		r.db.Rebind(`SELECT `+userColumns+` FROM users
		             WHERE department_id = ? AND role = ?
		             ORDER BY id`),
		departmentID, models.RoleManager)
	if err != nil {
		return nil, fmt.Errorf("querying managers for department %s: %w", departmentID, err)
	}
	return users, nil
}
