// internal/models/user.go
package models

import (
	"database/sql"
	"time"
)

// Role constants
const (
	RoleMember  = "member"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

type User struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Role         string         `db:"role"`
	DepartmentID sql.NullString `db:"department_id"`
	WeComUserID  sql.NullString `db:"wecom_user_id"`
	CreatedAt    time.Time      `db:"created_at"`
}
