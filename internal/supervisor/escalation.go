// internal/supervisor/escalation.go
package supervisor

import (
	"context"
	"fmt"

	"github.com/emrekoca/taskwarden/internal/models"
)

// Resolver finds the secondary recipient for escalated notifications: the
// task owner's department manager.
type Resolver struct {
	users UserStore
}

func NewResolver(users UserStore) *Resolver {
	return &Resolver{users: users}
}

// ManagerFor returns the owner's department manager, or nil when the owner
// has no department, the department has no manager, or the owner is the
// manager themselves. When a department has several managers the one with
// the lowest id wins, so repeated scans escalate to the same person.
func (r *Resolver) ManagerFor(ctx context.Context, owner *models.User) (*models.User, error) {
	if !owner.DepartmentID.Valid {
		return nil, nil
	}

	managers, err := r.users.DepartmentManagers(ctx, owner.DepartmentID.String)
	if err != nil {
		return nil, fmt.Errorf("resolving manager for user %s: %w", owner.ID, err)
	}

	for i := range managers {
		if managers[i].ID != owner.ID {
			return &managers[i], nil
		}
	}
	return nil, nil
}
