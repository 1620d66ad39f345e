package engine

import (
	"context"
	"errors"

	"github.com/roach88/askflow/internal/model"
	"github.com/roach88/askflow/internal/store"
)

// CreateProject creates a project owned by the principal. The creator is
// implicitly privileged on the project and needs no membership row.
func (e *Engine) CreateProject(ctx context.Context, p *model.Principal, name string) (*model.Project, error) {
	const op = "CreateProject"

	if p == nil {
		return nil, errf(KindUnauthenticated, op, "no principal")
	}
	if name == "" {
		return nil, errf(KindInvalid, op, "project name must not be empty")
	}

	project := model.Project{
		ID:        e.ids.NewID(),
		Name:      name,
		CreatorID: p.ID,
	}

	err := e.store.InTx(ctx, func(tx *store.Tx) error {
		return tx.InsertProject(project)
	})
	if err != nil {
		e.log.Error("project insert failed", "op", op, "project_id", project.ID, "error", err)
		return nil, internalf(op, err, "insert project %s", project.ID)
	}

	return &project, nil
}

// AddMember grants a user a role in a project. Requires manage access.
// The user must exist; granting a second membership to the same user is
// rejected with Invalid.
func (e *Engine) AddMember(ctx context.Context, p *model.Principal, projectID, userID string, role model.Role) (*model.Membership, error) {
	const op = "AddMember"

	if _, err := e.CanManageProject(ctx, p, projectID); err != nil {
		return nil, err
	}

	if !role.Valid() {
		return nil, errf(KindInvalid, op, "unknown role %q", role)
	}

	if _, err := e.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errf(KindNotFound, op, "user %s not found", userID)
		}
		e.log.Error("user load failed", "op", op, "user_id", userID, "error", err)
		return nil, internalf(op, err, "load user %s", userID)
	}

	membership := model.Membership{ProjectID: projectID, UserID: userID, Role: role}

	var inserted bool
	err := e.store.InTx(ctx, func(tx *store.Tx) error {
		var txErr error
		inserted, txErr = tx.InsertMembership(membership)
		return txErr
	})
	if err != nil {
		e.log.Error("membership insert failed", "op", op, "project_id", projectID, "user_id", userID, "error", err)
		return nil, internalf(op, err, "insert membership for user %s", userID)
	}
	if !inserted {
		return nil, errf(KindInvalid, op, "user %s is already a member of project %s", userID, projectID)
	}

	return &membership, nil
}
