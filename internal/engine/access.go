package engine

import (
	"context"
	"errors"

	"github.com/roach88/askflow/internal/model"
	"github.com/roach88/askflow/internal/store"
)

// ProjectView is the result of a successful access resolution: the
// project with its memberships, plus the caller's own membership when
// one exists. Admins and the project creator may have no membership row.
type ProjectView struct {
	Project    *model.Project
	Membership *model.Membership
}

// CanAccessProject resolves read access to a project.
//
// Access is granted to admins, the project creator, and any membership
// holder. Fails NotFound if the project does not exist, Forbidden if it
// exists but the principal holds no grant, Internal if the load fails.
//
// Pure read: no side effects, safe to call repeatedly. Every other
// operation calls this (or CanManageProject) first and does not proceed
// on failure.
func (e *Engine) CanAccessProject(ctx context.Context, p *model.Principal, projectID string) (*ProjectView, error) {
	const op = "CanAccessProject"

	if p == nil {
		return nil, errf(KindUnauthenticated, op, "no principal")
	}

	project, err := e.store.GetProject(ctx, projectID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errf(KindNotFound, op, "project %s not found", projectID)
	}
	if err != nil {
		e.log.Error("project load failed", "op", op, "project_id", projectID, "error", err)
		return nil, internalf(op, err, "load project %s", projectID)
	}

	view := &ProjectView{Project: project}
	for i := range project.Members {
		if project.Members[i].UserID == p.ID {
			view.Membership = &project.Members[i]
			break
		}
	}

	if p.IsAdmin || p.ID == project.CreatorID || view.Membership != nil {
		return view, nil
	}

	return nil, errf(KindForbidden, op, "user %s has no access to project %s", p.ID, projectID)
}

// CanManageProject resolves manage access to a project.
//
// Delegates to CanAccessProject and propagates its failures unchanged.
// On success, additionally requires admin, project creator, or a MANAGER
// membership; plain members get Forbidden.
func (e *Engine) CanManageProject(ctx context.Context, p *model.Principal, projectID string) (*ProjectView, error) {
	const op = "CanManageProject"

	view, err := e.CanAccessProject(ctx, p, projectID)
	if err != nil {
		return nil, err
	}

	if p.IsAdmin || p.ID == view.Project.CreatorID {
		return view, nil
	}
	if view.Membership != nil && view.Membership.Role == model.RoleManager {
		return view, nil
	}

	return nil, errf(KindForbidden, op, "user %s may not manage project %s", p.ID, projectID)
}

// canManage reports whether the principal has manage-level privilege on
// an already-resolved view. Used by operations that resolve access once
// and then need the stronger check for a sub-decision.
func canManage(view *ProjectView, p *model.Principal) bool {
	if p.IsAdmin || p.ID == view.Project.CreatorID {
		return true
	}
	return view.Membership != nil && view.Membership.Role == model.RoleManager
}
