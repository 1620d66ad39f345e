package engine

import (
	"context"

	"github.com/roach88/askflow/internal/model"
	"github.com/roach88/askflow/internal/store"
)

// SetStatus executes a status transition on a question.
//
// The workflow is forward-only: NEW -> IN_PROGRESS -> PENDING_APPROVAL
// -> CLOSED. There is no transition table; each target carries its own
// precondition branch below, and any target not covered is rejected.
//
//	target            allowed actors                      data precondition
//	NEW               nobody (creation only)              -
//	IN_PROGRESS       assignee, admin, manager/creator    -
//	PENDING_APPROVAL  assignee, admin, manager/creator    answer count >= 1
//	CLOSED            creator, admin, manager/creator     answer count >= 1
//
// Notifications per committed transition: PENDING_APPROVAL notifies the
// question's creator, CLOSED notifies the assignee, IN_PROGRESS notifies
// nobody.
func (e *Engine) SetStatus(ctx context.Context, p *model.Principal, projectID, questionID string, target model.Status) (*model.Question, error) {
	const op = "SetStatus"

	view, err := e.CanAccessProject(ctx, p, projectID)
	if err != nil {
		return nil, err
	}

	question, err := e.loadQuestion(ctx, op, projectID, questionID)
	if err != nil {
		return nil, err
	}

	// NEW is reachable only via creation (or the last-answer deletion
	// reversion), never via explicit transition.
	if target == model.StatusNew {
		return nil, errf(KindInvalid, op, "NEW is not a valid transition target")
	}
	if !target.Valid() {
		return nil, errf(KindInvalid, op, "unknown status %q", target)
	}
	if question.Status == model.StatusClosed {
		return nil, errf(KindInvalid, op, "question %s is closed", questionID)
	}

	actorIsAssignee := p.ID == question.AssigneeID
	actorIsCreator := p.ID == question.CreatorID
	actorManages := canManage(view, p)

	// The answer-count gate is checked before the actor gate so that an
	// unanswered question fails Invalid for every caller.
	switch target {
	case model.StatusInProgress:
		if !actorIsAssignee && !actorManages {
			return nil, errf(KindForbidden, op, "user %s may not start question %s", p.ID, questionID)
		}
	case model.StatusPendingApproval:
		if err := e.requireAnswers(ctx, op, questionID); err != nil {
			return nil, err
		}
		if !actorIsAssignee && !actorManages {
			return nil, errf(KindForbidden, op, "user %s may not submit question %s for approval", p.ID, questionID)
		}
	case model.StatusClosed:
		if err := e.requireAnswers(ctx, op, questionID); err != nil {
			return nil, err
		}
		if !actorIsCreator && !actorManages {
			return nil, errf(KindForbidden, op, "user %s may not close question %s", p.ID, questionID)
		}
	}

	err = e.store.InTx(ctx, func(tx *store.Tx) error {
		// Preconditions re-read under the transaction: a concurrent
		// close or answer deletion must not be overwritten on the basis
		// of the stale pre-transaction snapshot.
		status, err := tx.QuestionStatus(questionID)
		if err != nil {
			return err
		}
		if status == model.StatusClosed {
			return errf(KindInvalid, op, "question %s is closed", questionID)
		}
		if target == model.StatusPendingApproval || target == model.StatusClosed {
			count, err := tx.CountAnswers(questionID)
			if err != nil {
				return err
			}
			if count == 0 {
				return errf(KindInvalid, op, "question %s has no answers", questionID)
			}
		}

		if err := tx.UpdateQuestionStatus(questionID, target); err != nil {
			return err
		}

		// Transition -> (recipient, type) mapping, one branch per
		// notifying target.
		switch target {
		case model.StatusPendingApproval:
			return e.dispatch(tx, question.CreatorID, model.NotifPendingApproval, questionID)
		case model.StatusClosed:
			return e.dispatch(tx, question.AssigneeID, model.NotifQuestionClosed, questionID)
		}
		return nil
	})
	if err != nil {
		return nil, e.taggedOrInternal(op, err, "set status of question "+questionID)
	}

	question.Status = target
	return question, nil
}

// requireAnswers fails Invalid when the question has no answers yet.
// This is the pre-transaction check; the transaction re-counts before
// writing.
func (e *Engine) requireAnswers(ctx context.Context, op, questionID string) error {
	count, err := e.store.CountAnswers(ctx, questionID)
	if err != nil {
		e.log.Error("answer count failed", "op", op, "question_id", questionID, "error", err)
		return internalf(op, err, "count answers of question %s", questionID)
	}
	if count == 0 {
		return errf(KindInvalid, op, "question %s has no answers", questionID)
	}
	return nil
}
