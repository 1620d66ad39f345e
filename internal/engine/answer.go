package engine

import (
	"context"
	"errors"

	"github.com/roach88/askflow/internal/model"
	"github.com/roach88/askflow/internal/store"
)

// FormResponseInput is one caller-supplied form field value.
// For FILE fields MediaRefID carries the value instead of Value.
type FormResponseInput struct {
	FieldID    string
	Value      string
	MediaRefID string
}

// AnswerInput carries the caller-supplied parts of an answer.
type AnswerInput struct {
	Content   string
	MediaIDs  []string
	Responses []FormResponseInput
}

// CreateAnswer posts an answer to a question. Only the designated
// assignee may answer. The answer row, its media links, its form
// responses, the NEW -> IN_PROGRESS advance, and the notification to the
// question's creator are all one transaction; a failure midway leaves no
// partial rows.
func (e *Engine) CreateAnswer(ctx context.Context, p *model.Principal, projectID, questionID string, in AnswerInput) (*model.Answer, error) {
	const op = "CreateAnswer"

	if _, err := e.CanAccessProject(ctx, p, projectID); err != nil {
		return nil, err
	}

	question, err := e.loadQuestion(ctx, op, projectID, questionID)
	if err != nil {
		return nil, err
	}
	if question.Status == model.StatusClosed {
		return nil, errf(KindInvalid, op, "question %s is closed", questionID)
	}
	if p.ID != question.AssigneeID {
		return nil, errf(KindForbidden, op, "user %s is not the assignee of question %s", p.ID, questionID)
	}

	if err := validateAnswerInput(op, question.Form, in); err != nil {
		return nil, err
	}
	if err := e.validateMedia(ctx, op, p, in); err != nil {
		return nil, err
	}

	answer := model.Answer{
		ID:         e.ids.NewID(),
		QuestionID: questionID,
		CreatorID:  p.ID,
		Content:    in.Content,
		CreatedAt:  e.clock.Now(),
	}

	err = e.store.InTx(ctx, func(tx *store.Tx) error {
		// The status read above is stale by now; a close that committed
		// in between must win.
		status, err := tx.QuestionStatus(questionID)
		if err != nil {
			return err
		}
		if status == model.StatusClosed {
			return errf(KindInvalid, op, "question %s is closed", questionID)
		}

		if err := tx.InsertAnswer(answer); err != nil {
			return err
		}
		if err := insertAnswerChildren(e, tx, answer.ID, in); err != nil {
			return err
		}

		// First answer advances NEW -> IN_PROGRESS. No separate
		// authorization: the actor is proven to be the assignee.
		if status == model.StatusNew {
			if err := tx.UpdateQuestionStatus(questionID, model.StatusInProgress); err != nil {
				return err
			}
		}

		return e.dispatch(tx, question.CreatorID, model.NotifAnswerPosted, questionID)
	})
	if err != nil {
		return nil, e.taggedOrInternal(op, err, "create answer on question "+questionID)
	}

	return e.hydrateAnswer(ctx, op, answer.ID)
}

// UpdateAnswer replaces an answer's content, media links, and form
// responses. Allowed for the answer's creator or anyone with manage
// privilege. The media and response sets are replaced wholesale
// (delete-all-then-insert) in the same transaction as the content
// update.
func (e *Engine) UpdateAnswer(ctx context.Context, p *model.Principal, projectID, questionID, answerID string, in AnswerInput) (*model.Answer, error) {
	const op = "UpdateAnswer"

	view, err := e.CanAccessProject(ctx, p, projectID)
	if err != nil {
		return nil, err
	}

	answer, question, err := e.loadAnswer(ctx, op, projectID, questionID, answerID)
	if err != nil {
		return nil, err
	}
	if question.Status == model.StatusClosed {
		return nil, errf(KindInvalid, op, "question %s is closed", questionID)
	}
	if p.ID != answer.CreatorID && !canManage(view, p) {
		return nil, errf(KindForbidden, op, "user %s may not modify answer %s", p.ID, answerID)
	}

	if err := validateAnswerInput(op, question.Form, in); err != nil {
		return nil, err
	}
	if err := e.validateMedia(ctx, op, p, in); err != nil {
		return nil, err
	}

	err = e.store.InTx(ctx, func(tx *store.Tx) error {
		status, err := tx.QuestionStatus(questionID)
		if err != nil {
			return err
		}
		if status == model.StatusClosed {
			return errf(KindInvalid, op, "question %s is closed", questionID)
		}

		if err := tx.UpdateAnswerContent(answerID, in.Content); err != nil {
			return err
		}
		if err := tx.DeleteFormResponses(answerID); err != nil {
			return err
		}
		if err := tx.DeleteAnswerMedia(answerID); err != nil {
			return err
		}
		return insertAnswerChildren(e, tx, answerID, in)
	})
	if err != nil {
		return nil, e.taggedOrInternal(op, err, "update answer "+answerID)
	}

	return e.hydrateAnswer(ctx, op, answerID)
}

// DeleteAnswer removes an answer and its child rows atomically. Allowed
// for the answer's creator or anyone with manage privilege; rejected on
// a closed question.
//
// Deleting the last answer of an IN_PROGRESS question reverts the
// question to NEW. This is the single backward transition in the
// workflow, kept as an explicit guarded branch here rather than folded
// into the state machine.
func (e *Engine) DeleteAnswer(ctx context.Context, p *model.Principal, projectID, questionID, answerID string) error {
	const op = "DeleteAnswer"

	view, err := e.CanAccessProject(ctx, p, projectID)
	if err != nil {
		return err
	}

	answer, question, err := e.loadAnswer(ctx, op, projectID, questionID, answerID)
	if err != nil {
		return err
	}
	if question.Status == model.StatusClosed {
		return errf(KindInvalid, op, "question %s is closed", questionID)
	}
	if p.ID != answer.CreatorID && !canManage(view, p) {
		return errf(KindForbidden, op, "user %s may not delete answer %s", p.ID, answerID)
	}

	err = e.store.InTx(ctx, func(tx *store.Tx) error {
		status, err := tx.QuestionStatus(questionID)
		if err != nil {
			return err
		}
		if status == model.StatusClosed {
			return errf(KindInvalid, op, "question %s is closed", questionID)
		}

		if err := tx.DeleteFormResponses(answerID); err != nil {
			return err
		}
		if err := tx.DeleteAnswerMedia(answerID); err != nil {
			return err
		}
		if err := tx.DeleteAnswer(answerID); err != nil {
			return err
		}

		remaining, err := tx.CountAnswers(questionID)
		if err != nil {
			return err
		}
		if remaining == 0 && status == model.StatusInProgress {
			return tx.UpdateQuestionStatus(questionID, model.StatusNew)
		}
		return nil
	})
	if err != nil {
		return e.taggedOrInternal(op, err, "delete answer "+answerID)
	}
	return nil
}

// validateAnswerInput checks content and form responses against the
// question's answer form. Pure validation, no side effects.
func validateAnswerInput(op string, form *model.AnswerForm, in AnswerInput) error {
	if form == nil {
		if in.Content == "" {
			return errf(KindInvalid, op, "answer content must not be empty")
		}
		if len(in.Responses) > 0 {
			return errf(KindBadRequest, op, "question has no answer form")
		}
		return nil
	}

	fields := make(map[string]model.FormField, len(form.Fields))
	for _, f := range form.Fields {
		fields[f.ID] = f
	}

	answered := make(map[string]FormResponseInput, len(in.Responses))
	for _, r := range in.Responses {
		field, ok := fields[r.FieldID]
		if !ok {
			return errf(KindBadRequest, op, "response references field %s which is not on this form", r.FieldID)
		}
		if _, dup := answered[r.FieldID]; dup {
			return errf(KindInvalid, op, "duplicate response for field %s", r.FieldID)
		}
		if field.Type == model.FieldChoice && r.Value != "" && !containsOption(field.Options, r.Value) {
			return errf(KindInvalid, op, "value %q is not an option of field %s", r.Value, r.FieldID)
		}
		answered[r.FieldID] = r
	}

	for _, f := range form.Fields {
		if !f.IsRequired {
			continue
		}
		r, ok := answered[f.ID]
		if !ok {
			return errf(KindInvalid, op, "required field %s has no response", f.ID)
		}
		if f.Type == model.FieldFile {
			if r.MediaRefID == "" {
				return errf(KindInvalid, op, "required file field %s has no media", f.ID)
			}
		} else if r.Value == "" {
			return errf(KindInvalid, op, "required field %s has an empty value", f.ID)
		}
	}

	return nil
}

// validateMedia checks that every referenced media ID - direct
// attachments and file-field responses alike - exists and is owned by
// the principal. This is what keeps one user from attaching another
// user's private upload.
func (e *Engine) validateMedia(ctx context.Context, op string, p *model.Principal, in AnswerInput) error {
	ids := make([]string, 0, len(in.MediaIDs)+len(in.Responses))
	ids = append(ids, in.MediaIDs...)
	for _, r := range in.Responses {
		if r.MediaRefID != "" {
			ids = append(ids, r.MediaRefID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	owned, err := e.store.OwnedMedia(ctx, ids, p.ID)
	if err != nil {
		e.log.Error("media ownership check failed", "op", op, "user_id", p.ID, "error", err)
		return internalf(op, err, "check media ownership")
	}
	for _, id := range ids {
		if !owned[id] {
			return errf(KindForbidden, op, "media %s does not exist or is not owned by user %s", id, p.ID)
		}
	}
	return nil
}

// insertAnswerChildren inserts the media links and form responses of an
// answer. Must run inside the answer's transaction.
func insertAnswerChildren(e *Engine, tx *store.Tx, answerID string, in AnswerInput) error {
	for i, mediaID := range in.MediaIDs {
		if err := tx.InsertAnswerMedia(answerID, mediaID, i); err != nil {
			return err
		}
	}
	for _, r := range in.Responses {
		if err := tx.InsertFormResponse(model.FormResponse{
			ID:         e.ids.NewID(),
			AnswerID:   answerID,
			FieldID:    r.FieldID,
			Value:      r.Value,
			MediaRefID: r.MediaRefID,
		}); err != nil {
			return err
		}
	}
	return nil
}

// loadAnswer loads an answer and its question, verifying the
// answer/question/project triple is consistent.
func (e *Engine) loadAnswer(ctx context.Context, op, projectID, questionID, answerID string) (*model.Answer, *model.Question, error) {
	answer, err := e.store.GetAnswer(ctx, answerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, errf(KindNotFound, op, "answer %s not found", answerID)
	}
	if err != nil {
		e.log.Error("answer load failed", "op", op, "answer_id", answerID, "error", err)
		return nil, nil, internalf(op, err, "load answer %s", answerID)
	}
	if answer.QuestionID != questionID {
		return nil, nil, errf(KindBadRequest, op, "answer %s does not belong to question %s", answerID, questionID)
	}

	question, err := e.loadQuestion(ctx, op, projectID, questionID)
	if err != nil {
		return nil, nil, err
	}
	return answer, question, nil
}

// hydrateAnswer returns the fully-loaded answer after a mutation has
// committed.
func (e *Engine) hydrateAnswer(ctx context.Context, op, answerID string) (*model.Answer, error) {
	answer, err := e.store.GetAnswer(ctx, answerID)
	if err != nil {
		e.log.Error("answer reload failed", "op", op, "answer_id", answerID, "error", err)
		return nil, internalf(op, err, "reload answer %s", answerID)
	}
	return answer, nil
}

// taggedOrInternal passes engine-tagged errors through unchanged and
// wraps raw store failures as Internal, logging them with context.
func (e *Engine) taggedOrInternal(op string, err error, msg string) error {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged
	}
	e.log.Error("transaction failed", "op", op, "error", err)
	return internalf(op, err, "%s", msg)
}

func containsOption(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}
