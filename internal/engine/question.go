package engine

import (
	"context"
	"errors"
	"time"

	"github.com/roach88/askflow/internal/model"
	"github.com/roach88/askflow/internal/store"
)

// QuestionInput carries the caller-supplied fields of a new question.
type QuestionInput struct {
	Title      string
	Body       string
	Priority   int
	AssigneeID string
	Deadline   *time.Time
}

// FormFieldInput describes one field of an answer form to attach.
type FormFieldInput struct {
	Label      string
	Type       model.FieldType
	IsRequired bool
	Options    []string
}

// CreateQuestion creates a question in status NEW and notifies the
// assignee. The assignee must already hold a membership in the project.
func (e *Engine) CreateQuestion(ctx context.Context, p *model.Principal, projectID string, in QuestionInput) (*model.Question, error) {
	const op = "CreateQuestion"

	view, err := e.CanAccessProject(ctx, p, projectID)
	if err != nil {
		return nil, err
	}

	if in.Title == "" {
		return nil, errf(KindInvalid, op, "question title must not be empty")
	}

	assigneeIsMember := false
	for _, m := range view.Project.Members {
		if m.UserID == in.AssigneeID {
			assigneeIsMember = true
			break
		}
	}
	if !assigneeIsMember {
		return nil, errf(KindInvalid, op, "assignee %s is not a member of project %s", in.AssigneeID, projectID)
	}

	question := model.Question{
		ID:         e.ids.NewID(),
		ProjectID:  projectID,
		CreatorID:  p.ID,
		AssigneeID: in.AssigneeID,
		Title:      in.Title,
		Body:       in.Body,
		Priority:   in.Priority,
		Status:     model.StatusNew,
		Deadline:   in.Deadline,
		CreatedAt:  e.clock.Now(),
	}

	err = e.store.InTx(ctx, func(tx *store.Tx) error {
		if err := tx.InsertQuestion(question); err != nil {
			return err
		}
		return e.dispatch(tx, question.AssigneeID, model.NotifQuestionAssigned, question.ID)
	})
	if err != nil {
		e.log.Error("question insert failed", "op", op, "project_id", projectID, "question_id", question.ID, "error", err)
		return nil, internalf(op, err, "insert question %s", question.ID)
	}

	return &question, nil
}

// AttachForm attaches (or replaces) the structured answer form of a
// question. Requires manage access. Rejected once the question has any
// answer: a form is immutable as soon as a response exists against it.
func (e *Engine) AttachForm(ctx context.Context, p *model.Principal, projectID, questionID string, fields []FormFieldInput) (*model.AnswerForm, error) {
	const op = "AttachForm"

	if _, err := e.CanManageProject(ctx, p, projectID); err != nil {
		return nil, err
	}

	question, err := e.loadQuestion(ctx, op, projectID, questionID)
	if err != nil {
		return nil, err
	}
	if question.Status == model.StatusClosed {
		return nil, errf(KindInvalid, op, "question %s is closed", questionID)
	}

	if len(fields) == 0 {
		return nil, errf(KindInvalid, op, "form must have at least one field")
	}
	for i, f := range fields {
		if f.Label == "" {
			return nil, errf(KindInvalid, op, "field %d: label must not be empty", i)
		}
		if !f.Type.Valid() {
			return nil, errf(KindInvalid, op, "field %d: unknown field type %q", i, f.Type)
		}
		if f.Type == model.FieldChoice && len(f.Options) == 0 {
			return nil, errf(KindInvalid, op, "field %d: choice field needs options", i)
		}
	}

	form := model.AnswerForm{
		ID:         e.ids.NewID(),
		QuestionID: questionID,
	}
	for i, f := range fields {
		form.Fields = append(form.Fields, model.FormField{
			ID:         e.ids.NewID(),
			FormID:     form.ID,
			Label:      f.Label,
			Type:       f.Type,
			IsRequired: f.IsRequired,
			Options:    f.Options,
			Ord:        i,
		})
	}

	err = e.store.InTx(ctx, func(tx *store.Tx) error {
		// Immutability is re-checked under the transaction: an answer
		// committed between validation and here must win.
		count, err := tx.CountAnswers(questionID)
		if err != nil {
			return err
		}
		if count > 0 {
			return errf(KindInvalid, op, "question %s already has answers, form is frozen", questionID)
		}
		if err := tx.DeleteFormForQuestion(questionID); err != nil {
			return err
		}
		return tx.InsertForm(form)
	})
	if err != nil {
		return nil, e.taggedOrInternal(op, err, "attach form to question "+questionID)
	}

	return &form, nil
}

// GetQuestion returns a question with its form eager-loaded. Read
// access to the project is required; the usual NotFound/BadRequest
// checks apply.
func (e *Engine) GetQuestion(ctx context.Context, p *model.Principal, projectID, questionID string) (*model.Question, error) {
	const op = "GetQuestion"

	if _, err := e.CanAccessProject(ctx, p, projectID); err != nil {
		return nil, err
	}
	return e.loadQuestion(ctx, op, projectID, questionID)
}

// loadQuestion loads a question and verifies it belongs to the resolved
// project, defending against mismatched path parameters.
func (e *Engine) loadQuestion(ctx context.Context, op, projectID, questionID string) (*model.Question, error) {
	question, err := e.store.GetQuestion(ctx, questionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errf(KindNotFound, op, "question %s not found", questionID)
	}
	if err != nil {
		e.log.Error("question load failed", "op", op, "question_id", questionID, "error", err)
		return nil, internalf(op, err, "load question %s", questionID)
	}
	if question.ProjectID != projectID {
		return nil, errf(KindBadRequest, op, "question %s does not belong to project %s", questionID, projectID)
	}
	return question, nil
}
