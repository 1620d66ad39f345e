package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/askflow/internal/model"
)

func TestCreateQuestion(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject()

	deadline := f.clock.Now().Add(24 * time.Hour)
	question, err := f.eng.CreateQuestion(f.ctx, ana, project.ID, QuestionInput{
		Title: "Printer down", Body: "3rd floor", Priority: 2,
		AssigneeID: bo.ID, Deadline: &deadline,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusNew, question.Status)
	assert.Equal(t, ana.ID, question.CreatorID)

	loaded, err := f.st.GetQuestion(f.ctx, question.ID)
	require.NoError(t, err)
	assert.Equal(t, "3rd floor", loaded.Body)
	assert.Equal(t, 2, loaded.Priority)
	require.NotNil(t, loaded.Deadline)
	assert.True(t, loaded.Deadline.Equal(deadline))
	assert.False(t, loaded.IsDeadlineNotified)
}

func TestCreateQuestion_NotifiesAssignee(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject()

	question := f.seedQuestion(project.ID, QuestionInput{})

	list := f.notifications(bo.ID)
	require.Len(t, list, 1)
	assert.Equal(t, model.NotifQuestionAssigned, list[0].Type)
	assert.Equal(t, question.ID, list[0].RelatedID)
	assert.False(t, list[0].IsRead)
}

func TestCreateQuestion_MemberMayCreate(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject()

	_, err := f.eng.CreateQuestion(f.ctx, bo, project.ID, QuestionInput{Title: "t", AssigneeID: bo.ID})
	require.NoError(t, err)
}

func TestCreateQuestion_Rejections(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject()

	_, err := f.eng.CreateQuestion(f.ctx, zed, project.ID, QuestionInput{Title: "t", AssigneeID: bo.ID})
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = f.eng.CreateQuestion(f.ctx, ana, project.ID, QuestionInput{AssigneeID: bo.ID})
	assert.Equal(t, KindInvalid, KindOf(err))

	// The assignee must hold a membership; the creator's implicit
	// privilege does not make them assignable.
	_, err = f.eng.CreateQuestion(f.ctx, ana, project.ID, QuestionInput{Title: "t", AssigneeID: ana.ID})
	assert.Equal(t, KindInvalid, KindOf(err))

	_, err = f.eng.CreateQuestion(f.ctx, ana, project.ID, QuestionInput{Title: "t", AssigneeID: "u-ghost"})
	assert.Equal(t, KindInvalid, KindOf(err))
}

func TestGetQuestion(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject()
	question := f.seedQuestion(project.ID, QuestionInput{})

	loaded, err := f.eng.GetQuestion(f.ctx, bo, project.ID, question.ID)
	require.NoError(t, err)
	assert.Equal(t, question.ID, loaded.ID)

	_, err = f.eng.GetQuestion(f.ctx, zed, project.ID, question.ID)
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = f.eng.GetQuestion(f.ctx, bo, project.ID, "q-ghost")
	assert.Equal(t, KindNotFound, KindOf(err))

	// A question fetched through the wrong project is a path mismatch.
	other, err := f.eng.CreateProject(f.ctx, ana, "Other")
	require.NoError(t, err)
	_, err = f.eng.GetQuestion(f.ctx, ana, other.ID, question.ID)
	assert.Equal(t, KindBadRequest, KindOf(err))
}

func TestAttachForm(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject()
	question := f.seedQuestion(project.ID, QuestionInput{})

	form, err := f.eng.AttachForm(f.ctx, mia, project.ID, question.ID, []FormFieldInput{
		{Label: "summary", Type: model.FieldText, IsRequired: true},
		{Label: "severity", Type: model.FieldChoice, IsRequired: true, Options: []string{"low", "high"}},
	})
	require.NoError(t, err)
	require.Len(t, form.Fields, 2)

	loaded, err := f.st.GetQuestion(f.ctx, question.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Form)
	assert.Equal(t, form.ID, loaded.Form.ID)
	assert.Equal(t, "summary", loaded.Form.Fields[0].Label)
	assert.Equal(t, 0, loaded.Form.Fields[0].Ord)
	assert.Equal(t, 1, loaded.Form.Fields[1].Ord)
}

func TestAttachForm_ReplacesExisting(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject()
	question := f.seedQuestion(project.ID, QuestionInput{})

	_, err := f.eng.AttachForm(f.ctx, ana, project.ID, question.ID, []FormFieldInput{
		{Label: "old", Type: model.FieldText},
	})
	require.NoError(t, err)

	form, err := f.eng.AttachForm(f.ctx, ana, project.ID, question.ID, []FormFieldInput{
		{Label: "new", Type: model.FieldNumber},
	})
	require.NoError(t, err)

	loaded, err := f.st.GetQuestion(f.ctx, question.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Form)
	assert.Equal(t, form.ID, loaded.Form.ID)
	require.Len(t, loaded.Form.Fields, 1)
	assert.Equal(t, "new", loaded.Form.Fields[0].Label)
}

func TestAttachForm_Rejections(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject()
	question := f.seedQuestion(project.ID, QuestionInput{})

	// Manage access required; plain members cannot attach forms.
	_, err := f.eng.AttachForm(f.ctx, bo, project.ID, question.ID, []FormFieldInput{
		{Label: "summary", Type: model.FieldText},
	})
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = f.eng.AttachForm(f.ctx, ana, project.ID, question.ID, nil)
	assert.Equal(t, KindInvalid, KindOf(err))

	_, err = f.eng.AttachForm(f.ctx, ana, project.ID, question.ID, []FormFieldInput{
		{Label: "", Type: model.FieldText},
	})
	assert.Equal(t, KindInvalid, KindOf(err))

	_, err = f.eng.AttachForm(f.ctx, ana, project.ID, question.ID, []FormFieldInput{
		{Label: "x", Type: "DATE"},
	})
	assert.Equal(t, KindInvalid, KindOf(err))

	// A CHOICE field with no options can never be answered.
	_, err = f.eng.AttachForm(f.ctx, ana, project.ID, question.ID, []FormFieldInput{
		{Label: "severity", Type: model.FieldChoice},
	})
	assert.Equal(t, KindInvalid, KindOf(err))
}

func TestAttachForm_FrozenOnceAnswered(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject()
	question := f.seedQuestion(project.ID, QuestionInput{})
	f.seedAnswer(project.ID, question.ID, "done")

	_, err := f.eng.AttachForm(f.ctx, ana, project.ID, question.ID, []FormFieldInput{
		{Label: "summary", Type: model.FieldText},
	})
	assert.Equal(t, KindInvalid, KindOf(err))
}
