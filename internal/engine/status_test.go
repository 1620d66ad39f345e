package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/askflow/internal/model"
)

func TestSetStatus_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject()
	question := f.seedQuestion(project.ID, QuestionInput{})
	f.seedAnswer(project.ID, question.ID, "fixed")

	// CreateAnswer already moved the question to IN_PROGRESS.
	q, err := f.eng.SetStatus(f.ctx, bo, project.ID, question.ID, model.StatusPendingApproval)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingApproval, q.Status)

	q, err = f.eng.SetStatus(f.ctx, ana, project.ID, question.ID, model.StatusClosed)
	require.NoError(t, err)
	assert.Equal(t, model.StatusClosed, q.Status)

	loaded, err := f.st.GetQuestion(f.ctx, question.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusClosed, loaded.Status)
}

func TestSetStatus_Notifications(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject()
	question := f.seedQuestion(project.ID, QuestionInput{})
	f.seedAnswer(project.ID, question.ID, "fixed")

	_, err := f.eng.SetStatus(f.ctx, bo, project.ID, question.ID, model.StatusPendingApproval)
	require.NoError(t, err)

	// Pending approval notifies the creator.
	list := f.notifications(ana.ID)
	require.Len(t, list, 2)
	assert.Equal(t, model.NotifAnswerPosted, list[0].Type)
	assert.Equal(t, model.NotifPendingApproval, list[1].Type)

	_, err = f.eng.SetStatus(f.ctx, ana, project.ID, question.ID, model.StatusClosed)
	require.NoError(t, err)

	// Closing notifies the assignee.
	list = f.notifications(bo.ID)
	require.Len(t, list, 2)
	assert.Equal(t, model.NotifQuestionAssigned, list[0].Type)
	assert.Equal(t, model.NotifQuestionClosed, list[1].Type)
}

func TestSetStatus_InProgressNotifiesNobody(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject()
	question := f.seedQuestion(project.ID, QuestionInput{})

	_, err := f.eng.SetStatus(f.ctx, bo, project.ID, question.ID, model.StatusInProgress)
	require.NoError(t, err)

	assert.Len(t, f.notifications(ana.ID), 0)
	assert.Len(t, f.notifications(bo.ID), 1) // the assignment only
}

func TestSetStatus_InvalidTargets(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject()
	question := f.seedQuestion(project.ID, QuestionInput{})

	// NEW is never an explicit target, not even for managers.
	_, err := f.eng.SetStatus(f.ctx, ana, project.ID, question.ID, model.StatusNew)
	assert.Equal(t, KindInvalid, KindOf(err))

	_, err = f.eng.SetStatus(f.ctx, ana, project.ID, question.ID, "ARCHIVED")
	assert.Equal(t, KindInvalid, KindOf(err))
}

func TestSetStatus_ClosedIsTerminal(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject()
	question := f.seedQuestion(project.ID, QuestionInput{})
	f.seedAnswer(project.ID, question.ID, "fixed")
	_, err := f.eng.SetStatus(f.ctx, ana, project.ID, question.ID, model.StatusClosed)
	require.NoError(t, err)

	for _, target := range []model.Status{model.StatusInProgress, model.StatusPendingApproval, model.StatusClosed} {
		_, err := f.eng.SetStatus(f.ctx, ana, project.ID, question.ID, target)
		assert.Equal(t, KindInvalid, KindOf(err), "target %s", target)
	}
}

func TestSetStatus_AnswerGateBeforeActorGate(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject()
	question := f.seedQuestion(project.ID, QuestionInput{})

	// With zero answers, every caller gets Invalid for PENDING_APPROVAL
	// and CLOSED, including callers who would also fail the actor gate.
	for _, target := range []model.Status{model.StatusPendingApproval, model.StatusClosed} {
		for _, p := range []*model.Principal{ana, mia, bo} {
			_, err := f.eng.SetStatus(f.ctx, p, project.ID, question.ID, target)
			assert.Equal(t, KindInvalid, KindOf(err), "target %s principal %s", target, p.ID)
		}
	}
}

func TestSetStatus_ActorGates(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject()
	_, err := f.eng.AddMember(f.ctx, ana, project.ID, zed.ID, model.RoleMember)
	require.NoError(t, err)

	// zed is now a plain member with no role on the question.
	question := f.seedQuestion(project.ID, QuestionInput{})
	f.seedAnswer(project.ID, question.ID, "fixed")

	_, err = f.eng.SetStatus(f.ctx, zed, project.ID, question.ID, model.StatusPendingApproval)
	assert.Equal(t, KindForbidden, KindOf(err))

	// The assignee may submit for approval but not close.
	_, err = f.eng.SetStatus(f.ctx, bo, project.ID, question.ID, model.StatusPendingApproval)
	require.NoError(t, err)
	_, err = f.eng.SetStatus(f.ctx, bo, project.ID, question.ID, model.StatusClosed)
	assert.Equal(t, KindForbidden, KindOf(err))

	// A manager closes on the creator's behalf.
	_, err = f.eng.SetStatus(f.ctx, mia, project.ID, question.ID, model.StatusClosed)
	require.NoError(t, err)
}

func TestSetStatus_AdminMayDriveAnyTransition(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject()
	question := f.seedQuestion(project.ID, QuestionInput{})
	f.seedAnswer(project.ID, question.ID, "fixed")

	_, err := f.eng.SetStatus(f.ctx, root, project.ID, question.ID, model.StatusPendingApproval)
	require.NoError(t, err)
	_, err = f.eng.SetStatus(f.ctx, root, project.ID, question.ID, model.StatusClosed)
	require.NoError(t, err)
}

func TestSetStatus_AccessGates(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject()
	question := f.seedQuestion(project.ID, QuestionInput{})

	_, err := f.eng.SetStatus(f.ctx, nil, project.ID, question.ID, model.StatusInProgress)
	assert.Equal(t, KindUnauthenticated, KindOf(err))

	_, err = f.eng.SetStatus(f.ctx, zed, project.ID, question.ID, model.StatusInProgress)
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = f.eng.SetStatus(f.ctx, bo, project.ID, "q-ghost", model.StatusInProgress)
	assert.Equal(t, KindNotFound, KindOf(err))

	other, err := f.eng.CreateProject(f.ctx, ana, "Other")
	require.NoError(t, err)
	_, err = f.eng.SetStatus(f.ctx, ana, other.ID, question.ID, model.StatusInProgress)
	assert.Equal(t, KindBadRequest, KindOf(err))
}
