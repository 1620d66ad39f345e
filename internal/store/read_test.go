package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roach88/askflow/internal/model"
)

// seedQuestion inserts a project and a question with the given deadline
// and status.
func seedQuestion(t *testing.T, s *Store, id string, status model.Status, deadline *time.Time) {
	t.Helper()
	ctx := context.Background()
	err := s.InTx(ctx, func(tx *Tx) error {
		if err := tx.InsertProject(model.Project{ID: "p-" + id, Name: "P", CreatorID: "u-creator"}); err != nil {
			return err
		}
		return tx.InsertQuestion(model.Question{
			ID: id, ProjectID: "p-" + id, CreatorID: "u-creator", AssigneeID: "u-assignee",
			Title: "title " + id, Status: status, Deadline: deadline,
			CreatedAt: time.Unix(1700000000, 0),
		})
	})
	if err != nil {
		t.Fatalf("seed question %s: %v", id, err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetUser(context.Background(), "u-ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetProject_WithMemberships(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx *Tx) error {
		if err := tx.InsertProject(model.Project{ID: "p-1", Name: "Support", CreatorID: "u-ana"}); err != nil {
			return err
		}
		for _, m := range []model.Membership{
			{ProjectID: "p-1", UserID: "u-zed", Role: model.RoleMember},
			{ProjectID: "p-1", UserID: "u-bo", Role: model.RoleManager},
		} {
			if _, err := tx.InsertMembership(m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	p, err := s.GetProject(ctx, "p-1")
	if err != nil {
		t.Fatalf("GetProject() failed: %v", err)
	}
	if p.Name != "Support" || p.CreatorID != "u-ana" {
		t.Errorf("unexpected project row: %+v", p)
	}
	if len(p.Members) != 2 {
		t.Fatalf("expected 2 memberships, got %d", len(p.Members))
	}
	// Deterministic member order by user id.
	if p.Members[0].UserID != "u-bo" || p.Members[1].UserID != "u-zed" {
		t.Errorf("memberships not ordered by user id: %+v", p.Members)
	}
}

func TestGetQuestion_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	deadline := time.Unix(1700003600, 0).UTC()
	seedQuestion(t, s, "q-1", model.StatusNew, &deadline)

	q, err := s.GetQuestion(ctx, "q-1")
	if err != nil {
		t.Fatalf("GetQuestion() failed: %v", err)
	}
	if q.Status != model.StatusNew {
		t.Errorf("status = %s, expected NEW", q.Status)
	}
	if q.Deadline == nil || !q.Deadline.Equal(deadline) {
		t.Errorf("deadline = %v, expected %v", q.Deadline, deadline)
	}
	if q.Form != nil {
		t.Errorf("expected no form, got %+v", q.Form)
	}
	if !q.CreatedAt.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("created_at = %v", q.CreatedAt)
	}
}

func TestGetQuestion_NilDeadline(t *testing.T) {
	s := newTestStore(t)

	seedQuestion(t, s, "q-1", model.StatusNew, nil)

	q, err := s.GetQuestion(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("GetQuestion() failed: %v", err)
	}
	if q.Deadline != nil {
		t.Errorf("expected nil deadline, got %v", q.Deadline)
	}
}

func TestGetQuestion_EagerLoadsForm(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedQuestion(t, s, "q-1", model.StatusNew, nil)
	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.InsertForm(model.AnswerForm{
			ID: "f-1", QuestionID: "q-1",
			Fields: []model.FormField{
				{ID: "ff-2", FormID: "f-1", Label: "severity", Type: model.FieldChoice, IsRequired: true, Options: []string{"low", "high"}, Ord: 1},
				{ID: "ff-1", FormID: "f-1", Label: "summary", Type: model.FieldText, IsRequired: true, Ord: 0},
			},
		})
	})
	if err != nil {
		t.Fatalf("seed form: %v", err)
	}

	q, err := s.GetQuestion(ctx, "q-1")
	if err != nil {
		t.Fatalf("GetQuestion() failed: %v", err)
	}
	if q.Form == nil {
		t.Fatal("expected form to be loaded")
	}
	if len(q.Form.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(q.Form.Fields))
	}
	// Fields come back in ord order regardless of insert order.
	if q.Form.Fields[0].Label != "summary" || q.Form.Fields[1].Label != "severity" {
		t.Errorf("fields not ordered by ord: %+v", q.Form.Fields)
	}
	if len(q.Form.Fields[1].Options) != 2 {
		t.Errorf("choice options not round-tripped: %+v", q.Form.Fields[1].Options)
	}
}

func TestGetAnswer_EagerLoadsChildren(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedQuestion(t, s, "q-1", model.StatusInProgress, nil)
	if err := s.PutMedia(ctx, model.MediaRef{ID: "m-1", OwnerID: "u-assignee", Name: "log.txt"}); err != nil {
		t.Fatalf("put media: %v", err)
	}
	err := s.InTx(ctx, func(tx *Tx) error {
		if err := tx.InsertForm(model.AnswerForm{
			ID: "f-1", QuestionID: "q-1",
			Fields: []model.FormField{{ID: "ff-1", FormID: "f-1", Label: "summary", Type: model.FieldText, Ord: 0}},
		}); err != nil {
			return err
		}
		if err := tx.InsertAnswer(model.Answer{
			ID: "a-1", QuestionID: "q-1", CreatorID: "u-assignee",
			Content: "fixed", CreatedAt: time.Unix(1700000100, 0),
		}); err != nil {
			return err
		}
		if err := tx.InsertAnswerMedia("a-1", "m-1", 0); err != nil {
			return err
		}
		return tx.InsertFormResponse(model.FormResponse{
			ID: "fr-1", AnswerID: "a-1", FieldID: "ff-1", Value: "replaced the disk",
		})
	})
	if err != nil {
		t.Fatalf("seed answer: %v", err)
	}

	a, err := s.GetAnswer(ctx, "a-1")
	if err != nil {
		t.Fatalf("GetAnswer() failed: %v", err)
	}
	if a.Content != "fixed" {
		t.Errorf("content = %q", a.Content)
	}
	if len(a.Media) != 1 || a.Media[0].ID != "m-1" {
		t.Errorf("media not loaded: %+v", a.Media)
	}
	if len(a.Responses) != 1 || a.Responses[0].Value != "replaced the disk" {
		t.Errorf("responses not loaded: %+v", a.Responses)
	}
	if a.Responses[0].MediaRefID != "" {
		t.Errorf("expected empty media ref, got %q", a.Responses[0].MediaRefID)
	}
}

func TestOwnedMedia(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, m := range []model.MediaRef{
		{ID: "m-1", OwnerID: "u-bo", Name: "a.txt"},
		{ID: "m-2", OwnerID: "u-bo", Name: "b.txt"},
		{ID: "m-3", OwnerID: "u-ana", Name: "c.txt"},
	} {
		if err := s.PutMedia(ctx, m); err != nil {
			t.Fatalf("put media: %v", err)
		}
	}

	owned, err := s.OwnedMedia(ctx, []string{"m-1", "m-2", "m-3", "m-missing"}, "u-bo")
	if err != nil {
		t.Fatalf("OwnedMedia() failed: %v", err)
	}
	if !owned["m-1"] || !owned["m-2"] {
		t.Errorf("u-bo's own media missing from result: %v", owned)
	}
	if owned["m-3"] {
		t.Error("foreign media reported as owned")
	}
	if owned["m-missing"] {
		t.Error("nonexistent media reported as owned")
	}
}

func TestOwnedMedia_EmptyInput(t *testing.T) {
	s := newTestStore(t)

	owned, err := s.OwnedMedia(context.Background(), nil, "u-bo")
	if err != nil {
		t.Fatalf("OwnedMedia() failed: %v", err)
	}
	if len(owned) != 0 {
		t.Errorf("expected empty map, got %v", owned)
	}
}

func TestListOverdueQuestions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Unix(1700010000, 0).UTC()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	seedQuestion(t, s, "q-overdue", model.StatusNew, &past)
	seedQuestion(t, s, "q-overdue-2", model.StatusInProgress, &past)
	seedQuestion(t, s, "q-future", model.StatusNew, &future)
	seedQuestion(t, s, "q-no-deadline", model.StatusNew, nil)
	seedQuestion(t, s, "q-closed", model.StatusClosed, &past)
	seedQuestion(t, s, "q-pending", model.StatusPendingApproval, &past)

	// Already-notified questions are excluded.
	seedQuestion(t, s, "q-notified", model.StatusNew, &past)
	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.SetDeadlineNotified("q-notified")
	})
	if err != nil {
		t.Fatalf("set notified: %v", err)
	}

	overdue, err := s.ListOverdueQuestions(ctx, now)
	if err != nil {
		t.Fatalf("ListOverdueQuestions() failed: %v", err)
	}
	if len(overdue) != 2 {
		t.Fatalf("expected 2 overdue questions, got %d: %+v", len(overdue), overdue)
	}
	if overdue[0].ID != "q-overdue" || overdue[1].ID != "q-overdue-2" {
		t.Errorf("unexpected overdue set: %s, %s", overdue[0].ID, overdue[1].ID)
	}
}

func TestListOverdueQuestions_EmptyNotNil(t *testing.T) {
	s := newTestStore(t)

	overdue, err := s.ListOverdueQuestions(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ListOverdueQuestions() failed: %v", err)
	}
	if overdue == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestListNotifications_Ordering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx *Tx) error {
		for _, n := range []model.Notification{
			{ID: "n-2", UserID: "u-bo", Type: model.NotifAnswerPosted, RelatedID: "q-1", CreatedAt: time.Unix(200, 0)},
			{ID: "n-1", UserID: "u-bo", Type: model.NotifQuestionAssigned, RelatedID: "q-1", CreatedAt: time.Unix(100, 0)},
			{ID: "n-3", UserID: "u-other", Type: model.NotifQuestionClosed, RelatedID: "q-2", CreatedAt: time.Unix(50, 0)},
		} {
			if err := tx.InsertNotification(n); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed notifications: %v", err)
	}

	list, err := s.ListNotifications(ctx, "u-bo")
	if err != nil {
		t.Fatalf("ListNotifications() failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(list))
	}
	if list[0].ID != "n-1" || list[1].ID != "n-2" {
		t.Errorf("notifications not ordered oldest first: %s, %s", list[0].ID, list[1].ID)
	}
}

func TestListNotifications_EmptyNotNil(t *testing.T) {
	s := newTestStore(t)

	list, err := s.ListNotifications(context.Background(), "u-ghost")
	if err != nil {
		t.Fatalf("ListNotifications() failed: %v", err)
	}
	if list == nil {
		t.Error("expected empty slice, got nil")
	}
}
