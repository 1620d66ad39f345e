package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roach88/askflow/internal/model"
)

func TestPutUser_Upsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.PutUser(ctx, model.User{ID: "u-1", Name: "Ana"}); err != nil {
		t.Fatalf("PutUser() failed: %v", err)
	}
	if err := s.PutUser(ctx, model.User{ID: "u-1", Name: "Ana Renamed"}); err != nil {
		t.Fatalf("second PutUser() failed: %v", err)
	}

	u, err := s.GetUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("GetUser() failed: %v", err)
	}
	if u.Name != "Ana Renamed" {
		t.Errorf("name = %q, expected upserted value", u.Name)
	}
}

func TestInsertMembership_DuplicateNotInserted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.InsertProject(model.Project{ID: "p-1", Name: "P", CreatorID: "u-1"})
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}

	m := model.Membership{ProjectID: "p-1", UserID: "u-2", Role: model.RoleMember}
	err = s.InTx(ctx, func(tx *Tx) error {
		inserted, err := tx.InsertMembership(m)
		if err != nil {
			return err
		}
		if !inserted {
			t.Error("first insert reported not inserted")
		}

		inserted, err = tx.InsertMembership(m)
		if err != nil {
			return err
		}
		if inserted {
			t.Error("duplicate insert reported inserted")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InTx() failed: %v", err)
	}
}

func TestDeleteFormForQuestion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedQuestion(t, s, "q-1", model.StatusNew, nil)
	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.InsertForm(model.AnswerForm{
			ID: "f-1", QuestionID: "q-1",
			Fields: []model.FormField{{ID: "ff-1", FormID: "f-1", Label: "summary", Type: model.FieldText, Ord: 0}},
		})
	})
	if err != nil {
		t.Fatalf("seed form: %v", err)
	}

	err = s.InTx(ctx, func(tx *Tx) error {
		return tx.DeleteFormForQuestion("q-1")
	})
	if err != nil {
		t.Fatalf("DeleteFormForQuestion() failed: %v", err)
	}

	q, err := s.GetQuestion(ctx, "q-1")
	if err != nil {
		t.Fatalf("GetQuestion() failed: %v", err)
	}
	if q.Form != nil {
		t.Errorf("form still present after delete: %+v", q.Form)
	}

	var fields int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM form_fields").Scan(&fields); err != nil {
		t.Fatalf("count fields: %v", err)
	}
	if fields != 0 {
		t.Errorf("expected orphaned fields removed, found %d", fields)
	}

	// Deleting a form that does not exist is a no-op.
	err = s.InTx(ctx, func(tx *Tx) error {
		return tx.DeleteFormForQuestion("q-1")
	})
	if err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.InsertNotification(model.Notification{
			ID: "n-1", UserID: "u-1", Type: model.NotifAnswerPosted,
			RelatedID: "q-1", CreatedAt: time.Unix(100, 0),
		})
	})
	if err != nil {
		t.Fatalf("seed notification: %v", err)
	}

	if err := s.MarkNotificationRead(ctx, "n-1"); err != nil {
		t.Fatalf("MarkNotificationRead() failed: %v", err)
	}

	n, err := s.GetNotification(ctx, "n-1")
	if err != nil {
		t.Fatalf("GetNotification() failed: %v", err)
	}
	if !n.IsRead {
		t.Error("notification not marked read")
	}
}

func TestMarkNotificationRead_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.MarkNotificationRead(context.Background(), "n-ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQuestionStatus_InTx(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedQuestion(t, s, "q-1", model.StatusInProgress, nil)

	err := s.InTx(ctx, func(tx *Tx) error {
		status, err := tx.QuestionStatus("q-1")
		if err != nil {
			return err
		}
		if status != model.StatusInProgress {
			t.Errorf("status = %s, expected IN_PROGRESS", status)
		}

		if _, err := tx.QuestionStatus("q-ghost"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing question, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InTx() failed: %v", err)
	}
}

func TestSetDeadlineNotified_VisibleToInTxReRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	deadline := time.Unix(100, 0)
	seedQuestion(t, s, "q-1", model.StatusNew, &deadline)

	err := s.InTx(ctx, func(tx *Tx) error {
		notified, err := tx.DeadlineNotified("q-1")
		if err != nil {
			return err
		}
		if notified {
			t.Error("fresh question reported notified")
		}
		return tx.SetDeadlineNotified("q-1")
	})
	if err != nil {
		t.Fatalf("InTx() failed: %v", err)
	}

	err = s.InTx(ctx, func(tx *Tx) error {
		notified, err := tx.DeadlineNotified("q-1")
		if err != nil {
			return err
		}
		if !notified {
			t.Error("flag not visible after commit")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("second InTx() failed: %v", err)
	}
}

func TestDeleteAnswer_ChildrenFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedQuestion(t, s, "q-1", model.StatusInProgress, nil)
	if err := s.PutMedia(ctx, model.MediaRef{ID: "m-1", OwnerID: "u-assignee", Name: "x"}); err != nil {
		t.Fatalf("put media: %v", err)
	}
	err := s.InTx(ctx, func(tx *Tx) error {
		if err := tx.InsertForm(model.AnswerForm{
			ID: "f-1", QuestionID: "q-1",
			Fields: []model.FormField{{ID: "ff-1", FormID: "f-1", Label: "summary", Type: model.FieldText, Ord: 0}},
		}); err != nil {
			return err
		}
		if err := tx.InsertAnswer(model.Answer{ID: "a-1", QuestionID: "q-1", CreatorID: "u-assignee", CreatedAt: time.Unix(100, 0)}); err != nil {
			return err
		}
		if err := tx.InsertAnswerMedia("a-1", "m-1", 0); err != nil {
			return err
		}
		return tx.InsertFormResponse(model.FormResponse{ID: "fr-1", AnswerID: "a-1", FieldID: "ff-1", Value: "v"})
	})
	if err != nil {
		t.Fatalf("seed answer: %v", err)
	}

	err = s.InTx(ctx, func(tx *Tx) error {
		if err := tx.DeleteFormResponses("a-1"); err != nil {
			return err
		}
		if err := tx.DeleteAnswerMedia("a-1"); err != nil {
			return err
		}
		return tx.DeleteAnswer("a-1")
	})
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := s.GetAnswer(ctx, "a-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("answer still readable after delete: %v", err)
	}
	count, err := s.CountAnswers(ctx, "q-1")
	if err != nil {
		t.Fatalf("CountAnswers() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d after delete", count)
	}

	// Media ownership rows survive answer deletion.
	owned, err := s.OwnedMedia(ctx, []string{"m-1"}, "u-assignee")
	if err != nil {
		t.Fatalf("OwnedMedia() failed: %v", err)
	}
	if !owned["m-1"] {
		t.Error("media row lost when answer was deleted")
	}
}
