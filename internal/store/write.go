package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/askflow/internal/model"
)

// PutUser inserts or replaces a user row. Used by seeding and tests;
// identity provisioning itself lives outside this system.
func (s *Store) PutUser(ctx context.Context, u model.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, u.ID, u.Name)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// PutMedia inserts a media ownership record. The bytes live in external
// blob storage; this row is what the engine's ownership check consults.
func (s *Store) PutMedia(ctx context.Context, m model.MediaRef) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO media (id, owner_id, name) VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, m.ID, m.OwnerID, m.Name)
	if err != nil {
		return fmt.Errorf("put media: %w", err)
	}
	return nil
}

// MarkNotificationRead flips is_read on a notification. The engine has
// already verified the caller is the recipient.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1 WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	return nil
}

// InsertProject inserts a project row.
func (t *Tx) InsertProject(p model.Project) error {
	_, err := t.tx.Exec(`
		INSERT INTO projects (id, name, creator_id) VALUES (?, ?, ?)
	`, p.ID, p.Name, p.CreatorID)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// InsertMembership inserts a membership row. Returns inserted=false when
// the (project, user) pair already holds a membership.
func (t *Tx) InsertMembership(m model.Membership) (inserted bool, err error) {
	res, err := t.tx.Exec(`
		INSERT INTO memberships (project_id, user_id, role) VALUES (?, ?, ?)
		ON CONFLICT(project_id, user_id) DO NOTHING
	`, m.ProjectID, m.UserID, m.Role)
	if err != nil {
		return false, fmt.Errorf("insert membership: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert membership: %w", err)
	}
	return affected > 0, nil
}

// InsertQuestion inserts a question row.
func (t *Tx) InsertQuestion(q model.Question) error {
	var deadline sql.NullInt64
	if q.Deadline != nil {
		deadline = sql.NullInt64{Int64: q.Deadline.Unix(), Valid: true}
	}
	_, err := t.tx.Exec(`
		INSERT INTO questions
		(id, project_id, creator_id, assignee_id, title, body, priority, status, deadline, deadline_notified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		q.ID, q.ProjectID, q.CreatorID, q.AssigneeID, q.Title, q.Body,
		q.Priority, q.Status, deadline, q.IsDeadlineNotified, q.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

// InsertForm inserts an answer form with its fields. Field options are
// stored as a JSON array.
func (t *Tx) InsertForm(form model.AnswerForm) error {
	_, err := t.tx.Exec(`
		INSERT INTO answer_forms (id, question_id) VALUES (?, ?)
	`, form.ID, form.QuestionID)
	if err != nil {
		return fmt.Errorf("insert answer form: %w", err)
	}

	for _, f := range form.Fields {
		options := f.Options
		if options == nil {
			options = []string{}
		}
		optionsJSON, err := json.Marshal(options)
		if err != nil {
			return fmt.Errorf("encode field options: %w", err)
		}
		_, err = t.tx.Exec(`
			INSERT INTO form_fields (id, form_id, label, field_type, is_required, options, ord)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, f.ID, f.FormID, f.Label, f.Type, f.IsRequired, string(optionsJSON), f.Ord)
		if err != nil {
			return fmt.Errorf("insert form field: %w", err)
		}
	}
	return nil
}

// DeleteFormForQuestion removes a question's answer form and its fields.
// No-op if the question has no form.
func (t *Tx) DeleteFormForQuestion(questionID string) error {
	_, err := t.tx.Exec(`
		DELETE FROM form_fields
		WHERE form_id IN (SELECT id FROM answer_forms WHERE question_id = ?)
	`, questionID)
	if err != nil {
		return fmt.Errorf("delete form fields: %w", err)
	}
	_, err = t.tx.Exec(`DELETE FROM answer_forms WHERE question_id = ?`, questionID)
	if err != nil {
		return fmt.Errorf("delete answer form: %w", err)
	}
	return nil
}

// InsertAnswer inserts an answer row.
func (t *Tx) InsertAnswer(a model.Answer) error {
	_, err := t.tx.Exec(`
		INSERT INTO answers (id, question_id, creator_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.QuestionID, a.CreatorID, a.Content, a.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

// InsertAnswerMedia links a media record to an answer at the given
// position.
func (t *Tx) InsertAnswerMedia(answerID, mediaID string, ord int) error {
	_, err := t.tx.Exec(`
		INSERT INTO answer_media (answer_id, media_id, ord) VALUES (?, ?, ?)
	`, answerID, mediaID, ord)
	if err != nil {
		return fmt.Errorf("insert answer media: %w", err)
	}
	return nil
}

// InsertFormResponse inserts a form response row. MediaRefID is stored as
// NULL when empty.
func (t *Tx) InsertFormResponse(r model.FormResponse) error {
	var mediaID sql.NullString
	if r.MediaRefID != "" {
		mediaID = sql.NullString{String: r.MediaRefID, Valid: true}
	}
	_, err := t.tx.Exec(`
		INSERT INTO form_responses (id, answer_id, field_id, value, media_id)
		VALUES (?, ?, ?, ?, ?)
	`, r.ID, r.AnswerID, r.FieldID, r.Value, mediaID)
	if err != nil {
		return fmt.Errorf("insert form response: %w", err)
	}
	return nil
}

// UpdateAnswerContent replaces an answer's content.
func (t *Tx) UpdateAnswerContent(answerID, content string) error {
	_, err := t.tx.Exec(`
		UPDATE answers SET content = ? WHERE id = ?
	`, content, answerID)
	if err != nil {
		return fmt.Errorf("update answer content: %w", err)
	}
	return nil
}

// DeleteAnswerMedia removes all media links of an answer.
func (t *Tx) DeleteAnswerMedia(answerID string) error {
	_, err := t.tx.Exec(`DELETE FROM answer_media WHERE answer_id = ?`, answerID)
	if err != nil {
		return fmt.Errorf("delete answer media: %w", err)
	}
	return nil
}

// DeleteFormResponses removes all form responses of an answer.
func (t *Tx) DeleteFormResponses(answerID string) error {
	_, err := t.tx.Exec(`DELETE FROM form_responses WHERE answer_id = ?`, answerID)
	if err != nil {
		return fmt.Errorf("delete form responses: %w", err)
	}
	return nil
}

// DeleteAnswer removes an answer row. Child rows must already be gone;
// the engine deletes responses, then media links, then the answer, all
// inside one transaction.
func (t *Tx) DeleteAnswer(answerID string) error {
	_, err := t.tx.Exec(`DELETE FROM answers WHERE id = ?`, answerID)
	if err != nil {
		return fmt.Errorf("delete answer: %w", err)
	}
	return nil
}

// UpdateQuestionStatus sets a question's status.
func (t *Tx) UpdateQuestionStatus(questionID string, status model.Status) error {
	_, err := t.tx.Exec(`
		UPDATE questions SET status = ? WHERE id = ?
	`, status, questionID)
	if err != nil {
		return fmt.Errorf("update question status: %w", err)
	}
	return nil
}

// SetDeadlineNotified flips the deadline-notified flag. The flag is the
// sweep's at-most-once guarantee; it is never cleared.
func (t *Tx) SetDeadlineNotified(questionID string) error {
	_, err := t.tx.Exec(`
		UPDATE questions SET deadline_notified = 1 WHERE id = ?
	`, questionID)
	if err != nil {
		return fmt.Errorf("set deadline notified: %w", err)
	}
	return nil
}

// InsertNotification inserts a notification row. Always called inside the
// transaction of the mutation that triggers it, so a notification is
// never observable without its cause having committed.
func (t *Tx) InsertNotification(n model.Notification) error {
	_, err := t.tx.Exec(`
		INSERT INTO notifications (id, user_id, type, related_id, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, n.ID, n.UserID, n.Type, n.RelatedID, n.IsRead, n.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// QuestionStatus re-reads a question's status inside the transaction.
// Mutations must not trust a status read before the transaction began.
func (t *Tx) QuestionStatus(questionID string) (model.Status, error) {
	var status model.Status
	err := t.tx.QueryRow(`
		SELECT status FROM questions WHERE id = ?
	`, questionID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("question %s: %w", questionID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("question status: %w", err)
	}
	return status, nil
}

// DeadlineNotified re-reads the deadline-notified flag inside the
// transaction. The sweep checks it under the same isolation as the
// notification inserts it guards.
func (t *Tx) DeadlineNotified(questionID string) (bool, error) {
	var notified bool
	err := t.tx.QueryRow(`
		SELECT deadline_notified FROM questions WHERE id = ?
	`, questionID).Scan(&notified)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("question %s: %w", questionID, ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("deadline notified: %w", err)
	}
	return notified, nil
}

// CountAnswers re-counts a question's answers inside the transaction.
// Status transitions gate on this count, so it must be read under the
// same isolation as the write it guards.
func (t *Tx) CountAnswers(questionID string) (int, error) {
	var count int
	err := t.tx.QueryRow(`
		SELECT COUNT(*) FROM answers WHERE question_id = ?
	`, questionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count answers: %w", err)
	}
	return count, nil
}
