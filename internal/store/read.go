package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/askflow/internal/model"
)

// GetUser retrieves a user by ID. Returns ErrNotFound if absent.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetProject retrieves a project with its memberships eager-loaded.
// Returns ErrNotFound if the project does not exist.
func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, creator_id FROM projects WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.CreatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, user_id, role
		FROM memberships
		WHERE project_id = ?
		ORDER BY user_id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m model.Membership
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Role); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		p.Members = append(p.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}

	return &p, nil
}

// GetQuestion retrieves a question with its answer form (and fields)
// eager-loaded. Returns ErrNotFound if the question does not exist.
func (s *Store) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, creator_id, assignee_id, title, body,
		       priority, status, deadline, deadline_notified, created_at
		FROM questions
		WHERE id = ?
	`, id)

	q, err := scanQuestionRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("question %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	form, err := s.getForm(ctx, id)
	if err != nil {
		return nil, err
	}
	q.Form = form

	return q, nil
}

// getForm loads the answer form attached to a question, or nil if none.
func (s *Store) getForm(ctx context.Context, questionID string) (*model.AnswerForm, error) {
	var form model.AnswerForm
	err := s.db.QueryRowContext(ctx, `
		SELECT id, question_id FROM answer_forms WHERE question_id = ?
	`, questionID).Scan(&form.ID, &form.QuestionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get answer form: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, form_id, label, field_type, is_required, options, ord
		FROM form_fields
		WHERE form_id = ?
		ORDER BY ord ASC, id ASC
	`, form.ID)
	if err != nil {
		return nil, fmt.Errorf("query form fields: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f model.FormField
		var optionsJSON string
		if err := rows.Scan(&f.ID, &f.FormID, &f.Label, &f.Type, &f.IsRequired, &optionsJSON, &f.Ord); err != nil {
			return nil, fmt.Errorf("scan form field: %w", err)
		}
		if err := json.Unmarshal([]byte(optionsJSON), &f.Options); err != nil {
			return nil, fmt.Errorf("decode field options: %w", err)
		}
		form.Fields = append(form.Fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate form fields: %w", err)
	}

	return &form, nil
}

// GetAnswer retrieves an answer with its media links and form responses
// eager-loaded. Returns ErrNotFound if the answer does not exist.
func (s *Store) GetAnswer(ctx context.Context, id string) (*model.Answer, error) {
	var a model.Answer
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, question_id, creator_id, content, created_at
		FROM answers
		WHERE id = ?
	`, id).Scan(&a.ID, &a.QuestionID, &a.CreatorID, &a.Content, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("answer %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get answer: %w", err)
	}
	a.CreatedAt = time.Unix(createdAt, 0).UTC()

	media, err := s.answerMedia(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Media = media

	responses, err := s.answerResponses(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Responses = responses

	return &a, nil
}

// answerMedia returns the media attached to an answer in attachment order.
func (s *Store) answerMedia(ctx context.Context, answerID string) ([]model.MediaRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.owner_id, m.name
		FROM answer_media am
		JOIN media m ON m.id = am.media_id
		WHERE am.answer_id = ?
		ORDER BY am.ord ASC
	`, answerID)
	if err != nil {
		return nil, fmt.Errorf("query answer media: %w", err)
	}
	defer rows.Close()

	var media []model.MediaRef
	for rows.Next() {
		var m model.MediaRef
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.Name); err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		media = append(media, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answer media: %w", err)
	}
	return media, nil
}

// answerResponses returns the form responses of an answer in field order.
func (s *Store) answerResponses(ctx context.Context, answerID string) ([]model.FormResponse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fr.id, fr.answer_id, fr.field_id, fr.value, fr.media_id
		FROM form_responses fr
		JOIN form_fields ff ON ff.id = fr.field_id
		WHERE fr.answer_id = ?
		ORDER BY ff.ord ASC, fr.id ASC
	`, answerID)
	if err != nil {
		return nil, fmt.Errorf("query form responses: %w", err)
	}
	defer rows.Close()

	var responses []model.FormResponse
	for rows.Next() {
		var r model.FormResponse
		var mediaID sql.NullString
		if err := rows.Scan(&r.ID, &r.AnswerID, &r.FieldID, &r.Value, &mediaID); err != nil {
			return nil, fmt.Errorf("scan form response: %w", err)
		}
		r.MediaRefID = mediaID.String
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate form responses: %w", err)
	}
	return responses, nil
}

// CountAnswers returns the number of answers on a question.
func (s *Store) CountAnswers(ctx context.Context, questionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM answers WHERE question_id = ?
	`, questionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count answers: %w", err)
	}
	return count, nil
}

// OwnedMedia reports which of the given media IDs exist and are owned by
// ownerID. IDs that are absent or owned by someone else are simply not in
// the result.
func (s *Store) OwnedMedia(ctx context.Context, ids []string, ownerID string) (map[string]bool, error) {
	owned := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return owned, nil
	}

	placeholders := make([]byte, 0, len(ids)*2-1)
	args := make([]any, 0, len(ids)+1)
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, id)
	}
	args = append(args, ownerID)

	query := `SELECT id FROM media WHERE id IN (` + string(placeholders) + `) AND owner_id = ?`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query owned media: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan media id: %w", err)
		}
		owned[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate owned media: %w", err)
	}
	return owned, nil
}

// ListOverdueQuestions returns open questions whose deadline has passed
// and that have not yet been deadline-notified, in deterministic order.
func (s *Store) ListOverdueQuestions(ctx context.Context, now time.Time) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, creator_id, assignee_id, title, body,
		       priority, status, deadline, deadline_notified, created_at
		FROM questions
		WHERE status IN ('NEW', 'IN_PROGRESS')
		  AND deadline IS NOT NULL
		  AND deadline < ?
		  AND deadline_notified = 0
		ORDER BY deadline ASC, id ASC
	`, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("query overdue questions: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overdue questions: %w", err)
	}

	if questions == nil {
		questions = []model.Question{}
	}
	return questions, nil
}

// GetNotification retrieves a notification by ID. Returns ErrNotFound if
// absent.
func (s *Store) GetNotification(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, type, related_id, is_read, created_at
		FROM notifications
		WHERE id = ?
	`, id).Scan(&n.ID, &n.UserID, &n.Type, &n.RelatedID, &n.IsRead, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	n.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &n, nil
}

// ListNotifications returns all notifications for a recipient, newest
// insertion order last. Returns an empty slice (not nil) when there are
// none.
func (s *Store) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, related_id, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		var createdAt int64
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.RelatedID, &n.IsRead, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.CreatedAt = time.Unix(createdAt, 0).UTC()
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	if notifications == nil {
		notifications = []model.Notification{}
	}
	return notifications, nil
}

// scanner abstracts *sql.Row and *sql.Rows for the shared question scan.
type scanner interface {
	Scan(dest ...any) error
}

// scanQuestion scans a question row from the canonical column order.
func scanQuestion(sc scanner) (*model.Question, error) {
	var q model.Question
	var deadline sql.NullInt64
	var createdAt int64

	if err := sc.Scan(
		&q.ID, &q.ProjectID, &q.CreatorID, &q.AssigneeID, &q.Title, &q.Body,
		&q.Priority, &q.Status, &deadline, &q.IsDeadlineNotified, &createdAt,
	); err != nil {
		return nil, fmt.Errorf("scan question: %w", err)
	}

	if deadline.Valid {
		t := time.Unix(deadline.Int64, 0).UTC()
		q.Deadline = &t
	}
	q.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &q, nil
}

// scanQuestionRow scans a single question row, preserving sql.ErrNoRows
// for the caller's not-found mapping.
func scanQuestionRow(row *sql.Row) (*model.Question, error) {
	var q model.Question
	var deadline sql.NullInt64
	var createdAt int64

	if err := row.Scan(
		&q.ID, &q.ProjectID, &q.CreatorID, &q.AssigneeID, &q.Title, &q.Body,
		&q.Priority, &q.Status, &deadline, &q.IsDeadlineNotified, &createdAt,
	); err != nil {
		return nil, err
	}

	if deadline.Valid {
		t := time.Unix(deadline.Int64, 0).UTC()
		q.Deadline = &t
	}
	q.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &q, nil
}
