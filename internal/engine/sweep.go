package engine

import (
	"context"

	"github.com/roach88/askflow/internal/model"
	"github.com/roach88/askflow/internal/store"
)

// SweepReport summarizes one deadline sweep pass. An empty report is a
// normal, non-error outcome.
type SweepReport struct {
	Processed   int      `json:"processed"`
	QuestionIDs []string `json:"question_ids"`
}

// SweepDeadlines runs one batch pass over overdue questions.
//
// It selects every question with status NEW or IN_PROGRESS whose
// deadline lies before the clock's now and that has not been
// deadline-notified, then processes each question in its own
// transaction: notify the assignee and the creator, flip
// deadline_notified. Per-question isolation means a crash mid-sweep
// leaves already-processed questions correctly flagged; the next run
// picks up only the remainder. A question is never notified twice for
// the same deadline.
//
// Triggered externally (scheduler or CLI), never self-scheduling. Safe
// to run concurrently with interactive requests.
func (e *Engine) SweepDeadlines(ctx context.Context) (*SweepReport, error) {
	const op = "SweepDeadlines"

	now := e.clock.Now()
	overdue, err := e.store.ListOverdueQuestions(ctx, now)
	if err != nil {
		e.log.Error("overdue scan failed", "op", op, "error", err)
		return nil, internalf(op, err, "scan overdue questions")
	}

	report := &SweepReport{QuestionIDs: []string{}}
	for _, q := range overdue {
		question := q
		err := e.store.InTx(ctx, func(tx *store.Tx) error {
			// Another sweep (or a racing status change) may have handled
			// this question since the scan; the flag re-read under the
			// transaction is the at-most-once guarantee.
			notified, err := tx.DeadlineNotified(question.ID)
			if err != nil {
				return err
			}
			if notified {
				return errAlreadyNotified
			}

			if err := e.dispatch(tx, question.AssigneeID, model.NotifAssigneeDeadline, question.ID); err != nil {
				return err
			}
			if err := e.dispatch(tx, question.CreatorID, model.NotifRequesterDeadline, question.ID); err != nil {
				return err
			}
			return tx.SetDeadlineNotified(question.ID)
		})
		if err == errAlreadyNotified {
			continue
		}
		if err != nil {
			// Already-processed questions stay flagged; the caller can
			// rerun the sweep for the remainder.
			e.log.Error("sweep transaction failed", "op", op, "question_id", question.ID, "error", err)
			return report, internalf(op, err, "process question %s", question.ID)
		}

		report.Processed++
		report.QuestionIDs = append(report.QuestionIDs, question.ID)
	}

	e.log.Info("deadline sweep complete", "op", op, "processed", report.Processed)
	return report, nil
}

// errAlreadyNotified aborts a per-question sweep transaction when the
// flag was set by a concurrent pass. Never escapes SweepDeadlines.
var errAlreadyNotified = errf(KindInvalid, "SweepDeadlines", "already notified")
