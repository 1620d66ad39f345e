package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/askflow/internal/store"
)

// EvaluateAssertions checks every assertion against the final store
// state and returns one failure message per violated assertion. An
// empty slice means all assertions held.
func EvaluateAssertions(ctx context.Context, st *store.Store, vars map[string]string, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if msg := evaluateAssertion(ctx, st, vars, &a); msg != "" {
			failures = append(failures, fmt.Sprintf("assertions[%d] %s: %s", i, a.Type, msg))
		}
	}
	return failures
}

func evaluateAssertion(ctx context.Context, st *store.Store, vars map[string]string, a *Assertion) string {
	switch a.Type {
	case AssertQuestionStatus:
		return assertQuestionStatus(ctx, st, vars, a)
	case AssertAnswerCount:
		return assertAnswerCount(ctx, st, vars, a)
	case AssertNotificationCount:
		return assertNotificationCount(ctx, st, a)
	default:
		return fmt.Sprintf("unknown assertion type %q", a.Type)
	}
}

func assertQuestionStatus(ctx context.Context, st *store.Store, vars map[string]string, a *Assertion) string {
	id, msg := resolveRef(vars, a.Question)
	if msg != "" {
		return msg
	}
	question, err := st.GetQuestion(ctx, id)
	if err != nil {
		return fmt.Sprintf("load question %s: %v", id, err)
	}
	if string(question.Status) != a.Status {
		return fmt.Sprintf("question %s: expected status %s, got %s", a.Question, a.Status, question.Status)
	}
	return ""
}

func assertAnswerCount(ctx context.Context, st *store.Store, vars map[string]string, a *Assertion) string {
	id, msg := resolveRef(vars, a.Question)
	if msg != "" {
		return msg
	}
	count, err := st.CountAnswers(ctx, id)
	if err != nil {
		return fmt.Sprintf("count answers of %s: %v", id, err)
	}
	if count != *a.Count {
		return fmt.Sprintf("question %s: expected %d answers, got %d", a.Question, *a.Count, count)
	}
	return ""
}

func assertNotificationCount(ctx context.Context, st *store.Store, a *Assertion) string {
	notifications, err := st.ListNotifications(ctx, a.User)
	if err != nil {
		return fmt.Sprintf("list notifications of %s: %v", a.User, err)
	}
	count := 0
	for _, n := range notifications {
		if a.Notification == "" || string(n.Type) == a.Notification {
			count++
		}
	}
	if count != *a.Count {
		what := "notifications"
		if a.Notification != "" {
			what = a.Notification + " notifications"
		}
		return fmt.Sprintf("user %s: expected %d %s, got %d", a.User, *a.Count, what, count)
	}
	return ""
}

// resolveRef substitutes a "$name" reference with its saved id.
func resolveRef(vars map[string]string, v string) (id, failure string) {
	if !strings.HasPrefix(v, "$") {
		return v, ""
	}
	id, ok := vars[v[1:]]
	if !ok {
		return "", fmt.Sprintf("unknown reference %q", v)
	}
	return id, ""
}
