// Package harness provides a conformance testing framework for the
// askflow engine.
//
// Scenarios are YAML files describing a cast of users, a flow of engine
// operations and the expected outcomes. The harness executes every step
// against the real engine backed by a fresh in-memory SQLite store, so
// a scenario exercises the full stack: access resolution, validation,
// transactional writes and notification dispatch.
//
// Determinism comes from two substitutions: a testutil.FixedClock
// replaces the wall clock, and a testutil.SeqIDGenerator replaces
// UUIDv7 generation. With those pinned, the notification trace of a
// scenario is byte-stable and can be compared against golden files.
package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/askflow/internal/engine"
	"github.com/roach88/askflow/internal/model"
	"github.com/roach88/askflow/internal/store"
	"github.com/roach88/askflow/internal/testutil"
)

// baseTime is the instant every scenario clock starts at.
var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// Harness executes one scenario against a fresh engine.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	clock  *testutil.FixedClock
	logger *slog.Logger

	// vars maps save names to the ids of created entities.
	vars map[string]string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Open an in-memory store and seed users and media
//  2. Execute setup steps, which must succeed
//  3. Execute flow steps, validating expect clauses
//  4. Evaluate assertions against the final state
//  5. Collect the notification trace per seeded user
//
// The returned error covers harness-level problems (bad scenario,
// broken store); expect and assertion failures land in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewFixedClock(baseTime)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := &Harness{
		store:  st,
		engine: engine.New(st, testutil.NewSeqIDGenerator("id"), clock, logger),
		clock:  clock,
		logger: logger,
		vars:   map[string]string{},
	}

	ctx := context.Background()
	result := NewResult()

	if err := h.seed(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to seed scenario: %w", err)
	}

	for i, step := range scenario.Setup {
		outcome, err := h.runStep(ctx, step, result)
		if err != nil {
			return nil, fmt.Errorf("setup[%d] %s: %w", i, step.Op, err)
		}
		if outcome != outcomeOK {
			return nil, fmt.Errorf("setup[%d] %s: unexpected outcome %s", i, step.Op, outcome)
		}
	}

	for i, step := range scenario.Flow {
		outcome, err := h.runStep(ctx, step, result)
		if err != nil {
			return nil, fmt.Errorf("flow[%d] %s: %w", i, step.Op, err)
		}
		expected := outcomeOK
		if step.Expect != nil && step.Expect.Kind != "" {
			expected = step.Expect.Kind
		}
		if outcome != expected {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected outcome %s, got %s", i, step.Op, expected, outcome))
		}
	}

	for _, msg := range EvaluateAssertions(ctx, st, h.vars, scenario.Assertions) {
		result.AddError(msg)
	}

	if err := h.collectNotifications(ctx, scenario, result); err != nil {
		return nil, fmt.Errorf("failed to collect notifications: %w", err)
	}

	return result, nil
}

const outcomeOK = "ok"

// seed inserts the scenario's users and media rows.
func (h *Harness) seed(ctx context.Context, scenario *Scenario) error {
	for _, u := range scenario.Users {
		if err := h.store.PutUser(ctx, model.User{ID: u.ID, Name: u.Name}); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	for _, m := range scenario.Media {
		if err := h.store.PutMedia(ctx, model.MediaRef{ID: m.ID, OwnerID: m.Owner, Name: m.Name}); err != nil {
			return fmt.Errorf("seed media %s: %w", m.ID, err)
		}
	}
	return nil
}

// runStep executes one step. The returned string is the observed
// outcome: "ok" or the error kind the engine rejected the operation
// with. A non-nil error means the step itself is malformed.
func (h *Harness) runStep(ctx context.Context, step Step, result *Result) (string, error) {
	p := h.principal(step)

	var savedID string
	var opErr error

	switch step.Op {
	case OpCreateProject:
		name, err := h.stringArg(step.Args, "name")
		if err != nil {
			return "", err
		}
		var project *model.Project
		project, opErr = h.engine.CreateProject(ctx, p, name)
		if project != nil {
			savedID = project.ID
		}

	case OpAddMember:
		projectID, err := h.stringArg(step.Args, "project")
		if err != nil {
			return "", err
		}
		userID, err := h.stringArg(step.Args, "user")
		if err != nil {
			return "", err
		}
		role, err := h.stringArg(step.Args, "role")
		if err != nil {
			return "", err
		}
		_, opErr = h.engine.AddMember(ctx, p, projectID, userID, model.Role(role))

	case OpCreateQuestion:
		projectID, err := h.stringArg(step.Args, "project")
		if err != nil {
			return "", err
		}
		in, err := h.questionInput(step.Args)
		if err != nil {
			return "", err
		}
		var question *model.Question
		question, opErr = h.engine.CreateQuestion(ctx, p, projectID, in)
		if question != nil {
			savedID = question.ID
		}

	case OpAttachForm:
		projectID, questionID, err := h.questionRef(step.Args)
		if err != nil {
			return "", err
		}
		fields, err := h.formFields(step.Args)
		if err != nil {
			return "", err
		}
		var form *model.AnswerForm
		form, opErr = h.engine.AttachForm(ctx, p, projectID, questionID, fields)
		if form != nil {
			savedID = form.ID
		}

	case OpCreateAnswer:
		projectID, questionID, err := h.questionRef(step.Args)
		if err != nil {
			return "", err
		}
		in, err := h.answerInput(ctx, questionID, step.Args)
		if err != nil {
			return "", err
		}
		var answer *model.Answer
		answer, opErr = h.engine.CreateAnswer(ctx, p, projectID, questionID, in)
		if answer != nil {
			savedID = answer.ID
		}

	case OpUpdateAnswer:
		projectID, questionID, err := h.questionRef(step.Args)
		if err != nil {
			return "", err
		}
		answerID, err := h.stringArg(step.Args, "answer")
		if err != nil {
			return "", err
		}
		in, err := h.answerInput(ctx, questionID, step.Args)
		if err != nil {
			return "", err
		}
		_, opErr = h.engine.UpdateAnswer(ctx, p, projectID, questionID, answerID, in)

	case OpDeleteAnswer:
		projectID, questionID, err := h.questionRef(step.Args)
		if err != nil {
			return "", err
		}
		answerID, err := h.stringArg(step.Args, "answer")
		if err != nil {
			return "", err
		}
		opErr = h.engine.DeleteAnswer(ctx, p, projectID, questionID, answerID)

	case OpSetStatus:
		projectID, questionID, err := h.questionRef(step.Args)
		if err != nil {
			return "", err
		}
		status, err := h.stringArg(step.Args, "status")
		if err != nil {
			return "", err
		}
		_, opErr = h.engine.SetStatus(ctx, p, projectID, questionID, model.Status(status))

	case OpAdvanceClock:
		d, err := h.durationArg(step.Args, "by")
		if err != nil {
			return "", err
		}
		h.clock.Advance(d)

	case OpSweep:
		var report *engine.SweepReport
		report, opErr = h.engine.SweepDeadlines(ctx)
		if opErr == nil && step.Expect != nil && step.Expect.Processed != nil {
			if report.Processed != *step.Expect.Processed {
				result.AddError(fmt.Sprintf("sweep: expected %d processed, got %d", *step.Expect.Processed, report.Processed))
			}
		}

	default:
		return "", fmt.Errorf("unknown op %q", step.Op)
	}

	outcome := outcomeOK
	if opErr != nil {
		outcome = string(engine.KindOf(opErr))
	}
	if step.Save != "" && savedID != "" {
		h.vars[step.Save] = savedID
	}
	result.AddTrace(step.Op, step.As, outcome, step.Save)
	return outcome, nil
}

// principal builds the acting principal for a step. An empty "as"
// means the call carries no authentication at all.
func (h *Harness) principal(step Step) *model.Principal {
	if step.As == "" {
		return nil
	}
	return &model.Principal{ID: step.As, IsAdmin: step.Admin}
}

// resolve substitutes "$name" references with saved ids.
func (h *Harness) resolve(v string) (string, error) {
	if !strings.HasPrefix(v, "$") {
		return v, nil
	}
	id, ok := h.vars[v[1:]]
	if !ok {
		return "", fmt.Errorf("unknown reference %q", v)
	}
	return id, nil
}

func (h *Harness) stringArg(args map[string]interface{}, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing arg %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("arg %q: expected string, got %T", key, raw)
	}
	return h.resolve(s)
}

func (h *Harness) optionalStringArg(args map[string]interface{}, key string) (string, error) {
	if _, ok := args[key]; !ok {
		return "", nil
	}
	return h.stringArg(args, key)
}

func (h *Harness) durationArg(args map[string]interface{}, key string) (time.Duration, error) {
	s, err := h.stringArg(args, key)
	if err != nil {
		return 0, err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("arg %q: %w", key, err)
	}
	return d, nil
}

func intArg(args map[string]interface{}, key string) (int, bool, error) {
	raw, ok := args[key]
	if !ok {
		return 0, false, nil
	}
	n, ok := raw.(int)
	if !ok {
		return 0, false, fmt.Errorf("arg %q: expected int, got %T", key, raw)
	}
	return n, true, nil
}

func boolArg(args map[string]interface{}, key string) (bool, error) {
	raw, ok := args[key]
	if !ok {
		return false, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("arg %q: expected bool, got %T", key, raw)
	}
	return b, nil
}

// questionRef resolves the project and question args shared by every
// question-scoped op.
func (h *Harness) questionRef(args map[string]interface{}) (projectID, questionID string, err error) {
	projectID, err = h.stringArg(args, "project")
	if err != nil {
		return "", "", err
	}
	questionID, err = h.stringArg(args, "question")
	if err != nil {
		return "", "", err
	}
	return projectID, questionID, nil
}

// questionInput builds a QuestionInput from step args. A "deadline_in"
// duration is resolved against the scenario clock, so "-1h" creates a
// question that is already overdue.
func (h *Harness) questionInput(args map[string]interface{}) (engine.QuestionInput, error) {
	var in engine.QuestionInput
	var err error

	if in.Title, err = h.optionalStringArg(args, "title"); err != nil {
		return in, err
	}
	if in.Body, err = h.optionalStringArg(args, "body"); err != nil {
		return in, err
	}
	if in.AssigneeID, err = h.optionalStringArg(args, "assignee"); err != nil {
		return in, err
	}
	priority, ok, err := intArg(args, "priority")
	if err != nil {
		return in, err
	}
	if ok {
		in.Priority = priority
	}
	if _, ok := args["deadline_in"]; ok {
		d, err := h.durationArg(args, "deadline_in")
		if err != nil {
			return in, err
		}
		deadline := h.clock.Now().Add(d)
		in.Deadline = &deadline
	}
	return in, nil
}

// formFields builds the field list for attach_form from the "fields"
// arg, a list of maps with label, type, required and options keys.
func (h *Harness) formFields(args map[string]interface{}) ([]engine.FormFieldInput, error) {
	raw, ok := args["fields"]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("arg \"fields\": expected list, got %T", raw)
	}

	fields := make([]engine.FormFieldInput, 0, len(list))
	for i, elem := range list {
		m, ok := elem.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("fields[%d]: expected map, got %T", i, elem)
		}
		label, err := h.optionalStringArg(m, "label")
		if err != nil {
			return nil, fmt.Errorf("fields[%d]: %w", i, err)
		}
		typ, err := h.optionalStringArg(m, "type")
		if err != nil {
			return nil, fmt.Errorf("fields[%d]: %w", i, err)
		}
		required, err := boolArg(m, "required")
		if err != nil {
			return nil, fmt.Errorf("fields[%d]: %w", i, err)
		}
		options, err := h.stringList(m, "options")
		if err != nil {
			return nil, fmt.Errorf("fields[%d]: %w", i, err)
		}
		fields = append(fields, engine.FormFieldInput{
			Label:      label,
			Type:       model.FieldType(typ),
			IsRequired: required,
			Options:    options,
		})
	}
	return fields, nil
}

// answerInput builds an AnswerInput from step args. Form responses
// reference fields by label; the harness translates labels to field ids
// by reading the question's attached form.
func (h *Harness) answerInput(ctx context.Context, questionID string, args map[string]interface{}) (engine.AnswerInput, error) {
	var in engine.AnswerInput
	var err error

	if in.Content, err = h.optionalStringArg(args, "content"); err != nil {
		return in, err
	}
	if in.MediaIDs, err = h.stringList(args, "media"); err != nil {
		return in, err
	}

	raw, ok := args["responses"]
	if !ok {
		return in, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return in, fmt.Errorf("arg \"responses\": expected list, got %T", raw)
	}

	fieldIDs, err := h.fieldIDsByLabel(ctx, questionID)
	if err != nil {
		return in, err
	}
	for i, elem := range list {
		m, ok := elem.(map[string]interface{})
		if !ok {
			return in, fmt.Errorf("responses[%d]: expected map, got %T", i, elem)
		}
		label, err := h.stringArg(m, "field")
		if err != nil {
			return in, fmt.Errorf("responses[%d]: %w", i, err)
		}
		value, err := h.optionalStringArg(m, "value")
		if err != nil {
			return in, fmt.Errorf("responses[%d]: %w", i, err)
		}
		mediaID, err := h.optionalStringArg(m, "media")
		if err != nil {
			return in, fmt.Errorf("responses[%d]: %w", i, err)
		}
		fieldID, ok := fieldIDs[label]
		if !ok {
			// Unknown labels pass through untranslated so scenarios can
			// provoke the engine's unknown-field rejection.
			fieldID = label
		}
		in.Responses = append(in.Responses, engine.FormResponseInput{
			FieldID:    fieldID,
			Value:      value,
			MediaRefID: mediaID,
		})
	}
	return in, nil
}

func (h *Harness) stringList(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("arg %q: expected list, got %T", key, raw)
	}
	out := make([]string, 0, len(list))
	for i, elem := range list {
		s, ok := elem.(string)
		if !ok {
			return nil, fmt.Errorf("arg %q[%d]: expected string, got %T", key, i, elem)
		}
		resolved, err := h.resolve(s)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

// fieldIDsByLabel reads the question's form and maps labels to ids.
// A question without a form yields an empty map.
func (h *Harness) fieldIDsByLabel(ctx context.Context, questionID string) (map[string]string, error) {
	question, err := h.store.GetQuestion(ctx, questionID)
	if err != nil {
		// Leave resolution to the engine: a missing question must
		// surface as the engine's NotFound, not a harness error.
		return map[string]string{}, nil
	}
	ids := map[string]string{}
	if question.Form != nil {
		for _, f := range question.Form.Fields {
			ids[f.Label] = f.ID
		}
	}
	return ids, nil
}

// collectNotifications appends the final notification rows to the
// result, in user seed order, each user's rows oldest first. Related
// ids are rendered as their saved names for stable goldens.
func (h *Harness) collectNotifications(ctx context.Context, scenario *Scenario, result *Result) error {
	names := map[string]string{}
	for name, id := range h.vars {
		names[id] = name
	}

	for _, u := range scenario.Users {
		notifications, err := h.store.ListNotifications(ctx, u.ID)
		if err != nil {
			return fmt.Errorf("list notifications for %s: %w", u.ID, err)
		}
		for _, n := range notifications {
			related := n.RelatedID
			if name, ok := names[related]; ok {
				related = name
			}
			result.Notifications = append(result.Notifications, NotificationRecord{
				User:    u.ID,
				Type:    string(n.Type),
				Related: related,
			})
		}
	}
	return nil
}
