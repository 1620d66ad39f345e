package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios seed users and media, execute a flow of engine operations
// and assert on the resulting outcomes, state and notification trace.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Users seeds the user table before any step runs.
	Users []UserSeed `yaml:"users"`

	// Media seeds the media table before any step runs.
	Media []MediaSeed `yaml:"media,omitempty"`

	// Setup contains steps to run before the main flow.
	// Setup steps must succeed; a failure aborts the scenario.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the main test flow. Each step can declare the
	// outcome it expects; omitting the clause means success is expected.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final state after the flow.
	// Supported types: question_status, answer_count, notification_count
	Assertions []Assertion `yaml:"assertions"`
}

// UserSeed is a user row inserted before the scenario runs.
type UserSeed struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// MediaSeed is an uploaded media row inserted before the scenario runs.
type MediaSeed struct {
	ID    string `yaml:"id"`
	Owner string `yaml:"owner"`
	Name  string `yaml:"name"`
}

// Step is a single engine operation invocation.
//
// String arguments starting with "$" are resolved against ids saved by
// earlier steps, so scenarios never hardcode generated ids:
//
//	- op: create_question
//	  as: u-alice
//	  args: {project: $p, title: "Broken build"}
//	  save: q
type Step struct {
	// Op names the operation to invoke. See the Op* constants.
	Op string `yaml:"op"`

	// As is the acting user id. Empty means no authenticated principal.
	As string `yaml:"as,omitempty"`

	// Admin marks the principal as a platform administrator.
	Admin bool `yaml:"admin,omitempty"`

	// Args contains the operation arguments as a map.
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Save stores the id of the created entity under this name.
	Save string `yaml:"save,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the step is expected to succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a flow step.
type ExpectClause struct {
	// Kind is the expected error kind (e.g. "FORBIDDEN", "INVALID").
	// Empty means the step is expected to succeed.
	Kind string `yaml:"kind,omitempty"`

	// Processed is the expected number of questions handled by a
	// sweep step. Only meaningful for op: sweep.
	Processed *int `yaml:"processed,omitempty"`
}

// Assertion validates final state after the flow completes.
type Assertion struct {
	// Type specifies the assertion type:
	// - "question_status": the question must be in the given status
	// - "answer_count": the question must have exactly Count answers
	// - "notification_count": the user must have exactly Count
	//   notifications, optionally filtered by Notification type
	Type string `yaml:"type"`

	// Question references a question id or $saved name
	// (question_status, answer_count).
	Question string `yaml:"question,omitempty"`

	// Status is the expected question status (question_status).
	Status string `yaml:"status,omitempty"`

	// User is the notification recipient (notification_count).
	User string `yaml:"user,omitempty"`

	// Notification filters by notification type (notification_count).
	// Empty counts all of the user's notifications.
	Notification string `yaml:"notification,omitempty"`

	// Count is the expected number of rows
	// (answer_count, notification_count).
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertQuestionStatus    = "question_status"
	AssertAnswerCount       = "answer_count"
	AssertNotificationCount = "notification_count"
)

// Operation name constants for Step.Op.
const (
	OpCreateProject  = "create_project"
	OpAddMember      = "add_member"
	OpCreateQuestion = "create_question"
	OpAttachForm     = "attach_form"
	OpCreateAnswer   = "create_answer"
	OpUpdateAnswer   = "update_answer"
	OpDeleteAnswer   = "delete_answer"
	OpSetStatus      = "set_status"
	OpAdvanceClock   = "advance_clock"
	OpSweep          = "sweep"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Users) == 0 {
		return fmt.Errorf("users list is required and must be non-empty")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, u := range s.Users {
		if u.ID == "" {
			return fmt.Errorf("users[%d]: id is required", i)
		}
	}
	for i, m := range s.Media {
		if m.ID == "" || m.Owner == "" {
			return fmt.Errorf("media[%d]: id and owner are required", i)
		}
	}

	for i, step := range s.Setup {
		if err := validateStep(&step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is not allowed in setup, setup steps must succeed", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(&step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(step *Step) error {
	switch step.Op {
	case OpCreateProject, OpAddMember, OpCreateQuestion, OpAttachForm,
		OpCreateAnswer, OpUpdateAnswer, OpDeleteAnswer, OpSetStatus,
		OpAdvanceClock, OpSweep:
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertQuestionStatus:
		if a.Question == "" {
			return fmt.Errorf("assertions[%d]: question is required for question_status", index)
		}
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for question_status", index)
		}
	case AssertAnswerCount:
		if a.Question == "" {
			return fmt.Errorf("assertions[%d]: question is required for answer_count", index)
		}
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for answer_count", index)
		}
	case AssertNotificationCount:
		if a.User == "" {
			return fmt.Errorf("assertions[%d]: user is required for notification_count", index)
		}
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for notification_count", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
