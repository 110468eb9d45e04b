package harness

import (
	"bytes"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Scenario defines a login screen scenario.
// A scenario seeds accounts, drives the screen with view actions and asserts
// on the recorded trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Accounts are registered before the screen opens.
	Accounts []AccountSeed `yaml:"accounts,omitempty"`

	// Validator overrides the form rules for this scenario.
	Validator *ValidatorRules `yaml:"validator,omitempty"`

	// Flow contains the view actions and waits, run in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	// Supported types: trace_contains, trace_order, trace_count,
	// final_state, effect_contains, effect_count
	Assertions []Assertion `yaml:"assertions"`

	// PipelineID is the fixed ID given to every pipeline and observer.
	// If empty, defaults to "test-pipeline".
	PipelineID string `yaml:"pipeline_id,omitempty"`
}

// AccountSeed is an account created before the screen opens.
type AccountSeed struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`

	// Remembered logs the account in during seeding, so the screen opens
	// with its email prefilled.
	Remembered bool `yaml:"remembered,omitempty"`
}

// ValidatorRules mirror the validator section of the CUE config.
type ValidatorRules struct {
	EmailPattern      string `yaml:"email_pattern,omitempty"`
	MinPasswordLength int    `yaml:"min_password_length,omitempty"`
}

// FlowStep is either a dispatch or an await.
type FlowStep struct {
	// Dispatch names a view action: email_changed, password_changed or
	// login_clicked.
	Dispatch string `yaml:"dispatch,omitempty"`

	// Value is the field content for email_changed and password_changed.
	Value string `yaml:"value,omitempty"`

	// Await blocks until the state matches every listed field.
	Await map[string]interface{} `yaml:"await,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an action with the tag (and args subset) was dispatched
	// - "trace_order": the tags were dispatched in this order
	// - "trace_count": the tag was dispatched exactly Count times
	// - "final_state": the final state matches Expect (subset)
	// - "effect_contains": an effect of kind Effect matching Expect was published
	// - "effect_count": Count effects of kind Effect were published
	Type string `yaml:"type"`

	// Action is an action tag (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args are the expected action arguments (trace_contains, subset match).
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Actions is the expected tag order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Effect is an effect kind: navigate or show_snack.
	Effect string `yaml:"effect,omitempty"`

	// Expect holds expected fields (final_state, effect_contains).
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number of occurrences.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains  = "trace_contains"
	AssertTraceOrder     = "trace_order"
	AssertTraceCount     = "trace_count"
	AssertFinalState     = "final_state"
	AssertEffectContains = "effect_contains"
	AssertEffectCount    = "effect_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Validation problems are reported all at once.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := ValidateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// ValidateScenario checks required fields. The returned error combines every
// problem found; multierr.Errors splits it.
func ValidateScenario(s *Scenario) error {
	var err error

	if s.Name == "" {
		err = multierr.Append(err, fmt.Errorf("name is required"))
	}
	if s.Description == "" {
		err = multierr.Append(err, fmt.Errorf("description is required"))
	}
	if len(s.Flow) == 0 {
		err = multierr.Append(err, fmt.Errorf("flow list is required and must be non-empty"))
	}
	if len(s.Assertions) == 0 {
		err = multierr.Append(err, fmt.Errorf("assertions list is required and must be non-empty"))
	}

	seen := make(map[string]bool)
	for i, a := range s.Accounts {
		if a.Email == "" || a.Password == "" {
			err = multierr.Append(err, fmt.Errorf("accounts[%d]: email and password are required", i))
		}
		if seen[a.Email] {
			err = multierr.Append(err, fmt.Errorf("accounts[%d]: duplicate email %q", i, a.Email))
		}
		seen[a.Email] = true
	}

	if s.Validator != nil && s.Validator.MinPasswordLength < 0 {
		err = multierr.Append(err, fmt.Errorf("validator: min_password_length must be non-negative"))
	}

	for i, step := range s.Flow {
		err = multierr.Append(err, validateStep(i, step))
	}

	for i, assertion := range s.Assertions {
		err = multierr.Append(err, validateAssertion(i, &assertion))
	}

	return err
}

func validateStep(index int, step FlowStep) error {
	switch {
	case step.Dispatch != "" && step.Await != nil:
		return fmt.Errorf("flow[%d]: dispatch and await are exclusive", index)
	case step.Dispatch == "" && len(step.Await) == 0:
		return fmt.Errorf("flow[%d]: dispatch or await is required", index)
	case step.Dispatch != "":
		if _, err := parseAction(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", index, err)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertEffectContains, AssertEffectCount:
		if a.Effect != EffectNavigate && a.Effect != EffectShowSnack {
			return fmt.Errorf("assertions[%d]: unknown effect %q", index, a.Effect)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
