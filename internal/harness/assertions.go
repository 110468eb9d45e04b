package harness

import (
	"fmt"
	"reflect"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Actions or effects, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %v\n", i+1, event.Tag, event.Args)
		}
	}

	return buf.String()
}

// assertTraceContains checks if an action with the tag and args (subset match)
// was dispatched.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Tag == assertion.Action && matchArgs(event.Args, assertion.Args) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %v", assertion.Action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks the first occurrences of the tags are in order.
// Intervening actions are allowed.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if _, seen := positions[event.Tag]; !seen {
			positions[event.Tag] = i + 1
		}
	}

	for _, tag := range assertion.Actions {
		if positions[tag] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", tag),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev, curr := assertion.Actions[i-1], assertion.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks the tag was dispatched exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Tag == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState checks the final state against Expect (subset match).
func assertFinalState(result *Result, assertion Assertion) error {
	fields, err := stateFields(result.Final)
	if err != nil {
		return err
	}

	for key, expected := range assertion.Expect {
		actual, exists := fields[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in state %v", key, fields),
			}
		}
		if !valuesEqual(actual, expected) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expected, expected),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actual, actual),
			}
		}
	}

	return nil
}

// assertEffectContains checks an effect of the kind with matching args was
// published.
func assertEffectContains(effects []TraceEvent, assertion Assertion) error {
	for _, event := range effects {
		if event.Tag == assertion.Effect && matchArgs(event.Args, assertion.Expect) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertEffectContains,
		Expected: fmt.Sprintf("effect %s with %v", assertion.Effect, assertion.Expect),
		Actual:   "not published",
		Trace:    effects,
	}
}

// assertEffectCount checks exactly Count effects of the kind were published.
func assertEffectCount(effects []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range effects {
		if event.Tag == assertion.Effect {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertEffectCount,
			Expected: fmt.Sprintf("%d %s effects", assertion.Count, assertion.Effect),
			Actual:   fmt.Sprintf("%d effects", count),
			Trace:    effects,
		}
	}

	return nil
}

// matchArgs checks if actual contains all expected keys with equal values.
// Extra keys in actual are ignored.
func matchArgs(actual map[string]interface{}, expected map[string]interface{}) bool {
	for key, expectedVal := range expected {
		actualVal, exists := actual[key]
		if !exists {
			return false
		}
		if !valuesEqual(actualVal, expectedVal) {
			return false
		}
	}
	return true
}

// valuesEqual compares two values. Numbers compare by value whatever their
// Go type, since YAML decodes int, JSON decodes float64 and traces hold int64.
func valuesEqual(actual, expected interface{}) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}

	a, aNum := toFloat(actual)
	e, eNum := toFloat(expected)
	if aNum || eNum {
		return aNum && eNum && a == e
	}

	return reflect.DeepEqual(actual, expected)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Actions, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Actions, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Actions, assertion)
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertEffectContains:
			err = assertEffectContains(result.Effects, assertion)
		case AssertEffectCount:
			err = assertEffectCount(result.Effects, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
