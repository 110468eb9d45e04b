package harness

import (
	"fmt"

	"github.com/roach88/cardinal/internal/login"
)

// View action names used in scenario files.
const (
	DispatchEmailChanged    = "email_changed"
	DispatchPasswordChanged = "password_changed"
	DispatchLoginClicked    = "login_clicked"
)

// Effect kinds recorded in the trace.
const (
	EffectNavigate  = "navigate"
	EffectShowSnack = "show_snack"
)

// TraceEvent is one recorded action or effect.
type TraceEvent struct {
	Type string                 `json:"type"` // "action" or "effect"
	Tag  string                 `json:"tag"`  // action tag or effect kind
	Args map[string]interface{} `json:"args,omitempty"`
	Seq  int64                  `json:"seq"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every step ran and every assertion held.
	Pass bool `json:"pass"`

	// Actions are the actions seen on the action bus, in dispatch order.
	Actions []TraceEvent `json:"actions"`

	// States are the observed states, starting with the initial one.
	States []login.State `json:"states"`

	// Effects are the published side effects, in publish order.
	Effects []TraceEvent `json:"effects"`

	// Dropped counts clicks discarded while a login was in flight.
	Dropped int `json:"dropped"`

	// Final is the state after every pipeline drained.
	Final login.State `json:"final_state"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Actions: []TraceEvent{},
		States:  []login.State{},
		Effects: []TraceEvent{},
		Errors:  []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddActionTrace records a dispatched action.
func (r *Result) AddActionTrace(a login.Action) {
	r.Actions = append(r.Actions, TraceEvent{
		Type: "action",
		Tag:  string(a.Tag()),
		Args: actionArgs(a),
		Seq:  int64(len(r.Actions) + 1),
	})
}

// AddEffectTrace records a published effect.
func (r *Result) AddEffectTrace(e login.Effect) {
	kind, args := effectArgs(e)
	r.Effects = append(r.Effects, TraceEvent{
		Type: "effect",
		Tag:  kind,
		Args: args,
		Seq:  int64(len(r.Effects) + 1),
	})
}

// parseAction maps a dispatch step to a view action.
func parseAction(step FlowStep) (login.Action, error) {
	switch step.Dispatch {
	case DispatchEmailChanged:
		return login.EmailChanged{Email: step.Value}, nil
	case DispatchPasswordChanged:
		return login.PasswordChanged{Password: step.Value}, nil
	case DispatchLoginClicked:
		return login.LoginClicked{}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", step.Dispatch)
	}
}

func actionArgs(a login.Action) map[string]interface{} {
	switch a := a.(type) {
	case login.EmailChanged:
		return map[string]interface{}{"email": a.Email}
	case login.PasswordChanged:
		return map[string]interface{}{"password": a.Password}
	case login.LoginFailed:
		return map[string]interface{}{"message": a.Message}
	case login.LoginSucceeded:
		return map[string]interface{}{"id": a.Account.ID, "email": a.Account.Email}
	default:
		return nil
	}
}

func effectArgs(e login.Effect) (string, map[string]interface{}) {
	switch e := e.(type) {
	case login.Navigate:
		return EffectNavigate, map[string]interface{}{"id": e.Account.ID, "email": e.Account.Email}
	case login.ShowSnack:
		return EffectShowSnack, map[string]interface{}{"message": e.Message}
	default:
		return fmt.Sprintf("%T", e), nil
	}
}
