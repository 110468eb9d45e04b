// Package harness runs scripted scenarios against the login screen store.
//
// A scenario seeds accounts, dispatches view actions, waits for states and
// asserts on what the store did. Every run records the dispatched actions,
// the observed states, the published effects and the final state, so runs
// can be compared against golden snapshots.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: login_success
//	description: "A registered account logs in"
//	accounts:
//	  - email: test@mail.com
//	    password: secret1
//	    remembered: false
//	flow:
//	  - dispatch: email_changed
//	    value: test@mail.com
//	  - dispatch: password_changed
//	    value: secret1
//	  - await: { is_form_correct: true }
//	  - dispatch: login_clicked
//	assertions:
//	  - type: trace_contains
//	    action: form/email
//	    args: { email: test@mail.com }
//	  - type: effect_contains
//	    effect: navigate
//	    expect: { email: test@mail.com }
//	  - type: final_state
//	    expect: { is_loading: false }
//
// # Assertion Types
//
//   - trace_contains: an action with the tag and matching args was dispatched
//   - trace_order: tags were first dispatched in the given order
//   - trace_count: a tag was dispatched exactly N times
//   - final_state: the drained state matches the expected fields
//   - effect_contains: an effect of a kind with matching fields was published
//   - effect_count: exactly N effects of a kind were published
//
// # Deterministic Testing
//
// Each run uses a fresh in-memory SQLite account database, fixed pipeline
// IDs and a full store shutdown before assertions, so a scenario whose
// dispatches are separated by awaits yields the same snapshot on every run.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/login_success.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
