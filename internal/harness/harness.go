package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/cardinal/internal/account"
	"github.com/roach88/cardinal/internal/flow"
	"github.com/roach88/cardinal/internal/login"
	"github.com/roach88/cardinal/internal/store"
	"github.com/roach88/cardinal/internal/testutil"
)

// DefaultAwaitTimeout bounds each await step.
const DefaultAwaitTimeout = 2 * time.Second

// Option configures Run.
type Option func(*settings)

type settings struct {
	logger       *slog.Logger
	validator    login.Validator
	loginTimeout time.Duration
	awaitTimeout time.Duration
	recorder     store.Recorder
}

// WithLogger sets the logger for the store and pipelines.
// Default: logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithValidator sets the form validator. A scenario's own validator rules
// take precedence.
func WithValidator(v login.Validator) Option {
	return func(s *settings) {
		s.validator = v
	}
}

// WithLoginTimeout bounds each login call. Default: none.
func WithLoginTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.loginTimeout = d
	}
}

// WithAwaitTimeout bounds each await step. Default: DefaultAwaitTimeout.
func WithAwaitTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.awaitTimeout = d
	}
}

// WithRecorder additionally reports store activity to r, e.g. a
// metrics.Recorder.
func WithRecorder(r store.Recorder) Option {
	return func(s *settings) {
		s.recorder = r
	}
}

// Harness runs one scenario against a login screen.
type Harness struct {
	st     *login.Store
	repo   *account.Repository
	rec    *testutil.Recorder
	logger *slog.Logger

	mu      sync.Mutex
	result  *Result
	changed chan struct{}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory account database, with
// fixed pipeline IDs, so identical scenarios produce identical results.
//
// Execution flow:
//  1. Create a fresh in-memory account database and seed accounts
//  2. Open the login screen and attach action, state and effect observers
//  3. Execute flow steps (dispatch, await)
//  4. Shut the store down so every pipeline drains
//  5. Evaluate assertions against the recorded trace and final state
//
// Returned errors are setup failures; step and assertion failures are
// reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := settings{
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		awaitTimeout: DefaultAwaitTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	repo, err := account.Open(":memory:", account.WithCost(bcrypt.MinCost))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory account database: %w", err)
	}
	defer repo.Close()

	if err := seedAccounts(ctx, repo, scenario.Accounts); err != nil {
		return nil, fmt.Errorf("failed to seed accounts: %w", err)
	}

	validator := cfg.validator
	if scenario.Validator != nil {
		validator, err = scenarioValidator(scenario.Validator)
		if err != nil {
			return nil, err
		}
	}

	h := &Harness{
		repo:    repo,
		rec:     testutil.NewRecorder(),
		logger:  cfg.logger,
		result:  NewResult(),
		changed: make(chan struct{}, 1),
	}

	var recorder store.Recorder = h.rec
	if cfg.recorder != nil {
		recorder = teeRecorder{h.rec, cfg.recorder}
	}

	io := new(errgroup.Group)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	st, err := login.New(runCtx, login.Deps{
		Repository: repo,
		Validator:  validator,
		IO:         io,
		Timeout:    cfg.loginTimeout,
		Logger:     cfg.logger,
		StoreOptions: []store.Option{
			store.WithRecorder(recorder),
			store.WithIDGenerator(testutil.NewFixedIDGenerator(scenario.PipelineID)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open login screen: %w", err)
	}
	h.st = st
	defer st.Dispose()

	observers, err := h.observe(runCtx)
	if err != nil {
		return nil, err
	}

	h.executeFlow(runCtx, scenario.Flow, cfg.awaitTimeout)

	if err := st.Shutdown(runCtx); err != nil {
		return nil, fmt.Errorf("failed to drain store: %w", err)
	}
	for _, o := range observers {
		<-o.Done()
	}
	if err := st.Wait(); err != nil {
		h.result.AddError(fmt.Sprintf("pipeline fault: %v", err))
	}
	if err := io.Wait(); err != nil {
		h.result.AddError(fmt.Sprintf("io fault: %v", err))
	}

	result := h.snapshot()
	result.Final = st.State()
	result.Dropped = len(h.rec.Dropped())

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// observe attaches the action, state and effect recorders.
func (h *Harness) observe(ctx context.Context) ([]*flow.Handle, error) {
	actions, err := h.st.Pipe(h.st.Actions().Any().Unlimited()).
		OnEach(func(_ context.Context, a login.Action) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.result.AddActionTrace(a)
			return nil
		}).
		Start(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to observe actions: %w", err)
	}

	states := h.st.SubscribeState(ctx, func(s login.State) {
		h.mu.Lock()
		h.result.States = append(h.result.States, s)
		h.mu.Unlock()

		select {
		case h.changed <- struct{}{}:
		default:
		}
	})

	effects := h.st.SubscribeEffects(ctx, func(e login.Effect) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.result.AddEffectTrace(e)
	})

	return []*flow.Handle{actions, states, effects}, nil
}

// executeFlow runs the steps in order and stops at the first failure.
func (h *Harness) executeFlow(ctx context.Context, steps []FlowStep, awaitTimeout time.Duration) {
	for i, step := range steps {
		if step.Dispatch != "" {
			a, err := parseAction(step)
			if err == nil {
				err = h.st.Dispatch(a)
			}
			if err != nil {
				h.fail(fmt.Sprintf("flow[%d]: dispatch %s: %v", i, step.Dispatch, err))
				return
			}
			h.logger.Debug("dispatched", "step", i, "tag", a.Tag())
			continue
		}

		if err := h.await(ctx, step.Await, awaitTimeout); err != nil {
			h.fail(fmt.Sprintf("flow[%d]: %v", i, err))
			return
		}
	}
}

// await blocks until the current state matches want or timeout elapses.
func (h *Harness) await(ctx context.Context, want map[string]interface{}, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		current, err := stateFields(h.st.State())
		if err != nil {
			return err
		}
		if matchArgs(current, want) {
			return nil
		}

		select {
		case <-h.changed:
		case <-timer.C:
			return fmt.Errorf("await %v: timed out after %s, state %v", want, timeout, current)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *Harness) fail(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.result.AddError(msg)
}

func (h *Harness) snapshot() *Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

func seedAccounts(ctx context.Context, repo *account.Repository, seeds []AccountSeed) error {
	for _, s := range seeds {
		if _, err := repo.Create(ctx, s.Email, s.Password); err != nil {
			return err
		}
		if s.Remembered {
			if _, err := repo.Login(ctx, s.Email, s.Password); err != nil {
				return err
			}
		}
	}
	return nil
}

func scenarioValidator(rules *ValidatorRules) (login.Validator, error) {
	pattern := rules.EmailPattern
	if pattern == "" {
		pattern = login.DefaultEmailPattern
	}
	minLen := rules.MinPasswordLength
	if minLen == 0 {
		minLen = login.DefaultMinPasswordLength
	}
	v, err := login.NewRuleValidator(pattern, minLen)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario validator: %w", err)
	}
	return v, nil
}

// stateFields flattens a state to its JSON field map.
func stateFields(s login.State) (map[string]interface{}, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return fields, nil
}

// teeRecorder forwards store activity to two recorders.
type teeRecorder struct {
	a, b store.Recorder
}

func (t teeRecorder) ActionDispatched(tag flow.Tag) {
	t.a.ActionDispatched(tag)
	t.b.ActionDispatched(tag)
}

func (t teeRecorder) ActionDropped(tag flow.Tag) {
	t.a.ActionDropped(tag)
	t.b.ActionDropped(tag)
}

func (t teeRecorder) StateApplied() {
	t.a.StateApplied()
	t.b.StateApplied()
}

func (t teeRecorder) EffectPublished() {
	t.a.EffectPublished()
	t.b.EffectPublished()
}

func (t teeRecorder) PipelineFailed() {
	t.a.PipelineFailed()
	t.b.PipelineFailed()
}
