package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/roach88/cardinal/internal/account"
	"github.com/roach88/cardinal/internal/flow"
	"github.com/roach88/cardinal/internal/store"
)

// MessageTimeout is shown when the repository does not answer in time.
const MessageTimeout = "login timed out"

// Repository is the account backend of the login screen.
// *account.Repository implements it.
type Repository interface {
	// GetAccount returns the remembered account or account.ErrNotFound.
	GetAccount(ctx context.Context) (account.Account, error)
	Login(ctx context.Context, email, password string) (account.Account, error)
}

// Store is the login screen store.
type Store = store.Store[State, Action, Effect]

// Deps wires a login screen.
type Deps struct {
	Repository Repository

	// Validator defaults to DefaultValidator().
	Validator Validator

	// IO runs repository calls. Nil runs them on the pipeline goroutine.
	// The login pipeline holds one IO task while it runs; IO must not be
	// size-limited.
	IO flow.Scheduler

	// Timeout bounds one login call. Zero means no bound.
	Timeout time.Duration

	// Clock measures Timeout. Defaults to the wall clock.
	Clock clock.Clock

	Logger *slog.Logger

	// StoreOptions are applied after the options derived from Deps.
	StoreOptions []store.Option
}

// New loads the remembered account, creates the store and starts the form
// and login pipelines. They run until ctx is done or the store is disposed.
func New(ctx context.Context, deps Deps) (*Store, error) {
	if deps.Repository == nil {
		return nil, errors.New("login: repository is required")
	}
	if deps.Validator == nil {
		deps.Validator = DefaultValidator()
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	initial := State{}
	remembered, err := deps.Repository.GetAccount(ctx)
	switch {
	case err == nil:
		initial = StateFromAccount(remembered)
	case errors.Is(err, account.ErrNotFound):
	default:
		return nil, fmt.Errorf("load remembered account: %w", err)
	}

	opts := append([]store.Option{store.WithLogger(deps.Logger)}, deps.StoreOptions...)
	st := store.New[State, Action, Effect](initial, opts...)

	form := st.Pipe(st.Actions().OfType(TagForm).Unlimited()).
		Reduce(Reduce).
		TransformAction(func(context.Context, Action) (Action, error) {
			s := st.State()
			if deps.Validator.Validate(s.Email, s.Password) {
				return FormVerified{}, nil
			}
			return FormIncorrect{}, nil
		}).
		Reduce(Reduce)

	call := &loginCall{store: st, deps: deps}
	submit := st.Pipe(st.Actions().OfType(TagLoginClicked).Unlimited()).
		DropWhileBusy().
		Reduce(Reduce).
		TransformAction(call.run)
	if deps.IO != nil {
		submit = submit.FlowOn(deps.IO)
	}
	submit = submit.
		Reduce(Reduce).
		SideEffect(effectFor)

	for _, p := range []*store.Pipeline[State, Action, Effect]{form, submit} {
		if _, err := p.Start(ctx, nil); err != nil {
			st.Dispose()
			return nil, err
		}
	}

	deps.Logger.Debug("login screen ready", "remembered", initial.Email != "")
	return st, nil
}

// loginCall submits the current form to the repository.
type loginCall struct {
	store *Store
	deps  Deps
}

func (c *loginCall) run(ctx context.Context, _ Action) (Action, error) {
	s := c.store.State()

	callCtx := ctx
	if c.deps.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = c.deps.Clock.WithTimeout(ctx, c.deps.Timeout)
		defer cancel()
	}

	acct, err := c.deps.Repository.Login(callCtx, s.Email, s.Password)
	if err == nil {
		c.deps.Logger.Info("login succeeded", "email", acct.Email)
		return LoginSucceeded{Account: acct}, nil
	}

	// Pipeline cancellation is not a login failure.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = MessageTimeout
	}
	c.deps.Logger.Info("login failed", "email", s.Email, "error", err)
	return LoginFailed{Message: msg}, nil
}
