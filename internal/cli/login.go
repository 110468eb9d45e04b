package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/cardinal/internal/account"
	"github.com/roach88/cardinal/internal/login"
	"github.com/roach88/cardinal/internal/metrics"
	"github.com/roach88/cardinal/internal/store"
)

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions
	Email    string
	Password string
}

// LoginResult is the payload of a successful login.
type LoginResult struct {
	Account account.Account `json:"account"`
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in through the login screen store",
		Long: `Drive the login screen store headlessly.

Opens the configured account database, types the email and password into
the form, waits for the form to validate, clicks login and reports the
resulting effect. With no --email, the remembered account is used.

Exit codes:
  0 - Logged in
  1 - Form incorrect or login rejected
  2 - Command error (bad config, database unavailable, etc.)

Example:
  cardinal login --email test@mail.com --password secret1
  cardinal login --config ./cardinal.cue --password secret1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "account email (default: remembered account)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password (required)")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runLogin(opts *LoginOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logger := newLogger(opts.RootOptions, cfg, cmd.ErrOrStderr())

	repo, err := account.Open(cfg.Database, account.WithCost(cfg.BcryptCost))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	validator, err := login.NewRuleValidator(cfg.Validator.EmailPattern, cfg.Validator.MinPasswordLength)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid validator config", err)
	}

	reg := prometheus.NewRegistry()
	rec, err := metrics.NewRecorder(reg, "login")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register metrics", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	io := new(errgroup.Group)

	st, err := login.New(ctx, login.Deps{
		Repository:   repo,
		Validator:    validator,
		IO:           io,
		Timeout:      cfg.Timeout(),
		Logger:       logger,
		StoreOptions: []store.Option{store.WithRecorder(rec)},
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open login screen", err)
	}
	defer st.Dispose()

	email := opts.Email
	if email == "" {
		email = st.State().Email
	}
	if email == "" {
		return outputLoginError(formatter, ErrCodeNoAccount, "no --email given and no remembered account", nil)
	}
	formatter.VerboseLog("Logging in as %s", email)

	effect, err := submitForm(ctx, st, validator, email, opts.Password, cfg.Timeout())
	if err != nil {
		return outputLoginError(formatter, ErrCodeFormIncorrect, err.Error(), st.State())
	}

	if err := st.Shutdown(ctx); err != nil {
		logger.Warn("store shutdown interrupted", "error", err)
	}
	if err := io.Wait(); err != nil {
		logger.Warn("repository call failed", "error", err)
	}
	logMetrics(formatter, reg)

	switch e := effect.(type) {
	case login.Navigate:
		if opts.Format == "json" {
			return formatter.Success(LoginResult{Account: e.Account})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged in as %s (account %d)\n", e.Account.Email, e.Account.ID)
		return nil
	case login.ShowSnack:
		return outputLoginError(formatter, ErrCodeLoginFailed, e.Message, nil)
	default:
		return WrapExitError(ExitCommandError, "unexpected effect", fmt.Errorf("%T", effect))
	}
}

// submitForm types the credentials, waits for the form to validate, clicks
// login and returns the first effect.
func submitForm(ctx context.Context, st *login.Store, v login.Validator, email, password string, timeout time.Duration) (login.Effect, error) {
	if !v.Validate(email, password) {
		return nil, errors.New("form incorrect: check the email format and password length")
	}

	effects := make(chan login.Effect, 1)
	st.SubscribeEffects(ctx, func(e login.Effect) {
		select {
		case effects <- e:
		default:
		}
	})

	ready := make(chan struct{})
	readyCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	st.SubscribeState(readyCtx, func(s login.State) {
		if s.Email == email && s.Password == password && s.IsFormCorrect {
			cancel()
			select {
			case <-ready:
			default:
				close(ready)
			}
		}
	})

	if err := st.Dispatch(login.EmailChanged{Email: email}); err != nil {
		return nil, err
	}
	if err := st.Dispatch(login.PasswordChanged{Password: password}); err != nil {
		return nil, err
	}

	select {
	case <-ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := st.Dispatch(login.LoginClicked{}); err != nil {
		return nil, err
	}

	// The login call is already bounded by timeout; this only guards a
	// pipeline that died before publishing.
	wait := timeout + time.Second
	if timeout <= 0 {
		wait = time.Minute
	}
	select {
	case e := <-effects:
		return e, nil
	case <-time.After(wait):
		return nil, errors.New("no response from login pipeline")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func outputLoginError(f *OutputFormatter, code, message string, details interface{}) error {
	if err := f.Error(code, message, details); err != nil {
		return err
	}
	return NewExitError(ExitFailure, message)
}

// logMetrics writes the store counters in verbose mode.
func logMetrics(f *OutputFormatter, reg *prometheus.Registry) {
	if !f.Verbose {
		return
	}
	families, err := reg.Gather()
	if err != nil {
		slog.Debug("gather metrics", "error", err)
		return
	}

	lines := make([]string, 0, len(families))
	for _, mf := range families {
		var total float64
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		lines = append(lines, fmt.Sprintf("%s %g", mf.GetName(), total))
	}
	sort.Strings(lines)
	for _, l := range lines {
		f.VerboseLog("%s", l)
	}
}
