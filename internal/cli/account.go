package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cardinal/internal/account"
)

// NewAccountCommand creates the account command group.
func NewAccountCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts in the configured database",
	}

	cmd.AddCommand(newAccountAddCommand(rootOpts))
	cmd.AddCommand(newAccountShowCommand(rootOpts))

	return cmd
}

func newAccountAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <email> <password>",
		Short: "Register an account",
		Long: `Register an account in the configured database.

Emails are case-folded; registering the same address twice fails.

Example:
  cardinal account add test@mail.com secret1 --config ./cardinal.cue`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountAdd(opts, args[0], args[1], cmd)
		},
	}
}

func newAccountShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Show the remembered account",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountShow(opts, cmd)
		},
	}
}

func runAccountAdd(opts *RootOptions, email, password string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	repo, err := openRepository(opts)
	if err != nil {
		return err
	}
	defer repo.Close()

	acct, err := repo.Create(cmd.Context(), email, password)
	switch {
	case errors.Is(err, account.ErrAccountExists):
		return outputLoginError(formatter, ErrCodeAccountExists, err.Error(), nil)
	case errors.Is(err, account.ErrInvalidInput):
		return outputLoginError(formatter, ErrCodeGeneric, err.Error(), nil)
	case err != nil:
		return WrapExitError(ExitCommandError, "failed to create account", err)
	}

	if opts.Format == "json" {
		return formatter.Success(acct)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Account %d created for %s\n", acct.ID, acct.Email)
	return nil
}

func runAccountShow(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	repo, err := openRepository(opts)
	if err != nil {
		return err
	}
	defer repo.Close()

	acct, err := repo.GetAccount(cmd.Context())
	if errors.Is(err, account.ErrNotFound) {
		return outputLoginError(formatter, ErrCodeNoAccount, "no account has logged in yet", nil)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read account", err)
	}

	if opts.Format == "json" {
		return formatter.Success(acct)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (account %d)\n", acct.Email, acct.ID)
	return nil
}

// openRepository opens the configured account database.
func openRepository(opts *RootOptions) (*account.Repository, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	repo, err := account.Open(cfg.Database, account.WithCost(cfg.BcryptCost))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return repo, nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
