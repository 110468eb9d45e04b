package account

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
)

//go:embed schema.sql
var schemaSQL string

// Account is a registered account as seen by the login screen.
type Account struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Repository provides durable storage for accounts.
// Uses SQLite with a single connection; safe for concurrent use.
type Repository struct {
	db   *sql.DB
	cost int
}

// Option configures Open.
type Option func(*Repository)

// WithCost sets the bcrypt cost for new password hashes.
// Default: bcrypt.DefaultCost.
func WithCost(cost int) Option {
	return func(r *Repository) {
		r.cost = cost
	}
}

// Open creates or opens an account database at path. ":memory:" opens a
// private in-memory database.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times on one path.
func Open(path string, opts ...Option) (*Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has one writer; one connection also keeps ":memory:" alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	r := &Repository{
		db:   db,
		cost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Create registers a new account and returns it.
//
// Returns ErrAccountExists if the normalized email is taken and
// ErrInvalidInput for an empty email or password.
func (r *Repository) Create(ctx context.Context, email, password string) (Account, error) {
	email = r.normalize(email)
	if email == "" || password == "" {
		return Account{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (email, password_hash) VALUES (?, ?)`,
		email, hash)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return Account{}, fmt.Errorf("%w: %s", ErrAccountExists, email)
		}
		return Account{}, fmt.Errorf("insert account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Account{}, fmt.Errorf("insert account: %w", err)
	}
	return Account{ID: id, Email: email}, nil
}

// GetAccount returns the account that logged in most recently.
// Returns ErrNotFound when no login has succeeded yet.
func (r *Repository) GetAccount(ctx context.Context) (Account, error) {
	var a Account
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email FROM accounts
		WHERE login_seq IS NOT NULL
		ORDER BY login_seq DESC
		LIMIT 1
	`).Scan(&a.ID, &a.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("query remembered account: %w", err)
	}
	return a, nil
}

// Login verifies the credentials and marks the account as the most recent
// login. Returns ErrInvalidCredentials on mismatch.
func (r *Repository) Login(ctx context.Context, email, password string) (Account, error) {
	email = r.normalize(email)

	var (
		a    Account
		hash []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM accounts WHERE email = ?`,
		email).Scan(&a.ID, &a.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, fmt.Errorf("query account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE accounts
		SET login_seq = (SELECT COALESCE(MAX(login_seq), 0) + 1 FROM accounts)
		WHERE id = ?
	`, a.ID)
	if err != nil {
		return Account{}, fmt.Errorf("record login: %w", err)
	}
	return a, nil
}

// Count returns the number of registered accounts.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// normalize trims and case-folds email. A Caser is stateful, so each call
// gets its own.
func (r *Repository) normalize(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (r *Repository) verifyPragma(name, expected string) error {
	var value string
	if err := r.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
