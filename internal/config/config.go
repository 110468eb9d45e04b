package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSrc string

// Config is the runtime configuration of the cardinal CLI.
type Config struct {
	Database     string          `json:"database"`
	Log          LogConfig       `json:"log"`
	Validator    ValidatorConfig `json:"validator"`
	LoginTimeout string          `json:"login_timeout"`
	BcryptCost   int             `json:"bcrypt_cost"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// ValidatorConfig holds the login form rules.
type ValidatorConfig struct {
	EmailPattern      string `json:"email_pattern"`
	MinPasswordLength int    `json:"min_password_length"`
}

// Error is a configuration error with its CUE source position.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Default returns the schema defaults.
func Default() *Config {
	cfg, err := Parse(nil, "")
	if err != nil {
		// The embedded schema is always concrete with no input.
		panic(fmt.Sprintf("config: invalid embedded schema: %v", err))
	}
	return cfg
}

// Load reads a CUE config file. An empty path returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse unifies src with the closed #Config schema, requires the result to
// be concrete and decodes it. Unknown fields are errors. A nil src yields
// the defaults.
func Parse(src []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema
	if len(src) > 0 {
		user := ctx.CompileBytes(src, cue.Filename(filename))
		if err := user.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		v = schema.FillPath(cue.ParsePath("config"), user)
	}

	cv := v.LookupPath(cue.ParsePath("config"))
	if err := cv.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var cfg Config
	if err := cv.Decode(&cfg); err != nil {
		return nil, formatCUEError(err)
	}

	if _, err := regexp.Compile(cfg.Validator.EmailPattern); err != nil {
		return nil, &Error{Message: fmt.Sprintf("validator.email_pattern: %v", err)}
	}
	return &cfg, nil
}

// Timeout returns LoginTimeout as a duration. The schema guarantees it
// parses.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.LoginTimeout)
	if err != nil {
		return 0
	}
	return d
}

// Level returns the slog level named by Log.Level.
func (c *Config) Level() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// formatCUEError keeps the first CUE error with its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}

	first := errs[0]
	cfgErr := &Error{Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		cfgErr.Pos = positions[0]
	}
	return cfgErr
}
