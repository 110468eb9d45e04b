package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginCommand_Success(t *testing.T) {
	cfg := writeConfig(t)

	_, err := execute(t, "account", "add", "test@mail.com", "secret1", "--config", cfg)
	require.NoError(t, err)

	out, err := execute(t, "login", "--email", "test@mail.com", "--password", "secret1", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Logged in as test@mail.com (account 1)")
}

func TestLoginCommand_RememberedAccountJSON(t *testing.T) {
	cfg := writeConfig(t)

	_, err := execute(t, "account", "add", "test@mail.com", "secret1", "--config", cfg)
	require.NoError(t, err)
	_, err = execute(t, "login", "--email", "test@mail.com", "--password", "secret1", "--config", cfg)
	require.NoError(t, err)

	out, err := execute(t, "login", "--password", "secret1", "--config", cfg, "--format", "json")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "test@mail.com", data["account"].(map[string]interface{})["email"])
}

func TestLoginCommand_WrongPassword(t *testing.T) {
	cfg := writeConfig(t)

	_, err := execute(t, "account", "add", "test@mail.com", "secret1", "--config", cfg)
	require.NoError(t, err)

	out, err := execute(t, "login", "--email", "test@mail.com", "--password", "wrong-pass", "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E_LOGIN_FAILED]: invalid email or password")
}

func TestLoginCommand_FormIncorrect(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "login", "--email", "not-an-email", "--password", "secret1", "--config", cfg, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeFormIncorrect, resp.Error.Code)
}

func TestLoginCommand_NoRememberedAccount(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "login", "--password", "secret1", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, out, "Error [E_NO_ACCOUNT]")
}

func TestLoginCommand_PasswordRequired(t *testing.T) {
	_, err := execute(t, "login", "--email", "test@mail.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"password" not set`)
}
