package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ivr-voting/models"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	}
}

func TestLoad_Env(t *testing.T) {
	cfg, err := load("", env(map[string]string{
		EnvLoginURL:          "https://example.com/api/auth-event/{{election_id}}/authenticate",
		EnvUserIDKey:         "dni",
		EnvVoterPINKey:       "code",
		EnvGetElectionURL:    "https://example.com/api/election/{{election_id}}",
		EnvRecordVoteURL:     "https://example.com/api/election/{{election_id}}/voter/{{voter_id}}",
		EnvVoteEncodingArray: `{"1": 100, "2": 200}`,
		EnvHTTPTimeout:       "3s",
		EnvWorkers:           "2",
	}))
	require.NoError(t, err)

	assert.Equal(t, "dni", cfg.UserIDKey)
	assert.Equal(t, map[string]uint32{"1": 100, "2": 200}, cfg.VoteEncoding)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout.Duration)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, DefaultTracingLevel, cfg.TracingLevel)
	assert.Equal(t, DefaultQueueSize, cfg.QueueSize)
	assert.False(t, cfg.StaticKey())
	assert.NoError(t, cfg.ValidateAuthentication())
	assert.NoError(t, cfg.ValidateRecordVote())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ivr.toml")
	file := `
login_url = "https://file.example.com/login"
user_id_key = "user"
voter_pin_key = "pin"
record_vote_url = "https://file.example.com/vote"
public_key = '{"p":"","q":"","g":"","y":"4"}'
http_timeout = "750ms"

[vote_encoding]
"Yes" = 1
"No" = 2
`
	require.NoError(t, os.WriteFile(path, []byte(file), 0644))

	cfg, err := load(path, env(map[string]string{EnvLoginURL: "https://env.example.com/login"}))
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/login", cfg.LoginURL)
	assert.Equal(t, 750*time.Millisecond, cfg.HTTPTimeout.Duration)
	assert.Equal(t, uint32(2), cfg.VoteEncoding["No"])
	assert.True(t, cfg.StaticKey())
	assert.NoError(t, cfg.ValidateRecordVote())
}

func TestLoad_Invalid(t *testing.T) {
	_, err := load("", env(map[string]string{EnvVoteEncodingArray: `["1"]`}))
	assert.ErrorIs(t, err, models.ErrMissingInput)

	_, err = load("", env(map[string]string{EnvVoteEncodingArray: `{"1": -4}`}))
	assert.ErrorIs(t, err, models.ErrMissingInput)

	_, err = load("", env(map[string]string{EnvHTTPTimeout: "soon"}))
	assert.Error(t, err)

	_, err = load("", env(map[string]string{EnvWorkers: "many"}))
	assert.Error(t, err)

	_, err = load(filepath.Join(t.TempDir(), "missing.toml"), env(nil))
	assert.Error(t, err)
}

func TestValidate_Missing(t *testing.T) {
	cfg, err := load("", env(map[string]string{EnvUserIDKey: "user"}))
	require.NoError(t, err)

	err = cfg.ValidateAuthentication()
	assert.ErrorIs(t, err, models.ErrMissingInput)
	assert.Contains(t, err.Error(), EnvLoginURL)
	assert.Contains(t, err.Error(), EnvVoterPINKey)
	assert.NotContains(t, err.Error(), EnvUserIDKey)

	err = cfg.ValidateRecordVote()
	assert.ErrorIs(t, err, models.ErrMissingInput)
	assert.Contains(t, err.Error(), EnvGetElectionURL)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger("debug", &buf)
	require.NoError(t, err)
	log.WithField("voter_id", "abc").Debug("hello")
	assert.Contains(t, buf.String(), "voter_id=abc")
	assert.NotContains(t, buf.String(), "time=")

	_, err = NewLogger("loud", nil)
	assert.Error(t, err)
}
