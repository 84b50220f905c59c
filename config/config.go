// Package config holds the immutable settings of the IVR voting flow. They
// are read once at start-up from an optional TOML file and the environment
// variables the contact-flow functions were deployed with.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"ivr-voting/models"
)

// Environment variable names.
const (
	EnvLoginURL          = "LOGIN_URL"
	EnvUserIDKey         = "USER_ID_KEY"
	EnvVoterPINKey       = "VOTER_PIN_KEY"
	EnvGetElectionURL    = "GET_ELECTION_URL"
	EnvRecordVoteURL     = "RECORD_VOTE_URL"
	EnvVoteEncodingArray = "VOTE_ENCODING_ARRAY"
	EnvPublicKey         = "PUBLIC_KEY"
	EnvElectionID        = "ELECTION_ID"
	EnvHTTPTimeout       = "HTTP_TIMEOUT"
	EnvTracingLevel      = "TRACING_LEVEL"
	EnvListenAddr        = "LISTEN_ADDR"
	EnvWorkers           = "WORKERS"
	EnvQueueSize         = "QUEUE_SIZE"
)

// URL placeholders.
const (
	ElectionIDPlaceholder = "{{election_id}}"
	VoterIDPlaceholder    = "{{voter_id}}"
)

const (
	DefaultHTTPTimeout  = 10 * time.Second
	DefaultTracingLevel = "info"
	DefaultListenAddr   = ":8080"
	DefaultWorkers      = 4
	DefaultQueueSize    = 64
)

// Config is built once by Load and only read afterwards.
type Config struct {
	// Authentication
	LoginURL    string `toml:"login_url"`
	UserIDKey   string `toml:"user_id_key"`
	VoterPINKey string `toml:"voter_pin_key"`
	ElectionID  string `toml:"election_id"`

	// Vote recording
	GetElectionURL    string            `toml:"get_election_url"`
	RecordVoteURL     string            `toml:"record_vote_url"`
	VoteEncoding      map[string]uint32 `toml:"vote_encoding"`
	VoteEncodingArray string            `toml:"vote_encoding_array"`
	PublicKey         string            `toml:"public_key"`

	HTTPTimeout  Duration `toml:"http_timeout"`
	TracingLevel string   `toml:"tracing_level"`
	ListenAddr   string   `toml:"listen_addr"`
	Workers      int      `toml:"workers"`
	QueueSize    int      `toml:"queue_size"`
}

// Duration decodes TOML strings such as "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %v", text, err)
	}
	d.Duration = v
	return nil
}

// Load reads path (skipped when empty) and then applies the environment.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	strs := map[string]*string{
		EnvLoginURL:          &cfg.LoginURL,
		EnvUserIDKey:         &cfg.UserIDKey,
		EnvVoterPINKey:       &cfg.VoterPINKey,
		EnvGetElectionURL:    &cfg.GetElectionURL,
		EnvRecordVoteURL:     &cfg.RecordVoteURL,
		EnvVoteEncodingArray: &cfg.VoteEncodingArray,
		EnvPublicKey:         &cfg.PublicKey,
		EnvElectionID:        &cfg.ElectionID,
		EnvTracingLevel:      &cfg.TracingLevel,
		EnvListenAddr:        &cfg.ListenAddr,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	if v, ok := lookup(EnvHTTPTimeout); ok {
		if err := cfg.HTTPTimeout.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvHTTPTimeout, err)
		}
	}
	for name, dst := range map[string]*int{EnvWorkers: &cfg.Workers, EnvQueueSize: &cfg.QueueSize} {
		if v, ok := lookup(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %v", name, err)
			}
			*dst = n
		}
	}

	if cfg.VoteEncodingArray != "" {
		table, err := ParseVoteEncoding(cfg.VoteEncodingArray)
		if err != nil {
			return nil, err
		}
		cfg.VoteEncoding = table
	}

	cfg.setDefaults()
	return cfg, nil
}

// ParseVoteEncoding decodes a JSON object such as {"1": 100, "2": 200}.
func ParseVoteEncoding(s string) (map[string]uint32, error) {
	table := make(map[string]uint32)
	if err := json.Unmarshal([]byte(s), &table); err != nil {
		return nil, models.WrapError(models.KindMissingInput, err, "%s is not a JSON object of codes", EnvVoteEncodingArray)
	}
	return table, nil
}

func (c *Config) setDefaults() {
	if c.HTTPTimeout.Duration <= 0 {
		c.HTTPTimeout.Duration = DefaultHTTPTimeout
	}
	if c.TracingLevel == "" {
		c.TracingLevel = DefaultTracingLevel
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
}

// StaticKey reports whether the election key comes from configuration.
func (c *Config) StaticKey() bool {
	return strings.TrimSpace(c.PublicKey) != ""
}

// ValidateAuthentication checks the settings the login step needs.
func (c *Config) ValidateAuthentication() error {
	return missing(map[string]string{
		EnvLoginURL:    c.LoginURL,
		EnvUserIDKey:   c.UserIDKey,
		EnvVoterPINKey: c.VoterPINKey,
	})
}

// ValidateRecordVote checks the settings the vote step needs.
func (c *Config) ValidateRecordVote() error {
	required := map[string]string{EnvRecordVoteURL: c.RecordVoteURL}
	if !c.StaticKey() {
		required[EnvGetElectionURL] = c.GetElectionURL
	}
	if err := missing(required); err != nil {
		return err
	}
	if len(c.VoteEncoding) == 0 {
		return models.NewError(models.KindMissingInput, "%s is not configured", EnvVoteEncodingArray)
	}
	return nil
}

func missing(values map[string]string) error {
	var names []string
	for name, v := range values {
		if strings.TrimSpace(v) == "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	return models.NewError(models.KindMissingInput, "%s not configured", strings.Join(names, ", "))
}
