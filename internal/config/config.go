// Package config loads the assetsync configuration.
//
// Values are layered with priority env > file > defaults:
//
//	Defaults()            built-in values
//	assetsync.yaml        optional file, unknown keys rejected
//	ASSETSYNC_* variables override single fields
//
// The merged result is validated with go-playground/validator struct tags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/assetsync/internal/engine"
)

// Endpoint kinds.
const (
	KindSQLite = "sqlite"
	KindREST   = "rest"
)

// Config is the complete assetsync configuration.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after creation.
type Config struct {
	Source  Endpoint      `yaml:"source" validate:"required"`
	Target  Endpoint      `yaml:"target" validate:"required"`
	Sync    SyncConfig    `yaml:"sync"`
	Inspect InspectConfig `yaml:"inspect"`
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
}

// Endpoint describes how to reach one store instance.
type Endpoint struct {
	// Kind selects the store implementation: sqlite or rest.
	Kind string `yaml:"kind" validate:"required,oneof=sqlite rest"`

	// DSN is the sqlite database path.
	DSN string `yaml:"dsn" validate:"required_if=Kind sqlite"`

	// URL is the base URL of a remote store API.
	URL string `yaml:"url" validate:"required_if=Kind rest"`

	// Token is sent as a bearer token to a remote store API.
	Token string `yaml:"token"`

	// Timeout bounds each remote request.
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`

	// CacheBytes sizes the read-through cache of remote Get lookups. Zero
	// disables the cache.
	CacheBytes int64 `yaml:"cache_bytes" validate:"gte=0"`
}

// SyncConfig holds the walk options.
type SyncConfig struct {
	Policy           string `yaml:"policy" validate:"oneof=strict lenient"`
	SkipRoot         bool   `yaml:"skip_root"`
	SyncDependencies bool   `yaml:"sync_dependencies"`
	FollowReferences bool   `yaml:"follow_references"`
	StripPhantoms    bool   `yaml:"strip_phantoms"`
}

// InspectConfig tunes the read-only inspect scan.
type InspectConfig struct {
	Concurrency int `yaml:"concurrency" validate:"gte=1,lte=64"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// ServerConfig configures the store API server.
type ServerConfig struct {
	Addr  string `yaml:"addr" validate:"required"`
	Token string `yaml:"token"`
}

// Defaults returns the built-in configuration: two local sqlite files,
// strict policy with dependency sync on.
func Defaults() Config {
	return Config{
		Source: Endpoint{Kind: KindSQLite, DSN: "source.db", Timeout: 30 * time.Second},
		Target: Endpoint{Kind: KindSQLite, DSN: "target.db", Timeout: 30 * time.Second},
		Sync: SyncConfig{
			Policy:           string(engine.Strict),
			SyncDependencies: true,
		},
		Inspect: InspectConfig{Concurrency: 4},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Server:  ServerConfig{Addr: ":8080"},
	}
}

// Load builds the configuration from defaults, the file at path (skipped
// when path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	applyEnv(&cfg, os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from ASSETSYNC_* variables. Values that do not
// parse are ignored.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(name); ok && v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(name); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	endpoint := func(prefix string, e *Endpoint) {
		str(prefix+"_KIND", &e.Kind)
		str(prefix+"_DSN", &e.DSN)
		str(prefix+"_URL", &e.URL)
		str(prefix+"_TOKEN", &e.Token)
		duration(prefix+"_TIMEOUT", &e.Timeout)
		if v, ok := lookup(prefix + "_CACHE_BYTES"); ok && v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				e.CacheBytes = n
			}
		}
	}

	endpoint("ASSETSYNC_SOURCE", &cfg.Source)
	endpoint("ASSETSYNC_TARGET", &cfg.Target)

	str("ASSETSYNC_POLICY", &cfg.Sync.Policy)
	boolean("ASSETSYNC_SKIP_ROOT", &cfg.Sync.SkipRoot)
	boolean("ASSETSYNC_SYNC_DEPENDENCIES", &cfg.Sync.SyncDependencies)
	boolean("ASSETSYNC_FOLLOW_REFERENCES", &cfg.Sync.FollowReferences)
	boolean("ASSETSYNC_STRIP_PHANTOMS", &cfg.Sync.StripPhantoms)

	if v, ok := lookup("ASSETSYNC_INSPECT_CONCURRENCY"); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Inspect.Concurrency = n
		}
	}

	str("ASSETSYNC_LOG_LEVEL", &cfg.Logging.Level)
	str("ASSETSYNC_LOG_FORMAT", &cfg.Logging.Format)
	str("ASSETSYNC_SERVER_ADDR", &cfg.Server.Addr)
	str("ASSETSYNC_SERVER_TOKEN", &cfg.Server.Token)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their YAML names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the configuration against its struct tags.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s: value %q fails %s", field, fmt.Sprint(fe.Value()), rule))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// WalkOptions converts the sync section.
func (s SyncConfig) WalkOptions() (engine.WalkOptions, error) {
	policy, err := engine.ParsePolicy(s.Policy)
	if err != nil {
		return engine.WalkOptions{}, err
	}
	return engine.WalkOptions{
		Policy:           policy,
		SkipRoot:         s.SkipRoot,
		SyncDependencies: s.SyncDependencies,
		FollowReferences: s.FollowReferences,
		StripPhantoms:    s.StripPhantoms,
	}, nil
}
