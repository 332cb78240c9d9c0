package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"campusboard/pkg/models"
)

// RuntimeConfig holds derived runtime values that other packages may query
// at runtime (populated during startup after merging env+file).
type RuntimeConfig struct {
	SigningKeys map[string]struct{}
}

var (
	runtimeMu  sync.RWMutex
	runtimeCfg *RuntimeConfig
)

// SetRuntime sets the canonical runtime config used by the running server.
func SetRuntime(rc *RuntimeConfig) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	runtimeCfg = rc
}

// GetSigningKeys returns a copy of configured bearer-token signing keys.
func GetSigningKeys() map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	out := map[string]struct{}{}
	if runtimeCfg == nil || runtimeCfg.SigningKeys == nil {
		return out
	}
	for k := range runtimeCfg.SigningKeys {
		out[k] = struct{}{}
	}
	return out
}

type Config struct {
	Server struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
		TLS     struct {
			CertFile string `yaml:"cert_file"`
			KeyFile  string `yaml:"key_file"`
		} `yaml:"tls"`
	} `yaml:"server"`
	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`
	Security struct {
		// SigningKeys verify bearer tokens issued by the auth provider.
		// Multiple keys allow rotation; every key is tried.
		SigningKeys []string `yaml:"signing_keys"`
		CORS        struct {
			AllowedOrigins []string `yaml:"allowed_origins"`
		} `yaml:"cors"`
		RateLimit struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
		IPWhitelist []string `yaml:"ip_whitelist"`
	} `yaml:"security"`
	Board struct {
		Topics          []string `yaml:"topics"`
		ReactionTypes   []string `yaml:"reaction_types"`
		ReportThreshold int      `yaml:"report_threshold"`
		PageSize        int      `yaml:"page_size"`
		MaxBodyLen      int      `yaml:"max_body_len"`
		// Client poll interval in seconds; served to clients via /v1/topics
		// metadata and used as the poller default.
		PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	} `yaml:"board"`
	Retention struct {
		Enabled bool   `yaml:"enabled"`
		Cron    string `yaml:"cron"`
		// Removed items older than this many days have their feed index
		// entries pruned; ledgers are always retained.
		RemovedTTLDays int `yaml:"removed_ttl_days"`
	} `yaml:"retention"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text|json
	} `yaml:"logging"`
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// Topics returns the configured topic list or the built-in default.
func (c *Config) Topics() []string {
	if len(c.Board.Topics) > 0 {
		return c.Board.Topics
	}
	return models.DefaultTopics()
}

// ReactionTypes returns the configured reaction vocabulary or the default.
func (c *Config) ReactionTypes() []string {
	if len(c.Board.ReactionTypes) > 0 {
		return c.Board.ReactionTypes
	}
	return models.DefaultReactionTypes()
}

// ReportThreshold returns the report count at which an item is removed.
func (c *Config) ReportThreshold() int {
	if c.Board.ReportThreshold > 0 {
		return c.Board.ReportThreshold
	}
	return 20
}

// PageSize returns the feed page size.
func (c *Config) PageSize() int {
	if c.Board.PageSize > 0 {
		return c.Board.PageSize
	}
	return 20
}

// MaxBodyLen returns the maximum post body length in characters.
func (c *Config) MaxBodyLen() int {
	if c.Board.MaxBodyLen > 0 {
		return c.Board.MaxBodyLen
	}
	return 2000
}

// PollIntervalSeconds returns the advertised client poll interval.
func (c *Config) PollIntervalSeconds() int {
	if c.Board.PollIntervalSeconds > 0 {
		return c.Board.PollIntervalSeconds
	}
	return 120
}

var (
	currentMu sync.RWMutex
	current   *Config
)

// SetCurrent stores the merged config so other packages can read board
// policy through the package-level accessors below. Called once during
// startup (and by tests).
func SetCurrent(c *Config) {
	currentMu.Lock()
	defer currentMu.Unlock()
	current = c
}

func getCurrent() *Config {
	currentMu.RLock()
	defer currentMu.RUnlock()
	if current == nil {
		return &Config{}
	}
	return current
}

// Topics returns the running server's topic list.
func Topics() []string { return getCurrent().Topics() }

// ReactionTypes returns the running server's reaction vocabulary.
func ReactionTypes() []string { return getCurrent().ReactionTypes() }

// ReportThreshold returns the running server's removal threshold.
func ReportThreshold() int { return getCurrent().ReportThreshold() }

// PageSize returns the running server's feed page size.
func PageSize() int { return getCurrent().PageSize() }

// MaxBodyLen returns the running server's body length cap.
func MaxBodyLen() int { return getCurrent().MaxBodyLen() }

// PollIntervalSeconds returns the advertised client poll interval.
func PollIntervalSeconds() int { return getCurrent().PollIntervalSeconds() }

// EffectiveConfigResult bundles the merged config with the values the
// server actually runs with and where they came from.
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string // flags|env|config
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseCommandFlags defines and parses command-line flags and returns their
// values along with a map indicating which flags were explicitly set.
func ParseCommandFlags() (addr string, dbPath string, cfgPath string, setFlags map[string]bool) {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dbPtr := flag.String("db", "./.database", "Pebble DB path")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return *addrPtr, *dbPtr, *cfgPtr, setFlags
}

// LoadEnvOverrides applies environment overrides onto the provided cfg and
// returns the derived signing key set plus whether env vars were used.
func LoadEnvOverrides(cfg *Config) (map[string]struct{}, bool) {
	envUsed := false
	parseList := func(v string) []string {
		if v == "" {
			return nil
		}
		parts := []string{}
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				parts = append(parts, s)
			}
		}
		return parts
	}

	if v := os.Getenv("CAMPUSBOARD_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	}
	if v := os.Getenv("CAMPUSBOARD_DB_PATH"); v != "" {
		envUsed = true
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("CAMPUSBOARD_SIGNING_KEYS"); v != "" {
		envUsed = true
		cfg.Security.SigningKeys = parseList(v)
	}
	if v := os.Getenv("CAMPUSBOARD_CORS_ORIGINS"); v != "" {
		envUsed = true
		cfg.Security.CORS.AllowedOrigins = parseList(v)
	}
	if v := os.Getenv("CAMPUSBOARD_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envUsed = true
			cfg.Security.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("CAMPUSBOARD_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envUsed = true
			cfg.Security.RateLimit.Burst = n
		}
	}
	if v := os.Getenv("CAMPUSBOARD_IP_WHITELIST"); v != "" {
		envUsed = true
		cfg.Security.IPWhitelist = parseList(v)
	}
	if v := os.Getenv("CAMPUSBOARD_TOPICS"); v != "" {
		envUsed = true
		cfg.Board.Topics = parseList(v)
	}
	if v := os.Getenv("CAMPUSBOARD_REACTION_TYPES"); v != "" {
		envUsed = true
		cfg.Board.ReactionTypes = parseList(v)
	}
	if v := os.Getenv("CAMPUSBOARD_REPORT_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			envUsed = true
			cfg.Board.ReportThreshold = n
		}
	}
	if c := os.Getenv("CAMPUSBOARD_TLS_CERT"); c != "" {
		envUsed = true
		cfg.Server.TLS.CertFile = c
	}
	if k := os.Getenv("CAMPUSBOARD_TLS_KEY"); k != "" {
		envUsed = true
		cfg.Server.TLS.KeyFile = k
	}

	signingKeys := map[string]struct{}{}
	for _, k := range cfg.Security.SigningKeys {
		signingKeys[k] = struct{}{}
	}
	return signingKeys, envUsed
}

// LoadEffective loads config from the given path (file) and applies
// environment overrides. It returns the effective config, the signing key
// set and a boolean indicating whether env vars were used.
func LoadEffective(path string) (*Config, map[string]struct{}, bool, error) {
	cfg, err := Load(path)
	if err != nil {
		cfg = &Config{}
	}
	signingKeys, envUsed := LoadEnvOverrides(cfg)
	return cfg, signingKeys, envUsed, nil
}

// ResolveConfigPath decides the config file path using the flag-provided
// value and the environment variable `CAMPUSBOARD_CONFIG` when the flag was
// not set.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("CAMPUSBOARD_CONFIG"); p != "" {
		return p
	}
	return flagPath
}
