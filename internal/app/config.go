package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete server configuration, loadable from
// environment variables (PTET_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string `default:"0.0.0.0:8000" usage:"API server listen address"`
	Database      string `usage:"Database URI (sqlite://path or postgres://...)" flag:"database"`
	KeysDir       string `default:"keys" usage:"Directory holding the signing key pairs" flag:"keys-dir"`
	ServerBaseURI string `usage:"Public base URI, required as token audience" flag:"server-base-uri"`

	JWT       JWTConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// JWTConfig controls the token acceptance policy.
type JWTConfig struct {
	// ExpectIssuer pins the iss claim when non-empty.
	ExpectIssuer string `usage:"Required token issuer (empty accepts any)" flag:"expect-jwt-issuer,exact"`
	// IssuedAfter rejects tokens minted before the cutoff (RFC 3339).
	IssuedAfter string `usage:"Reject tokens issued at or before this time" flag:"jwt-issued-after,exact"`
	// MaxExpiration bounds exp-iat. Tokens must carry both claims.
	MaxExpiration time.Duration `default:"8760h" usage:"Maximum accepted token lifetime" flag:"jwt-max-expiration,exact"`
}

// RateLimitConfig controls the per-caller sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// IssuedAfterTime parses the issued-after cutoff. The zero time with a
// nil error means no cutoff is configured.
func (c JWTConfig) IssuedAfterTime() (time.Time, error) {
	if c.IssuedAfter == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, c.IssuedAfter)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "parse jwt-issued-after")
	}
	return t, nil
}

// LoadConfig loads configuration from flags, environment variables and
// YAML config files.
func LoadConfig(args []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "PTET",
		Files:     []string{"config.yaml", "/etc/ptet/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Flags().Parse(args); err != nil {
		return nil, errors.Wrap(err, "parse flags")
	}
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.Database == "" {
		return nil, errors.New("database URI is required: set --database or PTET_DATABASE")
	}
	if cfg.ServerBaseURI == "" {
		return nil, errors.New("server base URI is required: set --server-base-uri or PTET_SERVER_BASE_URI")
	}
	if _, err := cfg.JWT.IssuedAfterTime(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps conventional hosting variables like PORT
// onto the PTET_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Database == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Database = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8000" {
		c.Addr = "0.0.0.0:" + port
	}
}
