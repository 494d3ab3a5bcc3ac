package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config is the process configuration. Fields are filled from environment
// variables named after their koanf tag in upper case, so cookie_secure is
// read from COOKIE_SECURE and obs.log_level from OBS_LOG_LEVEL.
type Config struct {
	AppEnv        string `koanf:"app_env"`
	Port          string `koanf:"port"`
	DatabaseURL   string `koanf:"database_url"`
	RedisURL      string `koanf:"redis_url"`
	RunMigrations bool   `koanf:"run_migrations"`

	JWTSecret          string        `koanf:"jwt_secret"`
	AccessTokenTTL     time.Duration `koanf:"access_token_ttl"`
	AccessCookieName   string        `koanf:"access_cookie_name"`
	CookieDomain       string        `koanf:"cookie_domain"`
	CookieSecure       bool          `koanf:"cookie_secure"`
	CookieSameSite     http.SameSite `koanf:"-"`
	CORSAllowedOrigins []string      `koanf:"cors_allowed_origins"`

	// TrustedProxies are the CIDRs (or bare addresses) whose X-Forwarded-For
	// is believed when keying the login limiter.
	TrustedProxies []netip.Prefix `koanf:"-"`

	// BodyLimitBytes caps ordinary JSON bodies; the bulk student and topic
	// imports get ImportBodyLimitBytes instead.
	BodyLimitBytes       int64 `koanf:"body_limit_bytes"`
	ImportBodyLimitBytes int64 `koanf:"import_body_limit_bytes"`

	TopicCacheTTL   time.Duration `koanf:"topic_cache_ttl"`
	LoginRateLimit  int           `koanf:"login_rate_limit"`
	LoginRateWindow time.Duration `koanf:"login_rate_window"`
	IdempotencyTTL  time.Duration `koanf:"idempotency_ttl"`

	// Readiness probe budgets per dependency.
	ReadyDBTimeout    time.Duration `koanf:"ready_db_timeout"`
	ReadyRedisTimeout time.Duration `koanf:"ready_redis_timeout"`

	BrandName    string `koanf:"brand_name"`
	BrandTagline string `koanf:"brand_tagline"`

	BootstrapAdminUsername string `koanf:"bootstrap_admin_username"`
	BootstrapAdminPassword string `koanf:"bootstrap_admin_password"`

	Obs ObsConfig `koanf:"obs"`
}

// ObsConfig groups logging, metrics and tracing settings (OBS_* variables).
type ObsConfig struct {
	ServiceName          string  `koanf:"service_name"`
	LogFormat            string  `koanf:"log_format"`
	LogLevel             string  `koanf:"log_level"`
	MetricsNamespace     string  `koanf:"metrics_namespace"`
	EnablePrometheus     bool    `koanf:"enable_prometheus"`
	EnableTracing        bool    `koanf:"enable_tracing"`
	OTLPEndpoint         string  `koanf:"otlp_endpoint"`
	TracingSamplingRatio float64 `koanf:"tracing_sampling_ratio"`

	// MetricsBucketsMs overrides the latency histogram buckets, e.g. "5,50,500".
	MetricsBucketsMs []float64 `koanf:"metrics_buckets_ms"`

	// pprof is mounted only when enabled and both credentials are set.
	EnablePprof bool   `koanf:"enable_pprof"`
	PprofUser   string `koanf:"pprof_user"`
	PprofPass   string `koanf:"pprof_pass"`
}

func defaults() Config {
	return Config{
		AppEnv:               "development",
		Port:                 "8080",
		RunMigrations:        true,
		AccessTokenTTL:       8 * time.Hour,
		AccessCookieName:     "c_session",
		BodyLimitBytes:       1 << 20,
		ImportBodyLimitBytes: 8 << 20,
		TopicCacheTTL:        5 * time.Minute,
		LoginRateLimit:       10,
		LoginRateWindow:      time.Minute,
		IdempotencyTTL:       24 * time.Hour,
		ReadyDBTimeout:       500 * time.Millisecond,
		ReadyRedisTimeout:    300 * time.Millisecond,
		BrandName:            "PlanetSpark",
		BrandTagline:         "Public speaking and creative writing for young learners",
		Obs: ObsConfig{
			ServiceName:          "spark-configurator",
			LogLevel:             "info",
			MetricsNamespace:     "spark",
			EnablePrometheus:     true,
			TracingSamplingRatio: 1,
		},
	}
}

// listKeys are comma-separated in the environment.
var listKeys = map[string]bool{
	"cors_allowed_origins":   true,
	"obs.metrics_buckets_ms": true,
	"trusted_proxies":        true,
}

// envKey maps OBS_LOG_LEVEL to obs.log_level and PORT to port, and splits
// list variables on commas. Blank variables are dropped so they fall back
// to the defaults.
func envKey(key, value string) (string, any) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	key = strings.ToLower(key)
	if rest, ok := strings.CutPrefix(key, "obs_"); ok {
		key = "obs." + rest
	}
	if listKeys[key] {
		parts := splitAndTrim(value)
		if len(parts) == 0 {
			return "", nil
		}
		return key, parts
	}
	return key, value
}

// Load reads an optional .env file and then the process environment.
// DATABASE_URL and REDIS_URL are optional: without them the API runs on
// in-memory stores and an in-process rate limiter.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.ProviderWithValue("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.CookieSameSite = sameSite(k.String("cookie_samesite"))
	proxies, err := prefixes(k.Strings("trusted_proxies"))
	if err != nil {
		return nil, err
	}
	cfg.TrustedProxies = proxies
	if cfg.Obs.LogFormat == "" {
		cfg.Obs.LogFormat = "json"
		if strings.EqualFold(cfg.AppEnv, "development") {
			cfg.Obs.LogFormat = "console"
		}
	}
	if r := cfg.Obs.TracingSamplingRatio; r <= 0 || r > 1 {
		cfg.Obs.TracingSamplingRatio = 1
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.LoginRateLimit <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT must be positive"))
	}
	if c.ImportBodyLimitBytes < c.BodyLimitBytes {
		errs = append(errs, errors.New("IMPORT_BODY_LIMIT_BYTES must not be below BODY_LIMIT_BYTES"))
	}
	if c.Obs.EnablePprof && (c.Obs.PprofUser == "" || c.Obs.PprofPass == "") {
		errs = append(errs, errors.New("OBS_ENABLE_PPROF needs OBS_PPROF_USER and OBS_PPROF_PASS"))
	}
	for _, b := range c.Obs.MetricsBucketsMs {
		if b <= 0 {
			errs = append(errs, errors.New("OBS_METRICS_BUCKETS_MS entries must be positive"))
			break
		}
	}
	if (c.BootstrapAdminUsername == "") != (c.BootstrapAdminPassword == "") {
		errs = append(errs, errors.New("BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// HTTPAddr accepts PORT as "9090", ":9090" or a full host:port.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	switch {
	case port == "":
		return ":8080"
	case strings.Contains(port, ":"):
		return port
	}
	return ":" + port
}

// prefixes parses TRUSTED_PROXIES entries; a bare address is a single host.
func prefixes(values []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, v := range values {
		if p, err := netip.ParsePrefix(v); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %q is not an address or CIDR", v)
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func splitAndTrim(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// sameSite defaults to Lax; browsers treat an unset attribute the same way.
func sameSite(value string) http.SameSite {
	switch strings.ToLower(value) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}
