package app

import (
	"fmt"
	"strings"
	"time"

	"pathwise-backend/lib/auth"
	"pathwise-backend/lib/configutil"
	configlibsql "pathwise-backend/lib/configutil/libsql"
	"pathwise-backend/lib/httputil"
	"pathwise-backend/lib/mailer"
	"pathwise-backend/lib/scraper"
	"pathwise-backend/services/admin"
	"pathwise-backend/services/scraping"
)

const (
	AuthdConfigFile      = "authd.json5"
	ResourcesdConfigFile = "resourcesd.json5"

	DefaultCorsOrigin = "http://localhost:5173"
	BodyLimit         = 10 << 20
)

type HttpConfig struct {
	// "*" allows any origin
	CorsOrigins []string `json:"cors_origins"`
	RateLimitWindowMs int  `json:"rate_limit_window_ms"`
	RateLimitMax      int  `json:"rate_limit_max"`
	TrustProxy        bool `json:"trust_proxy"`
}

func defaultHttp(origins ...string) HttpConfig {
	return HttpConfig{
		CorsOrigins:       origins,
		RateLimitWindowMs: int((15 * time.Minute).Milliseconds()),
		RateLimitMax:      100,
	}
}

func (c *HttpConfig) fromEnv() error {
	var origin string
	configutil.EnvString(&origin, "CORS_ORIGIN")
	if origin != "" {
		c.CorsOrigins = splitList(origin)
	}
	err := configutil.EnvInt(&c.RateLimitWindowMs, "RATE_LIMIT_WINDOW_MS")
	if err != nil {
		return err
	}
	return configutil.EnvInt(&c.RateLimitMax, "RATE_LIMIT_MAX_REQUESTS")
}

func (c HttpConfig) RateLimit() httputil.RateLimitConfig {
	return httputil.RateLimitConfig{
		Window:     time.Duration(c.RateLimitWindowMs) * time.Millisecond,
		Max:        c.RateLimitMax,
		TrustProxy: c.TrustProxy,
	}
}

// Cors allows the configured origins with the methods and headers the web
// client sends.
func (c HttpConfig) Cors() httputil.CorsConfig {
	return httputil.CorsConfig{
		Origins:     c.CorsOrigins,
		Credentials: true,
		Methods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		Headers:     []string{"Content-Type", "Authorization", "X-Requested-With"},
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

type JwtConfig struct {
	Secret string `json:"secret"`
	// go duration, "7d" or seconds
	Expire string `json:"expire"`
}

type GoogleConfig struct {
	ClientId string `json:"client_id"`
}

type GitHubConfig struct {
	ClientId     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type LinkedInConfig struct {
	ClientId     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectUri  string `json:"redirect_uri"`
}

type OAuthConfig struct {
	Google   GoogleConfig   `json:"google"`
	GitHub   GitHubConfig   `json:"github"`
	LinkedIn LinkedInConfig `json:"linkedin"`
}

type AuthdConfig struct {
	Port        int                 `json:"port"`
	Environment string              `json:"environment"`
	Database    configlibsql.Config `json:"database"`
	Jwt         JwtConfig           `json:"jwt"`
	OAuth       OAuthConfig         `json:"oauth"`
	Email       mailer.Config       `json:"email"`
	Http        HttpConfig          `json:"http"`
	// services listed on the admin health page
	Probes []admin.Probe `json:"probes"`
}

func DefaultAuthdConfig() AuthdConfig {
	return AuthdConfig{
		Port:        5000,
		Environment: "development",
		Database:    configlibsql.Config{Path: "<dev_state>/pathwise-auth.db"},
		Jwt:         JwtConfig{Expire: "24h"},
		Http:        defaultHttp("*"),
		Probes: []admin.Probe{
			{Name: "Authentication Service"},
			{Name: "Discussion Service"},
		},
	}
}

func (c *AuthdConfig) fromEnv() error {
	err := configutil.EnvInt(&c.Port, "PORT")
	if err != nil {
		return err
	}
	configutil.EnvString(&c.Environment, "NODE_ENV")
	configutil.EnvString(&c.Database.Path, "DATABASE_PATH")
	configutil.EnvString(&c.Jwt.Secret, "JWT_SECRET")
	configutil.EnvString(&c.Jwt.Expire, "JWT_EXPIRE")
	configutil.EnvString(&c.OAuth.Google.ClientId, "GOOGLE_CLIENT_ID")
	configutil.EnvString(&c.OAuth.GitHub.ClientId, "GITHUB_CLIENT_ID")
	configutil.EnvString(&c.OAuth.GitHub.ClientSecret, "GITHUB_CLIENT_SECRET")
	configutil.EnvString(&c.OAuth.LinkedIn.ClientId, "LINKEDIN_CLIENT_ID")
	configutil.EnvString(&c.OAuth.LinkedIn.ClientSecret, "LINKEDIN_CLIENT_SECRET")
	configutil.EnvString(&c.OAuth.LinkedIn.RedirectUri, "LINKEDIN_REDIRECT_URI")

	var subscriptions string
	configutil.EnvString(&subscriptions, "SUBSCRIPTION_SERVICE_URL")
	if subscriptions != "" {
		c.Probes = append(c.Probes, admin.Probe{
			Name: "Subscription Service",
			Url:  strings.TrimSuffix(subscriptions, "/") + "/health",
		})
	}
	return c.Http.fromEnv()
}

// Issuer builds the token issuer, the secret is required.
func (c AuthdConfig) Issuer() (auth.TokenIssuer, error) {
	if c.Jwt.Secret == "" {
		return auth.TokenIssuer{}, fmt.Errorf("jwt secret is not set (JWT_SECRET)")
	}
	expiry, err := auth.ParseDuration(c.Jwt.Expire)
	if err != nil {
		return auth.TokenIssuer{}, fmt.Errorf("jwt expire: %w", err)
	}
	return auth.NewTokenIssuer(c.Jwt.Secret, expiry), nil
}

// LoadAuthd reads the authd config file, `.env` and the environment, in
// increasing priority.
func LoadAuthd(path string) (AuthdConfig, error) {
	err := configutil.LoadDotenv()
	if err != nil {
		return AuthdConfig{}, err
	}
	cfg, err := configutil.ReadWithDefaults(path, DefaultAuthdConfig())
	if err != nil {
		return AuthdConfig{}, err
	}
	err = cfg.fromEnv()
	if err != nil {
		return AuthdConfig{}, err
	}
	return cfg, nil
}

type BrowserConfig struct {
	Enabled     bool   `json:"enabled"`
	ControlUrl  string `json:"control_url"`
	Bin         string `json:"bin"`
	ShowBrowser bool   `json:"show_browser"`
	SettleMs    int    `json:"settle_ms"`
}

type CacheConfig struct {
	Disabled bool `json:"disabled"`
	// badger directory, may be prefixed with <dev_state>. empty keeps the
	// cache in memory.
	Dir        string `json:"dir"`
	TtlSeconds int    `json:"ttl_seconds"`
}

type ScrapingConfig struct {
	// "mock" or "live"
	Mode      string `json:"mode"`
	UserAgent string `json:"user_agent"`
	// SCRAPING_DELAY, between sources of a query scrape
	DelayMs int `json:"delay_ms"`
	// MAX_CONCURRENT_REQUESTS, request burst of the http fetcher
	MaxConcurrentRequests int      `json:"max_concurrent_requests"`
	RequestsPerSecond     float64  `json:"requests_per_second"`
	TimeoutMs             int      `json:"timeout_ms"`
	IgnoreRobots          bool     `json:"ignore_robots"`
	AllowedHosts          []string `json:"allowed_hosts"`

	Browser  BrowserConfig           `json:"browser"`
	Cache    CacheConfig             `json:"cache"`
	Schedule scraping.ScheduleConfig `json:"schedule"`
}

type ResourcesdConfig struct {
	Port        int                 `json:"port"`
	Environment string              `json:"environment"`
	Version     string              `json:"version"`
	Database    configlibsql.Config `json:"database"`
	Http        HttpConfig          `json:"http"`
	Scraping    ScrapingConfig      `json:"scraping"`
}

func DefaultResourcesdConfig() ResourcesdConfig {
	return ResourcesdConfig{
		Port:        8001,
		Environment: "development",
		Version:     "1.0.0",
		Database:    configlibsql.Config{Path: "<dev_state>/pathwise-resources.db"},
		Http:        defaultHttp(DefaultCorsOrigin),
		Scraping: ScrapingConfig{
			Mode:                  string(scraping.ModeMock),
			UserAgent:             scraper.DefaultUserAgent,
			DelayMs:               2000,
			MaxConcurrentRequests: 5,
			RequestsPerSecond:     2,
			TimeoutMs:             30000,
			Cache: CacheConfig{
				Dir:        "<dev_state>/page-cache",
				TtlSeconds: 3600,
			},
		},
	}
}

func (c *ResourcesdConfig) fromEnv() error {
	err := configutil.EnvInt(&c.Port, "PORT")
	if err != nil {
		return err
	}
	configutil.EnvString(&c.Environment, "NODE_ENV")
	configutil.EnvString(&c.Database.Path, "DATABASE_PATH")
	configutil.EnvString(&c.Scraping.UserAgent, "USER_AGENT")
	err = configutil.EnvInt(&c.Scraping.DelayMs, "SCRAPING_DELAY")
	if err != nil {
		return err
	}
	err = configutil.EnvInt(&c.Scraping.MaxConcurrentRequests, "MAX_CONCURRENT_REQUESTS")
	if err != nil {
		return err
	}
	return c.Http.fromEnv()
}

func (c ScrapingConfig) mode() (scraping.Mode, error) {
	switch scraping.Mode(c.Mode) {
	case "", scraping.ModeMock:
		return scraping.ModeMock, nil
	case scraping.ModeLive:
		return scraping.ModeLive, nil
	}
	return "", fmt.Errorf("unknown scraping mode %q", c.Mode)
}

// LoadResourcesd is LoadAuthd for the resources service.
func LoadResourcesd(path string) (ResourcesdConfig, error) {
	err := configutil.LoadDotenv()
	if err != nil {
		return ResourcesdConfig{}, err
	}
	cfg, err := configutil.ReadWithDefaults(path, DefaultResourcesdConfig())
	if err != nil {
		return ResourcesdConfig{}, err
	}
	err = cfg.fromEnv()
	if err != nil {
		return ResourcesdConfig{}, err
	}
	_, err = cfg.Scraping.mode()
	if err != nil {
		return ResourcesdConfig{}, err
	}
	return cfg, nil
}
