package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port           int    `yaml:"port"`
	GinMode        string `yaml:"gin_mode"`
	LogLevel       string `yaml:"log_level"`
	LogDevelopment bool   `yaml:"log_development"`
	AttemptTTL     string `yaml:"attempt_ttl"`
	EnrichTimeout  string `yaml:"enrich_timeout"`
}

type StoreConfig struct {
	Driver           string `yaml:"driver"` // postgres, sqlite or mongo
	DSN              string `yaml:"dsn"`
	MongoURI         string `yaml:"mongo_uri"`
	MongoDatabase    string `yaml:"mongo_database"`
	ReportCollection string `yaml:"report_collection"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type OTPConfig struct {
	Provider     string            `yaml:"provider"` // redis or twilio_verify
	TTL          string            `yaml:"ttl"`
	Length       int               `yaml:"length"`
	MaxAttempts  int               `yaml:"max_attempts"`
	ResendWindow string            `yaml:"resend_window"`
	TestNumbers  map[string]string `yaml:"test_numbers"`
}

type TwilioConfig struct {
	AccountSID       string `yaml:"account_sid"`
	AuthToken        string `yaml:"auth_token"`
	FromNumber       string `yaml:"from_number"`
	VerifyServiceSID string `yaml:"verify_service_sid"`
}

type CaptchaConfig struct {
	Provider  string `yaml:"provider"` // recaptcha, test or disabled
	Secret    string `yaml:"secret"`
	VerifyURL string `yaml:"verify_url"`
	Timeout   string `yaml:"timeout"`
	LeaseTTL  string `yaml:"lease_ttl"`
}

type GeoPoint struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

type GeocoderConfig struct {
	Provider  string              `yaml:"provider"` // nominatim or static
	BaseURL   string              `yaml:"base_url"`
	UserAgent string              `yaml:"user_agent"`
	Timeout   string              `yaml:"timeout"`
	Static    map[string]GeoPoint `yaml:"static"`
}

type MediaConfig struct {
	Backend      string `yaml:"backend"` // local or gridfs
	Dir          string `yaml:"dir"`
	BaseURL      string `yaml:"base_url"`
	MaxBytes     int64  `yaml:"max_bytes"`
	GridFSBucket string `yaml:"gridfs_bucket"`
}

type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`
	TokenTTL  string `yaml:"token_ttl"`
}

type ConfigFile struct {
	App      AppConfig      `yaml:"app"`
	Store    StoreConfig    `yaml:"store"`
	Redis    RedisConfig    `yaml:"redis"`
	OTP      OTPConfig      `yaml:"otp"`
	Twilio   TwilioConfig   `yaml:"twilio"`
	Captcha  CaptchaConfig  `yaml:"captcha"`
	Geocoder GeocoderConfig `yaml:"geocoder"`
	Media    MediaConfig    `yaml:"media"`
	Admin    AdminConfig    `yaml:"admin"`
}

type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogDevelopment bool
	AttemptTTL     time.Duration
	EnrichTimeout  time.Duration

	StoreDriver      string
	DSN              string
	MongoURI         string
	MongoDatabase    string
	ReportCollection string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTPProvider      string
	OTP_TTL          time.Duration
	OTP_Length       int
	OTP_MaxAttempts  int
	OTP_ResendWindow time.Duration
	OTPTestNumbers   map[string]string

	TwilioSID              string
	TwilioToken            string
	TwilioFrom             string
	TwilioVerifyServiceSID string

	CaptchaProvider  string
	CaptchaSecret    string
	CaptchaVerifyURL string
	CaptchaTimeout   time.Duration
	VerifierLeaseTTL time.Duration

	GeocoderProvider  string
	GeocoderBaseURL   string
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration
	GeocoderStatic    map[string]GeoPoint

	MediaBackend  string
	MediaDir      string
	MediaBaseURL  string
	MediaMaxBytes int64
	GridFSBucket  string

	AdminJWTSecret string
	AdminJWTIssuer string
	AdminTokenTTL  time.Duration

	Form FormRules
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads config/config.yml (or CONFIG_PATH) and config/form_rules.yml next to it
func Load() (*Config, error) {
	return LoadFrom(env("CONFIG_PATH", "config/config.yml"))
}

// LoadFrom loads the config file at path and applies environment overrides
func LoadFrom(path string) (*Config, error) {
	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	durations := []struct {
		name  string
		value string
		def   time.Duration
	}{
		{"app attempt TTL", configFile.App.AttemptTTL, 15 * time.Minute},
		{"app enrich timeout", configFile.App.EnrichTimeout, 5 * time.Second},
		{"OTP TTL", configFile.OTP.TTL, 5 * time.Minute},
		{"OTP resend window", configFile.OTP.ResendWindow, 60 * time.Second},
		{"captcha timeout", configFile.Captcha.Timeout, 5 * time.Second},
		{"verifier lease TTL", configFile.Captcha.LeaseTTL, 10 * time.Minute},
		{"geocoder timeout", configFile.Geocoder.Timeout, 3 * time.Second},
		{"admin token TTL", configFile.Admin.TokenTTL, 12 * time.Hour},
	}
	parsed := make([]time.Duration, len(durations))
	for i, d := range durations {
		parsed[i], err = parseDuration(d.value, d.def)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.name, err)
		}
	}

	formRules, err := loadFormRules(filepath.Join(filepath.Dir(path), "form_rules.yml"))
	if err != nil {
		// A missing rules file falls back to the strict defaults
		formRules = DefaultFormRules()
	}

	cfg := &Config{
		Port:           fmt.Sprintf("%d", configFile.App.Port),
		GinMode:        configFile.App.GinMode,
		LogLevel:       configFile.App.LogLevel,
		LogDevelopment: configFile.App.LogDevelopment,
		AttemptTTL:     parsed[0],
		EnrichTimeout:  parsed[1],

		StoreDriver:      configFile.Store.Driver,
		DSN:              configFile.Store.DSN,
		MongoURI:         configFile.Store.MongoURI,
		MongoDatabase:    configFile.Store.MongoDatabase,
		ReportCollection: configFile.Store.ReportCollection,

		RedisAddr:     configFile.Redis.Addr,
		RedisPassword: configFile.Redis.Password,
		RedisDB:       configFile.Redis.DB,

		OTPProvider:      configFile.OTP.Provider,
		OTP_TTL:          parsed[2],
		OTP_Length:       configFile.OTP.Length,
		OTP_MaxAttempts:  configFile.OTP.MaxAttempts,
		OTP_ResendWindow: parsed[3],
		OTPTestNumbers:   configFile.OTP.TestNumbers,

		TwilioSID:              configFile.Twilio.AccountSID,
		TwilioToken:            configFile.Twilio.AuthToken,
		TwilioFrom:             configFile.Twilio.FromNumber,
		TwilioVerifyServiceSID: configFile.Twilio.VerifyServiceSID,

		CaptchaProvider:  configFile.Captcha.Provider,
		CaptchaSecret:    configFile.Captcha.Secret,
		CaptchaVerifyURL: configFile.Captcha.VerifyURL,
		CaptchaTimeout:   parsed[4],
		VerifierLeaseTTL: parsed[5],

		GeocoderProvider:  configFile.Geocoder.Provider,
		GeocoderBaseURL:   configFile.Geocoder.BaseURL,
		GeocoderUserAgent: configFile.Geocoder.UserAgent,
		GeocoderTimeout:   parsed[6],
		GeocoderStatic:    configFile.Geocoder.Static,

		MediaBackend:  configFile.Media.Backend,
		MediaDir:      configFile.Media.Dir,
		MediaBaseURL:  configFile.Media.BaseURL,
		MediaMaxBytes: configFile.Media.MaxBytes,
		GridFSBucket:  configFile.Media.GridFSBucket,

		AdminJWTSecret: configFile.Admin.JWTSecret,
		AdminJWTIssuer: configFile.Admin.JWTIssuer,
		AdminTokenTTL:  parsed[7],

		Form: formRules,
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}

func parseDuration(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	return time.ParseDuration(raw)
}

func applyDefaults(cfg *Config) {
	if cfg.Port == "0" {
		cfg.Port = "8080"
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = "postgres"
	}
	if cfg.ReportCollection == "" {
		cfg.ReportCollection = "disasterReports"
	}
	if cfg.OTPProvider == "" {
		cfg.OTPProvider = "redis"
	}
	if cfg.OTP_Length == 0 {
		cfg.OTP_Length = 6
	}
	if cfg.OTP_MaxAttempts == 0 {
		cfg.OTP_MaxAttempts = 3
	}
	if cfg.CaptchaProvider == "" {
		cfg.CaptchaProvider = "recaptcha"
	}
	if cfg.CaptchaVerifyURL == "" {
		cfg.CaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"
	}
	if cfg.GeocoderProvider == "" {
		cfg.GeocoderProvider = "nominatim"
	}
	if cfg.GeocoderBaseURL == "" {
		cfg.GeocoderBaseURL = "https://nominatim.openstreetmap.org"
	}
	if cfg.GeocoderUserAgent == "" {
		cfg.GeocoderUserAgent = "incidentsvc/1.0"
	}
	if cfg.MediaBackend == "" {
		cfg.MediaBackend = "local"
	}
	if cfg.MediaDir == "" {
		cfg.MediaDir = "uploads"
	}
	// GridFS media is served at /media/:id, so its base URL may stay empty
	if cfg.MediaBaseURL == "" && cfg.MediaBackend == "local" {
		cfg.MediaBaseURL = "/uploads"
	}
	if cfg.MediaMaxBytes == 0 {
		cfg.MediaMaxBytes = 5 << 20
	}
	if cfg.GridFSBucket == "" {
		cfg.GridFSBucket = "reportImages"
	}
	if cfg.AdminJWTIssuer == "" {
		cfg.AdminJWTIssuer = "incidentsvc-admin"
	}
}

// applyEnv lets deployments override secrets and addresses without editing the yaml
func applyEnv(cfg *Config) error {
	cfg.Port = env("PORT", cfg.Port)
	cfg.GinMode = env("GIN_MODE", cfg.GinMode)
	cfg.LogLevel = env("LOG_LEVEL", cfg.LogLevel)
	cfg.StoreDriver = env("STORE_DRIVER", cfg.StoreDriver)
	cfg.DSN = env("DATABASE_DSN", cfg.DSN)
	cfg.MongoURI = env("MONGO_URI", cfg.MongoURI)
	cfg.MongoDatabase = env("MONGO_DB", cfg.MongoDatabase)
	cfg.RedisAddr = env("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = env("REDIS_PASSWORD", cfg.RedisPassword)
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = db
	}
	cfg.OTPProvider = env("OTP_PROVIDER", cfg.OTPProvider)
	cfg.TwilioSID = env("TWILIO_ACCOUNT_SID", cfg.TwilioSID)
	cfg.TwilioToken = env("TWILIO_AUTH_TOKEN", cfg.TwilioToken)
	cfg.TwilioFrom = env("TWILIO_FROM_NUMBER", cfg.TwilioFrom)
	cfg.TwilioVerifyServiceSID = env("TWILIO_VERIFY_SERVICE_SID", cfg.TwilioVerifyServiceSID)
	cfg.CaptchaProvider = env("CAPTCHA_PROVIDER", cfg.CaptchaProvider)
	cfg.CaptchaSecret = env("RECAPTCHA_SECRET", cfg.CaptchaSecret)
	cfg.GeocoderProvider = env("GEOCODER_PROVIDER", cfg.GeocoderProvider)
	cfg.MediaBackend = env("MEDIA_BACKEND", cfg.MediaBackend)
	cfg.MediaBaseURL = env("MEDIA_BASE_URL", cfg.MediaBaseURL)
	cfg.AdminJWTSecret = env("ADMIN_JWT_SECRET", cfg.AdminJWTSecret)
	return nil
}
