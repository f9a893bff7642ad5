package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env          string // DEV (local; default), TEST, QA, PROD
		Build        string
		Debug        bool
		TestMode     bool
		AppName      string
		SecretKey    string
		RollbarToken string

		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Warning  WarningConfig
		Setting  SettingConfig
		Advisor  AdvisorConfig
	}

	ServerConfig struct {
		Host            string
		Addr            string
		DebugHost       string
		ShutdownTimeout time.Duration
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres (lib/pq) | pgx
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		MaxOpenConns  int
	}

	// WarningConfig holds the seed thresholds used when the warning rules do not exist yet.
	WarningConfig struct {
		GPAThreshold  float64
		DebtThreshold float64
		// CountZeroGPA lets a 0.0 weighted GPA breach the GPA rule (only when weighted credits exist).
		CountZeroGPA bool
		// SkipInactiveRules makes Scan ignore rules whose Active flag is off.
		SkipInactiveRules bool
	}

	SettingConfig struct {
		CacheSize int
	}

	AdvisorConfig struct {
		APIKey       string
		Model        string
		ContextLimit int // runes
	}
)

// Address returns "host:port" (or just host when no port is set).
func (dbc DatabaseConfig) Address() string {
	if dbc.Port == "" {
		return dbc.Host
	}
	return dbc.Host + ":" + dbc.Port
}

// DriverName maps the configured engine to a registered database/sql driver.
func (dbc DatabaseConfig) DriverName() string {
	if dbc.Engine == "pgx" {
		return "pgx"
	}
	return "postgres"
}

func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// defaults
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("build", "dev")
	v.SetDefault("app_name", "Hocba")
	v.SetDefault("secret_key", "k2v!6n@w1m#p-0q9+h8s)r3t(y5u*i4o")
	v.SetDefault("rollbar_token", "")
	v.SetDefault("jwt_expiration_delta", 7*24*time.Hour)
	v.SetDefault("jwt_refresh_expiration_delta", 4*time.Hour)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.debug_host", ":4000")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("db.engine", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.name", "hocba")
	v.SetDefault("db.user", "hocba")
	v.SetDefault("db.password", "hocba")
	v.SetDefault("db.admin_user", "")
	v.SetDefault("db.admin_password", "")
	v.SetDefault("db.disable_tls", env == "DEV" || env == "TEST")
	v.SetDefault("db.max_open_conns", 10)

	v.SetDefault("warning.gpa_threshold", 2.0)
	v.SetDefault("warning.debt_threshold", 10.0)
	v.SetDefault("warning.count_zero_gpa", false)
	v.SetDefault("warning.skip_inactive_rules", false)

	v.SetDefault("setting.cache_size", 128)

	v.SetDefault("advisor.api_key", "")
	v.SetDefault("advisor.model", "gemini-2.5-pro")
	v.SetDefault("advisor.context_limit", 5000)

	v.AutomaticEnv()

	return &Config{
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		AppName:                   v.GetString("app_name"),
		SecretKey:                 v.GetString("secret_key"),
		RollbarToken:              v.GetString("rollbar_token"),
		JWTExpirationDelta:        v.GetDuration("jwt_expiration_delta"),
		JWTRefreshExpirationDelta: v.GetDuration("jwt_refresh_expiration_delta"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Addr:            v.GetString("server.addr"),
			DebugHost:       v.GetString("server.debug_host"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("db.engine"),
			Host:          v.GetString("db.host"),
			Port:          v.GetString("db.port"),
			Name:          v.GetString("db.name"),
			User:          v.GetString("db.user"),
			Password:      v.GetString("db.password"),
			AdminUser:     v.GetString("db.admin_user"),
			AdminPassword: v.GetString("db.admin_password"),
			DisableTLS:    v.GetBool("db.disable_tls"),
			MaxOpenConns:  v.GetInt("db.max_open_conns"),
		},
		Warning: WarningConfig{
			GPAThreshold:  v.GetFloat64("warning.gpa_threshold"),
			DebtThreshold: v.GetFloat64("warning.debt_threshold"),
			CountZeroGPA:  v.GetBool("warning.count_zero_gpa"),

			SkipInactiveRules: v.GetBool("warning.skip_inactive_rules"),
		},
		Setting: SettingConfig{
			CacheSize: v.GetInt("setting.cache_size"),
		},
		Advisor: AdvisorConfig{
			APIKey:       v.GetString("advisor.api_key"),
			Model:        v.GetString("advisor.model"),
			ContextLimit: v.GetInt("advisor.context_limit"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests; nothing is read from the environment.
func NewTestConfig() *Config {
	return &Config{
		Env:                       "TEST",
		Build:                     "test",
		TestMode:                  true,
		AppName:                   "Hocba",
		SecretKey:                 "test-secret",
		JWTExpirationDelta:        time.Hour,
		JWTRefreshExpirationDelta: time.Hour,
		Server:                    ServerConfig{Host: "localhost", ShutdownTimeout: time.Second},
		Database:                  DatabaseConfig{Engine: "postgres", DisableTLS: true},
		Warning:                   WarningConfig{GPAThreshold: 2.0, DebtThreshold: 10},
		Setting:                   SettingConfig{CacheSize: 16},
		Advisor:                   AdvisorConfig{Model: "gemini-2.5-pro", ContextLimit: 5000},
	}
}
