package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	// Config holds the application settings, resolved once at start-up.
	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		RollbarToken     string
		SendgridAPIKey   string
		DefaultFromEmail mail.Address
		FrontendBaseURL  string
		WorkDir          string

		Server    ServerConfig
		Database  DatabaseConfig
		Residency ResidencyConfig
		Board     BoardConfig
	}

	ServerConfig struct {
		Host               string
		DebugHost          string
		JWTExpirationDelta time.Duration
		ShutdownTimeout    time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		Name          string
		DisableTLS    bool
		Path          string // sqlite file; ":memory:" allowed
	}

	ResidencyConfig struct {
		// SessionWaitTimeout bounds how long signup waits for a new account to become the active session.
		SessionWaitTimeout time.Duration
		// CompensationTimeout bounds the best-effort account removal after a failed signup.
		CompensationTimeout time.Duration
	}

	BoardConfig struct {
		SeedTasks []string
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// NewConfig loads the configuration: defaults, then `config/.env.<env>` if present, then environment variables
// prefixed with the current ENV (e.g. DEV_DATABASE_NAME).
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Auxílio Síndico")
	v.SetDefault("secretKey", "wq8#k2o!zr$61v=+b&ud3y_m(ph0)4xa9l^7tcge5s*jn")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromName", "Auxílio Síndico")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseUrl", "http://localhost:8080")

	v.SetDefault("server_host", ":8000")
	v.SetDefault("server_debugHost", ":4000")
	v.SetDefault("server_jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server_shutdownTimeout", 5*time.Second)

	v.SetDefault("database_engine", "postgres")
	v.SetDefault("database_user", "sindico")
	v.SetDefault("database_password", "")
	v.SetDefault("database_adminUser", "")
	v.SetDefault("database_adminPassword", "")
	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", "5432")
	v.SetDefault("database_name", "sindico")
	v.SetDefault("database_disableTls", true)
	v.SetDefault("database_path", "sindico.db")

	v.SetDefault("residency_sessionWaitTimeout", 10*time.Second)
	v.SetDefault("residency_compensationTimeout", 10*time.Second)

	v.SetDefault("board_seedTasks", []string{
		"Limpeza da caixa d'água",
		"Manutenção do portão da garagem",
		"Troca das lâmpadas do hall",
	})

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:            env,
		Build:          v.GetString("build"),
		Debug:          v.GetBool("debug"),
		TestMode:       v.GetBool("testMode"),
		AppName:        v.GetString("appName"),
		SecretKey:      v.GetString("secretKey"),
		RollbarToken:   v.GetString("rollbarToken"),
		SendgridAPIKey: v.GetString("sendgridApiKey"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("defaultFromName"),
			Address: v.GetString("defaultFromEmail"),
		},
		FrontendBaseURL: v.GetString("frontendBaseUrl"),
		WorkDir:         wd,
		Server: ServerConfig{
			Host:               v.GetString("server_host"),
			DebugHost:          v.GetString("server_debugHost"),
			JWTExpirationDelta: v.GetDuration("server_jwtExpirationDelta"),
			ShutdownTimeout:    v.GetDuration("server_shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database_engine"),
			User:          v.GetString("database_user"),
			Password:      v.GetString("database_password"),
			AdminUser:     v.GetString("database_adminUser"),
			AdminPassword: v.GetString("database_adminPassword"),
			Host:          v.GetString("database_host"),
			Port:          v.GetString("database_port"),
			Name:          v.GetString("database_name"),
			DisableTLS:    v.GetBool("database_disableTls"),
			Path:          v.GetString("database_path"),
		},
		Residency: ResidencyConfig{
			SessionWaitTimeout:  v.GetDuration("residency_sessionWaitTimeout"),
			CompensationTimeout: v.GetDuration("residency_compensationTimeout"),
		},
		Board: BoardConfig{
			SeedTasks: v.GetStringSlice("board_seedTasks"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: in-memory sqlite, no external services.
func NewTestConfig() *Config {
	return &Config{
		Env:              "TEST",
		Build:            "test",
		Debug:            false,
		TestMode:         true,
		AppName:          "Auxílio Síndico",
		SecretKey:        "test-secret",
		DefaultFromEmail: mail.Address{Name: "Auxílio Síndico", Address: "noreply@localhost"},
		FrontendBaseURL:  "http://localhost:8080",
		Server: ServerConfig{
			JWTExpirationDelta: time.Hour,
			ShutdownTimeout:    time.Second,
		},
		Database: DatabaseConfig{Engine: "sqlite", Path: ":memory:"},
		Residency: ResidencyConfig{
			SessionWaitTimeout:  time.Second,
			CompensationTimeout: time.Second,
		},
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("%s (%s) env=%s db=%s", c.AppName, c.Build, c.Env, c.Database.Engine)
}
