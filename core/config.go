package core

import (
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
	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string
		DisableTLS    bool
	}

	EmailConfig struct {
		Backend           string // console (default), sendgrid, mailjet
		DefaultFromEmail  mail.Address
		SendgridAPIKey    string
		MailjetPublicKey  string
		MailjetPrivateKey string
	}

	DigestConfig struct {
		Workers        int
		HandlerTimeout time.Duration
		Schedule       string // cron expression
		CacheSize      int
		DefaultLocale  string
	}

	FoldersConfig struct {
		Root string
	}

	Config struct {
		AppName         string
		Env             string
		Build           string
		Debug           bool
		TestMode        bool
		WorkDir         string
		FrontendBaseURL string
		RollbarToken    string
		Database        DatabaseConfig
		Email           EmailConfig
		Digest          DigestConfig
		Folders         FoldersConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig loads the configuration from the environment (and `config/.env.<env>` if present).
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Masomo")
	v.SetDefault("build", "develop")
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseUser", "masomo")
	v.SetDefault("databasePassword", "masomo")
	v.SetDefault("databaseAdminUser", "")
	v.SetDefault("databaseAdminPassword", "")
	v.SetDefault("databaseName", "masomo")
	v.SetDefault("databaseDisableTLS", true)

	v.SetDefault("emailBackend", "console")
	v.SetDefault("defaultFromName", "Masomo")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridAPIKey", "")
	v.SetDefault("mailjetPublicKey", "")
	v.SetDefault("mailjetPrivateKey", "")

	v.SetDefault("digestWorkers", 8)
	v.SetDefault("digestHandlerTimeout", 30*time.Second)
	v.SetDefault("digestSchedule", "0 5 * * *") // every day at 05:00
	v.SetDefault("digestCacheSize", 4096)
	v.SetDefault("digestDefaultLocale", "fr")

	v.SetDefault("foldersRoot", filepath.Join(os.TempDir(), "masomo", "folders"))

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	wd := Getwd()

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
		AppName:         v.GetString("appName"),
		Env:             env,
		Build:           v.GetString("build"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		WorkDir:         wd,
		FrontendBaseURL: strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		RollbarToken:    v.GetString("rollbarToken"),
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetString("databasePort"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			Name:          v.GetString("databaseName"),
			DisableTLS:    v.GetBool("databaseDisableTLS"),
		},
		Email: EmailConfig{
			Backend: strings.ToLower(v.GetString("emailBackend")),
			DefaultFromEmail: mail.Address{
				Name:    v.GetString("defaultFromName"),
				Address: v.GetString("defaultFromEmail"),
			},
			SendgridAPIKey:    v.GetString("sendgridAPIKey"),
			MailjetPublicKey:  v.GetString("mailjetPublicKey"),
			MailjetPrivateKey: v.GetString("mailjetPrivateKey"),
		},
		Digest: DigestConfig{
			Workers:        v.GetInt("digestWorkers"),
			HandlerTimeout: v.GetDuration("digestHandlerTimeout"),
			Schedule:       v.GetString("digestSchedule"),
			CacheSize:      v.GetInt("digestCacheSize"),
			DefaultLocale:  v.GetString("digestDefaultLocale"),
		},
		Folders: FoldersConfig{
			Root: v.GetString("foldersRoot"),
		},
	}
}
