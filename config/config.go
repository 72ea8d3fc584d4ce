// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	migrateOnly    = pflag.Bool("migrate-only", false, "Runs database migrations and exits")
	validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}
	validDrivers   = []string{"sqlite", "postgres"}
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// MigrateOnly reports whether the process should stop after migrations
func MigrateOnly() bool {
	return *migrateOnly
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.domain", "host_domain")

	v.BindEnv("db.driver", "db_driver")
	v.BindEnv("db.dsn", "db_dsn")

	v.BindEnv("ssh.user", "ssh_user")
	v.BindEnv("ssh.key_path", "ssh_key_path")
	v.BindEnv("ssh.connect_timeout", "ssh_connect_timeout")

	v.BindEnv("storage.root", "storage_root")

	v.BindEnv("ffmpeg.path", "ffmpeg_path")
	v.BindEnv("ffmpeg.batch_workers", "ffmpeg_batch_workers")

	v.BindEnv("jwt.secret", "jwt_secret")

	v.BindEnv("archive.enabled", "archive_enabled")
	v.BindEnv("archive.account_id", "archive_account_id")
	v.BindEnv("archive.access_key_id", "archive_access_key_id")
	v.BindEnv("archive.secret_access_key", "archive_secret_access_key")
	v.BindEnv("archive.bucket", "archive_bucket")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "database.db")

	v.SetDefault("ssh.user", "media")
	v.SetDefault("ssh.connect_timeout", 10*time.Second)

	v.SetDefault("storage.root", "/home")

	v.SetDefault("ffmpeg.path", "ffmpeg")
	v.SetDefault("ffmpeg.batch_workers", 2)

	v.SetDefault("archive.enabled", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return errors.New("config.toml file is missing")
		}

		return fmt.Errorf("failed to read config file, %w", err)
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if !slices.Contains(validDrivers, v.GetString("db.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("db.dsn") == "" {
		return errors.New("no database dsn provided")
	}

	if v.GetString("ssh.key_path") == "" {
		return errors.New("no ssh key path provided")
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	if v.GetInt("ffmpeg.batch_workers") <= 0 {
		return errors.New("ffmpeg.batch_workers must be bigger than 0")
	}

	if v.GetBool("archive.enabled") {
		if v.GetString("archive.account_id") == "" {
			return errors.New("archive account id can't be empty")
		}
		if v.GetString("archive.access_key_id") == "" {
			return errors.New("archive access key id can't be empty")
		}
		if v.GetString("archive.secret_access_key") == "" {
			return errors.New("archive secret access key can't be empty")
		}
		if v.GetString("archive.bucket") == "" {
			return errors.New("archive bucket can't be empty")
		}
	}

	return nil
}
