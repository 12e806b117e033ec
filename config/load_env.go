package config

import (
	"log/slog"
	"os"

	"github.com/subosito/gotenv"
)

const (
	envDir = "config/envs/.env."

	// PRODUCTION_ENV is the APP_ENV value of production deployments.
	PRODUCTION_ENV = "prod"
)

// AppEnv returns APP_ENV, defaulting to dev.
func AppEnv() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	return env
}

func IsProduction() bool {
	return AppEnv() == PRODUCTION_ENV
}

// LoadEnv loads config/envs/.env.<env> into the process environment.
// Variables already set in the environment win over the file.
func LoadEnv(env string) {
	envFile := envDir + env
	if err := gotenv.Load(envFile); err != nil {
		slog.Warn("[Config] No .env file found, using OS environment",
			slog.String("file", envFile))
	}
}
