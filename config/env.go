package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv loads .env (or the files named in ENV_FILE) into the process
// environment. Variables already set win.
func LoadEnv() {
	var files []string
	if f := os.Getenv("ENV_FILE"); f != "" {
		files = append(files, f)
	}
	if err := godotenv.Load(files...); err != nil {
		slog.Info("no .env file found, using environment variables")
	}
}
