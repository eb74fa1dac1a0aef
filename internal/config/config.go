package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr          string
	QuestionsPath string
	Dev           bool
}

// Load reads configuration from the environment, with a best-effort .env
// file for local development.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:          ":" + getenv("PORT", "3001"),
		QuestionsPath: getenv("QUESTIONS_PATH", "questions.json"),
		Dev:           os.Getenv("APP_ENV") != "production",
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
