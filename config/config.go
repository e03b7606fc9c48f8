package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port            string
	MongoURI        string
	DBName          string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

func Load() (*Config, error) {
	timeout := 10 * time.Second
	if v := getEnv("SHUTDOWN_TIMEOUT_SECONDS", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeout = time.Duration(n) * time.Second
		}
	}

	origins := []string{"*"}
	if v := getEnv("CORS_ORIGINS", ""); v != "" {
		origins = origins[:0]
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		MongoURI:        getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:          getEnv("MONGODB_DB", "bibliotheque"),
		CORSOrigins:     origins,
		ShutdownTimeout: timeout,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
