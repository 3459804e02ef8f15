package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// productionOrigins are always allowed by CORS.
var productionOrigins = []string{
	"https://tallervidesol.com",
	"https://www.tallervidesol.com",
	"https://tesis-taller-front-git-main-branco0verflows-projects.vercel.app",
}

// Config holds every environment-driven setting of the server.
type Config struct {
	Port           string
	AllowedOrigins []string
	Engine         string
	Language       string
	Timeout        time.Duration
	Parallelism    int
	MaxUploadBytes int64
	DBDSN          string
	AutoMigrate    bool
	JWTSecret      string
	LogLevel       string
}

// loadConfig reads the configuration through lookup (os.LookupEnv when nil).
func loadConfig(lookup func(string) (string, bool)) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(k, def string) string {
		if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := Config{
		Port:        get("PORT", "3001"),
		Engine:      strings.ToLower(get("OCR_ENGINE", "vision")),
		Language:    get("OCR_LANGUAGE", "es"),
		DBDSN:       get("DB_DSN", ""),
		AutoMigrate: true,
		JWTSecret:   get("JWT_SECRET", ""),
		LogLevel:    get("LOG_LEVEL", "info"),
	}

	cfg.AllowedOrigins = append([]string(nil), productionOrigins...)
	// A wildcard origin together with credentials is never honoured.
	if o := strings.TrimRight(get("FRONTEND_ORIGIN", ""), "/"); o != "" && o != "*" {
		if !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return Config{}, fmt.Errorf("invalid FRONTEND_ORIGIN %q: scheme required", o)
		}
		cfg.AllowedOrigins = append([]string{o}, cfg.AllowedOrigins...)
	}

	var err error
	if cfg.Timeout, err = time.ParseDuration(get("OCR_TIMEOUT", "60s")); err != nil || cfg.Timeout <= 0 {
		return Config{}, fmt.Errorf("invalid OCR_TIMEOUT %q", get("OCR_TIMEOUT", ""))
	}
	if cfg.Parallelism, err = strconv.Atoi(get("OCR_PARALLELISM", "4")); err != nil || cfg.Parallelism < 1 || cfg.Parallelism > 4 {
		return Config{}, fmt.Errorf("invalid OCR_PARALLELISM %q (1..4)", get("OCR_PARALLELISM", ""))
	}
	mb, err := strconv.Atoi(get("MAX_UPLOAD_MB", "6"))
	if err != nil || mb < 1 {
		return Config{}, fmt.Errorf("invalid MAX_UPLOAD_MB %q", get("MAX_UPLOAD_MB", ""))
	}
	cfg.MaxUploadBytes = int64(mb) << 20
	switch strings.ToLower(get("DB_AUTO_MIGRATE", "true")) {
	case "false", "0", "no":
		cfg.AutoMigrate = false
	}
	return cfg, nil
}
