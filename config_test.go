package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(mapLookup(nil))
	require.NoError(t, err)
	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "vision", cfg.Engine)
	assert.Equal(t, "es", cfg.Language)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 4, cfg.Parallelism)
	assert.Equal(t, int64(6<<20), cfg.MaxUploadBytes)
	assert.True(t, cfg.AutoMigrate)
	assert.Empty(t, cfg.DBDSN)
	assert.Equal(t, productionOrigins, cfg.AllowedOrigins)
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := loadConfig(mapLookup(map[string]string{
		"PORT":            "8080",
		"OCR_ENGINE":      "Tesseract",
		"OCR_TIMEOUT":     "15s",
		"OCR_PARALLELISM": "1",
		"MAX_UPLOAD_MB":   "2",
		"DB_AUTO_MIGRATE": "false",
		"FRONTEND_ORIGIN": "http://localhost:5173/",
	}))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "tesseract", cfg.Engine)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, 1, cfg.Parallelism)
	assert.Equal(t, int64(2<<20), cfg.MaxUploadBytes)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, "http://localhost:5173", cfg.AllowedOrigins[0])
	assert.Len(t, cfg.AllowedOrigins, len(productionOrigins)+1)
}

func TestLoadConfigWildcardOriginIgnored(t *testing.T) {
	cfg, err := loadConfig(mapLookup(map[string]string{"FRONTEND_ORIGIN": "*"}))
	require.NoError(t, err)
	assert.NotContains(t, cfg.AllowedOrigins, "*")
}

func TestLoadConfigInvalid(t *testing.T) {
	for _, env := range []map[string]string{
		{"OCR_TIMEOUT": "soon"},
		{"OCR_TIMEOUT": "-1s"},
		{"OCR_PARALLELISM": "0"},
		{"OCR_PARALLELISM": "9"},
		{"MAX_UPLOAD_MB": "x"},
		{"FRONTEND_ORIGIN": "localhost:3000"},
	} {
		_, err := loadConfig(mapLookup(env))
		assert.Error(t, err, "%v", env)
	}
}
