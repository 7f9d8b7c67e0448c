package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_TYPE", "")
	t.Setenv("CRAWL_WORKERS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, 4, cfg.CrawlWorkers)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_TYPE", "POSTGRES")
	t.Setenv("DB_DSN", "postgres://localhost/zeeguu")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("CRAWL_WORKERS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBType)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 4, cfg.CrawlWorkers, "unparsable values fall back to defaults")
}

func TestValidate(t *testing.T) {
	t.Setenv("DB_TYPE", "mongo")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_DSN", "")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("CRAWL_WORKERS", "0")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadAlgorithmAndInviteCode(t *testing.T) {
	t.Setenv("SR_ALGORITHM", "SM2")
	t.Setenv("REQUIRE_INVITE_CODE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sm2", cfg.SRAlgorithm)
	assert.True(t, cfg.RequireInviteCode)

	t.Setenv("SR_ALGORITHM", "leitner")
	_, err = Load()
	assert.Error(t, err)
}
