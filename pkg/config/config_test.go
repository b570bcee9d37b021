package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 30, cfg.Fees.DefaultDueDays)
	assert.Equal(t, "USD", cfg.Fees.Currency)
	assert.Equal(t, 2*time.Minute, cfg.Dashboard.CacheTTL)
	assert.Equal(t, int64(10*1024*1024), cfg.Uploads.MaxFileSizeBytes)
	assert.Contains(t, cfg.Uploads.AllowedExtensions, ".pdf")
	assert.Equal(t, 8*time.Hour, cfg.Staff.WorkdayStart)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("FEES_DEFAULT_DUE_DAYS", -5)
	v.Set("DASHBOARD_CACHE_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	v.Set("STAFF_WORKDAY_START", "7h30m")

	cfg := fromViper(v)

	assert.Equal(t, 30, cfg.Fees.DefaultDueDays)
	assert.Equal(t, 2*time.Minute, cfg.Dashboard.CacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 7*time.Hour+30*time.Minute, cfg.Staff.WorkdayStart)
}
