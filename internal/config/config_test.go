package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                  "development",
		Port:                 "8080",
		JWTSecret:            "secure-secret-at-least-32-chars-long",
		DBDriver:             "postgres",
		DBPassword:           "secure-password",
		DBSSLMode:            "require",
		PostsPerPage:         10,
		IndexCacheSeconds:    20,
		ImageMaxUploadSizeMB: 5,
		MediaBackend:         MediaBackendDisk,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development config", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"zero page size", func(c *Config) { c.PostsPerPage = 0 }, true},
		{"negative cache ttl", func(c *Config) { c.IndexCacheSeconds = -1 }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"s3 without bucket", func(c *Config) { c.MediaBackend = MediaBackendS3 }, true},
		{"s3 with bucket", func(c *Config) { c.MediaBackend = MediaBackendS3; c.S3Bucket = "media" }, false},
		{"unknown media backend", func(c *Config) { c.MediaBackend = "ftp" }, true},
		{"production default secret", func(c *Config) { c.Env = "production"; c.JWTSecret = defaultJWTSecret }, true},
		{"production ssl disabled", func(c *Config) { c.Env = "production"; c.DBSSLMode = "disable" }, true},
		{"production sqlite", func(c *Config) { c.Env = "prod"; c.DBDriver = "sqlite" }, true},
		{"production weak db password", func(c *Config) { c.Env = "production"; c.DBPassword = "password" }, true},
		{"production hardened", func(c *Config) { c.Env = "production" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("POSTS_PER_PAGE", "25")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	defer viper.Reset()

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 25, c.PostsPerPage)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, 20*time.Second, c.IndexCacheTTL())
	assert.Equal(t, MediaBackendDisk, c.MediaBackend)
	assert.Equal(t, "/media/", c.MediaURL)
	assert.Equal(t, int64(5<<20), c.MaxUploadBytes())
}
