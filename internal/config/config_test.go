package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "GEMINI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY",
		"DEEPREAD_LLM_PROVIDER", "DEEPREAD_OPENAI_API_KEY", "DEEPREAD_OPENAI_MODEL",
		"DEEPREAD_LLM_TIMEOUT", "PORT", "DEEPREAD_ADDR", "DEEPREAD_ALLOWED_ORIGINS",
		"SUPABASE_JWT_SECRET", "DEEPREAD_JWT_SECRET", "DATABASE_URL",
		"DEEPREAD_POSTGRES_DSN", "REDIS_URL", "DEEPREAD_REDIS_ADDR",
		"DEEPREAD_LOG_LEVEL", "DEEPREAD_PRACTICE_IDLE_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 30*time.Minute, cfg.Practice.IdleTimeout)
	assert.Equal(t, "openai", cfg.LLM.Provider)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "deepread.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: mock
server:
  addr: ":8080"
  allowed_origins: ["https://app.example.com"]
practice:
  idle_timeout: 5m
log:
  level: debug
`), 0o644))

	t.Setenv("PORT", "9000")
	t.Setenv("SUPABASE_JWT_SECRET", "s3cret")
	t.Setenv("DEEPREAD_PRACTICE_IDLE_TIMEOUT", "10m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.LLM.Provider)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 10*time.Minute, cfg.Practice.IdleTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides a set variable, even an empty one.
	os.Unsetenv("DEEPREAD_REDIS_ADDR")
	require.NoError(t, os.WriteFile(".env", []byte("DEEPREAD_REDIS_ADDR=localhost:6379\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_DiscoversVendorKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "g-key", cfg.LLM.Gemini.APIKey)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "deepread.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = "mock"
	require.NoError(t, cfg.Validate())

	cfg.Practice.IdleTimeout = 0
	cfg.Server.Addr = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.addr")
	assert.Contains(t, err.Error(), "idle_timeout")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
	assert.Nil(t, splitList(""))
}
