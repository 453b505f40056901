package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves to a fresh directory so no .env file is picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := chdir(t)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, BackendMongo, cfg.Store.Backend)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "userdir", cfg.Mongo.DB)
	assert.Equal(t, "users", cfg.Mongo.Collection)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, "userdir:", cfg.Redis.Prefix)
	assert.Equal(t, 10, cfg.Bcrypt.Cost)
	assert.Equal(t, 10, cfg.Page.DefaultLimit)
	assert.Equal(t, 100, cfg.Page.MaxLimit)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	dir := chdir(t)

	yaml := `
store:
  backend: redis
redis:
  addr: "redis:6380"
  db: 2
bcrypt:
  cost: 12
page:
  max_limit: 50
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	t.Setenv("REDIS_PREFIX", "env:")
	t.Setenv("PAGE_MAX_LIMIT", "25")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "env:", cfg.Redis.Prefix)
	assert.Equal(t, 12, cfg.Bcrypt.Cost)
	assert.Equal(t, 25, cfg.Page.MaxLimit, "env must override the file")
	assert.Equal(t, 10, cfg.Page.DefaultLimit)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdir(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MONGO_DB=fromdotenv\n"), 0o600))
	// godotenv sets real environment variables, restored by t.Setenv.
	t.Setenv("MONGO_DB", "")
	os.Unsetenv("MONGO_DB")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "fromdotenv", cfg.Mongo.DB)
}

func TestLoad_InvalidBackend(t *testing.T) {
	dir := chdir(t)
	t.Setenv("USERDIR_STORE", "postgres")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}

func TestLoad_MalformedDotEnv(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BAD-KEY=1\n"), 0o600))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".env")
}

func TestLoad_InvalidBcryptCost(t *testing.T) {
	dir := chdir(t)
	t.Setenv("BCRYPT_COST", "0")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bcrypt cost")
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o600))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		limit   int
		cost    int
		wantErr bool
	}{
		{"mongo", BackendMongo, 10, 10, false},
		{"redis", BackendRedis, 10, 10, false},
		{"memory", BackendMemory, 0, 10, false},
		{"unknown", "sql", 10, 10, true},
		{"empty", "", 10, 10, true},
		{"negative limit", BackendMemory, -1, 10, true},
		{"min cost", BackendMemory, 10, 4, false},
		{"max cost", BackendMemory, 10, 31, false},
		{"zero cost", BackendMemory, 10, 0, true},
		{"cost too low", BackendMemory, 10, 3, true},
		{"cost too high", BackendMemory, 10, 32, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.Store.Backend = tt.backend
			c.Page.MaxLimit = tt.limit
			c.Bcrypt.Cost = tt.cost
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
