package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			CORS: CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		},
		Database: DatabaseConfig{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     3306,
			Database: "genius",
			Username: "genius",
		},
		Inference: InferenceConfig{
			Provider:         "gemini",
			TextModel:        "gemini-2.0-flash",
			ImageModel:       "gemini-2.0-flash-preview-image-generation",
			TimeoutSeconds:   120,
			MaxRetryAttempts: 2,
		},
		LocalCache: LocalCacheConfig{
			Backend:   "file",
			Directory: filepath.Join("cache", "local"),
			TTLHours:  720,
			Redis:     RedisConfig{Addr: "localhost:6379"},
		},
	}
}

func TestConfigLoader_Load(t *testing.T) {
	tests := []struct {
		name              string
		configContent     string
		env               map[string]string
		useExplicitPath   bool
		want              func() *Config
		wantErrorContains []string
	}{
		{
			name:            "no config file uses defaults",
			useExplicitPath: false,
			want:            defaultConfig,
		},
		{
			name: "custom values override defaults",
			configContent: `server:
  port: 9090
database:
  driver: postgres
  host: db.internal
  port: 5432
inference:
  provider: openai
  text_model: gpt-4o-mini
  image_model: dall-e-3
credits:
  charge_grading: true
`,
			useExplicitPath: true,
			want: func() *Config {
				cfg := defaultConfig()
				cfg.Server.Port = 9090
				cfg.Database.Driver = "postgres"
				cfg.Database.Host = "db.internal"
				cfg.Database.Port = 5432
				cfg.Inference.Provider = "openai"
				cfg.Inference.TextModel = "gpt-4o-mini"
				cfg.Inference.ImageModel = "dall-e-3"
				cfg.Credits.ChargeGrading = true
				return cfg
			},
		},
		{
			name:            "secrets come from environment variables",
			useExplicitPath: false,
			env: map[string]string{
				"GENIUS_AI_API_KEY":  "global-key",
				"GENIUS_DB_PASSWORD": "db-secret",
				"GENIUS_JWT_SECRET":  "jwt-secret",
			},
			want: func() *Config {
				cfg := defaultConfig()
				cfg.Inference.APIKey = "global-key"
				cfg.Database.Password = "db-secret"
				cfg.Auth.JWTSecret = "jwt-secret"
				return cfg
			},
		},
		{
			name: "invalid YAML format",
			configContent: `server:
  port: 9090
  invalid yaml format here [[[
`,
			useExplicitPath: true,
			wantErrorContains: []string{
				"configuration file found but could not be read",
				"Please check the file format and permissions",
			},
		},
		{
			name: "unknown provider is rejected",
			configContent: `inference:
  provider: llama
`,
			useExplicitPath: true,
			wantErrorContains: []string{
				"invalid configuration",
				"provider must be one of [gemini openai]",
			},
		},
		{
			name: "prompts directory must exist",
			configContent: `templates:
  prompts_directory: /non/existent/prompts
`,
			useExplicitPath: true,
			wantErrorContains: []string{
				"prompts_directory must be an existing and readable directory",
			},
		},
		{
			name: "file cache requires a directory",
			configContent: `local_cache:
  backend: file
  directory: ""
`,
			useExplicitPath: true,
			wantErrorContains: []string{
				"invalid configuration",
				"directory",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"GENIUS_AI_API_KEY", "GENIUS_DB_PASSWORD", "GENIUS_JWT_SECRET", "GENIUS_REDIS_PASSWORD"} {
				t.Setenv(key, tt.env[key])
			}
			tempDir := t.TempDir()

			var configPath string
			if tt.useExplicitPath {
				configPath = filepath.Join(tempDir, "config.yml")
				require.NoError(t, os.WriteFile(configPath, []byte(tt.configContent), 0644))
			} else {
				originalDir, err := os.Getwd()
				require.NoError(t, err)
				defer func() {
					require.NoError(t, os.Chdir(originalDir))
				}()
				require.NoError(t, os.Chdir(tempDir))
			}

			loader, err := NewConfigLoader(configPath)
			require.NoError(t, err)
			got, err := loader.Load()

			if len(tt.wantErrorContains) > 0 {
				assert.Error(t, err)
				assert.Nil(t, got)
				for _, wantMsg := range tt.wantErrorContains {
					assert.Contains(t, err.Error(), wantMsg)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want(), got)
		})
	}
}

func TestConfigLoader_Load_PromptsDirectory(t *testing.T) {
	promptsDir := t.TempDir()
	configPath := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("templates:\n  prompts_directory: "+promptsDir+"\n"), 0644))

	loader, err := NewConfigLoader(configPath)
	require.NoError(t, err)
	got, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, promptsDir, got.Templates.PromptsDirectory)
}
