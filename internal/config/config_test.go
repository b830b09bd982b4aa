package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Embedder.Type)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "pinecone", cfg.Index.Type)
	assert.Equal(t, "PINECONE_API_KEY", cfg.Index.Pinecone.APIKeyEnv)
	assert.Equal(t, 100, cfg.Upload.BatchSize)
	assert.Equal(t, "dev", cfg.Logging.Mode)
}

func TestLoad_PartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("embedder:\n  type: openai\n  openai:\n    model: text-embedding-3-small\nindex:\n  type: pinecone\n  pinecone:\n    host: my-index.svc.pinecone.io\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedder.OpenAI.BaseURL)
	assert.Equal(t, "my-index.svc.pinecone.io", cfg.Index.Pinecone.Host)
	assert.Equal(t, 30, cfg.Index.Pinecone.TimeoutSecs)
	assert.Equal(t, 100, cfg.Upload.BatchSize)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := defaultConfig()
	cfg.Index.Pinecone.Host = "comp.svc.pinecone.io"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
