package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/config"
	"ledger/internal/storage"
	"ledger/internal/store/file"
	"ledger/internal/store/memory"
)

func TestCreateBackendByType(t *testing.T) {
	dir := t.TempDir()
	f := NewFactory(nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		config Config
		check  func(t *testing.T, r *BackendResult)
	}{
		{
			name:   "memory",
			config: Config{Type: MemoryBackend},
			check: func(t *testing.T, r *BackendResult) {
				_, ok := r.Store.(*memory.Store)
				assert.True(t, ok)
			},
		},
		{
			name:   "file",
			config: Config{Type: FileBackend, DataFile: filepath.Join(dir, "ledger.json")},
			check: func(t *testing.T, r *BackendResult) {
				_, ok := r.Store.(*file.Store)
				assert.True(t, ok)
			},
		},
		{
			name:   "sqlite",
			config: Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "ledger.db")},
			check: func(t *testing.T, r *BackendResult) {
				_, ok := r.Store.(*storage.SQLiteRepository)
				assert.True(t, ok)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := f.CreateBackend(ctx, tt.config)
			require.NoError(t, err)
			defer r.Store.Close()
			tt.check(t, r)
			assert.NotEmpty(t, r.Description)
		})
	}
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	f := NewFactory(nil)
	_, err := f.CreateBackend(context.Background(), Config{Type: "cloud"})
	assert.Error(t, err)
	_, err = f.CreateBackend(context.Background(), Config{Type: FileBackend})
	assert.Error(t, err)
	_, err = f.CreateBackend(context.Background(), Config{Type: SQLiteBackend})
	assert.Error(t, err)
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	c, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", DataFile: "x.json"})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, c.Type)
	assert.Equal(t, "x.db", c.SQLiteDBPath)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	assert.Equal(t, []string{"file", "memory", "sqlite"}, GetBackendTypeStrings())
}
