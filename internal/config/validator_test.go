package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsFileReadable(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "template.md")
	require.NoError(t, os.WriteFile(file, []byte("# Report"), 0o600))

	validate, _, err := newValidator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "regular file", path: file},
		{name: "directory", path: dir, wantErr: true},
		{name: "missing file", path: filepath.Join(dir, "missing.md"), wantErr: true},
		{name: "empty path", path: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Var(tt.path, "file")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfigKey(t *testing.T) {
	assert.Equal(t, "database.path", configKey("Config.database.path"))
	assert.Equal(t, "port", configKey("port"))
}
