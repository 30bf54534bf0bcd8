package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("MONEYMAN_TEST_DIR", "/tmp/moneyman")

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "empty", path: "", want: ""},
		{name: "absolute untouched", path: "/var/lib/db.sqlite", want: "/var/lib/db.sqlite"},
		{name: "tilde prefix", path: "~/ledger.db", want: filepath.Join(home, "ledger.db")},
		{name: "bare tilde", path: "~", want: home},
		{name: "env var", path: "$MONEYMAN_TEST_DIR/ledger.db", want: "/tmp/moneyman/ledger.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.path))
		})
	}
}

func TestDefaultDatabasePath(t *testing.T) {
	path := DefaultDatabasePath()
	assert.NotEmpty(t, path)
	assert.Equal(t, "moneyman.db", filepath.Base(path))
}
