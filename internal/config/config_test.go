package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/DoyleJ11/deckbp/internal/apperrors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "decks/pool.json", cfg.DeckPool)
	assert.Equal(t, uint64(0), cfg.Seed)
	assert.Equal(t, 100, cfg.IconWidth)
	assert.Equal(t, 140, cfg.IconHeight)
	assert.Equal(t, 10*time.Minute, cfg.LobbyIdle)
	assert.Equal(t, language.English, cfg.Language())
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BP_SEED=99\nBP_LANG=zh-Hans\n"), 0o644))
	t.Setenv("BP_SEED", "")
	os.Unsetenv("BP_SEED")
	t.Setenv("BP_LANG", "")
	os.Unsetenv("BP_LANG")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), cfg.Seed)
	assert.Equal(t, language.MustParse("zh-Hans"), cfg.Language())
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{name: "bad seed", key: "BP_SEED", val: "not-a-number"},
		{name: "bad icon width", key: "BP_ICON_WIDTH", val: "0"},
		{name: "bad language", key: "BP_LANG", val: "!!"},
		{name: "zero lobby idle", key: "BP_LOBBY_IDLE", val: "0s"},
		{name: "bad lobby idle", key: "BP_LOBBY_IDLE", val: "soon"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			_, err := Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.Config)
		})
	}
}
