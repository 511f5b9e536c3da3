// Package config loads process configuration from an optional .env file and
// BP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/DoyleJ11/deckbp/internal/apperrors"
)

type Config struct {
	Addr         string `env:"BP_ADDR" envDefault:":8080"`
	DeckPool     string `env:"BP_DECK_POOL" envDefault:"decks/pool.json"`
	FriendlyDeck string `env:"BP_FRIENDLY_DECKS" envDefault:"decks/friendly.json"`
	// DatabaseURL switches friendly defaults to Postgres when set.
	DatabaseURL string `env:"BP_DATABASE_URL"`
	// Seed fixes the randomness of every session; 0 draws from crypto/rand.
	Seed       uint64 `env:"BP_SEED" envDefault:"0"`
	Lang       string `env:"BP_LANG" envDefault:"en"`
	LogLevel   string `env:"BP_LOG_LEVEL" envDefault:"info"`
	Dev        bool   `env:"BP_DEV" envDefault:"false"`
	IconWidth  int    `env:"BP_ICON_WIDTH" envDefault:"100"`
	IconHeight int    `env:"BP_ICON_HEIGHT" envDefault:"140"`
	// LobbyIdle is how long a lobby lives with no connected clients.
	LobbyIdle time.Duration `env:"BP_LOBBY_IDLE" envDefault:"10m"`
}

// Load reads envFiles (missing files are skipped) and parses the environment.
// Variables already set in the environment win over .env entries.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, apperrors.Wrap(apperrors.KindConfig, "load "+f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, apperrors.Wrap(apperrors.KindConfig, "parse env", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DeckPool == "" {
		return apperrors.New(apperrors.KindConfig, "BP_DECK_POOL is empty")
	}
	if c.DatabaseURL == "" && c.FriendlyDeck == "" {
		return apperrors.New(apperrors.KindConfig, "BP_FRIENDLY_DECKS is empty and no database configured")
	}
	if c.IconWidth <= 0 || c.IconHeight <= 0 {
		return apperrors.New(apperrors.KindConfig, fmt.Sprintf("icon size %dx%d must be positive", c.IconWidth, c.IconHeight))
	}
	if c.LobbyIdle <= 0 {
		return apperrors.New(apperrors.KindConfig, fmt.Sprintf("BP_LOBBY_IDLE %s must be positive", c.LobbyIdle))
	}
	if _, err := language.Parse(c.Lang); err != nil {
		return apperrors.Wrap(apperrors.KindConfig, "BP_LANG", err)
	}
	return nil
}

// Language returns the default status text language.
func (c Config) Language() language.Tag {
	tag, err := language.Parse(c.Lang)
	if err != nil {
		return language.English
	}
	return tag
}
