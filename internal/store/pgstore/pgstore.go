// Package pgstore keeps the friendly-default roster in Postgres.
package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/deckbp/internal/apperrors"
	"github.com/DoyleJ11/deckbp/internal/catalog"
	"github.com/DoyleJ11/deckbp/internal/deck"
)

// FriendlyDeck is one row of the friendly-default roster.
type FriendlyDeck struct {
	ID       uint   `gorm:"primaryKey"`
	Position int    `gorm:"not null;uniqueIndex"`
	Name     string `gorm:"not null"`
	IconPath string `gorm:"not null"`
}

type Store struct {
	db   *gorm.DB
	pool *pgxpool.Pool // nil when built with New
}

var _ catalog.FriendlyStore = (*Store)(nil)

// Open connects to dsn through a pgx pool and migrates the roster table.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfig, "parse database url", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfig, "open postgres", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.Wrap(apperrors.KindConfig, "ping postgres", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		pool.Close()
		return nil, apperrors.Wrap(apperrors.KindConfig, "open gorm", err)
	}
	s, err := New(db)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.pool = pool
	return s, nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&FriendlyDeck{}); err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfig, "migrate friendly_decks", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) LoadFriendly(ctx context.Context) ([]deck.Record, error) {
	var rows []FriendlyDeck
	if err := s.db.WithContext(ctx).Order("position").Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.KindConfig, "load friendly roster", err)
	}
	if len(rows) != deck.FriendlyRosterSize {
		return nil, apperrors.New(apperrors.KindConfig,
			fmt.Sprintf("friendly roster has %d decks, want %d", len(rows), deck.FriendlyRosterSize))
	}
	return toRecords(rows), nil
}

// SaveFriendly replaces the roster in a single transaction.
func (s *Store) SaveFriendly(ctx context.Context, records []deck.Record) error {
	if len(records) != deck.FriendlyRosterSize {
		return apperrors.New(apperrors.KindPersistence,
			fmt.Sprintf("refusing to save %d decks, want %d", len(records), deck.FriendlyRosterSize))
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&FriendlyDeck{}).Error; err != nil {
			return err
		}
		rows := toRows(records)
		return tx.Create(&rows).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindPersistence, "save friendly roster", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	err = sqlDB.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

func toRows(records []deck.Record) []FriendlyDeck {
	rows := make([]FriendlyDeck, len(records))
	for i, r := range records {
		rows[i] = FriendlyDeck{Position: i, Name: r.Name, IconPath: r.IconPath}
	}
	return rows
}

func toRecords(rows []FriendlyDeck) []deck.Record {
	out := make([]deck.Record, len(rows))
	for i, r := range rows {
		out[i] = deck.Record{Name: r.Name, IconPath: r.IconPath}
	}
	return out
}
