// Package store is the persistence boundary: positions, trade logs and bot
// configuration in PostgreSQL. Writes are idempotent upserts so a replayed
// sync or trade event never duplicates rows.
package store

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vmbbz/betmirror-sub005/pkg/engine"
	"github.com/vmbbz/betmirror-sub005/pkg/types"
)

const (
	defaultHost    = "localhost"
	defaultPort    = 5432
	defaultSSLMode = "disable"
)

// Option defines the PostgreSQL connection settings.
type Option struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	ConnString string
	Config     *gorm.Config
}

// PositionRecord mirrors one open position, keyed by (market, token).
type PositionRecord struct {
	ID           uint   `gorm:"primaryKey"`
	MarketID     string `gorm:"uniqueIndex:idx_positions_market_token"`
	TokenID      string `gorm:"uniqueIndex:idx_positions_market_token"`
	Outcome      string
	Title        string
	Slug         string
	Icon         string
	EntryPrice   decimal.Decimal `gorm:"type:numeric"`
	Shares       decimal.Decimal `gorm:"type:numeric"`
	InvestedUSD  decimal.Decimal `gorm:"type:numeric"`
	CurrentPrice decimal.Decimal `gorm:"type:numeric"`
	CurrentValue decimal.Decimal `gorm:"type:numeric"`
	PnL          decimal.Decimal `gorm:"type:numeric"`
	State        string
	ManagedByMM  bool
	UpdatedAt    time.Time
}

// TradeLog records one executed or skipped trade.
type TradeLog struct {
	ID        string `gorm:"primaryKey"`
	SignalID  string `gorm:"index"`
	Trader    string
	MarketID  string
	TokenID   string
	Side      string
	SizedUSD  decimal.Decimal `gorm:"type:numeric"`
	Reason    string
	Success   bool
	OrderID   string
	ProfitUSD decimal.Decimal `gorm:"type:numeric"`
	CreatedAt time.Time
}

// BotConfig persists one session's configuration as a named blob.
type BotConfig struct {
	Name      string `gorm:"primaryKey"`
	Payload   string
	UpdatedAt time.Time
}

// Store wraps the connection pool and implements the engine's persistence
// surface.
type Store struct {
	db *gorm.DB
}

// Open connects and migrates the schema.
func Open(opt Option) (*Store, error) {
	dsn, err := opt.dsn()
	if err != nil {
		return nil, err
	}
	config := opt.Config
	if config == nil {
		config = &gorm.Config{}
	}
	db, err := gorm.Open(postgres.Open(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&PositionRecord{}, &TradeLog{}, &BotConfig{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SavePosition upserts one position by its (market, token) key.
func (s *Store) SavePosition(ctx context.Context, pos types.Position) error {
	record := PositionRecord{
		MarketID:     pos.MarketID,
		TokenID:      pos.TokenID,
		Outcome:      pos.Outcome,
		Title:        pos.Title,
		Slug:         pos.Slug,
		Icon:         pos.Icon,
		EntryPrice:   pos.EntryPrice,
		Shares:       pos.Shares,
		InvestedUSD:  pos.InvestedUSD,
		CurrentPrice: pos.CurrentPrice,
		CurrentValue: pos.CurrentValue,
		PnL:          pos.PnL,
		State:        string(pos.State),
		ManagedByMM:  pos.ManagedByMM,
		UpdatedAt:    pos.UpdatedAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "market_id"}, {Name: "token_id"}},
		UpdateAll: true,
	}).Create(&record).Error
}

// RemovePosition deletes a confirmed-gone position.
func (s *Store) RemovePosition(ctx context.Context, marketID, tokenID string) error {
	return s.db.WithContext(ctx).
		Where("market_id = ? AND token_id = ?", marketID, tokenID).
		Delete(&PositionRecord{}).Error
}

// SaveTrade appends one trade event. The signal id doubles as the row key
// when present, so a replayed signal is written once.
func (s *Store) SaveTrade(ctx context.Context, ev engine.TradeEvent) error {
	id := ev.Signal.ID
	if id == "" {
		id = uuid.NewString()
	}
	record := TradeLog{
		ID:        id,
		SignalID:  ev.Signal.ID,
		Trader:    ev.Signal.Trader,
		MarketID:  ev.Signal.MarketID,
		TokenID:   ev.Signal.TokenID,
		Side:      string(ev.Signal.Side),
		SizedUSD:  ev.SizedUSD,
		Reason:    ev.Reason,
		Success:   ev.Success,
		OrderID:   ev.OrderID,
		ProfitUSD: ev.ProfitUSD,
		CreatedAt: ev.At,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error
}

// SaveConfig upserts a named configuration payload.
func (s *Store) SaveConfig(ctx context.Context, name, payload string) error {
	record := BotConfig{Name: name, Payload: payload, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(&record).Error
}

// LoadConfig fetches a named configuration payload; empty when absent.
func (s *Store) LoadConfig(ctx context.Context, name string) (string, error) {
	var record BotConfig
	err := s.db.WithContext(ctx).First(&record, "name = ?", name).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return record.Payload, nil
}

func (opt Option) dsn() (string, error) {
	if opt.ConnString != "" {
		return opt.ConnString, nil
	}
	host := opt.Host
	if host == "" {
		host = defaultHost
	}
	port := opt.Port
	if port == 0 {
		port = defaultPort
	}
	sslMode := opt.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}
	if opt.User != "" {
		if opt.Password != "" {
			u.User = url.UserPassword(opt.User, opt.Password)
		} else {
			u.User = url.User(opt.User)
		}
	}
	if opt.Database != "" {
		u.Path = "/" + opt.Database
	}
	query := url.Values{}
	query.Set("sslmode", sslMode)
	u.RawQuery = query.Encode()
	return u.String(), nil
}
