package postgres

import (
	"context"
	"fmt"
	"time"

	"premiumflow/internal/premium/memorystore"

	"gorm.io/gorm/clause"
)

const displayTimeLayout = "15:04:05"

// SaveTrade inserts t. Replays of an already archived trade ID are ignored.
func (p *PostgresClient) SaveTrade(ctx context.Context, t memorystore.Trade) error {
	record := ToTradeRecord(t)
	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trade_id"}},
		DoNothing: true,
	}).Create(record)

	if tx.Error != nil {
		return fmt.Errorf("insert trade %s: %w", t.ID, tx.Error)
	}
	return nil
}

func (p *PostgresClient) RecentTrades(ctx context.Context, ticker string, limit int) ([]memorystore.Trade, error) {
	q := p.DB.WithContext(ctx).Model(&TradeRecord{}).Order("timestamp DESC, id DESC")
	if ticker != "" {
		q = q.Where("ticker = ?", ticker)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var records []TradeRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query recent trades: %w", err)
	}

	loc := p.loc
	if loc == nil {
		loc = time.UTC
	}
	out := make([]memorystore.Trade, 0, len(records))
	for _, r := range records {
		out = append(out, r.ToTrade(loc))
	}
	return out, nil
}

func (p *PostgresClient) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	tx := p.DB.WithContext(ctx).
		Where("timestamp < ?", before).
		Delete(&TradeRecord{})
	if tx.Error != nil {
		return 0, tx.Error
	}
	return tx.RowsAffected, nil
}

// ToTradeRecord converts a Trade into a TradeRecord for DB insertion.
func ToTradeRecord(t memorystore.Trade) *TradeRecord {
	return &TradeRecord{
		TradeID:    t.ID,
		Symbol:     t.Symbol,
		Ticker:     t.Ticker,
		Strike:     t.Strike,
		Expiration: t.Expiration,
		OptionType: t.OptionType,
		Price:      t.Price,
		Size:       t.Size,
		Premium:    t.Premium,
		Exchange:   t.Exchange,
		Condition:  t.Condition,
		Timestamp:  t.Timestamp.UTC(),
	}
}

// ToTrade converts a stored record back, rendering Time in loc.
func (r TradeRecord) ToTrade(loc *time.Location) memorystore.Trade {
	return memorystore.Trade{
		ID:         r.TradeID,
		Symbol:     r.Symbol,
		Ticker:     r.Ticker,
		Strike:     r.Strike,
		Expiration: r.Expiration,
		OptionType: r.OptionType,
		Price:      r.Price,
		Size:       r.Size,
		Premium:    r.Premium,
		Time:       r.Timestamp.In(loc).Format(displayTimeLayout),
		Exchange:   r.Exchange,
		Condition:  r.Condition,
		Timestamp:  r.Timestamp.UTC(),
	}
}
