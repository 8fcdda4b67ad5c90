package postgres

import "time"

// TradeRecord is an admitted premium trade stored in the archive.
type TradeRecord struct {
	ID uint `gorm:"primaryKey"`

	TradeID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_premium_trade_trade_id"`

	Symbol     string  `gorm:"type:text;not null"`
	Ticker     string  `gorm:"type:varchar(16);not null;index:idx_premium_trade_ticker_ts,priority:1"`
	Strike     float64 `gorm:"type:numeric;not null"`
	Expiration string  `gorm:"type:varchar(16);not null"`
	OptionType string  `gorm:"type:varchar(8);not null"`

	Price   float64 `gorm:"type:numeric;not null"`
	Size    int     `gorm:"not null"`
	Premium float64 `gorm:"type:numeric;not null"`

	Exchange  string `gorm:"type:varchar(8)"`
	Condition string `gorm:"type:text"`

	Timestamp time.Time `gorm:"not null;index:idx_premium_trade_timestamp;index:idx_premium_trade_ticker_ts,priority:2"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (TradeRecord) TableName() string {
	return "premium_trade"
}
