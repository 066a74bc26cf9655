package history

import (
	"context"
	"database/sql"
	"time"

	"bithumb-rebalance-bot/internal/rebalance"

	_ "modernc.org/sqlite"
)

// Row is one recorded portfolio snapshot, the sqlite analog of a
// performance-history CSV line.
type Row struct {
	Time         time.Time
	AssetPrice   float64
	CashBalance  float64
	AssetBalance float64
	AssetValue   float64
	TotalValue   float64
	AssetRatio   float64
}

// Store is an append-only performance history. The engine only writes;
// nothing in the decision path reads it back.
type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS performance (
		ts INTEGER NOT NULL,
		asset_price REAL NOT NULL,
		cash_balance REAL NOT NULL,
		asset_balance REAL NOT NULL,
		asset_value REAL NOT NULL,
		total_value REAL NOT NULL,
		asset_ratio REAL NOT NULL
	)`)
	return err
}

func (s *Store) Append(ctx context.Context, at time.Time, snap rebalance.Snapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO performance (ts, asset_price, cash_balance, asset_balance, asset_value, total_value, asset_ratio)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		at.UnixMilli(), snap.AssetPrice, snap.CashBalance, snap.AssetBalance,
		snap.AssetValue, snap.TotalValue, snap.AssetRatio)
	return err
}

// Recent returns up to limit rows, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Row, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, asset_price, cash_balance, asset_balance, asset_value, total_value, asset_ratio
		 FROM performance ORDER BY ts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Row
	for rows.Next() {
		var row Row
		var ts int64
		if err := rows.Scan(&ts, &row.AssetPrice, &row.CashBalance, &row.AssetBalance,
			&row.AssetValue, &row.TotalValue, &row.AssetRatio); err != nil {
			return nil, err
		}
		row.Time = time.UnixMilli(ts)
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
