package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ImpVol/internal/domain/models"
	"ImpVol/internal/domain/repository"
	pkgch "ImpVol/pkg/clickhouse"
	applogger "ImpVol/pkg/logger"
)

const ivColumns = "ts, computed_at, symbol, underlying, option_type, strike, spot, market_price, " +
	"time_to_expiry, rate, dividend_yield, moneyness, status, implied_vol, iterations, reason"

const insertChunk = 2000

// IVSchema returns the DDL for the implied volatility table.
func IVSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    ts             DateTime64(3, 'UTC'),
    computed_at    DateTime64(3, 'UTC'),
    symbol         String,
    underlying     LowCardinality(String),
    option_type    LowCardinality(String),
    strike         Float64,
    spot           Float64,
    market_price   Float64,
    time_to_expiry Float64,
    rate           Float64,
    dividend_yield Float64,
    moneyness      Float64,
    status         LowCardinality(String),
    implied_vol    Float64,
    iterations     UInt16,
    reason         String
) ENGINE = MergeTree
PARTITION BY toYYYYMM(ts)
ORDER BY (underlying, symbol, ts)`, database, table),
	}
}

// ClickHouseIVStore implements IVStorage for ClickHouse.
type ClickHouseIVStore struct {
	client   *pkgch.Client
	db       *sql.DB
	database string
	table    string
	l        *applogger.Logger
}

// NewClickHouseIVStore creates ClickHouse storage for IV records.
func NewClickHouseIVStore(client *pkgch.Client, database, table string, l *applogger.Logger) repository.IVStorage {
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseIVStore{client: client, db: client.DB(), database: database, table: table, l: l}
}

func (s *ClickHouseIVStore) qualified() string { return s.database + "." + s.table }

func (s *ClickHouseIVStore) Init(ctx context.Context) error {
	if err := s.client.InitSchema(ctx, IVSchema(s.database, s.table)); err != nil {
		return fmt.Errorf("iv store: %w", err)
	}
	s.l.Info("clickhouse iv schema ready", applogger.String("table", s.qualified()))
	return nil
}

func (s *ClickHouseIVStore) Store(ctx context.Context, rec *models.IVRecord) error {
	return s.StoreBatch(ctx, []*models.IVRecord{rec})
}

func (s *ClickHouseIVStore) StoreBatch(ctx context.Context, recs []*models.IVRecord) error {
	for start := 0; start < len(recs); start += insertChunk {
		end := min(start+insertChunk, len(recs))
		q, args := buildInsert(s.qualified(), recs[start:end])
		if len(args) == 0 {
			continue
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse insert implied vols failed",
				applogger.String("table", s.qualified()),
				applogger.Int("rows", end-start),
				applogger.Error(err))
			return fmt.Errorf("insert implied vols: %w", err)
		}
	}
	return nil
}

// buildInsert renders one multi-row INSERT; records without a symbol are skipped.
func buildInsert(table string, recs []*models.IVRecord) (string, []interface{}) {
	values := make([]string, 0, len(recs))
	args := make([]interface{}, 0, len(recs)*16)
	for _, r := range recs {
		if r == nil || r.Symbol == "" {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			r.QuoteTime.UTC(), r.ComputedAt.UTC(), r.Symbol, r.Underlying, r.Type.String(),
			r.Strike, r.Spot, r.MarketPrice, r.TimeToExpiry, r.Rate, r.DividendYield, r.Moneyness,
			string(r.Status), r.ImpliedVol, uint16(min(r.Iterations, 65535)), r.Reason,
		)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, ivColumns, strings.Join(values, ",")), args
}

func (s *ClickHouseIVStore) History(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.IVRecord, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", ivColumns, s.qualified())
	rows, err := s.db.QueryContext(ctx, q, symbol, from.UTC(), to.UTC(), limit)
	if err != nil {
		s.l.Error("clickhouse iv history query failed", applogger.String("symbol", symbol), applogger.Error(err))
		return nil, fmt.Errorf("query iv history: %w", err)
	}
	defer rows.Close()

	var out []*models.IVRecord
	for rows.Next() {
		var (
			r          models.IVRecord
			typ, stat  string
			iterations uint16
		)
		if err := rows.Scan(&r.QuoteTime, &r.ComputedAt, &r.Symbol, &r.Underlying, &typ,
			&r.Strike, &r.Spot, &r.MarketPrice, &r.TimeToExpiry, &r.Rate, &r.DividendYield, &r.Moneyness,
			&stat, &r.ImpliedVol, &iterations, &r.Reason); err != nil {
			return nil, fmt.Errorf("scan iv record: %w", err)
		}
		if err := decodeEnums(&r, typ, stat, iterations); err != nil {
			return nil, fmt.Errorf("scan iv record: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// decodeEnums fills the columns stored as plain strings, rejecting values
// outside the known sets.
func decodeEnums(r *models.IVRecord, typ, stat string, iterations uint16) error {
	t, err := models.ParseOptionType(typ)
	if err != nil {
		return err
	}
	if err := r.Status.UnmarshalText([]byte(stat)); err != nil {
		return err
	}
	r.Type = t
	r.Iterations = int(iterations)
	return nil
}

func (s *ClickHouseIVStore) Health(ctx context.Context) error { return s.client.Health(ctx) }

// Close is a no-op; the client is closed by its owner.
func (s *ClickHouseIVStore) Close() error { return nil }
