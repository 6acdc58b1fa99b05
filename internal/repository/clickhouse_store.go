package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"BrentShift/internal/domain/models"
	domrepo "BrentShift/internal/domain/repository"
	pkgch "BrentShift/pkg/clickhouse"
	applogger "BrentShift/pkg/logger"
)

var chSchema = []string{
	`CREATE DATABASE IF NOT EXISTS brentshift`,
	`CREATE TABLE IF NOT EXISTS brentshift.analysis_results (
        run_id       String,
        generated_at DateTime('UTC'),
        breaks       UInt8,
        max_rhat     Float64,
        converged    UInt8,
        payload      String
    ) ENGINE = MergeTree ORDER BY generated_at`,
	`CREATE TABLE IF NOT EXISTS brentshift.analyzed_prices (
        run_id String,
        day    Date,
        price  Float64
    ) ENGINE = MergeTree ORDER BY (run_id, day)`,
}

// CHResultStore persists analysis results and their input series in
// ClickHouse, for deployments where results feed dashboards instead of a
// local directory.
type CHResultStore struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

func NewCHResultStore(ch *pkgch.Client, l *applogger.Logger) *CHResultStore {
	return &CHResultStore{ch: ch, db: ch.DB(), l: l}
}

func (s *CHResultStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, chSchema)
}

func (s *CHResultStore) Save(ctx context.Context, res *models.AnalysisResult) error {
	start := time.Now()
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	converged := uint8(0)
	if res.Diagnostics.Converged {
		converged = 1
	}
	const q = `INSERT INTO brentshift.analysis_results
        (run_id, generated_at, breaks, max_rhat, converged, payload)
        VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q,
		res.RunID,
		res.GeneratedAt.UTC(),
		uint8(res.Breaks),
		res.Diagnostics.MaxRHat,
		converged,
		string(payload),
	); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse save result error",
				applogger.String("run_id", res.RunID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("save result: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse save result ok",
			applogger.String("run_id", res.RunID),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// SaveSeries inserts the analyzed price rows in chunked multi-row VALUES
// statements to keep round-trips down.
func (s *CHResultStore) SaveSeries(ctx context.Context, runID string, series models.PriceSeries) error {
	if len(series) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(series); start += chunkSize {
		end := start + chunkSize
		if end > len(series) {
			end = len(series)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*3)
		for _, p := range series[start:end] {
			values = append(values, "(?, ?, ?)")
			args = append(args, runID, p.Date.UTC(), p.Price)
		}
		q := fmt.Sprintf("INSERT INTO brentshift.analyzed_prices (run_id, day, price) VALUES %s", strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("save series chunk: %w", err)
		}
	}
	if s.l != nil {
		s.l.Info("clickhouse series archived",
			applogger.String("run_id", runID),
			applogger.Int("rows", len(series)),
		)
	}
	return nil
}

func (s *CHResultStore) Latest(ctx context.Context) (*models.AnalysisResult, error) {
	const q = `SELECT payload FROM brentshift.analysis_results ORDER BY generated_at DESC LIMIT 1`
	var payload string
	err := s.db.QueryRowContext(ctx, q).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domrepo.ErrNoResult
	}
	if err != nil {
		return nil, fmt.Errorf("latest result: %w", err)
	}
	var res models.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}

func (s *CHResultStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHResultStore) Close() error {
	return s.ch.Close()
}
