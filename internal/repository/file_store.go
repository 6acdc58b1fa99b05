package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"BrentShift/internal/domain/models"
	domrepo "BrentShift/internal/domain/repository"
	applogger "BrentShift/pkg/logger"
	"BrentShift/pkg/util"
)

const (
	latestResultFile = "result.json"
	runArchiveDir    = "runs"
)

// FileResultStore persists analysis results under a directory: the latest
// result at a fixed name, plus one archived copy per run. Writes go through
// a temp file and rename, so readers never observe a half-written result.
type FileResultStore struct {
	dir string
	l   *applogger.Logger
}

func NewFileResultStore(dir string, l *applogger.Logger) *FileResultStore {
	return &FileResultStore{dir: dir, l: l}
}

func (s *FileResultStore) Init(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Join(s.dir, runArchiveDir), 0o755); err != nil {
		return fmt.Errorf("init result dir: %w", err)
	}
	return nil
}

func (s *FileResultStore) Save(ctx context.Context, res *models.AnalysisResult) error {
	payload, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := writeAtomic(filepath.Join(s.dir, latestResultFile), payload); err != nil {
		return err
	}
	archive := filepath.Join(s.dir, runArchiveDir, res.RunID+".json")
	if err := writeAtomic(archive, payload); err != nil {
		return err
	}
	if s.l != nil {
		s.l.Info("analysis result persisted",
			applogger.String("run_id", res.RunID),
			applogger.String("path", archive),
		)
	}
	return nil
}

// SaveSeries archives the exact price series a run analyzed, so a result can
// be reproduced after the source file changes.
func (s *FileResultStore) SaveSeries(ctx context.Context, runID string, series models.PriceSeries) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write([]string{"Date", "Price"})
	for _, p := range series {
		_ = cw.Write([]string{util.FormatDay(p.Date), strconv.FormatFloat(p.Price, 'f', -1, 64)})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("encode series: %w", err)
	}
	return writeAtomic(filepath.Join(s.dir, runArchiveDir, runID+"-prices.csv"), buf.Bytes())
}

func (s *FileResultStore) Latest(ctx context.Context) (*models.AnalysisResult, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, latestResultFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domrepo.ErrNoResult
	}
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}
	var res models.AnalysisResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}

func (s *FileResultStore) Health(ctx context.Context) error {
	_, err := os.Stat(s.dir)
	return err
}

func (s *FileResultStore) Close() error { return nil }

func writeAtomic(path string, payload []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
