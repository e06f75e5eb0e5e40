package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"dailyreport/infrastructure/sqlite"
	"dailyreport/models"
)

var (
	ErrRunNotFound     = errors.New("export run not found")
	ErrAlreadyFinished = errors.New("export run already finished")
)

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Start describes an export about to be generated.
type Start struct {
	ID        string
	SessionID string
	Kind      string
	Format    string
	Scope     string
	FileName  string
	Params    any
}

// Outcome is the terminal result of a run. A nil Err means success.
type Outcome struct {
	RowCount int
	ByteSize int64
	Err      error
}

// Service journals export runs in the export_runs table.
type Service struct {
	db  *sqlite.DB
	now func() time.Time
}

func NewService(db *sqlite.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Begin records a run in the generating state and returns it.
func (s *Service) Begin(ctx context.Context, start Start) (models.ExportRun, error) {
	paramsJSON, err := marshal(start.Params)
	if err != nil {
		return models.ExportRun{}, err
	}
	run := models.ExportRun{
		ID:         start.ID,
		SessionID:  start.SessionID,
		Kind:       start.Kind,
		Format:     start.Format,
		Scope:      start.Scope,
		FileName:   start.FileName,
		Status:     models.ExportGenerating,
		ParamsJSON: paramsJSON,
		StartedAt:  s.now().UTC(),
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	err = s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&run).Exec(ctx)
		return err
	})
	if err != nil {
		return models.ExportRun{}, fmt.Errorf("begin export run: %w", err)
	}
	return run, nil
}

// Finish moves a generating run to succeeded or failed. Finishing a run twice
// returns ErrAlreadyFinished.
func (s *Service) Finish(ctx context.Context, id string, out Outcome) error {
	status := models.ExportSucceeded
	msg := ""
	if out.Err != nil {
		status = models.ExportFailed
		msg = out.Err.Error()
	}
	finished := s.now().UTC()

	return s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var current models.ExportRun
		err := tx.NewSelect().Model(&current).Column("status").Where("id = ?", id).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("finish %s: %w", id, ErrRunNotFound)
		}
		if err != nil {
			return fmt.Errorf("load export run: %w", err)
		}
		if current.Status.Terminal() {
			return fmt.Errorf("finish %s: %w", id, ErrAlreadyFinished)
		}
		_, err = tx.NewUpdate().
			Model((*models.ExportRun)(nil)).
			Set("status = ?", status).
			Set("row_count = ?", out.RowCount).
			Set("byte_size = ?", out.ByteSize).
			Set("error = ?", msg).
			Set("finished_at = ?", finished).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("finish export run: %w", err)
		}
		return nil
	})
}

// Get loads one run.
func (s *Service) Get(ctx context.Context, id string) (models.ExportRun, error) {
	var run models.ExportRun
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&run).Where("id = ?", id).Scan(ctx)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return models.ExportRun{}, ErrRunNotFound
	}
	if err != nil {
		return models.ExportRun{}, fmt.Errorf("get export run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs first.
func (s *Service) List(ctx context.Context, limit int) ([]models.ExportRun, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	runs := make([]models.ExportRun, 0, limit)
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().
			Model(&runs).
			OrderExpr("started_at DESC, id DESC").
			Limit(limit).
			Scan(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list export runs: %w", err)
	}
	return runs, nil
}

func marshal(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode export params: %w", err)
	}
	return string(b), nil
}
