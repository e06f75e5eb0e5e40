package exports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dailyreport/infrastructure/audit"
	"dailyreport/models"
	"dailyreport/reporting"
)

// Journal records the lifecycle of each export.
type Journal interface {
	Begin(ctx context.Context, start audit.Start) (models.ExportRun, error)
	Finish(ctx context.Context, id string, out audit.Outcome) error
}

// Result is a rendered export ready to send.
type Result struct {
	RunID       string
	FileName    string
	ContentType string
	Body        []byte
	RowCount    int
}

// Runner renders exports from view sessions and journals each run. Runs share
// nothing but the journal, so concurrent exports need no coordination.
type Runner struct {
	journal Journal
	names   Namer
	logger  *slog.Logger
	now     func() time.Time
}

func NewRunner(journal Journal, names Namer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{journal: journal, names: names, logger: logger, now: time.Now}
}

// Export renders kind in format from the session's current data. Requests that
// do not match the loaded view fail before a run is recorded; once a run is
// generating it always ends succeeded or failed.
func (r *Runner) Export(ctx context.Context, s *reporting.Session, kind Kind, format Format) (Result, error) {
	st := s.State()
	if want := KindFor(st.Params); kind != want {
		return Result{}, fmt.Errorf("%w: current view exports %s", ErrKindMismatch, want)
	}
	if !st.ShowData {
		return Result{}, ErrNoData
	}

	at := r.now()
	runID := uuid.NewString()
	scope := Scope(st.Params)
	fileName := reporting.FileName(string(kind), scope, at, runID[:8], string(format))

	run, err := r.journal.Begin(ctx, audit.Start{
		ID:        runID,
		SessionID: s.ID,
		Kind:      string(kind),
		Format:    string(format),
		Scope:     scope,
		FileName:  fileName,
		Params:    st.Params,
	})
	if err != nil {
		return Result{}, fmt.Errorf("journal export: %w", err)
	}

	body, rows, renderErr := r.render(ctx, s, kind, format, at, runID)
	outcome := audit.Outcome{RowCount: rows, ByteSize: int64(len(body)), Err: renderErr}
	if err := r.journal.Finish(context.WithoutCancel(ctx), run.ID, outcome); err != nil {
		r.logger.Error("finish export run failed", slog.String("run_id", run.ID), slog.Any("err", err))
	}
	if renderErr != nil {
		r.logger.Error("export failed",
			slog.String("run_id", run.ID),
			slog.String("kind", string(kind)),
			slog.String("format", string(format)),
			slog.Any("err", renderErr))
		return Result{}, renderErr
	}

	r.logger.Info("export generated",
		slog.String("run_id", run.ID),
		slog.String("file", fileName),
		slog.Int("rows", rows),
		slog.Int("bytes", len(body)))
	return Result{
		RunID:       run.ID,
		FileName:    fileName,
		ContentType: format.ContentType(),
		Body:        body,
		RowCount:    rows,
	}, nil
}

func (r *Runner) render(ctx context.Context, s *reporting.Session, kind Kind, format Format, at time.Time, runID string) ([]byte, int, error) {
	report, err := BuildReport(ctx, s, kind, r.names, at, runID)
	if err != nil {
		return nil, 0, err
	}
	var body []byte
	switch format {
	case FormatPDF:
		body, err = RenderDocument(report)
	case FormatXLSX:
		body, err = RenderSpreadsheet(report)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, report.RowCount(), err
	}
	return body, report.RowCount(), nil
}
