package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ExportRunStatus is the lifecycle of one export. A run starts generating and
// ends in exactly one terminal state.
type ExportRunStatus string

const (
	ExportGenerating ExportRunStatus = "generating"
	ExportSucceeded  ExportRunStatus = "succeeded"
	ExportFailed     ExportRunStatus = "failed"
)

// Terminal reports whether the run has finished.
func (s ExportRunStatus) Terminal() bool {
	return s == ExportSucceeded || s == ExportFailed
}

// ExportRun journals one PDF or spreadsheet export.
type ExportRun struct {
	bun.BaseModel `bun:"table:export_runs,alias:er"`

	ID         string          `bun:"id,pk" json:"id"`
	SessionID  string          `bun:"session_id,notnull" json:"sessionId,omitempty"`
	Kind       string          `bun:"kind,notnull" json:"kind"`
	Format     string          `bun:"format,notnull" json:"format"`
	Scope      string          `bun:"scope,notnull" json:"scope"`
	FileName   string          `bun:"file_name,notnull" json:"fileName"`
	Status     ExportRunStatus `bun:"status,notnull" json:"status"`
	RowCount   int             `bun:"row_count,notnull" json:"rowCount"`
	ByteSize   int64           `bun:"byte_size,notnull" json:"byteSize"`
	Error      string          `bun:"error,notnull" json:"error,omitempty"`
	ParamsJSON string          `bun:"params_json,notnull" json:"-"`
	StartedAt  time.Time       `bun:"started_at,notnull,default:current_timestamp" json:"startedAt"`
	FinishedAt *time.Time      `bun:"finished_at" json:"finishedAt,omitempty"`
}

// Duration is zero while the run is still generating.
func (r ExportRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
