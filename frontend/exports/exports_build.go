package exports

import (
	"context"
	"fmt"
	"time"

	"dailyreport/reporting"
)

// Namer resolves the pending filter ids for the document header.
type Namer interface {
	GroupName(ctx context.Context, id reporting.ID) string
	ProjectName(ctx context.Context, id reporting.ID) string
}

// BuildReport snapshots the session's loaded data for kind. Detail kinds load
// the whole tree first and flatten it fully expanded, whatever the screen
// currently shows.
func BuildReport(ctx context.Context, s *reporting.Session, kind Kind, names Namer, at time.Time, runID string) (Report, error) {
	st := s.State()
	if want := KindFor(st.Params); kind != want {
		return Report{}, fmt.Errorf("%w: current view exports %s", ErrKindMismatch, want)
	}
	if !st.ShowData {
		return Report{}, ErrNoData
	}

	meta := Meta{
		Title:          kind.Title(),
		DateRangeLabel: st.Params.DateRangeLabel(),
		Reference:      runID,
		GeneratedAt:    at,
	}
	if kind == KindPendingSummary {
		m := st.Matrix()
		meta.DateRangeLabel = ""
		meta.Info = pendingInfo(ctx, st.Params, names)
		return Report{Kind: kind, Meta: meta, Pending: &m}, nil
	}

	tree := s.Tree()
	opts := reporting.Options{}
	if st.Params.DetailView() {
		if err := tree.LoadAll(ctx); err != nil {
			return Report{}, fmt.Errorf("load report tree: %w", err)
		}
		opts.ForceExpandAll = true
	}
	snap := tree.Snapshot()
	if tree.Epoch() != st.Epoch {
		return Report{}, fmt.Errorf("%w: view changed during export", ErrNoData)
	}
	meta.Info = []string{"Date: " + meta.DateRangeLabel}
	return Report{
		Kind: kind,
		Meta: meta,
		Rows: reporting.Flatten(st.Summaries, snap, opts),
	}, nil
}

func pendingInfo(ctx context.Context, p reporting.Params, names Namer) []string {
	group, project := p.GroupID.String(), p.ProjectID.String()
	if names != nil {
		group = names.GroupName(ctx, p.GroupID)
		project = names.ProjectName(ctx, p.ProjectID)
	}
	return []string{
		"Group: " + group,
		"Project: " + project,
		"Lot: " + p.LotNo,
	}
}

// Scope is the file name segment identifying what was exported.
func Scope(p reporting.Params) string {
	if p.Tab == reporting.TabPending {
		return "Lot_" + p.LotNo
	}
	return reporting.DateRangeScope(p.Start, p.End)
}
