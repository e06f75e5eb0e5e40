package reportapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"golang.org/x/sync/errgroup"

	"dailyreport/reporting"
)

// LoadSummaries runs the top-level fetch for the process and group
// production tabs.
func (c *Client) LoadSummaries(ctx context.Context, p reporting.Params) ([]reporting.Summary, error) {
	switch p.Tab {
	case reporting.TabGroupProduction:
		var row completedRow
		if err := c.getJSON(ctx, "/Reports/DailyProductionSummaryReport", dateParams(p), &row); err != nil {
			return nil, err
		}
		return []reporting.Summary{{
			Path:    reporting.ProcessPath("Total"),
			Name:    "Total",
			Counts:  row.counts(),
			IsTotal: true,
		}}, nil
	case reporting.TabProcessProduction:
		var rows []completedRow
		if err := c.getJSON(ctx, "/Reports/Process-Production-Report", dateParams(p), &rows); err != nil {
			return nil, err
		}
		out := make([]reporting.Summary, 0, len(rows))
		for _, r := range rows {
			total := r.ProcessID.IsTotal()
			if total && p.View == reporting.ViewDetails {
				continue
			}
			name := "Total"
			if !total {
				name = c.ProcessName(ctx, r.ProcessID)
			}
			out = append(out, reporting.Summary{
				Path:    reporting.ProcessPath(r.ProcessID),
				Name:    name,
				Counts:  r.counts(),
				IsTotal: total,
			})
		}
		return out, nil
	}
	return nil, fmt.Errorf("no summary report for tab %q", p.Tab)
}

// LoadPending fetches the pending processes for the selected group, project
// and lot, then each process's catch details concurrently. A failed detail
// fetch leaves that process without catches.
func (c *Client) LoadPending(ctx context.Context, p reporting.Params) ([]reporting.PendingProcess, reporting.CatchMode, error) {
	q := url.Values{}
	q.Set("groupId", p.GroupID.String())
	q.Set("projectId", p.ProjectID.String())
	q.Set("lotNo", p.LotNo)

	var rows []pendingSummaryRow
	if err := c.getJSON(ctx, "/Reports/pending-process-report-from-quantitysheet", q, &rows); err != nil {
		return nil, reporting.CatchModePaper, err
	}

	out := make([]reporting.PendingProcess, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.fanOut)
	for i, r := range rows {
		out[i] = reporting.PendingProcess{
			ProcessID:       r.ProcessID,
			Name:            c.ProcessName(ctx, r.ProcessID),
			TotalCatchCount: deref(r.TotalCatchCount),
			TotalQuantity:   deref(r.TotalQuantity),
			LastActivityAt:  r.LastLoggedAt.ptr(),
		}
		g.Go(func() error {
			catches, err := c.pendingCatches(gctx, q, r.ProcessID)
			if err != nil {
				c.logger.Error("pending catch details failed", slog.String("process_id", r.ProcessID.String()), slog.Any("err", err))
				return nil
			}
			out[i].Catches = catches
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, reporting.CatchModePaper, err
	}

	mode, err := c.CatchMode(ctx, p.ProjectID)
	if err != nil {
		c.logger.Warn("catch mode lookup failed, using paper", slog.Any("err", err))
	}
	return out, mode, nil
}

func (c *Client) pendingCatches(ctx context.Context, base url.Values, processID reporting.ID) ([]reporting.PendingCatch, error) {
	q := url.Values{}
	for k, v := range base {
		q[k] = v
	}
	q.Set("processId", processID.String())

	var rows []pendingDetailRow
	if err := c.getJSON(ctx, "/Reports/pending-process-report-from-quantitysheet", q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]reporting.PendingCatch, 0, len(rows[0].CatchDetails))
	for _, d := range rows[0].CatchDetails {
		out = append(out, reporting.PendingCatch{CatchNo: d.CatchNo.String(), Quantity: d.Quantity})
	}
	return out, nil
}

// FetchChildren loads the next level under path for the current view.
func (c *Client) FetchChildren(ctx context.Context, p reporting.Params, path reporting.NodePath) (reporting.Children, error) {
	if !p.Expandable(path.Level) {
		return reporting.Children{}, reporting.ErrNotExpandable
	}
	q := dateParams(p)
	q.Set("processId", path.ProcessID.String())

	switch {
	case p.Tab == reporting.TabPending:
		return c.pendingProjects(ctx, q, path)
	case path.Level == reporting.LevelProcess && p.View == reporting.ViewDetails:
		return c.projectsUnder(ctx, q, path)
	case path.Level == reporting.LevelProcess:
		return c.groupsUnder(ctx, q, path)
	case path.Level == reporting.LevelGroup:
		q.Set("groupId", path.GroupID.String())
		return c.projectsUnder(ctx, q, path)
	case path.Level == reporting.LevelProject:
		q.Set("groupId", path.GroupID.String())
		q.Set("projectId", path.ProjectID.String())
		return c.catchListFor(ctx, q)
	}
	return reporting.Children{}, reporting.ErrNotExpandable
}

func (c *Client) groupsUnder(ctx context.Context, q url.Values, parent reporting.NodePath) (reporting.Children, error) {
	var rows []completedRow
	if err := c.getJSON(ctx, "/Reports/Process-Production-Report-Group-Wise", q, &rows); err != nil {
		return reporting.Children{}, err
	}
	out := make([]reporting.Summary, 0, len(rows))
	for _, r := range rows {
		total := r.GroupID.IsTotal()
		name := "Total"
		if !total {
			name = c.GroupName(ctx, r.GroupID)
		}
		out = append(out, reporting.Summary{
			Path:    reporting.GroupPath(parent.ProcessID, r.GroupID),
			Name:    name,
			Counts:  r.counts(),
			IsTotal: total,
		})
	}
	return reporting.Children{Summaries: out}, nil
}

func (c *Client) projectsUnder(ctx context.Context, q url.Values, parent reporting.NodePath) (reporting.Children, error) {
	var rows []completedRow
	if err := c.getJSON(ctx, "/Reports/Process-Production-Report-Project-Wise", q, &rows); err != nil {
		return reporting.Children{}, err
	}
	out := make([]reporting.Summary, 0, len(rows))
	for _, r := range rows {
		total := r.ProjectID.IsTotal()
		name := "Total"
		if !total {
			name = c.ProjectName(ctx, r.ProjectID)
		}
		out = append(out, reporting.Summary{
			Path:    reporting.ProjectPath(parent.ProcessID, parent.GroupID, r.ProjectID),
			Name:    name,
			Counts:  r.counts(),
			IsTotal: total,
		})
	}
	return reporting.Children{Summaries: out}, nil
}

func (c *Client) pendingProjects(ctx context.Context, q url.Values, parent reporting.NodePath) (reporting.Children, error) {
	var rows []pendingProjectRow
	if err := c.getJSON(ctx, "/Reports/Process-Pending-Report-Project-Wise", q, &rows); err != nil {
		return reporting.Children{}, err
	}
	out := make([]reporting.Summary, 0, len(rows))
	for _, r := range rows {
		out = append(out, reporting.Summary{
			Path:   reporting.ProjectPath(parent.ProcessID, "", r.ProjectID),
			Name:   c.ProjectName(ctx, r.ProjectID),
			Counts: r.counts(),
		})
	}
	return reporting.Children{Summaries: out}, nil
}

func (c *Client) catchListFor(ctx context.Context, q url.Values) (reporting.Children, error) {
	var rows []catchListRow
	if err := c.getJSON(ctx, "/Reports/Process-Production-Report-Group-Wise", q, &rows); err != nil {
		return reporting.Children{}, err
	}
	if len(rows) == 0 {
		return reporting.Children{CatchList: &reporting.CatchList{}}, nil
	}
	return reporting.Children{CatchList: rows[0].catchList()}, nil
}
