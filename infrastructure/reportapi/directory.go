package reportapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"dailyreport/reporting"
)

func (c *Client) loadProcesses(ctx context.Context) (map[reporting.ID]string, error) {
	var rows []processRow
	if err := c.getJSON(ctx, "/Processes", nil, &rows); err != nil {
		return nil, err
	}
	out := make(map[reporting.ID]string, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Name
	}
	return out, nil
}

// loadGroups keeps active groups only.
func (c *Client) loadGroups(ctx context.Context) (map[reporting.ID]string, error) {
	var rows []groupRow
	if err := c.getJSON(ctx, "/Reports/GetAllGroups", nil, &rows); err != nil {
		return nil, err
	}
	out := make(map[reporting.ID]string, len(rows))
	for _, r := range rows {
		if r.Status {
			out[r.ID] = r.Name
		}
	}
	return out, nil
}

func (c *Client) loadProjects(ctx context.Context) (map[reporting.ID]Project, error) {
	var rows []projectRow
	if err := c.getJSON(ctx, "/Project", nil, &rows); err != nil {
		return nil, err
	}
	out := make(map[reporting.ID]Project, len(rows))
	for _, r := range rows {
		out[r.ProjectID] = Project{ID: r.ProjectID, Name: r.Name, NoOfSeries: r.NoOfSeries}
	}
	return out, nil
}

// ProcessName resolves a sanitized process name. Lookup failures fall back to
// "Process <id>".
func (c *Client) ProcessName(ctx context.Context, id reporting.ID) string {
	names, err := c.processes.Get(ctx)
	if err != nil {
		c.logger.Warn("process lookup failed", slog.Any("err", err))
	}
	return resolveName(names, id, "Process")
}

func (c *Client) GroupName(ctx context.Context, id reporting.ID) string {
	names, err := c.groups.Get(ctx)
	if err != nil {
		c.logger.Warn("group lookup failed", slog.Any("err", err))
	}
	return resolveName(names, id, "Group")
}

func (c *Client) ProjectName(ctx context.Context, id reporting.ID) string {
	projects, err := c.projects.Get(ctx)
	if err != nil {
		c.logger.Warn("project lookup failed", slog.Any("err", err))
	}
	if p, ok := projects[id]; ok && p.Name != "" {
		return reporting.Sanitize(p.Name)
	}
	return reporting.Sanitize("Project " + id.String())
}

// CatchMode infers the pending catch mode from the project's series count.
func (c *Client) CatchMode(ctx context.Context, projectID reporting.ID) (reporting.CatchMode, error) {
	projects, err := c.projects.Get(ctx)
	if err != nil {
		return reporting.CatchModePaper, fmt.Errorf("load projects: %w", err)
	}
	return reporting.CatchModeForSeries(projects[projectID].NoOfSeries), nil
}

func resolveName(names map[reporting.ID]string, id reporting.ID, kind string) string {
	if id == "" {
		return "N/A"
	}
	if name, ok := names[id]; ok && name != "" {
		return reporting.Sanitize(name)
	}
	return reporting.Sanitize(kind + " " + id.String())
}

// FilterOptions lists the pending tab's cascading selects: groups when no
// group is chosen, projects of the group, or lots of the project.
func (c *Client) FilterOptions(ctx context.Context, groupID, projectID reporting.ID) ([]Option, error) {
	q := url.Values{}
	if groupID != "" {
		q.Set("groupId", groupID.String())
	}
	if groupID != "" && projectID != "" {
		q.Set("projectId", projectID.String())
	}
	var rows []lotRow
	if err := c.getJSON(ctx, "/Reports/project-lotno-with-status", q, &rows); err != nil {
		return nil, err
	}

	out := make([]Option, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		var opt Option
		switch {
		case groupID == "":
			opt = Option{Value: r.GroupID.String(), Label: c.GroupName(ctx, r.GroupID)}
		case projectID == "":
			label := reporting.Sanitize(r.Name)
			if label == "" {
				label = "Project " + r.ProjectID.String()
			}
			opt = Option{Value: r.ProjectID.String(), Label: label}
		default:
			opt = Option{Value: r.LotNo.String(), Label: r.LotNo.String()}
		}
		if opt.Value == "" {
			continue
		}
		if _, dup := seen[opt.Value]; dup {
			continue
		}
		seen[opt.Value] = struct{}{}
		out = append(out, opt)
	}
	return out, nil
}
