package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"dailyreport/frontend/exports"
	"dailyreport/infrastructure/audit"
	"dailyreport/reporting"
)

const dateFlagLayout = "2006-01-02"

type exportOptions struct {
	kind    string
	format  string
	start   string
	end     string
	group   string
	project string
	lot     string
	out     string
}

func newExportCmd(load configLoader) *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Load a report and write it as PDF or XLSX",
		Example: `  dailyreport export --kind group-details --format xlsx --start 2026-03-01 --end 2026-03-05
  dailyreport export --kind pending --format pdf --group 3 --project 7 --lot 2 --out reports/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := exports.ParseKind(opts.kind)
			if err != nil {
				return err
			}
			format, err := exports.ParseFormat(opts.format)
			if err != nil {
				return err
			}
			params, err := exportParams(kind, opts, time.Now())
			if err != nil {
				return err
			}
			cfg, err := load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			client := newAPIClient(cfg)
			session := reporting.NewSession("cli", params, reporting.NewTreeStore(client, cfg.Expand.Concurrency, slog.Default()))
			if err := session.Load(ctx, client); err != nil {
				return fmt.Errorf("load report: %w", err)
			}

			res, err := exports.NewRunner(audit.NewService(db), client, slog.Default()).Export(ctx, session, kind, format)
			if err != nil {
				return err
			}
			path, err := outputPath(opts.out, res.FileName)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, res.Body, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d rows, run %s)\n", path, res.RowCount, res.RunID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.kind, "kind", "process-summary", "process-summary, process-details, group-details, group-summary or pending")
	f.StringVar(&opts.format, "format", "pdf", "pdf or xlsx")
	f.StringVar(&opts.start, "start", "", "start date (YYYY-MM-DD, default today)")
	f.StringVar(&opts.end, "end", "", "end date (YYYY-MM-DD)")
	f.StringVar(&opts.group, "group", "", "group id (pending)")
	f.StringVar(&opts.project, "project", "", "project id (pending)")
	f.StringVar(&opts.lot, "lot", "", "lot number (pending)")
	f.StringVar(&opts.out, "out", "", "output file or directory (default current directory)")
	return cmd
}

// exportParams maps an export kind and the command flags to the view
// parameters that produce it.
func exportParams(kind exports.Kind, opts exportOptions, today time.Time) (reporting.Params, error) {
	if kind == exports.KindPendingSummary {
		p := reporting.Params{
			Tab:       reporting.TabPending,
			Start:     today,
			GroupID:   reporting.ID(opts.group),
			ProjectID: reporting.ID(opts.project),
			LotNo:     opts.lot,
		}
		return p, p.Validate()
	}

	p := reporting.DefaultParams(today)
	switch kind {
	case exports.KindProcessDetails:
		p.View = reporting.ViewDetails
	case exports.KindGroupDetails:
		p.View = reporting.ViewGroupDetails
	case exports.KindGroupSummary:
		p.Tab = reporting.TabGroupProduction
	}
	if opts.start != "" {
		start, err := time.ParseInLocation(dateFlagLayout, opts.start, time.Local)
		if err != nil {
			return reporting.Params{}, fmt.Errorf("invalid --start: %w", err)
		}
		p.Start = start
	}
	if opts.end != "" {
		end, err := time.ParseInLocation(dateFlagLayout, opts.end, time.Local)
		if err != nil {
			return reporting.Params{}, fmt.Errorf("invalid --end: %w", err)
		}
		p.End = end
	}
	return p, p.Validate()
}

// outputPath resolves --out: empty means the working directory, an existing
// directory receives the generated name, anything else is the file itself.
func outputPath(out, fileName string) (string, error) {
	if out == "" {
		return fileName, nil
	}
	info, err := os.Stat(out)
	switch {
	case err == nil && info.IsDir():
		return filepath.Join(out, fileName), nil
	case err == nil, errors.Is(err, os.ErrNotExist):
		return out, nil
	default:
		return "", fmt.Errorf("check output path: %w", err)
	}
}
