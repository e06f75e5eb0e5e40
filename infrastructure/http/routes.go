package http

import (
	"dailyreport/frontend/dailyreport"
	"dailyreport/frontend/exports"

	"github.com/go-chi/chi/v5"
)

// RegisterReportRoutes registers the report screen and its JSON endpoints.
func (s *Server) RegisterReportRoutes(r chi.Router) chi.Router {
	r.Get("/", dailyreport.ReportPageQueryHandler(s.Backend))
	r.Post("/tab", dailyreport.ChangeTabCommandHandler())
	r.Post("/params", dailyreport.ChangeParamsCommandHandler())
	r.Post("/pending-filter", dailyreport.ChangePendingFilterCommandHandler())
	r.Post("/load", dailyreport.LoadReportCommandHandler(s.Backend))
	r.Post("/toggle", dailyreport.ToggleNodeCommandHandler())
	r.Post("/expand-all", dailyreport.ExpandAllCommandHandler())
	r.Post("/collapse-all", dailyreport.CollapseAllCommandHandler())
	r.Post("/sort", dailyreport.SortCommandHandler())

	r.Get("/rows.json", dailyreport.RowsQueryHandler())
	r.Get("/pending.json", dailyreport.PendingQueryHandler())
	r.Get("/summary.json", dailyreport.SummaryQueryHandler())
	r.Get("/lots.json", dailyreport.LotsQueryHandler(s.Backend))
	return r
}

func (s *Server) RegisterExportRoutes(r chi.Router) chi.Router {
	r.Get("/exports/runs.json", exports.ExportRunsQueryHandler(s.Audit))
	r.Get("/exports/{kind}.{format}", exports.ExportDownloadHandler(s.Exports))
	return r
}
