package exports

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	sessioncontext "dailyreport/frontend/shared/context"
	"dailyreport/models"
)

// RunLister lists journaled export runs, newest first.
type RunLister interface {
	List(ctx context.Context, limit int) ([]models.ExportRun, error)
}

// ExportDownloadHandler serves /exports/{kind}.{format} from the caller's view
// session.
func ExportDownloadHandler(runner *Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := ParseKind(chi.URLParam(r, "kind"))
		if err != nil {
			http.Error(w, "unknown export", http.StatusNotFound)
			return
		}
		format, err := ParseFormat(chi.URLParam(r, "format"))
		if err != nil {
			http.Error(w, "unknown export format", http.StatusNotFound)
			return
		}
		session, ok := sessioncontext.GetSessionFromContext(r.Context())
		if !ok {
			http.Error(w, "no report session", http.StatusBadRequest)
			return
		}

		res, err := runner.Export(r.Context(), session, kind, format)
		switch {
		case errors.Is(err, ErrKindMismatch):
			http.Error(w, err.Error(), http.StatusConflict)
			return
		case errors.Is(err, ErrNoData):
			http.Error(w, "load the report before exporting", http.StatusConflict)
			return
		case err != nil:
			http.Error(w, FailureNotice, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", res.ContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+res.FileName+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(res.Body)))
		w.Header().Set("X-Export-Run", res.RunID)
		if _, err := w.Write(res.Body); err != nil {
			slog.Warn("write export body failed", slog.String("run_id", res.RunID), slog.Any("err", err))
		}
	}
}

// ExportRunsQueryHandler lists recent export runs as JSON.
func ExportRunsQueryHandler(runs RunLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		list, err := runs.List(r.Context(), limit)
		if err != nil {
			slog.Error("list export runs failed", slog.Any("err", err))
			http.Error(w, "failed to load export runs", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(list); err != nil {
			slog.Warn("encode export runs failed", slog.Any("err", err))
		}
	}
}
