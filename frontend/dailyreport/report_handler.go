package dailyreport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"dailyreport/frontend/exports"
	"dailyreport/frontend/shared/context"
	"dailyreport/infrastructure/reportapi"
	"dailyreport/reporting"
)

const (
	pagePath   = "/reports"
	dateLayout = "2006-01-02"
)

var (
	validate = validator.New()
	now      = time.Now
)

// ReportPageQueryHandler renders the report screen for the caller's view
// session.
func ReportPageQueryHandler(backend Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Error(w, "no report session", http.StatusBadRequest)
			return
		}
		data := LoadPageData(r, backend, session)
		if msg := strings.TrimSpace(r.URL.Query().Get("status")); msg != "" {
			data.Message = msg
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := ReportPage(data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render report page", http.StatusInternalServerError)
			return
		}
	}
}

// LoadPageData snapshots the session for rendering. Filter option lookups that
// fail leave their select empty.
func LoadPageData(r *http.Request, backend Backend, session *reporting.Session) PageData {
	st := session.State()
	data := PageData{
		State:      st,
		Message:    st.Error,
		ExportSlug: exports.KindFor(st.Params).Slug(),
		Detail:     st.Params.Expandable(reporting.LevelProcess),
	}
	if st.ShowData {
		data.Rows = session.Rows(reporting.Options{})
		for _, row := range data.Rows {
			if row.Expanded {
				data.AnyOpen = true
				break
			}
		}
		if st.Params.Tab == reporting.TabPending {
			m := st.Matrix()
			data.Matrix = &m
		}
	}
	if st.Params.Tab != reporting.TabPending {
		return data
	}

	p := st.Params
	data.Groups = filterOptions(r, backend, "", "")
	if p.GroupID != "" {
		data.Projects = filterOptions(r, backend, p.GroupID, "")
	}
	if p.GroupID != "" && p.ProjectID != "" {
		data.Lots = filterOptions(r, backend, p.GroupID, p.ProjectID)
	}
	return data
}

func filterOptions(r *http.Request, backend Backend, groupID, projectID reporting.ID) []reportapi.Option {
	opts, err := backend.FilterOptions(r.Context(), groupID, projectID)
	if err != nil {
		slog.Warn("load filter options failed",
			slog.String("group_id", groupID.String()),
			slog.String("project_id", projectID.String()),
			slog.Any("err", err))
		return nil
	}
	return opts
}

// ChangeTabCommandHandler switches tabs. The date range goes back to today and
// every loaded row is discarded.
func ChangeTabCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Error(w, "no report session", http.StatusBadRequest)
			return
		}
		if err := r.ParseForm(); err != nil {
			redirect(w, r, "invalid form")
			return
		}
		tab, err := reporting.ParseTab(strings.TrimSpace(r.FormValue("tab")))
		if err != nil {
			redirect(w, r, "unknown tab")
			return
		}
		session.Dispatch(reporting.TabChanged{Tab: tab, Today: now()})
		redirect(w, r, "")
	}
}

// ChangeParamsCommandHandler applies a new view and date range.
func ChangeParamsCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Error(w, "no report session", http.StatusBadRequest)
			return
		}
		if err := r.ParseForm(); err != nil {
			redirect(w, r, "invalid form")
			return
		}
		form := paramsForm{
			View:  strings.TrimSpace(r.FormValue("view")),
			Start: strings.TrimSpace(r.FormValue("start")),
			End:   strings.TrimSpace(r.FormValue("end")),
		}
		if err := validate.Struct(form); err != nil {
			redirect(w, r, "select a valid date range")
			return
		}

		st := session.State()
		if st.Params.Tab == reporting.TabPending {
			redirect(w, r, "the pending tab has no date range")
			return
		}
		view := st.Params.View
		if form.View != "" {
			v, err := reporting.ParseView(st.Params.Tab, form.View)
			if err != nil {
				redirect(w, r, "view not available on this tab")
				return
			}
			view = v
		}
		start, _ := time.ParseInLocation(dateLayout, form.Start, time.Local)
		var end time.Time
		if form.End != "" {
			end, _ = time.ParseInLocation(dateLayout, form.End, time.Local)
			if end.Before(start) {
				redirect(w, r, "end date before start date")
				return
			}
		}
		session.Dispatch(reporting.ParamsChanged{View: view, Start: start, End: end})
		redirect(w, r, "")
	}
}

// ChangePendingFilterCommandHandler applies the pending tab's cascading
// filters: a new group clears project and lot, a new project clears the lot.
func ChangePendingFilterCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Error(w, "no report session", http.StatusBadRequest)
			return
		}
		if err := r.ParseForm(); err != nil {
			redirect(w, r, "invalid form")
			return
		}
		form := pendingFilterForm{
			GroupID:   strings.TrimSpace(r.FormValue("group_id")),
			ProjectID: strings.TrimSpace(r.FormValue("project_id")),
			LotNo:     strings.TrimSpace(r.FormValue("lot_no")),
		}
		if err := validate.Struct(form); err != nil {
			redirect(w, r, "invalid filter")
			return
		}
		st := session.State()
		if st.Params.Tab != reporting.TabPending {
			redirect(w, r, "filters apply to the pending tab only")
			return
		}
		session.Dispatch(cascadeFilter(st.Params, form))
		redirect(w, r, "")
	}
}

func cascadeFilter(current reporting.Params, form pendingFilterForm) reporting.PendingFilterChanged {
	next := reporting.PendingFilterChanged{
		GroupID:   reporting.ID(form.GroupID),
		ProjectID: reporting.ID(form.ProjectID),
		LotNo:     form.LotNo,
	}
	if next.GroupID != current.GroupID {
		next.ProjectID, next.LotNo = "", ""
	} else if next.ProjectID != current.ProjectID {
		next.LotNo = ""
	}
	return next
}

// LoadReportCommandHandler runs the top-level fetch for the current
// parameters.
func LoadReportCommandHandler(backend Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Error(w, "no report session", http.StatusBadRequest)
			return
		}
		err := session.Load(r.Context(), backend)
		switch {
		case errors.Is(err, reporting.ErrIncompleteParams):
			redirect(w, r, strings.TrimPrefix(err.Error(), reporting.ErrIncompleteParams.Error()+": "))
			return
		case err != nil:
			slog.Error("load report failed", slog.String("session_id", session.ID), slog.Any("err", err))
			redirect(w, r, reporting.LoadErrorMessage)
			return
		}
		redirect(w, r, "")
	}
}

// ToggleNodeCommandHandler expands or collapses one node, fetching its
// children on first expansion. JSON clients get the new state back instead of
// a redirect.
func ToggleNodeCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Error(w, "no report session", http.StatusBadRequest)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		form := toggleForm{
			Level:     strings.ToLower(strings.TrimSpace(r.FormValue("level"))),
			ProcessID: strings.TrimSpace(r.FormValue("process_id")),
			GroupID:   strings.TrimSpace(r.FormValue("group_id")),
			ProjectID: strings.TrimSpace(r.FormValue("project_id")),
		}
		if err := validate.Struct(form); err != nil {
			http.Error(w, "invalid node", http.StatusBadRequest)
			return
		}
		level, _ := reporting.ParseLevel(form.Level)
		path := reporting.NodePath{
			Level:     level,
			ProcessID: reporting.ID(form.ProcessID),
			GroupID:   reporting.ID(form.GroupID),
			ProjectID: reporting.ID(form.ProjectID),
		}

		expanded, err := session.Tree().Toggle(r.Context(), path)
		switch {
		case errors.Is(err, reporting.ErrNotExpandable):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		case errors.Is(err, reporting.ErrUnknownNode):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if wantsJSON(r) {
			writeJSON(w, map[string]any{"node": path.Key(), "expanded": expanded})
			return
		}
		redirect(w, r, "")
	}
}

// ExpandAllCommandHandler expands every known node and waits for the fetches.
func ExpandAllCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Error(w, "no report session", http.StatusBadRequest)
			return
		}
		if err := session.Tree().ExpandAll(r.Context()); err != nil {
			slog.Warn("expand all interrupted", slog.String("session_id", session.ID), slog.Any("err", err))
		}
		redirect(w, r, "")
	}
}

func CollapseAllCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Error(w, "no report session", http.StatusBadRequest)
			return
		}
		session.Tree().CollapseAll()
		redirect(w, r, "")
	}
}

// SortCommandHandler applies a click on a pending column header.
func SortCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Error(w, "no report session", http.StatusBadRequest)
			return
		}
		if err := r.ParseForm(); err != nil {
			redirect(w, r, "invalid form")
			return
		}
		spec, err := reporting.ParseSortSpec(r.FormValue("column"), string(reporting.SortAsc))
		if err != nil {
			redirect(w, r, "unknown sort column")
			return
		}
		session.Dispatch(reporting.SortClicked{Column: spec.Column})
		redirect(w, r, "")
	}
}

// RowsQueryHandler returns the flattened rows as displayed.
func RowsQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Error(w, "no report session", http.StatusBadRequest)
			return
		}
		rows := []reporting.Row{}
		if session.State().ShowData {
			rows = session.Rows(reporting.Options{})
		}
		writeJSON(w, rows)
	}
}

// PendingQueryHandler returns the pending matrix for the current sort.
func PendingQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Error(w, "no report session", http.StatusBadRequest)
			return
		}
		st := session.State()
		if st.Params.Tab != reporting.TabPending {
			http.Error(w, "pending matrix is only available on the pending tab", http.StatusConflict)
			return
		}
		writeJSON(w, st.Matrix())
	}
}

func SummaryQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := context.GetSessionFromContext(r.Context())
		if !ok {
			http.Error(w, "no report session", http.StatusBadRequest)
			return
		}
		st := session.State()
		resp := summaryResponse{
			Params:   st.Params,
			Epoch:    st.Epoch,
			ShowData: st.ShowData,
			Error:    st.Error,
			Label:    st.Params.DateRangeLabel(),
			Export:   exports.KindFor(st.Params).Slug(),
		}
		if st.ShowData {
			resp.Rows = len(session.Rows(reporting.Options{}))
		}
		writeJSON(w, resp)
	}
}

// LotsQueryHandler serves the cascading pending filter options:
// groups, then projects of ?groupId, then lots of ?groupId&projectId.
func LotsQueryHandler(backend Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		groupID := reporting.ID(strings.TrimSpace(q.Get("groupId")))
		projectID := reporting.ID(strings.TrimSpace(q.Get("projectId")))
		opts, err := backend.FilterOptions(r.Context(), groupID, projectID)
		if err != nil {
			slog.Error("load filter options failed", slog.Any("err", err))
			http.Error(w, "failed to load options", http.StatusBadGateway)
			return
		}
		if opts == nil {
			opts = []reportapi.Option{}
		}
		writeJSON(w, opts)
	}
}

func redirect(w http.ResponseWriter, r *http.Request, msg string) {
	target := pagePath
	if msg != "" {
		target += "?status=" + url.QueryEscape(msg)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", slog.Any("err", err))
	}
}
