package dailyreport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	sessioncontext "dailyreport/frontend/shared/context"
	"dailyreport/infrastructure/reportapi"
	"dailyreport/reporting"
)

var reportDay = time.Date(2026, 3, 5, 0, 0, 0, 0, time.Local)

type fakeBackend struct {
	summaries []reporting.Summary
	pending   []reporting.PendingProcess
	err       error
	calls     int
}

func (b *fakeBackend) LoadSummaries(_ context.Context, _ reporting.Params) ([]reporting.Summary, error) {
	b.calls++
	return b.summaries, b.err
}

func (b *fakeBackend) LoadPending(_ context.Context, _ reporting.Params) ([]reporting.PendingProcess, reporting.CatchMode, error) {
	b.calls++
	return b.pending, reporting.CatchModePaper, b.err
}

func (b *fakeBackend) FilterOptions(_ context.Context, groupID, projectID reporting.ID) ([]reportapi.Option, error) {
	switch {
	case groupID == "":
		return []reportapi.Option{{Value: "3", Label: "Group Three"}}, nil
	case projectID == "":
		return []reportapi.Option{{Value: "7", Label: "Maths"}}, nil
	}
	return []reportapi.Option{{Value: "L1", Label: "L1"}}, nil
}

func childFetcher() reporting.Fetcher {
	return reporting.FetcherFunc(func(_ context.Context, _ reporting.Params, path reporting.NodePath) (reporting.Children, error) {
		if path.Level == reporting.LevelProcess {
			return reporting.Children{Summaries: []reporting.Summary{
				{Path: reporting.GroupPath(path.ProcessID, "10"), Name: "Group A"},
			}}, nil
		}
		return reporting.Children{}, nil
	})
}

func newSession(params reporting.Params) *reporting.Session {
	return reporting.NewSession("view-1", params, reporting.NewTreeStore(childFetcher(), 2, nil))
}

func productionSummaries() []reporting.Summary {
	return []reporting.Summary{
		{Path: reporting.ProcessPath("Total"), Name: "Total", IsTotal: true, Counts: reporting.Counts{QuantityInPaper: reporting.Int64(1250)}},
		{Path: reporting.ProcessPath("1"), Name: "Binding", Counts: reporting.Counts{QuantityInPaper: reporting.Int64(1250)}},
		{Path: reporting.ProcessPath("2"), Name: "ProofReading", Counts: reporting.Counts{CatchesInPaper: reporting.Int64(0)}},
	}
}

func newReportRouter(backend Backend, s *reporting.Session) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(sessioncontext.NewContextWithSession(req.Context(), s)))
		})
	})
	r.Get("/reports", ReportPageQueryHandler(backend))
	r.Post("/reports/tab", ChangeTabCommandHandler())
	r.Post("/reports/params", ChangeParamsCommandHandler())
	r.Post("/reports/pending-filter", ChangePendingFilterCommandHandler())
	r.Post("/reports/load", LoadReportCommandHandler(backend))
	r.Post("/reports/toggle", ToggleNodeCommandHandler())
	r.Post("/reports/expand-all", ExpandAllCommandHandler())
	r.Post("/reports/collapse-all", CollapseAllCommandHandler())
	r.Post("/reports/sort", SortCommandHandler())
	r.Get("/reports/rows.json", RowsQueryHandler())
	r.Get("/reports/pending.json", PendingQueryHandler())
	r.Get("/reports/summary.json", SummaryQueryHandler())
	r.Get("/reports/lots.json", LotsQueryHandler(backend))
	return r
}

func postForm(t *testing.T, h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func redirectStatus(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	u, err := url.Parse(rec.Header().Get("Location"))
	if err != nil || u.Path != "/reports" {
		t.Fatalf("unexpected redirect %q", rec.Header().Get("Location"))
	}
	return u.Query().Get("status")
}

func TestLoadAndRenderReport(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{summaries: productionSummaries()}
	s := newSession(reporting.DefaultParams(reportDay))
	router := newReportRouter(backend, s)

	if msg := redirectStatus(t, postForm(t, router, "/reports/load", nil)); msg != "" {
		t.Fatalf("unexpected status %q", msg)
	}
	st := s.State()
	if !st.ShowData || st.Summaries[0].Name != "ProofReading" {
		t.Fatalf("expected loaded and ordered summaries, got %+v", st.Summaries)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Binding", "1,250", "/reports/exports/process-summary.pdf", `<tr class="total">`} {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q", want)
		}
	}
	if strings.Contains(body, "/reports/toggle") {
		t.Fatalf("summary view must not render toggles")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/rows.json", nil))
	var rows []reporting.Row
	if err := json.NewDecoder(rec.Body).Decode(&rows); err != nil {
		t.Fatalf("decode rows: %v", err)
	}
	if len(rows) != 3 || !rows[2].IsTotal || rows[2].Label != "Total" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestLoadFailureShowsAlert(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{err: errors.New("boom")}
	s := newSession(reporting.DefaultParams(reportDay))
	router := newReportRouter(backend, s)

	if msg := redirectStatus(t, postForm(t, router, "/reports/load", nil)); msg != reporting.LoadErrorMessage {
		t.Fatalf("unexpected status %q", msg)
	}
	if st := s.State(); st.ShowData || st.Error != reporting.LoadErrorMessage {
		t.Fatalf("expected error state, got %+v", st)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports", nil))
	if !strings.Contains(rec.Body.String(), `role="alert">`+reporting.LoadErrorMessage) {
		t.Fatalf("expected alert on page")
	}
}

func TestLoadIncompletePendingParams(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	s := newSession(reporting.Params{Tab: reporting.TabPending})
	msg := redirectStatus(t, postForm(t, newReportRouter(backend, s), "/reports/load", nil))
	if msg != "select a group, project and lot" {
		t.Fatalf("unexpected status %q", msg)
	}
	if backend.calls != 0 {
		t.Fatalf("incomplete params must not reach the backend")
	}
}

func TestChangeParams(t *testing.T) {
	t.Parallel()

	s := newSession(reporting.DefaultParams(reportDay))
	router := newReportRouter(&fakeBackend{}, s)
	epoch := s.State().Epoch

	msg := redirectStatus(t, postForm(t, router, "/reports/params", url.Values{"start": {"05/03/2026"}}))
	if msg != "select a valid date range" {
		t.Fatalf("unexpected status %q", msg)
	}
	msg = redirectStatus(t, postForm(t, router, "/reports/params", url.Values{"start": {"2026-03-05"}, "end": {"2026-03-01"}}))
	if msg != "end date before start date" {
		t.Fatalf("unexpected status %q", msg)
	}

	msg = redirectStatus(t, postForm(t, router, "/reports/params", url.Values{
		"view":  {"group-details"},
		"start": {"2026-03-01"},
		"end":   {"2026-03-05"},
	}))
	if msg != "" {
		t.Fatalf("unexpected status %q", msg)
	}
	st := s.State()
	if st.Params.View != reporting.ViewGroupDetails || st.Params.Start.Day() != 1 || st.Params.End.Day() != 5 {
		t.Fatalf("params not applied: %+v", st.Params)
	}
	if st.Epoch != epoch+1 {
		t.Fatalf("expected epoch to move, got %d", st.Epoch)
	}
}

func TestChangeTabResetsData(t *testing.T) {
	t.Parallel()

	s := newSession(reporting.DefaultParams(reportDay))
	s.Dispatch(reporting.DataLoaded{Epoch: s.State().Epoch, Summaries: productionSummaries()})
	router := newReportRouter(&fakeBackend{}, s)

	redirectStatus(t, postForm(t, router, "/reports/tab", url.Values{"tab": {"pending"}}))
	st := s.State()
	if st.Params.Tab != reporting.TabPending || st.ShowData || len(st.Summaries) != 0 {
		t.Fatalf("expected reset pending state, got %+v", st)
	}
	if msg := redirectStatus(t, postForm(t, router, "/reports/tab", url.Values{"tab": {"stock"}})); msg != "unknown tab" {
		t.Fatalf("unexpected status %q", msg)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports", nil))
	if !strings.Contains(rec.Body.String(), `<option value="3">Group Three</option>`) {
		t.Fatalf("expected group options on the pending tab")
	}
}

func TestCascadeFilter(t *testing.T) {
	t.Parallel()

	current := reporting.Params{Tab: reporting.TabPending, GroupID: "3", ProjectID: "7", LotNo: "L1"}
	tests := []struct {
		name string
		form pendingFilterForm
		want reporting.PendingFilterChanged
	}{
		{"new group clears below", pendingFilterForm{GroupID: "4", ProjectID: "7", LotNo: "L1"}, reporting.PendingFilterChanged{GroupID: "4"}},
		{"new project clears lot", pendingFilterForm{GroupID: "3", ProjectID: "8", LotNo: "L1"}, reporting.PendingFilterChanged{GroupID: "3", ProjectID: "8"}},
		{"new lot kept", pendingFilterForm{GroupID: "3", ProjectID: "7", LotNo: "L2"}, reporting.PendingFilterChanged{GroupID: "3", ProjectID: "7", LotNo: "L2"}},
	}
	for _, tt := range tests {
		if got := cascadeFilter(current, tt.form); got != tt.want {
			t.Fatalf("%s: got %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestToggleNode(t *testing.T) {
	t.Parallel()

	params := reporting.Params{Tab: reporting.TabProcessProduction, View: reporting.ViewGroupDetails, Start: reportDay}
	s := newSession(params)
	s.Dispatch(reporting.DataLoaded{Epoch: s.State().Epoch, Summaries: productionSummaries()})
	router := newReportRouter(&fakeBackend{}, s)

	req := httptest.NewRequest(http.MethodPost, "/reports/toggle", strings.NewReader(url.Values{"level": {"process"}, "process_id": {"1"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Expanded bool `json:"expanded"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || !resp.Expanded {
		t.Fatalf("expected expanded response, got %+v %v", resp, err)
	}
	rows := s.Rows(reporting.Options{})
	if len(rows) != 4 || rows[1].Label != "Group A" {
		t.Fatalf("expected fetched child row, got %+v", rows)
	}

	rec = postForm(t, router, "/reports/toggle", url.Values{"level": {"catchlist"}, "process_id": {"1"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a catch list toggle, got %d", rec.Code)
	}

	redirectStatus(t, postForm(t, router, "/reports/collapse-all", nil))
	if s.Tree().IsExpanded(reporting.ProcessPath("1")) {
		t.Fatalf("expected collapse all to close the node")
	}
	redirectStatus(t, postForm(t, router, "/reports/expand-all", nil))
	if !s.Tree().IsExpanded(reporting.ProcessPath("2")) {
		t.Fatalf("expected expand all to open every process")
	}
}

func TestToggleNotExpandableInSummary(t *testing.T) {
	t.Parallel()

	s := newSession(reporting.DefaultParams(reportDay))
	rec := postForm(t, newReportRouter(&fakeBackend{}, s), "/reports/toggle", url.Values{"level": {"process"}, "process_id": {"1"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestToggleUnknownNode(t *testing.T) {
	t.Parallel()

	params := reporting.Params{Tab: reporting.TabProcessProduction, View: reporting.ViewGroupDetails, Start: reportDay}
	s := newSession(params)
	router := newReportRouter(&fakeBackend{}, s)

	rec := postForm(t, router, "/reports/toggle", url.Values{"level": {"process"}, "process_id": {"1"}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before data is loaded, got %d", rec.Code)
	}

	s.Dispatch(reporting.DataLoaded{Epoch: s.State().Epoch, Summaries: productionSummaries()})
	rec = postForm(t, router, "/reports/toggle", url.Values{"level": {"group"}, "process_id": {"1"}, "group_id": {"10"}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a group whose process was never expanded, got %d", rec.Code)
	}
	rec = postForm(t, router, "/reports/toggle", url.Values{"level": {"process"}, "process_id": {"42"}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a process outside the report, got %d", rec.Code)
	}
	if s.Tree().IsExpanded(reporting.ProcessPath("42")) {
		t.Fatalf("rejected toggle must not record expansion")
	}
}

func TestPendingSortAndMatrix(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{pending: []reporting.PendingProcess{
		{ProcessID: "1", Name: "Binding", TotalCatchCount: 2, TotalQuantity: 15, Catches: []reporting.PendingCatch{
			{CatchNo: "C1", Quantity: reporting.Int64(5)},
			{CatchNo: "C2", Quantity: reporting.Int64(10)},
		}},
	}}
	s := newSession(reporting.Params{Tab: reporting.TabPending, GroupID: "3", ProjectID: "7", LotNo: "L1"})
	router := newReportRouter(backend, s)
	redirectStatus(t, postForm(t, router, "/reports/load", nil))

	matrix := func() reporting.PendingMatrix {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/pending.json", nil))
		var m reporting.PendingMatrix
		if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
			t.Fatalf("decode matrix: %v", err)
		}
		return m
	}
	if m := matrix(); m.Columns[0].Catches[0].CatchNo != "C2" {
		t.Fatalf("expected quantity desc by default, got %+v", m.Columns[0].Catches)
	}

	redirectStatus(t, postForm(t, router, "/reports/sort", url.Values{"column": {"catchNo"}}))
	if m := matrix(); m.Sort.Direction != reporting.SortAsc || m.Columns[0].Catches[0].CatchNo != "C1" {
		t.Fatalf("expected catch no asc, got %+v", m)
	}
	if msg := redirectStatus(t, postForm(t, router, "/reports/sort", url.Values{"column": {"name"}})); msg != "unknown sort column" {
		t.Fatalf("unexpected status %q", msg)
	}
}

func TestLotsAndSummaryQuery(t *testing.T) {
	t.Parallel()

	s := newSession(reporting.DefaultParams(reportDay))
	router := newReportRouter(&fakeBackend{}, s)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/lots.json?groupId=3&projectId=7", nil))
	var opts []reportapi.Option
	if err := json.NewDecoder(rec.Body).Decode(&opts); err != nil {
		t.Fatalf("decode options: %v", err)
	}
	if len(opts) != 1 || opts[0].Value != "L1" {
		t.Fatalf("unexpected options %+v", opts)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/summary.json", nil))
	var summary summaryResponse
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.ShowData || summary.Export != "process-summary" || summary.Label != "Mar 05, 2026" {
		t.Fatalf("unexpected summary %+v", summary)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/pending.json", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 outside the pending tab, got %d", rec.Code)
	}
}
