package exports

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"dailyreport/infrastructure/audit"
	"dailyreport/models"
	"dailyreport/reporting"
)

var exportDay = time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

type memJournal struct {
	mu       sync.Mutex
	begun    []audit.Start
	outcomes map[string]audit.Outcome
}

func newMemJournal() *memJournal {
	return &memJournal{outcomes: make(map[string]audit.Outcome)}
}

func (j *memJournal) Begin(_ context.Context, start audit.Start) (models.ExportRun, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.begun = append(j.begun, start)
	return models.ExportRun{ID: start.ID, Status: models.ExportGenerating}, nil
}

func (j *memJournal) Finish(_ context.Context, id string, out audit.Outcome) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outcomes[id] = out
	return nil
}

func (j *memJournal) List(_ context.Context, _ int) ([]models.ExportRun, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]models.ExportRun, 0, len(j.begun))
	for i := len(j.begun) - 1; i >= 0; i-- {
		out = append(out, models.ExportRun{ID: j.begun[i].ID, Kind: j.begun[i].Kind})
	}
	return out, nil
}

type stubNamer struct{}

func (stubNamer) GroupName(_ context.Context, id reporting.ID) string   { return "Group " + id.String() }
func (stubNamer) ProjectName(_ context.Context, id reporting.ID) string { return "Maths" }

func groupDetailsFetcher() reporting.Fetcher {
	return reporting.FetcherFunc(func(_ context.Context, _ reporting.Params, path reporting.NodePath) (reporting.Children, error) {
		switch path.Key() {
		case reporting.ProcessPath("1").Key():
			return reporting.Children{Summaries: []reporting.Summary{
				{Path: reporting.GroupPath("1", "10"), Name: "Group A", Counts: reporting.Counts{CatchesInPaper: reporting.Int64(2)}},
			}}, nil
		case reporting.GroupPath("1", "10").Key():
			return reporting.Children{Summaries: []reporting.Summary{
				{Path: reporting.ProjectPath("1", "10", "100"), Name: "Maths", Counts: reporting.Counts{QuantityInPaper: reporting.Int64(40)}},
			}}, nil
		case reporting.ProjectPath("1", "10", "100").Key():
			return reporting.Children{CatchList: &reporting.CatchList{BookletCatches: []string{"B1"}}}, nil
		}
		return reporting.Children{}, nil
	})
}

func loadedSession(t *testing.T, params reporting.Params, summaries []reporting.Summary) *reporting.Session {
	t.Helper()
	s := reporting.NewSession("view-1", params, reporting.NewTreeStore(groupDetailsFetcher(), 2, nil))
	s.Dispatch(reporting.DataLoaded{Epoch: s.State().Epoch, Summaries: summaries})
	return s
}

func groupDetailsSession(t *testing.T) *reporting.Session {
	t.Helper()
	params := reporting.Params{Tab: reporting.TabProcessProduction, View: reporting.ViewGroupDetails, Start: exportDay}
	return loadedSession(t, params, []reporting.Summary{
		{Path: reporting.ProcessPath("Total"), Name: "Total", IsTotal: true, Counts: reporting.Counts{CatchesInPaper: reporting.Int64(9)}},
		{Path: reporting.ProcessPath("1"), Name: "Binding", Counts: reporting.Counts{CatchesInPaper: reporting.Int64(2)}},
		{Path: reporting.ProcessPath("2"), Name: "Proof Reading"},
	})
}

func pendingSession(t *testing.T) *reporting.Session {
	t.Helper()
	params := reporting.Params{Tab: reporting.TabPending, Start: exportDay, GroupID: "3", ProjectID: "7", LotNo: "L1"}
	s := reporting.NewSession("view-2", params, reporting.NewTreeStore(groupDetailsFetcher(), 2, nil))
	last := exportDay.Add(-2 * time.Hour)
	s.Dispatch(reporting.PendingLoaded{
		Epoch: s.State().Epoch,
		Mode:  reporting.CatchModeBooklet,
		Processes: []reporting.PendingProcess{
			{ProcessID: "1", Name: "Binding", TotalCatchCount: 3, TotalQuantity: 30, LastActivityAt: &last, Catches: []reporting.PendingCatch{
				{CatchNo: "C1", Quantity: reporting.Int64(5)},
				{CatchNo: "C2", Quantity: reporting.Int64(20)},
				{CatchNo: "C1", Quantity: reporting.Int64(5)},
			}},
			{ProcessID: "2", Name: "Cutting", TotalCatchCount: 1, TotalQuantity: 7, Catches: []reporting.PendingCatch{
				{CatchNo: "C9", Quantity: reporting.Int64(7)},
			}},
		},
	})
	return s
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	for slug, want := range kindSlugs {
		got, err := ParseKind(slug)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %q, %v", slug, got, err)
		}
		if got.Slug() != slug {
			t.Fatalf("Slug() = %q, want %q", got.Slug(), slug)
		}
	}
	if k, err := ParseKind("Pending_Process_Summary"); err != nil || k != KindPendingSummary {
		t.Fatalf("expected kind name to parse, got %q %v", k, err)
	}
	if _, err := ParseKind("stock"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if _, err := ParseFormat("csv"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestKindFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		params reporting.Params
		want   Kind
	}{
		{reporting.Params{Tab: reporting.TabProcessProduction, View: reporting.ViewSummary}, KindProcessSummary},
		{reporting.Params{Tab: reporting.TabProcessProduction, View: reporting.ViewDetails}, KindProcessDetails},
		{reporting.Params{Tab: reporting.TabProcessProduction, View: reporting.ViewGroupDetails}, KindGroupDetails},
		{reporting.Params{Tab: reporting.TabGroupProduction, View: reporting.ViewSummary}, KindGroupSummary},
		{reporting.Params{Tab: reporting.TabPending}, KindPendingSummary},
	}
	for _, tt := range tests {
		if got := KindFor(tt.params); got != tt.want {
			t.Fatalf("KindFor(%+v) = %q, want %q", tt.params, got, tt.want)
		}
	}
}

func TestSheetNames(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("Lamination ", 5)
	name := SheetName(long)
	if utf8.RuneCountInString(name) != maxSheetName {
		t.Fatalf("expected %d runes, got %q", maxSheetName, name)
	}
	if got := SheetName("a/b[c]"); got != "abc" {
		t.Fatalf("expected forbidden characters dropped, got %q", got)
	}
	if got := SheetName("  "); got != "Sheet" {
		t.Fatalf("expected fallback name, got %q", got)
	}

	used := map[string]struct{}{}
	first := uniqueSheetName(name, used)
	second := uniqueSheetName(name, used)
	third := uniqueSheetName(strings.ToUpper(name), used)
	if first != name || !strings.HasSuffix(second, " (2)") || !strings.HasSuffix(third, " (3)") {
		t.Fatalf("unexpected names %q %q %q", first, second, third)
	}
	if utf8.RuneCountInString(second) > maxSheetName {
		t.Fatalf("suffixed name too long: %q", second)
	}
}

func TestBuildReportGroupDetailsLoadsWholeTree(t *testing.T) {
	t.Parallel()

	s := groupDetailsSession(t)
	report, err := BuildReport(context.Background(), s, KindGroupDetails, nil, exportDay, "run-1")
	if err != nil {
		t.Fatalf("BuildReport returned error: %v", err)
	}
	var labels []string
	for _, r := range report.Rows {
		labels = append(labels, r.Label)
	}
	want := []string{"Binding", "Group A", "Maths", "Catch List", "Proof Reading", "Total"}
	if strings.Join(labels, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected rows %v", labels)
	}
	if s.Tree().IsExpanded(reporting.ProcessPath("1")) {
		t.Fatalf("export must not change the screen's expansion state")
	}
	if report.Meta.Info[0] != "Date: Mar 05, 2026" {
		t.Fatalf("unexpected info %v", report.Meta.Info)
	}
}

func TestBuildReportRejectsMismatchAndEmpty(t *testing.T) {
	t.Parallel()

	s := groupDetailsSession(t)
	if _, err := BuildReport(context.Background(), s, KindProcessSummary, nil, exportDay, "r"); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch, got %v", err)
	}

	empty := reporting.NewSession("v", reporting.DefaultParams(exportDay), reporting.NewTreeStore(nil, 1, nil))
	if _, err := BuildReport(context.Background(), empty, KindProcessSummary, nil, exportDay, "r"); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestRenderDocument(t *testing.T) {
	t.Parallel()

	for _, s := range []*reporting.Session{groupDetailsSession(t), pendingSession(t)} {
		kind := KindFor(s.State().Params)
		report, err := BuildReport(context.Background(), s, kind, stubNamer{}, exportDay, "0f8fad5b-d9cb-469f-a165-70867728950e")
		if err != nil {
			t.Fatalf("BuildReport(%s) returned error: %v", kind, err)
		}
		pdf, err := RenderDocument(report)
		if err != nil {
			t.Fatalf("RenderDocument(%s) returned error: %v", kind, err)
		}
		if !bytes.HasPrefix(pdf, []byte("%PDF")) {
			t.Fatalf("expected pdf bytes for %s", kind)
		}
	}
}

func TestRenderSpreadsheetGroupDetailsSheetPerProcess(t *testing.T) {
	t.Parallel()

	report, err := BuildReport(context.Background(), groupDetailsSession(t), KindGroupDetails, nil, exportDay, "run-1")
	if err != nil {
		t.Fatalf("BuildReport returned error: %v", err)
	}
	body, err := RenderSpreadsheet(report)
	if err != nil {
		t.Fatalf("RenderSpreadsheet returned error: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if strings.Join(sheets, ",") != "Binding,Proof Reading,Total" {
		t.Fatalf("unexpected sheets %v", sheets)
	}
	rows, err := f.GetRows("Binding")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if strings.Join(rows[0], ",") != strings.Join(groupDetailColumns, ",") {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[2][0] != "Group" || rows[2][1] != "Group A" || rows[2][2] != "2" {
		t.Fatalf("unexpected group row %v", rows[2])
	}
	if rows[4][0] != "Catch List" || rows[4][1] != "Booklet: B1 | Paper: None | Lot No: None" {
		t.Fatalf("unexpected catch list row %v", rows[4])
	}
	total, err := f.GetRows("Total")
	if err != nil {
		t.Fatalf("get total rows: %v", err)
	}
	if total[1][0] != "Total" || total[1][1] != "Total" || total[1][2] != "9" {
		t.Fatalf("unexpected total row %v", total[1])
	}
}

func TestRenderSpreadsheetPendingMatrix(t *testing.T) {
	t.Parallel()

	report, err := BuildReport(context.Background(), pendingSession(t), KindPendingSummary, stubNamer{}, exportDay, "run-2")
	if err != nil {
		t.Fatalf("BuildReport returned error: %v", err)
	}
	if report.RowCount() != 2 {
		t.Fatalf("expected 2 matrix rows after booklet aggregation, got %d", report.RowCount())
	}
	body, err := RenderSpreadsheet(report)
	if err != nil {
		t.Fatalf("RenderSpreadsheet returned error: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetList()[0]
	if sheet != "Pending Process Summary" {
		t.Fatalf("unexpected sheet %q", sheet)
	}
	// Title, three info lines, reference, blank, then the header block.
	header := 7
	summary, _ := f.GetCellValue(sheet, cellName(1, header+1))
	if summary != "3/30" {
		t.Fatalf("unexpected summary cell %q", summary)
	}
	catchNo, _ := f.GetCellValue(sheet, cellName(1, header+3))
	qty, _ := f.GetCellValue(sheet, cellName(2, header+3))
	pad, _ := f.GetCellValue(sheet, cellName(3, header+4))
	second, _ := f.GetCellValue(sheet, cellName(3, header+3))
	if catchNo != "C2" || qty != "20" || second != "C9" || pad != "" {
		t.Fatalf("unexpected body cells %q %q %q %q", catchNo, qty, second, pad)
	}
	group, _ := f.GetCellValue(sheet, "A2")
	if group != "Group: Group 3" {
		t.Fatalf("unexpected info line %q", group)
	}
}

func TestRunnerJournalsSuccessAndFailure(t *testing.T) {
	t.Parallel()

	journal := newMemJournal()
	runner := NewRunner(journal, stubNamer{}, nil)
	runner.now = func() time.Time { return time.Date(2026, 3, 5, 10, 30, 0, 0, time.UTC) }
	s := groupDetailsSession(t)

	res, err := runner.Export(context.Background(), s, KindGroupDetails, FormatXLSX)
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if !strings.HasPrefix(res.FileName, "Group_Production_Details_2026-03-05_20260305-103000.000-") || !strings.HasSuffix(res.FileName, ".xlsx") {
		t.Fatalf("unexpected file name %q", res.FileName)
	}
	if out := journal.outcomes[res.RunID]; out.Err != nil || out.RowCount != 6 || out.ByteSize != int64(len(res.Body)) {
		t.Fatalf("unexpected outcome %+v", out)
	}

	_, err = runner.Export(context.Background(), s, KindGroupDetails, Format("csv"))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
	if len(journal.begun) != 2 {
		t.Fatalf("expected failed run to be journaled, got %d runs", len(journal.begun))
	}
	if out := journal.outcomes[journal.begun[1].ID]; out.Err == nil {
		t.Fatalf("expected failed outcome, got %+v", out)
	}

	if _, err := runner.Export(context.Background(), s, KindPendingSummary, FormatPDF); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch, got %v", err)
	}
	if len(journal.begun) != 2 {
		t.Fatalf("mismatched request must not start a run")
	}
}
