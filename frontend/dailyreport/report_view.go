package dailyreport

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"

	"dailyreport/frontend/shared/html"
	"dailyreport/infrastructure/reportapi"
	"dailyreport/reporting"
)

var tabLabels = []struct {
	tab   reporting.Tab
	label string
}{
	{reporting.TabProcessProduction, "Process Production"},
	{reporting.TabPending, "Pending"},
	{reporting.TabGroupProduction, "Group Production"},
}

var viewLabels = []struct {
	view  reporting.View
	label string
}{
	{reporting.ViewSummary, "Summary"},
	{reporting.ViewDetails, "Details"},
	{reporting.ViewGroupDetails, "Group Details"},
}

// ReportPage renders the whole report screen.
func ReportPage(data PageData) templ.Component {
	return html.Layout("Daily Report", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		writeReportBody(&b, data)
		_, err := io.WriteString(w, b.String())
		return err
	}))
}

func writeReportBody(b *strings.Builder, data PageData) {
	st := data.State
	b.WriteString(`<h1>Daily Report</h1><div class="tabs">`)
	for _, t := range tabLabels {
		class := ""
		if t.tab == st.Params.Tab {
			class = ` class="active"`
		}
		b.WriteString(`<form method="post" action="/reports/tab"><button type="submit" name="tab" value="` + string(t.tab) + `"` + class + `>` + t.label + `</button></form> `)
	}
	b.WriteString(`</div>`)

	if data.Message != "" {
		b.WriteString(`<div class="alert" role="alert">` + templ.EscapeString(data.Message) + `</div>`)
	}

	if st.Params.Tab == reporting.TabPending {
		writePendingFilter(b, data)
	} else {
		writeParamsForm(b, st.Params)
	}
	b.WriteString(`<form method="post" action="/reports/load"><button type="submit">Show Report</button></form>`)

	if !st.ShowData {
		if st.Error == "" {
			b.WriteString(`<p>Select the report parameters and press Show Report.</p>`)
		}
		return
	}

	b.WriteString(`<p>`)
	if label := st.Params.DateRangeLabel(); label != "" && st.Params.Tab != reporting.TabPending {
		b.WriteString(`<strong>` + templ.EscapeString(label) + `</strong> `)
	}
	for _, ext := range []string{"pdf", "xlsx"} {
		b.WriteString(`<a href="/reports/exports/` + data.ExportSlug + `.` + ext + `">Export ` + strings.ToUpper(ext) + `</a> `)
	}
	b.WriteString(`</p>`)

	if data.Detail {
		b.WriteString(`<form method="post" action="/reports/expand-all" style="display:inline"><button type="submit">Expand All</button></form> `)
		if data.AnyOpen {
			b.WriteString(`<form method="post" action="/reports/collapse-all" style="display:inline"><button type="submit">Collapse All</button></form>`)
		}
	}

	writeRowTable(b, data.Rows)
	if data.Matrix != nil {
		writeMatrix(b, *data.Matrix)
	}
}

func writeParamsForm(b *strings.Builder, p reporting.Params) {
	b.WriteString(`<form method="post" action="/reports/params">`)
	if p.Tab == reporting.TabProcessProduction {
		b.WriteString(`<label>View <select name="view">`)
		for _, v := range viewLabels {
			b.WriteString(option(string(v.view), v.label, v.view == p.View))
		}
		b.WriteString(`</select></label> `)
	}
	b.WriteString(`<label>Start <input type="date" name="start" required value="` + dateValue(p.Start.IsZero(), p.Start.Format(dateLayout)) + `"></label> `)
	b.WriteString(`<label>End <input type="date" name="end" value="` + dateValue(p.End.IsZero(), p.End.Format(dateLayout)) + `"></label> `)
	b.WriteString(`<button type="submit">Apply</button></form>`)
}

func dateValue(zero bool, v string) string {
	if zero {
		return ""
	}
	return v
}

func writePendingFilter(b *strings.Builder, data PageData) {
	p := data.State.Params
	b.WriteString(`<form method="post" action="/reports/pending-filter">`)
	writeSelect(b, "Group", "group_id", data.Groups, p.GroupID.String())
	writeSelect(b, "Project", "project_id", data.Projects, p.ProjectID.String())
	writeSelect(b, "Lot", "lot_no", data.Lots, p.LotNo)
	b.WriteString(`<button type="submit">Apply</button></form>`)
}

func writeSelect(b *strings.Builder, label, name string, opts []reportapi.Option, selected string) {
	b.WriteString(`<label>` + label + ` <select name="` + name + `">`)
	b.WriteString(option("", "Select "+strings.ToLower(label), selected == ""))
	for _, o := range opts {
		b.WriteString(option(o.Value, o.Label, o.Value == selected))
	}
	b.WriteString(`</select></label> `)
}

func option(value, label string, selected bool) string {
	s := `<option value="` + templ.EscapeString(value) + `"`
	if selected {
		s += ` selected`
	}
	return s + `>` + templ.EscapeString(label) + `</option>`
}

func writeRowTable(b *strings.Builder, rows []reporting.Row) {
	if len(rows) == 0 {
		b.WriteString(`<p>No data for the selected parameters.</p>`)
		return
	}
	b.WriteString(`<table><thead><tr><th rowspan="2">Process</th><th colspan="2">Paper</th><th colspan="2">Booklet</th></tr>`)
	b.WriteString(`<tr><th>Catch</th><th>Quantity</th><th>Catch</th><th>Quantity</th></tr></thead><tbody>`)
	for _, row := range rows {
		if row.Level == reporting.LevelCatchList && row.CatchList != nil {
			b.WriteString(`<tr class="catchlist"><td colspan="5">`)
			for i, line := range row.CatchList.Lines() {
				if i > 0 {
					b.WriteString(`<br>`)
				}
				b.WriteString(templ.EscapeString(line))
			}
			b.WriteString(`</td></tr>`)
			continue
		}
		class := row.Level.String()
		if row.IsTotal {
			class = "total"
		}
		b.WriteString(`<tr class="` + class + `"><td style="padding-left:` + strconv.Itoa(int(row.Level)+1) + `rem">`)
		if row.Expandable {
			writeToggle(b, row)
		}
		b.WriteString(templ.EscapeString(row.Label) + `</td>`)
		for _, v := range row.Counts.Values() {
			b.WriteString(`<td class="num">` + count(v) + `</td>`)
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table>`)
}

func writeToggle(b *strings.Builder, row reporting.Row) {
	sign := "+"
	if row.Expanded {
		sign = "-"
	}
	b.WriteString(`<form method="post" action="/reports/toggle" style="display:inline">`)
	b.WriteString(hidden("level", row.Level.String()))
	b.WriteString(hidden("process_id", row.Path.ProcessID.String()))
	b.WriteString(hidden("group_id", row.Path.GroupID.String()))
	b.WriteString(hidden("project_id", row.Path.ProjectID.String()))
	b.WriteString(`<button type="submit">` + sign + `</button></form> `)
}

func hidden(name, value string) string {
	return `<input type="hidden" name="` + name + `" value="` + templ.EscapeString(value) + `">`
}

// count renders a count with thousands separators; missing and zero values
// stay blank.
func count(v *int64) string {
	if reporting.Blank(v) == "" {
		return ""
	}
	return humanize.Comma(*v)
}

func writeMatrix(b *strings.Builder, m reporting.PendingMatrix) {
	if len(m.Columns) == 0 {
		b.WriteString(`<p>No pending processes.</p>`)
		return
	}
	b.WriteString(`<h2>Pending Catches (` + m.Mode.String() + `)</h2><table><thead><tr>`)
	for _, c := range m.Columns {
		b.WriteString(`<th colspan="2">` + templ.EscapeString(c.Name))
		if c.LastActivityAt != nil {
			b.WriteString(`<br><small>Last Activity: ` + templ.EscapeString(reporting.TimeAgoAt(*c.LastActivityAt, now())) + `</small>`)
		}
		b.WriteString(`</th>`)
	}
	b.WriteString(`</tr><tr>`)
	for _, c := range m.Columns {
		b.WriteString(`<th colspan="2" class="pend-count">` + humanize.Comma(c.TotalCatchCount) + `/` + humanize.Comma(c.TotalQuantity) + `</th>`)
	}
	b.WriteString(`</tr><tr>`)
	for range m.Columns {
		b.WriteString(sortHeader(m.Sort, reporting.SortByCatchNo, "Catch"))
		b.WriteString(sortHeader(m.Sort, reporting.SortByQuantity, "Quantity"))
	}
	b.WriteString(`</tr></thead><tbody>`)
	for _, cells := range m.Rows() {
		b.WriteString(`<tr>`)
		for _, v := range cells {
			b.WriteString(`<td>` + templ.EscapeString(v) + `</td>`)
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table>`)
}

func sortHeader(spec reporting.SortSpec, column reporting.SortColumn, label string) string {
	marker := ""
	if spec.Column == column {
		marker = " ▲"
		if spec.Direction == reporting.SortDesc {
			marker = " ▼"
		}
	}
	return `<th class="pend-leaf"><form method="post" action="/reports/sort" style="display:inline">` +
		hidden("column", string(column)) +
		`<button type="submit">` + label + marker + `</button></form></th>`
}
