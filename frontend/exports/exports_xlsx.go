package exports

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"dailyreport/reporting"
)

const maxSheetName = 31

var groupDetailColumns = []string{"Level", "Name", "Paper Catch", "Paper Quantity", "Booklet Catch", "Booklet Quantity"}

type sheetStyles struct {
	title, header, total, catchList, pendName, pendCount, pendLeaf int
}

func newSheetStyles(f *excelize.File) (sheetStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	specs := []*excelize.Style{
		{Font: &excelize.Font{Bold: true, Size: 14}},
		{Font: &excelize.Font{Bold: true, Color: "#FFFFFF"}, Fill: fill("#3C3C3C"), Alignment: center, Border: border},
		{Font: &excelize.Font{Bold: true}, Fill: fill("#E1F5FE"), Border: border},
		{Fill: fill("#E3F2FD"), Alignment: &excelize.Alignment{Horizontal: "left", WrapText: true}, Border: border},
		{Font: &excelize.Font{Bold: true}, Fill: fill("#E0F2F1"), Alignment: center, Border: border},
		{Font: &excelize.Font{Bold: true, Color: "#FFFFFF"}, Fill: fill("#388E3C"), Alignment: center, Border: border},
		{Font: &excelize.Font{Bold: true, Color: "#DC3545"}, Fill: fill("#F5F5F5"), Alignment: center, Border: border},
	}
	ids := make([]int, len(specs))
	for i, spec := range specs {
		id, err := f.NewStyle(spec)
		if err != nil {
			return sheetStyles{}, fmt.Errorf("create sheet style: %w", err)
		}
		ids[i] = id
	}
	return sheetStyles{
		title: ids[0], header: ids[1], total: ids[2], catchList: ids[3],
		pendName: ids[4], pendCount: ids[5], pendLeaf: ids[6],
	}, nil
}

func fill(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
}

// RenderSpreadsheet renders the report as an XLSX workbook. Group detail
// reports get one sheet per process; everything else a single sheet.
func RenderSpreadsheet(report Report) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	styles, err := newSheetStyles(f)
	if err != nil {
		return nil, err
	}

	switch {
	case report.Pending != nil:
		err = writePendingSheet(f, styles, report)
	case report.Kind == KindGroupDetails:
		err = writeGroupDetailSheets(f, styles, report)
	default:
		err = writeRowSheet(f, styles, report)
	}
	if err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// useSheet renames the workbook's default sheet for the first sheet and adds
// new sheets after that.
func useSheet(f *excelize.File, name string, first bool) error {
	if first {
		return f.SetSheetName(f.GetSheetName(0), name)
	}
	_, err := f.NewSheet(name)
	return err
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// writeTitle fills the title block and returns the next free row.
func writeTitle(f *excelize.File, sheet string, styles sheetStyles, meta Meta) (int, error) {
	if err := f.SetCellValue(sheet, "A1", meta.Title); err != nil {
		return 0, err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", styles.title); err != nil {
		return 0, err
	}
	row := 2
	for _, line := range meta.Info {
		if err := f.SetCellValue(sheet, cellName(1, row), line); err != nil {
			return 0, err
		}
		row++
	}
	if meta.Reference != "" {
		if err := f.SetCellValue(sheet, cellName(1, row), "Reference: "+meta.Reference); err != nil {
			return 0, err
		}
		row++
	}
	return row + 1, nil
}

// setCount writes a count as a number, leaving blank cells empty.
func setCount(f *excelize.File, sheet, cell string, v *int64) error {
	if reporting.Blank(v) == "" {
		return nil
	}
	return f.SetCellValue(sheet, cell, *v)
}

func writeRowSheet(f *excelize.File, styles sheetStyles, report Report) error {
	sheet := SheetName(report.Meta.Title)
	if err := useSheet(f, sheet, true); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	r, err := writeTitle(f, sheet, styles, report.Meta)
	if err != nil {
		return err
	}

	headers := []struct {
		from, to string
		value    string
	}{
		{cellName(1, r), cellName(1, r+1), "Process"},
		{cellName(2, r), cellName(3, r), "Paper"},
		{cellName(4, r), cellName(5, r), "Booklet"},
	}
	for _, h := range headers {
		if err := f.MergeCell(sheet, h.from, h.to); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, h.from, h.value); err != nil {
			return err
		}
	}
	leaf := []any{"Catch", "Quantity", "Catch", "Quantity"}
	if err := f.SetSheetRow(sheet, cellName(2, r+1), &leaf); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, cellName(1, r), cellName(5, r+1), styles.header); err != nil {
		return err
	}

	r += 2
	for _, row := range report.Rows {
		if row.Level == reporting.LevelCatchList && row.CatchList != nil {
			if err := f.MergeCell(sheet, cellName(1, r), cellName(5, r)); err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cellName(1, r), row.CatchList.Inline()); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cellName(1, r), cellName(5, r), styles.catchList); err != nil {
				return err
			}
			r++
			continue
		}
		if err := f.SetCellValue(sheet, cellName(1, r), indent(row)+row.Label); err != nil {
			return err
		}
		for i, v := range row.Counts.Values() {
			if err := setCount(f, sheet, cellName(2+i, r), v); err != nil {
				return err
			}
		}
		if row.IsTotal {
			if err := f.SetCellStyle(sheet, cellName(1, r), cellName(5, r), styles.total); err != nil {
				return err
			}
		}
		r++
	}
	if err := f.SetColWidth(sheet, "A", "A", 40); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "E", 14)
}

// splitByProcess groups flattened rows under their process row. A trailing
// total row forms its own group.
func splitByProcess(rows []reporting.Row) [][]reporting.Row {
	var groups [][]reporting.Row
	for _, row := range rows {
		if row.Level == reporting.LevelProcess || len(groups) == 0 {
			groups = append(groups, []reporting.Row{row})
			continue
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], row)
	}
	return groups
}

func writeGroupDetailSheets(f *excelize.File, styles sheetStyles, report Report) error {
	groups := splitByProcess(report.Rows)
	if len(groups) == 0 {
		return writeRowSheet(f, styles, report)
	}
	used := make(map[string]struct{}, len(groups))
	for gi, rows := range groups {
		sheet := uniqueSheetName(SheetName(rows[0].Label), used)
		if err := useSheet(f, sheet, gi == 0); err != nil {
			return fmt.Errorf("create sheet %q: %w", sheet, err)
		}
		header := make([]any, len(groupDetailColumns))
		for i, c := range groupDetailColumns {
			header[i] = c
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", cellName(len(header), 1), styles.header); err != nil {
			return err
		}
		for i, row := range rows {
			r := i + 2
			if row.Level == reporting.LevelCatchList && row.CatchList != nil {
				if err := f.SetCellValue(sheet, cellName(1, r), "Catch List"); err != nil {
					return err
				}
				if err := f.MergeCell(sheet, cellName(2, r), cellName(6, r)); err != nil {
					return err
				}
				if err := f.SetCellValue(sheet, cellName(2, r), row.CatchList.Inline()); err != nil {
					return err
				}
				if err := f.SetCellStyle(sheet, cellName(1, r), cellName(6, r), styles.catchList); err != nil {
					return err
				}
				continue
			}
			level := levelLabel(row)
			if err := f.SetCellValue(sheet, cellName(1, r), level); err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cellName(2, r), row.Label); err != nil {
				return err
			}
			for j, v := range row.Counts.Values() {
				if err := setCount(f, sheet, cellName(3+j, r), v); err != nil {
					return err
				}
			}
			if row.IsTotal {
				if err := f.SetCellStyle(sheet, cellName(1, r), cellName(6, r), styles.total); err != nil {
					return err
				}
			}
		}
		if err := f.SetColWidth(sheet, "A", "A", 12); err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "B", "B", 40); err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "C", "F", 16); err != nil {
			return err
		}
	}
	return nil
}

func levelLabel(row reporting.Row) string {
	if row.IsTotal {
		return "Total"
	}
	switch row.Level {
	case reporting.LevelProcess:
		return "Process"
	case reporting.LevelGroup:
		return "Group"
	case reporting.LevelProject:
		return "Project"
	}
	return ""
}

func writePendingSheet(f *excelize.File, styles sheetStyles, report Report) error {
	sheet := SheetName(report.Meta.Title)
	if err := useSheet(f, sheet, true); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	r, err := writeTitle(f, sheet, styles, report.Meta)
	if err != nil {
		return err
	}
	m := *report.Pending
	now := report.Meta.GeneratedAt
	if now.IsZero() {
		now = time.Now()
	}

	for i, c := range m.Columns {
		left, right := 2*i+1, 2*i+2
		name := c.Name
		if c.LastActivityAt != nil {
			name += "\nLast Activity: " + reporting.TimeAgoAt(*c.LastActivityAt, now)
		}
		rowsAndStyles := []struct {
			row   int
			value string
			style int
		}{
			{r, name, styles.pendName},
			{r + 1, c.Summary(), styles.pendCount},
		}
		for _, h := range rowsAndStyles {
			if err := f.MergeCell(sheet, cellName(left, h.row), cellName(right, h.row)); err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cellName(left, h.row), h.value); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cellName(left, h.row), cellName(right, h.row), h.style); err != nil {
				return err
			}
		}
		if err := f.SetCellValue(sheet, cellName(left, r+2), "Catch"); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cellName(right, r+2), "Quantity"); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cellName(left, r+2), cellName(right, r+2), styles.pendLeaf); err != nil {
			return err
		}
	}
	if err := f.SetRowHeight(sheet, r, 30); err != nil {
		return err
	}

	body := r + 3
	for i := range m.RowCount {
		cells := m.Row(i)
		values := make([]any, len(cells))
		for j, v := range cells {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && j%2 == 1 {
				values[j] = n
				continue
			}
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cellName(1, body+i), &values); err != nil {
			return err
		}
	}
	if len(m.Columns) > 0 {
		last, _ := excelize.ColumnNumberToName(2 * len(m.Columns))
		if err := f.SetColWidth(sheet, "A", last, 14); err != nil {
			return err
		}
	}
	return nil
}

// SheetName makes name usable as a worksheet name: forbidden characters are
// dropped and the result is cut to 31 runes.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return -1
		}
		return r
	}, name)
	name = strings.Trim(strings.TrimSpace(name), "'")
	if name == "" {
		name = "Sheet"
	}
	return truncateRunes(name, maxSheetName)
}

// uniqueSheetName suffixes " (n)" until name is unused, keeping the total
// within the sheet name limit. Comparison is case-insensitive like Excel's.
func uniqueSheetName(name string, used map[string]struct{}) string {
	candidate := name
	for n := 2; ; n++ {
		key := strings.ToLower(candidate)
		if _, taken := used[key]; !taken {
			used[key] = struct{}{}
			return candidate
		}
		suffix := " (" + strconv.Itoa(n) + ")"
		candidate = truncateRunes(name, maxSheetName-utf8.RuneCountInString(suffix)) + suffix
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
