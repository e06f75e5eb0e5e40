package reporting

import (
	"strconv"
	"time"
)

// PendingColumn is one process of the pending report with its catches already
// aggregated (booklet mode) and sorted.
type PendingColumn struct {
	ProcessID       ID             `json:"processId"`
	Name            string         `json:"name"`
	TotalCatchCount int64          `json:"totalCatchCount"`
	TotalQuantity   int64          `json:"totalQuantity"`
	LastActivityAt  *time.Time     `json:"lastActivityAt,omitempty"`
	Catches         []PendingCatch `json:"catches"`
}

// Summary is the "count/quantity" header cell.
func (c PendingColumn) Summary() string {
	return strconv.FormatInt(c.TotalCatchCount, 10) + "/" + strconv.FormatInt(c.TotalQuantity, 10)
}

// PendingMatrix is the column-major pending layout: a (Catch, Quantity) pair
// of cells per process, RowCount rows deep.
type PendingMatrix struct {
	Mode     CatchMode       `json:"mode"`
	Sort     SortSpec        `json:"sort"`
	Columns  []PendingColumn `json:"columns"`
	RowCount int             `json:"rowCount"`
}

// BuildPendingMatrix aggregates booklet catches per catch number, sorts every
// column by spec and sizes the matrix to the longest column.
func BuildPendingMatrix(processes []PendingProcess, mode CatchMode, spec SortSpec) PendingMatrix {
	m := PendingMatrix{
		Mode:    mode,
		Sort:    spec,
		Columns: make([]PendingColumn, 0, len(processes)),
	}
	for _, p := range processes {
		catches := p.Catches
		if mode == CatchModeBooklet {
			catches = AggregateCatches(catches)
		}
		catches = SortCatches(catches, spec)
		m.Columns = append(m.Columns, PendingColumn{
			ProcessID:       p.ProcessID,
			Name:            p.Name,
			TotalCatchCount: p.TotalCatchCount,
			TotalQuantity:   p.TotalQuantity,
			LastActivityAt:  p.LastActivityAt,
			Catches:         catches,
		})
		m.RowCount = max(m.RowCount, len(catches))
	}
	return m
}

// Row returns the cells of row i, two per column. Columns shorter than i are
// padded with empty cells.
func (m PendingMatrix) Row(i int) []string {
	cells := make([]string, 0, 2*len(m.Columns))
	for _, c := range m.Columns {
		if i < len(c.Catches) {
			cells = append(cells, c.Catches[i].CatchNo, Blank(c.Catches[i].Quantity))
			continue
		}
		cells = append(cells, "", "")
	}
	return cells
}

// Rows returns every row of the matrix.
func (m PendingMatrix) Rows() [][]string {
	rows := make([][]string, m.RowCount)
	for i := range rows {
		rows[i] = m.Row(i)
	}
	return rows
}
