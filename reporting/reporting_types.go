package reporting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID is a backend identifier. The API sends numeric ids for real rows and the
// string "Total" for the aggregate row, so both encodings are accepted.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decode id %s: %w", string(b), err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// IsTotal reports whether the id is the backend's aggregate marker.
func (id ID) IsTotal() bool {
	return strings.EqualFold(strings.TrimSpace(string(id)), "total")
}

// Int64 parses numeric ids; ok is false for "Total" and empty ids.
func (id ID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Level identifies the depth of a node or row in the report tree.
type Level int

const (
	LevelProcess Level = iota
	LevelGroup
	LevelProject
	LevelCatchList
)

func (l Level) String() string {
	switch l {
	case LevelProcess:
		return "process"
	case LevelGroup:
		return "group"
	case LevelProject:
		return "project"
	case LevelCatchList:
		return "catchlist"
	default:
		return "unknown"
	}
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// ParseLevel is the inverse of Level.String.
func ParseLevel(raw string) (Level, error) {
	for _, l := range []Level{LevelProcess, LevelGroup, LevelProject, LevelCatchList} {
		if strings.EqualFold(raw, l.String()) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown level %q", raw)
}

// Counts holds the four completed (or pending) numeric columns. A nil field
// means the backend did not send the value.
type Counts struct {
	CatchesInPaper    *int64 `json:"catchesInPaper,omitempty"`
	QuantityInPaper   *int64 `json:"quantityInPaper,omitempty"`
	CatchesInBooklet  *int64 `json:"catchesInBooklet,omitempty"`
	QuantityInBooklet *int64 `json:"quantityInBooklet,omitempty"`
}

// Values returns the columns in display order.
func (c Counts) Values() [4]*int64 {
	return [4]*int64{c.CatchesInPaper, c.QuantityInPaper, c.CatchesInBooklet, c.QuantityInBooklet}
}

// Summary is one process, group or project row as delivered by the backend,
// with its display name already sanitized.
type Summary struct {
	Path           NodePath   `json:"path"`
	Name           string     `json:"name"`
	Counts         Counts     `json:"counts"`
	IsTotal        bool       `json:"isTotal"`
	LastActivityAt *time.Time `json:"lastActivityAt,omitempty"`
}

// CatchList is the leaf detail attached to an expanded project.
type CatchList struct {
	BookletCatches []string `json:"bookletCatchList"`
	PaperCatches   []string `json:"paperCatchList"`
	LotNumbers     []string `json:"lotNos"`
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

// Lines renders the three catch-list summaries, one per line.
func (c CatchList) Lines() []string {
	return []string{
		"Booklet Catch List: " + joinOrNone(c.BookletCatches),
		"Paper Catch List: " + joinOrNone(c.PaperCatches),
		"Lot No: " + joinOrNone(c.LotNumbers),
	}
}

// Inline renders the catch list on a single line for spreadsheet cells.
func (c CatchList) Inline() string {
	return "Booklet: " + joinOrNone(c.BookletCatches) +
		" | Paper: " + joinOrNone(c.PaperCatches) +
		" | Lot No: " + joinOrNone(c.LotNumbers)
}

// PendingCatch is a raw pending quantity for one catch number.
type PendingCatch struct {
	CatchNo  string `json:"catchNo"`
	Quantity *int64 `json:"quantity"`
}

// Qty returns the quantity, treating a missing value as zero.
func (p PendingCatch) Qty() int64 {
	if p.Quantity == nil {
		return 0
	}
	return *p.Quantity
}

// PendingProcess is one process column of the pending report.
type PendingProcess struct {
	ProcessID       ID             `json:"processId"`
	Name            string         `json:"name"`
	TotalCatchCount int64          `json:"totalCatchCount"`
	TotalQuantity   int64          `json:"totalQuantity"`
	LastActivityAt  *time.Time     `json:"lastActivityAt,omitempty"`
	Catches         []PendingCatch `json:"catchDetails"`
}

// Children is what a single node expansion fetches: summaries for the next
// level down, or a catch list when the node is a project.
type Children struct {
	Summaries []Summary  `json:"summaries,omitempty"`
	CatchList *CatchList `json:"catchList,omitempty"`
}

// Row is one flattened display row shared by the screen and both exports.
type Row struct {
	Level      Level      `json:"level"`
	Path       NodePath   `json:"path"`
	Label      string     `json:"label"`
	Counts     Counts     `json:"counts"`
	IsTotal    bool       `json:"isTotal"`
	Expandable bool       `json:"expandable"`
	Expanded   bool       `json:"expanded"`
	CatchList  *CatchList `json:"catchList,omitempty"`
}

// Cells returns the label followed by the four numeric columns using the blank
// display convention. Catch-list rows return a single spanning cell.
func (r Row) Cells() []string {
	if r.Level == LevelCatchList && r.CatchList != nil {
		return []string{strings.Join(r.CatchList.Lines(), "\n")}
	}
	v := r.Counts.Values()
	return []string{r.Label, Blank(v[0]), Blank(v[1]), Blank(v[2]), Blank(v[3])}
}

// Int64 is a convenience for building optional counts.
func Int64(v int64) *int64 { return &v }
