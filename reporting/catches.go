package reporting

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortColumn selects the pending catch column to order by.
type SortColumn string

const (
	SortByCatchNo  SortColumn = "catchNo"
	SortByQuantity SortColumn = "quantity"
)

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortSpec is the active pending-report ordering.
type SortSpec struct {
	Column    SortColumn    `json:"column"`
	Direction SortDirection `json:"direction"`
}

// DefaultSort puts the highest pending quantity first.
func DefaultSort() SortSpec {
	return SortSpec{Column: SortByQuantity, Direction: SortDesc}
}

// ParseSortSpec validates raw column/direction values.
func ParseSortSpec(column, direction string) (SortSpec, error) {
	spec := SortSpec{Column: SortColumn(strings.TrimSpace(column)), Direction: SortDirection(strings.ToLower(strings.TrimSpace(direction)))}
	if spec.Column != SortByCatchNo && spec.Column != SortByQuantity {
		return SortSpec{}, fmt.Errorf("invalid sort column %q", column)
	}
	if spec.Direction != SortAsc && spec.Direction != SortDesc {
		return SortSpec{}, fmt.Errorf("invalid sort direction %q", direction)
	}
	return spec, nil
}

// Click returns the spec after the user clicks a column header: the active
// column flips direction, a new column starts ascending.
func (s SortSpec) Click(column SortColumn) SortSpec {
	if s.Column == column {
		if s.Direction == SortAsc {
			return SortSpec{Column: column, Direction: SortDesc}
		}
		return SortSpec{Column: column, Direction: SortAsc}
	}
	return SortSpec{Column: column, Direction: SortAsc}
}

// CatchMode decides whether pending catches are summed per catch number.
type CatchMode int

const (
	CatchModePaper CatchMode = iota
	CatchModeBooklet
)

func (m CatchMode) String() string {
	if m == CatchModeBooklet {
		return "booklet"
	}
	return "paper"
}

// CatchModeForSeries maps a project's series count to a catch mode: projects
// printed in more than one series are booklets.
func CatchModeForSeries(noOfSeries int) CatchMode {
	if noOfSeries > 1 {
		return CatchModeBooklet
	}
	return CatchModePaper
}

// AggregateCatches sums quantities per catch number. Records without a catch
// number are dropped; output keeps first-occurrence order.
func AggregateCatches(details []PendingCatch) []PendingCatch {
	index := make(map[string]int, len(details))
	out := make([]PendingCatch, 0, len(details))
	for _, d := range details {
		if d.CatchNo == "" {
			continue
		}
		if i, ok := index[d.CatchNo]; ok {
			*out[i].Quantity += d.Qty()
			continue
		}
		index[d.CatchNo] = len(out)
		out = append(out, PendingCatch{CatchNo: d.CatchNo, Quantity: Int64(d.Qty())})
	}
	return out
}

var (
	collatorMu sync.Mutex
	collator   = collate.New(language.English)
)

func compareCatchNo(a, b string) int {
	// collate.Collator keeps internal buffers and is not safe for concurrent use.
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}

// SortCatches returns a stably sorted copy of catches; equal keys keep their
// relative order.
func SortCatches(catches []PendingCatch, spec SortSpec) []PendingCatch {
	out := slices.Clone(catches)
	slices.SortStableFunc(out, func(a, b PendingCatch) int {
		var c int
		if spec.Column == SortByCatchNo {
			c = compareCatchNo(a.CatchNo, b.CatchNo)
		} else {
			switch qa, qb := a.Qty(), b.Qty(); {
			case qa < qb:
				c = -1
			case qa > qb:
				c = 1
			}
		}
		if spec.Direction == SortDesc {
			c = -c
		}
		return c
	})
	return out
}
