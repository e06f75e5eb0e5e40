package reportapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dailyreport/reporting"
)

// completedRow is a row of the Process-Production-Report family. Only one of
// the id fields is set depending on the endpoint.
type completedRow struct {
	ProcessID                       reporting.ID `json:"processId"`
	GroupID                         reporting.ID `json:"groupId"`
	ProjectID                       reporting.ID `json:"projectId"`
	CompletedTotalCatchesInPaper    *int64       `json:"completedTotalCatchesInPaper"`
	CompletedTotalQuantityInPaper   *int64       `json:"completedTotalQuantityInPaper"`
	CompletedTotalCatchesInBooklet  *int64       `json:"completedTotalCatchesInBooklet"`
	CompletedTotalQuantityInBooklet *int64       `json:"completedTotalQuantityInBooklet"`
}

func (r completedRow) counts() reporting.Counts {
	return reporting.Counts{
		CatchesInPaper:    r.CompletedTotalCatchesInPaper,
		QuantityInPaper:   r.CompletedTotalQuantityInPaper,
		CatchesInBooklet:  r.CompletedTotalCatchesInBooklet,
		QuantityInBooklet: r.CompletedTotalQuantityInBooklet,
	}
}

type pendingProjectRow struct {
	ProjectID                      reporting.ID `json:"projectId"`
	PendingCountOfCatchesInPaper   *int64       `json:"pendingCountOfCatchesInPaper"`
	PendingQuantityInPaper         *int64       `json:"pendingQuantityInPaper"`
	PendingCountOfCatchesInBooklet *int64       `json:"pendingCountOfCatchesInBooklet"`
	PendingQuantityInBooklet       *int64       `json:"pendingQuantityInBooklet"`
}

func (r pendingProjectRow) counts() reporting.Counts {
	return reporting.Counts{
		CatchesInPaper:    r.PendingCountOfCatchesInPaper,
		QuantityInPaper:   r.PendingQuantityInPaper,
		CatchesInBooklet:  r.PendingCountOfCatchesInBooklet,
		QuantityInBooklet: r.PendingQuantityInBooklet,
	}
}

type pendingSummaryRow struct {
	ProcessID       reporting.ID `json:"processId"`
	TotalCatchCount *int64       `json:"totalCatchCount"`
	TotalQuantity   *int64       `json:"totalQuantity"`
	LastLoggedAt    apiTime      `json:"lastLoggedAt"`
}

type pendingDetailRow struct {
	CatchDetails []catchDetail `json:"catchDetails"`
}

type catchDetail struct {
	CatchNo  reporting.ID `json:"catchNo"`
	Quantity *int64       `json:"quantity"`
}

type catchListRow struct {
	BookletCatchList []reporting.ID `json:"bookletCatchList"`
	PaperCatchList   []reporting.ID `json:"paperCatchList"`
	LotNos           []reporting.ID `json:"lotNos"`
}

func (r catchListRow) catchList() *reporting.CatchList {
	return &reporting.CatchList{
		BookletCatches: idStrings(r.BookletCatchList),
		PaperCatches:   idStrings(r.PaperCatchList),
		LotNumbers:     idStrings(r.LotNos),
	}
}

type processRow struct {
	ID   reporting.ID `json:"id"`
	Name string       `json:"name"`
}

type groupRow struct {
	ID     reporting.ID `json:"id"`
	Name   string       `json:"name"`
	Status bool         `json:"status"`
}

type projectRow struct {
	ProjectID  reporting.ID `json:"projectId"`
	Name       string       `json:"name"`
	NoOfSeries int          `json:"noOfSeries"`
}

type lotRow struct {
	GroupID   reporting.ID `json:"groupId"`
	ProjectID reporting.ID `json:"projectId"`
	Name      string       `json:"name"`
	LotNo     reporting.ID `json:"lotNo"`
}

// Project is a directory entry from /Project.
type Project struct {
	ID         reporting.ID `json:"id"`
	Name       string       `json:"name"`
	NoOfSeries int          `json:"noOfSeries"`
}

// Option is one entry of a filter select.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var apiTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// apiTime accepts the timestamp shapes the backend emits; zone-less values are
// read as local time.
type apiTime struct {
	time.Time
}

func (t *apiTime) UnmarshalJSON(b []byte) error {
	var raw *string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		t.Time = time.Time{}
		return nil
	}
	s := strings.TrimSpace(*raw)
	for _, layout := range apiTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

func (t apiTime) ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

func idStrings(ids []reporting.ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if s := strings.TrimSpace(id.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
