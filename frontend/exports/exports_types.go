package exports

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dailyreport/reporting"
)

var (
	ErrUnknownKind   = errors.New("unknown export kind")
	ErrUnknownFormat = errors.New("unknown export format")
	ErrNoData        = errors.New("no report data loaded")
	ErrKindMismatch  = errors.New("export kind does not match the current view")
)

// FailureNotice is the only detail a client sees when an export fails.
const FailureNotice = "export failed, please try again"

// Kind names an export; its value is the file name prefix.
type Kind string

const (
	KindProcessSummary Kind = "Process_Production_Summary"
	KindProcessDetails Kind = "Process_Production_Details"
	KindGroupDetails   Kind = "Group_Production_Details"
	KindGroupSummary   Kind = "Group_Production_Summary"
	KindPendingSummary Kind = "Pending_Process_Summary"
)

var kindSlugs = map[string]Kind{
	"process-summary": KindProcessSummary,
	"process-details": KindProcessDetails,
	"group-details":   KindGroupDetails,
	"group-summary":   KindGroupSummary,
	"pending":         KindPendingSummary,
}

// ParseKind accepts the URL slug or the kind itself.
func ParseKind(raw string) (Kind, error) {
	raw = strings.TrimSpace(raw)
	if k, ok := kindSlugs[strings.ToLower(raw)]; ok {
		return k, nil
	}
	for _, k := range kindSlugs {
		if string(k) == raw {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
}

// Slug is the URL form of the kind.
func (k Kind) Slug() string {
	for slug, kind := range kindSlugs {
		if kind == k {
			return slug
		}
	}
	return ""
}

func (k Kind) Title() string {
	switch k {
	case KindProcessSummary:
		return "Process Production Summary"
	case KindProcessDetails:
		return "Process Production Details"
	case KindGroupDetails:
		return "Group Production Details"
	case KindGroupSummary:
		return "Group Production Summary"
	case KindPendingSummary:
		return "Pending Process Summary"
	}
	return string(k)
}

// KindFor maps view parameters to the export they produce.
func KindFor(p reporting.Params) Kind {
	switch {
	case p.Tab == reporting.TabPending:
		return KindPendingSummary
	case p.Tab == reporting.TabGroupProduction:
		return KindGroupSummary
	case p.View == reporting.ViewDetails:
		return KindProcessDetails
	case p.View == reporting.ViewGroupDetails:
		return KindGroupDetails
	}
	return KindProcessSummary
}

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatPDF, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/pdf"
}

// Meta is the document header shared by both renderers.
type Meta struct {
	Title          string
	DateRangeLabel string
	Info           []string
	Reference      string
	GeneratedAt    time.Time
}

// Report is an immutable snapshot ready to render. Exactly one of Rows and
// Pending carries the body.
type Report struct {
	Kind    Kind
	Meta    Meta
	Rows    []reporting.Row
	Pending *reporting.PendingMatrix
}

// RowCount is the number of body rows the report renders.
func (r Report) RowCount() int {
	if r.Pending != nil {
		return r.Pending.RowCount
	}
	return len(r.Rows)
}
