package reporting

import (
	"strconv"
	"strings"
	"time"
)

const (
	apiDateLayout   = "02-01-2006"
	labelDateLayout = "Jan 02, 2006"
	fileDateLayout  = "2006-01-02"
	fileStampLayout = "20060102-150405.000"
)

// Blank renders an optional count. Missing and zero values both render empty
// on every surface.
func Blank(v *int64) string {
	if v == nil || *v == 0 {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

// FormatAPIDate formats a date the way the backend expects it (dd-mm-yyyy).
func FormatAPIDate(t time.Time) string {
	return t.Format(apiDateLayout)
}

// DateRangeLabel renders the human label used in export headers.
func DateRangeLabel(start, end time.Time) string {
	if start.IsZero() {
		return ""
	}
	if end.IsZero() || sameDay(start, end) {
		return start.Format(labelDateLayout)
	}
	return start.Format(labelDateLayout) + " - " + end.Format(labelDateLayout)
}

// DateRangeScope renders the date range for use inside a file name.
func DateRangeScope(start, end time.Time) string {
	if start.IsZero() {
		return "undated"
	}
	if end.IsZero() || sameDay(start, end) {
		return start.Format(fileDateLayout)
	}
	return start.Format(fileDateLayout) + "_to_" + end.Format(fileDateLayout)
}

// FileName builds "<kind>_<scope>_<timestamp>-<run>.<ext>". The run id keeps
// names unique when two exports land on the same millisecond.
func FileName(kind, scope string, at time.Time, runID, ext string) string {
	var b strings.Builder
	b.WriteString(fileSafe(kind))
	if scope != "" {
		b.WriteByte('_')
		b.WriteString(fileSafe(scope))
	}
	b.WriteByte('_')
	b.WriteString(at.Format(fileStampLayout))
	if runID != "" {
		b.WriteByte('-')
		b.WriteString(fileSafe(runID))
	}
	b.WriteByte('.')
	b.WriteString(strings.TrimPrefix(ext, "."))
	return b.String()
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, s)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
