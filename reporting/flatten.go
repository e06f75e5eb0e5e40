package reporting

import (
	"slices"
	"strings"
)

// Options controls flattening.
type Options struct {
	// ForceExpandAll emits every cached descendant regardless of expansion
	// state. Detail exports set it so the document always holds the full tree.
	ForceExpandAll bool
}

// Flatten walks summaries in source order and produces display rows. The total
// row is held back and emitted last with the label "Total". Children are
// appended below a node when it is expanded (or ForceExpandAll is set) and
// they have been fetched. A nil tree yields summary rows only.
func Flatten(summaries []Summary, tree TreeView, opts Options) []Row {
	rows := make([]Row, 0, len(summaries))
	var total *Row
	for _, sm := range summaries {
		if sm.IsTotal {
			if total == nil {
				r := totalRow(sm)
				total = &r
			}
			continue
		}
		rows = appendNode(rows, sm, tree, opts)
	}
	if total != nil {
		rows = append(rows, *total)
	}
	return rows
}

func totalRow(sm Summary) Row {
	return Row{
		Level:   sm.Path.Level,
		Path:    sm.Path,
		Label:   "Total",
		Counts:  sm.Counts,
		IsTotal: true,
	}
}

func appendNode(rows []Row, sm Summary, tree TreeView, opts Options) []Row {
	row := Row{
		Level:  sm.Path.Level,
		Path:   sm.Path,
		Label:  sm.Name,
		Counts: sm.Counts,
	}
	if tree == nil || !tree.Expandable(sm.Path.Level) {
		return append(rows, row)
	}
	row.Expandable = true
	row.Expanded = tree.IsExpanded(sm.Path)
	rows = append(rows, row)
	if !row.Expanded && !opts.ForceExpandAll {
		return rows
	}
	children, ok := tree.Children(sm.Path)
	if !ok {
		return rows
	}
	if children.CatchList != nil {
		rows = append(rows, Row{
			Level:     LevelCatchList,
			Path:      CatchListPath(sm.Path),
			Label:     "Catch List",
			CatchList: children.CatchList,
		})
	}
	var total *Row
	for _, child := range children.Summaries {
		if child.IsTotal {
			if total == nil {
				r := totalRow(child)
				total = &r
			}
			continue
		}
		rows = appendNode(rows, child, tree, opts)
	}
	if total != nil {
		rows = append(rows, *total)
	}
	return rows
}

// OrderProcesses moves processes whose name mentions proofreading to the top.
// Everything else keeps backend order and the total row goes last.
func OrderProcesses(summaries []Summary) []Summary {
	out := slices.Clone(summaries)
	rank := func(s Summary) int {
		switch {
		case s.IsTotal:
			return 2
		case strings.Contains(strings.ToLower(s.Name), "proofreading"):
			return 0
		default:
			return 1
		}
	}
	slices.SortStableFunc(out, func(a, b Summary) int {
		return rank(a) - rank(b)
	})
	return out
}
