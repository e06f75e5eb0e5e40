package reporting

import "testing"

func TestNodePathKey(t *testing.T) {
	t.Parallel()

	if got := ProjectPath("3", "7", "12").Key(); got != "project:3/7/12" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := ProjectPath("3", "", "12").Key(); got != "project:3//12" {
		t.Fatalf("unexpected key for a project under a process %q", got)
	}

	pairs := [][2]NodePath{
		{GroupPath("a/b", "c"), GroupPath("a", "b/c")},
		{ProjectPath("1", "2/3", "4"), ProjectPath("1", "2", "3/4")},
		{GroupPath("a%2Fb", "c"), GroupPath("a/b", "c")},
		{ProcessPath("1"), GroupPath("1", "")},
	}
	for _, p := range pairs {
		if p[0].Key() == p[1].Key() {
			t.Fatalf("%+v and %+v share key %q", p[0], p[1], p[0].Key())
		}
	}
}

func TestExpansionStateIsImmutable(t *testing.T) {
	t.Parallel()

	p := GroupPath("a/b", "c")
	base := ExpansionState{}
	next := base.With(p, Expanded)
	if base.IsExpanded(p) || !next.IsExpanded(p) {
		t.Fatalf("With must return a new state")
	}
	if next.IsExpanded(GroupPath("a", "b/c")) {
		t.Fatalf("slash in an id must not alias another node")
	}
	if next.With(p, Collapsed).AnyExpanded() {
		t.Fatalf("collapsing the only node should leave nothing expanded")
	}
}
