package reporting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Tab is one of the three report tabs.
type Tab string

const (
	TabProcessProduction Tab = "process-production"
	TabPending           Tab = "pending"
	TabGroupProduction   Tab = "group-production"
)

// View selects the layout inside a tab.
type View string

const (
	ViewSummary      View = "summary"
	ViewDetails      View = "details"
	ViewGroupDetails View = "group-details"
)

// LoadErrorMessage is shown when a top-level report fetch fails.
const LoadErrorMessage = "Error loading report data. Please try again."

// ErrIncompleteParams is returned by Load when the parameters cannot produce a
// report yet.
var ErrIncompleteParams = errors.New("report parameters incomplete")

// Params are the top-level report parameters. Changing any of them discards
// loaded data, expansion state and the fetch cache.
type Params struct {
	Tab       Tab       `json:"tab"`
	View      View      `json:"view,omitempty"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end,omitzero"`
	GroupID   ID        `json:"groupId,omitempty"`
	ProjectID ID        `json:"projectId,omitempty"`
	LotNo     string    `json:"lotNo,omitempty"`
}

// DefaultParams opens the process production summary for today.
func DefaultParams(today time.Time) Params {
	return Params{Tab: TabProcessProduction, View: ViewSummary, Start: truncateDay(today)}
}

// DefaultView returns the view a tab opens with.
func DefaultView(tab Tab) View {
	if tab == TabPending {
		return ""
	}
	return ViewSummary
}

// ParseTab validates a raw tab value.
func ParseTab(raw string) (Tab, error) {
	switch t := Tab(raw); t {
	case TabProcessProduction, TabPending, TabGroupProduction:
		return t, nil
	}
	return "", fmt.Errorf("unknown tab %q", raw)
}

// ParseView validates a raw view value against the tab.
func ParseView(tab Tab, raw string) (View, error) {
	v := View(raw)
	switch tab {
	case TabProcessProduction:
		if v == ViewSummary || v == ViewDetails || v == ViewGroupDetails {
			return v, nil
		}
	case TabGroupProduction:
		if v == ViewSummary || v == "" {
			return ViewSummary, nil
		}
	case TabPending:
		return "", nil
	}
	return "", fmt.Errorf("view %q not available on tab %q", raw, tab)
}

// Validate reports whether the parameters are complete enough to load.
func (p Params) Validate() error {
	if p.Tab == TabPending {
		if p.GroupID == "" || p.ProjectID == "" || p.LotNo == "" {
			return fmt.Errorf("%w: select a group, project and lot", ErrIncompleteParams)
		}
		return nil
	}
	if p.Start.IsZero() {
		return fmt.Errorf("%w: select a start date", ErrIncompleteParams)
	}
	if !p.End.IsZero() && p.End.Before(p.Start) {
		return fmt.Errorf("%w: end date before start date", ErrIncompleteParams)
	}
	return nil
}

// Expandable reports whether rows at level have children in this view.
func (p Params) Expandable(level Level) bool {
	switch {
	case p.Tab == TabProcessProduction && p.View == ViewDetails:
		return level == LevelProcess
	case p.Tab == TabProcessProduction && p.View == ViewGroupDetails:
		return level == LevelProcess || level == LevelGroup || level == LevelProject
	case p.Tab == TabPending:
		return level == LevelProcess
	}
	return false
}

// DetailView reports whether exports of this view carry the full tree.
func (p Params) DetailView() bool {
	return p.Expandable(LevelProcess) && p.Tab != TabPending
}

// DateRangeLabel renders the parameters' date range for display.
func (p Params) DateRangeLabel() string { return DateRangeLabel(p.Start, p.End) }

// ViewState is the whole state of one report screen. It is never mutated in
// place; Reduce returns the next value.
type ViewState struct {
	Params    Params           `json:"params"`
	Summaries []Summary        `json:"summaries,omitempty"`
	Pending   []PendingProcess `json:"pending,omitempty"`
	Mode      CatchMode        `json:"mode"`
	Sort      SortSpec         `json:"sort"`
	Epoch     uint64           `json:"epoch"`
	ShowData  bool             `json:"showData"`
	Error     string           `json:"error,omitempty"`
}

// NewViewState returns the initial state for params.
func NewViewState(params Params) ViewState {
	return ViewState{Params: params, Sort: DefaultSort(), Epoch: 1}
}

// Action is a user or loader event applied through Reduce.
type Action interface {
	action()
}

type (
	// TabChanged switches tabs and resets the date range to Today.
	TabChanged struct {
		Tab   Tab
		Today time.Time
	}
	// ParamsChanged replaces the date range and view.
	ParamsChanged struct {
		View  View
		Start time.Time
		End   time.Time
	}
	// PendingFilterChanged replaces the pending tab's group/project/lot.
	PendingFilterChanged struct {
		GroupID   ID
		ProjectID ID
		LotNo     string
	}
	// DataLoaded carries summaries fetched for Epoch.
	DataLoaded struct {
		Epoch     uint64
		Summaries []Summary
	}
	// PendingLoaded carries pending processes fetched for Epoch.
	PendingLoaded struct {
		Epoch     uint64
		Processes []PendingProcess
		Mode      CatchMode
	}
	// LoadFailed reports a failed top-level fetch for Epoch.
	LoadFailed struct {
		Epoch uint64
		Err   error
	}
	// SortClicked is a click on a pending column header.
	SortClicked struct {
		Column SortColumn
	}
)

func (TabChanged) action()           {}
func (ParamsChanged) action()        {}
func (PendingFilterChanged) action() {}
func (DataLoaded) action()           {}
func (PendingLoaded) action()        {}
func (LoadFailed) action()           {}
func (SortClicked) action()          {}

// Reduce applies a to s. Every parameter change goes through reset, which is
// the only place data is cleared and the epoch moves.
func Reduce(s ViewState, a Action) ViewState {
	switch a := a.(type) {
	case TabChanged:
		if a.Tab == s.Params.Tab {
			return s
		}
		return reset(s, Params{Tab: a.Tab, View: DefaultView(a.Tab), Start: truncateDay(a.Today)})
	case ParamsChanged:
		p := s.Params
		if a.View != "" {
			p.View = a.View
		}
		p.Start = truncateDay(a.Start)
		p.End = truncateDay(a.End)
		if p == s.Params {
			return s
		}
		return reset(s, p)
	case PendingFilterChanged:
		p := s.Params
		p.GroupID, p.ProjectID, p.LotNo = a.GroupID, a.ProjectID, a.LotNo
		if p == s.Params {
			return s
		}
		return reset(s, p)
	case DataLoaded:
		if a.Epoch != s.Epoch {
			return s
		}
		s.Summaries = a.Summaries
		s.Pending = nil
		s.ShowData = true
		s.Error = ""
		return s
	case PendingLoaded:
		if a.Epoch != s.Epoch {
			return s
		}
		s.Summaries = PendingSummaries(a.Processes)
		s.Pending = a.Processes
		s.Mode = a.Mode
		s.ShowData = true
		s.Error = ""
		return s
	case LoadFailed:
		if a.Epoch != s.Epoch {
			return s
		}
		s.Summaries = nil
		s.Pending = nil
		s.ShowData = false
		s.Error = LoadErrorMessage
		return s
	case SortClicked:
		s.Sort = s.Sort.Click(a.Column)
		return s
	}
	return s
}

func reset(s ViewState, p Params) ViewState {
	return ViewState{Params: p, Sort: DefaultSort(), Epoch: s.Epoch + 1}
}

// PendingSummaries turns pending processes into expandable process rows. The
// per-process totals live in the matrix header, so the rows carry no counts;
// the pending project rows fetched below them do.
func PendingSummaries(processes []PendingProcess) []Summary {
	out := make([]Summary, 0, len(processes))
	for _, p := range processes {
		out = append(out, Summary{
			Path:           ProcessPath(p.ProcessID),
			Name:           p.Name,
			IsTotal:        p.ProcessID.IsTotal(),
			LastActivityAt: p.LastActivityAt,
		})
	}
	return out
}

// Matrix builds the pending matrix for the current mode and sort.
func (s ViewState) Matrix() PendingMatrix {
	return BuildPendingMatrix(s.Pending, s.Mode, s.Sort)
}

// Loader performs the top-level report fetches.
type Loader interface {
	LoadSummaries(ctx context.Context, params Params) ([]Summary, error)
	LoadPending(ctx context.Context, params Params) ([]PendingProcess, CatchMode, error)
}

// Session is one user's report screen: the view state plus its tree store.
// Dispatch is serialized; loads and fetches run without holding the lock.
type Session struct {
	ID string

	mu    sync.Mutex
	state ViewState
	tree  *TreeStore
}

// NewSession binds a fresh view state for params to tree.
func NewSession(id string, params Params, tree *TreeStore) *Session {
	state := NewViewState(params)
	tree.Reset(params, state.Epoch)
	return &Session{ID: id, state: state, tree: tree}
}

func (s *Session) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Tree() *TreeStore { return s.tree }

// Dispatch reduces a into the session state. When the epoch moves the tree
// store is reset; when data lands its process rows become the tree roots.
func (s *Session) Dispatch(a Action) ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	s.state = Reduce(prev, a)
	if s.state.Epoch != prev.Epoch {
		s.tree.Reset(s.state.Params, s.state.Epoch)
	}
	switch a.(type) {
	case DataLoaded, PendingLoaded:
		if s.state.ShowData && s.state.Epoch == prev.Epoch {
			s.tree.SetRoots(s.state.Summaries)
		}
	}
	return s.state
}

// Load runs the top-level fetch for the current parameters and dispatches the
// outcome. A load that finishes after the parameters changed is dropped.
func (s *Session) Load(ctx context.Context, l Loader) error {
	st := s.State()
	if err := st.Params.Validate(); err != nil {
		return err
	}
	if st.Params.Tab == TabPending {
		processes, mode, err := l.LoadPending(ctx, st.Params)
		if err != nil {
			s.Dispatch(LoadFailed{Epoch: st.Epoch, Err: err})
			return fmt.Errorf("load pending report: %w", err)
		}
		s.Dispatch(PendingLoaded{Epoch: st.Epoch, Processes: processes, Mode: mode})
		return nil
	}
	summaries, err := l.LoadSummaries(ctx, st.Params)
	if err != nil {
		s.Dispatch(LoadFailed{Epoch: st.Epoch, Err: err})
		return fmt.Errorf("load %s report: %w", st.Params.Tab, err)
	}
	s.Dispatch(DataLoaded{Epoch: st.Epoch, Summaries: OrderProcesses(summaries)})
	return nil
}

// Rows flattens the session's current data against its tree.
func (s *Session) Rows(opts Options) []Row {
	st := s.State()
	return Flatten(st.Summaries, s.tree.Snapshot(), opts)
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
