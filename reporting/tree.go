package reporting

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrNotExpandable is returned when a toggle targets a node the current view
// has no children for.
var ErrNotExpandable = errors.New("node is not expandable in this view")

// ErrUnknownNode is returned when a toggle targets a node that is not part of
// the loaded report.
var ErrUnknownNode = errors.New("node is not in the loaded report")

// DefaultFetchConcurrency bounds the fan-out of ExpandAll and LoadAll.
const DefaultFetchConcurrency = 8

// Fetcher loads the children of one node from the backend.
type Fetcher interface {
	FetchChildren(ctx context.Context, params Params, path NodePath) (Children, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, params Params, path NodePath) (Children, error)

func (f FetcherFunc) FetchChildren(ctx context.Context, params Params, path NodePath) (Children, error) {
	return f(ctx, params, path)
}

// TreeView is a read-only view of expansion state and fetched children.
type TreeView interface {
	IsExpanded(path NodePath) bool
	Children(path NodePath) (Children, bool)
	Expandable(level Level) bool
}

// TreeStore tracks expanded nodes and caches fetched children per node. It is
// safe for concurrent use; the lock is never held across a fetch.
type TreeStore struct {
	fetcher Fetcher
	limit   int
	logger  *slog.Logger
	flight  singleflight.Group

	mu        sync.Mutex
	params    Params
	epoch     uint64
	roots     []NodePath
	expansion ExpansionState
	cache     map[string]Children
}

// NewTreeStore creates a store that fetches through f with at most limit
// concurrent requests during bulk operations.
func NewTreeStore(f Fetcher, limit int, logger *slog.Logger) *TreeStore {
	if limit <= 0 {
		limit = DefaultFetchConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TreeStore{
		fetcher: f,
		limit:   limit,
		logger:  logger,
		cache:   make(map[string]Children),
	}
}

// Reset discards expansion state and every cached child collection and moves
// the store to a new request epoch. Responses for older epochs are dropped.
func (s *TreeStore) Reset(params Params, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = params
	s.epoch = epoch
	s.roots = nil
	s.expansion = ExpansionState{}
	s.cache = make(map[string]Children)
}

// SetRoots registers the top-level process rows of the loaded report. Total
// rows are not nodes and are skipped.
func (s *TreeStore) SetRoots(summaries []Summary) {
	roots := make([]NodePath, 0, len(summaries))
	for _, sm := range summaries {
		if sm.IsTotal {
			continue
		}
		roots = append(roots, sm.Path)
	}
	s.mu.Lock()
	s.roots = roots
	s.mu.Unlock()
}

func (s *TreeStore) IsExpanded(path NodePath) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expansion.IsExpanded(path)
}

// Toggle flips the node and returns its new state. Only nodes reachable from
// the roots through cached children can be toggled. Expanding a node whose
// children are not cached fetches them before returning. A failed fetch is
// logged and leaves the node expanded with no children.
func (s *TreeStore) Toggle(ctx context.Context, path NodePath) (bool, error) {
	s.mu.Lock()
	if !path.Valid() || !s.params.Expandable(path.Level) {
		s.mu.Unlock()
		return false, ErrNotExpandable
	}
	if !s.reachableLocked(path) {
		s.mu.Unlock()
		return false, ErrUnknownNode
	}
	if s.expansion.IsExpanded(path) {
		s.expansion = s.expansion.With(path, Collapsed)
		s.mu.Unlock()
		return false, nil
	}
	s.expansion = s.expansion.With(path, Expanded)
	_, cached := s.cache[path.Key()]
	epoch, params := s.epoch, s.params
	s.mu.Unlock()

	if !cached {
		s.fetch(ctx, epoch, params, path)
	}
	return true, nil
}

// ExpandAll expands every currently known node and fetches the children of
// each one that is not cached yet. Fetches run concurrently and the call
// returns only after all of them have settled; one failing node does not
// affect its siblings. Children discovered by this call stay collapsed until
// the next ExpandAll or an explicit toggle.
func (s *TreeStore) ExpandAll(ctx context.Context) error {
	s.mu.Lock()
	known := s.knownLocked()
	s.expansion = s.expansion.WithAll(known)
	missing := s.missingLocked(known)
	epoch, params := s.epoch, s.params
	s.mu.Unlock()

	return s.fetchAll(ctx, epoch, params, missing)
}

// CollapseAll closes every node. Cached children are kept.
func (s *TreeStore) CollapseAll() {
	s.mu.Lock()
	s.expansion = ExpansionState{}
	s.mu.Unlock()
}

// LoadAll fetches the whole tree without touching expansion state, level by
// level, so that detail exports can emit every node.
func (s *TreeStore) LoadAll(ctx context.Context) error {
	attempted := make(map[string]struct{})
	for {
		s.mu.Lock()
		known := s.knownLocked()
		missing := make([]NodePath, 0)
		for _, p := range s.missingLocked(known) {
			if _, done := attempted[p.Key()]; done {
				continue
			}
			attempted[p.Key()] = struct{}{}
			missing = append(missing, p)
		}
		epoch, params := s.epoch, s.params
		s.mu.Unlock()

		if len(missing) == 0 {
			return nil
		}
		if err := s.fetchAll(ctx, epoch, params, missing); err != nil {
			return err
		}
	}
}

// Snapshot returns an immutable view for flattening.
func (s *TreeStore) Snapshot() TreeView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return treeSnapshot{
		params:    s.params,
		expansion: s.expansion,
		cache:     maps.Clone(s.cache),
	}
}

// Epoch returns the store's current request epoch.
func (s *TreeStore) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *TreeStore) fetchAll(ctx context.Context, epoch uint64, params Params, paths []NodePath) error {
	if len(paths) == 0 {
		return nil
	}
	var g errgroup.Group
	g.SetLimit(s.limit)
	for _, p := range paths {
		g.Go(func() error {
			s.fetch(ctx, epoch, params, p)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// fetch loads and caches one node's children. Concurrent callers for the same
// node and epoch share a single request.
func (s *TreeStore) fetch(ctx context.Context, epoch uint64, params Params, path NodePath) {
	key := strconv.FormatUint(epoch, 10) + "|" + path.Key()
	_, err, _ := s.flight.Do(key, func() (any, error) {
		s.mu.Lock()
		if c, ok := s.cache[path.Key()]; ok && s.epoch == epoch {
			s.mu.Unlock()
			return c, nil
		}
		s.mu.Unlock()

		children, err := s.fetcher.FetchChildren(ctx, params, path)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.epoch != epoch {
			s.logger.Debug("discarding stale child fetch", slog.String("node", path.Key()), slog.Uint64("epoch", epoch))
			return children, nil
		}
		s.cache[path.Key()] = children
		return children, nil
	})
	if err != nil {
		s.logger.Error("fetch node children failed", slog.String("node", path.Key()), slog.Any("err", err))
	}
}

// knownLocked lists every expandable node reachable from the roots through
// cached children.
func (s *TreeStore) knownLocked() []NodePath {
	out := make([]NodePath, 0, len(s.roots))
	queue := append([]NodePath(nil), s.roots...)
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if !s.params.Expandable(p.Level) {
			continue
		}
		out = append(out, p)
		if c, ok := s.cache[p.Key()]; ok {
			for _, child := range c.Summaries {
				if !child.IsTotal {
					queue = append(queue, child.Path)
				}
			}
		}
	}
	return out
}

func (s *TreeStore) reachableLocked(path NodePath) bool {
	key := path.Key()
	for _, p := range s.knownLocked() {
		if p.Key() == key {
			return true
		}
	}
	return false
}

func (s *TreeStore) missingLocked(known []NodePath) []NodePath {
	out := make([]NodePath, 0)
	for _, p := range known {
		if _, ok := s.cache[p.Key()]; !ok {
			out = append(out, p)
		}
	}
	return out
}

type treeSnapshot struct {
	params    Params
	expansion ExpansionState
	cache     map[string]Children
}

func (t treeSnapshot) IsExpanded(path NodePath) bool { return t.expansion.IsExpanded(path) }

func (t treeSnapshot) Children(path NodePath) (Children, bool) {
	c, ok := t.cache[path.Key()]
	return c, ok
}

func (t treeSnapshot) Expandable(level Level) bool { return t.params.Expandable(level) }
