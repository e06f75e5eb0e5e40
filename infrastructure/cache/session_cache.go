package cache

import (
	"sync"
	"time"

	"dailyreport/reporting"
)

type sessionEntry struct {
	session  *reporting.Session
	lastSeen time.Time
}

// MaxViewSessions caps how many view sessions are held at once.
const MaxViewSessions = 10000

// ViewSessionCache stores report view sessions by cookie id.
type ViewSessionCache struct {
	mu       sync.RWMutex
	sessions map[string]sessionEntry
	limit    int
	now      func() time.Time
}

func NewViewSessionCache() *ViewSessionCache {
	return &ViewSessionCache{sessions: make(map[string]sessionEntry), limit: MaxViewSessions, now: time.Now}
}

// AddSession stores s. When the cache is full the least recently used
// session is evicted first.
func (c *ViewSessionCache) AddSession(s *reporting.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sessions[s.ID]; !ok && len(c.sessions) >= c.limit {
		c.evictOldestLocked()
	}
	c.sessions[s.ID] = sessionEntry{session: s, lastSeen: c.now()}
}

func (c *ViewSessionCache) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, e := range c.sessions {
		if oldestID == "" || e.lastSeen.Before(oldest) {
			oldestID, oldest = id, e.lastSeen
		}
	}
	delete(c.sessions, oldestID)
}

// FindSession returns the session for id and marks it as used.
func (c *ViewSessionCache) FindSession(id string) (*reporting.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = c.now()
	c.sessions[id] = e
	return e.session, true
}

func (c *ViewSessionCache) DeleteSession(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, id)
}

// Sweep drops sessions idle for longer than maxIdle and returns how many were
// removed.
func (c *ViewSessionCache) Sweep(maxIdle time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-maxIdle)
	removed := 0
	for id, e := range c.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(c.sessions, id)
			removed++
		}
	}
	return removed
}

func (c *ViewSessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}
