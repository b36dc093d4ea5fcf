package scdash

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	browserKey = "browser"

	// maxPendingMounts bounds the unredeemed mounts kept per browser; the
	// oldest are forgotten first.
	maxPendingMounts = 8

	defaultMountTTL = 10 * time.Minute
)

type pendingMount struct {
	token  string
	issued time.Time
}

// mountStore keeps the outstanding mount tokens in memory, grouped by the
// browser id held in the cookie session. Each token can be redeemed once,
// so every mount triggers at most one backend fetch.
//
// The session cookie only carries the browser id and is written once, when
// the id is minted. Responses from overlapping tabs therefore never carry
// stale token lists that could overwrite each other.
type mountStore struct {
	mu      sync.Mutex
	pending map[string][]pendingMount
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

func newMountStore(ttl time.Duration) *mountStore {
	m := &mountStore{
		pending: make(map[string][]pendingMount),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go m.cleanup()
	return m
}

func (m *mountStore) Issue(c echo.Context) (string, error) {
	browser, err := browserID(c, true)
	if err != nil {
		return "", err
	}
	token := uuid.NewString()
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	list := append(m.live(m.pending[browser], now), pendingMount{token: token, issued: now})
	if len(list) > maxPendingMounts {
		list = list[len(list)-maxPendingMounts:]
	}
	m.pending[browser] = list
	return token, nil
}

func (m *mountStore) Consume(c echo.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	browser, err := browserID(c, false)
	if err != nil || browser == "" {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.live(m.pending[browser], time.Now())
	i := slices.IndexFunc(list, func(p pendingMount) bool { return p.token == token })
	if i < 0 {
		m.store(browser, list)
		return false, nil
	}
	m.store(browser, slices.Delete(list, i, i+1))
	return true, nil
}

// Close stops the cleanup goroutine.
func (m *mountStore) Close() {
	m.once.Do(func() { close(m.stop) })
}

func (m *mountStore) cleanup() {
	ticker := time.NewTicker(m.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for browser, list := range m.pending {
				m.store(browser, m.live(list, now))
			}
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

// live drops expired mounts. Callers hold m.mu.
func (m *mountStore) live(list []pendingMount, now time.Time) []pendingMount {
	cutoff := now.Add(-m.ttl)
	return slices.DeleteFunc(list, func(p pendingMount) bool { return !p.issued.After(cutoff) })
}

// store replaces a browser's pending list. Callers hold m.mu.
func (m *mountStore) store(browser string, list []pendingMount) {
	if len(list) == 0 {
		delete(m.pending, browser)
		return
	}
	m.pending[browser] = list
}

// browserID returns the id that ties mounts to one browser. With create set,
// a browser without one gets a fresh id saved in its session.
func browserID(c echo.Context, create bool) (string, error) {
	sess, err := loadSession(c)
	if err != nil {
		return "", err
	}
	if id, ok := sess.Values[browserKey].(string); ok && id != "" {
		return id, nil
	}
	if !create {
		return "", nil
	}
	id := uuid.NewString()
	sess.Values[browserKey] = id
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return id, nil
}

// loadSession returns the dashboard session. A cookie that no longer
// decodes, e.g. after a secret rotation, is replaced by a fresh session.
func loadSession(c echo.Context) (*sessions.Session, error) {
	sess, err := session.Get(sessionName, c)
	if sess == nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if err != nil {
		c.Logger().Warnf("replacing unreadable session: %v", err)
	}
	return sess, nil
}
