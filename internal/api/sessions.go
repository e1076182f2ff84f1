package api

import (
	"log/slog"
	"time"

	"github.com/Veraticus/spice-capture/internal/capture"
	"github.com/Veraticus/spice-capture/internal/metrics"
	"github.com/patrickmn/go-cache"
)

type sessionEntry struct {
	session *capture.Session
	mic     *uploadMicrophone
}

// sessionRegistry holds open sessions with a sliding expiry. Sessions are
// closed when they expire or are removed.
type sessionRegistry struct {
	items   *cache.Cache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func newSessionRegistry(ttl time.Duration, m *metrics.Metrics, logger *slog.Logger) *sessionRegistry {
	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}
	r := &sessionRegistry{
		items:   cache.New(ttl, cleanup),
		metrics: m,
		logger:  logger,
	}
	r.items.OnEvicted(r.evicted)
	return r
}

func (r *sessionRegistry) add(e *sessionEntry) {
	r.items.Set(e.session.ID(), e, cache.DefaultExpiration)
	if r.metrics != nil {
		r.metrics.SessionOpened()
	}
}

// get returns the session and pushes its expiry forward.
func (r *sessionRegistry) get(id string) (*sessionEntry, bool) {
	v, ok := r.items.Get(id)
	if !ok {
		return nil, false
	}
	e, ok := v.(*sessionEntry)
	if !ok {
		return nil, false
	}
	_ = r.items.Replace(id, e, cache.DefaultExpiration)
	return e, true
}

func (r *sessionRegistry) remove(id string) bool {
	if _, ok := r.items.Get(id); !ok {
		return false
	}
	r.items.Delete(id)
	return true
}

func (r *sessionRegistry) count() int {
	return r.items.ItemCount()
}

// closeAll closes every open session.
func (r *sessionRegistry) closeAll() {
	r.items.DeleteExpired()
	for id := range r.items.Items() {
		r.items.Delete(id)
	}
}

func (r *sessionRegistry) evicted(id string, v interface{}) {
	e, ok := v.(*sessionEntry)
	if !ok {
		return
	}
	_ = e.session.Close()
	if r.metrics != nil {
		r.metrics.SessionClosed()
	}
	r.logger.Debug("session closed", "session_id", id)
}
