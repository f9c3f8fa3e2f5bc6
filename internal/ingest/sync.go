package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/AngelCh415/leadsync/internal/observability"
	"github.com/AngelCh415/leadsync/internal/store"
)

// Exporter is anything that can produce the raw export text.
type Exporter interface {
	Fetch(ctx context.Context) (string, error)
}

// Source is the fetch collaborator the pipeline reads from: it serves the last
// export while it is younger than ttl and otherwise goes upstream, collapsing
// concurrent misses into one request. Fetch failures are returned as is; a
// stale snapshot is never served in place of an error.
type Source struct {
	up      Exporter
	st      *store.MemoryStore
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
	log     *zap.Logger
	obs     *observability.Collectors
	group   singleflight.Group
}

const defaultFetchTimeout = 30 * time.Second

type SourceOption func(*Source)

func WithSourceClock(now func() time.Time) SourceOption {
	return func(s *Source) { s.now = now }
}

// WithFetchTimeout bounds one shared upstream fetch, independent of callers.
func WithFetchTimeout(d time.Duration) SourceOption {
	return func(s *Source) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithCollectors(obs *observability.Collectors) SourceOption {
	return func(s *Source) { s.obs = obs }
}

func NewSource(up Exporter, st *store.MemoryStore, ttl time.Duration, log *zap.Logger, opts ...SourceOption) *Source {
	s := &Source{up: up, st: st, ttl: ttl, timeout: defaultFetchTimeout, now: time.Now, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export returns the cached snapshot when fresh, fetching otherwise.
func (s *Source) Export(ctx context.Context) (store.Snapshot, error) {
	if snap, ok := s.st.Fresh(s.now(), s.ttl); ok {
		s.obs.CacheLookup(true)
		return snap, nil
	}
	s.obs.CacheLookup(false)
	return s.Refresh(ctx)
}

// Refresh always goes upstream. Concurrent callers share one fetch, which
// runs detached from any single caller and is bounded by the fetch timeout;
// a caller whose ctx ends stops waiting without failing the others.
func (s *Source) Refresh(ctx context.Context) (store.Snapshot, error) {
	ch := s.group.DoChan("export", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		start := s.now()
		raw, err := s.up.Fetch(fetchCtx)
		s.obs.ObserveFetch(s.now().Sub(start), err)
		if err != nil {
			s.log.Error("export fetch failed", zap.Error(err))
			return store.Snapshot{}, err
		}
		snap, changed := s.st.Put(raw, s.now())
		s.log.Debug("export fetched",
			zap.Int("bytes", len(raw)),
			zap.Int("version", snap.Version),
			zap.Bool("changed", changed))
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return store.Snapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return store.Snapshot{}, res.Err
		}
		return res.Val.(store.Snapshot), nil
	}
}

// Latest returns whatever snapshot is held, fresh or not.
func (s *Source) Latest() (store.Snapshot, bool) { return s.st.Latest() }
