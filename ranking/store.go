package ranking

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Persistence boundary for profiles. The engine keeps working entirely in memory; a store only snapshots and restores it.
type ProfileStore interface {
	LoadProfiles(ctx context.Context) ([]Profile, error)
	SaveProfiles(ctx context.Context, profiles []Profile) error
}

type MemProfileStore struct {
	lk   sync.Mutex
	data map[string]Profile
	keys []string
}

func NewMemProfileStore() *MemProfileStore {
	return &MemProfileStore{data: make(map[string]Profile)}
}

func (s *MemProfileStore) LoadProfiles(ctx context.Context) ([]Profile, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	out := make([]Profile, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, s.data[k])
	}
	return out, nil
}

func (s *MemProfileStore) SaveProfiles(ctx context.Context, profiles []Profile) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	for _, p := range profiles {
		if _, ok := s.data[p.UserID]; !ok {
			s.keys = append(s.keys, p.UserID)
		}
		s.data[p.UserID] = p
	}
	return nil
}

// Periodically snapshots the engine's profiles into a store.
type SyncWorker struct {
	engine   *Engine
	store    ProfileStore
	interval time.Duration
	logger   *slog.Logger

	lk      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncWorker(e *Engine, store ProfileStore, interval time.Duration, logger *slog.Logger) *SyncWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncWorker{
		engine:   e,
		store:    store,
		interval: interval,
		logger:   logger.With("component", "ranking-sync"),
	}
}

// Loads stored profiles into the engine. Call before events start flowing.
func (w *SyncWorker) Restore(ctx context.Context) error {
	profiles, err := w.store.LoadProfiles(ctx)
	if err != nil {
		return err
	}
	w.engine.Restore(profiles, time.Now())
	w.logger.Info("restored ranking profiles", "count", len(profiles))
	return nil
}

func (w *SyncWorker) Start(ctx context.Context) {
	w.lk.Lock()
	defer w.lk.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.run(ctx)
	w.logger.Info("ranking sync worker started", "interval", w.interval)
}

// Stops the loop and writes one final snapshot.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.lk.Lock()
	if !w.running {
		w.lk.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.lk.Unlock()

	<-done
	return w.Flush(ctx)
}

func (w *SyncWorker) run(ctx context.Context) {
	defer close(w.doneCh)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if err := w.Flush(ctx); err != nil {
				w.logger.Error("failed to sync ranking profiles", "err", err)
			}
		}
	}
}

func (w *SyncWorker) Flush(ctx context.Context) error {
	start := time.Now()
	profiles := w.engine.Snapshot()
	if len(profiles) == 0 {
		return nil
	}
	if err := w.store.SaveProfiles(ctx, profiles); err != nil {
		return err
	}
	w.logger.Debug("synced ranking profiles", "count", len(profiles), "duration", time.Since(start))
	return nil
}
