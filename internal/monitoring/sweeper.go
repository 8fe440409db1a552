package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/manuscript-be/internal/services"
	"github.com/isdelr/manuscript-be/internal/storage"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// OrphanSweeper removes stored blobs that no manuscript references. Blobs
// younger than the grace period are left alone so uploads whose record is
// still being written are never touched.
type OrphanSweeper struct {
	blobs         storage.Store
	manuscriptSvc services.ManuscriptServiceProvider
	eventSvc      services.EventServiceProvider
	grace         time.Duration
	now           func() time.Time

	cron    *cron.Cron
	running sync.Mutex
}

// NewOrphanSweeper creates a sweeper that runs on the given cron schedule
// (standard five-field syntax or descriptors such as "@every 1h").
func NewOrphanSweeper(schedule string, grace time.Duration, blobs storage.Store, manuscriptSvc services.ManuscriptServiceProvider, eventSvc services.EventServiceProvider) (*OrphanSweeper, error) {
	s := &OrphanSweeper{
		blobs:         blobs,
		manuscriptSvc: manuscriptSvc,
		eventSvc:      eventSvc,
		grace:         grace,
		now:           time.Now,
		cron:          cron.New(),
	}
	if _, err := s.cron.AddFunc(schedule, s.runScheduled); err != nil {
		return nil, fmt.Errorf("invalid orphan sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running sweeps in the background.
func (s *OrphanSweeper) Start() {
	log.Info().Msg("Starting orphan blob sweeper...")
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *OrphanSweeper) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped orphan blob sweeper.")
}

func (s *OrphanSweeper) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if _, err := s.Sweep(ctx); err != nil {
		log.Error().Err(err).Msg("Orphan sweep failed")
	}
}

// Sweep performs one reconciliation pass and returns the removed blob names.
func (s *OrphanSweeper) Sweep(ctx context.Context) ([]string, error) {
	if !s.running.TryLock() {
		log.Debug().Msg("Orphan sweep already in progress, skipping")
		return nil, nil
	}
	defer s.running.Unlock()

	// List blobs before loading references; a blob written in between is
	// protected by the grace period.
	names, err := s.blobs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	referenced, err := s.manuscriptSvc.ReferencedFileNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("load referenced blobs: %w", err)
	}

	cutoff := s.now().Add(-s.grace)
	var removed []string
	for _, name := range names {
		if _, ok := referenced[name]; ok {
			continue
		}
		stored, ok := storage.NameTime(name)
		if !ok || stored.After(cutoff) {
			continue
		}
		if err := s.blobs.Remove(ctx, name); err != nil {
			log.Warn().Err(err).Str("file_name", name).Msg("Failed to remove orphaned blob")
			continue
		}
		removed = append(removed, name)
		log.Info().Str("file_name", name).Msg("Removed orphaned blob")
		if s.eventSvc != nil {
			msg := fmt.Sprintf("Removed orphaned file %s", name)
			if err := s.eventSvc.CreateEvent(ctx, services.EventOrphanBlobRemoved, "info", msg, nil); err != nil {
				log.Error().Err(err).Msg("Failed to record orphan removal event")
			}
		}
	}
	return removed, nil
}
