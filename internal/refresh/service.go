package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"openhours/internal/database"
	"openhours/internal/events"
	"openhours/internal/hours"
	"openhours/internal/metrics"
)

// ErrNotLoaded is returned by read paths before any schedule is available.
var ErrNotLoaded = errors.New("schedule not loaded")

// Source yields raw opening-hours documents.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

// Store persists normalized schedule snapshots.
type Store interface {
	SaveSchedule(ctx context.Context, source string, s hours.Schedule, fetchedAt time.Time) (string, error)
	LatestSchedule(ctx context.Context, source string) (*database.StoredSchedule, error)
	PruneSchedules(ctx context.Context, source string, keep int) (int64, error)
}

// Publisher delivers domain events.
type Publisher interface {
	Publish(event events.Event) error
}

// Options tune the service.
type Options struct {
	Name             string
	DefaultOffset    int
	KeepHistory      int
	RefreshInterval  time.Duration
	EvaluateInterval time.Duration
}

// Service owns the current schedule for one business. It refreshes it from a
// source and evaluates the live status on a tick.
type Service struct {
	source     Source
	store      Store
	bus        Publisher
	normalizer *hours.Normalizer
	logger     *zerolog.Logger
	opts       Options
	now        func() time.Time

	mu         sync.RWMutex
	schedule   hours.Schedule
	scheduleID string
	fetchedAt  time.Time
	loaded     bool

	evalMu   sync.Mutex
	lastKind hours.StatusKind
}

// NewService constructs a service. store and bus may be nil.
func NewService(source Source, store Store, bus Publisher, opts Options, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.Name == "" {
		opts.Name = source.Name()
	}
	if opts.KeepHistory <= 0 {
		opts.KeepHistory = 30
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = time.Hour
	}
	if opts.EvaluateInterval <= 0 {
		opts.EvaluateInterval = 30 * time.Second
	}
	return &Service{
		source:     source,
		store:      store,
		bus:        bus,
		normalizer: hours.NewNormalizer(logger),
		logger:     logger,
		opts:       opts,
		now:        time.Now,
	}
}

// Name identifies the business the service tracks.
func (s *Service) Name() string {
	return s.opts.Name
}

// Start loads the initial schedule. A failed fetch falls back to the latest
// stored snapshot.
func (s *Service) Start(ctx context.Context) error {
	err := s.Refresh(ctx)
	if err == nil {
		return nil
	}
	s.logger.Warn().Err(err).Str("source", s.opts.Name).Msg("Initial refresh failed, restoring stored schedule")

	if restoreErr := s.Restore(ctx); restoreErr != nil {
		return errors.Join(err, restoreErr)
	}
	return nil
}

// Refresh fetches, normalizes, persists and swaps in a new schedule.
func (s *Service) Refresh(ctx context.Context) error {
	data, err := s.source.Fetch(ctx)
	if err != nil {
		metrics.IncFetch("error")
		return fmt.Errorf("fetch %s: %w", s.opts.Name, err)
	}
	return s.Load(ctx, data)
}

// Load applies a raw document that was obtained outside of Refresh.
func (s *Service) Load(ctx context.Context, data []byte) error {
	doc, err := hours.ParseDocument(data)
	if err != nil {
		metrics.IncFetch("invalid")
		return err
	}

	schedule := s.normalizer.Normalize(doc)
	metrics.AddSkipped("periods", schedule.Skipped.Periods)
	metrics.AddSkipped("overrides", schedule.Skipped.Overrides)

	fetchedAt := s.now()
	var id string
	if s.store != nil {
		id, err = s.store.SaveSchedule(ctx, s.opts.Name, schedule, fetchedAt)
		if err != nil {
			// The new schedule is still usable in memory.
			s.logger.Error().Err(err).Msg("Failed to persist schedule")
		} else if pruned, err := s.store.PruneSchedules(ctx, s.opts.Name, s.opts.KeepHistory); err != nil {
			s.logger.Error().Err(err).Msg("Failed to prune schedules")
		} else if pruned > 0 {
			s.logger.Debug().Int64("pruned", pruned).Msg("Pruned old schedules")
		}
	}

	s.swap(schedule, id, fetchedAt, false)
	metrics.IncFetch("ok")
	return nil
}

// Restore swaps in the latest stored snapshot.
func (s *Service) Restore(ctx context.Context) error {
	if s.store == nil {
		return ErrNotLoaded
	}
	stored, err := s.store.LatestSchedule(ctx, s.opts.Name)
	if err != nil {
		return fmt.Errorf("restore schedule: %w", err)
	}
	s.swap(stored.Schedule, stored.ID, stored.FetchedAt, true)
	return nil
}

func (s *Service) swap(schedule hours.Schedule, id string, fetchedAt time.Time, fromStore bool) {
	s.mu.Lock()
	s.schedule = schedule
	s.scheduleID = id
	s.fetchedAt = fetchedAt
	s.loaded = true
	s.mu.Unlock()

	s.logger.Info().
		Str("source", s.opts.Name).
		Str("schedule_id", id).
		Int("periods", len(schedule.Periods)).
		Int("special_days", len(schedule.Overrides)).
		Int("skipped_periods", schedule.Skipped.Periods).
		Int("skipped_overrides", schedule.Skipped.Overrides).
		Bool("from_store", fromStore).
		Msg("Schedule updated")

	s.publish(events.Event{
		Type: events.TypeScheduleRefreshed,
		Payload: events.ScheduleRefreshed{
			Source:      s.opts.Name,
			ScheduleID:  id,
			Periods:     len(schedule.Periods),
			SpecialDays: len(schedule.Overrides),
			Skipped:     schedule.Skipped,
			FromStore:   fromStore,
			FetchedAt:   fetchedAt,
		},
	})
}

// Ready reports whether a schedule is loaded.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Schedule returns the current schedule and when it was fetched.
func (s *Service) Schedule() (hours.Schedule, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return hours.Schedule{}, time.Time{}, ErrNotLoaded
	}
	return s.schedule, s.fetchedAt, nil
}

// Resolve returns the open intervals for an arbitrary local calendar date.
func (s *Service) Resolve(date time.Time) (hours.DayResolution, error) {
	schedule, _, err := s.Schedule()
	if err != nil {
		return hours.DayResolution{}, err
	}
	return hours.ResolveDate(schedule, date), nil
}

// Location returns the fixed zone the current schedule is evaluated in.
func (s *Service) Location() *time.Location {
	s.mu.RLock()
	offset := s.schedule.Offset(s.opts.DefaultOffset)
	s.mu.RUnlock()
	return hours.Zone(offset)
}

// LocalNow returns the current time in the schedule's zone.
func (s *Service) LocalNow() time.Time {
	return s.now().In(s.Location())
}

// Evaluate computes today's, tomorrow's and the live status at the current
// time. A status.changed event is published when the kind differs from the
// previous evaluation; the status itself never depends on history.
func (s *Service) Evaluate() (hours.Evaluation, error) {
	schedule, _, err := s.Schedule()
	if err != nil {
		return hours.Evaluation{}, err
	}

	// Concurrent callers (the tick loop and the HTTP API) are serialized from
	// reading the clock through publishing, so transitions are reported in
	// clock order.
	s.evalMu.Lock()
	defer s.evalMu.Unlock()

	eval := hours.Evaluate(schedule, s.now(), s.opts.DefaultOffset)
	metrics.IncEvaluation(string(eval.Status.Kind))
	metrics.SetOpen(eval.Status.IsOpen())

	previous := s.lastKind
	s.lastKind = eval.Status.Kind
	if previous != eval.Status.Kind {
		s.logger.Info().
			Str("source", s.opts.Name).
			Str("previous", string(previous)).
			Str("status", string(eval.Status.Kind)).
			Str("date", eval.Today.Date).
			Msg("Status changed")
		s.publish(events.Event{
			Type: events.TypeStatusChanged,
			Payload: events.StatusChanged{
				Source:   s.opts.Name,
				Previous: previous,
				Current:  eval.Status,
				Date:     eval.Today.Date,
				At:       eval.LocalNow,
			},
		})
	}
	return eval, nil
}

// Run evaluates on every evaluate tick and refreshes on every refresh tick
// until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	evaluate := time.NewTicker(s.opts.EvaluateInterval)
	defer evaluate.Stop()
	refresh := time.NewTicker(s.opts.RefreshInterval)
	defer refresh.Stop()

	s.tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-evaluate.C:
			s.tick()
		case <-refresh.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Scheduled refresh failed, keeping current schedule")
				continue
			}
			s.tick()
		}
	}
}

func (s *Service) tick() {
	if _, err := s.Evaluate(); err != nil && !errors.Is(err, ErrNotLoaded) {
		s.logger.Error().Err(err).Msg("Evaluation failed")
	}
}

func (s *Service) publish(event events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(event); err != nil {
		s.logger.Error().Err(err).Str("event", event.Type).Msg("Event handler failed")
	}
}
