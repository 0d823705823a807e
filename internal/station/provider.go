// Package station implements the charging-station domain: the remote fetch
// client, wire-to-domain mapping, and the refresh orchestrator that ties
// location, reachability, lifecycle, and the periodic timer into one
// station stream with cache fallback.
package station

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/SkrapecMateja/ChargingStations/internal/cache"
	"github.com/SkrapecMateja/ChargingStations/internal/geo"
	"github.com/SkrapecMateja/ChargingStations/internal/location"
	"github.com/SkrapecMateja/ChargingStations/internal/models"
	"github.com/SkrapecMateja/ChargingStations/internal/reachability"
	"github.com/SkrapecMateja/ChargingStations/internal/stream"
)

// Result is one publication on the stations stream: either a station batch
// (possibly served from cache) or a classified error.
type Result struct {
	Stations []models.Station
	Err      error
}

// Provider owns the refresh loop. All timer scheduling and refresh state
// lives on a single event-loop goroutine; triggers from any goroutine are
// posted onto its queue, fetch and cache I/O run on worker goroutines and
// report back through the same queue.
type Provider struct {
	repo     cache.Repository
	fetcher  Fetcher
	source   location.Source
	monitor  reachability.Monitor
	calc     geo.BoundingBoxCalculator
	interval time.Duration
	radiusKm float64
	logger   zerolog.Logger

	stations *stream.CachedLatest[Result]
	updates  *stream.CachedLatest[time.Time]

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	events  chan event
	unsubs  []func()
}

type ProviderOptions struct {
	Repository cache.Repository
	Fetcher    Fetcher
	Location   location.Source
	// Reachability is optional; without it the loop relies on the timer
	// to recover from outages.
	Reachability reachability.Monitor
	// UpdateInterval between timer ticks. Default 10s.
	UpdateInterval time.Duration
	// SearchRadiusKm around the resolved location. Default 1 km.
	SearchRadiusKm float64
	Logger         zerolog.Logger
}

func NewProvider(opts ProviderOptions) *Provider {
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 10 * time.Second
	}
	if opts.SearchRadiusKm == 0 {
		opts.SearchRadiusKm = 1.0
	}

	return &Provider{
		repo:     opts.Repository,
		fetcher:  opts.Fetcher,
		source:   opts.Location,
		monitor:  opts.Reachability,
		interval: opts.UpdateInterval,
		radiusKm: opts.SearchRadiusKm,
		logger:   opts.Logger,
		stations: stream.NewCachedLatest[Result](8),
		updates:  stream.NewCachedLatest[time.Time](8),
	}
}

type eventKind int

const (
	evStart eventKind = iota
	evLocation
	evNetwork
	evForeground
	evBackground
	evResult
)

type event struct {
	kind  eventKind
	coord *models.Coordinate
	res   *cycleResult
}

type cycleResult struct {
	gen      uint64
	cycleID  string
	stations []models.Station
	err      error
	resolved models.Coordinate
	// updatedAt is set only after the repository confirmed this cycle's
	// write; it is what advances the last-update stream.
	updatedAt *time.Time
	// cachedAt carries the previously persisted timestamp on a cache
	// fallback.
	cachedAt  *time.Time
	fromCache bool
}

// Start begins producing updates. Idempotent: a running provider is
// cancelled and restarted.
func (p *Provider) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelLocked()

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan event, 32)
	done := make(chan struct{})

	p.cancel = cancel
	p.events = events
	p.done = done

	p.unsubs = append(p.unsubs[:0], p.source.Subscribe(func(c models.Coordinate) {
		postEvent(ctx, events, event{kind: evLocation, coord: &c})
	}))
	if p.monitor != nil {
		p.unsubs = append(p.unsubs, p.monitor.Subscribe(func() {
			postEvent(ctx, events, event{kind: evNetwork})
		}))
	}

	go p.run(ctx, events, done)
	postEvent(ctx, events, event{kind: evStart})
}

// Cancel stops all pending work: the timer is invalidated, upstream
// subscriptions are released, and results of any in-flight fetch are
// discarded. Safe to call repeatedly.
func (p *Provider) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
}

func (p *Provider) cancelLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	for _, unsub := range p.unsubs {
		unsub()
	}
	p.unsubs = p.unsubs[:0]
	p.cancel = nil
	p.events = nil
	p.done = nil
}

// EnterBackground pauses the timer while keeping subscriptions alive, so no
// fetches burn network while the surface is hidden.
func (p *Provider) EnterBackground() {
	p.send(event{kind: evBackground})
}

// EnterForeground resumes refreshing from the last resolved location.
func (p *Provider) EnterForeground() {
	p.send(event{kind: evForeground})
}

func (p *Provider) send(ev event) {
	p.mu.Lock()
	events := p.events
	p.mu.Unlock()

	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
		p.logger.Warn().Msg("event queue full, dropping trigger")
	}
}

func postEvent(ctx context.Context, events chan<- event, ev event) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

// Stations returns the hot result stream. Subscribers see publications from
// this moment on; nothing is replayed.
func (p *Provider) Stations() (<-chan Result, func()) {
	return p.stations.Subscribe()
}

// LastUpdates streams confirmed cache-write timestamps.
func (p *Provider) LastUpdates() (<-chan time.Time, func()) {
	return p.updates.Subscribe()
}

// Latest returns the most recent publication, if any. This is the explicit
// replay-last surface for snapshot consumers.
func (p *Provider) Latest() (Result, bool) {
	return p.stations.Latest()
}

// LastUpdate returns the most recent confirmed update time, falling back to
// the persisted value when nothing was published this session.
func (p *Provider) LastUpdate(ctx context.Context) (*time.Time, error) {
	if t, ok := p.updates.Latest(); ok {
		return &t, nil
	}
	return p.repo.LastUpdated(ctx)
}

// Close cancels the provider and terminates its streams.
func (p *Provider) Close() {
	p.Cancel()
	p.stations.Close()
	p.updates.Close()
}

func (p *Provider) run(ctx context.Context, events chan event, done chan struct{}) {
	defer close(done)

	var (
		gen          uint64
		timer        *time.Timer
		timerC       <-chan time.Time
		lastResolved *models.Coordinate
		background   bool
	)

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}
	defer stopTimer()

	beginCycle := func(trigger string, fresh *models.Coordinate) {
		gen++
		cycleID := uuid.NewString()

		stopTimer()
		timer = time.NewTimer(p.interval)
		timerC = timer.C

		p.logger.Debug().
			Str("cycle_id", cycleID).
			Str("trigger", trigger).
			Uint64("generation", gen).
			Msg("starting fetch cycle")

		go p.runCycle(ctx, events, gen, cycleID, fresh)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-timerC:
			beginCycle("timer", lastResolved)

		case ev := <-events:
			switch ev.kind {
			case evStart:
				background = false
				beginCycle("start", nil)

			case evLocation:
				lastResolved = ev.coord
				if background {
					continue
				}
				beginCycle("location", ev.coord)

			case evNetwork:
				if background {
					continue
				}
				beginCycle("reachability", nil)

			case evForeground:
				background = false
				beginCycle("foreground", nil)

			case evBackground:
				background = true
				stopTimer()

			case evResult:
				res := ev.res
				if res.gen != gen {
					p.logger.Debug().
						Str("cycle_id", res.cycleID).
						Uint64("generation", res.gen).
						Uint64("current_generation", gen).
						Msg("discarding stale cycle result")
					continue
				}

				if res.err != nil {
					p.logger.Warn().Str("cycle_id", res.cycleID).Err(res.err).Msg("fetch cycle failed")
					if errors.Is(res.err, ErrLocationUnavailable) {
						// Ticking again cannot succeed until a
						// location trigger arrives.
						stopTimer()
					}
					p.stations.Publish(Result{Err: res.err})
					continue
				}

				resolved := res.resolved
				lastResolved = &resolved

				p.stations.Publish(Result{Stations: res.stations})
				switch {
				case res.updatedAt != nil:
					p.updates.Publish(*res.updatedAt)
				case res.cachedAt != nil:
					p.updates.Publish(*res.cachedAt)
				}
			}
		}
	}
}

func (p *Provider) runCycle(ctx context.Context, events chan<- event, gen uint64, cycleID string, fresh *models.Coordinate) {
	res := p.executeCycle(ctx, cycleID, fresh)
	res.gen = gen
	res.cycleID = cycleID

	select {
	case events <- event{kind: evResult, res: &res}:
	case <-ctx.Done():
		// Cancelled mid-flight; the result is dropped.
	}
}

func (p *Provider) executeCycle(ctx context.Context, cycleID string, fresh *models.Coordinate) cycleResult {
	coord, ok := p.resolveLocation(ctx, fresh)
	if !ok {
		return cycleResult{err: ErrLocationUnavailable}
	}

	box := p.calc.Compute(coord, p.radiusKm)

	raws, err := p.fetcher.FetchStations(ctx, box)
	if err != nil {
		if errors.Is(err, ErrNetworkUnavailable) {
			return p.cycleFromCache(ctx, cycleID, coord)
		}
		if !errors.Is(err, ErrServiceUnavailable) {
			// Fetchers outside this package may return raw errors;
			// they classify as service failures here, once.
			err = fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
		}
		return cycleResult{err: err, resolved: coord}
	}

	stations := MapStations(raws)
	SortByMaxPower(stations)

	res := cycleResult{stations: stations, resolved: coord}

	if err := p.repo.SaveStations(ctx, stations); err != nil {
		// The fresh batch is still published this session; only the
		// visible freshness marker stays put.
		p.logger.Error().
			Str("cycle_id", cycleID).
			Err(fmt.Errorf("%w: %w", ErrCacheWriteFailed, err)).
			Msg("station cache write failed")
		return res
	}

	now := time.Now()
	if err := p.repo.SaveLastUpdated(ctx, now); err != nil {
		p.logger.Error().
			Str("cycle_id", cycleID).
			Err(fmt.Errorf("%w: %w", ErrCacheWriteFailed, err)).
			Msg("last-updated write failed")
		return res
	}
	if err := p.repo.SaveLastLocation(ctx, coord); err != nil {
		p.logger.Warn().Str("cycle_id", cycleID).Err(err).Msg("last-location write failed")
	}

	res.updatedAt = &now
	return res
}

func (p *Provider) cycleFromCache(ctx context.Context, cycleID string, coord models.Coordinate) cycleResult {
	stations, err := p.repo.LoadStations(ctx)
	if err != nil {
		return cycleResult{
			err:       fmt.Errorf("%w: %w", ErrCacheReadFailed, err),
			resolved:  coord,
			fromCache: true,
		}
	}

	cachedAt, err := p.repo.LastUpdated(ctx)
	if err != nil {
		p.logger.Warn().Str("cycle_id", cycleID).Err(err).Msg("cached timestamp read failed")
		cachedAt = nil
	}

	p.logger.Info().
		Str("cycle_id", cycleID).
		Int("station_count", len(stations)).
		Msg("network unavailable, serving stations from cache")

	return cycleResult{
		stations:  stations,
		resolved:  coord,
		cachedAt:  cachedAt,
		fromCache: true,
	}
}

// resolveLocation walks the fallback chain: the trigger's own fix, the live
// source, then the persisted last-known location.
func (p *Provider) resolveLocation(ctx context.Context, fresh *models.Coordinate) (models.Coordinate, bool) {
	if fresh != nil {
		return *fresh, true
	}
	if c, ok := p.source.Current(); ok {
		return c, true
	}
	c, err := p.repo.LastKnownLocation(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("last-known location read failed")
		return models.Coordinate{}, false
	}
	if c == nil {
		return models.Coordinate{}, false
	}
	return *c, true
}
