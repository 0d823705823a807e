// Package location abstracts the coordinate source feeding the refresh
// orchestrator. Real position providers are platform services; this package
// specifies the contract and ships two in-process sources.
package location

import (
	"sync"

	"github.com/SkrapecMateja/ChargingStations/internal/models"
)

// AuthorizationState gates whether a source is expected to emit fixes.
type AuthorizationState int

const (
	// AuthorizationNotDetermined means the user has not answered yet; no
	// events flow.
	AuthorizationNotDetermined AuthorizationState = iota
	// AuthorizationGranted means the source emits coordinate updates.
	AuthorizationGranted
	// AuthorizationDenied collapses to "no location": Current reports
	// nothing and no further events are emitted.
	AuthorizationDenied
)

func (s AuthorizationState) String() string {
	switch s {
	case AuthorizationGranted:
		return "granted"
	case AuthorizationDenied:
		return "denied"
	default:
		return "notDetermined"
	}
}

// Source emits coordinate updates and exposes the most recent fix.
type Source interface {
	// Current returns the latest known fix, if any.
	Current() (models.Coordinate, bool)
	// Subscribe registers fn for future fixes and returns a cancel handle.
	Subscribe(fn func(models.Coordinate)) (cancel func())
}

// StaticSource always reports one fixed coordinate and never emits events.
type StaticSource struct {
	Coordinate models.Coordinate
}

func (s StaticSource) Current() (models.Coordinate, bool) {
	return s.Coordinate, true
}

func (s StaticSource) Subscribe(func(models.Coordinate)) func() {
	return func() {}
}

// ManualSource is a settable source with an authorization state machine in
// front of it. Fixes set while not granted are dropped; denial clears the
// current fix.
type ManualSource struct {
	mu      sync.Mutex
	state   AuthorizationState
	current *models.Coordinate
	subs    map[uint64]func(models.Coordinate)
	nextID  uint64
}

func NewManualSource() *ManualSource {
	return &ManualSource{
		state: AuthorizationNotDetermined,
		subs:  make(map[uint64]func(models.Coordinate)),
	}
}

// Grant authorizes the source. Denial is terminal: a denied source stays
// denied.
func (s *ManualSource) Grant() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == AuthorizationDenied {
		return
	}
	s.state = AuthorizationGranted
}

// Deny revokes authorization and drops the current fix.
func (s *ManualSource) Deny() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = AuthorizationDenied
	s.current = nil
}

func (s *ManualSource) Authorization() AuthorizationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Set records a new fix and notifies subscribers, provided the source is
// authorized.
func (s *ManualSource) Set(c models.Coordinate) {
	s.mu.Lock()
	if s.state != AuthorizationGranted {
		s.mu.Unlock()
		return
	}
	s.current = &c
	fns := make([]func(models.Coordinate), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	// Callbacks run outside the lock so a subscriber may call back in.
	for _, fn := range fns {
		fn(c)
	}
}

func (s *ManualSource) Current() (models.Coordinate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.Coordinate{}, false
	}
	return *s.current, true
}

func (s *ManualSource) Subscribe(fn func(models.Coordinate)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
		})
	}
}
