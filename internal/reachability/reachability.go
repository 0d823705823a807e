// Package reachability watches for the network coming back so the refresh
// orchestrator can retry immediately instead of waiting for the next tick.
package reachability

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Monitor emits an edge event when connectivity becomes available. The
// signal carries no payload and only fires on down-to-up transitions.
type Monitor interface {
	Subscribe(fn func()) (cancel func())
}

// DialFunc dials the probe target; injectable for tests.
type DialFunc func(ctx context.Context, network, addr string) error

// ProbeMonitor establishes reachability by periodically dialing a
// well-known address.
type ProbeMonitor struct {
	addr     string
	interval time.Duration
	dial     DialFunc
	logger   zerolog.Logger

	mu     sync.Mutex
	online bool
	known  bool
	subs   map[uint64]func()
	nextID uint64

	cancelRun context.CancelFunc
	done      chan struct{}
}

type ProbeOptions struct {
	// Addr is the host:port the probe dials, e.g. "1.1.1.1:443".
	Addr string
	// Interval between probes. Default 5s.
	Interval time.Duration
	// Dial overrides the TCP dial, for tests.
	Dial   DialFunc
	Logger zerolog.Logger
}

func NewProbeMonitor(opts ProbeOptions) *ProbeMonitor {
	if opts.Interval == 0 {
		opts.Interval = 5 * time.Second
	}
	dial := opts.Dial
	if dial == nil {
		dial = func(ctx context.Context, network, addr string) error {
			var d net.Dialer
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return err
			}
			return conn.Close()
		}
	}
	return &ProbeMonitor{
		addr:     opts.Addr,
		interval: opts.Interval,
		dial:     dial,
		logger:   opts.Logger,
		subs:     make(map[uint64]func()),
	}
}

// Start begins probing until ctx is done or Close is called.
func (m *ProbeMonitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancelRun != nil {
		m.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancelRun = cancel
	m.done = done
	m.mu.Unlock()

	go m.run(runCtx, done)
}

// Close stops probing. Subscriptions survive a Close/Start cycle.
func (m *ProbeMonitor) Close() {
	m.mu.Lock()
	cancel := m.cancelRun
	done := m.done
	m.cancelRun = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (m *ProbeMonitor) Subscribe(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
		})
	}
}

func (m *ProbeMonitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *ProbeMonitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	err := m.dial(probeCtx, "tcp", m.addr)
	online := err == nil

	m.mu.Lock()
	wasOnline, known := m.online, m.known
	m.online, m.known = online, true
	var fns []func()
	if online && (!known || !wasOnline) {
		fns = make([]func(), 0, len(m.subs))
		for _, fn := range m.subs {
			fns = append(fns, fn)
		}
	}
	m.mu.Unlock()

	if len(fns) > 0 {
		m.logger.Info().Str("probe_addr", m.addr).Msg("network became available")
		for _, fn := range fns {
			fn()
		}
	}
}
