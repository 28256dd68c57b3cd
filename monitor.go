package griddeck

import (
	"sort"
	"sync"
	"time"

	retry "github.com/avast/retry-go/v4"
	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
)

// Monitor polls a Manager for deck attach and detach.
type Monitor struct {
	mgr      *Manager
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger

	mu       sync.Mutex
	running  bool
	stop     chan struct{}
	stopOnce *sync.Once
	done     chan struct{}
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithInterval sets the polling cadence.
func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithMonitorTimeout bounds how long the monitor polls before stopping
// itself. Zero keeps it running until Stop.
func WithMonitorTimeout(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.timeout = d }
}

// WithMonitorLogger attaches a logger.
func WithMonitorLogger(log *zap.Logger) MonitorOption {
	return func(m *Monitor) {
		if log != nil {
			m.log = log
		}
	}
}

// NewMonitor builds a monitor polling the manager's transport once per
// interval (default one second).
func NewMonitor(mgr *Manager, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		mgr:      mgr,
		interval: time.Second,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the polling goroutine. onConnect receives a closed
// handle for every newly attached deck; onDisconnect receives the path of
// every departed one. Within a cycle detaches are reported before
// attaches, each in ascending path order.
func (m *Monitor) Start(onConnect func(*Device), onDisconnect func(path string)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrMonitorRunning
	}
	m.running = true
	m.stop = make(chan struct{})
	m.stopOnce = &sync.Once{}
	m.done = make(chan struct{})

	go m.loop(m.stop, m.done, onConnect, onDisconnect)
	return nil
}

// Stop requests termination and waits for the polling goroutine to exit.
// A no-op when the monitor is not running; safe to call concurrently.
func (m *Monitor) Stop() {
	m.mu.Lock()
	stopOnce, stop, done := m.stopOnce, m.stop, m.done
	m.mu.Unlock()

	if stopOnce == nil {
		return
	}
	stopOnce.Do(func() { close(stop) })
	<-done
}

// Running reports whether the polling goroutine is alive.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Done returns the channel closed when the current polling goroutine
// exits. Nil before the first Start.
func (m *Monitor) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

func (m *Monitor) loop(stop <-chan struct{}, done chan struct{}, onConnect func(*Device), onDisconnect func(path string)) {
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var expire <-chan time.Time
	if m.timeout > 0 {
		timer := time.NewTimer(m.timeout)
		defer timer.Stop()
		expire = timer.C
	}

	known := mapset.NewSet[string]()
	m.scan(known, onConnect, onDisconnect)

	for {
		select {
		case <-stop:
			return
		case <-expire:
			m.log.Debug("monitor timeout reached")
			return
		case <-ticker.C:
			m.scan(known, onConnect, onDisconnect)
		}
	}
}

// scan diffs the attached path set against the previous cycle and fires
// the callbacks for the deltas.
func (m *Monitor) scan(known mapset.Set[string], onConnect func(*Device), onDisconnect func(path string)) {
	var devices []*Device
	err := retry.Do(
		func() error {
			var err error
			devices, err = m.mgr.Enumerate()
			return err
		},
		retry.Attempts(3),
		retry.Delay(10*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		m.log.Warn("enumeration failed", zap.Error(err))
		return
	}

	current := mapset.NewSet[string]()
	byPath := make(map[string]*Device, len(devices))
	for _, d := range devices {
		current.Add(d.ID())
		byPath[d.ID()] = d
	}

	gone := known.Difference(current).ToSlice()
	sort.Strings(gone)
	for _, path := range gone {
		known.Remove(path)
		m.log.Info("deck detached", zap.String("path", path))
		if onDisconnect != nil {
			p := path
			m.invoke(func() { onDisconnect(p) })
		}
	}

	added := current.Difference(known).ToSlice()
	sort.Strings(added)
	for _, path := range added {
		known.Add(path)
		m.log.Info("deck attached", zap.String("path", path))
		if onConnect != nil {
			d := byPath[path]
			m.invoke(func() { onConnect(d) })
		}
	}
}

// invoke shields the poll loop from a panicking callback.
func (m *Monitor) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("monitor callback panicked", zap.Any("panic", r))
		}
	}()
	fn()
}
