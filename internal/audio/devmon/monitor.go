package devmon

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"carillon/internal/config"
	"carillon/internal/logging"
)

// Event is a sound device appearing or disappearing.
type Event struct {
	Action string
	Device string
}

// Removed reports whether the device went away.
func (e Event) Removed() bool {
	return e.Action == string(netlink.REMOVE)
}

// Monitor listens for udev sound events and forwards them to a handler.
type Monitor struct {
	logger  *slog.Logger
	handler func(Event)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
	events  int
	removed int
}

// New returns a monitor, or nil when cfg disables device monitoring. All
// methods are safe on a nil monitor.
func New(cfg *config.Config, logger *slog.Logger, handler func(Event)) *Monitor {
	if cfg == nil || !cfg.Device.Monitor {
		return nil
	}
	return &Monitor{
		logger:  logging.NewComponentLogger(logger, "devmon"),
		handler: handler,
	}
}

// Start connects to the kernel netlink socket. A connection failure is
// logged and ignored; the performance simply runs unmonitored.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; device changes will go unnoticed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "devmon_connect_failed"),
			logging.String(logging.FieldErrorHint, "netlink sockets may be unavailable in containers"),
			logging.String(logging.FieldImpact, "output device removal is detected only by sink errors"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, conn, quit)

	m.logger.Debug("device monitor started",
		logging.String(logging.FieldEventType, "devmon_started"),
	)
	return nil
}

// Stop shuts the monitor down. Safe to call more than once.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	close(m.quit)
	m.quit = nil
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Debug("device monitor stopped",
		logging.String(logging.FieldEventType, "devmon_stopped"),
		logging.Int("events", m.events),
	)
}

// Running reports whether the monitor is connected.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// RemovedCount reports how many sound devices disappeared while monitored.
func (m *Monitor) RemovedCount() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removed
}

func (m *Monitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("device monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "devmon_error"),
				logging.String(logging.FieldImpact, "device changes may be missed"),
			)
		}
	}
}

// buildMatcher matches sound card add and remove events.
func buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "sound",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(uevent netlink.UEvent) {
	device := deviceName(uevent)
	if device == "" {
		m.logger.Debug("ignoring sound event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}
	event := Event{Action: string(uevent.Action), Device: device}

	m.mu.Lock()
	m.events++
	if event.Removed() {
		m.removed++
	}
	m.mu.Unlock()

	if event.Removed() {
		logging.WarnWithContext(m.logger, "sound device removed during performance", "devmon_device_removed",
			logging.String("device", device),
			logging.String(logging.FieldErrorHint, "reconnect the output device and replay the score"),
			logging.String(logging.FieldImpact, "remaining notes may be silent or fail"),
		)
	} else {
		m.logger.Info("sound device added",
			logging.String(logging.FieldEventType, "devmon_device_added"),
			logging.String("device", device),
		)
	}

	if m.handler != nil {
		m.handler(event)
	}
}

// deviceName prefers DEVNAME and falls back to the last DEVPATH element.
func deviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		return devname
	}
	devpath := strings.TrimRight(uevent.Env["DEVPATH"], "/")
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return parts[len(parts)-1]
}
