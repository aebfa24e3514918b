package chat

import (
	"log/slog"
	"strings"
	"time"
)

const maxNameLen = 32

// roster is the shared session state: the name→client map, the join-order
// name list backing user listings and fan-out iteration, and the replay
// buffer. It lives entirely inside the Run goroutine.
type roster struct {
	clients map[string]*Client
	order   []string
	history History
}

type Registry struct {
	events chan Event
	stopCh chan struct{}
	doneCh chan struct{}
	logger *slog.Logger
	now    func() time.Time
}

func NewRegistry(buffer int, logger *slog.Logger) *Registry {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		events: make(chan Event, buffer),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		logger: logger,
		now:    time.Now,
	}
}

func (r *Registry) Events() chan<- Event {
	return r.events
}

// Stop signals the Run loop to exit.
func (r *Registry) Stop() {
	close(r.stopCh)
}

// Wait blocks until the Run loop has completely finished.
func (r *Registry) Wait() {
	<-r.doneCh
}

// Names returns the currently registered usernames in join order.
func (r *Registry) Names() []string {
	reply := make(chan []string, 1)
	r.events <- Event{Type: EventNames, NamesReply: reply}
	return <-reply
}

func (r *Registry) Run() {
	defer close(r.doneCh)
	// Single-writer ownership: all session state is touched only here.
	st := &roster{clients: make(map[string]*Client)}

	for {
		select {
		case ev := <-r.events:
			start := time.Now()
			eventType := ""

			switch ev.Type {
			case EventRegister:
				eventType = "register"
				r.handleRegister(st, ev)
				ConnectedClients.Set(float64(len(st.clients)))
			case EventUnregister:
				eventType = "unregister"
				r.handleUnregister(st, ev)
				ConnectedClients.Set(float64(len(st.clients)))
			case EventBroadcast:
				eventType = "broadcast"
				r.handleBroadcast(st, ev)
			case EventPrivate:
				eventType = "private"
				r.handlePrivate(st, ev)
			case EventColor:
				eventType = "color"
				r.handleColor(st, ev)
			case EventNames:
				eventType = "names"
				r.handleNames(st, ev)
			}

			EventsTotal.WithLabelValues(eventType).Inc()
			EventProcessingDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
		case <-r.stopCh:
			return
		}
	}
}

func (r *Registry) handleRegister(st *roster, ev Event) {
	defer func() {
		// ReplyChan is only used for register.
		if ev.ReplyChan != nil {
			close(ev.ReplyChan)
		}
	}()

	username := ev.Username
	if username == "" || len(username) > maxNameLen || strings.ContainsAny(username, " \t") {
		// Spaces would break the user-list encoding, so they are rejected
		// here rather than escaped on the wire.
		if ev.ReplyChan != nil {
			ev.ReplyChan <- ErrNameInvalid
		}
		return
	}
	if _, exists := st.clients[username]; exists {
		if ev.ReplyChan != nil {
			ev.ReplyChan <- ErrNameTaken
		}
		return
	}

	ev.Client.Username = username
	ev.Client.Color = DefaultColor
	st.clients[username] = ev.Client
	st.order = append(st.order, username)

	r.logger.Info("user registered", "username", username, "session", ev.Client.ID)

	// Handshake tail runs inside the event loop so the new client sees a
	// consistent history snapshot and every client sees the same join order.
	r.send(ev.Client, ValidUsername)
	for _, line := range st.history.Lines() {
		r.send(ev.Client, line)
	}
	r.send(ev.Client, EncodeJoinConfirmation(username))
	r.broadcast(st, EncodeJoinNotice(username))
	r.broadcastTransient(st, EncodeUserList(st.order))

	if ev.ReplyChan != nil {
		ev.ReplyChan <- nil
	}
}

func (r *Registry) handleUnregister(st *roster, ev Event) {
	if ev.Client == nil || ev.Client.Username == "" {
		return
	}
	username := ev.Client.Username
	if _, ok := st.clients[username]; !ok {
		// Double-disconnect race; already removed.
		return
	}
	delete(st.clients, username)
	for i, name := range st.order {
		if name == username {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}

	r.logger.Info("user left", "username", username, "session", ev.Client.ID)

	// Closing Out stops the writer goroutine gracefully.
	close(ev.Client.Out)
	r.broadcastTransient(st, EncodeUserList(st.order))
	r.broadcast(st, EncodeLeaveNotice(username))
}

func (r *Registry) handleColor(st *roster, ev Event) {
	if ev.Client == nil || ev.Client.Username == "" {
		return
	}
	c, ok := st.clients[ev.Client.Username]
	if !ok {
		// Color change racing a disconnect; benign.
		return
	}
	if !ValidColor(ev.Color) {
		r.logger.Warn("rejected color change", "username", c.Username, "color", ev.Color)
		return
	}
	c.Color = ev.Color
}

func (r *Registry) handleNames(st *roster, ev Event) {
	if ev.NamesReply == nil {
		return
	}
	names := make([]string, len(st.order))
	copy(names, st.order)
	ev.NamesReply <- names
}
