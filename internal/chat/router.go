package chat

// Delivery handlers for chat traffic. Like the rest of the roster mutations
// they run only inside the registry's Run goroutine, so a fan-out always
// iterates a consistent join-order snapshot.

func (r *Registry) handleBroadcast(st *roster, ev Event) {
	if ev.Client == nil || ev.Client.Username == "" {
		return
	}
	sender, ok := st.clients[ev.Client.Username]
	if !ok || ev.Text == "" {
		return
	}
	r.broadcast(st, EncodeBroadcast(sender.Color, sender.Username, ev.Text, r.now()))
}

func (r *Registry) handlePrivate(st *roster, ev Event) {
	if ev.Client == nil || ev.Client.Username == "" {
		return
	}
	sender, ok := st.clients[ev.Client.Username]
	if !ok {
		return
	}
	target, ok := st.clients[ev.To]
	if !ok {
		// The target may have left between the sender's last user-list
		// refresh and this send. Tell the sender instead of dropping the
		// message on the floor.
		r.logger.Info("private message to unknown recipient", "from", sender.Username, "to", ev.To)
		r.send(sender, ev.To+" is not connected.\n")
		return
	}

	line := EncodePrivate(sender.Color, sender.Username, ev.To, ev.Text, r.now())
	r.send(target, line)
	// Sender-side echo so the sender's UI shows the outgoing message.
	r.send(sender, line)
}

// broadcast fans line out to every connected client in join order, then
// records it for replay to future logins.
func (r *Registry) broadcast(st *roster, line string) {
	for _, name := range st.order {
		r.send(st.clients[name], line)
	}
	st.history.Append(line)
}

// broadcastTransient fans line out without recording it. User-list refreshes
// are point-in-time and must not resurface from history replay.
func (r *Registry) broadcastTransient(st *roster, line string) {
	for _, name := range st.order {
		r.send(st.clients[name], line)
	}
}

func (r *Registry) send(c *Client, line string) {
	// One failed recipient must not abort a fan-out; the drop is logged and
	// counted, never propagated.
	if !sendFrame(c, line) {
		r.logger.Warn("dropped frame for slow client", "username", c.Username)
	}
}
