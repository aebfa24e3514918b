package chat

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/time/rate"
)

// Active sessions refill at messageRate frames per second with a burst of
// messageBurst, so one spamming client cannot monopolize the registry loop.
const (
	messageRate  = rate.Limit(10)
	messageBurst = 20
)

// HandleSession owns one accepted connection from handshake to disconnect:
// AwaitingName until the registry accepts a unique display name, then the
// active receive loop until a read fails, then unregister and close.
func HandleSession(c *Client, events chan<- Event) {
	defer func() {
		_ = c.Conn.Close()
	}()

	StartOutboundWriter(c.Conn, c.Out)

	reader := bufio.NewReader(c.Conn)

	sendFrame(c, RequestUsername)
	registered := false
	defer func() {
		if !registered {
			// The registry closes Out at unregister; before registration the
			// session still owns it and must release the writer itself.
			close(c.Out)
		}
	}()

	for {
		username, err := readLine(reader)
		if err != nil {
			return
		}
		if username == "" {
			// Client cancelled the login prompt.
			return
		}

		reply := make(chan error, 1)
		events <- Event{
			Type:      EventRegister,
			Client:    c,
			Username:  username,
			ReplyChan: reply,
		}
		if regErr := <-reply; regErr != nil {
			sendFrame(c, InvalidUsername)
			continue
		}
		registered = true
		break
	}

	limiter := rate.NewLimiter(messageRate, messageBurst)

	for {
		line, err := readLine(reader)
		if err != nil {
			events <- Event{Type: EventUnregister, Client: c}
			return
		}
		if line == "" {
			continue
		}
		if !limiter.Allow() {
			// Shed the frame without disconnecting; the session survives.
			continue
		}

		switch d := Decode(c.Username, line); d.Kind {
		case DirectiveColor:
			events <- Event{Type: EventColor, Client: c, Color: d.Color}
		case DirectivePrivate:
			events <- Event{Type: EventPrivate, Client: c, To: d.Target, Text: d.Body}
		default:
			events <- Event{Type: EventBroadcast, Client: c, Text: d.Body}
		}
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err == nil {
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF && line != "" {
		// last line without newline
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF {
		return "", io.EOF
	}
	return "", fmt.Errorf("read: %w", err)
}
