package chat

import (
	"net"

	"github.com/google/uuid"
)

// Client is one connected peer. Conn is read by the session goroutine and
// written by the writer goroutine; Username and Color are assigned inside the
// registry loop at registration and only ever mutated there.
type Client struct {
	ID       uuid.UUID
	Conn     net.Conn
	Username string
	Color    string
	Out      chan string // outbound frames drained by the writer goroutine
}

type EventType int

const (
	EventRegister EventType = iota
	EventUnregister
	EventBroadcast
	EventPrivate
	EventColor
	EventNames
)

type Event struct {
	Type       EventType
	Client     *Client
	Username   string
	To         string
	Color      string
	Text       string
	ReplyChan  chan error    // used by register to ack success/failure
	NamesReply chan []string // used by names to return the join-order snapshot
}

// DirectiveKind classifies one decoded client message.
type DirectiveKind int

const (
	DirectiveBroadcast DirectiveKind = iota
	DirectiveColor
	DirectivePrivate
)

// Directive is the decoded form of one inbound line from an active session.
type Directive struct {
	Kind   DirectiveKind
	Color  string
	Target string
	Body   string
}

var (
	ErrNameTaken   = errorString("name_taken")
	ErrNameInvalid = errorString("name_invalid")
)

type errorString string

func (e errorString) Error() string { return string(e) }
