package chat

import (
	"fmt"
	"strings"
	"time"
)

// Control tokens exchanged during the login handshake. Every message in both
// directions travels as its own newline-terminated frame.
const (
	RequestUsername = "REQUEST_USERNAME"
	ValidUsername   = "VALID_USERNAME"
	InvalidUsername = "INVALID_USERNAME"
)

const (
	privatePrefix  = "CHAT_WITH_"
	colorMarker    = "_COLOR="
	userListPrefix = "CONNECTED_USERS: "

	// DefaultColor is assigned at registration until the client picks one.
	DefaultColor = "black"
)

// validColors mirrors the selector offered by the desktop client. Values
// arrive lower-cased on the wire; anything outside the set is rejected rather
// than stored verbatim.
var validColors = map[string]bool{
	"black":  true,
	"blue":   true,
	"red":    true,
	"green":  true,
	"yellow": true,
	"purple": true,
	"orange": true,
	"brown":  true,
	"cyan":   true,
}

func ValidColor(color string) bool { return validColors[color] }

// Decode classifies one inbound line from a session logged in as username.
// Rules apply in order: a line containing "<username>_COLOR=" is a color
// change whose value is everything after the first "=", a "CHAT_WITH_" prefix
// is a private chat addressed to the word following the prefix, and anything
// else is a broadcast chat body.
func Decode(username, line string) Directive {
	if strings.Contains(line, username+colorMarker) {
		_, value, _ := strings.Cut(line, "=")
		return Directive{Kind: DirectiveColor, Color: value}
	}
	if rest, ok := strings.CutPrefix(line, privatePrefix); ok {
		target, body, _ := strings.Cut(rest, " ")
		return Directive{Kind: DirectivePrivate, Target: target, Body: body}
	}
	return Directive{Kind: DirectiveBroadcast, Body: line}
}

// EncodeBroadcast renders a chat line destined for every client.
func EncodeBroadcast(color, username, body string, at time.Time) string {
	return color + "_" + Timestamp(at) + " " + username + ": " + body + "\n"
}

// EncodePrivate renders a private chat line, delivered to the target and
// echoed back to the sender.
func EncodePrivate(color, username, target, body string, at time.Time) string {
	return color + "_" + Timestamp(at) + " " + username + " (To: " + target + "): " + body + "\n"
}

// EncodeUserList renders the connected-users listing: names space-separated
// in join order with a trailing space. Names never contain spaces; that is
// enforced at registration.
func EncodeUserList(names []string) string {
	var b strings.Builder
	b.WriteString(userListPrefix)
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(' ')
	}
	return b.String()
}

// Join and leave notices carry no color prefix so clients can recognize and
// style them apart from ordinary chat.
func EncodeJoinNotice(username string) string {
	return username + " has joined the chat.\n"
}

func EncodeLeaveNotice(username string) string {
	return username + " has left the chat.\n"
}

func EncodeJoinConfirmation(username string) string {
	return "Connected to chat as " + username + "\n"
}

// Timestamp renders the 12-hour wall-clock tag, e.g. "[2:30:05PM]". The hour
// carries no leading zero and hour zero is shown as 12.
func Timestamp(at time.Time) string {
	h, m, s := at.Clock()
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("[%d:%02d:%02d%s]", h, m, s, suffix)
}
