package chat

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"
)

// startSession wires a net.Pipe through HandleSession and returns the client
// side of the pipe with a line reader on it.
func startSession(t *testing.T, r *Registry) (net.Conn, *bufio.Reader) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })
	_ = client.SetDeadline(time.Now().Add(3 * time.Second))

	c := &Client{Conn: server, Out: make(chan string, 64)}
	go HandleSession(c, r.Events())

	return client, bufio.NewReader(client)
}

func readFrame(t *testing.T, br *bufio.Reader) string {
	t.Helper()
	line, err := br.ReadString('\n')
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return strings.TrimRight(line, "\n")
}

func readFrameContaining(t *testing.T, br *bufio.Reader, substr string) string {
	t.Helper()
	for i := 0; i < 50; i++ {
		if line := readFrame(t, br); strings.Contains(line, substr) {
			return line
		}
	}
	t.Fatalf("no frame containing %q", substr)
	return ""
}

func writeFrame(t *testing.T, conn net.Conn, line string) {
	t.Helper()
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func TestSession_HandshakeThenBroadcast(t *testing.T) {
	r := newTestRegistry(t)

	conn, br := startSession(t, r)

	if got := readFrame(t, br); got != RequestUsername {
		t.Fatalf("expected username request, got %q", got)
	}
	writeFrame(t, conn, "alice")

	want := []string{
		ValidUsername,
		"Connected to chat as alice",
		"alice has joined the chat.",
		"CONNECTED_USERS: alice ",
	}
	for i, w := range want {
		if got := readFrame(t, br); got != w {
			t.Fatalf("handshake frame %d: got %q, want %q", i, got, w)
		}
	}

	writeFrame(t, conn, "hello everyone")
	line := readFrame(t, br)
	if !strings.HasPrefix(line, "black_") || !strings.HasSuffix(line, " alice: hello everyone") {
		t.Fatalf("unexpected broadcast line: %q", line)
	}
}

func TestSession_DuplicateNameRetries(t *testing.T) {
	r := newTestRegistry(t)

	conn1, br1 := startSession(t, r)
	readFrame(t, br1) // REQUEST_USERNAME
	writeFrame(t, conn1, "alice")
	if got := readFrame(t, br1); got != ValidUsername {
		t.Fatalf("first login: got %q", got)
	}

	conn2, br2 := startSession(t, r)
	readFrame(t, br2) // REQUEST_USERNAME
	writeFrame(t, conn2, "alice")
	if got := readFrame(t, br2); got != InvalidUsername {
		t.Fatalf("expected rejection, got %q", got)
	}
	writeFrame(t, conn2, "bob")
	if got := readFrame(t, br2); got != ValidUsername {
		t.Fatalf("retry login: got %q", got)
	}

	if got := r.Names(); !equalNames(got, []string{"alice", "bob"}) {
		t.Fatalf("unexpected snapshot: %v", got)
	}
}

func TestSession_EmptyNameCancelsLogin(t *testing.T) {
	r := newTestRegistry(t)

	conn, br := startSession(t, r)
	readFrame(t, br) // REQUEST_USERNAME
	writeFrame(t, conn, "")

	// The session closes without registering.
	if _, err := br.ReadString('\n'); err == nil {
		t.Fatal("expected closed connection after cancel")
	}
	if got := r.Names(); len(got) != 0 {
		t.Fatalf("expected empty registry, got %v", got)
	}
}

func TestSession_DisconnectBroadcastsLeave(t *testing.T) {
	r := newTestRegistry(t)

	conn1, br1 := startSession(t, r)
	readFrame(t, br1)
	writeFrame(t, conn1, "alice")
	readFrameContaining(t, br1, "CONNECTED_USERS: alice ")

	conn2, br2 := startSession(t, r)
	readFrame(t, br2)
	writeFrame(t, conn2, "bob")
	readFrameContaining(t, br2, "CONNECTED_USERS: alice bob ")

	_ = conn2.Close()

	// The refreshed user list goes out first, then the leave notice.
	for i := 0; ; i++ {
		if i == 50 {
			t.Fatal("no user list refresh after disconnect")
		}
		if readFrame(t, br1) == "CONNECTED_USERS: alice " {
			break
		}
	}
	if got := readFrame(t, br1); got != "bob has left the chat." {
		t.Fatalf("unexpected leave notice: %q", got)
	}
}

func TestSession_PrivateChatEchoesToSender(t *testing.T) {
	r := newTestRegistry(t)

	conn1, br1 := startSession(t, r)
	readFrame(t, br1)
	writeFrame(t, conn1, "alice")
	readFrameContaining(t, br1, "CONNECTED_USERS: alice ")

	conn2, br2 := startSession(t, r)
	readFrame(t, br2)
	writeFrame(t, conn2, "bob")
	readFrameContaining(t, br2, "CONNECTED_USERS: alice bob ")

	writeFrame(t, conn1, "CHAT_WITH_bob hello there")

	got := readFrameContaining(t, br2, "(To: bob): hello there")
	if !strings.Contains(got, " alice (To: bob): hello there") {
		t.Fatalf("unexpected private line: %q", got)
	}
	readFrameContaining(t, br1, "(To: bob): hello there")
}
