package chat

import (
	"bufio"
	"net"
	"strings"
)

// sendFrame queues one frame for the client's writer goroutine without
// blocking the caller. A full buffer means the client is slow or wedged; the
// frame is dropped rather than stalling whoever is sending.
func sendFrame(c *Client, line string) bool {
	select {
	case c.Out <- line:
		return true
	default:
		DroppedFrames.Inc()
		return false
	}
}

func StartOutboundWriter(conn net.Conn, out <-chan string) {
	go func() {
		w := bufio.NewWriter(conn)
		for msg := range out {
			// Frames are newline-delimited. Encoded chat lines already carry
			// their terminator; control tokens and list frames do not.
			if !strings.HasSuffix(msg, "\n") {
				msg += "\n"
			}
			// Best-effort. If the connection breaks, just stop the writer.
			if _, err := w.WriteString(msg); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}()
}
