package guide

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"
)

// Handoff delivers a written guide document to a local consumer.
type Handoff interface {
	Deliver(ctx context.Context, guidePath string) error
}

// SocketHandoff streams the document's bytes into a unix socket, the way
// tvheadend's xmltv.sock grabber expects.
type SocketHandoff struct {
	socketPath string
	timeout    time.Duration
}

// NewSocketHandoff creates a SocketHandoff for the given socket path.
func NewSocketHandoff(socketPath string, timeout time.Duration) *SocketHandoff {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SocketHandoff{socketPath: socketPath, timeout: timeout}
}

// Deliver copies the document into the socket. Failures leave the written
// file untouched; the caller logs and moves on.
func (h *SocketHandoff) Deliver(ctx context.Context, guidePath string) error {
	file, err := os.Open(guidePath)
	if err != nil {
		return fmt.Errorf("opening guide document: %w", err)
	}
	defer file.Close()

	dialer := net.Dialer{Timeout: h.timeout}
	conn, err := dialer.DialContext(ctx, "unix", h.socketPath)
	if err != nil {
		return fmt.Errorf("connecting to hand-off socket: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	} else {
		_ = conn.SetWriteDeadline(time.Now().Add(h.timeout))
	}

	if _, err := io.Copy(conn, file); err != nil {
		return fmt.Errorf("streaming guide document: %w", err)
	}
	return nil
}
