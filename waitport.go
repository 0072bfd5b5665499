package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// waitPortFree polls until the TCP port can be bound. It returns nil as soon
// as a probe bind succeeds, and an error when ctx expires first.
//
// The probe listener is closed immediately; there is still a window between
// the probe and the app's own bind, but nothing else in this tool binds the
// port in between.
func waitPortFree(ctx context.Context, port int, interval time.Duration) error {
	addr := net.JoinHostPort("", strconv.Itoa(port))

	for {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			ln.Close()
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("port %d still bound: %w", port, ctx.Err())
		case <-time.After(interval):
		}
	}
}
