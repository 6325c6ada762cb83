// Package transport holds helpers shared by the TCP and WebSocket transports.
package transport

import (
	"context"
	"strings"
	"time"
)

// DefaultConnectTimeout bounds a connection attempt when no timeout is set.
const DefaultConnectTimeout = 3 * time.Second

// aLongTimeAgo is a deadline that has always already passed.
var aLongTimeAgo = time.Unix(1, 0)

// InterruptOnDone makes a blocked read or write return as soon as ctx is
// done by moving the I/O deadline into the past. The returned stop function
// must be called once the I/O finished.
func InterruptOnDone(ctx context.Context, setDeadline func(time.Time) error) (stop func() bool) {
	if ctx.Done() == nil {
		return func() bool { return true }
	}
	return context.AfterFunc(ctx, func() {
		_ = setDeadline(aLongTimeAgo)
	})
}

// TrimLine strips the line terminator, tolerating CRLF.
func TrimLine(line string) string {
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
}
