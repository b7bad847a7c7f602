package mcp

import (
	"context"
	"log"
	"os"
	"time"
)

// WatchParent monitors for parent process death in a background
// goroutine and calls cancel when it's detected. The MCP client
// (an editor extension host, a CI runner) owns the server's lifetime;
// if it dies without a clean shutdown, this stops the server from
// becoming a zombie.
//
// It never reads stdin: StdioTransport owns stdin exclusively, and
// stealing bytes here would corrupt the JSON-RPC stream.
func WatchParent(ctx context.Context, cancel context.CancelFunc) {
	ppid := os.Getppid()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
				if os.Getppid() != ppid {
					log.Printf("[mcp] parent process died (was pid %d), shutting down", ppid)
					cancel()
					return
				}
			}
		}
	}()
}
