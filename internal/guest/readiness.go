package guest

import (
	"context"
	"fmt"
	"time"

	log "github.com/activeshadow/libminimega/minilog"
)

const (
	readinessAttempts = 24
	readinessBackoff   = 5 * time.Second
)

// waitForSSH polls `ssh ... ls` with backoff until the guest answers or the
// attempt budget is exhausted.
func waitForSSH(ctx context.Context, e *Env, host, address string) error {
	for attempt := 1; attempt <= readinessAttempts; attempt++ {
		_, err := e.Executor.Run(ctx, host, []string{"ssh",
			"-o", "StrictHostKeyChecking=no",
			"-o", "BatchMode=yes",
			"-o", "ConnectTimeout=3",
			address, "ls"})
		if err == nil {
			return nil
		}

		log.Debug("guest at %s not yet reachable (attempt %d/%d): %v", address, attempt, readinessAttempts, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readinessBackoff):
		}
	}

	return fmt.Errorf("guest at %s did not become reachable after %d attempts", address, readinessAttempts)
}
