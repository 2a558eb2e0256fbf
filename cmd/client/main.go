package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"ai-chat-client/internal/bootstrap"
	"ai-chat-client/internal/config"
	"ai-chat-client/internal/store"
	"ai-chat-client/internal/tracer"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.Logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Start the Sync Dispatcher BEFORE connecting so no push event is
	// dequeued out of order.
	if err := container.SyncService.Consume(ctx); err != nil {
		log.Fatalf("Unable to start sync dispatcher: %v", err)
	}

	// 4. Connect & Authenticate
	if err := container.Channel.Connect(ctx); err != nil {
		color.Red("✗ Realtime connection failed: %v", err)
		os.Exit(1)
	}
	color.Green("✓ Connected (%s transport)", cfg.Realtime.Transport)

	if cfg.App.AuthToken == "" {
		color.Red("✗ AUTH_TOKEN is not set")
		os.Exit(1)
	}
	userId, err := container.Identity.UserIdFromToken(cfg.App.AuthToken)
	if err != nil {
		color.Red("✗ %v", err)
		os.Exit(1)
	}
	if err := container.Channel.Authenticate(ctx, userId); err != nil {
		color.Red("✗ Authentication failed: %v", err)
		os.Exit(1)
	}
	color.Green("✓ Authenticated as %s", userId)

	// 5. Restore the last selection once hydration has landed. The
	// dispatcher applies authSuccess asynchronously; switching before the
	// session list exists would be rejected as unknown.
	if waitForHydration(container.Store, 10*time.Second) {
		if sessionId, found := container.Identity.LastSession(ctx); found {
			if err := container.Guard.Switch(ctx, sessionId); err != nil {
				color.Yellow("! Could not restore session %s: %v", sessionId, err)
			} else {
				color.Cyan("→ Restored session %s", sessionId)
			}
		}
	} else {
		color.Yellow("! Hydration did not complete; skipping session restore")
	}

	// 6. Run until interrupted
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Shutdown is not a logout: the persisted identity and selection stay so
	// the next start can restore them.
	color.Yellow("Shutting down...")
	if err := container.Channel.Close(); err != nil {
		log.Printf("Channel close error: %v", err)
	}
}

// waitForHydration blocks until the authSuccess hydration has been applied
// (session list set, Authenticated flipped last) or the timeout passes.
func waitForHydration(channelStore *store.ChannelStore, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if channelStore.Snapshot().Connection.Authenticated {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}
