package utils

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownManager coordinates graceful teardown. Cleanup tasks run in
// reverse registration order, so the HTTP server registered last drains
// before the stores it depends on are closed.
type ShutdownManager struct {
	cancel context.CancelFunc
	tasks  []func(context.Context) error
	mu     sync.Mutex
}

func NewShutdownManager(ctx context.Context) (context.Context, *ShutdownManager) {
	ctx, cancel := context.WithCancel(ctx)
	return ctx, &ShutdownManager{cancel: cancel}
}

func (sm *ShutdownManager) Register(task func(context.Context) error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.tasks = append(sm.tasks, task)
}

// Wait blocks until SIGINT or SIGTERM, cancels the context handed out by
// NewShutdownManager, and runs the cleanup tasks under the given timeout.
func (sm *ShutdownManager) Wait(timeout time.Duration) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Printf("[SHUTDOWN] Received signal: %v", sig)
	sm.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return sm.Shutdown(ctx)
}

// Shutdown runs the registered tasks newest-first, logs every failure, and
// returns the first error.
func (sm *ShutdownManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	tasks := make([]func(context.Context) error, len(sm.tasks))
	copy(tasks, sm.tasks)
	sm.mu.Unlock()

	var firstErr error
	for i := len(tasks) - 1; i >= 0; i-- {
		if err := tasks[i](ctx); err != nil {
			log.Printf("[SHUTDOWN] Cleanup error: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	log.Println("[SHUTDOWN] Graceful shutdown complete")
	return firstErr
}
