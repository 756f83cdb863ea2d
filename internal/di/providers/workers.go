package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/n1k0r/librenotes-server/internal/service"
)

// sessionCleanupInterval is how often expired sessions are purged.
const sessionCleanupInterval = time.Hour

// SessionCleanupJob runs periodic session cleanup.
type SessionCleanupJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (j *SessionCleanupJob) Shutdown() error {
	j.cancel()
	<-j.done
	return nil
}

// ProvideSessionCleanupJob provides the periodic session cleanup job.
func ProvideSessionCleanupJob(i do.Injector) (*SessionCleanupJob, error) {
	sessions := do.MustInvoke[*service.SessionService](i)
	log := do.MustInvoke[*LoggerHandle](i)

	ctx, cancel := context.WithCancel(context.Background())
	job := &SessionCleanupJob{cancel: cancel, done: make(chan struct{})}

	cleanup := func(phase string) {
		if count, err := sessions.DeleteExpiredSessions(ctx); err != nil {
			if ctx.Err() == nil {
				log.Warn("Session cleanup failed", "phase", phase, "error", err)
			}
		} else if count > 0 {
			log.Info("Session cleanup completed", "phase", phase, "deleted", count)
		}
	}

	go func() {
		defer close(job.done)

		ticker := time.NewTicker(sessionCleanupInterval)
		defer ticker.Stop()

		cleanup("startup")
		for {
			select {
			case <-ticker.C:
				cleanup("periodic")
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Session cleanup job started", "interval", sessionCleanupInterval)

	return job, nil
}
