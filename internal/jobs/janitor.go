package jobs

import (
	"log/slog"
	"time"

	"github.com/JxcChen/bili-pro/internal/audio"
)

// StartJanitor reaps terminal jobs and stale downloaded audio older than
// ttl. A ttl of zero disables eviction entirely, leaving jobs for the life
// of the process.
func StartJanitor(registry *Registry, tempDir string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	ticker := time.NewTicker(ttl)

	go func() {
		for range ticker.C {
			slog.Info("🧹 janitor: starting scheduled cleanup")

			cutoff := time.Now().Add(-ttl)
			evicted := registry.evictBefore(cutoff)

			if err := audio.CleanupBefore(tempDir, cutoff); err != nil {
				slog.Error("❌ janitor: could not clear temp audio", "error", err)
			}

			slog.Info("✅ janitor: cleanup finished", "jobs_evicted", evicted)
		}
	}()
}
