package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"

	"chat-core/contract"
)

var _ contract.Worker = (*HealthWorker)(nil)

// HealthWorker periodically logs process health (CPU, RSS, goroutines) and
// the domain counters. It observes its own process through gopsutil so the
// numbers match what the OS accounts, not just the Go heap.
type HealthWorker struct {
	stats    *Stats
	interval time.Duration
	log      *slog.Logger
}

func NewHealthWorker(stats *Stats, interval time.Duration, log *slog.Logger) *HealthWorker {
	return &HealthWorker{stats: stats, interval: interval, log: log}
}

func (w *HealthWorker) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("stopping health worker")
			return nil
		case <-ticker.C:
			w.report(proc)
		}
	}
}

func (w *HealthWorker) report(proc *process.Process) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		w.log.Debug("cpu sample unavailable", "error", err)
	}
	var rssMb uint64
	if mem, err := proc.MemoryInfo(); err == nil {
		rssMb = mem.RSS / 1024 / 1024
	}

	snap := w.stats.Snapshot()
	w.log.Info("health",
		"cpu_percent", cpuPercent,
		"rss_mb", rssMb,
		"heap_mb", m.Alloc/1024/1024,
		"goroutines", runtime.NumGoroutine(),
		"num_gc", m.NumGC,
		"sessions_created", snap.SessionsCreated,
		"messages_appended", snap.MessagesAppended,
		"notifications_created", snap.NotificationsCreated,
	)
}
