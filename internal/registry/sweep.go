package registry

import (
	"time"

	"github.com/ShayCichocki/dispatch/internal/host"
)

// ensureSweeper starts the liveness sweep if it is not already running.
// The sweep is active only while at least one task is running; it shuts
// itself down when the registry drains and is restarted by the next launch.
func (m *Manager) ensureSweeper() {
	m.sweepMu.Lock()
	defer m.sweepMu.Unlock()
	if m.sweeping {
		return
	}
	m.sweeping = true
	go m.sweepLoop()
}

// sweepLoop polls the host's status for each tracked running task as a
// fallback to event-driven signals, applying the same idle/checklist
// completion logic. Each pass starts with an opportunistic reaper run.
func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			m.stopSweeping()
			return
		case <-ticker.C:
		}

		m.reapStale()

		running := m.store.Running()
		if len(running) == 0 {
			m.stopSweeping()
			// A launch may have slipped in between the check and the
			// stop; restart rather than leave it unswept.
			if m.store.RunningCount() > 0 {
				m.ensureSweeper()
			}
			return
		}

		for _, t := range running {
			status, err := m.host.Status(t.ExecutionHandle)
			if err != nil {
				m.logf("[registry] sweep: status poll for task %s failed: %v", t.ID, err)
				continue
			}
			if status == host.StatusIdle {
				m.OnIdle(t.ExecutionHandle)
			}
		}
	}
}

func (m *Manager) stopSweeping() {
	m.sweepMu.Lock()
	m.sweeping = false
	m.sweepMu.Unlock()
}
