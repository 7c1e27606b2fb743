package registry

import (
	"fmt"

	"github.com/ShayCichocki/dispatch/pkg/models"
)

// reapStale is the staleness reaper. It runs opportunistically at the start
// of each liveness sweep, rate-limited by ReapCooldown. Any task older than
// the TTL is forced terminal with a timeout reason, its admission slot
// released, and the record plus its notifications removed, regardless of
// status. The pending-notification index is swept independently so entries
// whose task was removed through another path still age out.
func (m *Manager) reapStale() {
	now := m.now()

	m.sweepMu.Lock()
	if now.Sub(m.lastReap) < m.cfg.ReapCooldown {
		m.sweepMu.Unlock()
		return
	}
	m.lastReap = now
	m.sweepMu.Unlock()

	for _, t := range m.store.Tasks() {
		if t.Age(now) < m.cfg.TTL {
			continue
		}

		var key string
		m.store.Update(t.ID, func(task *models.Task) {
			if !task.Status.Terminal() {
				task.Status = models.TaskStatusError
				task.Error = fmt.Sprintf("timed out after %s", m.cfg.TTL)
				done := now
				task.CompletedAt = &done
			}
			key = task.AdmissionKey
			task.AdmissionKey = ""
		})
		if key != "" {
			m.admission.Release(key)
		}

		m.store.RemovePendingForTask(t.ID)
		m.store.Remove(t.ID)
		m.logf("[registry] reaped task %s (age %s, status %s)", t.ID, t.Age(now).Round(0), t.Status)
	}

	if removed := m.store.SweepPending(now.Add(-m.cfg.TTL)); removed > 0 {
		m.logf("[registry] reaped %d stale pending notifications", removed)
	}
}

// Reap forces a reaper pass, ignoring the cooldown. Intended for callers
// that just observed a clock jump, and for tests.
func (m *Manager) Reap() {
	m.sweepMu.Lock()
	m.lastReap = m.now().Add(-m.cfg.ReapCooldown)
	m.sweepMu.Unlock()
	m.reapStale()
}
