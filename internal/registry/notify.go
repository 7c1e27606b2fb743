package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/ShayCichocki/dispatch/pkg/models"
)

// notifyCompletion runs the completion notification protocol for a task
// that just reached a terminal state. The caller has already released the
// task's admission slot. Delivery happens after a short settle delay and is
// best-effort: a failure is logged, never retried, and never resurrects the
// task. After the attempt the task and its notifications are purged.
func (m *Manager) notifyCompletion(task models.Task) {
	if task.ParentHandle == "" {
		// Nothing to notify; purge once the caller has had a chance to
		// read the result through Status.
		return
	}

	note := models.PendingNotification{
		TaskID:        task.ID,
		ParentHandle:  task.ParentHandle,
		Message:       formatCompletionMessage(task),
		QueuedAt:      m.now(),
		TaskStartedAt: task.StartedAt,
	}
	m.store.EnqueuePending(note)

	m.notifyWG.Add(1)
	go func() {
		defer m.notifyWG.Done()

		select {
		case <-time.After(m.cfg.SettleDelay):
		case <-m.done:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.DeliverTimeout)
		defer cancel()

		if err := m.host.Deliver(ctx, note.ParentHandle, note.Message); err != nil {
			m.logf("[registry] deliver completion for task %s to %s failed: %v", task.ID, note.ParentHandle, err)
		}

		m.store.RemovePendingForTask(task.ID)
		m.store.Remove(task.ID)
	}()
}

// formatCompletionMessage renders the short completion notice sent to the
// originating context.
func formatCompletionMessage(task models.Task) string {
	switch task.Status {
	case models.TaskStatusCompleted:
		return fmt.Sprintf("Subagent task %s (%s) completed. Use the task result to continue.", task.ID, task.Description)
	case models.TaskStatusCancelled:
		return fmt.Sprintf("Subagent task %s (%s) was cancelled: %s", task.ID, task.Description, task.Error)
	default:
		return fmt.Sprintf("Subagent task %s (%s) failed: %s", task.ID, task.Description, task.Error)
	}
}
