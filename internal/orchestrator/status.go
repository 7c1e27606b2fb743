package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/dispatch/internal/registry"
	"github.com/ShayCichocki/dispatch/pkg/models"
)

var (
	statusRunningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34")) // Green
	statusDoneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")) // Dark green
	statusFailedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196")) // Red
	statusCancelledStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")) // Orange
	idStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15"))
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

func statusStyle(status models.TaskStatus) lipgloss.Style {
	switch status {
	case models.TaskStatusRunning:
		return statusRunningStyle
	case models.TaskStatusCompleted:
		return statusDoneStyle
	case models.TaskStatusError:
		return statusFailedStyle
	case models.TaskStatusCancelled:
		return statusCancelledStyle
	default:
		return dimStyle
	}
}

// Status renders a human-readable snapshot of one task: a progress line
// while it runs, the full result once it is terminal.
func (o *Orchestrator) Status(taskID string) (string, error) {
	task, ok := o.store.Get(taskID)
	if !ok {
		return "", fmt.Errorf("status: task %q: %w", taskID, registry.ErrNotFound)
	}
	return RenderStatus(task, time.Now()), nil
}

// RenderStatus formats a single task's state.
func RenderStatus(task models.Task, now time.Time) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s  %s  %s\n",
		idStyle.Render(task.ID),
		statusStyle(task.Status).Render(string(task.Status)),
		task.Description)
	fmt.Fprintf(&sb, "%s %s  %s %s\n",
		dimStyle.Render("agent:"), task.AgentIdentity,
		dimStyle.Render("elapsed:"), task.Age(now).Round(time.Second))

	if task.Status == models.TaskStatusRunning {
		fmt.Fprintf(&sb, "%s %d", dimStyle.Render("tool calls:"), task.Progress.ToolCalls)
		if task.Progress.LastTool != "" {
			fmt.Fprintf(&sb, "  %s %s", dimStyle.Render("last:"), task.Progress.LastTool)
		}
		sb.WriteString("\n")
		if task.Progress.LastText != "" {
			fmt.Fprintf(&sb, "%s %s\n", dimStyle.Render("activity:"), oneLine(task.Progress.LastText, 120))
		}
		return sb.String()
	}

	if task.Error != "" {
		fmt.Fprintf(&sb, "%s %s\n", statusFailedStyle.Render("error:"), task.Error)
	}
	if task.Result != "" {
		sb.WriteString(task.Result)
		if !strings.HasSuffix(task.Result, "\n") {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// RenderTaskTable formats a one-line-per-task overview of all tasks.
func RenderTaskTable(tasks []models.Task, now time.Time) string {
	if len(tasks) == 0 {
		return dimStyle.Render("no tasks") + "\n"
	}

	var sb strings.Builder
	for _, t := range tasks {
		fmt.Fprintf(&sb, "%s  %-10s  %-12s  %6s  %s\n",
			idStyle.Render(t.ID),
			statusStyle(t.Status).Render(string(t.Status)),
			t.AgentIdentity,
			t.Age(now).Round(time.Second),
			oneLine(t.Description, 60))
	}
	return sb.String()
}

func oneLine(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
