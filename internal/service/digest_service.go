package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// dueSoonWindow is how far ahead the digest looks for upcoming due dates.
const dueSoonWindow = 48 * time.Hour

// DigestService builds the daily due-date summary sent to linked chats.
type DigestService struct {
	taskRepo *repository.TaskRepository
}

func NewDigestService(taskRepo *repository.TaskRepository) *DigestService {
	return &DigestService{taskRepo: taskRepo}
}

// DailySummary lists the user's unfinished tasks that are overdue or due
// within the next two days. It returns an empty string when there is
// nothing to report.
func (s *DigestService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	tasks, err := s.taskRepo.ListDueBefore(ctx, user.ID, now.Add(dueSoonWindow))
	if err != nil {
		return "", err
	}

	var pending []model.Task
	for _, task := range tasks {
		if task.Status != nil && task.Status.IsFinalized {
			continue
		}
		pending = append(pending, task)
	}
	if len(pending) == 0 {
		return "", nil
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily digest</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format(time.DateOnly)))
	for _, task := range pending {
		builder.WriteString(formatDueTask(task, now))
	}
	return strings.TrimSpace(builder.String()), nil
}

func formatDueTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	due := task.DueDate.Format(time.DateOnly)
	today := now.Format(time.DateOnly)
	icon := "⏳"
	if due < today {
		icon = "⚠️"
	}
	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(task.Name))))

	if task.Category != nil {
		if name := strings.TrimSpace(task.Category.Name); name != "" {
			sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(name)))
		}
	}
	if task.Status != nil {
		sb.WriteString(fmt.Sprintf(" · %s", html.EscapeString(task.Status.Name)))
	}

	switch {
	case due < today:
		sb.WriteString(fmt.Sprintf("\n   ⏰ due %s, <b>overdue</b>", due))
	case due == today:
		sb.WriteString("\n   ⏰ due today")
	default:
		sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · in %d day(s)", due, daysBetween(today, due)))
	}

	sb.WriteByte('\n')
	return sb.String()
}

// daysBetween counts calendar days between two YYYY-MM-DD dates.
func daysBetween(from, to string) int {
	start, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return 0
	}
	end, err := time.Parse(time.DateOnly, to)
	if err != nil {
		return 0
	}
	return int(end.Sub(start).Hours() / 24)
}
