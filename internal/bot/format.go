package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	"reminder-bot/internal/model"
	"reminder-bot/internal/service"
)

const (
	layoutDateTime = "2006-01-02 15:04"
	layoutClock    = "15:04"
)

func escape(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

func formatReminder(text string, localDue time.Time, tz string) string {
	return fmt.Sprintf("⏰ <b>Reminder:</b> %s\n🗓️ Due: %s (%s)", escape(text), localDue.Format(layoutDateTime), escape(tz))
}

func formatDigest(items []service.DigestItem, date time.Time, tz string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🗒️ <b>Today's summary</b> (%s, %s)\n\n", date.Format(time.DateOnly), escape(tz)))
	if len(items) == 0 {
		sb.WriteString("No tasks due today. Have a great day!")
		return sb.String()
	}
	for i, item := range items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(fmt.Sprintf("• [%d] %s — %s", item.TaskID, escape(item.Text), item.LocalTime.Format(layoutClock)))
	}
	return sb.String()
}

func formatTaskList(tasks []model.Task, loc *time.Location) string {
	if len(tasks) == 0 {
		return "No upcoming tasks."
	}
	var sb strings.Builder
	for i, task := range tasks {
		if i > 0 {
			sb.WriteByte('\n')
		}
		mark := ""
		if task.Done {
			mark = "✅ "
		}
		sb.WriteString(fmt.Sprintf("%s[%d] %s — %s (%s)", mark, task.ID, escape(task.Text), task.DueAt.In(loc).Format(layoutDateTime), loc.String()))
	}
	return sb.String()
}

const helpText = "Hi! I can remind you about important tasks.\n\n" +
	"Set your timezone first (once):\n" +
	"  /settz America/Los_Angeles\n\n" +
	"Add a reminder (use '|' to split time and text):\n" +
	"  /add 2025-09-01 09:00 | Pay rent\n" +
	"  /add today 18:30 | Start dinner\n" +
	"  /add in 2h | Stretch break\n\n" +
	"Daily summary at a set time:\n" +
	"  /daily 09:00   or   /daily off\n\n" +
	"Other commands: /list [all], /today, /done &lt;id&gt;, /remove &lt;id&gt;, /help"
