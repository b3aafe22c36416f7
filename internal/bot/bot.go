package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"reminder-bot/internal/model"
	"reminder-bot/internal/service"
)

// updateSource is the polling part of *tgbotapi.BotAPI.
type updateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot maps chat commands onto the task service.
type Bot struct {
	updates   updateSource
	sender    *Sender
	tasks     *service.TaskService
	reminders *service.ReminderService
	log       *zap.Logger
	now       func() time.Time
}

// NewAPI authorizes against the Bot API.
func NewAPI(token string, log *zap.Logger) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	api.Debug = false
	log.Info("bot authorized", zap.String("account", api.Self.UserName))
	return api, nil
}

func New(updates updateSource, sender *Sender, tasks *service.TaskService, reminders *service.ReminderService, log *zap.Logger) *Bot {
	return &Bot{
		updates:   updates,
		sender:    sender,
		tasks:     tasks,
		reminders: reminders,
		log:       log.Named("bot"),
		now:       time.Now,
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.updates.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.updates.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil || update.Message.Chat == nil {
			continue
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.Error("handle message", zap.Int64("chat_id", update.Message.Chat.ID), zap.Error(err))
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if !msg.IsCommand() {
		return b.reply(ctx, msg, "I only understand commands. Try /help.")
	}
	b.log.Debug("command", zap.Int64("chat_id", msg.Chat.ID), zap.String("command", msg.Command()))

	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start", "help":
		if _, err := b.tasks.EnsureUser(ctx, chatID); err != nil {
			return b.fail(ctx, msg, err)
		}
		return b.reply(ctx, msg, helpText)
	case "settz":
		return b.handleSetTimezone(ctx, msg, args)
	case "add":
		return b.handleAdd(ctx, msg, args)
	case "list":
		return b.handleList(ctx, msg, args)
	case "today":
		return b.handleToday(ctx, msg)
	case "done":
		return b.handleDone(ctx, msg, args)
	case "remove":
		return b.handleRemove(ctx, msg, args)
	case "daily":
		return b.handleDaily(ctx, msg, args)
	default:
		return b.reply(ctx, msg, "Unknown command. See /help.")
	}
}

func (b *Bot) handleSetTimezone(ctx context.Context, msg *tgbotapi.Message, args string) error {
	if args == "" {
		return b.reply(ctx, msg, "Usage: /settz &lt;IANA_tz&gt;  (e.g., America/Los_Angeles)")
	}
	tz := strings.Fields(args)[0]
	if err := b.tasks.SetTimezone(ctx, msg.Chat.ID, tz); err != nil {
		return b.fail(ctx, msg, err)
	}
	return b.reply(ctx, msg, fmt.Sprintf("Timezone set to %s.", escape(tz)))
}

func (b *Bot) handleAdd(ctx context.Context, msg *tgbotapi.Message, args string) error {
	when, text, err := parseAddArgs(args)
	if err != nil {
		return b.reply(ctx, msg, escape(err.Error()))
	}
	task, err := b.tasks.AddTaskFromExpression(ctx, msg.Chat.ID, when, text)
	if err != nil {
		return b.fail(ctx, msg, err)
	}
	tz, loc := b.zone(ctx, msg.Chat.ID)
	b.log.Info("task created", zap.Uint("task_id", task.ID), zap.Int64("chat_id", task.Owner), zap.Time("due", task.DueAt))
	return b.reply(ctx, msg, fmt.Sprintf("Added task [%d] for %s (%s).", task.ID, task.DueAt.In(loc).Format(layoutDateTime), escape(tz)))
}

func (b *Bot) handleList(ctx context.Context, msg *tgbotapi.Message, args string) error {
	includeDone := strings.EqualFold(args, "all")
	tasks, err := b.tasks.ListTasks(ctx, msg.Chat.ID, includeDone)
	if err != nil {
		return b.fail(ctx, msg, err)
	}
	_, loc := b.zone(ctx, msg.Chat.ID)
	return b.reply(ctx, msg, formatTaskList(tasks, loc))
}

func (b *Bot) handleToday(ctx context.Context, msg *tgbotapi.Message) error {
	digest, err := b.reminders.DailyDigest(ctx, msg.Chat.ID, b.now())
	if err != nil {
		return b.fail(ctx, msg, err)
	}
	return b.reply(ctx, msg, formatDigest(digest.Items, digest.Date, digest.Timezone))
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message, args string) error {
	id, err := parseTaskID(args)
	if err != nil {
		return b.reply(ctx, msg, "Usage: /done &lt;id&gt; (task id must be a number)")
	}
	changed, err := b.tasks.MarkDone(ctx, msg.Chat.ID, id)
	if err != nil {
		return b.fail(ctx, msg, err)
	}
	if !changed {
		return b.reply(ctx, msg, "Couldn't find an active task with that id.")
	}
	b.log.Info("task completed", zap.Uint("task_id", id), zap.Int64("chat_id", msg.Chat.ID))
	return b.reply(ctx, msg, fmt.Sprintf("Marked task [%d] as done.", id))
}

func (b *Bot) handleRemove(ctx context.Context, msg *tgbotapi.Message, args string) error {
	id, err := parseTaskID(args)
	if err != nil {
		return b.reply(ctx, msg, "Usage: /remove &lt;id&gt; (task id must be a number)")
	}
	removed, err := b.tasks.RemoveTask(ctx, msg.Chat.ID, id)
	if err != nil {
		return b.fail(ctx, msg, err)
	}
	if !removed {
		return b.reply(ctx, msg, "Couldn't find a task with that id.")
	}
	b.log.Info("task removed", zap.Uint("task_id", id), zap.Int64("chat_id", msg.Chat.ID))
	return b.reply(ctx, msg, fmt.Sprintf("Removed task [%d].", id))
}

func (b *Bot) handleDaily(ctx context.Context, msg *tgbotapi.Message, args string) error {
	if args == "" {
		return b.reply(ctx, msg, "Usage: /daily &lt;HH:MM&gt;|off")
	}
	at, err := parseDailyArg(args)
	if err != nil {
		return b.reply(ctx, msg, "Please provide time as HH:MM (e.g., 09:00) or 'off'.")
	}
	if err := b.tasks.SetDailySummary(ctx, msg.Chat.ID, at); err != nil {
		return b.fail(ctx, msg, err)
	}
	if at == nil {
		return b.reply(ctx, msg, "Daily summary turned off.")
	}
	return b.reply(ctx, msg, fmt.Sprintf("Daily summary set to %s (your local time).", at))
}

// zone returns the user's timezone, falling back to UTC.
func (b *Bot) zone(ctx context.Context, chatID int64) (string, *time.Location) {
	tz, err := b.tasks.GetTimezone(ctx, chatID)
	if err != nil {
		b.log.Warn("load timezone", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	loc, err := service.LoadZone(tz)
	if err != nil {
		return model.DefaultTimezone, time.UTC
	}
	return tz, loc
}

func (b *Bot) reply(ctx context.Context, msg *tgbotapi.Message, text string) error {
	return b.sender.SendText(ctx, msg.Chat.ID, text)
}

// fail reports a recoverable error to the user; anything else is logged and returned.
func (b *Bot) fail(ctx context.Context, msg *tgbotapi.Message, err error) error {
	text, known := userMessage(err)
	if !known {
		b.log.Error("command failed", zap.Int64("chat_id", msg.Chat.ID), zap.String("command", msg.Command()), zap.Error(err))
	}
	if sendErr := b.reply(ctx, msg, text); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	if known {
		return nil
	}
	return err
}

func userMessage(err error) (string, bool) {
	var tpe *model.TimeParseError
	switch {
	case errors.As(err, &tpe) && errors.Is(err, model.ErrInvalidTimezone):
		return "Your timezone is not valid anymore. Set it again with /settz.", true
	case errors.As(err, &tpe):
		return "Sorry, I couldn't parse that time. " + escape(tpe.Hint), true
	case errors.Is(err, model.ErrInvalidTimezone):
		return "Invalid timezone. Try something like America/New_York or Europe/London.", true
	case errors.Is(err, model.ErrValidation):
		return "That time is in the past or too soon, or the text is empty. Please choose a future time.", true
	case errors.Is(err, model.ErrNotFound):
		return "Couldn't find a task with that id.", true
	default:
		return "Something went wrong, please try again later.", false
	}
}

// parseAddArgs splits "<when> | <text>".
func parseAddArgs(args string) (when, text string, err error) {
	when, text, ok := strings.Cut(args, "|")
	if !ok {
		return "", "", errors.New("Usage: /add <when> | <task text>\nExample: /add today 18:30 | Start dinner")
	}
	when, text = strings.TrimSpace(when), strings.TrimSpace(text)
	if when == "" {
		return "", "", errors.New("Please include a time before the '|'.")
	}
	if text == "" {
		return "", "", errors.New("Please include task text after the '|'.")
	}
	return when, text, nil
}

func parseTaskID(args string) (uint, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, errors.New("missing task id")
	}
	id, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid task id %q", fields[0])
	}
	return uint(id), nil
}

// parseDailyArg returns nil for "off".
func parseDailyArg(args string) (*model.ClockTime, error) {
	arg := strings.ToLower(strings.TrimSpace(args))
	if arg == "off" {
		return nil, nil
	}
	at, err := model.ParseClockTime(arg)
	if err != nil {
		return nil, err
	}
	return &at, nil
}
