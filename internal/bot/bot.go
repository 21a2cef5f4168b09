// Package bot implements the Telegram admin bot and the run-report notifier.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"news_briefing/internal/config"
	"news_briefing/internal/model"
	"news_briefing/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Scheduler is the part of the scheduler the bot drives.
type Scheduler interface {
	RunNow(ctx context.Context) (*model.RunLog, error)
	UpdateSchedule(ctx context.Context, expr string, enabled bool) error
	Scheduled() bool
	Schedule() string
}

// Bot is the Telegram admin bot.
type Bot struct {
	api   telegramAPI
	store storage.Storage
	sched Scheduler
	cfg   *config.Config
	log   *slog.Logger
}

// New creates a Bot with the given Telegram token, storage, scheduler, and config.
func New(token string, store storage.Storage, sched Scheduler, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:   api,
		store: store,
		sched: sched,
		cfg:   cfg,
		log:   log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				if !b.cfg.IsUserAllowed(update.CallbackQuery.From.ID) {
					continue
				}
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

// Report posts a run summary to the admin chat, if one is configured.
func (b *Bot) Report(_ context.Context, entry *model.RunLog, err error) {
	if b.cfg.AdminChatID == 0 {
		return
	}
	b.SendMessage(b.cfg.AdminChatID, FormatRunReport(entry, err))
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case cmdRun:
		b.handleRun(ctx, chatID)
	case "status":
		b.handleStatus(ctx, chatID)
	case "schedule":
		b.handleSchedule(ctx, chatID, args)
	case "categories":
		b.handleCategories(ctx, chatID)
	case "addcat":
		b.handleAddCategory(ctx, chatID, args)
	case cmdRmCat:
		b.handleRmCategory(ctx, chatID, args)
	case "runs":
		b.handleRuns(ctx, chatID)
	case cmdNews:
		b.handleNews(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
