package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cmdRun   = "run"
	cmdNews  = "news"
	cmdRmCat = "rmcat"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	action, arg, ok := strings.Cut(data, ":")
	if !ok {
		return
	}

	b.log.Info("callback",
		"action", action,
		"arg", arg,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	switch action {
	case cmdNews:
		b.handleNews(ctx, chatID, arg)
	case cmdRun:
		b.handleRun(ctx, chatID)
	case "rmcat_confirm":
		cat, err := b.store.GetCategory(ctx, arg)
		if err != nil {
			b.reply(chatID, fmt.Sprintf("Category %s not found.", arg))
			return
		}
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Delete category %q? Its articles are kept without a category.", cat.Name))
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Yes, delete", cmdRmCat+":"+cat.ID),
				tgbotapi.NewInlineKeyboardButtonData("Cancel", "noop:"),
			),
		)
		if _, err := b.api.Send(msg); err != nil {
			b.log.Error("send delete confirmation", "error", err)
		}
	case cmdRmCat:
		b.handleRmCategory(ctx, chatID, arg)
	}
}
