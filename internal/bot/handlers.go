package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"news_briefing/internal/model"
	"news_briefing/internal/storage"
	"news_briefing/internal/validate"
)

const (
	newsPageSize = 5
	runsShown    = 5
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to News Briefing!

The bot collects news for each category, summarizes new articles and reports every run here.

Quick start:
1. /categories — see what is collected
2. /run — collect news now
3. /schedule 0 */6 * * * on — collect every six hours

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Runs:
/run — collect news now
/status — schedule and last run
/runs — recent runs
/schedule <cron expr> on|off — set the schedule

Categories:
/categories — list categories
/addcat <name> | <search query> — add a category
/rmcat <id> — delete a category

Articles:
/news [page] — latest articles`)
}

func (b *Bot) handleRun(ctx context.Context, chatID int64) {
	b.reply(chatID, "Collecting news...")
	entry, err := b.sched.RunNow(ctx)
	// The admin chat already receives the report from the scheduler.
	if chatID == b.cfg.AdminChatID {
		return
	}
	b.reply(chatID, FormatRunReport(entry, err))
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64) {
	settings, err := b.store.LoadSettings(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	var last *model.RunLog
	runs, _, err := b.store.ListRunLogs(ctx, 1, 0)
	if err != nil {
		b.log.Error("list run logs", "error", err)
	} else if len(runs) > 0 {
		last = &runs[0]
	}

	b.reply(chatID, FormatStatus(settings, b.sched.Schedule(), last))
}

func (b *Bot) handleSchedule(ctx context.Context, chatID int64, args string) {
	expr, enabled, err := ParseScheduleArgs(args)
	if err != nil {
		b.reply(chatID, "Usage: /schedule <cron expr> on|off\nExample: /schedule 0 */6 * * * on")
		return
	}

	if err := b.sched.UpdateSchedule(ctx, expr, enabled); err != nil {
		b.reply(chatID, fmt.Sprintf("Schedule saved but not active: %v", err))
		return
	}
	if !enabled {
		b.reply(chatID, "Scheduled runs disabled.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Scheduled runs enabled: %s", expr))
}

func (b *Bot) handleCategories(ctx context.Context, chatID int64) {
	cats, err := b.store.ListCategories(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	msg := tgbotapi.NewMessage(chatID, FormatCategoryList(cats))
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, c := range cats {
		if c.IsDefault {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Delete "+c.Name, "rmcat_confirm:"+c.ID),
		))
	}
	if len(rows) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send category list", "error", err)
	}
}

func (b *Bot) handleAddCategory(ctx context.Context, chatID int64, args string) {
	name, query, err := ParseCategoryArgs(args)
	if err != nil {
		b.reply(chatID, "Usage: /addcat <name> | <search query>")
		return
	}
	if err := validate.ValidateCategory(validate.Category{Name: name, SearchQuery: query}); err != nil {
		b.reply(chatID, fmt.Sprintf("Invalid category: %v", err))
		return
	}

	cat := &model.Category{Name: name, SearchQuery: query}
	if err := b.store.CreateCategory(ctx, cat); err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicateName):
			b.reply(chatID, fmt.Sprintf("Category %q already exists.", name))
		case errors.Is(err, storage.ErrCategoryLimit):
			b.reply(chatID, fmt.Sprintf("At most %d categories are allowed.", model.MaxCategories))
		default:
			b.reply(chatID, fmt.Sprintf("Failed to save category: %v", err))
		}
		return
	}

	b.reply(chatID, fmt.Sprintf("Category added: %s\nID: %s\nQuery: %s", cat.Name, cat.ID, cat.SearchQuery))
}

func (b *Bot) handleRmCategory(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /rmcat <id>")
		return
	}

	cat, err := b.store.GetCategory(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Category %s not found.", id))
		return
	}
	if err := b.store.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, storage.ErrDefaultCategory) {
			b.reply(chatID, fmt.Sprintf("%q is a built-in category and cannot be deleted.", cat.Name))
			return
		}
		b.reply(chatID, fmt.Sprintf("Error deleting category: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Category %q deleted.", cat.Name))
}

func (b *Bot) handleRuns(ctx context.Context, chatID int64) {
	runs, _, err := b.store.ListRunLogs(ctx, runsShown, 0)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatRunList(runs))
}

func (b *Bot) handleNews(ctx context.Context, chatID int64, args string) {
	page, err := ParsePageArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /news [page]")
		return
	}

	articles, total, err := b.store.ListArticles(ctx, storage.ArticleFilter{
		Limit:  newsPageSize,
		Offset: (page - 1) * newsPageSize,
	})
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	p := model.NewPagination(page, newsPageSize, total, len(articles))

	msg := tgbotapi.NewMessage(chatID, FormatArticleList(articles, p))
	msg.DisableWebPagePreview = true
	if p.HasMore {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Next page", fmt.Sprintf("%s:%d", cmdNews, page+1)),
			),
		)
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send news page", "error", err)
	}
}
