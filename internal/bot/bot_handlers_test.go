package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"

	"news_briefing/internal/config"
	"news_briefing/internal/model"
	"news_briefing/internal/storage"
)

// --- mocks ---

type sentMsg struct {
	ChatID  int64
	Text    string
	Buttons []string
}

type mockAPI struct {
	mu   sync.Mutex
	sent []sentMsg
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s := sentMsg{ChatID: msg.ChatID, Text: msg.Text}
		if kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); ok {
			for _, row := range kb.InlineKeyboard {
				for _, btn := range row {
					if btn.CallbackData != nil {
						s.Buttons = append(s.Buttons, *btn.CallbackData)
					}
				}
			}
		}
		m.mu.Lock()
		m.sent = append(m.sent, s)
		m.mu.Unlock()
	}
	return tgbotapi.Message{}, nil
}

func (m *mockAPI) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(tgbotapi.UpdatesChannel)
}

func (m *mockAPI) StopReceivingUpdates() {}

func (m *mockAPI) last() sentMsg {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMsg{}
	}
	return m.sent[len(m.sent)-1]
}

func (m *mockAPI) lastText() string {
	return m.last().Text
}

func (m *mockAPI) allTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	for i, s := range m.sent {
		out[i] = s.Text
	}
	return out
}

type mockScheduler struct {
	entry    *model.RunLog
	err      error
	runs     int
	expr     string
	updates  []string
	schedErr error
}

func (m *mockScheduler) RunNow(_ context.Context) (*model.RunLog, error) {
	m.runs++
	return m.entry, m.err
}

func (m *mockScheduler) UpdateSchedule(_ context.Context, expr string, enabled bool) error {
	m.updates = append(m.updates, fmt.Sprintf("%s %v", expr, enabled))
	if m.schedErr != nil {
		return m.schedErr
	}
	if enabled {
		m.expr = expr
	} else {
		m.expr = ""
	}
	return nil
}

func (m *mockScheduler) Scheduled() bool  { return m.expr != "" }
func (m *mockScheduler) Schedule() string { return m.expr }

// --- helpers ---

func newTestBot(t *testing.T, cfg *config.Config) (*Bot, *mockAPI, *mockScheduler, *storage.SQLite) {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if cfg == nil {
		cfg = &config.Config{}
	}
	api := &mockAPI{}
	sched := &mockScheduler{entry: &model.RunLog{Status: model.StatusSuccess, TotalSaved: 1}}
	b := &Bot{
		api:   api,
		store: store,
		sched: sched,
		cfg:   cfg,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return b, api, sched, store
}

func seedCategory(t *testing.T, store *storage.SQLite, name string) *model.Category {
	t.Helper()
	c := &model.Category{Name: name, SearchQuery: name + " news"}
	if err := store.CreateCategory(context.Background(), c); err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return c
}

func requireContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("reply missing %q, got:\n%s", want, got)
	}
}

func command(chatID, userID int64, text string) *tgbotapi.Message {
	cmd, _, _ := strings.Cut(text, " ")
	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{ID: userID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}
}

// --- handler tests ---

func TestHandleStartAndHelp(t *testing.T) {
	b, api, _, _ := newTestBot(t, nil)
	b.handleStart(100)
	requireContains(t, api.lastText(), "Welcome to News Briefing")
	b.handleHelp(100)
	requireContains(t, api.lastText(), "/schedule <cron expr> on|off")
	requireContains(t, api.lastText(), "/addcat")
}

func TestHandleCommandDispatch(t *testing.T) {
	ctx := context.Background()
	b, api, _, _ := newTestBot(t, nil)

	b.handleCommand(ctx, command(100, 1, "/help"))
	requireContains(t, api.lastText(), "/news [page]")

	b.handleCommand(ctx, command(100, 1, "/bogus"))
	requireContains(t, api.lastText(), "Unknown command")
}

func TestHandleRun(t *testing.T) {
	ctx := context.Background()

	t.Run("replies with report", func(t *testing.T) {
		b, api, sched, _ := newTestBot(t, &config.Config{AdminChatID: 999})
		b.handleRun(ctx, 100)
		if sched.runs != 1 {
			t.Errorf("runs = %d, want 1", sched.runs)
		}
		requireContains(t, api.lastText(), "Run finished: success")
	})

	t.Run("admin chat relies on reporter", func(t *testing.T) {
		b, api, _, _ := newTestBot(t, &config.Config{AdminChatID: 100})
		b.handleRun(ctx, 100)
		if diff := cmp.Diff([]string{"Collecting news..."}, api.allTexts()); diff != "" {
			t.Errorf("messages mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("failure", func(t *testing.T) {
		b, api, sched, _ := newTestBot(t, nil)
		sched.entry = nil
		sched.err = errors.New("list categories: boom")
		b.handleRun(ctx, 100)
		requireContains(t, api.lastText(), "Run failed: list categories: boom")
	})
}

func TestReport(t *testing.T) {
	ctx := context.Background()
	entry := &model.RunLog{Status: model.StatusSuccess}

	b, api, _, _ := newTestBot(t, nil)
	b.Report(ctx, entry, nil)
	if n := len(api.allTexts()); n != 0 {
		t.Errorf("sent %d messages without admin chat", n)
	}

	b, api, _, _ = newTestBot(t, &config.Config{AdminChatID: 42})
	b.Report(ctx, entry, nil)
	got := api.last()
	if got.ChatID != 42 {
		t.Errorf("chat = %d, want 42", got.ChatID)
	}
	requireContains(t, got.Text, "Run finished: success")
}

func TestHandleSchedule(t *testing.T) {
	ctx := context.Background()

	t.Run("usage", func(t *testing.T) {
		b, api, sched, _ := newTestBot(t, nil)
		b.handleSchedule(ctx, 100, "0 */6 * * *")
		requireContains(t, api.lastText(), "Usage: /schedule")
		if len(sched.updates) != 0 {
			t.Errorf("unexpected updates: %v", sched.updates)
		}
	})

	t.Run("enable", func(t *testing.T) {
		b, api, sched, _ := newTestBot(t, nil)
		b.handleSchedule(ctx, 100, "0 */6 * * * on")
		requireContains(t, api.lastText(), "Scheduled runs enabled: 0 */6 * * *")
		if diff := cmp.Diff([]string{"0 */6 * * * true"}, sched.updates); diff != "" {
			t.Errorf("updates mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("disable", func(t *testing.T) {
		b, api, _, _ := newTestBot(t, nil)
		b.handleSchedule(ctx, 100, "@daily off")
		requireContains(t, api.lastText(), "disabled")
	})

	t.Run("invalid expression", func(t *testing.T) {
		b, api, sched, _ := newTestBot(t, nil)
		sched.schedErr = errors.New(`invalid schedule expression "bad": expected 5 to 6 fields`)
		b.handleSchedule(ctx, 100, "bad on")
		requireContains(t, api.lastText(), "Schedule saved but not active")
	})
}

func TestHandleStatus(t *testing.T) {
	ctx := context.Background()
	b, api, sched, store := newTestBot(t, nil)

	b.handleStatus(ctx, 100)
	requireContains(t, api.lastText(), "[disabled]")
	requireContains(t, api.lastText(), "Last run: never")

	if err := store.CreateRunLog(ctx, &model.RunLog{Status: model.StatusSuccess, TotalFetched: 4, TotalSaved: 2}); err != nil {
		t.Fatalf("create run log: %v", err)
	}
	sched.expr = "@hourly"
	b.handleStatus(ctx, 100)
	requireContains(t, api.lastText(), "Schedule: @hourly [active]")
	requireContains(t, api.lastText(), "success, 2 saved of 4 fetched")
}

func TestHandleCategories(t *testing.T) {
	ctx := context.Background()
	b, api, _, store := newTestBot(t, nil)
	sec := seedCategory(t, store, "Security")

	b.handleCategories(ctx, 100)
	got := api.last()
	requireContains(t, got.Text, "Categories (3/7)")
	requireContains(t, got.Text, "Technology [built-in]")
	requireContains(t, got.Text, "Security ["+sec.ID+"]")
	if diff := cmp.Diff([]string{"rmcat_confirm:" + sec.ID}, got.Buttons); diff != "" {
		t.Errorf("buttons mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleAddCategory(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		args string
		want string
	}{
		{name: "usage", args: "Security", want: "Usage: /addcat"},
		{name: "too long", args: strings.Repeat("n", 51) + " | q", want: "name must be at most 50 characters"},
		{name: "duplicate default", args: "Science | space", want: `Category "Science" already exists.`},
		{name: "success", args: "Security | cybersecurity news", want: "Category added: Security"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, api, _, _ := newTestBot(t, nil)
			b.handleAddCategory(ctx, 100, tt.args)
			requireContains(t, api.lastText(), tt.want)
		})
	}

	t.Run("limit", func(t *testing.T) {
		b, api, _, store := newTestBot(t, nil)
		for i := range model.MaxCategories - 2 {
			seedCategory(t, store, fmt.Sprintf("c%d", i))
		}
		b.handleAddCategory(ctx, 100, "Extra | q")
		requireContains(t, api.lastText(), "At most 7 categories")
	})
}

func TestHandleRmCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("usage", func(t *testing.T) {
		b, api, _, _ := newTestBot(t, nil)
		b.handleRmCategory(ctx, 100, "")
		requireContains(t, api.lastText(), "Usage: /rmcat")
	})

	t.Run("not found", func(t *testing.T) {
		b, api, _, _ := newTestBot(t, nil)
		b.handleRmCategory(ctx, 100, "missing")
		requireContains(t, api.lastText(), "Category missing not found.")
	})

	t.Run("default refused", func(t *testing.T) {
		b, api, _, store := newTestBot(t, nil)
		b.handleRmCategory(ctx, 100, model.CategoryTech)
		requireContains(t, api.lastText(), "built-in category and cannot be deleted")
		if _, err := store.GetCategory(ctx, model.CategoryTech); err != nil {
			t.Errorf("default category gone: %v", err)
		}
	})

	t.Run("success", func(t *testing.T) {
		b, api, _, store := newTestBot(t, nil)
		c := seedCategory(t, store, "Security")
		b.handleRmCategory(ctx, 100, c.ID)
		requireContains(t, api.lastText(), `Category "Security" deleted.`)
		if _, err := store.GetCategory(ctx, c.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestHandleRuns(t *testing.T) {
	ctx := context.Background()
	b, api, _, store := newTestBot(t, nil)

	b.handleRuns(ctx, 100)
	requireContains(t, api.lastText(), "No runs yet")

	msg := "not configured: search"
	if err := store.CreateRunLog(ctx, &model.RunLog{Status: model.StatusError, ErrorMessage: &msg}); err != nil {
		t.Fatalf("create run log: %v", err)
	}
	b.handleRuns(ctx, 100)
	requireContains(t, api.lastText(), "error: 0 saved")
	requireContains(t, api.lastText(), msg)
}

func TestHandleNews(t *testing.T) {
	ctx := context.Background()
	b, api, _, store := newTestBot(t, nil)

	b.handleNews(ctx, 100, "")
	requireContains(t, api.lastText(), "No articles yet.")

	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	for i := range 7 {
		a := &model.Article{
			Title:       fmt.Sprintf("Article %d", i),
			URL:         fmt.Sprintf("https://example.com/%d", i),
			Source:      "example.com",
			PublishedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if _, err := store.CreateArticle(ctx, a); err != nil {
			t.Fatalf("create article: %v", err)
		}
	}

	b.handleNews(ctx, 100, "")
	got := api.last()
	requireContains(t, got.Text, "News, page 1 of 2")
	requireContains(t, got.Text, "Article 6")
	if diff := cmp.Diff([]string{"news:2"}, got.Buttons); diff != "" {
		t.Errorf("buttons mismatch (-want +got):\n%s", diff)
	}

	b.handleNews(ctx, 100, "2")
	got = api.last()
	requireContains(t, got.Text, "Article 0")
	if len(got.Buttons) != 0 {
		t.Errorf("last page has buttons %v", got.Buttons)
	}

	b.handleNews(ctx, 100, "x")
	requireContains(t, api.lastText(), "Usage: /news")
}

func TestHandleCallback(t *testing.T) {
	ctx := context.Background()
	from := &tgbotapi.User{ID: 1, UserName: "admin"}

	t.Run("malformed data", func(t *testing.T) {
		b, api, _, _ := newTestBot(t, nil)
		b.handleCallback(ctx, &tgbotapi.CallbackQuery{
			ID:      "cb1",
			Data:    "nocolon",
			From:    from,
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}},
		})
		if diff := cmp.Diff(0, len(api.allTexts())); diff != "" {
			t.Errorf("expected no text messages (-want +got):\n%s", diff)
		}
	})

	t.Run("delete confirm then delete", func(t *testing.T) {
		b, api, _, store := newTestBot(t, nil)
		c := seedCategory(t, store, "Security")

		b.handleCallback(ctx, &tgbotapi.CallbackQuery{
			ID:      "cb2",
			Data:    "rmcat_confirm:" + c.ID,
			From:    from,
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}},
		})
		got := api.last()
		requireContains(t, got.Text, `Delete category "Security"?`)
		if diff := cmp.Diff([]string{"rmcat:" + c.ID, "noop:"}, got.Buttons); diff != "" {
			t.Errorf("buttons mismatch (-want +got):\n%s", diff)
		}

		b.handleCallback(ctx, &tgbotapi.CallbackQuery{
			ID:      "cb3",
			Data:    got.Buttons[0],
			From:    from,
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}},
		})
		requireContains(t, api.lastText(), `Category "Security" deleted.`)
	})

	t.Run("next news page", func(t *testing.T) {
		b, api, _, _ := newTestBot(t, nil)
		b.handleCallback(ctx, &tgbotapi.CallbackQuery{
			ID:      "cb4",
			Data:    "news:1",
			From:    from,
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}},
		})
		requireContains(t, api.lastText(), "No articles yet.")
	})
}

func TestRunDeniesUnknownUsers(t *testing.T) {
	b, api, _, _ := newTestBot(t, &config.Config{AllowedUsers: []int64{7}})
	updates := make(chan tgbotapi.Update, 2)
	updates <- tgbotapi.Update{Message: command(100, 8, "/help")}
	updates <- tgbotapi.Update{Message: command(100, 7, "/start")}
	b.api = &channelAPI{mockAPI: api, updates: updates}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(api.allTexts()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out, sent %v", api.allTexts())
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done

	texts := api.allTexts()
	if texts[0] != "Access denied." {
		t.Errorf("first reply = %q, want Access denied.", texts[0])
	}
	requireContains(t, texts[1], "Welcome to News Briefing")
}

type channelAPI struct {
	*mockAPI
	updates chan tgbotapi.Update
}

func (c *channelAPI) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.updates
}
