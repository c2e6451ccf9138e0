package notify_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/fr4nk3nst1ner/jobluu/internal/models"
	"github.com/fr4nk3nst1ner/jobluu/internal/notify"
)

type botAPI struct {
	mu           sync.Mutex
	messages     []notify.TelegramMessage
	rejectMarkup bool
	paths        []string
}

func (b *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var msg notify.TelegramMessage
	_ = json.NewDecoder(r.Body).Decode(&msg)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paths = append(b.paths, r.URL.Path)
	b.messages = append(b.messages, msg)
	if b.rejectMarkup && msg.ParseMode != "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func newBot(t *testing.T, api *botAPI) *notify.Telegram {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	tg := notify.NewTelegram("123:abc", "-10042", srv.Client(), nil)
	tg.BaseURL = srv.URL
	tg.Pause = 0
	return tg
}

// ── Sending ──

func TestSendUsesBotTokenAndChat(t *testing.T) {
	api := &botAPI{}
	tg := newBot(t, api)

	if err := tg.SendTest(context.Background()); err != nil {
		t.Fatalf("SendTest: %v", err)
	}
	if len(api.messages) != 1 {
		t.Fatalf("messages = %d", len(api.messages))
	}
	if api.paths[0] != "/bot123:abc/sendMessage" {
		t.Errorf("path = %q", api.paths[0])
	}
	if m := api.messages[0]; m.ChatID != "-10042" || m.ParseMode != "MarkdownV2" {
		t.Errorf("message = %+v", m)
	}
}

func TestSendFallsBackToPlainText(t *testing.T) {
	api := &botAPI{rejectMarkup: true}
	tg := newBot(t, api)

	if err := tg.Send(context.Background(), "*Hello* \\(world\\)"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(api.messages) != 2 {
		t.Fatalf("messages = %d, want markdown then plain", len(api.messages))
	}
	plain := api.messages[1]
	if plain.ParseMode != "" || plain.Text != "Hello (world)" {
		t.Errorf("plain retry = %+v", plain)
	}
}

func TestJobsBatchesByTen(t *testing.T) {
	api := &botAPI{}
	tg := newBot(t, api)

	jobs := make([]models.JobRecord, 23)
	for i := range jobs {
		jobs[i] = models.JobRecord{ID: int64(i + 1), Title: fmt.Sprintf("Engineer %d", i+1), Company: "Acme", Salary: "18"}
	}
	if err := tg.Jobs(context.Background(), jobs); err != nil {
		t.Fatalf("Jobs: %v", err)
	}
	if len(api.messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(api.messages))
	}
	if !strings.Contains(api.messages[0].Text, "*23 new*") {
		t.Errorf("first message lacks header: %q", api.messages[0].Text)
	}
	if strings.Contains(api.messages[1].Text, "Alert") {
		t.Errorf("header repeated in later batch")
	}
	last := api.messages[2].Text
	if !strings.Contains(last, "*23\\.* Engineer 23") || !strings.Contains(last, "₹18L") || !strings.Contains(last, "jobluu jobs show 23") {
		t.Errorf("last message = %q", last)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Sr. Engineer (Go)", "Sr\\. Engineer \\(Go\\)"},
		{"C#/.NET", "C\\#/\\.NET"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := notify.EscapeMarkdown(tt.in); got != tt.want {
			t.Errorf("EscapeMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
