// Package notify delivers new-job alerts outside the terminal
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/fr4nk3nst1ner/jobluu/internal/client"
	"github.com/fr4nk3nst1ner/jobluu/internal/models"
	"github.com/fr4nk3nst1ner/jobluu/internal/utils"
)

const (
	DefaultTelegramURL = "https://api.telegram.org"
	batchSize          = 10
)

// TelegramMessage is the sendMessage request body
type TelegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// Telegram posts alerts to one chat through the Bot API
type Telegram struct {
	BaseURL string
	// Pause is the wait between batches, which keeps long alerts under the
	// Bot API rate limit
	Pause time.Duration

	token  string
	chatID string
	http   *http.Client
	log    *pterm.Logger
}

// NewTelegram returns a notifier for chatID. httpClient may be nil.
func NewTelegram(token, chatID string, httpClient *http.Client, log *pterm.Logger) *Telegram {
	if httpClient == nil {
		httpClient = client.CreateHTTPClient("", 0)
	}
	if log == nil {
		log = pterm.DefaultLogger.WithWriter(io.Discard)
	}
	return &Telegram{
		BaseURL: DefaultTelegramURL,
		Pause:   2 * time.Second,
		token:   token,
		chatID:  chatID,
		http:    httpClient,
		log:     log,
	}
}

// Jobs sends one alert for jobs, split into messages of at most ten jobs.
// It keeps going when a batch fails and returns the first error.
func (t *Telegram) Jobs(ctx context.Context, jobs []models.JobRecord) error {
	var firstErr error
	for i := 0; i < len(jobs); i += batchSize {
		end := min(i+batchSize, len(jobs))

		var sb strings.Builder
		if i == 0 {
			sb.WriteString("🎯 *Jobluu Alert*\n\n")
			fmt.Fprintf(&sb, "Found *%d new* job\\(s\\) matching your search\\!\n\n", len(jobs))
			sb.WriteString("━━━━━━━━━━━━━━━━━━━━\n\n")
		}
		for j, job := range jobs[i:end] {
			sb.WriteString(formatJob(i+j+1, job))
		}
		if end == len(jobs) {
			sb.WriteString("━━━━━━━━━━━━━━━━━━━━\n")
			sb.WriteString("📅 " + EscapeMarkdown(time.Now().Format("Jan 2, 2006 3:04 PM")))
		}

		if err := t.Send(ctx, sb.String()); err != nil {
			t.log.Warn("telegram batch failed", t.log.Args("from", i+1, "to", end, "error", err))
			if firstErr == nil {
				firstErr = err
			}
		}

		if end < len(jobs) && t.Pause > 0 {
			select {
			case <-time.After(t.Pause):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return firstErr
}

func formatJob(n int, job models.JobRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%d\\.* %s\n", n, EscapeMarkdown(job.Title))
	fmt.Fprintf(&sb, "   🏢 %s\n", EscapeMarkdown(job.Company))
	if job.Location != "" {
		fmt.Fprintf(&sb, "   📍 %s\n", EscapeMarkdown(job.Location))
	}
	if job.Salary != "" {
		fmt.Fprintf(&sb, "   💰 %s\n", EscapeMarkdown(utils.FormatSalary(string(job.Salary))))
	}
	if job.ID != 0 {
		fmt.Fprintf(&sb, "   🔎 `jobluu jobs show %d`\n", job.ID)
	}
	sb.WriteString("\n")
	return sb.String()
}

// SendTest sends a message confirming the bot and chat are reachable
func (t *Telegram) SendTest(ctx context.Context) error {
	return t.Send(ctx, "🧪 *Jobluu Test*\n\nTelegram alerts are working\\!")
}

// Send posts text as MarkdownV2, retrying once as plain text when
// Telegram rejects the markup
func (t *Telegram) Send(ctx context.Context, text string) error {
	status, err := t.post(ctx, TelegramMessage{ChatID: t.chatID, Text: text, ParseMode: "MarkdownV2"})
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}

	t.log.Debug("telegram rejected markdown, retrying as plain text", t.log.Args("status", status))
	status, err = t.post(ctx, TelegramMessage{ChatID: t.chatID, Text: stripMarkdown(text)})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("telegram API returned status: %d", status)
	}
	return nil
}

func (t *Telegram) post(ctx context.Context, msg TelegramMessage) (int, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal message: %w", err)
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.BaseURL, "/"), t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		// the URL carries the bot token, keep it out of logs
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// EscapeMarkdown escapes text for Telegram MarkdownV2
func EscapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

var markdownStripper = strings.NewReplacer("\\", "", "*", "", "_", "", "`", "")

func stripMarkdown(text string) string {
	return markdownStripper.Replace(text)
}
