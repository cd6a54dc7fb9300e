package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// DefaultLineAPI is the LINE Messaging API host.
const DefaultLineAPI = "https://api.line.me"

// lineTextLimit is the maximum length of a LINE text message.
const lineTextLimit = 5000

// LineNotifier pushes text messages to one user through the LINE Messaging API.
type LineNotifier struct {
	AccessToken string
	UserID      string
	BaseURL     string
	Client      *http.Client
}

// NewLineNotifier creates a LINE push notifier with optional proxy support.
func NewLineNotifier(accessToken, userID, proxyURL string) *LineNotifier {
	return &LineNotifier{
		AccessToken: accessToken,
		UserID:      userID,
		BaseURL:     DefaultLineAPI,
		Client:      newHTTPClient(proxyURL),
	}
}

func (l *LineNotifier) Name() string { return "line" }

type linePush struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Send pushes text to the configured user.
func (l *LineNotifier) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(linePush{
		To:       l.UserID,
		Messages: []lineMessage{{Type: "text", Text: clip(text, lineTextLimit)}},
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	u := strings.TrimRight(l.BaseURL, "/") + "/v2/bot/message/push"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.AccessToken)

	resp, err := l.Client.Do(req)
	if err != nil {
		return fmt.Errorf("push message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("line API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func clip(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}
