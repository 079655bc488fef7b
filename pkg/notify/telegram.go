package notify

import (
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
)

// Telegram sends messages through the Bot API sendMessage endpoint.
type Telegram struct {
	client *resty.Client
	token  string
	chatID string
}

// NewTelegram creates a Telegram notifier. Returns nil-safe behavior via
// Notify when token or chatID is empty.
func NewTelegram(token, chatID string) *Telegram {
	client := resty.New().
		SetBaseURL("https://api.telegram.org").
		SetTimeout(10 * time.Second).
		SetRetryCount(2)
	return &Telegram{client: client, token: token, chatID: chatID}
}

// Notify posts the message with Markdown parsing. Errors are logged and
// dropped.
func (t *Telegram) Notify(message string) {
	if t.token == "" || t.chatID == "" {
		return
	}

	resp, err := t.client.R().
		SetFormData(map[string]string{
			"chat_id":    t.chatID,
			"text":       message,
			"parse_mode": "Markdown",
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", t.token))
	if err != nil {
		log.Printf("telegram: send failed: %v", err)
		return
	}
	if resp.IsError() {
		log.Printf("telegram: send status %d: %s", resp.StatusCode(), resp.String())
	}
}
