package notifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"library-service/pkg/utils"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrEmptyMessage is returned when Send is called with blank text.
var ErrEmptyMessage = errors.New("empty message")

// Telegram sends messages through the Bot API sendMessage method.
type Telegram struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
	log     *zap.Logger
}

func NewTelegram(config utils.TelegramConfig, log *zap.Logger) *Telegram {
	return &Telegram{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		token:   config.BotToken,
		chatID:  config.ChatID,
		client:  utils.NewHTTPClient(10 * time.Second),
		log:     log.With(zap.String("notifier", "telegram")),
	}
}

type sendMessageReply struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	params := url.Values{}
	params.Set("chat_id", t.chatID)
	params.Set("text", text)
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage?%s", t.baseURL, t.token, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		// the URL carries the bot token, keep it out of the error
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		t.log.Warn("Telegram request failed", zap.Error(err))
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read telegram reply: %w", err)
	}

	var reply sendMessageReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return fmt.Errorf("decode telegram reply (%s): %w", resp.Status, err)
	}

	if resp.StatusCode >= 300 || !reply.OK {
		t.log.Warn("Telegram rejected message",
			zap.Int("status", resp.StatusCode),
			zap.Int("error_code", reply.ErrorCode),
			zap.String("description", reply.Description),
		)
		return fmt.Errorf("telegram sendMessage failed: %s: %s", resp.Status, reply.Description)
	}

	return nil
}
