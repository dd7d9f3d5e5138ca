package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"cashier/providers"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func init() {
	providers.Register("telegram", New)
}

type Channel struct {
	bot *tgbotapi.BotAPI
}

func New(s providers.Settings) (providers.SideChannel, error) {
	if s.Token == "" {
		return nil, errors.New("telegram bot token is empty")
	}
	client := &http.Client{Timeout: s.Timeout}
	bot, err := tgbotapi.NewBotAPIWithClient(s.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Channel{bot: bot}, nil
}

func (c *Channel) Name() string { return "telegram" }

// ParseChatID validates a stored chat identity.
func ParseChatID(identity string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(identity), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", providers.ErrInvalidIdentity, identity)
	}
	return id, nil
}

func (c *Channel) Send(ctx context.Context, identity string, msg providers.Message) error {
	chatID, err := ParseChatID(identity)
	if err != nil {
		return err
	}

	out := tgbotapi.NewMessage(chatID, msg.Text())
	done := make(chan error, 1)
	go func() {
		_, err := c.bot.Send(out)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
