package notify

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink posts notifications to one chat, usually the branch
// dispatchers' group.
type TelegramSink struct {
	api    messageSender
	chatID int64
}

func NewTelegramSink(token, chatID string) (*TelegramSink, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse telegram chat id: %w", err)
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramSink{api: api, chatID: id}, nil
}

func (s *TelegramSink) Send(_ context.Context, n Notification) error {
	text := n.Title + "\n" + n.Message
	if n.Level == LevelError {
		text = "⚠️ " + text
	}
	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.DisableNotification = n.Level != LevelError
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
