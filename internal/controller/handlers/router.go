package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Route разбирает команду из текста сообщения и вызывает её обработчик
func (h *Handlers) Route(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	name, _, ok := ParseCommand(update.Message.Text)
	if !ok {
		return
	}

	handler, found := h.commands[name]
	if !found {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "🤷 Неизвестная команда. Список команд: /help")
		return
	}

	h.logger.Debug("Command received",
		zap.String("command", name),
		zap.Int64("telegram_id", update.Message.From.ID),
	)

	handler(ctx, b, update)
}

// Commands имена зарегистрированных команд
func (h *Handlers) Commands() []string {
	names := make([]string, 0, len(h.commands))
	for name := range h.commands {
		names = append(names, name)
	}
	return names
}
