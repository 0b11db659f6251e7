package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	user := update.Message.From

	// Регистрируем пользователя
	registeredUser, err := h.userService.RegisterUser(
		ctx,
		user.ID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.LanguageCode,
	)

	if err != nil {
		h.logger.Error("Failed to register user", zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка при регистрации. Попробуйте позже.")
		return
	}

	welcomeText := fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Добро пожаловать в Slotbook - бот для записи к мастерам и специалистам.\n"+
			"Ваш ID: %d\n\n"+
			"Доступные команды:\n"+
			"/catalog [поиск] - Каталог услуг\n"+
			"/services <ID провайдера> - Услуги провайдера\n"+
			"/mybookings - Мои записи\n"+
			"/help - Справка\n\n"+
			"Принимаете клиентов? /becomeprovider",
		registeredUser.FirstName,
		registeredUser.ID,
	)

	h.sendMessage(ctx, b, update.Message.Chat.ID, welcomeText)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	helpText := "📚 Справка по командам:\n\n" +
		"Для клиентов:\n" +
		"/catalog [страница] [поиск] - Каталог услуг\n" +
		"/services <ID провайдера> - Услуги провайдера\n" +
		"/slots <ID услуги> [дней] - Свободное время\n" +
		"/book <ID услуги> <ГГГГ-ММ-ДД> <ЧЧ:ММ> [комментарий] - Записаться\n" +
		"/mybookings [all|past] - Мои записи\n" +
		"/cancel <ID записи> - Отменить запись\n\n" +
		"Для провайдеров:\n" +
		"/becomeprovider - Стать провайдером\n" +
		"/schedule - Расписание на неделю\n" +
		"/addwindow <дни> <ЧЧ:ММ> <ЧЧ:ММ> - Добавить окно (дни: 1,3,5 или пн-пт)\n" +
		"/editwindow <ID> <ЧЧ:ММ> <ЧЧ:ММ> - Изменить окно\n" +
		"/removewindow <ID> - Удалить окно\n" +
		"/newservice <минут> <цена> <название> - Новая услуга\n" +
		"/myservices - Мои услуги\n" +
		"/hideservice <ID>, /showservice <ID> - Скрыть или вернуть услугу\n" +
		"/bookings [ГГГГ-ММ-ДД] - Записи на день\n" +
		"/confirm <ID>, /decline <ID>, /complete <ID> - Решение по записи"

	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText)
}

// HandleBecomeProvider обрабатывает команду /becomeprovider
func (h *Handlers) HandleBecomeProvider(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	if user.IsProvider {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "ℹ️ Вы уже провайдер.\n\nРасписание: /schedule")
		return
	}

	if _, err := h.userService.MakeProvider(ctx, user.ID); err != nil {
		h.replyError(ctx, b, update.Message.Chat.ID, "become provider", err)
		return
	}

	text := fmt.Sprintf(
		"🎉 Теперь вы провайдер!\n\n"+
			"Ваш ID для клиентов: %d\n\n"+
			"1. Добавьте рабочие окна: /addwindow пн-пт 09:00 18:00\n"+
			"2. Создайте услугу: /newservice 60 1500₽ Консультация",
		user.ID,
	)
	h.sendMessage(ctx, b, update.Message.Chat.ID, text)
}
