package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/slotbook/internal/controller/formatting"
	"github.com/Freeeeeet/slotbook/internal/model"
	"github.com/Freeeeeet/slotbook/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// HandleSchedule обрабатывает команду /schedule
func (h *Handlers) HandleSchedule(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireProvider(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	week, err := h.scheduleService.WeeklySchedule(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, chatID, "schedule", err)
		return
	}

	h.sendMessage(ctx, b, chatID, formatWeek(week))
}

func formatWeek(week []model.DaySchedule) string {
	var sb strings.Builder
	sb.WriteString("🗓 Расписание на неделю:\n\n")

	empty := true
	// Неделя выводится с понедельника
	for i := 1; i <= 7; i++ {
		day := week[i%7]
		if len(day.Windows) == 0 {
			continue
		}
		empty = false

		fmt.Fprintf(&sb, "%s:\n", formatting.GetWeekdayName(day.Weekday))
		for _, w := range day.Windows {
			fmt.Fprintf(&sb, "  #%d %s\n", w.ID, formatting.FormatWindow(w))
		}
	}

	if empty {
		sb.WriteString("Окон пока нет.\n")
	}
	sb.WriteString("\nДобавить окно: /addwindow пн-пт 09:00 18:00")
	return sb.String()
}

// HandleAddWindow обрабатывает команду /addwindow <дни> <ЧЧ:ММ> <ЧЧ:ММ>
func (h *Handlers) HandleAddWindow(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireProvider(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) != 3 {
		h.sendError(ctx, b, chatID, "Использование: /addwindow <дни> <ЧЧ:ММ> <ЧЧ:ММ>\nНапример: /addwindow 1,3,5 09:00 13:00")
		return
	}

	days, err := ParseWeekdays(args[0])
	if err != nil {
		h.replyError(ctx, b, chatID, "add window", err)
		return
	}
	start, end, err := parseTimeRange(args[1], args[2])
	if err != nil {
		h.replyError(ctx, b, chatID, "add window", err)
		return
	}

	windows, err := h.scheduleService.AddWindowGroup(ctx, user.ID, days, start, end)
	if err != nil {
		h.replyError(ctx, b, chatID, "add window", err)
		return
	}

	var sb strings.Builder
	sb.WriteString("✅ Окна добавлены:\n")
	for _, w := range windows {
		fmt.Fprintf(&sb, "#%d %s %s\n", w.ID, formatting.GetWeekdayShortName(w.Weekday), formatting.FormatWindow(w))
	}
	h.sendMessage(ctx, b, chatID, sb.String())
}

// HandleEditWindow обрабатывает команду /editwindow <ID> <ЧЧ:ММ> <ЧЧ:ММ>
func (h *Handlers) HandleEditWindow(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireProvider(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) != 3 {
		h.sendError(ctx, b, chatID, "Использование: /editwindow <ID> <ЧЧ:ММ> <ЧЧ:ММ>")
		return
	}

	windowID, err := ParseID(args[0])
	if err != nil {
		h.replyError(ctx, b, chatID, "edit window", err)
		return
	}
	start, end, err := parseTimeRange(args[1], args[2])
	if err != nil {
		h.replyError(ctx, b, chatID, "edit window", err)
		return
	}

	w, err := h.scheduleService.UpdateWindow(ctx, user.ID, windowID, start, end)
	if err != nil {
		h.replyError(ctx, b, chatID, "edit window", err)
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf("✅ Окно #%d: %s %s\n\nУже созданные записи не изменились.",
		w.ID, formatting.GetWeekdayShortName(w.Weekday), formatting.FormatWindow(w)))
}

// HandleRemoveWindow обрабатывает команду /removewindow <ID> [all].
// С all удаляются все окна, добавленные вместе с этим.
func (h *Handlers) HandleRemoveWindow(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireProvider(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) < 1 || len(args) > 2 || (len(args) == 2 && args[1] != "all") {
		h.sendError(ctx, b, chatID, "Использование: /removewindow <ID> [all]")
		return
	}

	windowID, err := ParseID(args[0])
	if err != nil {
		h.replyError(ctx, b, chatID, "remove window", err)
		return
	}

	if len(args) == 1 {
		if err := h.scheduleService.RemoveWindow(ctx, user.ID, windowID); err != nil {
			h.replyError(ctx, b, chatID, "remove window", err)
			return
		}
		h.sendMessage(ctx, b, chatID, "🗑 Окно удалено. Существующие записи сохранены.")
		return
	}

	windows, err := h.scheduleService.ListWindows(ctx, user.ID, nil)
	if err != nil {
		h.replyError(ctx, b, chatID, "remove window", err)
		return
	}

	for _, w := range windows {
		if w.ID != windowID {
			continue
		}
		removed, err := h.scheduleService.RemoveWindowGroup(ctx, user.ID, w.GroupID)
		if err != nil {
			h.replyError(ctx, b, chatID, "remove window", err)
			return
		}
		h.sendMessage(ctx, b, chatID, fmt.Sprintf("🗑 Удалено окон: %d. Существующие записи сохранены.", removed))
		return
	}

	h.replyError(ctx, b, chatID, "remove window", fmt.Errorf("window %d: %w", windowID, model.ErrNotFound))
}

// HandleNewService обрабатывает команду /newservice <минут> <цена> <название>
func (h *Handlers) HandleNewService(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireProvider(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) < 3 {
		h.sendError(ctx, b, chatID, "Использование: /newservice <минут> <цена> <название>\nНапример: /newservice 60 1500₽ Консультация")
		return
	}

	minutes, err := strconv.Atoi(args[0])
	if err != nil {
		h.sendError(ctx, b, chatID, fmt.Sprintf("❌ Длительность должна быть числом минут от %d до %d",
			service.MinServiceDuration, service.MaxServiceDuration))
		return
	}

	svc, err := h.catalogService.CreateService(ctx, service.CreateServiceRequest{
		ProviderID:      user.ID,
		Title:           strings.Join(args[2:], " "),
		DurationMinutes: minutes,
		DisplayPrice:    args[1],
	})
	if err != nil {
		h.replyError(ctx, b, chatID, "new service", err)
		return
	}

	h.sendMessage(ctx, b, chatID, "✅ Услуга создана:\n"+formatting.FormatService(svc))
}

// HandleMyServices обрабатывает команду /myservices
func (h *Handlers) HandleMyServices(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireProvider(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	services, err := h.catalogService.ListProviderServices(ctx, user.ID, false)
	if err != nil {
		h.replyError(ctx, b, chatID, "my services", err)
		return
	}

	if len(services) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 У вас пока нет услуг.\n\nСоздать: /newservice <минут> <цена> <название>")
		return
	}

	var sb strings.Builder
	sb.WriteString("📚 Ваши услуги:\n\n")
	for _, s := range services {
		sb.WriteString(formatting.FormatService(s))
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nКлиенты найдут их по команде /services %d", user.ID)
	h.sendMessage(ctx, b, chatID, sb.String())
}

// HandleHideService обрабатывает команду /hideservice <ID>
func (h *Handlers) HandleHideService(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleServiceActive(ctx, b, update, false)
}

// HandleShowService обрабатывает команду /showservice <ID>
func (h *Handlers) HandleShowService(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleServiceActive(ctx, b, update, true)
}

func (h *Handlers) handleServiceActive(ctx context.Context, b *bot.Bot, update *models.Update, active bool) {
	user, ok := h.requireProvider(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) != 1 {
		h.sendError(ctx, b, chatID, "Укажите ID услуги")
		return
	}

	serviceID, err := ParseID(args[0])
	if err != nil {
		h.replyError(ctx, b, chatID, "service active", err)
		return
	}

	if err := h.catalogService.SetServiceActive(ctx, user.ID, serviceID, active); err != nil {
		h.replyError(ctx, b, chatID, "service active", err)
		return
	}

	if active {
		h.sendMessage(ctx, b, chatID, "👁 Услуга снова доступна для записи.")
	} else {
		h.sendMessage(ctx, b, chatID, "🙈 Услуга скрыта. Существующие записи сохранены.")
	}
}

// HandleBookings обрабатывает команду /bookings [ГГГГ-ММ-ДД]
func (h *Handlers) HandleBookings(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireProvider(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	date := time.Now().In(h.loc)
	if args := commandArgs(update.Message.Text); len(args) > 0 {
		var err error
		if date, err = ParseDate(args[0], h.loc); err != nil {
			h.replyError(ctx, b, chatID, "bookings", err)
			return
		}
	}

	bookings, err := h.bookingService.ProviderBookingsOn(ctx, user.ID, date)
	if err != nil {
		h.replyError(ctx, b, chatID, "bookings", err)
		return
	}

	stats, err := h.bookingService.ProviderStats(ctx, user.ID)
	if err != nil {
		h.replyError(ctx, b, chatID, "bookings", err)
		return
	}
	header := formatting.FormatProviderStats(stats) + "\n\n"

	if len(bookings) == 0 {
		h.sendMessage(ctx, b, chatID, header+fmt.Sprintf("📭 На %s записей нет.", formatting.FormatDateWithWeekday(date)))
		return
	}

	h.sendMessage(ctx, b, chatID, header+fmt.Sprintf("📅 Записи на %s:\n\n%s",
		formatting.FormatDateWithWeekday(date), formatBookings(bookings)))
}

// HandleConfirm обрабатывает команду /confirm <ID записи>
func (h *Handlers) HandleConfirm(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleTransition(ctx, b, update, "confirm", h.bookingService.Confirm, "✅ Запись подтверждена.")
}

// HandleDecline обрабатывает команду /decline <ID записи>
func (h *Handlers) HandleDecline(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleTransition(ctx, b, update, "decline", h.bookingService.Decline, "🚫 Запись отклонена, время освобождено.")
}

// HandleComplete обрабатывает команду /complete <ID записи>
func (h *Handlers) HandleComplete(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleTransition(ctx, b, update, "complete", h.bookingService.Complete, "🏁 Запись завершена.")
}

type transitionFunc func(ctx context.Context, bookingID, actorID int64) (*model.Booking, error)

// handleTransition общий разбор команд смены статуса. Права участника проверяет сервис.
func (h *Handlers) handleTransition(ctx context.Context, b *bot.Bot, update *models.Update, op string, transition transitionFunc, done string) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) != 1 {
		h.sendError(ctx, b, chatID, fmt.Sprintf("Использование: /%s <ID записи>", op))
		return
	}

	bookingID, err := ParseID(args[0])
	if err != nil {
		h.replyError(ctx, b, chatID, op, err)
		return
	}

	booking, err := transition(ctx, bookingID, user.ID)
	if err != nil {
		h.replyError(ctx, b, chatID, op, err)
		return
	}

	h.sendMessage(ctx, b, chatID, done+"\n\n"+formatting.FormatBooking(booking))
}

func parseTimeRange(from, to string) (model.TimeOfDay, model.TimeOfDay, error) {
	start, err := model.ParseTimeOfDay(from)
	if err != nil {
		return 0, 0, err
	}
	end, err := model.ParseTimeOfDay(to)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
