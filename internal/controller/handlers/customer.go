package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Freeeeeet/slotbook/internal/controller/formatting"
	"github.com/Freeeeeet/slotbook/internal/model"
	"github.com/Freeeeeet/slotbook/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// HandleServices обрабатывает команду /services <ID провайдера>
func (h *Handlers) HandleServices(ctx context.Context, b *bot.Bot, update *models.Update) {
	if _, ok := h.requireUser(ctx, b, update); !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) != 1 {
		h.sendError(ctx, b, chatID, "Использование: /services <ID провайдера>")
		return
	}

	providerID, err := ParseID(args[0])
	if err != nil {
		h.replyError(ctx, b, chatID, "services", err)
		return
	}

	services, err := h.catalogService.ListProviderServices(ctx, providerID, true)
	if err != nil {
		h.replyError(ctx, b, chatID, "services", err)
		return
	}

	if len(services) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 У провайдера пока нет доступных услуг.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📚 Услуги провайдера:\n\n")
	for _, s := range services {
		sb.WriteString(formatting.FormatService(s))
		sb.WriteString("\n")
	}
	sb.WriteString("\nСвободное время: /slots <ID услуги>")

	h.sendMessage(ctx, b, chatID, sb.String())
}

// HandleCatalog обрабатывает команду /catalog [страница] [поиск]
func (h *Handlers) HandleCatalog(ctx context.Context, b *bot.Bot, update *models.Update) {
	if _, ok := h.requireUser(ctx, b, update); !ok {
		return
	}
	chatID := update.Message.Chat.ID

	page, query := ParseCatalogArgs(commandArgs(update.Message.Text))

	result, err := h.catalogService.BrowseServices(ctx, query, page)
	if err != nil {
		h.replyError(ctx, b, chatID, "catalog", err)
		return
	}

	if len(result.Services) == 0 {
		if query != "" {
			h.sendMessage(ctx, b, chatID, fmt.Sprintf("📭 По запросу «%s» ничего не найдено.", query))
			return
		}
		h.sendMessage(ctx, b, chatID, "📭 В каталоге пока нет услуг.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📚 Каталог услуг, страница %d:\n\n", result.Page)
	for _, s := range result.Services {
		sb.WriteString(formatting.FormatService(s))
		fmt.Fprintf(&sb, ", провайдер %d\n", s.ProviderID)
	}
	sb.WriteString("\nСвободное время: /slots <ID услуги>")
	if result.HasNext {
		next := fmt.Sprintf("/catalog %d", result.Page+1)
		if query != "" {
			next += " " + query
		}
		fmt.Fprintf(&sb, "\nДальше: %s", next)
	}

	h.sendMessage(ctx, b, chatID, sb.String())
}

// HandleSlots обрабатывает команду /slots <ID услуги> [дней]
func (h *Handlers) HandleSlots(ctx context.Context, b *bot.Bot, update *models.Update) {
	if _, ok := h.requireUser(ctx, b, update); !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) < 1 || len(args) > 2 {
		h.sendError(ctx, b, chatID, "Использование: /slots <ID услуги> [дней]")
		return
	}

	serviceID, err := ParseID(args[0])
	if err != nil {
		h.replyError(ctx, b, chatID, "slots", err)
		return
	}

	daysAhead := 0
	if len(args) == 2 {
		daysAhead, err = strconv.Atoi(args[1])
		if err != nil || daysAhead <= 0 {
			h.sendError(ctx, b, chatID, fmt.Sprintf("❌ Количество дней должно быть числом от 1 до %d", service.MaxDaysAhead))
			return
		}
	}

	svc, err := h.catalogService.GetService(ctx, serviceID)
	if err != nil {
		h.replyError(ctx, b, chatID, "slots", err)
		return
	}
	if !svc.IsActive {
		h.sendError(ctx, b, chatID, "❌ Услуга сейчас недоступна для записи.")
		return
	}

	days, err := h.availabilityService.GetAvailableDates(ctx, svc.ProviderID, svc.DurationMinutes, daysAhead)
	if err != nil {
		h.replyError(ctx, b, chatID, "slots", err)
		return
	}

	h.sendMessage(ctx, b, chatID, formatAvailability(svc, days))
}

func formatAvailability(svc *model.Service, days []model.DayAvailability) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🗓 %s (%s)\n\n", svc.Title, formatting.FormatDuration(svc.DurationMinutes))

	found := false
	for _, day := range days {
		if len(day.Slots) == 0 {
			continue
		}
		found = true
		fmt.Fprintf(&sb, "%s: %s\n", formatting.FormatDateWithWeekday(day.Date), formatting.FormatSlots(day.Slots))
	}

	if !found {
		sb.WriteString("😔 Свободного времени нет.")
		return sb.String()
	}

	fmt.Fprintf(&sb, "\nЗаписаться: /book %d <ГГГГ-ММ-ДД> <ЧЧ:ММ>", svc.ID)
	return sb.String()
}

// HandleBook обрабатывает команду /book <ID услуги> <ГГГГ-ММ-ДД> <ЧЧ:ММ> [комментарий]
func (h *Handlers) HandleBook(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) < 3 {
		h.sendError(ctx, b, chatID, "Использование: /book <ID услуги> <ГГГГ-ММ-ДД> <ЧЧ:ММ> [комментарий]")
		return
	}

	serviceID, err := ParseID(args[0])
	if err != nil {
		h.replyError(ctx, b, chatID, "book", err)
		return
	}
	date, err := ParseDate(args[1], h.loc)
	if err != nil {
		h.replyError(ctx, b, chatID, "book", err)
		return
	}
	start, err := model.ParseTimeOfDay(args[2])
	if err != nil {
		h.replyError(ctx, b, chatID, "book", err)
		return
	}

	svc, err := h.catalogService.GetService(ctx, serviceID)
	if err != nil {
		h.replyError(ctx, b, chatID, "book", err)
		return
	}

	booking, err := h.bookingService.Reserve(ctx, service.ReserveRequest{
		CustomerID: user.ID,
		ProviderID: svc.ProviderID,
		ServiceID:  svc.ID,
		Date:       date,
		StartTime:  start,
		Notes:      strings.Join(args[3:], " "),
	})
	if err != nil {
		h.replyError(ctx, b, chatID, "book", err)
		return
	}
	booking.Service = svc

	h.sendMessage(ctx, b, chatID, "✅ Заявка отправлена провайдеру!\n\n"+formatting.FormatBooking(booking))
}

// HandleMyBookings обрабатывает команду /mybookings [all|past]
func (h *Handlers) HandleMyBookings(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}
	chatID := update.Message.Chat.ID

	filter := model.BookingFilterUpcoming
	if args := commandArgs(update.Message.Text); len(args) > 0 {
		filter = model.BookingFilter(strings.ToLower(args[0]))
	}

	bookings, err := h.bookingService.CustomerBookings(ctx, user.ID, filter)
	if err != nil {
		h.replyError(ctx, b, chatID, "my bookings", err)
		return
	}

	if len(bookings) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 Записей нет.\n\nСвободное время услуги: /slots <ID услуги>")
		return
	}

	h.sendMessage(ctx, b, chatID, "📅 Ваши записи:\n\n"+formatBookings(bookings))
}

// HandleCancel обрабатывает команду /cancel <ID записи>
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleTransition(ctx, b, update, "cancel", h.bookingService.Cancel, "❌ Запись отменена.")
}

func formatBookings(bookings []*model.Booking) string {
	parts := make([]string, len(bookings))
	for i, booking := range bookings {
		parts[i] = formatting.FormatBooking(booking)
	}
	return strings.Join(parts, "\n\n")
}
