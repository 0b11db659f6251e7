package handlers

import (
	"time"

	"github.com/Freeeeeet/slotbook/internal/service"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	userService         *service.UserService
	scheduleService     *service.ScheduleService
	availabilityService *service.AvailabilityService
	bookingService      *service.BookingService
	catalogService      *service.CatalogService
	loc                 *time.Location
	logger              *zap.Logger

	commands map[string]bot.HandlerFunc
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	userService *service.UserService,
	scheduleService *service.ScheduleService,
	availabilityService *service.AvailabilityService,
	bookingService *service.BookingService,
	catalogService *service.CatalogService,
	loc *time.Location,
	logger *zap.Logger,
) *Handlers {
	h := &Handlers{
		userService:         userService,
		scheduleService:     scheduleService,
		availabilityService: availabilityService,
		bookingService:      bookingService,
		catalogService:      catalogService,
		loc:                 loc,
		logger:              logger,
	}

	h.commands = map[string]bot.HandlerFunc{
		"start":          h.HandleStart,
		"help":           h.HandleHelp,
		"becomeprovider": h.HandleBecomeProvider,

		// Клиент
		"catalog":    h.HandleCatalog,
		"services":   h.HandleServices,
		"slots":      h.HandleSlots,
		"book":       h.HandleBook,
		"mybookings": h.HandleMyBookings,
		"cancel":     h.HandleCancel,

		// Провайдер
		"schedule":     h.HandleSchedule,
		"addwindow":    h.HandleAddWindow,
		"editwindow":   h.HandleEditWindow,
		"removewindow": h.HandleRemoveWindow,
		"newservice":   h.HandleNewService,
		"myservices":   h.HandleMyServices,
		"hideservice":  h.HandleHideService,
		"showservice":  h.HandleShowService,
		"bookings":     h.HandleBookings,
		"confirm":      h.HandleConfirm,
		"decline":      h.HandleDecline,
		"complete":     h.HandleComplete,
	}

	return h
}
