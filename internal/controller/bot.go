package controller

import (
	"context"
	"time"

	"github.com/Freeeeeet/slotbook/internal/controller/handlers"
	"github.com/Freeeeeet/slotbook/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Services сервисы, которые нужны контроллеру
type Services struct {
	Users        *service.UserService
	Schedule     *service.ScheduleService
	Availability *service.AvailabilityService
	Bookings     *service.BookingService
	Catalog      *service.CatalogService
}

type BotController struct {
	bot      *bot.Bot
	handlers *handlers.Handlers
	logger   *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	services Services,
	loc *time.Location,
	logger *zap.Logger,
) *BotController {
	// Создаём обработчики команд
	cmdHandlers := handlers.NewHandlers(
		services.Users,
		services.Schedule,
		services.Availability,
		services.Bookings,
		services.Catalog,
		loc,
		logger,
	)

	return &BotController{
		bot:      botInstance,
		handlers: cmdHandlers,
		logger:   logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	// Все команды идут в Route, имя команды он разбирает сам
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/", bot.MatchTypePrefix, c.handlers.Route)

	// Устанавливаем меню команд
	return c.setCommands(ctx)
}

// menuCommands команды, которые показываются в меню бота
func menuCommands() []models.BotCommand {
	return []models.BotCommand{
		{Command: "start", Description: "🚀 Начать работу с ботом"},
		{Command: "help", Description: "❓ Справка по командам"},
		{Command: "catalog", Description: "🔎 Каталог услуг"},
		{Command: "services", Description: "📚 Услуги провайдера"},
		{Command: "slots", Description: "🕐 Свободное время услуги"},
		{Command: "book", Description: "📝 Записаться"},
		{Command: "mybookings", Description: "📅 Мои записи"},
		{Command: "cancel", Description: "❌ Отменить запись"},
		{Command: "becomeprovider", Description: "🎓 Стать провайдером"},
		{Command: "schedule", Description: "🗓 Моё расписание (провайдер)"},
		{Command: "myservices", Description: "🧾 Мои услуги (провайдер)"},
		{Command: "bookings", Description: "📋 Записи на день (провайдер)"},
	}
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: menuCommands(),
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота и блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}
