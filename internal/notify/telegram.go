package notify

import (
	"encoding/json"
	"fmt"

	"fonteyn/internal/config"
	"fonteyn/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Notifier forwards domain events to the managers chat in Telegram.
// Delivery is best effort; a lost notification never fails the operation
// that produced it.
type Notifier struct {
	bot          *tgbotapi.BotAPI
	managersChat int64
	logger       zerolog.Logger
}

func NewNotifier(cfg config.TelegramConfig, logger *zerolog.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	bot.Debug = cfg.Debug

	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "notifier").Logger()
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("telegram notifier ready")

	return &Notifier{
		bot:          bot,
		managersChat: cfg.ManagersChat,
		logger:       log,
	}, nil
}

// SubscribeTo registers the notifier on the event bus.
func (n *Notifier) SubscribeTo(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, n.onBookingCreated)
	bus.Subscribe(events.EventUserRegistered, n.onUserRegistered)
}

func (n *Notifier) onBookingCreated(event *events.Event) error {
	var payload events.BookingEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		n.logger.Error().Err(err).Msg("decode booking event failed")
		return err
	}

	text := fmt.Sprintf(
		"🏠 Новое бронирование №%d\n\n%s\n%s — %s (%d ноч.)\nСумма: %.2f, не оплачено",
		payload.BookingID,
		payload.RoomName,
		payload.StartDate,
		payload.EndDate,
		payload.Nights,
		payload.TotalCost,
	)
	n.send(text)
	return nil
}

func (n *Notifier) onUserRegistered(event *events.Event) error {
	var payload events.UserEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		n.logger.Error().Err(err).Msg("decode user event failed")
		return err
	}

	n.send(fmt.Sprintf("👤 Новый пользователь: %s (id %d)", payload.Username, payload.UserID))
	return nil
}

func (n *Notifier) send(text string) {
	if n.managersChat == 0 {
		return
	}
	msg := tgbotapi.NewMessage(n.managersChat, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error().Err(err).Msg("telegram send failed")
	}
}
