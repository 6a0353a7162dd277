package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"ion-mining-dashboard/internal/types"
	"ion-mining-dashboard/lib/helpers"
	"ion-mining-dashboard/lib/translation"
)

// SinkConfig configuration of the notification sink.
type SinkConfig struct {
	Token  string
	ChatID int64
	Debug  bool
}

// Sink delivers alerts over Telegram. It replaces the dashboard's
// browser notifications: delivery happens only when notifications are
// enabled and the dashboard is backgrounded.
type Sink struct {
	Bot    *tgbotapi.BotAPI
	Config SinkConfig

	// Backgrounded reports whether the dashboard is currently idle;
	// alerts are suppressed while someone is watching the dashboard.
	Backgrounded func() bool
}

func NewSink(cfg SinkConfig, backgrounded func() bool) (*Sink, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	bot.Debug = cfg.Debug

	log.Infof("Notification sink authorized on account %s", bot.Self.UserName)

	return &Sink{Bot: bot, Config: cfg, Backgrounded: backgrounded}, nil
}

// Notify sends one alert. No-op unless notifications are enabled and
// the dashboard is backgrounded; never returns an error to the engine.
func (s *Sink) Notify(alert types.Alert, settings types.AlertSettings) {
	if !settings.NotificationsEnabled {
		return
	}
	if s.Backgrounded != nil && !s.Backgrounded() {
		return
	}

	text := fmt.Sprintf("%s *%s*\n\n%s",
		severityIcon(alert.Severity),
		helpers.EscapeMarkdownV2(translation.Translate(alert.Title)),
		helpers.EscapeMarkdownV2(alert.Message),
	)

	msg := tgbotapi.NewMessage(s.Config.ChatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	// Low and medium severities deliver silently; high severity rings
	// through, the closest analog to requireInteraction.
	msg.DisableNotification = alert.Severity != types.SeverityHigh

	if _, err := s.Bot.Send(msg); err != nil {
		log.Errorf("Failed to send alert notification: %v", err)
	}
}

func severityIcon(severity types.Severity) string {
	switch severity {
	case types.SeverityHigh:
		return "⚠️"
	case types.SeverityMedium:
		return "⚡"
	default:
		return "ℹ️"
	}
}
