// Package bot links Telegram chats to accounts and delivers study reminders.
package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/example/zeeguu/internal/service"
	"github.com/example/zeeguu/pkg/models"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// Accounts is what the bot needs from the account service
type Accounts interface {
	RedeemTelegram(ctx context.Context, code string, chatID int64) (*models.User, error)
	UserByTelegramChat(ctx context.Context, chatID int64) (*models.User, error)
	UpdateSettings(ctx context.Context, user *models.User, patch service.SettingsPatch) (*models.User, error)
}

// Study is what the bot needs from the study service
type Study interface {
	DueCount(ctx context.Context, user *models.User) (int, error)
	OutcomeStats(ctx context.Context, user *models.User, days int) (map[string]int, error)
}

// messenger is the part of the Telegram API the bot writes to
type messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// ErrNotLinked is returned when a reminder is sent to a user without a chat
var ErrNotLinked = errors.New("user has no linked telegram chat")

// Bot represents the Telegram bot application
type Bot struct {
	client   *tgbotapi.BotAPI
	api      messenger
	accounts Accounts
	study    Study
	config   *Config
	logger   logrus.FieldLogger
}

// New connects to Telegram with the configured token
func New(cfg *Config, accounts Accounts, study Study, logger logrus.FieldLogger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is not set")
	}
	client, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	b := newBot(client, accounts, study, cfg, logger)
	b.client = client
	logger.WithField("account", client.Self.UserName).Info("Telegram bot authorized")
	return b, nil
}

func newBot(api messenger, accounts Accounts, study Study, cfg *Config, logger logrus.FieldLogger) *Bot {
	return &Bot{
		api:      api,
		accounts: accounts,
		study:    study,
		config:   cfg,
		logger:   logger,
	}
}

// Start handles updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	if b.client == nil {
		return fmt.Errorf("bot is not connected")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = int(b.config.PollTimeout.Seconds())
	updates := b.client.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.client.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// SendReminder implements scheduler.Notifier
func (b *Bot) SendReminder(ctx context.Context, user *models.User, due int) error {
	if user.TelegramChatID == nil {
		return ErrNotLinked
	}
	wordForm := "words"
	if due == 1 {
		wordForm = "word"
	}
	msg := tgbotapi.NewMessage(*user.TelegramChatID,
		fmt.Sprintf("📚 You have %d %s to practise in %s. Open Zeeguu to keep your streak going!",
			due, wordForm, models.LanguageName(user.LearnedLanguage)))
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	b.logger.WithFields(logrus.Fields{"user_id": user.ID, "due": due}).Debug("Reminder sent")
	return nil
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.Message != nil && update.Message.IsCommand():
		err = b.HandleCommand(ctx, update.Message)
	case update.Message != nil:
		err = b.reply(update.Message.Chat.ID, helpText)
	case update.CallbackQuery != nil:
		err = b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
	if err != nil {
		b.logger.WithError(err).WithField("update_id", update.UpdateID).Warn("Failed to handle update")
	}
}

// MainMenuButtons returns the buttons for the main menu
func (b *Bot) MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "🎯 Due words", CallbackData: callbackDue},
			{Text: "📊 Statistics", CallbackData: callbackStats},
		},
		{
			{Text: "🕒 Reminder time", CallbackData: callbackReminderTime},
		},
	}
}

func (b *Bot) reply(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) replyWithMenu(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	_, err := b.api.Send(msg)
	return err
}
