package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/zeeguu/internal/apperr"
	"github.com/example/zeeguu/internal/service"
	"github.com/example/zeeguu/pkg/models"
)

// Constants for callback data
const (
	callbackDue             = "due"
	callbackStats           = "stats"
	callbackReminderTime    = "reminder_time"
	callbackSetReminderHour = "set_reminder_"
)

const helpText = `Zeeguu reminds you when words are due for practice.

To link this chat, open your Zeeguu settings, copy the Telegram link code and send:
/start <code>

Commands:
/due - Words due for practice
/stats - Your exercise results
/time - When reminders are sent
/help - Show this message`

const notLinkedText = "This chat is not linked to a Zeeguu account yet. Send /start <code> with the code from your settings."

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	if message.Chat == nil {
		return fmt.Errorf("invalid message: chat is missing")
	}
	chatID := message.Chat.ID
	switch message.Command() {
	case "start":
		return b.handleStart(ctx, chatID, strings.TrimSpace(message.CommandArguments()))
	case "due":
		return b.handleDue(ctx, chatID)
	case "stats":
		return b.handleStats(ctx, chatID)
	case "time":
		return b.handleReminderTime(ctx, chatID)
	case "help", "menu":
		return b.replyWithMenu(chatID, helpText)
	default:
		return b.reply(chatID, "Unknown command.\n\n"+helpText)
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64, code string) error {
	if code == "" {
		if _, err := b.accounts.UserByTelegramChat(ctx, chatID); err == nil {
			return b.replyWithMenu(chatID, "Welcome back! 🎓")
		}
		return b.reply(chatID, helpText)
	}
	user, err := b.accounts.RedeemTelegram(ctx, code, chatID)
	if err != nil {
		if apperr.HTTPStatus(err) == http.StatusBadRequest {
			return b.reply(chatID, "❌ That link code is invalid or has expired. Create a new one in your settings.")
		}
		b.reply(chatID, "❌ Could not link this chat. Please try again later.")
		return err
	}
	return b.replyWithMenu(chatID, fmt.Sprintf("✅ Linked to %s. You will get a reminder at %d:00 UTC when words are due.",
		user.Email, user.NotificationHour))
}

// linkedUser resolves the chat's account, telling the chat when there is none
func (b *Bot) linkedUser(ctx context.Context, chatID int64) (*models.User, error) {
	user, err := b.accounts.UserByTelegramChat(ctx, chatID)
	if err == nil {
		return user, nil
	}
	if apperr.HTTPStatus(err) == http.StatusNotFound {
		return nil, b.reply(chatID, notLinkedText)
	}
	b.reply(chatID, "❌ Something went wrong. Please try again later.")
	return nil, err
}

func (b *Bot) handleDue(ctx context.Context, chatID int64) error {
	user, err := b.linkedUser(ctx, chatID)
	if user == nil {
		return err
	}
	due, err := b.study.DueCount(ctx, user)
	if err != nil {
		return err
	}
	if due == 0 {
		return b.replyWithMenu(chatID, "🎉 Nothing is due right now. Read an article and look up some words!")
	}
	return b.replyWithMenu(chatID, fmt.Sprintf("🎯 %d words are waiting for practice.", due))
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) error {
	user, err := b.linkedUser(ctx, chatID)
	if user == nil {
		return err
	}
	stats, err := b.study.OutcomeStats(ctx, user, b.config.StatsDays)
	if err != nil {
		return err
	}
	total := 0
	outcomes := make([]string, 0, len(stats))
	for outcome, n := range stats {
		total += n
		outcomes = append(outcomes, outcome)
	}
	if total == 0 {
		return b.replyWithMenu(chatID, fmt.Sprintf("📊 No exercises in the last %d days.", b.config.StatsDays))
	}
	sort.Strings(outcomes)

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Last %d days: %d exercises\n", b.config.StatsDays, total)
	for _, outcome := range outcomes {
		fmt.Fprintf(&sb, "%s: %d\n", outcomeLabel(outcome), stats[outcome])
	}
	return b.replyWithMenu(chatID, strings.TrimSpace(sb.String()))
}

func outcomeLabel(outcome string) string {
	switch outcome {
	case "C":
		return "✅ Correct"
	case "W":
		return "❌ Wrong"
	case "H":
		return "💡 Hint"
	case "S":
		return "👀 Solution shown"
	case "TOO_EASY":
		return "⚡ Too easy"
	default:
		return outcome
	}
}

func (b *Bot) handleReminderTime(ctx context.Context, chatID int64) error {
	user, err := b.linkedUser(ctx, chatID)
	if user == nil {
		return err
	}
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, hour := range b.config.ReminderHours {
		text := fmt.Sprintf("%d:00", hour)
		if hour == user.NotificationHour {
			text = "✓ " + text
		}
		keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(text, fmt.Sprintf("%s%d", callbackSetReminderHour, hour)),
		))
	}
	msg := tgbotapi.NewMessage(chatID, "🕒 Choose when you want to be reminded (UTC):")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleSetReminderHour(ctx context.Context, chatID int64, hour int) error {
	user, err := b.linkedUser(ctx, chatID)
	if user == nil {
		return err
	}
	if _, err := b.accounts.UpdateSettings(ctx, user, service.SettingsPatch{NotificationHour: &hour}); err != nil {
		if apperr.HTTPStatus(err) == http.StatusBadRequest {
			return b.reply(chatID, "❌ "+apperr.PublicMessage(err))
		}
		return err
	}
	return b.replyWithMenu(chatID, fmt.Sprintf("✅ Reminders will be sent at %d:00 UTC", hour))
}

// handleCallbackQuery handles callback queries from buttons
func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback.Message == nil || callback.Message.Chat == nil {
		return errors.New("callback without message")
	}
	chatID := callback.Message.Chat.ID
	// stops the button's loading spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.WithError(err).Debug("Failed to answer callback")
	}

	switch data := callback.Data; {
	case data == callbackDue:
		return b.handleDue(ctx, chatID)
	case data == callbackStats:
		return b.handleStats(ctx, chatID)
	case data == callbackReminderTime:
		return b.handleReminderTime(ctx, chatID)
	case strings.HasPrefix(data, callbackSetReminderHour):
		hour, err := strconv.Atoi(strings.TrimPrefix(data, callbackSetReminderHour))
		if err != nil {
			return fmt.Errorf("invalid reminder hour %q: %w", data, err)
		}
		return b.handleSetReminderHour(ctx, chatID, hour)
	default:
		return b.replyWithMenu(chatID, helpText)
	}
}
