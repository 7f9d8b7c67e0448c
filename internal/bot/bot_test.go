package bot

import (
	"context"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/zeeguu/internal/apperr"
	"github.com/example/zeeguu/internal/logging"
	"github.com/example/zeeguu/internal/service"
	"github.com/example/zeeguu/pkg/models"
)

type fakeMessenger struct {
	sent     []tgbotapi.MessageConfig
	requests int
}

func (m *fakeMessenger) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.sent = append(m.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (m *fakeMessenger) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *fakeMessenger) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

type fakeAccounts struct {
	codes map[string]*models.User
	chats map[int64]*models.User
}

func (a *fakeAccounts) RedeemTelegram(_ context.Context, code string, chatID int64) (*models.User, error) {
	u, ok := a.codes[code]
	if !ok {
		return nil, apperr.BadRequest("invalid or expired link code")
	}
	delete(a.codes, code)
	u.TelegramChatID = &chatID
	a.chats[chatID] = u
	return u, nil
}

func (a *fakeAccounts) UserByTelegramChat(_ context.Context, chatID int64) (*models.User, error) {
	if u, ok := a.chats[chatID]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("user not found")
}

func (a *fakeAccounts) UpdateSettings(_ context.Context, user *models.User, patch service.SettingsPatch) (*models.User, error) {
	if patch.NotificationHour != nil {
		if *patch.NotificationHour > 23 {
			return nil, apperr.BadRequest("notification hour must be between 0 and 23")
		}
		user.NotificationHour = *patch.NotificationHour
	}
	return user, nil
}

type fakeStudy struct {
	due   int
	stats map[string]int
}

func (s *fakeStudy) DueCount(context.Context, *models.User) (int, error) { return s.due, nil }

func (s *fakeStudy) OutcomeStats(context.Context, *models.User, int) (map[string]int, error) {
	return s.stats, nil
}

func command(chatID int64, text string) *tgbotapi.Message {
	cmd := strings.SplitN(text, " ", 2)[0]
	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}
}

func newTestBot() (*Bot, *fakeMessenger, *fakeAccounts, *fakeStudy) {
	m := &fakeMessenger{}
	accounts := &fakeAccounts{
		codes: map[string]*models.User{"abc123": {ID: 1, Email: "ada@example.com", NotificationHour: 9, LearnedLanguage: "de"}},
		chats: map[int64]*models.User{},
	}
	study := &fakeStudy{due: 3, stats: map[string]int{"C": 4, "W": 1}}
	return newBot(m, accounts, study, DefaultConfig("token"), logging.Discard()), m, accounts, study
}

func TestStartLinksChat(t *testing.T) {
	b, m, accounts, _ := newTestBot()
	ctx := context.Background()

	require.NoError(t, b.HandleCommand(ctx, command(42, "/start wrong")))
	assert.Contains(t, m.last(t).Text, "invalid or has expired")

	require.NoError(t, b.HandleCommand(ctx, command(42, "/start abc123")))
	assert.Contains(t, m.last(t).Text, "Linked to ada@example.com")
	require.Contains(t, accounts.chats, int64(42))

	require.NoError(t, b.HandleCommand(ctx, command(42, "/start")))
	assert.Contains(t, m.last(t).Text, "Welcome back")
}

func TestDueAndStats(t *testing.T) {
	b, m, _, study := newTestBot()
	ctx := context.Background()

	require.NoError(t, b.HandleCommand(ctx, command(7, "/due")))
	assert.Equal(t, notLinkedText, m.last(t).Text)

	require.NoError(t, b.HandleCommand(ctx, command(7, "/start abc123")))
	require.NoError(t, b.HandleCommand(ctx, command(7, "/due")))
	assert.Contains(t, m.last(t).Text, "3 words")

	study.due = 0
	require.NoError(t, b.HandleCommand(ctx, command(7, "/due")))
	assert.Contains(t, m.last(t).Text, "Nothing is due")

	require.NoError(t, b.HandleCommand(ctx, command(7, "/stats")))
	text := m.last(t).Text
	assert.Contains(t, text, "5 exercises")
	assert.Contains(t, text, "✅ Correct: 4")
	assert.Contains(t, text, "❌ Wrong: 1")
}

func TestReminderTimeCallback(t *testing.T) {
	b, m, accounts, _ := newTestBot()
	ctx := context.Background()
	require.NoError(t, b.HandleCommand(ctx, command(7, "/start abc123")))

	callback := &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    callbackSetReminderHour + "18",
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}},
	}
	require.NoError(t, b.handleCallbackQuery(ctx, callback))
	assert.Equal(t, 1, m.requests)
	assert.Equal(t, 18, accounts.chats[7].NotificationHour)
	assert.Contains(t, m.last(t).Text, "18:00")

	callback.Data = callbackSetReminderHour + "30"
	require.NoError(t, b.handleCallbackQuery(ctx, callback))
	assert.Contains(t, m.last(t).Text, "between 0 and 23")

	callback.Data = callbackReminderTime
	require.NoError(t, b.handleCallbackQuery(ctx, callback))
	markup, ok := m.last(t).ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Len(t, markup.InlineKeyboard, len(b.config.ReminderHours))
}

func TestSendReminder(t *testing.T) {
	b, m, _, _ := newTestBot()
	ctx := context.Background()

	assert.ErrorIs(t, b.SendReminder(ctx, &models.User{ID: 1}, 2), ErrNotLinked)

	chat := int64(99)
	require.NoError(t, b.SendReminder(ctx, &models.User{ID: 1, LearnedLanguage: "de", TelegramChatID: &chat}, 1))
	msg := m.last(t)
	assert.Equal(t, chat, msg.ChatID)
	assert.Contains(t, msg.Text, "1 word to practise in German")
}

func TestUnknownCommand(t *testing.T) {
	b, m, _, _ := newTestBot()
	require.NoError(t, b.HandleCommand(context.Background(), command(1, "/dance")))
	assert.True(t, strings.HasPrefix(m.last(t).Text, "Unknown command."))
}
