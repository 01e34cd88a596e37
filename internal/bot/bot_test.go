package bot

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kladovka/internal/clock"
	"kladovka/internal/database"
	"kladovka/internal/events"
	"kladovka/internal/models"
	"kladovka/internal/service"
	"kladovka/internal/session"
)

type fakeTelegram struct {
	sent []tgbotapi.Chattable
}

func (f *fakeTelegram) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{}, nil
}

func (f *fakeTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	ch := make(chan tgbotapi.Update)
	close(ch)
	return ch
}

func (f *fakeTelegram) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	msg, ok := f.sent[len(f.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	return msg.Text
}

func newTestBot(t *testing.T) (*Bot, *fakeTelegram, *database.DB) {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t))

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clk := clock.NewFake(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	svc := service.NewBookingService(db, events.NewEventBus(), nil, clk, &logger)
	sessions := session.NewStore(clk)

	tg := &fakeTelegram{}
	b, err := NewWithTelegramClient(tg, svc, sessions, db, time.Hour, 15, &logger)
	require.NoError(t, err)
	return b, tg, db
}

func command(text string) *tgbotapi.Message {
	cmd := strings.Fields(text)[0]
	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: 1, UserName: "alice"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}
}

func seed(t *testing.T, db *database.DB, id, name string) {
	t.Helper()
	require.NoError(t, db.AddEntry(context.Background(), &models.Entry{ID: id, Name: name}))
}

func TestHelpCommand(t *testing.T) {
	b, tg, _ := newTestBot(t)

	b.handleCommand(context.Background(), command("/help"))
	assert.Contains(t, tg.lastText(t), "/search")
}

func TestSearchCommand(t *testing.T) {
	b, tg, db := newTestBot(t)
	seed(t, db, "A1", "Widget")
	seed(t, db, "B2", "Gadget")

	b.handleCommand(context.Background(), command("/search idg"))
	text := tg.lastText(t)
	assert.Contains(t, text, "Widget")
	assert.NotContains(t, text, "Gadget")

	b.handleCommand(context.Background(), command("/search zzz"))
	assert.Contains(t, tg.lastText(t), "Nothing matched")
}

func TestCheckCommand(t *testing.T) {
	b, tg, db := newTestBot(t)
	seed(t, db, "A1", "Widget")
	ctx := context.Background()

	b.handleCommand(ctx, command("/check A1"))
	assert.Contains(t, tg.lastText(t), "free right now")

	// Reserve over the fake clock's current instant.
	start := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC)
	_, err := db.Reserve(ctx, []string{"A1"}, models.Window{Start: start, End: end}, "bob")
	require.NoError(t, err)

	b.handleCommand(ctx, command("/check A1"))
	text := tg.lastText(t)
	assert.Contains(t, text, "reserved by bob")

	b.handleCommand(ctx, command("/check nope"))
	assert.Contains(t, tg.lastText(t), "No entry")
}

func TestCartAndReserveFlow(t *testing.T) {
	b, tg, db := newTestBot(t)
	seed(t, db, "A1", "Widget")
	seed(t, db, "B2", "Gadget")
	ctx := context.Background()

	b.handleCommand(ctx, command("/cart A1 B2"))
	text := tg.lastText(t)
	assert.Contains(t, text, "Widget")
	assert.Contains(t, text, "Gadget")

	b.handleCommand(ctx, command("/uncart B2"))
	assert.Contains(t, tg.lastText(t), "Removed")

	b.handleCommand(ctx, command("/reserve 2026-03-15T10:00 2026-03-15T12:00"))
	assert.Contains(t, tg.lastText(t), "Reserved 1 entries")

	// The cart is consumed by the reservation.
	b.handleCommand(ctx, command("/cart"))
	assert.Contains(t, tg.lastText(t), "empty")
}

func TestReserveConflictMessage(t *testing.T) {
	b, tg, db := newTestBot(t)
	seed(t, db, "A1", "Widget")
	ctx := context.Background()

	start := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	end := time.Date(2026, 3, 15, 9, 45, 0, 0, time.UTC)
	_, err := db.Reserve(ctx, []string{"A1"}, models.Window{Start: start, End: end}, "bob")
	require.NoError(t, err)

	b.handleCommand(ctx, command("/cart A1"))
	b.handleCommand(ctx, command("/reserve 2026-03-15T09:00 2026-03-15T10:00"))
	text := tg.lastText(t)
	assert.Contains(t, text, "taken by bob")
	assert.Contains(t, text, "09:30")
}

func TestReserveParseErrors(t *testing.T) {
	b, tg, _ := newTestBot(t)
	ctx := context.Background()

	b.handleCommand(ctx, command("/reserve"))
	assert.Contains(t, tg.lastText(t), "Usage")

	b.handleCommand(ctx, command("/reserve yesterday tomorrow"))
	assert.Contains(t, tg.lastText(t), "Cannot parse")

	b.handleCommand(ctx, command("/reserve 2026-03-15T12:00 2026-03-15T10:00"))
	assert.Contains(t, tg.lastText(t), "start must be before")
}

func TestLoginCommand(t *testing.T) {
	b, tg, _ := newTestBot(t)

	b.handleCommand(context.Background(), command("/login"))
	text := tg.lastText(t)
	assert.Contains(t, text, "Session token")
	assert.Contains(t, text, "Logout key")
}

func TestMeCommand(t *testing.T) {
	b, tg, db := newTestBot(t)
	ctx := context.Background()

	b.handleCommand(ctx, command("/me"))
	assert.Contains(t, tg.lastText(t), "don't know you")

	sire := "bob"
	require.NoError(t, db.AddUser(ctx, &models.User{TelegramUsername: "alice", Sire: &sire}))

	b.handleCommand(ctx, command("/me"))
	text := tg.lastText(t)
	assert.Contains(t, text, "@alice")
	assert.Contains(t, text, "bob")
}

func TestNoUsernameRejected(t *testing.T) {
	b, tg, _ := newTestBot(t)

	msg := command("/help")
	msg.Chat.UserName = ""
	b.handleCommand(context.Background(), msg)
	assert.Contains(t, tg.lastText(t), "username")
}
