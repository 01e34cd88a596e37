package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"kladovka/internal/database"
	"kladovka/internal/models"
	"kladovka/internal/service"
	"kladovka/internal/session"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

// windowLayout is how users type reservation boundaries.
const windowLayout = "2006-01-02T15:04"

// Bot is the Telegram glue over the booking core. It parses commands, calls
// the service and renders the results; all invariants live below it.
type Bot struct {
	client      telegramClient
	svc         *service.BookingService
	sessions    *session.Store
	db          *database.DB
	sessionTTL  time.Duration
	searchLimit int
	logger      *zerolog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New connects to Telegram and builds the bot.
func New(token string, svc *service.BookingService, sessions *session.Store, db *database.DB, sessionTTL time.Duration, searchLimit int, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newBot(&realTelegramClient{api: api}, svc, sessions, db, sessionTTL, searchLimit, logger)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, svc *service.BookingService, sessions *session.Store, db *database.DB, sessionTTL time.Duration, searchLimit int, logger *zerolog.Logger) (*Bot, error) {
	return newBot(tg, svc, sessions, db, sessionTTL, searchLimit, logger)
}

func newBot(tg telegramClient, svc *service.BookingService, sessions *session.Store, db *database.DB, sessionTTL time.Duration, searchLimit int, logger *zerolog.Logger) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	return &Bot{
		client:      tg,
		svc:         svc,
		sessions:    sessions,
		db:          db,
		sessionTTL:  sessionTTL,
		searchLimit: searchLimit,
		logger:      logger,
		limiters:    make(map[string]*rate.Limiter),
	}, nil
}

// Start consumes updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.client.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

func (b *Bot) limiter(username string) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	lim, ok := b.limiters[username]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Second), 5)
		b.limiters[username] = lim
	}
	return lim
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	username := msg.Chat.UserName
	if username == "" {
		b.reply(msg.Chat.ID, "You need a Telegram username to use this bot.")
		return
	}
	if !b.limiter(username).Allow() {
		return
	}

	var reply string
	var err error

	switch msg.Command() {
	case "start", "help":
		reply = helpText
	case "me":
		reply, err = b.handleMe(ctx, username)
	case "search":
		reply, err = b.handleSearch(ctx, msg.CommandArguments())
	case "check":
		reply, err = b.handleCheck(ctx, strings.TrimSpace(msg.CommandArguments()))
	case "cart":
		reply, err = b.handleCart(ctx, username, msg.CommandArguments())
	case "uncart":
		reply, err = b.handleUncart(ctx, username, strings.TrimSpace(msg.CommandArguments()))
	case "reserve":
		reply, err = b.handleReserve(ctx, username, msg.CommandArguments())
	case "login":
		reply, err = b.handleLogin(username)
	default:
		reply = "Unknown command, see /help."
	}

	if err != nil {
		b.logger.Error().Err(err).Str("command", msg.Command()).Str("user", username).Msg("command failed")
		reply = "Something went wrong, try again later."
	}
	b.reply(msg.Chat.ID, reply)
}

func (b *Bot) reply(chatID int64, text string) {
	if text == "" {
		return
	}
	out := tgbotapi.NewMessage(chatID, text)
	out.ParseMode = tgbotapi.ModeHTML
	if _, err := b.client.Send(out); err != nil {
		b.logger.Error().Err(err).Int64("chat", chatID).Msg("send failed")
	}
}

const helpText = `Inventory bot commands:
/search &lt;term&gt; — find entries by id, name or description
/check &lt;id&gt; — is the entry free right now
/cart &lt;id...&gt; — stage entries for reservation
/uncart &lt;id&gt; — unstage an entry
/reserve 2026-01-02T10:00 2026-01-02T12:00 — reserve your cart
/login — get a web session token
/me — who the bot thinks you are`

func (b *Bot) handleMe(ctx context.Context, username string) (string, error) {
	user, err := b.db.GetUser(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "I don't know you yet. Ask an administrator to introduce you.", nil
	}
	if user.Sire != nil {
		return fmt.Sprintf("You are @%s, introduced by %s.", user.TelegramUsername, *user.Sire), nil
	}
	return fmt.Sprintf("You are @%s.", user.TelegramUsername), nil
}

func (b *Bot) handleSearch(ctx context.Context, term string) (string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return "Usage: /search <term>", nil
	}

	entries, err := b.svc.Search(ctx, term, b.searchLimit)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return fmt.Sprintf("Nothing matched %q.", term), nil
	}
	return renderEntries(fmt.Sprintf("Found %d (limit %d):", len(entries), b.searchLimit), entries), nil
}

func (b *Bot) handleCheck(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "Usage: /check <id>", nil
	}

	entry, err := b.svc.Entry(ctx, id)
	if err != nil {
		return "", err
	}
	if entry == nil {
		return fmt.Sprintf("No entry with id %q.", id), nil
	}

	availability, err := b.svc.Check(ctx, id, b.svc.Now())
	if err != nil {
		return "", err
	}
	if availability.Free {
		return fmt.Sprintf("%s (%s) is free right now.", entry.Name, entry.ID), nil
	}
	return fmt.Sprintf("%s (%s) is reserved by %s for %s.",
		entry.Name, entry.ID, availability.ReservedBy, availability.Window), nil
}

func (b *Bot) handleCart(ctx context.Context, username, args string) (string, error) {
	ids := strings.Fields(args)
	if len(ids) > 0 {
		if err := b.svc.AddToCart(ctx, username, ids...); err != nil {
			return "", err
		}
	}

	entries, err := b.svc.Cart(ctx, username)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "Your cart is empty.", nil
	}
	return renderEntries("Your cart:", entries), nil
}

func (b *Bot) handleUncart(ctx context.Context, username, id string) (string, error) {
	if id == "" {
		return "Usage: /uncart <id>", nil
	}
	removed, err := b.svc.RemoveFromCart(ctx, username, id)
	if err != nil {
		return "", err
	}
	if !removed {
		return fmt.Sprintf("%q was not in your cart.", id), nil
	}
	return fmt.Sprintf("Removed %q from your cart.", id), nil
}

func (b *Bot) handleReserve(ctx context.Context, username, args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "Usage: /reserve <start> <end>, e.g. /reserve 2026-01-02T10:00 2026-01-02T12:00", nil
	}

	start, err := time.ParseInLocation(windowLayout, fields[0], time.UTC)
	if err != nil {
		return fmt.Sprintf("Cannot parse start %q, expected e.g. 2026-01-02T10:00.", fields[0]), nil
	}
	end, err := time.ParseInLocation(windowLayout, fields[1], time.UTC)
	if err != nil {
		return fmt.Sprintf("Cannot parse end %q, expected e.g. 2026-01-02T12:00.", fields[1]), nil
	}

	window, err := models.NewWindow(start, end)
	if err != nil {
		return "The start must be before the end.", nil
	}

	reservation, err := b.svc.ReserveCart(ctx, username, window)

	var conflict *models.Conflict
	switch {
	case errors.As(err, &conflict):
		return fmt.Sprintf("Cannot reserve: %s is taken by %s for %s.",
			conflict.EntryID, conflict.Existing.Reserver, conflict.Existing.Window), nil
	case errors.Is(err, models.ErrNoEntries):
		return "Your cart is empty, add entries with /cart first.", nil
	case errors.Is(err, service.ErrEntryNotFound):
		return fmt.Sprintf("Your cart references an entry that does not exist: %v.", err), nil
	case err != nil:
		return "", err
	}

	return fmt.Sprintf("Reserved %d entries for %s.", len(reservation.EntryIDs), reservation.Window), nil
}

func (b *Bot) handleLogin(username string) (string, error) {
	token, logoutKey, err := b.sessions.Create(username, b.sessionTTL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Session token (valid %s):\n<code>%s</code>\nLogout key:\n<code>%s</code>",
		b.sessionTTL, token, logoutKey), nil
}

func renderEntries(title string, entries []models.Entry) string {
	var sb strings.Builder
	sb.WriteString(title)
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("\n<b>%s</b> — %s", e.ID, e.Name))
		if e.StoredIn != nil {
			sb.WriteString(fmt.Sprintf(" (in %s)", *e.StoredIn))
		}
	}
	return sb.String()
}
