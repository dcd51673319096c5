package telegram

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"wasteboz/api/internal/session"
)

// Bot is the part of tgbotapi.BotAPI the router talks to.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot      Bot
	Sessions *session.Manager
	Log      *logrus.Entry

	// Download fetches a file by URL; nil means plain HTTP GET.
	Download func(ctx context.Context, url string) ([]byte, error)

	albums albumSet
}

func NewRouter(bot Bot, sessions *session.Manager, log *logrus.Entry) *Router {
	if log == nil {
		log = logrus.WithField("component", "telegram")
	}
	return &Router{Bot: bot, Sessions: sessions, Log: log}
}

// HandleUpdate dispatches one update. It blocks until any search it starts
// has settled, so callers run it on its own goroutine.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	switch {
	case msg.IsCommand():
		r.HandleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		r.acceptPhoto(ctx, msg)
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		r.acceptDocument(ctx, msg)
	case strings.TrimSpace(msg.Text) != "":
		r.runSearch(ctx, cid, msg.Text)
	default:
		r.send(cid, helpText)
	}
}

func (r *Router) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "health":
		r.send(cid, "✅ OK")
	case "reset":
		r.Sessions.Get(chatKey(cid)).Reset()
		r.send(cid, "Session cleared. Describe or photograph the next item.")
	case "search":
		if q := strings.TrimSpace(msg.CommandArguments()); q != "" {
			r.runSearch(ctx, cid, q)
			return
		}
		r.send(cid, "Usage: /search <description of the waste>")
	default:
		r.send(cid, "Unknown command. Try /help")
	}
}

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	ctrl := r.Sessions.Get(chatKey(cid))

	edit := tgbotapi.NewEditMessageReplyMarkup(cid, cb.Message.MessageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	_, _ = r.Bot.Send(edit)

	switch cb.Data {
	case cbReset:
		ctrl.Reset()
		r.send(cid, "Session cleared. Describe or photograph the next item.")
	case cbDismiss:
		ctrl.DismissError()
	}
}

func (r *Router) runSearch(ctx context.Context, cid int64, query string) {
	key := chatKey(cid)
	if !r.Sessions.Allow(key) {
		r.send(cid, rateLimitedText)
		return
	}
	r.notify(cid, loadingTextSearch)
	s, applied := r.Sessions.Get(key).SubmitText(ctx, query)
	if !applied {
		return
	}
	r.sendState(cid, s)
}

func (r *Router) runScan(ctx context.Context, cid int64, image string) {
	key := chatKey(cid)
	if !r.Sessions.Allow(key) {
		r.send(cid, rateLimitedText)
		return
	}
	r.notify(cid, loadingTextScan)
	s, applied := r.Sessions.Get(key).SubmitImage(ctx, image)
	if !applied {
		return
	}
	r.sendState(cid, s)
}

// notify shows the loading notice with a typing indicator.
func (r *Router) notify(cid int64, text string) {
	_, _ = r.Bot.Request(tgbotapi.NewChatAction(cid, tgbotapi.ChatTyping))
	r.send(cid, text)
}

func (r *Router) sendState(cid int64, s session.State) {
	parts := FormatState(s)
	for i, p := range parts {
		msg := tgbotapi.NewMessage(cid, p)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if i == len(parts)-1 {
			msg.ReplyMarkup = keyboardFor(s)
		}
		if _, err := r.Bot.Send(msg); err != nil {
			r.Log.WithError(err).WithField("chat", cid).Warn("telegram: send result")
		}
	}
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.WithError(err).WithField("chat", chatID).Warn("telegram: send")
	}
}

func (r *Router) sendError(chatID int64, text string, err error) {
	r.Log.WithError(err).WithField("chat", chatID).Warn("telegram: " + text)
	r.send(chatID, "⚠️ "+text)
}

func chatKey(cid int64) string { return "tg:" + strconv.FormatInt(cid, 10) }

// albumSet remembers media groups already scanned so an album costs one call.
type albumSet struct {
	seen sync.Map // media group id -> struct{}
}

const albumMemory = 2 * time.Minute

// first reports whether id is new, forgetting it after albumMemory.
func (a *albumSet) first(id string) bool {
	if _, loaded := a.seen.LoadOrStore(id, struct{}{}); loaded {
		return false
	}
	time.AfterFunc(albumMemory, func() { a.seen.Delete(id) })
	return true
}
