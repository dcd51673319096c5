package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"wasteboz/api/internal/session"
)

const (
	helpText = "Describe a waste item (e.g. \"used engine oil\") or send a photo of it, " +
		"and I will suggest European Waste Catalogue codes.\n\n" +
		"Codes marked * are hazardous.\n" +
		"Commands: /search <text>, /reset, /health"
	loadingTextSearch = "Consulting EWC database…"
	loadingTextScan   = "Analyzing waste image…"
	noResultsText     = "No EWC codes found."
	rateLimitedText   = "Too many searches. Please wait a minute and try again."

	cbReset   = "ewc_reset"
	cbDismiss = "ewc_dismiss"

	maxMessageLen = 3900
)

// FormatState renders a settled session as one or more Markdown messages.
func FormatState(s session.State) []string {
	if s.HasError() {
		return []string{"⚠️ " + esc(s.Error)}
	}
	if len(s.Results) == 0 {
		return []string{noResultsText}
	}

	head := fmt.Sprintf("Found %d EWC code(s)", len(s.Results))
	if s.Query != "" {
		head += " for \"" + esc(s.Query) + "\""
	}
	cards := make([]string, 0, len(s.Results))
	for _, w := range s.Results {
		cards = append(cards, esc(w.Display()))
	}
	return pack(head+":", cards, maxMessageLen)
}

// pack joins cards into messages no longer than limit, never splitting a card.
func pack(head string, cards []string, limit int) []string {
	var out []string
	cur := head
	for _, c := range cards {
		if cur != "" && len(cur)+2+len(c) > limit {
			out = append(out, cur)
			cur = ""
		}
		if cur != "" {
			cur += "\n\n"
		}
		cur += c
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func keyboardFor(s session.State) tgbotapi.InlineKeyboardMarkup {
	reset := tgbotapi.NewInlineKeyboardButtonData("🔄 New search", cbReset)
	if s.HasError() {
		dismiss := tgbotapi.NewInlineKeyboardButtonData("Dismiss", cbDismiss)
		return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(dismiss, reset))
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(reset))
}

// esc escapes legacy Markdown control characters.
func esc(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "[", "\\[")
	return s
}
