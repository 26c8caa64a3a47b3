package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"logo-mockup-studio/internal/catalog"
	"logo-mockup-studio/internal/session"
)

const callbackPrefix = "mk"

type callback struct {
	OwnerID int64
	Action  string
	Args    []string
}

// parseCallback decodes "mk:<owner>:<action>[:args...]".
func parseCallback(data string) (callback, bool) {
	data = strings.TrimSpace(data)
	if !strings.HasPrefix(data, callbackPrefix+":") {
		return callback{}, false
	}
	parts := strings.Split(data, ":")
	if len(parts) < 3 || parts[2] == "" {
		return callback{}, false
	}
	ownerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return callback{}, false
	}
	return callback{OwnerID: ownerID, Action: parts[2], Args: parts[3:]}, true
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil || q.From == nil {
		return nil
	}
	c, ok := parseCallback(q.Data)
	if !ok {
		return nil
	}
	if c.OwnerID != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, "This menu belongs to someone else.", true)
		return nil
	}

	chatID := q.Message.Chat.ID
	msgID := q.Message.MessageID
	arg := func(i int) string {
		if i < len(c.Args) {
			return c.Args[i]
		}
		return ""
	}

	if c.Action == "close" {
		h.sessions.Update(chatID, c.OwnerID, func(st *session.State) {
			st.AwaitingNegative = false
			st.AwaitingPhoto = false
			st.Menu = session.MenuMain
			st.MessageID = 0
		})
		_ = h.tg.AnswerCallback(q.ID, "Closed", false)
		return h.tg.EditTextWithKeyboard(chatID, msgID, "Wizard closed. Send /start to open it again.", tgbotapi.NewInlineKeyboardMarkup())
	}

	updated := h.sessions.Update(chatID, c.OwnerID, func(st *session.State) {
		// "again" arrives from a result photo, which is not the wizard message.
		if c.Action != "again" {
			st.MessageID = msgID
		}

		switch c.Action {
		case "menu":
			if m := arg(0); m != "" {
				st.Menu = m
			}
		case "cat":
			st.Category = arg(0)
			st.Menu = session.MenuStyle
		case "style":
			if style, ok := catalog.Lookup(arg(0)); ok {
				st.StyleID = style.ID
			}
			st.Menu = session.MenuMain
		case "bg":
			st.RemoveBackground = !st.RemoveBackground
		case "cr":
			if d, err := strconv.Atoi(arg(0)); err == nil {
				st.StepCreativity(d)
			}
		case "avoid":
			st.AwaitingNegative = true
		case "avoid_clear":
			st.NegativePrompt = ""
			st.AwaitingNegative = false
		case "photo":
			st.AwaitingPhoto = true
		case "reset":
			logo := st.LogoFileID
			*st = session.DefaultState()
			st.LogoFileID = logo
			st.MessageID = msgID
		}
	})

	switch c.Action {
	case "avoid":
		_ = h.tg.AnswerCallback(q.ID, "Send what to avoid (/cancel to stop).", false)
		_ = h.tg.SendText(chatID, "🚫 Send the things the mockup should avoid, e.g. \"text, people, watermark\". /cancel to stop.")
	case "photo":
		_ = h.tg.AnswerCallback(q.ID, "Send your logo.", false)
		_ = h.tg.SendText(chatID, "📷 Send your logo (PNG, JPG or WEBP). Send it as a file to keep transparency.")
	case "generate", "again":
		_ = h.tg.AnswerCallback(q.ID, "Generating…", false)
		if updated.LogoFileID == "" {
			h.sessions.Update(chatID, c.OwnerID, func(st *session.State) { st.AwaitingPhoto = true })
			return h.tg.SendText(chatID, "📷 Send your logo first.")
		}
		if err := h.renderLogo(ctx, chatID, c.OwnerID, updated.LogoFileID); err != nil || c.Action == "again" {
			return err
		}
	default:
		_ = h.tg.AnswerCallback(q.ID, "OK", false)
	}

	return h.renderWizard(chatID, c.OwnerID, msgID, true)
}

// renderWizard edits the wizard message in place when possible and falls
// back to sending a new one.
func (h *Handler) renderWizard(chatID, userID int64, messageID int, edit bool) error {
	st := h.sessions.Get(chatID, userID)
	if messageID == 0 {
		messageID = st.MessageID
	}

	text := wizardText(st)
	kb := wizardKeyboard(userID, st)

	if edit && messageID != 0 {
		if err := h.tg.EditTextWithKeyboard(chatID, messageID, text, kb); err == nil {
			return nil
		}
	}

	msgID, err := h.tg.SendTextWithKeyboard(chatID, text, kb)
	if err != nil {
		return err
	}
	h.sessions.Update(chatID, userID, func(st *session.State) { st.MessageID = msgID })
	return nil
}

func wizardText(st session.State) string {
	style, ok := catalog.Lookup(st.StyleID)
	if !ok {
		style = catalog.Default()
	}

	var b strings.Builder
	b.WriteString("🎨 Logo Mockup Studio\n\n")
	b.WriteString(fmt.Sprintf("Style: %s\n", style.Name))
	if d := truncateLine(style.Description, 120); d != "" {
		b.WriteString(d + "\n")
	}
	b.WriteString(fmt.Sprintf("Remove background: %s\n", onOff(st.RemoveBackground)))
	b.WriteString(fmt.Sprintf("Creativity: %.1f\n", st.Creativity))
	if st.NegativePrompt != "" {
		b.WriteString("Avoid: " + truncateLine(st.NegativePrompt, 80) + "\n")
	}
	if st.LogoFileID != "" {
		b.WriteString("Logo: ✅ saved\n")
	} else {
		b.WriteString("Logo: send an image to start\n")
	}

	switch st.Menu {
	case session.MenuCategory:
		b.WriteString("\nPick a category:")
	case session.MenuStyle:
		b.WriteString(fmt.Sprintf("\nPick a style (%s):", catalog.Builtin().CategoryLabel(st.Category)))
	}
	return strings.TrimSpace(b.String())
}

func wizardKeyboard(ownerID int64, st session.State) tgbotapi.InlineKeyboardMarkup {
	switch st.Menu {
	case session.MenuCategory:
		return categoryKeyboard(ownerID, st)
	case session.MenuStyle:
		return styleKeyboard(ownerID, st)
	default:
		return mainKeyboard(ownerID, st)
	}
}

func mainKeyboard(ownerID int64, st session.State) tgbotapi.InlineKeyboardMarkup {
	avoidRow := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("🚫 Avoid", cb(ownerID, "avoid")),
	}
	if st.NegativePrompt != "" {
		avoidRow = append(avoidRow, tgbotapi.NewInlineKeyboardButtonData("Clear avoid", cb(ownerID, "avoid_clear")))
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗂 Style", cb(ownerID, "menu", session.MenuCategory)),
			tgbotapi.NewInlineKeyboardButtonData("Remove BG: "+onOff(st.RemoveBackground), cb(ownerID, "bg")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➖", cb(ownerID, "cr", "-1")),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Creativity %.1f", st.Creativity), cb(ownerID, "noop")),
			tgbotapi.NewInlineKeyboardButtonData("➕", cb(ownerID, "cr", "1")),
		),
		avoidRow,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📷 Logo", cb(ownerID, "photo")),
			tgbotapi.NewInlineKeyboardButtonData("✨ Generate", cb(ownerID, "generate")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Reset", cb(ownerID, "reset")),
			tgbotapi.NewInlineKeyboardButtonData("Close", cb(ownerID, "close")),
		),
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func categoryKeyboard(ownerID int64, st session.State) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	var row []tgbotapi.InlineKeyboardButton
	for _, c := range catalog.Categories() {
		label := c.Label
		if c.ID == st.Category {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "cat", c.ID)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(ownerID, "menu", session.MenuMain)),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func styleKeyboard(ownerID int64, st session.State) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	for _, s := range catalog.ByCategory(st.Category) {
		label := s.Name
		if s.ID == st.StyleID {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(truncateLine(label, 40), cb(ownerID, "style", s.ID)),
		))
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅ Categories", cb(ownerID, "menu", session.MenuCategory)),
		tgbotapi.NewInlineKeyboardButtonData("⬅ Back", cb(ownerID, "menu", session.MenuMain)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// resultKeyboard is attached to a finished render.
func resultKeyboard(ownerID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Again", cb(ownerID, "again")),
			tgbotapi.NewInlineKeyboardButtonData("🗂 Style", cb(ownerID, "menu", session.MenuCategory)),
		),
	)
}

func cb(ownerID int64, parts ...string) string {
	return fmt.Sprintf("%s:%d:%s", callbackPrefix, ownerID, strings.Join(parts, ":"))
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func truncateLine(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
