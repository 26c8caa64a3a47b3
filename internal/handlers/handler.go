package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"logo-mockup-studio/internal/catalog"
	"logo-mockup-studio/internal/mediagroup"
	"logo-mockup-studio/internal/mockup"
	"logo-mockup-studio/internal/session"
	"logo-mockup-studio/internal/telegram"
	"logo-mockup-studio/internal/upload"
)

type Options struct {
	Telegram *telegram.Client
	Pipeline *mockup.Pipeline
	Sessions *session.Store
	Logger   *slog.Logger

	// AlbumConcurrency bounds renders in flight for one album.
	AlbumConcurrency int
}

type Handler struct {
	tg               *telegram.Client
	pipeline         *mockup.Pipeline
	sessions         *session.Store
	logger           *slog.Logger
	aggregator       *mediagroup.Aggregator
	albumConcurrency int
}

// Commands is the slash menu published on startup.
var Commands = []telegram.Command{
	{Name: "start", Description: "Start the mockup wizard"},
	{Name: "styles", Description: "Pick a mockup style"},
	{Name: "style", Description: "Select a style by id"},
	{Name: "bg", Description: "Keep background on|off (off isolates the logo)"},
	{Name: "avoid", Description: "Things the render should avoid"},
	{Name: "creativity", Description: "Variability from 0 to 1"},
	{Name: "mockup", Description: "Render the saved logo with options"},
	{Name: "history", Description: "Your recent renders"},
	{Name: "reset", Description: "Restore default options"},
	{Name: "cancel", Description: "Stop waiting for input"},
	{Name: "help", Description: "How to use the bot"},
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	albumConcurrency := opts.AlbumConcurrency
	if albumConcurrency <= 0 {
		albumConcurrency = 2
	}

	return &Handler{
		tg:               opts.Telegram,
		pipeline:         opts.Pipeline,
		sessions:         opts.Sessions,
		logger:           logger,
		albumConcurrency: albumConcurrency,
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, userID, msg)
	}

	if len(msg.Photo) > 0 || msg.Document != nil {
		fileID, err := logoFileID(msg)
		if err != nil {
			return h.tg.SendText(chatID, errorText(err))
		}
		return h.handleLogo(ctx, chatID, userID, msg, fileID)
	}

	if strings.TrimSpace(msg.Text) != "" {
		return h.handleText(chatID, userID, msg.Text)
	}

	return nil
}

func (h *Handler) handleCommand(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "styles":
		h.sessions.Update(chatID, userID, func(st *session.State) {
			st.Menu = session.MenuMain
			if st.LogoFileID == "" {
				st.AwaitingPhoto = true
			}
		})
		return h.renderWizard(chatID, userID, 0, false)
	case "help":
		return h.tg.SendText(chatID, helpText)
	case "style":
		style, ok := catalog.Lookup(args)
		if !ok {
			return h.tg.SendText(chatID, "❌ Unknown style. Open /styles to pick one.")
		}
		h.sessions.Update(chatID, userID, func(st *session.State) {
			st.StyleID = style.ID
			st.Category = style.Category
		})
		return h.tg.SendText(chatID, fmt.Sprintf("✅ Style: %s", style.Name))
	case "bg":
		removeBackground, ok := parseBackgroundCommand(args)
		if !ok {
			return h.tg.SendText(chatID, "Usage: /bg on (keep the background) or /bg off (remove it)")
		}
		st := h.sessions.Update(chatID, userID, func(st *session.State) { st.RemoveBackground = removeBackground })
		return h.tg.SendText(chatID, "✅ Remove background: "+onOff(st.RemoveBackground))
	case "avoid":
		st := h.sessions.Update(chatID, userID, func(st *session.State) {
			st.NegativePrompt = args
			st.AwaitingNegative = false
		})
		if st.NegativePrompt == "" {
			return h.tg.SendText(chatID, "✅ Avoid list cleared.")
		}
		return h.tg.SendText(chatID, "✅ Avoid: "+st.NegativePrompt)
	case "creativity":
		v, ok := parseCreativity(args)
		if !ok {
			return h.tg.SendText(chatID, "Usage: /creativity 0.4 (any value from 0 to 1)")
		}
		h.sessions.Update(chatID, userID, func(st *session.State) { st.Creativity = v })
		return h.tg.SendText(chatID, fmt.Sprintf("✅ Creativity: %.1f", v))
	case "mockup":
		st, unknown := h.applyArgs(chatID, userID, args)
		if len(unknown) > 0 {
			_ = h.tg.SendText(chatID, "⚠️ Ignored: "+strings.Join(unknown, " "))
		}
		if st.LogoFileID == "" {
			h.sessions.Update(chatID, userID, func(st *session.State) { st.AwaitingPhoto = true })
			return h.tg.SendText(chatID, "📷 Send your logo first (PNG, JPG or WEBP).")
		}
		return h.renderLogo(ctx, chatID, userID, st.LogoFileID)
	case "history":
		return h.tg.SendText(chatID, historyText(h.sessions.History(userID)))
	case "reset":
		h.sessions.Reset(chatID, userID)
		return h.renderWizard(chatID, userID, 0, false)
	case "cancel":
		h.sessions.Update(chatID, userID, func(st *session.State) {
			st.AwaitingNegative = false
			st.AwaitingPhoto = false
		})
		return h.tg.SendText(chatID, "✅ Cancelled.")
	default:
		return h.tg.SendText(chatID, "❌ Unknown command. Use /help.")
	}
}

func (h *Handler) handleText(chatID, userID int64, text string) error {
	st := h.sessions.Get(chatID, userID)
	if !st.AwaitingNegative {
		return h.tg.SendText(chatID, "Send a logo image, or open /styles to change options.")
	}

	h.sessions.Update(chatID, userID, func(st *session.State) {
		st.NegativePrompt = strings.TrimSpace(text)
		st.AwaitingNegative = false
	})
	return h.renderWizard(chatID, userID, 0, false)
}

// handleLogo stores the upload. A caption is read as render options and
// triggers an immediate render; albums are handed to the aggregator.
func (h *Handler) handleLogo(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message, fileID string) error {
	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Item{
			ChatID:       chatID,
			UserID:       userID,
			MediaGroupID: msg.MediaGroupID,
			Caption:      msg.Caption,
			FileID:       fileID,
		})
		return nil
	}

	h.sessions.Update(chatID, userID, func(st *session.State) {
		st.LogoFileID = fileID
		st.AwaitingPhoto = false
	})

	caption := strings.TrimSpace(msg.Caption)
	if caption == "" {
		return h.renderWizard(chatID, userID, 0, false)
	}

	_, unknown := h.applyArgs(chatID, userID, caption)
	if len(unknown) > 0 {
		_ = h.tg.SendText(chatID, "⚠️ Ignored: "+strings.Join(unknown, " "))
	}
	return h.renderLogo(ctx, chatID, userID, fileID)
}

func (h *Handler) applyArgs(chatID, userID int64, args string) (session.State, []string) {
	var unknown []string
	st := h.sessions.Update(chatID, userID, func(st *session.State) {
		opts := mockup.ParseArgs(args, optionsFromState(*st))
		unknown = opts.Unknown
		if opts.StyleID != st.StyleID {
			if style, ok := catalog.Lookup(opts.StyleID); ok {
				st.Category = style.Category
			}
		}
		st.StyleID = opts.StyleID
		st.RemoveBackground = opts.RemoveBackground
		st.NegativePrompt = opts.NegativePrompt
		st.Creativity = opts.Creativity
	})
	return st, unknown
}

// logoFileID picks the largest photo size, or an image document. Documents
// keep PNG transparency, which Telegram photo compression drops.
func logoFileID(msg *tgbotapi.Message) (string, error) {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID, nil
	}
	if msg.Document == nil {
		return "", upload.ErrEmpty
	}
	if !upload.Accepted(msg.Document.MimeType) {
		return "", upload.ErrUnsupportedType
	}
	if msg.Document.FileSize > upload.MaxBytes {
		return "", upload.ErrTooLarge
	}
	return msg.Document.FileID, nil
}

// parseBackgroundCommand reads the /bg argument. "on" keeps the background,
// "off" removes it.
func parseBackgroundCommand(args string) (removeBackground bool, ok bool) {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return false, false
	}
	opts := mockup.ParseArgs("bg="+fields[0], mockup.Args{})
	if len(opts.Unknown) > 0 {
		return false, false
	}
	return opts.RemoveBackground, true
}

// parseCreativity accepts a number in [0,1]; NaN and infinities are rejected.
func parseCreativity(args string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(args), 64)
	if err != nil || !(v >= 0 && v <= 1) {
		return 0, false
	}
	return v, true
}

func optionsFromState(st session.State) mockup.Args {
	return mockup.Args{
		StyleID:          st.StyleID,
		RemoveBackground: st.RemoveBackground,
		NegativePrompt:   st.NegativePrompt,
		Creativity:       st.Creativity,
	}
}

func historyText(h []session.GeneratedResult) string {
	if len(h) == 0 {
		return "No renders yet. Send a logo to start."
	}
	var b strings.Builder
	b.WriteString("🕘 Recent renders\n")
	for i, r := range h {
		name := r.StyleID
		if s, ok := catalog.Lookup(r.StyleID); ok {
			name = s.Name
		}
		b.WriteString(fmt.Sprintf("%d) %s · %s\n", i+1, name, r.Timestamp.Format("2006-01-02 15:04")))
	}
	return strings.TrimSpace(b.String())
}

const helpText = "🎨 Logo Mockup Studio\n\n" +
	"1. Send your logo (as a file to keep transparency).\n" +
	"2. Pick a style in /styles.\n" +
	"3. Press Generate.\n\n" +
	"Caption shortcuts: <style-id> keep|nobg creativity=0.6 avoid=<text>\n" +
	"/style <id> · /bg on|off (keep or remove the background) · /avoid <text> · /creativity <0..1>\n" +
	"/mockup <options> renders the saved logo, /history lists renders, /reset restores defaults."
