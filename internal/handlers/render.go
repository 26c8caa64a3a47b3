package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"logo-mockup-studio/internal/catalog"
	"logo-mockup-studio/internal/gemini"
	"logo-mockup-studio/internal/mediagroup"
	"logo-mockup-studio/internal/mockup"
	"logo-mockup-studio/internal/session"
	"logo-mockup-studio/internal/upload"
)

// renderLogo runs one mockup render for the user's current options and
// sends the result photo.
func (h *Handler) renderLogo(ctx context.Context, chatID, userID int64, fileID string) error {
	st := h.sessions.Get(chatID, userID)
	style, ok := catalog.Lookup(st.StyleID)
	if !ok {
		style = catalog.Default()
	}

	h.tg.SendUploading(chatID)
	_ = h.tg.SendText(chatID, fmt.Sprintf("🎨 Rendering \"%s\", please wait…", style.Name))

	return h.renderFile(ctx, chatID, userID, st, style, fileID, "")
}

func (h *Handler) renderFile(ctx context.Context, chatID, userID int64, st session.State, style catalog.Style, fileID, label string) error {
	data, mimeType, err := h.tg.DownloadFile(ctx, fileID)
	if err != nil {
		h.logger.Error("logo download failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, label+errorText(err))
	}

	creativity := st.Creativity
	res, err := h.pipeline.Generate(ctx, mockup.Request{
		Image:            data,
		MimeType:         mimeType,
		StyleID:          style.ID,
		StylePrompt:      style.Prompt,
		RemoveBackground: st.RemoveBackground,
		NegativePrompt:   st.NegativePrompt,
		Creativity:       &creativity,
	})
	if err != nil {
		h.logger.Warn("mockup render failed", "chat_id", chatID, "user_id", userID, "style", style.ID, "err", err)
		return h.tg.SendText(chatID, label+errorText(err))
	}

	caption := resultCaption(style, st)
	if label != "" {
		caption = label + caption
	}
	kb := resultKeyboard(userID)
	if err := h.tg.SendPhotoBase64(chatID, res.MimeType, res.Data, caption, &kb); err != nil {
		return fmt.Errorf("send mockup: %w", err)
	}

	h.sessions.AppendResult(userID, session.GeneratedResult{StyleID: style.ID, MimeType: res.MimeType})
	return nil
}

// HandleMediaGroup renders every logo of an album with the same options.
// The album caption, if any, is applied before rendering.
func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) error {
	if len(group.FileIDs) == 0 {
		return nil
	}
	chatID, userID := group.ChatID, group.UserID

	if caption := strings.TrimSpace(group.Caption); caption != "" {
		if _, unknown := h.applyArgs(chatID, userID, caption); len(unknown) > 0 {
			_ = h.tg.SendText(chatID, "⚠️ Ignored: "+strings.Join(unknown, " "))
		}
	}
	st := h.sessions.Update(chatID, userID, func(st *session.State) {
		st.LogoFileID = group.FileIDs[len(group.FileIDs)-1]
		st.AwaitingPhoto = false
	})
	style, ok := catalog.Lookup(st.StyleID)
	if !ok {
		style = catalog.Default()
	}

	if group.Overflow > 0 {
		_ = h.tg.SendText(chatID, fmt.Sprintf("⚠️ Only the first %d images are rendered, %d skipped.", len(group.FileIDs), group.Overflow))
	}
	h.tg.SendUploading(chatID)
	_ = h.tg.SendText(chatID, fmt.Sprintf("🎨 Rendering %d logos as \"%s\"…", len(group.FileIDs), style.Name))

	var g errgroup.Group
	g.SetLimit(h.albumConcurrency)
	for i, fileID := range group.FileIDs {
		label := fmt.Sprintf("#%d ", i+1)
		g.Go(func() error {
			return h.renderFile(ctx, chatID, userID, st, style, fileID, label)
		})
	}
	return g.Wait()
}

func resultCaption(style catalog.Style, st session.State) string {
	caption := fmt.Sprintf("✅ %s · remove BG %s · creativity %.1f", style.Name, onOff(st.RemoveBackground), st.Creativity)
	if st.NegativePrompt != "" {
		caption += "\nAvoid: " + truncateLine(st.NegativePrompt, 80)
	}
	return caption
}

// errorText maps a render failure to the message shown in chat.
func errorText(err error) string {
	var genErr *mockup.GenerationError
	var apiErr *gemini.APIError

	switch {
	case errors.As(err, &genErr):
		msg := "❌ The model returned no image. Try another style or a cleaner logo."
		if t := truncateLine(genErr.Text, 300); t != "" {
			msg += "\n\nModel said: " + t
		}
		return msg
	case errors.Is(err, upload.ErrTooLarge):
		return "❌ The image is too large (max 10 MB)."
	case errors.Is(err, upload.ErrUnsupportedType):
		return "❌ Unsupported image type. Send PNG, JPG or WEBP."
	case errors.Is(err, upload.ErrEmpty):
		return "❌ The image is empty."
	case errors.Is(err, mockup.ErrInvalidRequest):
		return "❌ " + err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "⏱ The render took too long. Please try again."
	case errors.As(err, &apiErr):
		return fmt.Sprintf("❌ The image service failed (%d). Please try again later.", apiErr.StatusCode)
	default:
		return "❌ Something went wrong. Please try again."
	}
}
