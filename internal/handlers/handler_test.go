package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logo-mockup-studio/internal/catalog"
	"logo-mockup-studio/internal/gemini"
	"logo-mockup-studio/internal/mockup"
	"logo-mockup-studio/internal/session"
	"logo-mockup-studio/internal/upload"
)

func TestLogoFileID(t *testing.T) {
	photo := &tgbotapi.Message{Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}}}
	id, err := logoFileID(photo)
	require.NoError(t, err)
	assert.Equal(t, "large", id)

	doc := &tgbotapi.Message{Document: &tgbotapi.Document{FileID: "doc", MimeType: "image/png", FileSize: 1024}}
	id, err = logoFileID(doc)
	require.NoError(t, err)
	assert.Equal(t, "doc", id)

	pdf := &tgbotapi.Message{Document: &tgbotapi.Document{FileID: "pdf", MimeType: "application/pdf"}}
	_, err = logoFileID(pdf)
	assert.ErrorIs(t, err, upload.ErrUnsupportedType)

	big := &tgbotapi.Message{Document: &tgbotapi.Document{FileID: "big", MimeType: "image/webp", FileSize: upload.MaxBytes + 1}}
	_, err = logoFileID(big)
	assert.ErrorIs(t, err, upload.ErrTooLarge)
}

func TestErrorText(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&mockup.GenerationError{Text: "I can't do that"}, "Model said: I can't do that"},
		{&mockup.GenerationError{}, "returned no image"},
		{fmt.Errorf("download: %w", upload.ErrTooLarge), "too large"},
		{upload.ErrUnsupportedType, "Unsupported image type"},
		{fmt.Errorf("%w: style prompt is empty", mockup.ErrInvalidRequest), "style prompt is empty"},
		{context.DeadlineExceeded, "took too long"},
		{&gemini.APIError{StatusCode: 503}, "(503)"},
		{errors.New("boom"), "Something went wrong"},
	}
	for _, tc := range cases {
		assert.Contains(t, errorText(tc.err), tc.want, tc.err.Error())
	}
}

func TestHistoryText(t *testing.T) {
	assert.Contains(t, historyText(nil), "No renders yet")

	ts := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	text := historyText([]session.GeneratedResult{
		{StyleID: "apparel-cap", Timestamp: ts},
		{StyleID: "retired-style", Timestamp: ts},
	})
	assert.Contains(t, text, "1) ")
	assert.Contains(t, text, "2) retired-style · 2024-05-01 09:30")
}

func TestApplyArgsUpdatesSession(t *testing.T) {
	h := New(Options{Sessions: session.NewStore(session.Options{})})

	st, unknown := h.applyArgs(1, 2, "apparel-cap keep creativity=0.8 avoid=text on the cap")
	assert.Empty(t, unknown)
	assert.Equal(t, "apparel-cap", st.StyleID)
	assert.Equal(t, "apparel", st.Category)
	assert.False(t, st.RemoveBackground)
	assert.Equal(t, 0.8, st.Creativity)
	assert.Equal(t, "text on the cap", st.NegativePrompt)

	st, unknown = h.applyArgs(1, 2, "sparkles")
	assert.Equal(t, []string{"sparkles"}, unknown)
	assert.Equal(t, "apparel-cap", st.StyleID)
}

func TestResultCaption(t *testing.T) {
	style, ok := catalog.Lookup("print-bag")
	require.True(t, ok)
	st := session.DefaultState()
	st.NegativePrompt = "people"

	caption := resultCaption(style, st)
	assert.Contains(t, caption, style.Name)
	assert.Contains(t, caption, "remove BG ON")
	assert.Contains(t, caption, "creativity 0.4")
	assert.Contains(t, caption, "Avoid: people")
}

func TestParseBackgroundCommand(t *testing.T) {
	cases := []struct {
		args       string
		wantRemove bool
		wantOK     bool
	}{
		{"on", false, true},
		{"ON", false, true},
		{"keep", false, true},
		{"off", true, true},
		{" remove ", true, true},
		{"", false, false},
		{"maybe", false, false},
		{"on off", false, false},
	}
	for _, tc := range cases {
		remove, ok := parseBackgroundCommand(tc.args)
		assert.Equal(t, tc.wantOK, ok, tc.args)
		assert.Equal(t, tc.wantRemove, remove, tc.args)
	}
}

func TestBackgroundCommandMenuText(t *testing.T) {
	for _, c := range Commands {
		if c.Name == "bg" {
			assert.Contains(t, c.Description, "Keep background")
			return
		}
	}
	t.Fatal("bg command missing")
}

func TestParseCreativity(t *testing.T) {
	for _, in := range []string{"0", "0.4", " 1 "} {
		_, ok := parseCreativity(in)
		assert.True(t, ok, in)
	}
	for _, in := range []string{"", "abc", "-0.1", "1.01", "NaN", "nan", "Inf", "-Inf"} {
		_, ok := parseCreativity(in)
		assert.False(t, ok, in)
	}
}
