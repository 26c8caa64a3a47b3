package handlers

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logo-mockup-studio/internal/catalog"
	"logo-mockup-studio/internal/session"
)

func TestCallbackRoundTrip(t *testing.T) {
	data := cb(42, "style", "apparel-cap")
	assert.Equal(t, "mk:42:style:apparel-cap", data)

	c, ok := parseCallback(data)
	require.True(t, ok)
	assert.Equal(t, int64(42), c.OwnerID)
	assert.Equal(t, "style", c.Action)
	assert.Equal(t, []string{"apparel-cap"}, c.Args)
}

func TestParseCallbackRejectsForeignData(t *testing.T) {
	for _, data := range []string{"", "pv:1:menu", "mk:1", "mk:abc:menu", "mk:1:"} {
		_, ok := parseCallback(data)
		assert.False(t, ok, data)
	}
}

func TestKeyboardCallbacksFitTelegramLimit(t *testing.T) {
	st := session.DefaultState()
	st.NegativePrompt = "text"
	owner := int64(-1000000000000)

	var boards []tgbotapi.InlineKeyboardMarkup
	for _, menu := range []string{session.MenuMain, session.MenuCategory} {
		st.Menu = menu
		boards = append(boards, wizardKeyboard(owner, st))
	}
	st.Menu = session.MenuStyle
	for _, c := range catalog.Categories() {
		st.Category = c.ID
		boards = append(boards, wizardKeyboard(owner, st))
	}
	boards = append(boards, resultKeyboard(owner))

	for _, kb := range boards {
		for _, row := range kb.InlineKeyboard {
			for _, btn := range row {
				require.NotNil(t, btn.CallbackData)
				assert.LessOrEqual(t, len(*btn.CallbackData), 64, *btn.CallbackData)
				_, ok := parseCallback(*btn.CallbackData)
				assert.True(t, ok, *btn.CallbackData)
			}
		}
	}
}

func TestStyleKeyboardFiltersByCategory(t *testing.T) {
	st := session.DefaultState()
	st.Menu = session.MenuStyle
	st.Category = "apparel"
	st.StyleID = "apparel-cap"

	kb := wizardKeyboard(7, st)
	styles := catalog.ByCategory("apparel")
	require.Len(t, kb.InlineKeyboard, len(styles)+1)

	var selected []string
	for _, row := range kb.InlineKeyboard[:len(styles)] {
		if strings.HasPrefix(row[0].Text, "✅ ") {
			selected = append(selected, *row[0].CallbackData)
		}
	}
	assert.Equal(t, []string{"mk:7:style:apparel-cap"}, selected)
}

func TestMainKeyboardShowsClearOnlyWithAvoid(t *testing.T) {
	st := session.DefaultState()
	assert.Len(t, mainKeyboard(1, st).InlineKeyboard[2], 1)

	st.NegativePrompt = "people"
	assert.Len(t, mainKeyboard(1, st).InlineKeyboard[2], 2)
}

func TestWizardText(t *testing.T) {
	st := session.DefaultState()
	st.NegativePrompt = "watermark"
	st.Creativity = 0.7

	text := wizardText(st)
	assert.Contains(t, text, "Style: Modern Blue Wall")
	assert.Contains(t, text, "Remove background: ON")
	assert.Contains(t, text, "Creativity: 0.7")
	assert.Contains(t, text, "Avoid: watermark")
	assert.Contains(t, text, "send an image")

	st.LogoFileID = "file"
	st.Menu = session.MenuStyle
	st.Category = "vehicle"
	text = wizardText(st)
	assert.Contains(t, text, "Logo: ✅ saved")
	assert.True(t, strings.HasSuffix(text, "Pick a style (Vehicles):"))
}

func TestTruncateLine(t *testing.T) {
	assert.Equal(t, "abc", truncateLine("  abc ", 5))
	assert.Equal(t, "ab…", truncateLine("abcdef", 2))
	assert.Equal(t, "ёж…", truncateLine("ёжик", 2))
	assert.Equal(t, "abc", truncateLine("abc", 0))
}
