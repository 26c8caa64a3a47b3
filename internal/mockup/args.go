package mockup

import (
	"strconv"
	"strings"

	"logo-mockup-studio/internal/catalog"
)

// Args are the caller-tunable knobs of one render, as typed by a user.
type Args struct {
	StyleID          string
	RemoveBackground bool
	NegativePrompt   string
	Creativity       float64

	// Unknown collects tokens that matched nothing.
	Unknown []string
}

// ParseArgs reads free text such as
//
//	apparel-hoodie keep creativity=0.7 avoid=blurry edges, watermark
//
// on top of defaults. avoid= consumes the rest of the line.
func ParseArgs(raw string, defaults Args) Args {
	opts := defaults
	opts.Unknown = nil

	fields := strings.Fields(strings.TrimSpace(raw))
	for i := 0; i < len(fields); i++ {
		orig := fields[i]
		tok := strings.ToLower(orig)

		if key, value, ok := strings.Cut(tok, "="); ok {
			switch key {
			case "style", "s":
				if s, found := catalog.Lookup(value); found {
					opts.StyleID = s.ID
					continue
				}
			case "bg", "background":
				if v, valid := parseBackground(value); valid {
					opts.RemoveBackground = v
					continue
				}
			case "creativity", "temp", "c":
				if v, err := strconv.ParseFloat(value, 64); err == nil && v >= 0 && v <= 1 {
					opts.Creativity = v
					continue
				}
			case "avoid", "neg", "negative":
				_, rest, _ := strings.Cut(orig, "=")
				rest = strings.TrimSpace(rest)
				if i+1 < len(fields) {
					rest = strings.TrimSpace(rest + " " + strings.Join(fields[i+1:], " "))
				}
				opts.NegativePrompt = rest
				return opts
			}
			opts.Unknown = append(opts.Unknown, orig)
			continue
		}

		switch tok {
		case "keep", "keepbg", "keep-bg":
			opts.RemoveBackground = false
			continue
		case "nobg", "removebg", "remove-bg", "isolate":
			opts.RemoveBackground = true
			continue
		}

		if s, found := catalog.Lookup(tok); found {
			opts.StyleID = s.ID
			continue
		}

		opts.Unknown = append(opts.Unknown, orig)
	}

	return opts
}

func parseBackground(value string) (removeBackground bool, ok bool) {
	switch value {
	case "remove", "off", "no", "none", "isolate", "0", "false":
		return true, true
	case "keep", "on", "yes", "1", "true":
		return false, true
	}
	return false, false
}
