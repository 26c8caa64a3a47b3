package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"logo-mockup-studio/internal/catalog"
	"logo-mockup-studio/internal/mockup"
	"logo-mockup-studio/internal/upload"
)

type generateResult struct {
	Output   string `json:"output"`
	StyleID  string `json:"style_id"`
	MimeType string `json:"mime_type"`
	Bytes    int    `json:"bytes"`
	Text     string `json:"text,omitempty"`
}

func (a *app) newGenerateCommand() *cobra.Command {
	var (
		input          string
		output         string
		styleID        string
		keepBackground bool
		avoid          string
		creativity     float64
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render a mockup from a logo file",
		Example: `  mockup generate --input logo.png --style apparel-hoodie
  mockup generate --input logo.png --style vehicle-van --output van.png --creativity 0.7 --avoid "text, people"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			style, ok := catalog.Lookup(styleID)
			if !ok {
				return exitWithCode(exitValidation, fmt.Errorf("unknown style %q (see: mockup styles)", styleID))
			}

			data, err := os.ReadFile(input)
			if err != nil {
				return exitWithCode(exitValidation, fmt.Errorf("read input: %w", err))
			}
			mimeType, err := upload.Normalize(data, "")
			if err != nil {
				return exitWithCode(exitValidation, fmt.Errorf("%s: %w", input, err))
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return exitWithCode(exitValidation, err)
			}
			logger := a.logger(cfg)

			req := mockup.Request{
				Image:            data,
				MimeType:         mimeType,
				StyleID:          style.ID,
				StylePrompt:      style.Prompt,
				RemoveBackground: !keepBackground,
				NegativePrompt:   avoid,
			}
			if cmd.Flags().Changed("creativity") {
				req.Creativity = &creativity
			}

			pipeline := mockup.New(mockup.Options{
				Generator: a.newGenerator(cfg, logger),
				Model:     cfg.GeminiImageModel,
				Logger:    logger,
			})

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout())
			defer cancel()

			res, err := pipeline.Generate(ctx, req)
			if err != nil {
				if errors.Is(err, mockup.ErrInvalidRequest) {
					return exitWithCode(exitValidation, err)
				}
				var genErr *mockup.GenerationError
				if errors.As(err, &genErr) && genErr.Text != "" {
					fmt.Fprintln(a.stderr, "model said:", genErr.Text)
				}
				return exitWithCode(exitService, err)
			}

			img, err := base64.StdEncoding.DecodeString(res.Data)
			if err != nil {
				return exitWithCode(exitService, fmt.Errorf("decode image: %w", err))
			}

			if output == "" {
				output = defaultOutputPath(input, style.ID, res.MimeType)
			}
			if err := os.WriteFile(output, img, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			if a.jsonOutput {
				return a.printJSON(generateResult{
					Output:   output,
					StyleID:  style.ID,
					MimeType: res.MimeType,
					Bytes:    len(img),
					Text:     res.Text,
				})
			}
			fmt.Fprintf(a.stdout, "✓ %s written (%s, %d bytes)\n", output, res.MimeType, len(img))
			if res.Text != "" {
				fmt.Fprintln(a.stdout, res.Text)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "logo file (PNG, JPG or WEBP, required)")
	cmd.Flags().StringVar(&output, "output", "", "output file (default <input>-<style>.<ext>)")
	cmd.Flags().StringVar(&styleID, "style", "", "style id (required)")
	cmd.Flags().BoolVar(&keepBackground, "keep-background", false, "use the whole input composition instead of isolating the logo")
	cmd.Flags().StringVar(&avoid, "avoid", "", "things the render should avoid")
	cmd.Flags().Float64Var(&creativity, "creativity", 0, "variability from 0 to 1 (default: service default)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("style")
	return cmd
}

func defaultOutputPath(input, styleID, mimeType string) string {
	ext := ".png"
	switch mimeType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/webp":
		ext = ".webp"
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "-" + styleID + ext
}
