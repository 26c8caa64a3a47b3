package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logo-mockup-studio/internal/catalog"
	"logo-mockup-studio/internal/config"
	"logo-mockup-studio/internal/gemini"
	"logo-mockup-studio/internal/mockup"
)

var pngLogo = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{1}, 16)...)

type stubGenerator struct {
	req  gemini.GenerateContentRequest
	resp *gemini.GenerateContentResponse
	err  error
}

func (s *stubGenerator) GenerateContent(_ context.Context, _ string, req gemini.GenerateContentRequest) (*gemini.GenerateContentResponse, error) {
	s.req = req
	return s.resp, s.err
}

func testApp(gen *stubGenerator) (*app, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	a := newApp(
		withIO(&stdout, &stderr),
		withConfigLoader(func() (config.Config, error) {
			return config.Config{GeminiAPIKey: "k", GeminiImageModel: mockup.DefaultModel, RequestTimeoutSec: 5, LogLevel: "error"}, nil
		}),
		withGenerator(func(config.Config, *slog.Logger) mockup.Generator { return gen }),
	)
	return a, &stdout, &stderr
}

func writeLogo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logo.png")
	require.NoError(t, os.WriteFile(path, pngLogo, 0o644))
	return path
}

func TestStylesCommand(t *testing.T) {
	a, stdout, _ := testApp(nil)
	require.NoError(t, a.executeArgs("styles", "--category", "apparel"))

	out := stdout.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "apparel-hoodie")
	assert.NotContains(t, out, "vehicle-van")
}

func TestStylesCommandJSON(t *testing.T) {
	a, stdout, _ := testApp(nil)
	require.NoError(t, a.executeArgs("styles", "--json"))

	var styles []catalog.Style
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &styles))
	assert.Len(t, styles, len(catalog.Styles()))
}

func TestStylesCommandUnknownCategory(t *testing.T) {
	a, _, _ := testApp(nil)
	err := a.executeArgs("styles", "--category", "space")

	var ec *exitError
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, exitValidation, ec.code)
}

func TestPromptCommand(t *testing.T) {
	style, ok := catalog.Lookup("print-box")
	require.True(t, ok)

	a, stdout, _ := testApp(nil)
	require.NoError(t, a.executeArgs("prompt", "--style", "print-box", "--keep-background", "--avoid", "barcodes"))

	want := mockup.BuildInstructions(style.Prompt, false, "barcodes") + "\n"
	assert.Equal(t, want, stdout.String())
}

func TestPromptCommandRequiresStyle(t *testing.T) {
	a, _, _ := testApp(nil)
	assert.Error(t, a.executeArgs("prompt"))
}

func TestGenerateCommandWritesImage(t *testing.T) {
	gen := &stubGenerator{resp: &gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{{Content: gemini.Content{Parts: []gemini.Part{
			{InlineData: &gemini.Blob{MimeType: "image/jpeg", Data: base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))}},
		}}}},
	}}
	a, stdout, _ := testApp(gen)
	input := writeLogo(t)

	require.NoError(t, a.executeArgs("generate", "--input", input, "--style", "vehicle-van", "--creativity", "0", "--json"))

	var res generateResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	assert.Equal(t, filepath.Join(filepath.Dir(input), "logo-vehicle-van.jpg"), res.Output)
	assert.Equal(t, "image/jpeg", res.MimeType)

	written, err := os.ReadFile(res.Output)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), written)

	require.NotNil(t, gen.req.GenerationConfig.Temperature)
	assert.Equal(t, 0.0, *gen.req.GenerationConfig.Temperature)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngLogo), gen.req.Contents[0].Parts[0].InlineData.Data)
}

func TestGenerateCommandNoImage(t *testing.T) {
	gen := &stubGenerator{resp: &gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{{Content: gemini.Content{Parts: []gemini.Part{{Text: "cannot comply"}}}}},
	}}
	a, _, stderr := testApp(gen)

	err := a.executeArgs("generate", "--input", writeLogo(t), "--style", "vehicle-van")
	assert.ErrorIs(t, err, mockup.ErrNoImageData)

	var ec *exitError
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, exitService, ec.code)
	assert.Contains(t, stderr.String(), "cannot comply")
}

func TestGenerateCommandServiceError(t *testing.T) {
	boom := errors.New("boom")
	a, _, _ := testApp(&stubGenerator{err: boom})

	err := a.executeArgs("generate", "--input", writeLogo(t), "--style", "vehicle-van")
	assert.ErrorIs(t, err, boom)
}

func TestGenerateCommandValidation(t *testing.T) {
	for _, v := range []string{"3", "NaN"} {
		t.Run(v, func(t *testing.T) {
			gen := &stubGenerator{}
			a, _, _ := testApp(gen)
			err := a.executeArgs("generate", "--input", writeLogo(t), "--style", "vehicle-van", "--creativity", v)

			var ec *exitError
			require.ErrorAs(t, err, &ec)
			assert.Equal(t, exitValidation, ec.code)
			assert.ErrorIs(t, err, mockup.ErrInvalidRequest)
			assert.Nil(t, gen.req.Contents)
		})
	}
}

func TestDefaultOutputPath(t *testing.T) {
	assert.Equal(t, "dir/logo-print-bag.png", defaultOutputPath("dir/logo.svg", "print-bag", "image/png"))
	assert.Equal(t, "logo-print-bag.webp", defaultOutputPath("logo", "print-bag", "image/webp"))
}
