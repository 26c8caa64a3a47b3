package mockup

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"logo-mockup-studio/internal/gemini"
)

const DefaultModel = "gemini-2.5-flash-image"

// Outcome labels passed to Recorder.
const (
	OutcomeOK           = "ok"
	OutcomeNoImage      = "no_image"
	OutcomeServiceError = "service_error"
	OutcomeInvalid      = "invalid"
)

// Generator is the external generative service. *gemini.Client satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, req gemini.GenerateContentRequest) (*gemini.GenerateContentResponse, error)
}

type Recorder interface {
	ObserveGeneration(styleID, outcome string, d time.Duration)
}

type Request struct {
	Image    []byte
	MimeType string

	// StyleID is used for logs and metrics only; StylePrompt drives the output.
	StyleID          string
	StylePrompt      string
	RemoveBackground bool
	NegativePrompt   string

	// Creativity in [0,1] becomes the sampling temperature. Nil leaves the
	// service default in place.
	Creativity *float64
}

type Result struct {
	// Data is base64, exactly as returned by the service.
	Data     string
	MimeType string
	Text     string
}

type Options struct {
	Generator Generator
	Model     string
	Logger    *slog.Logger
	Recorder  Recorder
}

// Pipeline is stateless and safe for concurrent use. It performs one
// outbound call per Generate: no retries, caching or timeouts of its own.
type Pipeline struct {
	gen      Generator
	model    string
	logger   *slog.Logger
	recorder Recorder
}

func New(opts Options) *Pipeline {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Pipeline{
		gen:      opts.Generator,
		model:    model,
		logger:   logger,
		recorder: opts.Recorder,
	}
}

func (p *Pipeline) Model() string {
	return p.model
}

// Generate renders the logo in the requested style. Errors returned by the
// Generator are passed through untouched; a response without image parts
// yields *GenerationError.
func (p *Pipeline) Generate(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		p.observe(req.StyleID, OutcomeInvalid, start)
		return Result{}, err
	}
	if p.gen == nil {
		p.observe(req.StyleID, OutcomeInvalid, start)
		return Result{}, errors.New("generator is nil")
	}

	payload := BuildRequest(req)

	resp, err := p.gen.GenerateContent(ctx, p.model, payload)
	if err != nil {
		p.logger.Error("mockup generation failed", "style", req.StyleID, "model", p.model, "err", err)
		p.observe(req.StyleID, OutcomeServiceError, start)
		return Result{}, err
	}

	res, err := ExtractImage(resp)
	if err != nil {
		var genErr *GenerationError
		if errors.As(err, &genErr) {
			p.logger.Warn("mockup response without image",
				"style", req.StyleID,
				"finish_reason", genErr.FinishReason,
				"block_reason", genErr.BlockReason,
				"text_len", len(genErr.Text),
			)
		}
		p.observe(req.StyleID, OutcomeNoImage, start)
		return Result{}, err
	}

	p.logger.Info("mockup generated",
		"style", req.StyleID,
		"model", p.model,
		"mime", res.MimeType,
		"b64_len", len(res.Data),
		"dur_ms", time.Since(start).Milliseconds(),
	)
	p.observe(req.StyleID, OutcomeOK, start)
	return res, nil
}

func (r Request) Validate() error {
	switch {
	case len(r.Image) == 0:
		return invalid("image is empty")
	case strings.TrimSpace(r.MimeType) == "":
		return invalid("mime type is empty")
	case strings.TrimSpace(r.StylePrompt) == "":
		return invalid("style prompt is empty")
	}
	if c := r.Creativity; c != nil && !(*c >= 0 && *c <= 1) {
		return invalid("creativity %.2f outside [0,1]", *r.Creativity)
	}
	return nil
}

// BuildRequest assembles the generateContent payload: the source image first,
// then the instruction document.
func BuildRequest(req Request) gemini.GenerateContentRequest {
	cfg := &gemini.GenerationConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}
	if req.Creativity != nil {
		t := *req.Creativity
		cfg.Temperature = &t
	}

	return gemini.GenerateContentRequest{
		Contents: []gemini.Content{{
			Role: "user",
			Parts: []gemini.Part{
				{InlineData: &gemini.Blob{
					MimeType: strings.TrimSpace(req.MimeType),
					Data:     base64.StdEncoding.EncodeToString(req.Image),
				}},
				{Text: BuildInstructions(req.StylePrompt, req.RemoveBackground, req.NegativePrompt)},
			},
		}},
		GenerationConfig: cfg,
	}
}

// ExtractImage returns the first part of the first candidate that carries
// inline image bytes.
func ExtractImage(resp *gemini.GenerateContentResponse) (Result, error) {
	genErr := &GenerationError{}
	if resp == nil {
		return Result{}, genErr
	}
	if resp.PromptFeedback != nil {
		genErr.BlockReason = resp.PromptFeedback.BlockReason
	}
	if len(resp.Candidates) == 0 {
		return Result{}, genErr
	}

	cand := resp.Candidates[0]
	for _, part := range cand.Content.Parts {
		if part.InlineData == nil || part.InlineData.Data == "" {
			continue
		}
		mimeType := part.InlineData.MimeType
		if mimeType == "" {
			mimeType = "image/png"
		}
		return Result{
			Data:     part.InlineData.Data,
			MimeType: mimeType,
			Text:     strings.TrimSpace(resp.Text()),
		}, nil
	}

	genErr.Text = strings.TrimSpace(resp.Text())
	genErr.FinishReason = cand.FinishReason
	return Result{}, genErr
}

func (p *Pipeline) observe(styleID, outcome string, start time.Time) {
	if p.recorder == nil {
		return
	}
	p.recorder.ObserveGeneration(styleID, outcome, time.Since(start))
}
