package mockup

import (
	"context"
	"encoding/base64"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logo-mockup-studio/internal/catalog"
	"logo-mockup-studio/internal/gemini"
)

type fakeGenerator struct {
	mu    sync.Mutex
	resp  *gemini.GenerateContentResponse
	err   error
	calls int
	model string
	req   gemini.GenerateContentRequest
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, req gemini.GenerateContentRequest) (*gemini.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.model = model
	f.req = req
	return f.resp, f.err
}

type recorded struct {
	style, outcome string
}

type fakeRecorder struct {
	mu  sync.Mutex
	got []recorded
}

func (r *fakeRecorder) ObserveGeneration(styleID, outcome string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, recorded{styleID, outcome})
}

func imagePart(mime, data string) gemini.Part {
	return gemini.Part{InlineData: &gemini.Blob{MimeType: mime, Data: data}}
}

func respWith(parts ...gemini.Part) *gemini.GenerateContentResponse {
	return &gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{{Content: gemini.Content{Role: "model", Parts: parts}}},
	}
}

func baseRequest() Request {
	style := catalog.Default()
	return Request{
		Image:            []byte("\x89PNG fake logo"),
		MimeType:         "image/png",
		StyleID:          style.ID,
		StylePrompt:      style.Prompt,
		RemoveBackground: true,
	}
}

func TestGenerateReturnsImageUnchanged(t *testing.T) {
	gen := &fakeGenerator{resp: respWith(gemini.Part{Text: "done"}, imagePart("image/jpeg", "cmVzdWx0LWJ5dGVz"))}
	rec := &fakeRecorder{}
	p := New(Options{Generator: gen, Recorder: rec})

	res, err := p.Generate(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.Equal(t, "cmVzdWx0LWJ5dGVz", res.Data)
	assert.Equal(t, "image/jpeg", res.MimeType)
	assert.Equal(t, "done", res.Text)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, DefaultModel, gen.model)
	assert.Equal(t, []recorded{{"office-3d-blue", OutcomeOK}}, rec.got)
}

func TestGenerateSendsImageThenInstructions(t *testing.T) {
	gen := &fakeGenerator{resp: respWith(imagePart("image/png", "eA=="))}
	p := New(Options{Generator: gen, Model: "gemini-custom-image"})

	req := baseRequest()
	_, err := p.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "gemini-custom-image", gen.model)
	require.Len(t, gen.req.Contents, 1)
	parts := gen.req.Contents[0].Parts
	require.Len(t, parts, 2)

	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/png", parts[0].InlineData.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(req.Image), parts[0].InlineData.Data)

	assert.Equal(t, BuildInstructions(req.StylePrompt, true, ""), parts[1].Text)
	require.NotNil(t, gen.req.GenerationConfig)
	assert.Equal(t, []string{"IMAGE", "TEXT"}, gen.req.GenerationConfig.ResponseModalities)
	assert.Nil(t, gen.req.GenerationConfig.Temperature)
}

func TestGenerateFirstImageWins(t *testing.T) {
	gen := &fakeGenerator{resp: respWith(
		gemini.Part{Text: "preface"},
		imagePart("image/png", ""),
		imagePart("image/png", "Zmlyc3Q="),
		imagePart("image/png", "c2Vjb25k"),
	)}
	p := New(Options{Generator: gen})

	res, err := p.Generate(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Equal(t, "Zmlyc3Q=", res.Data)
}

func TestGenerateOnlyScansFirstCandidate(t *testing.T) {
	resp := respWith(gemini.Part{Text: "no picture"})
	resp.Candidates = append(resp.Candidates, gemini.Candidate{Content: gemini.Content{Parts: []gemini.Part{imagePart("image/png", "b3RoZXI=")}}})
	gen := &fakeGenerator{resp: resp}

	_, err := New(Options{Generator: gen}).Generate(context.Background(), baseRequest())
	require.ErrorIs(t, err, ErrNoImageData)
}

func TestGenerateNoImage(t *testing.T) {
	cases := map[string]*gemini.GenerateContentResponse{
		"text only":       respWith(gemini.Part{Text: "I cannot do that."}),
		"empty parts":     respWith(),
		"no candidates":   {},
		"nil response":    nil,
		"blocked prompt":  {PromptFeedback: &gemini.PromptFeedback{BlockReason: "SAFETY"}},
		"empty blob data": respWith(imagePart("image/png", "")),
	}

	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			rec := &fakeRecorder{}
			p := New(Options{Generator: &fakeGenerator{resp: resp}, Recorder: rec})

			res, err := p.Generate(context.Background(), baseRequest())
			require.Error(t, err)
			assert.Empty(t, res.Data)
			assert.ErrorIs(t, err, ErrNoImageData)
			assert.NotEmpty(t, err.Error())
			assert.Equal(t, "no image data found in the response", err.Error())

			var genErr *GenerationError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, []recorded{{"office-3d-blue", OutcomeNoImage}}, rec.got)
		})
	}
}

func TestGenerationErrorCarriesModelText(t *testing.T) {
	resp := respWith(gemini.Part{Text: "  Sorry, I can't edit this image. "})
	resp.Candidates[0].FinishReason = "STOP"
	resp.PromptFeedback = &gemini.PromptFeedback{BlockReason: "OTHER"}

	_, err := New(Options{Generator: &fakeGenerator{resp: resp}}).Generate(context.Background(), baseRequest())

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "Sorry, I can't edit this image.", genErr.Text)
	assert.Equal(t, "STOP", genErr.FinishReason)
	assert.Equal(t, "OTHER", genErr.BlockReason)
}

func TestGenerateServiceErrorPassesThrough(t *testing.T) {
	serviceErr := &gemini.APIError{StatusCode: 403, Status: "403 Forbidden", Message: "API key not valid"}
	rec := &fakeRecorder{}
	p := New(Options{Generator: &fakeGenerator{err: serviceErr}, Recorder: rec})

	_, err := p.Generate(context.Background(), baseRequest())
	require.Error(t, err)
	assert.Same(t, serviceErr, err)
	assert.Equal(t, serviceErr.Error(), err.Error())
	assert.NotErrorIs(t, err, ErrNoImageData)
	assert.Equal(t, []recorded{{"office-3d-blue", OutcomeServiceError}}, rec.got)

	transportErr := errors.New("dial tcp: connection refused")
	_, err = New(Options{Generator: &fakeGenerator{err: transportErr}}).Generate(context.Background(), baseRequest())
	assert.Same(t, transportErr, err)
}

func TestGenerateValidation(t *testing.T) {
	tooHigh, negative, nan, inf := 1.5, -0.1, math.NaN(), math.Inf(1)
	cases := map[string]func(r *Request){
		"empty image":      func(r *Request) { r.Image = nil },
		"empty mime":       func(r *Request) { r.MimeType = " " },
		"empty style":      func(r *Request) { r.StylePrompt = "" },
		"creativity high":  func(r *Request) { r.Creativity = &tooHigh },
		"creativity below": func(r *Request) { r.Creativity = &negative },
		"creativity NaN":   func(r *Request) { r.Creativity = &nan },
		"creativity Inf":   func(r *Request) { r.Creativity = &inf },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			gen := &fakeGenerator{resp: respWith(imagePart("image/png", "eA=="))}
			rec := &fakeRecorder{}
			req := baseRequest()
			mutate(&req)

			_, err := New(Options{Generator: gen, Recorder: rec}).Generate(context.Background(), req)
			require.ErrorIs(t, err, ErrInvalidRequest)
			assert.Zero(t, gen.calls)
			assert.Equal(t, OutcomeInvalid, rec.got[0].outcome)
		})
	}
}

func TestGenerateCreativityBecomesTemperature(t *testing.T) {
	for _, c := range []float64{0, 0.4, 1} {
		gen := &fakeGenerator{resp: respWith(imagePart("image/png", "eA=="))}
		req := baseRequest()
		creativity := c
		req.Creativity = &creativity

		_, err := New(Options{Generator: gen}).Generate(context.Background(), req)
		require.NoError(t, err)

		require.NotNil(t, gen.req.GenerationConfig.Temperature)
		assert.Equal(t, c, *gen.req.GenerationConfig.Temperature)

		// creativity never leaks into the instruction text
		assert.Equal(t, BuildInstructions(req.StylePrompt, true, ""), gen.req.Contents[0].Parts[1].Text)
	}
}

func TestGenerateNegativePromptForwarded(t *testing.T) {
	gen := &fakeGenerator{resp: respWith(imagePart("image/png", "eA=="))}
	req := baseRequest()
	req.NegativePrompt = "watermarks, blurry edges"

	_, err := New(Options{Generator: gen}).Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, gen.req.Contents[0].Parts[1].Text, "AVOID: watermarks, blurry edges")
}

func TestGenerateWithoutGenerator(t *testing.T) {
	_, err := New(Options{}).Generate(context.Background(), baseRequest())
	require.Error(t, err)
}

func TestExtractImageDefaultsMime(t *testing.T) {
	res, err := ExtractImage(respWith(imagePart("", "eA==")))
	require.NoError(t, err)
	assert.Equal(t, "image/png", res.MimeType)
	assert.False(t, strings.Contains(res.Data, "data:"))
}
