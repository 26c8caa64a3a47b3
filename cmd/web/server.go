package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"logo-mockup-studio/internal/catalog"
	"logo-mockup-studio/internal/gemini"
	"logo-mockup-studio/internal/metrics"
	"logo-mockup-studio/internal/mockup"
	"logo-mockup-studio/internal/upload"
)

// maxBodyBytes leaves room for multipart framing and base64 expansion
// around a MaxBytes image.
const maxBodyBytes = upload.MaxBytes*4/3 + 1<<20

type serverOptions struct {
	Pipeline       *mockup.Pipeline
	Catalog        *catalog.Catalog
	Metrics        *metrics.Collector
	Logger         *slog.Logger
	RequestTimeout time.Duration
}

type server struct {
	pipeline       *mockup.Pipeline
	catalog        *catalog.Catalog
	metrics        *metrics.Collector
	logger         *slog.Logger
	requestTimeout time.Duration
	now            func() time.Time
}

type apiError struct {
	Error string `json:"error"`
}

type stylesResponse struct {
	Styles []catalog.Style `json:"styles"`
}

type categoriesResponse struct {
	Categories []catalog.Category `json:"categories"`
}

type mockupJSONRequest struct {
	Image            string   `json:"image"`
	StyleID          string   `json:"style_id"`
	RemoveBackground *bool    `json:"remove_background"`
	NegativePrompt   string   `json:"negative_prompt"`
	Creativity       *float64 `json:"creativity"`
}

type mockupResponse struct {
	Image     string    `json:"image"`
	MimeType  string    `json:"mime_type"`
	StyleID   string    `json:"style_id"`
	Text      string    `json:"text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// errNotFound marks an unknown style id.
var errNotFound = errors.New("unknown style")

func newServer(opts serverOptions) *server {
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Builtin()
	}
	collector := opts.Metrics
	if collector == nil {
		collector = metrics.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &server{
		pipeline:       opts.Pipeline,
		catalog:        cat,
		metrics:        collector,
		logger:         logger,
		requestTimeout: opts.RequestTimeout,
		now:            time.Now,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/styles", s.handleStyles)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("POST /api/mockups", s.handleMockup)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", s.metrics.Handler())

	return withLogging(mux, s.logger, s.metrics)
}

func (s *server) handleStyles(w http.ResponseWriter, r *http.Request) {
	styles := s.catalog.ByCategory(r.URL.Query().Get("category"))
	if styles == nil {
		styles = []catalog.Style{}
	}
	writeJSON(w, http.StatusOK, stylesResponse{Styles: styles})
}

func (s *server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: s.catalog.Categories()})
}

func (s *server) handleMockup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	req, err := s.decodeMockup(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	res, err := s.pipeline.Generate(ctx, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mockupResponse{
		Image:     upload.DataURL(res.MimeType, res.Data),
		MimeType:  res.MimeType,
		StyleID:   req.StyleID,
		Text:      res.Text,
		CreatedAt: s.now().UTC(),
	})
}

// decodeMockup accepts multipart/form-data or a JSON body carrying the
// image as a data URL.
func (s *server) decodeMockup(r *http.Request) (mockup.Request, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		data       []byte
		declared   string
		styleID    string
		removeBG   = true
		negative   string
		creativity *float64
	)

	switch mediaType {
	case "application/json":
		var body mockupJSONRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			if isTooLarge(err) {
				return mockup.Request{}, upload.ErrTooLarge
			}
			return mockup.Request{}, badRequest("invalid json body")
		}
		img, mimeType, err := upload.ParseDataURL(body.Image)
		if err != nil {
			return mockup.Request{}, err
		}
		data, declared = img, mimeType
		styleID = body.StyleID
		if body.RemoveBackground != nil {
			removeBG = *body.RemoveBackground
		}
		negative = body.NegativePrompt
		creativity = body.Creativity
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			if isTooLarge(err) {
				return mockup.Request{}, upload.ErrTooLarge
			}
			return mockup.Request{}, badRequest("invalid multipart form")
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			return mockup.Request{}, badRequest("missing image")
		}
		defer file.Close()

		img, err := io.ReadAll(io.LimitReader(file, upload.MaxBytes+1))
		if err != nil {
			return mockup.Request{}, badRequest("failed to read image")
		}
		data, declared = img, header.Header.Get("Content-Type")
		styleID = r.FormValue("style_id")
		if v := strings.TrimSpace(r.FormValue("remove_background")); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return mockup.Request{}, badRequest("remove_background must be a boolean")
			}
			removeBG = b
		}
		negative = r.FormValue("negative_prompt")
		if v := strings.TrimSpace(r.FormValue("creativity")); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return mockup.Request{}, badRequest("creativity must be a number")
			}
			creativity = &f
		}
	default:
		return mockup.Request{}, badRequest("content type must be multipart/form-data or application/json")
	}

	mimeType, err := upload.Normalize(data, declared)
	if err != nil {
		return mockup.Request{}, err
	}

	styleID = strings.TrimSpace(styleID)
	if styleID == "" {
		styleID = s.catalog.Default().ID
	}
	style, ok := s.catalog.Lookup(styleID)
	if !ok {
		return mockup.Request{}, errNotFound
	}

	return mockup.Request{
		Image:            data,
		MimeType:         mimeType,
		StyleID:          style.ID,
		StylePrompt:      style.Prompt,
		RemoveBackground: removeBG,
		NegativePrompt:   strings.TrimSpace(negative),
		Creativity:       creativity,
	}, nil
}

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error { return &badRequestError{msg: msg} }

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// statusFor maps pipeline and upload errors to HTTP statuses.
func statusFor(err error) int {
	var badReq *badRequestError
	var genErr *mockup.GenerationError

	switch {
	case errors.As(err, &badReq),
		errors.Is(err, mockup.ErrInvalidRequest),
		errors.Is(err, upload.ErrEmpty),
		errors.Is(err, upload.ErrInvalidDataURL):
		return http.StatusBadRequest
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, upload.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, upload.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &genErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()

	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}
	var genErr *mockup.GenerationError
	if errors.As(err, &genErr) && genErr.Text != "" {
		writeJSON(w, status, struct {
			Error string `json:"error"`
			Text  string `json:"text"`
		}{Error: msg, Text: genErr.Text})
		return
	}
	if status >= 500 {
		s.logger.Error("mockup request failed", "request_id", requestID(r.Context()), "status", status, "err", err)
	}
	writeJSON(w, status, apiError{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
