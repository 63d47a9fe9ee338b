package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"

	"document-qa/internal/embedding"
	"document-qa/internal/models"
	"document-qa/internal/parser"
	"document-qa/internal/rag"
	"document-qa/internal/session"
	"document-qa/internal/telemetry"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// SessionCookie carries the session ID between requests.
const SessionCookie = "docqa_session"

const multipartMemory = 32 << 20

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type HandlerConfig struct {
	Sessions     *session.Manager
	KeyPrefix    string
	DefaultQuery string
}

type Handler struct {
	sessions     *session.Manager
	keyPrefix    string
	defaultQuery string
	markdown     goldmark.Markdown
}

func NewHandler(cfg HandlerConfig) *Handler {
	query := cfg.DefaultQuery
	if query == "" {
		query = models.DefaultQuery
	}
	return &Handler{
		sessions:     cfg.Sessions,
		keyPrefix:    cfg.KeyPrefix,
		defaultQuery: query,
		markdown:     goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

type sourceView struct {
	Content string
	Source  string
	Page    int
}

type pageView struct {
	APIKey       string
	KeyWarning   bool
	Accept       string
	Loaded       bool
	DocNames     []string
	Query        string
	Modes        []models.PromptMode
	Mode         models.PromptMode
	Temperatures []float64
	Temperature  float64
	Warning      string
	Answer       template.HTML
	Sources      []sourceView
}

func (h *Handler) newView(s *session.Session, apiKey string) pageView {
	return pageView{
		APIKey:       apiKey,
		KeyWarning:   embedding.ValidateAPIKey(apiKey, h.keyPrefix) != nil,
		Accept:       strings.Join(parser.SupportedExtensions, ","),
		Loaded:       s.Loaded(),
		DocNames:     s.DocNames(),
		Query:        h.defaultQuery,
		Modes:        models.PromptModes,
		Mode:         models.PromptModeRestricted,
		Temperatures: rag.TemperatureOptions(),
	}
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.render(w, http.StatusOK, h.newView(s, ""))
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	uploads, err := readUploads(r)
	apiKey := r.FormValue("api_key")
	if err == nil {
		err = s.Upload(r.Context(), uploads, apiKey)
	}

	view := h.newView(s, apiKey)
	h.finish(w, r, view, err)
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.finish(w, r, h.newView(s, ""), models.NewValidationErrorWithCause("malformed form", err))
		return
	}

	apiKey := r.PostFormValue("api_key")
	view := h.newView(s, apiKey)
	view.Query = r.PostFormValue("query")

	mode, err := parseMode(r.PostFormValue("mode"))
	if err != nil {
		h.finish(w, r, view, err)
		return
	}
	view.Mode = mode

	temperature, err := parseTemperature(r.PostFormValue("temperature"))
	if err != nil {
		h.finish(w, r, view, err)
		return
	}
	view.Temperature = temperature

	resp, err := s.Ask(r.Context(), view.Query, mode, temperature, apiKey)
	if err == nil {
		view.Answer, err = h.renderMarkdown(resp.Answer)
		for _, src := range resp.Sources {
			view.Sources = append(view.Sources, sourceView{Content: src.Content, Source: src.Source, Page: src.Page})
		}
	}
	h.finish(w, r, view, err)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r); ok {
		s.Reset()
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// TooLarge answers uploads rejected by their declared size before the body is read.
func (h *Handler) TooLarge(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r); ok {
		h.finish(w, r, h.newView(s, ""), errTooLarge)
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": h.sessions.Len()})
}

// session resolves the caller's session from the cookie, creating one when needed.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}

	s, created, err := h.sessions.GetOrCreate(id)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create session")
		telemetry.CaptureError(r.Context(), err)
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return nil, false
	}
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    s.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return s, true
}

func (h *Handler) finish(w http.ResponseWriter, r *http.Request, view pageView, err error) {
	status := statusFor(err)
	if err != nil {
		view.Warning = session.UserMessage(err)
		if session.Internal(err) {
			log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
			telemetry.CaptureError(r.Context(), err)
		} else {
			log.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("Request rejected")
		}
	}
	h.render(w, status, view)
}

func (h *Handler) render(w http.ResponseWriter, status int, view pageView) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		log.Error().Err(err).Msg("Failed to render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) renderMarkdown(answer string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(answer), &buf); err != nil {
		return "", models.NewGenerationError("failed to render answer", err)
	}
	return template.HTML(buf.String()), nil
}

func readUploads(r *http.Request) ([]parser.Upload, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errTooLarge
		}
		return nil, models.NewValidationErrorWithCause("malformed upload", err)
	}
	if r.MultipartForm == nil {
		return nil, nil
	}

	files := r.MultipartForm.File["documents"]
	uploads := make([]parser.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, models.NewParseError("failed to open "+fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, models.NewParseError("failed to read "+fh.Filename, err)
		}
		uploads = append(uploads, parser.Upload{FileName: fh.Filename, Data: data})
	}
	return uploads, nil
}

var errTooLarge = models.NewValidationError("the uploaded files are too large")

func parseMode(v string) (models.PromptMode, error) {
	if strings.TrimSpace(v) == "" {
		return models.PromptModeRestricted, nil
	}
	return models.ParsePromptMode(v)
}

func parseTemperature(v string) (float64, error) {
	if strings.TrimSpace(v) == "" {
		return models.MinTemperature, nil
	}
	t, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, models.NewValidationErrorWithCause("temperature must be a number", models.ErrInvalidTemperature)
	}
	if err := rag.ValidateTemperature(t); err != nil {
		return 0, err
	}
	return t, nil
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case err == errTooLarge:
		return http.StatusRequestEntityTooLarge
	case models.HasCode(err, models.ErrCodeValidation),
		models.HasCode(err, models.ErrCodeParse),
		models.HasCode(err, models.ErrCodeOutOfRange):
		return http.StatusBadRequest
	case models.HasCode(err, models.ErrCodeIndexing),
		models.HasCode(err, models.ErrCodeGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
