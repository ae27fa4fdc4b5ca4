package api

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"product-meta-viewer/internal/auth"
	"product-meta-viewer/internal/domain"
	"product-meta-viewer/internal/report"
	"product-meta-viewer/internal/search"
	"product-meta-viewer/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	PagePath   = "/admin/product-meta-viewer"
	SearchPath = PagePath + "/search"
)

// HandlerConfig carries the collaborators and settings of HTTPHandler.
type HandlerConfig struct {
	Reports       *report.Service
	Matcher       *search.Matcher
	Authenticator *auth.Authenticator
	// Pinger is checked by the health endpoint when the catalog is remote.
	Pinger      store.Pinger
	PageURL     string // Public URL of the page, used for permalinks and redirects
	CORSOrigins []string
	SearchRate  float64
	SearchBurst int
	ServiceName string
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	reports     *report.Service
	matcher     *search.Matcher
	auth        *auth.Authenticator
	pinger      store.Pinger
	pageURL     string
	corsOrigins []string
	limiter     *clientLimiter
	validate    *validator.Validate
	page        *template.Template
	serviceName string
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(cfg HandlerConfig) *HTTPHandler {
	pageURL := cfg.PageURL
	if pageURL == "" {
		pageURL = PagePath
	}
	return &HTTPHandler{
		reports:     cfg.Reports,
		matcher:     cfg.Matcher,
		auth:        cfg.Authenticator,
		pinger:      cfg.Pinger,
		pageURL:     pageURL,
		corsOrigins: cfg.CORSOrigins,
		limiter:     newClientLimiter(cfg.SearchRate, cfg.SearchBurst),
		validate:    validator.New(),
		page:        pageTemplate,
		serviceName: cfg.ServiceName,
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"` // Set on service failures
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Error().Err(err).Msg("Failed to encode JSON response")
		}
	}
}

// statusFor maps service errors onto HTTP status codes and public messages.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "Insufficient privileges"
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "Authorization required"
	case errors.Is(err, store.ErrProductNotFound):
		return http.StatusNotFound, report.MsgNoProductsFound
	case errors.Is(err, report.ErrInvalidProduct):
		return http.StatusUnprocessableEntity, report.MsgInvalidProduct
	case errors.Is(err, store.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable, "Product catalog is unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (h *HTTPHandler) respondWithServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	code, msg := statusFor(err)
	ev := log.Ctx(r.Context()).Warn()
	if code >= http.StatusInternalServerError {
		ev = log.Ctx(r.Context()).Error()
	}
	ev.Err(err).Str("op", op).Int("status", code).Msg("Request failed")
	respondWithJSON(w, code, ErrorResponse{Error: msg, RequestID: RequestIDFromContext(r.Context())})
}

func (h *HTTPHandler) denyJSON(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	log.Ctx(r.Context()).Info().Err(err).Str("path", r.URL.Path).Msg("Request rejected")
	respondWithError(w, code, msg)
}

// parseID reads an optional positive id. Anything unparsable counts as unset.
func parseID(raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// --- Page Handlers ---

// ShowPage renders the viewer page for the sku1/id1/sku2/id2 query.
func (h *HTTPHandler) ShowPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := report.PageQuery{
		SKU1: q.Get("sku1"),
		ID1:  parseID(q.Get("id1")),
		SKU2: q.Get("sku2"),
		ID2:  parseID(q.Get("id2")),
	}
	if err := h.validate.Struct(query); err != nil {
		log.Ctx(r.Context()).Info().Err(err).Msg("Page query rejected")
		h.renderPage(w, r, http.StatusBadRequest, &report.Page{Query: query, Error: report.MsgInvalidReference})
		return
	}

	page, err := h.reports.Page(r.Context(), query)
	if err != nil {
		h.respondWithServiceError(w, r, "ShowPage", err)
		return
	}

	// A token handed over in the URL becomes the session cookie so the form
	// and the picker keep working without it.
	if nonce := q.Get(auth.NonceParam); nonce != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     auth.CookieName,
			Value:    nonce,
			Path:     PagePath,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
			Secure:   r.TLS != nil,
		})
	}

	h.renderPage(w, r, http.StatusOK, page)
}

func (h *HTTPHandler) renderPage(w http.ResponseWriter, r *http.Request, code int, page *report.Page) {
	view := newPageView(page, h.reports.Formatter(), h.pageURL)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := h.page.Execute(w, view); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to render page")
	}
}

// SubmitPage turns a form submission into a redirect carrying the same
// references as query parameters.
func (h *HTTPHandler) SubmitPage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form payload: "+err.Error())
		return
	}
	query := report.PageQuery{
		SKU1: strings.TrimSpace(r.PostForm.Get("product_sku_1")),
		ID1:  parseID(r.PostForm.Get("product_id_1")),
		SKU2: strings.TrimSpace(r.PostForm.Get("product_sku_2")),
		ID2:  parseID(r.PostForm.Get("product_id_2")),
	}
	if err := h.validate.Struct(query); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	http.Redirect(w, r, report.PermalinkWithParams(h.pageURL, query), http.StatusSeeOther)
}

// --- Search Handler ---

type searchInput struct {
	Query string `validate:"max=200"`
}

type searchResponse struct {
	Results []search.Result `json:"results"`
}

func (h *HTTPHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow(clientKey(r)) {
		respondWithError(w, http.StatusTooManyRequests, "Too many search requests")
		return
	}

	input := searchInput{Query: r.URL.Query().Get("q")}
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	results, err := h.matcher.Search(r.Context(), input.Query)
	if err != nil {
		h.respondWithServiceError(w, r, "SearchProducts", err)
		return
	}
	respondWithJSON(w, http.StatusOK, searchResponse{Results: results})
}

// --- JSON Report Handlers ---

type fieldResponse struct {
	Label   string       `json:"label"`
	Value   domain.Value `json:"value"`
	Display string       `json:"display"`
}

type detailResponse struct {
	ID      int64           `json:"id"`
	Kind    domain.Kind     `json:"kind"`
	Name    string          `json:"name"`
	EditURL string          `json:"edit_url"`
	Fields  []fieldResponse `json:"fields"`
}

type rowResponse struct {
	Label        string       `json:"label"`
	Left         domain.Value `json:"left"`
	Right        domain.Value `json:"right"`
	LeftDisplay  string       `json:"left_display"`
	RightDisplay string       `json:"right_display"`
	Differs      bool         `json:"differs"`
}

type compareResponse struct {
	Left      detailSummary `json:"left"`
	Right     detailSummary `json:"right"`
	Rows      []rowResponse `json:"rows"`
	Permalink string        `json:"permalink"`
}

type detailSummary struct {
	ID      int64       `json:"id"`
	Kind    domain.Kind `json:"kind"`
	Name    string      `json:"name"`
	EditURL string      `json:"edit_url"`
}

func newDetailResponse(d *report.Detail, f *report.Formatter) detailResponse {
	fields := d.Fields.Fields()
	out := detailResponse{
		ID:      d.Product.ID,
		Kind:    d.Product.Kind,
		Name:    d.Product.Name,
		EditURL: d.EditURL,
		Fields:  make([]fieldResponse, 0, len(fields)),
	}
	for _, field := range fields {
		out.Fields = append(out.Fields, fieldResponse{Label: field.Label, Value: field.Value, Display: f.PlainText(field.Value)})
	}
	return out
}

func newCompareResponse(cmp *report.Comparison, f *report.Formatter, permalink string) compareResponse {
	rows := make([]rowResponse, 0, len(cmp.Rows))
	for _, row := range cmp.Rows {
		rows = append(rows, rowResponse{
			Label:        row.Label,
			Left:         row.Left,
			Right:        row.Right,
			LeftDisplay:  f.PlainText(row.Left),
			RightDisplay: f.PlainText(row.Right),
			Differs:      row.Differs,
		})
	}
	return compareResponse{
		Left:      summarize(cmp.Left),
		Right:     summarize(cmp.Right),
		Rows:      rows,
		Permalink: permalink,
	}
}

func summarize(d *report.Detail) detailSummary {
	return detailSummary{ID: d.Product.ID, Kind: d.Product.Kind, Name: d.Product.Name, EditURL: d.EditURL}
}

type lookupInput struct {
	SKU string `validate:"max=100"`
	ID  int64  `validate:"gte=0"`
}

func (h *HTTPHandler) LookupProduct(w http.ResponseWriter, r *http.Request) {
	input := lookupInput{SKU: r.URL.Query().Get("sku"), ID: parseID(r.URL.Query().Get("id"))}
	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	ref := report.Ref{SKU: input.SKU, ID: input.ID}
	if ref.Empty() {
		respondWithError(w, http.StatusBadRequest, report.MsgProvideReference)
		return
	}

	detail, err := h.reports.Detail(r.Context(), ref)
	if err != nil {
		h.respondWithServiceError(w, r, "LookupProduct", err)
		return
	}
	respondWithJSON(w, http.StatusOK, newDetailResponse(detail, h.reports.Formatter()))
}

func (h *HTTPHandler) CompareProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := report.PageQuery{
		SKU1: q.Get("sku1"),
		ID1:  parseID(q.Get("id1")),
		SKU2: q.Get("sku2"),
		ID2:  parseID(q.Get("id2")),
	}
	if err := h.validate.Struct(query); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	if query.First().Empty() || query.Second().Empty() {
		respondWithError(w, http.StatusBadRequest, "Both products must be given for a comparison")
		return
	}

	cmp, err := h.reports.Compare(r.Context(), query.First(), query.Second())
	if err != nil {
		h.respondWithServiceError(w, r, "CompareProducts", err)
		return
	}

	permalink := report.PermalinkWithParams(h.pageURL, query)
	respondWithJSON(w, http.StatusOK, newCompareResponse(cmp, h.reports.Formatter(), permalink))
}

// --- Health ---

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	catalog := "healthy"
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("Health check catalog ping failed")
			status, code, catalog = "degraded", http.StatusServiceUnavailable, "unhealthy"
		}
	}
	respondWithJSON(w, code, map[string]interface{}{
		"status":      status,
		"serviceName": h.serviceName,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"catalog":     catalog,
	})
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Use(RequestLogger)

	r.Get("/api/v1/healthz", h.HealthCheck)

	r.Route(PagePath, func(r chi.Router) {
		r.Use(h.auth.Middleware(h.denyPage))
		r.Get("/", h.ShowPage)
		r.Post("/", h.SubmitPage)
		r.Get("/search", h.SearchProducts)
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			ExposedHeaders: []string{RequestIDHeader},
			MaxAge:         300,
		}))
		r.Use(h.auth.Middleware(h.denyJSON))
		r.Get("/lookup", h.LookupProduct)
		r.Get("/compare", h.CompareProducts)
	})
}

// denyPage rejects page requests as plain text, and picker searches as JSON.
func (h *HTTPHandler) denyPage(w http.ResponseWriter, r *http.Request, err error) {
	if strings.HasSuffix(r.URL.Path, "/search") {
		h.denyJSON(w, r, err)
		return
	}
	code, msg := statusFor(err)
	log.Ctx(r.Context()).Info().Err(err).Str("path", r.URL.Path).Msg("Page request rejected")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(msg))
}
