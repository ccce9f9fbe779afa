// Package handler exposes the registry over HTTP. All mutating routes sit
// behind the caller-identity middleware; queries are open.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"onsd/internal/platform/middleware"
	"onsd/internal/registry/models"
	"onsd/pkg/domain"
	dErrors "onsd/pkg/domain-errors"
	"onsd/pkg/platform/httputil"
)

// Service defines the registry operations the transport needs.
type Service interface {
	AddCode(ctx context.Context, caller domain.CallerID, key domain.CodeKey) error
	DeleteCode(ctx context.Context, caller domain.CallerID, key domain.CodeKey) error
	CodeCount(ctx context.Context) int
	ChildCount(ctx context.Context, key domain.CodeKey) (int, error)
	ChildAt(ctx context.Context, key domain.CodeKey, row int) (domain.RecordKey, error)

	AddRecord(ctx context.Context, caller domain.CallerID, rec models.ONSRecord) error
	DeleteRecord(ctx context.Context, caller domain.CallerID, key domain.RecordKey) error
	GetRecord(ctx context.Context, key domain.RecordKey) (models.ONSRecord, error)
	RecordCount(ctx context.Context) int

	AddServiceType(ctx context.Context, caller domain.CallerID, st models.ServiceType) error
	DeleteServiceType(ctx context.Context, caller domain.CallerID, key domain.ServiceKey) error
	GetServiceType(ctx context.Context, key domain.ServiceKey) (models.ServiceType, error)
	Documentation(ctx context.Context, key domain.ServiceKey, lang domain.LanguageCode) (string, error)
	ServiceTypeCount(ctx context.Context) int
}

// Handler wires registry endpoints to the registry service.
type Handler struct {
	service   Service
	logger    *slog.Logger
	validator middleware.CallerValidator
}

// New constructs a registry handler with its dependencies.
func New(service Service, validator middleware.CallerValidator, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		logger:    logger,
		validator: validator,
	}
}

// Register mounts registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	requireCaller := middleware.RequireCaller(h.validator, h.logger)

	r.Route("/v1/codes", func(r chi.Router) {
		r.Get("/", h.HandleCodeCount)
		r.Get("/{key}", h.HandleGetCode)
		r.Get("/{key}/records", h.HandleChildCount)
		r.Get("/{key}/records/{row}", h.HandleChildAt)
		r.Group(func(r chi.Router) {
			r.Use(requireCaller)
			r.Post("/", h.HandleCreateCode)
			r.Delete("/{key}", h.HandleDeleteCode)
		})
	})

	r.Route("/v1/records", func(r chi.Router) {
		r.Get("/", h.HandleRecordCount)
		r.Get("/{key}", h.HandleGetRecord)
		r.Group(func(r chi.Router) {
			r.Use(requireCaller)
			r.Post("/", h.HandleCreateRecord)
			r.Delete("/{key}", h.HandleDeleteRecord)
		})
	})

	r.Route("/v1/service-types", func(r chi.Router) {
		r.Get("/", h.HandleServiceTypeCount)
		r.Get("/{key}", h.HandleGetServiceType)
		r.Group(func(r chi.Router) {
			r.Use(requireCaller)
			r.Post("/", h.HandleCreateServiceType)
			r.Delete("/{key}", h.HandleDeleteServiceType)
		})
	})
}

// --- GS1 codes ---

func (h *Handler) HandleCreateCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[CreateCodeRequest](w, r)
	if !ok {
		return
	}
	key, err := req.Parse()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.AddCode(ctx, middleware.GetCaller(ctx), key); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, CodeResponse{Key: key.String()})
}

func (h *Handler) HandleDeleteCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, err := domain.ParseCodeKey(chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteCode(ctx, middleware.GetCaller(ctx), key); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleGetCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, err := domain.ParseCodeKey(chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	children, err := h.service.ChildCount(ctx, key)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CodeResponse{Key: key.String(), Children: children})
}

func (h *Handler) HandleCodeCount(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, CountResponse{Count: h.service.CodeCount(r.Context())})
}

func (h *Handler) HandleChildCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, err := domain.ParseCodeKey(chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	count, err := h.service.ChildCount(ctx, key)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CountResponse{Count: count})
}

func (h *Handler) HandleChildAt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, err := domain.ParseCodeKey(chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil || row < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "row must be a non-negative integer"))
		return
	}
	child, err := h.service.ChildAt(ctx, key, row)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ChildResponse{Key: child.String(), Row: row})
}

// --- ONS records ---

func (h *Handler) HandleCreateRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[CreateRecordRequest](w, r)
	if !ok {
		return
	}
	rec, err := req.Parse()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.AddRecord(ctx, middleware.GetCaller(ctx), rec); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromRecord(rec))
}

func (h *Handler) HandleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, err := domain.ParseRecordKey(chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteRecord(ctx, middleware.GetCaller(ctx), key); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, err := domain.ParseRecordKey(chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.service.GetRecord(ctx, key)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

func (h *Handler) HandleRecordCount(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, CountResponse{Count: h.service.RecordCount(r.Context())})
}

// --- Service types ---

func (h *Handler) HandleCreateServiceType(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[CreateServiceTypeRequest](w, r)
	if !ok {
		return
	}
	st, err := req.Parse()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.AddServiceType(ctx, middleware.GetCaller(ctx), st); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromServiceType(st))
}

func (h *Handler) HandleDeleteServiceType(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, err := domain.ParseServiceKey(chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.DeleteServiceType(ctx, middleware.GetCaller(ctx), key); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetServiceType answers GET /v1/service-types/{key}. With a ?lang=
// query it answers the documentation lookup for that language instead.
func (h *Handler) HandleGetServiceType(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, err := domain.ParseServiceKey(chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if lang := r.URL.Query().Get("lang"); lang != "" {
		loc, err := h.service.Documentation(ctx, key, domain.LanguageCode(lang))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, DocumentationResponse{
			Key:      key.String(),
			Language: lang,
			Location: loc,
		})
		return
	}
	st, err := h.service.GetServiceType(ctx, key)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromServiceType(st))
}

func (h *Handler) HandleServiceTypeCount(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, CountResponse{Count: h.service.ServiceTypeCount(r.Context())})
}
