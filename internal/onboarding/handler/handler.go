// Package handler is the thin HTTP layer over the onboarding service. Each
// wizard screen's reads, writes and navigation map to one route; business
// logic stays in the service.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"analysthub/internal/onboarding/models"
	"analysthub/internal/onboarding/service"
	"analysthub/internal/onboarding/tiers"
	"analysthub/internal/platform/metrics"
	"analysthub/internal/platform/middleware"
	"analysthub/internal/uploads"
	dErrors "analysthub/pkg/domain-errors"
	"analysthub/pkg/platform/httputil"
)

// uploadMemoryLimit bounds how much of a multipart body is buffered in
// memory before spilling to disk.
const uploadMemoryLimit = 1 << 20

// Handler handles the onboarding wizard endpoints.
type Handler struct {
	logger       *slog.Logger
	onboarding   *service.Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new onboarding Handler.
func New(
	onboarding *service.Service,
	logger *slog.Logger,
	m *metrics.Metrics,
	jwtValidator middleware.JWTValidator,
) *Handler {
	return &Handler{
		logger:       logger,
		onboarding:   onboarding,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register registers the onboarding routes with the chi router. Upload
// routes skip the JSON content-type check since they carry multipart
// bodies.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.Latency(h.metrics))
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	router.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		r.Get("/onboarding", h.handleState)
		r.Patch("/onboarding/form", h.handleUpdateForm)
		r.Post("/onboarding/next", h.handleNext)
		r.Post("/onboarding/prev", h.handlePrev)
		r.Post("/onboarding/step", h.handleGoTo)
		r.Post("/onboarding/reset", h.handleReset)
		r.Post("/onboarding/submit", h.handleSubmit)

		r.Post("/onboarding/tiers", h.handleAddTier)
		r.Delete("/onboarding/tiers/{tierID}", h.handleRemoveTier)
		r.Post("/onboarding/tiers/{tierID}/toggle", h.handleToggleTier)
		r.Patch("/onboarding/tiers/{tierID}", h.handleUpdateTier)
		r.Post("/onboarding/tiers/{tierID}/features", h.handleAddFeature)
		r.Patch("/onboarding/tiers/{tierID}/features/{index}", h.handleUpdateFeature)
		r.Delete("/onboarding/tiers/{tierID}/features/{index}", h.handleRemoveFeature)
	})

	router.Post("/onboarding/uploads/photo", h.uploadHandler(uploads.KindPhoto))
	router.Post("/onboarding/uploads/certificate", h.uploadHandler(uploads.KindCertificate))

	r.Mount("/", router)
}

// tierView decorates a tier with its derived per-month figure for display.
type tierView struct {
	models.Tier
	MonthlyEquivalent float64 `json:"monthly_equivalent"`
}

type formView struct {
	models.FormData
	PricingTiers []tierView `json:"pricing_tiers"`
}

type stateResponse struct {
	CurrentStep int             `json:"current_step"`
	StepValid   map[string]bool `json:"step_valid"`
	FormData    formView        `json:"form_data"`
	Timestamp   time.Time       `json:"timestamp"`
}

type rejectionResponse struct {
	Error      string            `json:"error"`
	Violations map[string]string `json:"violations"`
}

func toStateResponse(snap service.Snapshot) stateResponse {
	tierViews := make([]tierView, len(snap.State.FormData.PricingTiers))
	for i, tier := range snap.State.FormData.PricingTiers {
		tierViews[i] = tierView{Tier: tier, MonthlyEquivalent: tier.MonthlyEquivalent()}
	}
	stepValid := make(map[string]bool, len(snap.StepValid))
	for step, ok := range snap.StepValid {
		stepValid[step.String()] = ok
	}
	return stateResponse{
		CurrentStep: int(snap.State.CurrentStep),
		StepValid:   stepValid,
		FormData:    formView{FormData: snap.State.FormData, PricingTiers: tierViews},
		Timestamp:   snap.State.Timestamp,
	}
}

// userID pulls the authenticated user from the request context. RequireAuth
// guarantees it is set; an empty value means broken middleware wiring.
func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		h.logger.ErrorContext(r.Context(), "userID missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return userID, true
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	snap := h.onboarding.State(r.Context(), userID)
	httputil.WriteJSON(w, http.StatusOK, toStateResponse(snap))
}

func (h *Handler) handleUpdateForm(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var patch models.FormDataPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.logger.WarnContext(r.Context(), "invalid form patch",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	snap := h.onboarding.UpdateForm(r.Context(), userID, patch)
	httputil.WriteJSON(w, http.StatusOK, toStateResponse(snap))
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	snap, violations := h.onboarding.Next(r.Context(), userID)
	if len(violations) > 0 {
		httputil.WriteJSON(w, http.StatusConflict, rejectionResponse{
			Error:      "validation_failed",
			Violations: violations,
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStateResponse(snap))
}

func (h *Handler) handlePrev(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	snap := h.onboarding.Prev(r.Context(), userID)
	httputil.WriteJSON(w, http.StatusOK, toStateResponse(snap))
}

func (h *Handler) handleGoTo(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Step int `json:"step"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	snap := h.onboarding.GoTo(r.Context(), userID, req.Step)
	httputil.WriteJSON(w, http.StatusOK, toStateResponse(snap))
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	snap := h.onboarding.Reset(r.Context(), userID)
	httputil.WriteJSON(w, http.StatusOK, toStateResponse(snap))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	snap, err := h.onboarding.Submit(r.Context(), userID)
	if err != nil {
		h.logger.WarnContext(r.Context(), "submission failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"user_id", userID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStateResponse(snap))
}

func (h *Handler) handleAddTier(w http.ResponseWriter, r *http.Request) {
	h.tierEdit(w, r, func(userID string) (service.Snapshot, error) {
		return h.onboarding.AddTier(r.Context(), userID)
	})
}

func (h *Handler) handleRemoveTier(w http.ResponseWriter, r *http.Request) {
	tierID := chi.URLParam(r, "tierID")
	h.tierEdit(w, r, func(userID string) (service.Snapshot, error) {
		return h.onboarding.RemoveTier(r.Context(), userID, tierID)
	})
}

func (h *Handler) handleToggleTier(w http.ResponseWriter, r *http.Request) {
	tierID := chi.URLParam(r, "tierID")
	h.tierEdit(w, r, func(userID string) (service.Snapshot, error) {
		return h.onboarding.ToggleTier(r.Context(), userID, tierID)
	})
}

func (h *Handler) handleUpdateTier(w http.ResponseWriter, r *http.Request) {
	tierID := chi.URLParam(r, "tierID")

	var patch tiers.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	h.tierEdit(w, r, func(userID string) (service.Snapshot, error) {
		return h.onboarding.UpdateTier(r.Context(), userID, tierID, patch)
	})
}

func (h *Handler) handleAddFeature(w http.ResponseWriter, r *http.Request) {
	tierID := chi.URLParam(r, "tierID")
	h.tierEdit(w, r, func(userID string) (service.Snapshot, error) {
		return h.onboarding.AddFeature(r.Context(), userID, tierID)
	})
}

func (h *Handler) handleUpdateFeature(w http.ResponseWriter, r *http.Request) {
	tierID := chi.URLParam(r, "tierID")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid feature index"))
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	h.tierEdit(w, r, func(userID string) (service.Snapshot, error) {
		return h.onboarding.UpdateFeature(r.Context(), userID, tierID, index, req.Text)
	})
}

func (h *Handler) handleRemoveFeature(w http.ResponseWriter, r *http.Request) {
	tierID := chi.URLParam(r, "tierID")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid feature index"))
		return
	}

	h.tierEdit(w, r, func(userID string) (service.Snapshot, error) {
		return h.onboarding.RemoveFeature(r.Context(), userID, tierID, index)
	})
}

func (h *Handler) tierEdit(
	w http.ResponseWriter,
	r *http.Request,
	edit func(userID string) (service.Snapshot, error),
) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	snap, err := edit(userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStateResponse(snap))
}

func (h *Handler) uploadHandler(kind uploads.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.userID(w, r)
		if !ok {
			return
		}

		if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart body"))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing file field"))
			return
		}
		defer file.Close()

		snap, err := h.onboarding.Upload(
			r.Context(), userID, kind,
			header.Filename, header.Header.Get("Content-Type"), header.Size, file,
		)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, toStateResponse(snap))
	}
}
