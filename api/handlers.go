package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"herdwatch/api/middleware"
	"herdwatch/api/services"
	"herdwatch/db"
	"herdwatch/pkg/ontology"
	"herdwatch/pkg/shared"
)

// HealthChecker reports whether a dependency is usable.
type HealthChecker interface {
	HealthCheck() error
}

type Handlers struct {
	packService   *services.PackService
	animalService *services.AnimalService
	store         *db.Service
	broker        HealthChecker
	startedAt     time.Time
}

// NewHandlers wires the services. publisher and broker may be nil when
// running without NATS.
func NewHandlers(store *db.Service, publisher services.Publisher, broker HealthChecker, logger *zap.Logger) *Handlers {
	return &Handlers{
		packService:   services.NewPackService(store.GetDB()),
		animalService: services.NewAnimalService(store, publisher, logger),
		store:         store,
		broker:        broker,
		startedAt:     time.Now(),
	}
}

// AnimalService exposes the animal service for the telemetry worker.
func (h *Handlers) AnimalService() *services.AnimalService {
	return h.animalService
}

// Pack handlers
func (h *Handlers) CreatePack(w http.ResponseWriter, r *http.Request) {
	var req ontology.CreatePackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	pack, err := h.packService.CreatePack(r.Context(), &req)
	if err != nil {
		sendServiceError(w, "CREATE_FAILED", err)
		return
	}

	sendSuccess(w, http.StatusCreated, pack)
}

func (h *Handlers) ListPacks(w http.ResponseWriter, r *http.Request) {
	packs, err := h.packService.ListPacks(r.Context())
	if err != nil {
		sendServiceError(w, "LIST_FAILED", err)
		return
	}

	sendSuccess(w, http.StatusOK, packs)
}

func (h *Handlers) GetPack(w http.ResponseWriter, r *http.Request) {
	pack, err := h.packService.GetPack(r.Context(), chi.URLParam(r, "packID"))
	if err != nil {
		sendServiceError(w, "GET_FAILED", err)
		return
	}

	sendSuccess(w, http.StatusOK, pack)
}

// Animal handlers
func (h *Handlers) CreateAnimal(w http.ResponseWriter, r *http.Request) {
	var req ontology.CreateAnimalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	animal, err := h.animalService.CreateAnimal(r.Context(), chi.URLParam(r, "packID"), &req)
	if err != nil {
		sendServiceError(w, "CREATE_FAILED", err)
		return
	}

	sendSuccess(w, http.StatusCreated, animal)
}

func (h *Handlers) ListAnimals(w http.ResponseWriter, r *http.Request) {
	packID := chi.URLParam(r, "packID")
	if _, err := h.packService.GetPack(r.Context(), packID); err != nil {
		sendServiceError(w, "LIST_FAILED", err)
		return
	}

	animals, err := h.animalService.ListAnimals(r.Context(), packID)
	if err != nil {
		sendServiceError(w, "LIST_FAILED", err)
		return
	}

	sendSuccess(w, http.StatusOK, animals)
}

func (h *Handlers) GetAnimal(w http.ResponseWriter, r *http.Request) {
	animal, err := h.animalService.GetAnimal(r.Context(), chi.URLParam(r, "packID"), chi.URLParam(r, "animalID"))
	if err != nil {
		sendServiceError(w, "GET_FAILED", err)
		return
	}

	sendSuccess(w, http.StatusOK, animal)
}

func (h *Handlers) UpdatePose(w http.ResponseWriter, r *http.Request) {
	var pose ontology.PoseInput
	if err := json.NewDecoder(r.Body).Decode(&pose); err != nil {
		sendError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	animal, err := h.animalService.UpdatePose(r.Context(), chi.URLParam(r, "packID"), chi.URLParam(r, "animalID"), pose)
	if err != nil {
		sendServiceError(w, "UPDATE_FAILED", err)
		return
	}

	sendSuccess(w, http.StatusOK, animal)
}

func (h *Handlers) PoseHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			sendError(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be an integer")
			return
		}
		limit = n
	}

	history, err := h.animalService.PoseHistory(r.Context(), chi.URLParam(r, "packID"), chi.URLParam(r, "animalID"), limit)
	if err != nil {
		sendServiceError(w, "HISTORY_FAILED", err)
		return
	}

	sendSuccess(w, http.StatusOK, history)
}

func (h *Handlers) DeleteAnimal(w http.ResponseWriter, r *http.Request) {
	err := h.animalService.DeleteAnimal(r.Context(), chi.URLParam(r, "packID"), chi.URLParam(r, "animalID"))
	if err != nil {
		sendServiceError(w, "DELETE_FAILED", err)
		return
	}

	sendSuccess(w, http.StatusOK, map[string]string{"message": "Animal deleted successfully"})
}

func (h *Handlers) Bearing(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		sendError(w, http.StatusBadRequest, "MISSING_PARAMS", "from and to are required")
		return
	}

	bearing, err := h.animalService.Bearing(r.Context(), chi.URLParam(r, "packID"), from, to)
	if err != nil {
		sendServiceError(w, "BEARING_FAILED", err)
		return
	}

	sendSuccess(w, http.StatusOK, bearing)
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := shared.HealthStatus{
		Status:    "healthy",
		Service:   shared.ServiceName,
		Uptime:    time.Since(h.startedAt),
		Timestamp: time.Now(),
		Details:   make(map[string]string),
	}

	if err := h.store.Health(); err != nil {
		health.Status = "unhealthy"
		health.Details["database"] = "unhealthy: " + err.Error()
	} else {
		health.Details["database"] = "healthy"
	}

	if h.broker == nil {
		health.Details["nats"] = "disabled"
	} else if err := h.broker.HealthCheck(); err != nil {
		health.Status = "unhealthy"
		health.Details["nats"] = "unhealthy: " + err.Error()
	} else {
		health.Details["nats"] = "healthy"
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	sendSuccess(w, statusCode, health)
}

// Helper functions
func sendSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(shared.Response{
		Success: true,
		Data:    data,
	})
}

func sendError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(shared.Response{
		Success: false,
		Error: &shared.Error{
			Code:    code,
			Message: message,
		},
	})
}

func sendServiceError(w http.ResponseWriter, code string, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		sendError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, services.ErrInvalidRequest):
		sendError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	default:
		sendError(w, http.StatusInternalServerError, code, err.Error())
	}
}

// Routes builds the HTTP handler tree.
func (h *Handlers) Routes(apiToken string, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(logger.Named("http")))
	r.Use(middleware.CORS)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		sendError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.BearerAuth(apiToken))

		r.Post("/packs", h.CreatePack)
		r.Get("/packs", h.ListPacks)

		r.Route("/packs/{packID}", func(r chi.Router) {
			r.Get("/", h.GetPack)
			r.Get("/bearing", h.Bearing)

			r.Post("/animals", h.CreateAnimal)
			r.Get("/animals", h.ListAnimals)
			r.Get("/animals/{animalID}", h.GetAnimal)
			r.Delete("/animals/{animalID}", h.DeleteAnimal)
			r.Put("/animals/{animalID}/pose", h.UpdatePose)
			r.Get("/animals/{animalID}/history", h.PoseHistory)
		})
	})

	return r
}
