package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	"partsync/internal/catalog"
	"partsync/internal/model"
)

// CatalogReader loads the persisted catalog.
type CatalogReader interface {
	LoadCatalog(ctx context.Context) ([]model.Part, error)
}

// UpdateStatus reports the orchestrator state.
type UpdateStatus interface {
	Status(ctx context.Context) (model.UpdateStatus, error)
	IsRunning() bool
}

// ScheduleControl is the scheduler as driven from the admin surface.
type ScheduleControl interface {
	Start(ctx context.Context)
	Stop()
	UpdateInterval(d time.Duration) error
	ScheduleInfo(ctx context.Context) (model.ScheduleInfo, error)
	ForceUpdate(ctx context.Context) (model.UpdateResult, error)
	Notifications(ctx context.Context) ([]model.Notification, error)
	ClearNotifications(ctx context.Context) error
}

// Admin serves catalog queries, the manual trigger and scheduler control.
type Admin struct {
	catalog  CatalogReader
	updates  UpdateStatus
	schedule ScheduleControl
	// lifetime bounds work that outlives a request: the scheduler timer and forced runs.
	lifetime context.Context
	logger   *slog.Logger
}

// NewAdmin wires the admin handlers. lifetime is passed to the scheduler when started over HTTP.
func NewAdmin(lifetime context.Context, c CatalogReader, u UpdateStatus, s ScheduleControl, logger *slog.Logger) *Admin {
	if logger == nil {
		logger = slog.Default()
	}
	return &Admin{
		catalog:  c,
		updates:  u,
		schedule: s,
		lifetime: lifetime,
		logger:   logger.With("component", "admin-api"),
	}
}

// Routes returns the admin mux.
func (a *Admin) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/parts", a.listParts)
	mux.HandleFunc("GET /api/parts/{sku}", a.getPart)
	mux.HandleFunc("GET /api/categories", a.listCategories)
	mux.HandleFunc("GET /api/update/status", a.updateStatus)
	mux.HandleFunc("POST /api/update", a.forceUpdate)
	mux.HandleFunc("GET /api/schedule", a.scheduleInfo)
	mux.HandleFunc("POST /api/schedule/start", a.startSchedule)
	mux.HandleFunc("POST /api/schedule/stop", a.stopSchedule)
	mux.HandleFunc("PUT /api/schedule/interval", a.setInterval)
	mux.HandleFunc("GET /api/notifications", a.notifications)
	mux.HandleFunc("DELETE /api/notifications", a.clearNotifications)
	mux.HandleFunc("GET /health", a.health)
	return mux
}

func (a *Admin) listParts(w http.ResponseWriter, r *http.Request) {
	parts, err := a.catalog.LoadCatalog(r.Context())
	if err != nil {
		a.internalError(w, "load catalog", err)
		return
	}

	if category := r.URL.Query().Get("category"); category != "" {
		parts = catalog.ByCategory(parts, category)
	}
	parts = catalog.Search(parts, r.URL.Query().Get("q"))
	writeJSON(w, a.logger, http.StatusOK, parts)
}

func (a *Admin) getPart(w http.ResponseWriter, r *http.Request) {
	parts, err := a.catalog.LoadCatalog(r.Context())
	if err != nil {
		a.internalError(w, "load catalog", err)
		return
	}

	part, ok := catalog.FindBySKU(parts, r.PathValue("sku"))
	if !ok {
		writeError(w, a.logger, http.StatusNotFound, "part not found")
		return
	}
	writeJSON(w, a.logger, http.StatusOK, part)
}

func (a *Admin) listCategories(w http.ResponseWriter, r *http.Request) {
	parts, err := a.catalog.LoadCatalog(r.Context())
	if err != nil {
		a.internalError(w, "load catalog", err)
		return
	}
	writeJSON(w, a.logger, http.StatusOK, catalog.Categories(parts))
}

type statusResponse struct {
	model.UpdateStatus
	IsUpdating bool `json:"isUpdating"`
}

func (a *Admin) updateStatus(w http.ResponseWriter, r *http.Request) {
	st, err := a.updates.Status(r.Context())
	if err != nil {
		a.internalError(w, "load status", err)
		return
	}
	writeJSON(w, a.logger, http.StatusOK, statusResponse{UpdateStatus: st, IsUpdating: a.updates.IsRunning()})
}

type forceUpdateResponse struct {
	model.UpdateResult
	Error string `json:"error,omitempty"`
}

func (a *Admin) forceUpdate(w http.ResponseWriter, r *http.Request) {
	// A disconnecting client must not abort a run other triggers may be sharing.
	ctx := context.WithoutCancel(r.Context())

	res, err := a.schedule.ForceUpdate(ctx)
	if res.Errors == nil {
		res.Errors = []string{}
	}
	if err != nil {
		a.logger.Error("forced update failed", "error", err)
		writeJSON(w, a.logger, http.StatusInternalServerError, forceUpdateResponse{UpdateResult: res, Error: err.Error()})
		return
	}
	writeJSON(w, a.logger, http.StatusOK, forceUpdateResponse{UpdateResult: res})
}

type scheduleResponse struct {
	IsRunning  bool       `json:"isRunning"`
	IntervalMs int64      `json:"intervalMs"`
	NextUpdate *time.Time `json:"nextUpdate"`
}

func (a *Admin) scheduleInfo(w http.ResponseWriter, r *http.Request) {
	a.writeSchedule(r.Context(), w)
}

func (a *Admin) startSchedule(w http.ResponseWriter, r *http.Request) {
	a.schedule.Start(a.lifetime)
	a.writeSchedule(r.Context(), w)
}

func (a *Admin) stopSchedule(w http.ResponseWriter, r *http.Request) {
	a.schedule.Stop()
	a.writeSchedule(r.Context(), w)
}

// maxIntervalMs is the largest interval a time.Duration can hold.
const maxIntervalMs = math.MaxInt64 / int64(time.Millisecond)

type intervalRequest struct {
	IntervalMs int64 `json:"intervalMs"`
}

func (a *Admin) setInterval(w http.ResponseWriter, r *http.Request) {
	var req intervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, a.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IntervalMs > maxIntervalMs {
		writeError(w, a.logger, http.StatusBadRequest, "intervalMs is too large")
		return
	}
	if err := a.schedule.UpdateInterval(time.Duration(req.IntervalMs) * time.Millisecond); err != nil {
		writeError(w, a.logger, http.StatusBadRequest, err.Error())
		return
	}
	a.writeSchedule(r.Context(), w)
}

func (a *Admin) writeSchedule(ctx context.Context, w http.ResponseWriter) {
	info, err := a.schedule.ScheduleInfo(ctx)
	if err != nil {
		a.internalError(w, "load schedule", err)
		return
	}
	writeJSON(w, a.logger, http.StatusOK, scheduleResponse{
		IsRunning:  info.IsRunning,
		IntervalMs: info.Interval.Milliseconds(),
		NextUpdate: info.NextUpdate,
	})
}

func (a *Admin) notifications(w http.ResponseWriter, r *http.Request) {
	list, err := a.schedule.Notifications(r.Context())
	if err != nil {
		a.internalError(w, "load notifications", err)
		return
	}
	writeJSON(w, a.logger, http.StatusOK, list)
}

func (a *Admin) clearNotifications(w http.ResponseWriter, r *http.Request) {
	if err := a.schedule.ClearNotifications(r.Context()); err != nil {
		a.internalError(w, "clear notifications", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Admin) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, a.logger, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *Admin) internalError(w http.ResponseWriter, op string, err error) {
	a.logger.Error(op, "error", err)
	writeError(w, a.logger, http.StatusInternalServerError, op+" failed")
}
