package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/bakery-storefront/internal/cart"
	"github.com/jcmexdev/bakery-storefront/internal/coordinator"
	"github.com/jcmexdev/bakery-storefront/internal/coordinator/synclog"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/interceptors/constants"
	"github.com/jcmexdev/bakery-storefront/internal/storefront/app"
	"github.com/jcmexdev/bakery-storefront/internal/storefront/core/ports"
)

// Handler serves the shop catalog, the admin sync hooks and the session cart.
type Handler struct {
	catalog     ports.CatalogService
	carts       ports.CartService
	syncTimeout time.Duration
}

// NewHandler wires the handler. A zero syncTimeout leaves admin syncs bound
// only by the request context.
func NewHandler(catalog ports.CatalogService, carts ports.CartService, syncTimeout time.Duration) *Handler {
	return &Handler{catalog: catalog, carts: carts, syncTimeout: syncTimeout}
}

// --- catalog ---

func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	page, ok := queryInt(w, r, "page")
	if !ok {
		return
	}
	pageSize, ok := queryInt(w, r, "pageSize")
	if !ok {
		return
	}

	res, err := h.catalog.Page(r.Context(), page, pageSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) SearchCatalog(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Products: products, Total: len(products)})
}

func (h *Handler) GetCake(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "product id must be numeric")
		return
	}
	cake, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cake)
}

// --- admin ---

func (h *Handler) SyncCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.syncContext(r.Context())
	defer cancel()

	res, err := h.catalog.ResyncAll(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSyncResult(w, res)
}

// InvalidateCatalog marks the catalog stale; the next read resyncs.
func (h *Handler) InvalidateCatalog(w http.ResponseWriter, r *http.Request) {
	h.catalog.Invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ProductEvent(w http.ResponseWriter, r *http.Request) {
	var req ProductEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	if req.Product.ID == "" {
		req.Product.ID = id
	}
	if req.Product.ID != id {
		writeError(w, http.StatusBadRequest, "id_mismatch", "product id does not match the path")
		return
	}

	ctx, cancel := h.syncContext(r.Context())
	defer cancel()

	slog.InfoContext(ctx, "admin product event", "product_id", id, "kind", req.Kind)

	var (
		res coordinator.SyncResult
		err error
	)
	switch coordinator.ChangeKind(req.Kind) {
	case coordinator.ChangeCreated:
		res, err = h.catalog.OnProductCreated(ctx, req.Product)
	case coordinator.ChangeUpdated:
		res, err = h.catalog.OnProductUpdated(ctx, req.Product)
	case coordinator.ChangeDeleted:
		res, err = h.catalog.OnProductDeleted(ctx, id)
	default:
		writeError(w, http.StatusBadRequest, "invalid_kind", "kind must be created, updated or deleted")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeSyncResult(w, res)
}

func (h *Handler) GetSyncRun(w http.ResponseWriter, r *http.Request) {
	entry, err := h.catalog.SyncRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSyncLog(entry))
}

// --- cart ---

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.Get(r.Context(), sessionID(r))
	h.respondCart(w, r, view, err)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !decode(w, r, &req) {
		return
	}
	view, err := h.carts.AddItem(r.Context(), sessionID(r), req.toPort())
	h.respondCart(w, r, view, err)
}

func (h *Handler) AddLoaf(w http.ResponseWriter, r *http.Request) {
	var req AddLoafRequest
	if !decode(w, r, &req) {
		return
	}
	view, err := h.carts.AddCustomLoaf(r.Context(), sessionID(r), req.Selection, req.Quantity)
	h.respondCart(w, r, view, err)
}

func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "quantity is required")
		return
	}
	view, err := h.carts.UpdateQuantity(r.Context(), sessionID(r), chi.URLParam(r, "lineID"), *req.Quantity)
	h.respondCart(w, r, view, err)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.RemoveItem(r.Context(), sessionID(r), chi.URLParam(r, "lineID"))
	h.respondCart(w, r, view, err)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.Clear(r.Context(), sessionID(r))
	h.respondCart(w, r, view, err)
}

func (h *Handler) ApplyPromotion(w http.ResponseWriter, r *http.Request) {
	var req ApplyPromotionRequest
	if !decode(w, r, &req) {
		return
	}
	view, res, err := h.carts.ApplyPromotion(r.Context(), sessionID(r), req.PromotionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ApplyPromotionResponse{CartView: view, Promotion: res})
}

func (h *Handler) RemovePromotion(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.RemovePromotion(r.Context(), sessionID(r))
	h.respondCart(w, r, view, err)
}

func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, view ports.CartView, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) syncContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.syncTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.syncTimeout)
}

// fail maps application errors to HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var cartErr *cart.ValidationError
	switch {
	case errors.As(err, &cartErr):
		writeError(w, http.StatusUnprocessableEntity, "invalid_cart", cartErr.Error())
	case errors.Is(err, app.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, cart.ErrLineNotFound):
		writeError(w, http.StatusNotFound, "line_not_found", err.Error())
	case errors.Is(err, synclog.ErrNotFound):
		writeError(w, http.StatusNotFound, "sync_run_not_found", err.Error())
	case errors.Is(err, cart.ErrEmptyCart):
		writeError(w, http.StatusConflict, "empty_cart", err.Error())
	case errors.Is(err, app.ErrSessionRequired):
		writeError(w, http.StatusBadRequest, "session_required", "the "+constants.HeaderXSessionID+" header is required")
	case errors.Is(err, app.ErrCatalogUnavailable):
		writeError(w, http.StatusServiceUnavailable, "catalog_unavailable", err.Error())
	case errors.Is(err, app.ErrSyncLogDisabled):
		writeError(w, http.StatusNotImplemented, "sync_log_disabled", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeSyncResult(w http.ResponseWriter, res coordinator.SyncResult) {
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(constants.ContextKeySessionID).(string)
	return id
}

func queryInt(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+key, key+" must be an integer")
		return 0, false
	}
	return n, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
