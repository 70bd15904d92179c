package httpx

import (
	"time"

	"github.com/jcmexdev/bakery-storefront/internal/cart"
	"github.com/jcmexdev/bakery-storefront/internal/catalog/domain"
	"github.com/jcmexdev/bakery-storefront/internal/coordinator/synclog"
	"github.com/jcmexdev/bakery-storefront/internal/promotion"
	"github.com/jcmexdev/bakery-storefront/internal/storefront/core/ports"
)

type ProductEventRequest struct {
	Kind    string              `json:"kind"`
	Product domain.AdminProduct `json:"product"`
}

type AddItemRequest struct {
	CakeID        int64             `json:"cakeId"`
	Size          string            `json:"size"`
	Cream         string            `json:"cream"`
	Decorations   []cart.Decoration `json:"decorations"`
	ContainerType string            `json:"containerType"`
	Notes         string            `json:"notes"`
	Images        []string          `json:"images"`
	Quantity      int               `json:"quantity"`
}

func (r AddItemRequest) toPort() ports.AddItemRequest {
	return ports.AddItemRequest{
		CakeID:        r.CakeID,
		Size:          r.Size,
		Cream:         r.Cream,
		Decorations:   r.Decorations,
		ContainerType: r.ContainerType,
		Notes:         r.Notes,
		Images:        r.Images,
		Quantity:      r.Quantity,
	}
}

type AddLoafRequest struct {
	Selection cart.LoafSelection `json:"selection"`
	Quantity  int                `json:"quantity"`
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type ApplyPromotionRequest struct {
	PromotionID string `json:"promotionId"`
}

type ApplyPromotionResponse struct {
	ports.CartView
	Promotion promotion.Result `json:"promotion"`
}

type SearchResponse struct {
	Products []domain.Cake `json:"products"`
	Total    int           `json:"total"`
}

type SyncLogResponse struct {
	RunID     string   `json:"runId"`
	Kind      string   `json:"kind"`
	Status    string   `json:"status"`
	Attempt   int      `json:"attempt"`
	Added     int      `json:"added"`
	Updated   int      `json:"updated"`
	Removed   int      `json:"removed"`
	Errors    []string `json:"errors"`
	TraceID   string   `json:"traceId,omitempty"`
	UpdatedAt string   `json:"updatedAt"`
}

func mapSyncLog(l *synclog.SyncLog) SyncLogResponse {
	errs := l.Errors()
	if errs == nil {
		errs = []string{}
	}
	return SyncLogResponse{
		RunID:     l.RunID,
		Kind:      string(l.Kind),
		Status:    string(l.Status),
		Attempt:   l.Attempt,
		Added:     l.Added,
		Updated:   l.Updated,
		Removed:   l.Removed,
		Errors:    errs,
		TraceID:   l.TraceID,
		UpdatedAt: l.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
