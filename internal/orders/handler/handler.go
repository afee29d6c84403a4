package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tavola/internal/orders/models"
	"tavola/internal/orders/readmodel"
	"tavola/internal/orders/service"
	"tavola/internal/platform/dispatch"
	id "tavola/pkg/domain"
	dErrors "tavola/pkg/domain-errors"
	"tavola/pkg/platform/httputil"
	pstrings "tavola/pkg/platform/strings"
	"tavola/pkg/requestcontext"
)

// BusinessHeader carries the tenant scope of every request.
const BusinessHeader = "X-Business-ID"

// Commands submits order commands.
type Commands interface {
	Handle(ctx context.Context, cmd models.Command) (service.Result, error)
}

// Queries reads the order projections.
type Queries interface {
	GetOrder(ctx context.Context, businessID id.BusinessID, orderID id.OrderID) (*service.OrderView, error)
	GetOrdersByStatus(ctx context.Context, businessID id.BusinessID, statuses []models.Status, locationID *id.LocationID, page service.Page) (*service.OrderPage, error)
	GetKitchenOrders(ctx context.Context, businessID id.BusinessID, locationID id.LocationID, statuses []models.Status) ([]readmodel.Summary, error)
	GetOrderInsights(ctx context.Context, businessID id.BusinessID, orderID id.OrderID) (*service.OrderInsights, error)
}

// Subscribers reports dispatch subscriber progress.
type Subscribers interface {
	Statuses() []dispatch.Status
}

// Handler exposes the order commands and queries over HTTP.
type Handler struct {
	commands    Commands
	queries     Queries
	ids         id.IDGenerator
	subscribers Subscribers
	logger      *slog.Logger
}

func New(commands Commands, queries Queries, ids id.IDGenerator, subscribers Subscribers, logger *slog.Logger) *Handler {
	return &Handler{
		commands:    commands,
		queries:     queries,
		ids:         ids,
		subscribers: subscribers,
		logger:      logger,
	}
}

// Register mounts the order routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.HandleStartOrder)
		r.Get("/", h.HandleListOrders)
		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", h.HandleGetOrder)
			r.Get("/insights", h.HandleGetInsights)
			r.Post("/items", h.HandleAddItem)
			r.Patch("/items/{itemID}", h.HandleChangeQuantity)
			r.Delete("/items/{itemID}", h.HandleRemoveItem)
			r.Post("/confirm", h.transition(func(t models.Target) models.Command { return models.ConfirmOrder{Target: t} }))
			r.Post("/preparing", h.transition(func(t models.Target) models.Command { return models.BeginPreparing{Target: t} }))
			r.Post("/complete", h.transition(func(t models.Target) models.Command { return models.CompleteOrder{Target: t} }))
			r.Post("/cancel", h.HandleCancel)
		})
	})
	r.Get("/locations/{locationID}/kitchen", h.HandleKitchenQueue)
	r.Get("/admin/subscribers", h.HandleSubscribers)
}

// HandleStartOrder handles POST /orders.
func (h *Handler) HandleStartOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	businessID, ok := h.business(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[StartOrderRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	t := h.target(r, businessID, h.ids.NewOrderID())
	setIfPresent(t.Metadata, models.MetaChannel, req.Channel)
	setIfPresent(t.Metadata, models.MetaSessionID, req.SessionID)
	setIfPresent(t.Metadata, models.MetaTable, req.Table)

	h.submit(w, r, http.StatusCreated, models.StartOrder{
		Target:     t,
		CustomerID: id.CustomerID(req.CustomerID),
		LocationID: id.LocationID(req.LocationID),
		OrderType:  req.orderType,
	})
}

// HandleAddItem handles POST /orders/{orderID}/items.
func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	t, ok := h.orderTarget(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddItemRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context()))
	if !ok {
		return
	}
	h.submit(w, r, http.StatusOK, models.AddItem{Target: t, Item: req.lineItem()})
}

// HandleChangeQuantity handles PATCH /orders/{orderID}/items/{itemID}.
func (h *Handler) HandleChangeQuantity(w http.ResponseWriter, r *http.Request) {
	t, ok := h.orderTarget(w, r)
	if !ok {
		return
	}
	itemID, err := id.ParseItemID(chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ChangeQuantityRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context()))
	if !ok {
		return
	}
	h.submit(w, r, http.StatusOK, models.ChangeItemQuantity{Target: t, ItemID: itemID, Quantity: req.Quantity})
}

// HandleRemoveItem handles DELETE /orders/{orderID}/items/{itemID}.
func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	t, ok := h.orderTarget(w, r)
	if !ok {
		return
	}
	itemID, err := id.ParseItemID(chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.submit(w, r, http.StatusOK, models.RemoveItem{Target: t, ItemID: itemID})
}

// HandleCancel handles POST /orders/{orderID}/cancel. The body is optional.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	t, ok := h.orderTarget(w, r)
	if !ok {
		return
	}
	req := &CancelRequest{}
	if r.ContentLength != 0 {
		if req, ok = httputil.DecodeAndPrepare[CancelRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context())); !ok {
			return
		}
	}
	h.submit(w, r, http.StatusOK, models.CancelOrder{Target: t, Reason: req.Reason, CancelledBy: req.CancelledBy})
}

func (h *Handler) transition(build func(models.Target) models.Command) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := h.orderTarget(w, r)
		if !ok {
			return
		}
		h.submit(w, r, http.StatusOK, build(t))
	}
}

// HandleGetOrder handles GET /orders/{orderID}.
func (h *Handler) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	businessID, orderID, ok := h.orderScope(w, r)
	if !ok {
		return
	}
	view, err := h.queries.GetOrder(r.Context(), businessID, orderID)
	if err != nil {
		h.queryFailed(r, "get order", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleGetInsights handles GET /orders/{orderID}/insights.
func (h *Handler) HandleGetInsights(w http.ResponseWriter, r *http.Request) {
	businessID, orderID, ok := h.orderScope(w, r)
	if !ok {
		return
	}
	insights, err := h.queries.GetOrderInsights(r.Context(), businessID, orderID)
	if err != nil {
		h.queryFailed(r, "get order insights", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, insights)
}

// HandleListOrders handles GET /orders?status=a,b&location_id=&page=&page_size=.
func (h *Handler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.business(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	statuses, err := parseStatuses(q.Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var locationID *id.LocationID
	if raw := q.Get("location_id"); raw != "" {
		loc, err := id.ParseLocationID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		locationID = &loc
	}
	page, err := parsePage(q.Get("page"), q.Get("page_size"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.queries.GetOrdersByStatus(r.Context(), businessID, statuses, locationID, page)
	if err != nil {
		h.queryFailed(r, "list orders", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleKitchenQueue handles GET /locations/{locationID}/kitchen.
func (h *Handler) HandleKitchenQueue(w http.ResponseWriter, r *http.Request) {
	businessID, ok := h.business(w, r)
	if !ok {
		return
	}
	locationID, err := id.ParseLocationID(chi.URLParam(r, "locationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	statuses, err := parseStatuses(r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	queue, err := h.queries.GetKitchenOrders(r.Context(), businessID, locationID, statuses)
	if err != nil {
		h.queryFailed(r, "kitchen queue", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"orders": queue})
}

// HandleSubscribers handles GET /admin/subscribers.
func (h *Handler) HandleSubscribers(w http.ResponseWriter, r *http.Request) {
	statuses := []dispatch.Status{}
	if h.subscribers != nil {
		statuses = h.subscribers.Statuses()
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"subscribers": statuses})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, status int, cmd models.Command) {
	ctx := r.Context()
	t := models.TargetOf(cmd)
	res, err := h.commands.Handle(ctx, cmd)
	if err != nil {
		level := slog.LevelWarn
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			level = slog.LevelError
		}
		h.logger.Log(ctx, level, "order command rejected",
			"request_id", requestcontext.RequestID(ctx),
			"command", cmd.Name(),
			"order_id", t.OrderID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "order command handled",
		"request_id", requestcontext.RequestID(ctx),
		"command", cmd.Name(),
		"order_id", res.OrderID,
		"version", res.Version,
	)
	if status == http.StatusCreated {
		w.Header().Set("Location", "/orders/"+res.OrderID.String())
	}
	httputil.WriteJSON(w, status, res)
}

func (h *Handler) queryFailed(r *http.Request, query string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(r.Context(), query+" failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
	}
}

func (h *Handler) business(w http.ResponseWriter, r *http.Request) (id.BusinessID, bool) {
	businessID, err := id.ParseBusinessID(r.Header.Get(BusinessHeader))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, BusinessHeader+" header: "+dErrors.MessageOf(err)))
		return 0, false
	}
	return businessID, true
}

func (h *Handler) orderScope(w http.ResponseWriter, r *http.Request) (id.BusinessID, id.OrderID, bool) {
	businessID, ok := h.business(w, r)
	if !ok {
		return 0, id.OrderID{}, false
	}
	orderID, err := id.ParseOrderID(chi.URLParam(r, "orderID"))
	if err != nil {
		httputil.WriteError(w, err)
		return 0, id.OrderID{}, false
	}
	return businessID, orderID, true
}

func (h *Handler) orderTarget(w http.ResponseWriter, r *http.Request) (models.Target, bool) {
	businessID, orderID, ok := h.orderScope(w, r)
	if !ok {
		return models.Target{}, false
	}
	return h.target(r, businessID, orderID), true
}

// target stamps request metadata onto the command target.
func (h *Handler) target(r *http.Request, businessID id.BusinessID, orderID id.OrderID) models.Target {
	ctx := r.Context()
	meta := map[string]string{}
	setIfPresent(meta, models.MetaRequestID, requestcontext.RequestID(ctx))
	setIfPresent(meta, models.MetaUserAgent, requestcontext.UserAgent(ctx))
	return models.Target{OrderID: orderID, BusinessID: businessID, Metadata: meta}
}

func setIfPresent(m map[string]string, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func parseStatuses(raw string) ([]models.Status, error) {
	parts := pstrings.SplitListLower(raw)
	if len(parts) == 0 {
		return nil, nil
	}
	out := make([]models.Status, 0, len(parts))
	for _, part := range parts {
		st, err := models.ParseStatus(part)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func parsePage(number, size string) (service.Page, error) {
	var p service.Page
	var err error
	if number != "" {
		if p.Number, err = strconv.Atoi(number); err != nil {
			return p, dErrors.New(dErrors.CodeInvalidInput, "invalid page")
		}
	}
	if size != "" {
		if p.Size, err = strconv.Atoi(size); err != nil {
			return p, dErrors.New(dErrors.CodeInvalidInput, "invalid page_size")
		}
	}
	return p, nil
}
