// Package adminapi exposes the catalog and order operations over HTTP.
package adminapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/talkincode/thriftmart/internal/domain"
	"github.com/talkincode/thriftmart/internal/events"
	"github.com/talkincode/thriftmart/internal/inventory"
	"github.com/talkincode/thriftmart/internal/webserver"
	"go.uber.org/zap"
)

// Engine is the mutating side the handlers drive.
type Engine interface {
	CreateProduct(ctx context.Context, name string, price decimal.Decimal, quantity int) (*domain.Product, error)
	GetProduct(ctx context.Context, name string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, name string, upd inventory.ProductUpdate) (*domain.Product, error)
	DeleteProduct(ctx context.Context, name string) error
	CreateOrder(ctx context.Context, customerName, customerAddress string, lines []inventory.LineRequest) (*domain.OrderView, error)
	GetOrder(ctx context.Context, id int64) (*domain.OrderView, error)
	ProcessOrder(ctx context.Context, id int64) (*domain.OrderView, error)
	DeleteOrder(ctx context.Context, id int64) error
	UpdateOrder(ctx context.Context, id int64, lines []inventory.LineRequest) (*domain.OrderView, error)
}

type Queries interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListOutOfStock(ctx context.Context) ([]domain.Product, error)
	ListPending(ctx context.Context) ([]domain.OrderView, error)
	ListProcessed(ctx context.Context) ([]domain.OrderView, error)
	SearchOrdersByCustomer(ctx context.Context, fragment string) ([]domain.OrderView, error)
}

// OprLogger records successful mutations.
type OprLogger interface {
	Create(ctx context.Context, log *domain.OprLog) error
	List(ctx context.Context, limit int) ([]domain.OprLog, error)
}

type Handler struct {
	engine    Engine
	queries   Queries
	oprlog    OprLogger
	publisher events.Publisher
	now       func() time.Time
}

func NewHandler(engine Engine, queries Queries, oprlog OprLogger, publisher events.Publisher) *Handler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Handler{
		engine:    engine,
		queries:   queries,
		oprlog:    oprlog,
		publisher: publisher,
		now:       time.Now,
	}
}

// Register mounts every route on the admin server.
func (h *Handler) Register(s *webserver.AdminServer) {
	s.GET("/", h.home)
	h.registerProductRoutes(s)
	h.registerOrderRoutes(s)
	h.registerSystemRoutes(s)
}

func (h *Handler) home(c echo.Context) error {
	return ok(c, map[string]interface{}{"status": "ok", "service": "thriftmart"})
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

func fail(c echo.Context, status int, code, msg string, detail interface{}) error {
	body := map[string]interface{}{"code": code, "msg": msg}
	if detail != nil {
		body["detail"] = detail
	}
	return c.JSON(status, body)
}

// failErr maps an engine error to its HTTP status. Anything that is not a
// business error is logged and answered with a generic 500.
func failErr(c echo.Context, err error) error {
	var e *inventory.Error
	if !errors.As(err, &e) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fail(c, http.StatusServiceUnavailable, "UNAVAILABLE", "request cancelled", nil)
		}
		zap.L().Error("request failed",
			zap.String("namespace", "adminapi"),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return fail(c, http.StatusInternalServerError, string(inventory.CodeInternal), "internal server error", nil)
	}
	return fail(c, statusOf(e.Code), string(e.Code), e.Message, nil)
}

func statusOf(code inventory.ErrorCode) int {
	switch code {
	case inventory.CodeNotFound, inventory.CodeProductNotFound:
		return http.StatusNotFound
	case inventory.CodeAlreadyProcessed, inventory.CodeConflict:
		return http.StatusConflict
	case inventory.CodeInvalidArgument,
		inventory.CodeAlreadyExists,
		inventory.CodeReferentialIntegrity,
		inventory.CodeInvalidQuantity,
		inventory.CodeInsufficientInventory:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// recordOpr writes an operation log entry. A failure is logged, the request
// has already succeeded.
func (h *Handler) recordOpr(c echo.Context, action, target, desc string) {
	if h.oprlog == nil {
		return
	}
	err := h.oprlog.Create(c.Request().Context(), &domain.OprLog{
		OprIp:     c.RealIP(),
		OptAction: action,
		OptTarget: target,
		OptDesc:   desc,
		OptTime:   h.now(),
	})
	if err != nil {
		zap.L().Warn("failed to record operation",
			zap.String("namespace", "adminapi"),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func (h *Handler) publish(c echo.Context, eventType string, id int64, order *domain.OrderView) {
	err := h.publisher.Publish(c.Request().Context(), events.OrderEvent{
		Type:    eventType,
		OrderID: id,
		At:      h.now(),
		Order:   order,
	})
	if err != nil {
		zap.L().Warn("failed to publish order event",
			zap.String("namespace", "adminapi"),
			zap.String("type", eventType),
			zap.Int64("order_id", id),
			zap.Error(err),
		)
	}
}
