package adminapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/thriftmart/internal/events"
	"github.com/talkincode/thriftmart/internal/inventory"
	"github.com/talkincode/thriftmart/internal/webserver"
)

func (h *Handler) registerOrderRoutes(s *webserver.AdminServer) {
	s.GET("/api/order/pending", h.listPending)
	s.GET("/api/order/processed", h.listProcessed)
	s.GET("/api/order/user/:fragment", h.searchByCustomer)
	s.GET("/api/order/:id", h.getOrder)
	s.POST("/api/order", h.createOrder)
	s.PUT("/api/order/process/:id", h.processOrder)
	s.DELETE("/api/order/delete/:id", h.deleteOrder)
	s.PUT("/api/order/:id", h.updateOrder)
}

func (h *Handler) listPending(c echo.Context) error {
	orders, err := h.queries.ListPending(c.Request().Context())
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, orders)
}

func (h *Handler) listProcessed(c echo.Context) error {
	orders, err := h.queries.ListProcessed(c.Request().Context())
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, orders)
}

func (h *Handler) searchByCustomer(c echo.Context) error {
	orders, err := h.queries.SearchOrdersByCustomer(c.Request().Context(), c.Param("fragment"))
	if err != nil {
		return failErr(c, err)
	}
	if len(orders) == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "No order was found!", nil)
	}
	return ok(c, orders)
}

func (h *Handler) getOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	order, err := h.engine.GetOrder(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, order)
}

func (h *Handler) createOrder(c echo.Context) error {
	var payload orderPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse order", err.Error())
	}
	lines := bindLines(payload.Products)

	order, err := h.engine.CreateOrder(c.Request().Context(), payload.CustomerName, payload.CustomerAddress, lines)
	if err != nil {
		return failErr(c, err)
	}
	h.recordOpr(c, "create_order", strconv.FormatInt(order.ID, 10), "customer="+order.CustomerName)
	h.publish(c, events.OrderCreated, order.ID, order)
	return ok(c, order)
}

func (h *Handler) processOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	order, err := h.engine.ProcessOrder(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err)
	}
	h.recordOpr(c, "process_order", strconv.FormatInt(id, 10), "price="+order.Price.String())
	h.publish(c, events.OrderProcessed, id, order)
	return ok(c, order)
}

func (h *Handler) deleteOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	if err := h.engine.DeleteOrder(c.Request().Context(), id); err != nil {
		return failErr(c, err)
	}
	h.recordOpr(c, "delete_order", strconv.FormatInt(id, 10), "")
	h.publish(c, events.OrderDeleted, id, nil)
	return ok(c, map[string]interface{}{
		"order_id": id,
		"msg":      "Order with id " + strconv.FormatInt(id, 10) + " was successfully removed",
	})
}

func (h *Handler) updateOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	var payload orderPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse order", err.Error())
	}
	lines := bindLines(payload.Products)

	order, err := h.engine.UpdateOrder(c.Request().Context(), id, lines)
	if err != nil {
		return failErr(c, err)
	}
	h.recordOpr(c, "update_order", strconv.FormatInt(id, 10), "price="+order.Price.String())
	return ok(c, order)
}

// malformedQuantity stands in for a quantity that is missing or not an
// integer. The engine rejects it as an invalid quantity after its product
// checks, so an unknown product is still reported first.
const malformedQuantity = -1

// bindLines converts wire lines into engine requests.
func bindLines(products []linePayload) []inventory.LineRequest {
	lines := make([]inventory.LineRequest, 0, len(products))
	for _, p := range products {
		qty, err := parseQuantity(p.Quantity)
		if err != nil {
			qty = malformedQuantity
		}
		lines = append(lines, inventory.LineRequest{Product: p.Name, Quantity: qty})
	}
	return lines
}
