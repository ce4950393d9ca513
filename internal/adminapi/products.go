package adminapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/thriftmart/internal/inventory"
	"github.com/talkincode/thriftmart/internal/webserver"
)

func (h *Handler) registerProductRoutes(s *webserver.AdminServer) {
	s.GET("/view-all-products", h.listProducts)
	s.GET("/api/product/not-in-stock", h.listOutOfStock)
	s.GET("/api/product/:name", h.getProduct)
	s.POST("/api/product", h.createProduct)
	s.PUT("/api/product/:name", h.updateProduct)
	s.DELETE("/api/product/:name", h.deleteProduct)
}

func (h *Handler) listProducts(c echo.Context) error {
	products, err := h.queries.ListProducts(c.Request().Context())
	if err != nil {
		return failErr(c, err)
	}
	if len(products) == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "No products in the inventory!", nil)
	}
	return ok(c, products)
}

func (h *Handler) listOutOfStock(c echo.Context) error {
	products, err := h.queries.ListOutOfStock(c.Request().Context())
	if err != nil {
		return failErr(c, err)
	}
	if len(products) == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "All products are in stock!", nil)
	}
	return ok(c, products)
}

func (h *Handler) getProduct(c echo.Context) error {
	p, err := h.engine.GetProduct(c.Request().Context(), c.Param("name"))
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, p)
}

func (h *Handler) createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	if strings.TrimSpace(payload.Name) == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "The JSON provided is invalid (missing: name)", nil)
	}
	price, err := parsePrice(payload.Price)
	if errors.Is(err, errMissing) {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "The JSON provided is invalid (missing: price)", nil)
	}
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Price must be a non-negative number", err.Error())
	}
	quantity, err := parseQuantity(payload.Quantity)
	if errors.Is(err, errMissing) {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "The JSON provided is invalid (missing: quantity)", nil)
	}
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Quantity must be a non-negative integer", err.Error())
	}

	p, err := h.engine.CreateProduct(c.Request().Context(), payload.Name, price, quantity)
	if err != nil {
		return failErr(c, err)
	}
	h.recordOpr(c, "create_product", p.Name, "price="+p.Price.String())
	return ok(c, p)
}

// updateProduct changes price and/or quantity. Omitted or null fields are
// left untouched; zero is a valid new value.
func (h *Handler) updateProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	var upd inventory.ProductUpdate
	if price, err := parsePrice(payload.Price); err == nil {
		upd.Price = &price
	} else if !errors.Is(err, errMissing) {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Price must be a non-negative number", err.Error())
	}
	if quantity, err := parseQuantity(payload.Quantity); err == nil {
		upd.Quantity = &quantity
	} else if !errors.Is(err, errMissing) {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Quantity must be a non-negative integer", err.Error())
	}

	p, err := h.engine.UpdateProduct(c.Request().Context(), c.Param("name"), upd)
	if err != nil {
		return failErr(c, err)
	}
	h.recordOpr(c, "update_product", p.Name, "price="+p.Price.String())
	return ok(c, p)
}

func (h *Handler) deleteProduct(c echo.Context) error {
	name := c.Param("name")
	if err := h.engine.DeleteProduct(c.Request().Context(), name); err != nil {
		return failErr(c, err)
	}
	h.recordOpr(c, "delete_product", name, "")
	return ok(c, map[string]interface{}{"name": name, "msg": "Product was removed"})
}
