package adminapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/thriftmart/config"
	"github.com/talkincode/thriftmart/internal/domain"
	"github.com/talkincode/thriftmart/internal/events"
	"github.com/talkincode/thriftmart/internal/inventory"
	"github.com/talkincode/thriftmart/internal/store"
	"github.com/talkincode/thriftmart/internal/testutil"
	"github.com/talkincode/thriftmart/internal/webserver"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type recordingOprLog struct {
	mu      sync.Mutex
	entries []domain.OprLog
}

func (r *recordingOprLog) Create(_ context.Context, log *domain.OprLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *log)
	return nil
}

func (r *recordingOprLog) List(_ context.Context, limit int) ([]domain.OprLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.OprLog{}
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}

func (r *recordingOprLog) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.OptAction)
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type testAPI struct {
	server    *webserver.AdminServer
	oprlog    *recordingOprLog
	publisher *recordingPublisher
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	uow := store.NewGormUnitOfWork(testutil.OpenDB(t))
	api := &testAPI{
		server:    webserver.NewAdminServer(config.WebConfig{}),
		oprlog:    &recordingOprLog{},
		publisher: &recordingPublisher{},
	}
	h := NewHandler(inventory.NewEngine(uow), inventory.NewQueries(uow), api.oprlog, api.publisher)
	h.Register(api.server)
	return api
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.server.Echo().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var v map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHome(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProductEndpoints(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/view-all-products", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/product", `{"name":"Widget","price":2.50,"quantity":10}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"name":"widget","price":2.5,"quantity":10}`, rec.Body.String())

	rec = api.do(t, http.MethodPost, "/api/product", `{"name":"widget","price":"1","quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ALREADY_EXISTS", decode(t, rec)["code"])

	rec = api.do(t, http.MethodGet, "/api/product/WIDGET", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 10, decode(t, rec)["quantity"])

	rec = api.do(t, http.MethodGet, "/api/product/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPut, "/api/product/widget", `{"quantity":0}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.EqualValues(t, 0, body["quantity"])
	assert.EqualValues(t, 2.5, body["price"])

	rec = api.do(t, http.MethodGet, "/api/product/not-in-stock", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"widget"`)

	rec = api.do(t, http.MethodPut, "/api/product/missing", `{"price":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/product/widget", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(t, http.MethodDelete, "/api/product/widget", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, []string{"create_product", "update_product", "delete_product"}, api.oprlog.actions())
}

func TestProductEndpoints_RejectBadNumbers(t *testing.T) {
	api := newTestAPI(t)

	for _, body := range []string{
		`{"name":"widget","price":"abc","quantity":1}`,
		`{"name":"widget","price":1,"quantity":"ten"}`,
		`{"name":"widget","price":1,"quantity":1.5}`,
		`{"name":"widget","price":true,"quantity":1}`,
		`{"name":"widget","quantity":1}`,
		`{"price":1,"quantity":1}`,
		`{"name":"widget","price":-1,"quantity":1}`,
		`{"name":"widget","price":1,"quantity":-1}`,
		`{"name":"widget","price":2.555,"quantity":1}`,
		`{"name":"widget","price":123456789012345.5,"quantity":1}`,
		`{"name":"widget",`,
	} {
		rec := api.do(t, http.MethodPost, "/api/product", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec := api.do(t, http.MethodPost, "/api/product", `{"name":"widget","price":"3.10","quantity":"4"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodPut, "/api/product/widget", `{"price":"free"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(t, http.MethodPut, "/api/product/widget", `{"quantity":-3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(t, http.MethodPut, "/api/product/widget", `{"price":1.005}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", decode(t, rec)["code"])
}

func TestOrderLifecycle(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/product", `{"name":"widget","price":2.50,"quantity":10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/order",
		`{"customer_name":"Alice","customer_address":"1 Main St","products":[{"name":"widget","quantity":4}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	order := decode(t, rec)
	assert.EqualValues(t, 10, order["price"])
	assert.Equal(t, false, order["completed"])
	assert.Nil(t, order["process_date"])
	id := int64(order["order_id"].(float64))
	path := "/api/order/" + jsonInt(id)

	rec = api.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/order/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Alice"`)

	rec = api.do(t, http.MethodPut, path, `{"products":[{"name":"widget","quantity":6}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 15, decode(t, rec)["price"])

	rec = api.do(t, http.MethodPut, "/api/order/process/"+jsonInt(id), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["completed"])

	rec = api.do(t, http.MethodGet, "/api/product/widget", "")
	assert.EqualValues(t, 4, decode(t, rec)["quantity"])

	rec = api.do(t, http.MethodPut, path, `{"products":[{"name":"widget","quantity":1}]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_PROCESSED", decode(t, rec)["code"])

	rec = api.do(t, http.MethodGet, "/api/order/processed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Alice"`)

	rec = api.do(t, http.MethodGet, "/api/order/user/ali", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(t, http.MethodGet, "/api/order/user/zed", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/product/widget", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "REFERENTIAL_INTEGRITY_VIOLATION", decode(t, rec)["code"])

	rec = api.do(t, http.MethodDelete, "/api/order/delete/"+jsonInt(id), "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(t, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(t, http.MethodDelete, "/api/order/delete/"+jsonInt(id), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	types := []string{}
	for _, e := range api.publisher.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{events.OrderCreated, events.OrderProcessed, events.OrderDeleted}, types)
}

func TestOrderEndpoints_Errors(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/product", `{"name":"widget","price":2.50,"quantity":10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	cases := []struct {
		body   string
		status int
		code   string
	}{
		{`{"customer_name":"A","customer_address":"B","products":[{"name":"nope","quantity":1}]}`, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
		{`{"customer_name":"A","customer_address":"B","products":[{"name":"widget","quantity":20}]}`, http.StatusBadRequest, "INSUFFICIENT_INVENTORY"},
		{`{"customer_name":"A","customer_address":"B","products":[{"name":"widget","quantity":0}]}`, http.StatusBadRequest, "INVALID_QUANTITY"},
		{`{"customer_name":"A","customer_address":"B","products":[{"name":"widget","quantity":"x"}]}`, http.StatusBadRequest, "INVALID_QUANTITY"},
		{`{"customer_name":"A","customer_address":"B","products":[{"name":"widget","quantity":1.5}]}`, http.StatusBadRequest, "INVALID_QUANTITY"},
		{`{"customer_name":"","customer_address":"B","products":[]}`, http.StatusBadRequest, "INVALID_ARGUMENT"},
	}
	for _, tc := range cases {
		rec := api.do(t, http.MethodPost, "/api/order", tc.body)
		assert.Equal(t, tc.status, rec.Code, tc.body)
		assert.Equal(t, tc.code, decode(t, rec)["code"], tc.body)
	}

	rec = api.do(t, http.MethodGet, "/api/order/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(t, http.MethodPut, "/api/order/process/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(t, http.MethodPut, "/api/order/999", `{"products":[]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/order/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Empty(t, api.publisher.events)
}

func TestOrderEndpoints_UnknownProductReportedBeforeBadQuantity(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/product", `{"name":"widget","price":2.50,"quantity":10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, body := range []string{
		`{"customer_name":"A","customer_address":"B","products":[{"name":"ghost","quantity":1.5}]}`,
		`{"customer_name":"A","customer_address":"B","products":[{"name":"widget","quantity":"x"},{"name":"ghost","quantity":1}]}`,
	} {
		rec := api.do(t, http.MethodPost, "/api/order", body)
		assert.Equal(t, http.StatusNotFound, rec.Code, body)
		assert.Equal(t, "PRODUCT_NOT_FOUND", decode(t, rec)["code"], body)
	}

	rec = api.do(t, http.MethodPost, "/api/order", `{"customer_name":"A","customer_address":"B","products":[{"name":"widget","quantity":1}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	path := fmt.Sprintf("/api/order/%.0f", decode(t, rec)["order_id"])

	rec = api.do(t, http.MethodPut, path, `{"products":[{"name":"ghost","quantity":2.5}]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PRODUCT_NOT_FOUND", decode(t, rec)["code"])

	rec = api.do(t, http.MethodPut, path, `{"products":[{"name":"widget","quantity":2.5}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_QUANTITY", decode(t, rec)["code"])
}

func TestOprLogEndpoint(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/product", `{"name":"widget","price":1,"quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(t, http.MethodPut, "/api/product/widget", `{"quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/system/oprlog?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []domain.OprLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "update_product", logs[0].OptAction)
	assert.Equal(t, "widget", logs[0].OptTarget)

	for _, q := range []string{"0", "-1", "abc", "5000"} {
		rec = api.do(t, http.MethodGet, "/api/system/oprlog?limit="+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusOf(inventory.CodeNotFound))
	assert.Equal(t, http.StatusNotFound, statusOf(inventory.CodeProductNotFound))
	assert.Equal(t, http.StatusConflict, statusOf(inventory.CodeConflict))
	assert.Equal(t, http.StatusConflict, statusOf(inventory.CodeAlreadyProcessed))
	assert.Equal(t, http.StatusBadRequest, statusOf(inventory.CodeReferentialIntegrity))
	assert.Equal(t, http.StatusInternalServerError, statusOf(inventory.CodeInternal))
}

type brokenQueries struct{ Queries }

func (brokenQueries) ListProducts(context.Context) ([]domain.Product, error) {
	return nil, errors.New("connection refused: password=hunter2")
}

func TestInternalErrorsAreGeneric(t *testing.T) {
	s := webserver.NewAdminServer(config.WebConfig{})
	NewHandler(nil, brokenQueries{}, nil, nil).Register(s)

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/view-all-products", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
