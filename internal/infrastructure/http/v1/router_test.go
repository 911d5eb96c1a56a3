package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/app/apptest"
	"stockledger/internal/core/apperror"
	"stockledger/internal/infrastructure/auth"
	"stockledger/internal/infrastructure/http/v1/middleware"
	"stockledger/pkg/logger"
)

type apiClient struct {
	t       *testing.T
	fx      *apptest.Fixture
	router  *gin.Engine
	headers map[string]string
}

func newAPI(t *testing.T, opts ...func(*RouterConfig)) *apiClient {
	t.Helper()
	fx := apptest.New()
	cfg := RouterConfig{
		Services:       fx.Services,
		Logger:         logger.Nop(),
		Idempotency:    fx.Stores.Idempotency,
		History:        fx.Stores.History,
		ReservationTTL: time.Hour,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &apiClient{t: t, fx: fx, router: NewRouter(cfg), headers: map[string]string{}}
}

func (a *apiClient) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

type itemBody struct {
	ID                string `json:"id"`
	LocationID        string `json:"locationId"`
	Quantity          int64  `json:"quantity"`
	ReservedQuantity  int64  `json:"reservedQuantity"`
	AvailableQuantity int64  `json:"availableQuantity"`
	IsOutOfStock      bool   `json:"isOutOfStock"`
}

type reservationBody struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (a *apiClient) createLocation(name string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/locations", map[string]any{"name": name, "type": "warehouse"})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[struct {
		ID string `json:"id"`
	}](a.t, w).ID
}

func (a *apiClient) createItem(locationID, sku string, quantity int64) itemBody {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/items", map[string]any{
		"productId":  "prod-" + sku,
		"sku":        sku,
		"locationId": locationID,
		"quantity":   quantity,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[itemBody](a.t, w)
}

func (a *apiClient) reserve(itemID string, quantity int64) *httptest.ResponseRecorder {
	return a.do(http.MethodPost, "/api/v1/reservations", map[string]any{
		"inventoryId": itemID,
		"quantity":    quantity,
		"orderId":     "order-1",
	})
}

func TestHealth(t *testing.T) {
	api := newAPI(t)

	w := api.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "memory")
}

func TestEmptyListsRenderArrays(t *testing.T) {
	api := newAPI(t)

	for _, path := range []string{
		"/api/v1/locations",
		"/api/v1/items/low-stock",
		"/api/v1/reservations?orderId=none",
	} {
		w := api.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		body := decode[struct {
			Data json.RawMessage `json:"data"`
		}](t, w)
		assert.JSONEq(t, `[]`, string(body.Data), path)
	}
}

func TestRestockIncreasesQuantity(t *testing.T) {
	api := newAPI(t)
	locID := api.createLocation("Main")
	it := api.createItem(locID, "SKU-1", 10)
	assert.Equal(t, int64(10), it.Quantity)

	w := api.do(http.MethodPost, "/api/v1/transactions", map[string]any{
		"inventoryId":     it.ID,
		"transactionType": "restock",
		"quantity":        5,
		"reference":       "PO-7",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(http.MethodGet, "/api/v1/items/"+it.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[itemBody](t, w)
	assert.Equal(t, int64(15), got.Quantity)
	assert.Equal(t, int64(15), got.AvailableQuantity)

	w = api.do(http.MethodGet, "/api/v1/transactions?reference=PO-7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	listed := decode[struct {
		Data []map[string]any `json:"data"`
	}](t, w)
	require.Len(t, listed.Data, 1)
	assert.Equal(t, "restock", listed.Data[0]["transactionType"])

	w = api.do(http.MethodGet, "/api/v1/items/"+it.ID+"/reconcile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, w)["matches"])
}

func TestReservationLifecycle(t *testing.T) {
	api := newAPI(t)
	locID := api.createLocation("Main")
	it := api.createItem(locID, "SKU-1", 3)

	w := api.reserve(it.ID, 3)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[reservationBody](t, w)
	assert.Equal(t, "active", res.Status)

	w = api.reserve(it.ID, 1)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeInsufficientStock, decode[errorBody](t, w).Code)

	w = api.do(http.MethodPost, "/api/v1/reservations/"+res.ID+"/transition", map[string]any{"status": "cancelled"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cancelled", decode[reservationBody](t, w).Status)

	got := decode[itemBody](t, api.do(http.MethodGet, "/api/v1/items/"+it.ID, nil))
	assert.Equal(t, int64(0), got.ReservedQuantity)
	assert.Equal(t, int64(3), got.AvailableQuantity)

	w = api.do(http.MethodGet, "/api/v1/reservations?orderId=order-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[struct {
		Data []reservationBody `json:"data"`
	}](t, w).Data, 1)
}

func TestReservationTransitionFromTerminalIsRejected(t *testing.T) {
	api := newAPI(t)
	it := api.createItem(api.createLocation("Main"), "SKU-1", 5)

	res := decode[reservationBody](t, api.reserve(it.ID, 2))
	w := api.do(http.MethodPost, "/api/v1/reservations/"+res.ID+"/transition", map[string]any{"status": "fulfilled"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(http.MethodPost, "/api/v1/reservations/"+res.ID+"/transition", map[string]any{"status": "active"})
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, apperror.CodeInvalidTransition, body.Code)
	assert.Equal(t, "fulfilled", body.Details["from"])
	assert.Equal(t, "active", body.Details["to"])
}

func TestReservationListNeedsOneSelector(t *testing.T) {
	api := newAPI(t)

	w := api.do(http.MethodGet, "/api/v1/reservations", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/api/v1/reservations?orderId=o&cartId=c", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteLocationWithItems(t *testing.T) {
	api := newAPI(t)
	locID := api.createLocation("Main")
	it := api.createItem(locID, "SKU-1", 0)

	w := api.do(http.MethodDelete, "/api/v1/locations/"+locID, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodDelete, "/api/v1/items/"+it.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = api.do(http.MethodDelete, "/api/v1/locations/"+locID, nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = api.do(http.MethodGet, "/api/v1/locations/"+locID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLocationUpdateAndHistory(t *testing.T) {
	api := newAPI(t)
	locID := api.createLocation("Main")

	w := api.do(http.MethodPatch, "/api/v1/locations/"+locID, map[string]any{"city": "Lyon"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	loc := decode[map[string]any](t, w)
	assert.Equal(t, "Lyon", loc["city"])
	assert.Equal(t, "Main", loc["name"])

	w = api.do(http.MethodGet, "/api/v1/locations/"+locID+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[struct {
		Data []map[string]any `json:"data"`
	}](t, w).Data
	require.Len(t, entries, 2)
	assert.Equal(t, "update", entries[0]["action"])
	assert.Equal(t, "create", entries[1]["action"])
}

func TestItemQueries(t *testing.T) {
	api := newAPI(t)
	locID := api.createLocation("Main")
	empty := api.createItem(locID, "SKU-EMPTY", 0)
	api.createItem(locID, "SKU-FULL", 20)

	w := api.do(http.MethodGet, "/api/v1/items/out-of-stock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[struct {
		Data []itemBody `json:"data"`
	}](t, w).Data
	require.Len(t, out, 1)
	assert.Equal(t, empty.ID, out[0].ID)
	assert.True(t, out[0].IsOutOfStock)

	w = api.do(http.MethodGet, "/api/v1/items/by-sku/SKU-FULL?locationId="+locID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[struct {
		Data []itemBody `json:"data"`
	}](t, w).Data, 1)

	w = api.do(http.MethodGet, "/api/v1/items?locationId="+locID+"&pageSize=1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode[struct {
		Data       []itemBody             `json:"data"`
		Pagination map[string]json.Number `json:"pagination"`
	}](t, w)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, json.Number("2"), page.Pagination["totalItems"])
	assert.Equal(t, json.Number("2"), page.Pagination["totalPages"])

	w = api.do(http.MethodGet, "/api/v1/locations/"+locID+"/items", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[struct {
		Data []itemBody `json:"data"`
	}](t, w).Data, 2)
}

func TestAdjustAndAvailability(t *testing.T) {
	api := newAPI(t)
	it := api.createItem(api.createLocation("Main"), "SKU-1", 10)

	w := api.do(http.MethodPost, "/api/v1/items/"+it.ID+"/adjust", map[string]any{"delta": -4, "reason": "damaged"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(6), decode[itemBody](t, w).Quantity)

	w = api.do(http.MethodPost, "/api/v1/items/"+it.ID+"/adjust", map[string]any{"delta": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/api/v1/availability/prod-SKU-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	totals := decode[map[string]any](t, w)
	assert.EqualValues(t, 6, totals["totalAvailable"])

	w = api.do(http.MethodGet, "/api/v1/availability/prod-SKU-1/check?quantity=7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode[map[string]any](t, w)["isAvailable"])

	w = api.do(http.MethodGet, "/api/v1/availability/prod-SKU-1/check?quantity=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransferEndpoint(t *testing.T) {
	api := newAPI(t)
	src := api.createLocation("Source")
	dst := api.createLocation("Destination")
	it := api.createItem(src, "SKU-1", 10)

	w := api.do(http.MethodPost, "/api/v1/transfers", map[string]any{
		"sourceItemId":          it.ID,
		"destinationLocationId": dst,
		"quantity":              4,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := decode[struct {
		SourceItem       itemBody `json:"sourceItem"`
		DestinationItem  itemBody `json:"destinationItem"`
		DestinationAdded bool     `json:"destinationCreated"`
	}](t, w)
	assert.Equal(t, int64(6), result.SourceItem.Quantity)
	assert.Equal(t, int64(4), result.DestinationItem.Quantity)
	assert.Equal(t, dst, result.DestinationItem.LocationID)
	assert.True(t, result.DestinationAdded)

	w = api.do(http.MethodPost, "/api/v1/transactions", map[string]any{
		"inventoryId":     it.ID,
		"transactionType": "transfer",
		"quantity":        1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestBadInput(t *testing.T) {
	api := newAPI(t)

	w := api.do(http.MethodGet, "/api/v1/items/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeValidation, decode[errorBody](t, w).Code)

	w = api.do(http.MethodGet, "/api/v1/items/0190b6d4-2a52-7c3e-8a51-4b4f5f7f6b10", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodPost, "/api/v1/locations", map[string]any{"type": "warehouse"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/api/v1/items", map[string]any{
		"productId": "p", "sku": "s", "locationId": "nope",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIdempotentCreateReplays(t *testing.T) {
	api := newAPI(t)
	api.headers[middleware.HeaderIdempotencyKey] = "create-main"

	body := map[string]any{"name": "Main", "type": "warehouse"}
	first := api.do(http.MethodPost, "/api/v1/locations", body)
	require.Equal(t, http.StatusCreated, first.Code)

	second := api.do(http.MethodPost, "/api/v1/locations", body)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	delete(api.headers, middleware.HeaderIdempotencyKey)
	w := api.do(http.MethodGet, "/api/v1/locations", nil)
	assert.Len(t, decode[struct {
		Data []map[string]any `json:"data"`
	}](t, w).Data, 1)

	api.headers[middleware.HeaderIdempotencyKey] = "create-main"
	w = api.do(http.MethodPost, "/api/v1/locations", map[string]any{"name": "Other", "type": "store"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeIdempotency, decode[errorBody](t, w).Code)
}

func TestIdempotentClientErrorReplays(t *testing.T) {
	api := newAPI(t)
	api.headers[middleware.HeaderIdempotencyKey] = "bad-location"

	body := map[string]any{"name": "Main", "type": "moon-base"}
	first := api.do(http.MethodPost, "/api/v1/locations", body)
	require.Equal(t, http.StatusBadRequest, first.Code)

	second := api.do(http.MethodPost, "/api/v1/locations", body)
	assert.Equal(t, http.StatusBadRequest, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
}

func TestAuthentication(t *testing.T) {
	jwtSvc := auth.NewJWTService(auth.JWTConfig{Secret: "test-secret", Issuer: "stockledger"})
	token, _, err := jwtSvc.GenerateAccessToken("user-42", "clerk@example.com", nil)
	require.NoError(t, err)

	t.Run("required", func(t *testing.T) {
		api := newAPI(t, func(cfg *RouterConfig) {
			cfg.JWTValidator = jwtSvc
			cfg.AuthRequired = true
		})

		w := api.do(http.MethodGet, "/api/v1/locations", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		api.headers["Authorization"] = "Bearer garbage"
		w = api.do(http.MethodGet, "/api/v1/locations", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		api.headers["Authorization"] = "Bearer " + token
		w = api.do(http.MethodGet, "/api/v1/locations", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		delete(api.headers, "Authorization")
		w = api.do(http.MethodGet, "/health/live", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("optional attributes postings", func(t *testing.T) {
		api := newAPI(t, func(cfg *RouterConfig) {
			cfg.JWTValidator = jwtSvc
		})
		it := api.createItem(api.createLocation("Main"), "SKU-1", 0)

		api.headers["Authorization"] = "Bearer " + token
		w := api.do(http.MethodPost, "/api/v1/transactions", map[string]any{
			"inventoryId":     it.ID,
			"transactionType": "restock",
			"quantity":        2,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "user-42", decode[map[string]any](t, w)["createdBy"])
	})
}

func TestPanicIsRenderedAsInternalError(t *testing.T) {
	api := newAPI(t)
	api.router.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := api.do(http.MethodGet, "/boom", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, apperror.CodeInternal, body.Code)
	assert.NotContains(t, w.Body.String(), "kaboom")
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}
