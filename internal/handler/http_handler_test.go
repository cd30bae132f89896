package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyungseok/order-shop-go/common/errors"
	"github.com/kyungseok/order-shop-go/common/idempotency"
	"github.com/kyungseok/order-shop-go/common/logger"
	"github.com/kyungseok/order-shop-go/internal/handler"
	"github.com/kyungseok/order-shop-go/internal/query"
	"github.com/kyungseok/order-shop-go/internal/repository"
	"github.com/kyungseok/order-shop-go/internal/service"
	"github.com/kyungseok/order-shop-go/internal/testdb"
)

func newTestServer(t *testing.T) *httptest.Server {
	db := testdb.Open(t)
	log := logger.NewTestLogger()

	memberRepo := repository.NewMemberRepository(db)
	itemRepo := repository.NewItemRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	h := handler.NewHTTPHandler(
		service.NewMemberService(db, memberRepo, outboxRepo, log),
		service.NewItemService(db, itemRepo, log),
		service.NewOrderService(db, memberRepo, itemRepo, orderRepo, outboxRepo, log),
		query.NewOrderQueryRepository(db, orderRepo, 100),
		query.NewSimpleQueryRepository(db, orderRepo),
		idempotency.NewMemoryStore(),
		log,
	)

	mux := http.NewServeMux()
	h.Routes(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func seedViaHTTP(t *testing.T, baseURL string) (memberID, bookID int64) {
	resp := postJSON(t, baseURL+"/members", handler.MemberRequest{
		Name:    "userA",
		Address: handler.AddressRequest{City: "서울", Street: "광명사거리", Zipcode: "20315"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var member handler.CreatedResponse
	decode(t, resp, &member)

	resp = postJSON(t, baseURL+"/items", handler.BookRequest{
		Name: "JPA BOOK", Price: 10000, StockQuantity: 10, Author: "김영한", ISBN: "jpa-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var book handler.CreatedResponse
	decode(t, resp, &book)

	return member.ID, book.ID
}

func TestHTTP_PlaceAndCancelOrder(t *testing.T) {
	server := newTestServer(t)
	memberID, bookID := seedViaHTTP(t, server.URL)

	resp := postJSON(t, server.URL+"/orders", handler.PlaceOrderRequest{
		MemberID: memberID,
		Lines:    []handler.OrderLineRequest{{ItemID: bookID, Count: 2}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created handler.CreatedResponse
	decode(t, resp, &created)
	require.NotZero(t, created.ID)

	resp = postJSON(t, fmt.Sprintf("%s/orders/%d/cancel", server.URL, created.ID), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// 이미 취소된 주문은 409
	resp = postJSON(t, fmt.Sprintf("%s/orders/%d/cancel", server.URL, created.ID), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var errResp handler.ErrorResponse
	decode(t, resp, &errResp)
	assert.Equal(t, string(errors.ErrCodeAlreadyCanceled), errResp.Code)
}

func TestHTTP_PlaceOrder_DuplicateIdempotencyKey(t *testing.T) {
	server := newTestServer(t)
	memberID, bookID := seedViaHTTP(t, server.URL)

	req := handler.PlaceOrderRequest{
		MemberID:       memberID,
		Lines:          []handler.OrderLineRequest{{ItemID: bookID, Count: 1}},
		IdempotencyKey: "req-1",
	}

	resp := postJSON(t, server.URL+"/orders", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, server.URL+"/orders", req)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var errResp handler.ErrorResponse
	decode(t, resp, &errResp)
	assert.Equal(t, string(errors.ErrCodeDuplicateRequest), errResp.Code)
}

func TestHTTP_PlaceOrder_OutOfStock(t *testing.T) {
	server := newTestServer(t)
	memberID, bookID := seedViaHTTP(t, server.URL)

	resp := postJSON(t, server.URL+"/orders", handler.PlaceOrderRequest{
		MemberID: memberID,
		Lines:    []handler.OrderLineRequest{{ItemID: bookID, Count: 11}},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var errResp handler.ErrorResponse
	decode(t, resp, &errResp)
	assert.Equal(t, string(errors.ErrCodeOutOfStock), errResp.Code)

	// 실패한 요청의 멱등성 키는 해제되어 재시도할 수 있다
	resp = postJSON(t, server.URL+"/orders", handler.PlaceOrderRequest{
		MemberID: memberID,
		Lines:    []handler.OrderLineRequest{{ItemID: bookID, Count: 1}},
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestHTTP_DuplicateMember(t *testing.T) {
	server := newTestServer(t)
	seedViaHTTP(t, server.URL)

	resp := postJSON(t, server.URL+"/members", handler.MemberRequest{Name: "userA"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var errResp handler.ErrorResponse
	decode(t, resp, &errResp)
	assert.Equal(t, string(errors.ErrCodeDuplicateMember), errResp.Code)
}

func TestHTTP_UnpaginableEndpointsRejectPagingParams(t *testing.T) {
	server := newTestServer(t)

	for _, path := range []string{
		"/api/v3/orders?limit=10",
		"/api/v3/orders?offset=5",
		"/api/v6/orders?limit=10",
		"/api/v6/orders?offset=0&limit=10",
	} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
		resp.Body.Close()
	}

	// 파라미터가 없으면 정상 동작
	for _, path := range []string{"/api/v3/orders", "/api/v6/orders"} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		resp.Body.Close()
	}
}

func TestHTTP_OrderProjectionEndpoints(t *testing.T) {
	server := newTestServer(t)
	memberID, bookID := seedViaHTTP(t, server.URL)

	resp := postJSON(t, server.URL+"/orders", handler.PlaceOrderRequest{
		MemberID: memberID,
		Lines:    []handler.OrderLineRequest{{ItemID: bookID, Count: 2}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	for _, path := range []string{
		"/api/v1/orders", "/api/v2/orders", "/api/v3/orders", "/api/v3.1/orders",
		"/api/v4/orders", "/api/v5/orders", "/api/v6/orders",
		"/api/v1/simple-orders", "/api/v2/simple-orders",
		"/api/v3/simple-orders", "/api/v4/simple-orders",
	} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)

		var result []json.RawMessage
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result), path)
		resp.Body.Close()
		assert.Len(t, result, 1, path)
	}

	// V2/V5 는 같은 응답 본문을 만들어야 한다
	v2, err := http.Get(server.URL + "/api/v2/orders")
	require.NoError(t, err)
	defer v2.Body.Close()
	v5, err := http.Get(server.URL + "/api/v5/orders")
	require.NoError(t, err)
	defer v5.Body.Close()

	var v2Body, v5Body []map[string]interface{}
	require.NoError(t, json.NewDecoder(v2.Body).Decode(&v2Body))
	require.NoError(t, json.NewDecoder(v5.Body).Decode(&v5Body))
	assert.Equal(t, v2Body, v5Body)
}

func TestHTTP_HealthAndNotFound(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/orders/9999")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
