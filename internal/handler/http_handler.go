package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kyungseok/order-shop-go/common/errors"
	"github.com/kyungseok/order-shop-go/common/idempotency"
	"github.com/kyungseok/order-shop-go/internal/domain"
	"github.com/kyungseok/order-shop-go/internal/query"
	"github.com/kyungseok/order-shop-go/internal/service"
	"go.uber.org/zap"
)

const idempotencyTTL = 24 * time.Hour

// HTTPHandler HTTP 핸들러
type HTTPHandler struct {
	memberService service.MemberService
	itemService   service.ItemService
	orderService  service.OrderService
	orderQuery    *query.OrderQueryRepository
	simpleQuery   *query.SimpleQueryRepository
	idemStore     idempotency.Store
	logger        *zap.Logger
}

// NewHTTPHandler HTTP 핸들러 생성
func NewHTTPHandler(
	memberService service.MemberService,
	itemService service.ItemService,
	orderService service.OrderService,
	orderQuery *query.OrderQueryRepository,
	simpleQuery *query.SimpleQueryRepository,
	idemStore idempotency.Store,
	logger *zap.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		memberService: memberService,
		itemService:   itemService,
		orderService:  orderService,
		orderQuery:    orderQuery,
		simpleQuery:   simpleQuery,
		idemStore:     idemStore,
		logger:        logger,
	}
}

// Routes 라우트 등록
func (h *HTTPHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)

	mux.HandleFunc("POST /members", h.RegisterMember)
	mux.HandleFunc("GET /members", h.ListMembers)
	mux.HandleFunc("PUT /members/{id}", h.UpdateMember)

	mux.HandleFunc("POST /items", h.SaveItem)
	mux.HandleFunc("GET /items", h.ListItems)
	mux.HandleFunc("PUT /items/{id}", h.UpdateBook)

	mux.HandleFunc("POST /orders", h.PlaceOrder)
	mux.HandleFunc("GET /orders/{id}", h.GetOrder)
	mux.HandleFunc("POST /orders/{id}/cancel", h.CancelOrder)

	mux.HandleFunc("GET /api/v1/orders", h.OrdersV1)
	mux.HandleFunc("GET /api/v2/orders", h.OrdersV2)
	mux.HandleFunc("GET /api/v3/orders", h.OrdersV3)
	mux.HandleFunc("GET /api/v3.1/orders", h.OrdersV31)
	mux.HandleFunc("GET /api/v4/orders", h.OrdersV4)
	mux.HandleFunc("GET /api/v5/orders", h.OrdersV5)
	mux.HandleFunc("GET /api/v6/orders", h.OrdersV6)

	mux.HandleFunc("GET /api/v1/simple-orders", h.SimpleOrdersV1)
	mux.HandleFunc("GET /api/v2/simple-orders", h.SimpleOrdersV2)
	mux.HandleFunc("GET /api/v3/simple-orders", h.SimpleOrdersV3)
	mux.HandleFunc("GET /api/v4/simple-orders", h.SimpleOrdersV4)
}

//=== 회원 ===//

// AddressRequest 주소 요청
type AddressRequest struct {
	City    string `json:"city"`
	Street  string `json:"street"`
	Zipcode string `json:"zipcode"`
}

// MemberRequest 회원 가입/수정 요청
type MemberRequest struct {
	Name    string         `json:"name"`
	Address AddressRequest `json:"address"`
}

// CreatedResponse 생성 응답
type CreatedResponse struct {
	ID int64 `json:"id"`
}

// ErrorResponse 에러 응답
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RegisterMember 회원 가입 API
func (h *HTTPHandler) RegisterMember(w http.ResponseWriter, r *http.Request) {
	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	id, err := h.memberService.Register(r.Context(), req.Name,
		domain.NewAddress(req.Address.City, req.Address.Street, req.Address.Zipcode))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

// UpdateMember 회원 수정 API
func (h *HTTPHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	if err := h.memberService.Update(r.Context(), id, req.Name,
		domain.NewAddress(req.Address.City, req.Address.Street, req.Address.Zipcode)); err != nil {
		h.respondDomainError(w, err)
		return
	}

	member, err := h.memberService.FindOne(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, member)
}

// ListMembers 회원 목록 API
func (h *HTTPHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.memberService.FindMembers(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, members)
}

//=== 상품 ===//

// BookRequest 도서 등록/수정 요청
type BookRequest struct {
	Name          string `json:"name"`
	Price         int    `json:"price"`
	StockQuantity int    `json:"stockQuantity"`
	Author        string `json:"author"`
	ISBN          string `json:"isbn"`
}

// SaveItem 도서 등록 API
func (h *HTTPHandler) SaveItem(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	book := domain.NewBook(req.Name, req.Price, req.StockQuantity, req.Author, req.ISBN)
	id, err := h.itemService.SaveItem(r.Context(), book)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

// UpdateBook 도서 수정 API
func (h *HTTPHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	if err := h.itemService.UpdateBook(r.Context(), id,
		req.Name, req.Price, req.StockQuantity, req.Author, req.ISBN); err != nil {
		h.respondDomainError(w, err)
		return
	}

	item, err := h.itemService.FindOne(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, item)
}

// ListItems 상품 목록 API
func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.itemService.FindItems(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, items)
}

//=== 주문 ===//

// OrderLineRequest 주문 상품 한 줄 요청
type OrderLineRequest struct {
	ItemID int64 `json:"itemId"`
	Count  int   `json:"count"`
}

// PlaceOrderRequest 주문 생성 요청
type PlaceOrderRequest struct {
	MemberID       int64              `json:"memberId"`
	Lines          []OrderLineRequest `json:"lines"`
	IdempotencyKey string             `json:"idempotencyKey,omitempty"`
}

// PlaceOrder 주문 생성 API
func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	reserved, err := h.idemStore.Reserve(r.Context(), req.IdempotencyKey, idempotencyTTL)
	if err != nil {
		h.logger.Error("failed to reserve idempotency key", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "idempotency store unavailable", "")
		return
	}
	if !reserved {
		h.respondError(w, http.StatusConflict, "duplicate request",
			string(errors.ErrCodeDuplicateRequest))
		return
	}

	lines := make([]service.OrderLineCommand, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, service.OrderLineCommand{ItemID: line.ItemID, Count: line.Count})
	}

	id, err := h.orderService.PlaceOrder(r.Context(), req.MemberID, lines...)
	if err != nil {
		// 처리되지 않은 요청이므로 키를 풀어 재시도를 허용한다.
		if releaseErr := h.idemStore.Release(r.Context(), req.IdempotencyKey); releaseErr != nil {
			h.logger.Warn("failed to release idempotency key", zap.Error(releaseErr))
		}
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, CreatedResponse{ID: id})
}

// GetOrder 주문 단건 조회 API
func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.FindOne(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, order)
}

// CancelOrder 주문 취소 API
func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.orderService.CancelOrder(r.Context(), id); err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}

//=== 주문 프로젝션 ===//

// OrdersV1 주문 목록 - 엔티티 직접 노출
func (h *HTTPHandler) OrdersV1(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderQuery.FindAllEntities(r.Context(), orderSearch(r))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, orders)
}

// OrdersV2 주문 목록 - 전송용 형태 변환
func (h *HTTPHandler) OrdersV2(w http.ResponseWriter, r *http.Request) {
	result, err := h.orderQuery.FindAllDTO(r.Context(), orderSearch(r))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// OrdersV3 주문 목록 - 단일 조인. 페이징 파라미터를 받지 않는다.
func (h *HTTPHandler) OrdersV3(w http.ResponseWriter, r *http.Request) {
	if hasPagingParams(r) {
		h.respondError(w, http.StatusBadRequest,
			"pagination is not supported for this endpoint", string(errors.ErrCodeInvalidOrder))
		return
	}

	orders, err := h.orderQuery.FindAllWithItems(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	result := make([]query.OrderProjection, 0, len(orders))
	for _, order := range orders {
		projection, err := query.ProjectionFromOrder(order)
		if err != nil {
			h.respondDomainError(w, err)
			return
		}
		result = append(result, projection)
	}
	h.respondJSON(w, http.StatusOK, result)
}

// OrdersV31 주문 목록 - to-one 조인 + 컬렉션 배치 조회 (페이징 가능)
func (h *HTTPHandler) OrdersV31(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := h.paging(w, r)
	if !ok {
		return
	}

	orders, err := h.orderQuery.FindAllWithMemberDelivery(r.Context(), offset, limit)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	result := make([]query.OrderProjection, 0, len(orders))
	for _, order := range orders {
		projection, err := query.ProjectionFromOrder(order)
		if err != nil {
			h.respondDomainError(w, err)
			return
		}
		result = append(result, projection)
	}
	h.respondJSON(w, http.StatusOK, result)
}

// OrdersV4 주문 목록 - 직접 프로젝션 (루트 당 컬렉션 쿼리)
func (h *HTTPHandler) OrdersV4(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := h.paging(w, r)
	if !ok {
		return
	}

	result, err := h.orderQuery.FindOrderProjections(r.Context(), offset, limit)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// OrdersV5 주문 목록 - 직접 프로젝션 (컬렉션 IN 일괄 조회)
func (h *HTTPHandler) OrdersV5(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := h.paging(w, r)
	if !ok {
		return
	}

	result, err := h.orderQuery.FindOrderProjectionsOptimized(r.Context(), offset, limit)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// OrdersV6 주문 목록 - 평면 조인 + 그룹핑. 페이징 파라미터를 받지 않는다.
func (h *HTTPHandler) OrdersV6(w http.ResponseWriter, r *http.Request) {
	if hasPagingParams(r) {
		h.respondError(w, http.StatusBadRequest,
			"pagination is not supported for this endpoint", string(errors.ErrCodeInvalidOrder))
		return
	}

	result, err := h.orderQuery.FindOrderProjectionsFlat(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

//=== 단순 주문 프로젝션 (to-one) ===//

// SimpleOrdersV1 단순 주문 목록 - 엔티티 직접 노출
func (h *HTTPHandler) SimpleOrdersV1(w http.ResponseWriter, r *http.Request) {
	orders, err := h.simpleQuery.FindAllEntities(r.Context(), orderSearch(r))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, orders)
}

// SimpleOrdersV2 단순 주문 목록 - 전송용 형태 변환
func (h *HTTPHandler) SimpleOrdersV2(w http.ResponseWriter, r *http.Request) {
	result, err := h.simpleQuery.FindAllDTO(r.Context(), orderSearch(r))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// SimpleOrdersV3 단순 주문 목록 - 조인 조회
func (h *HTTPHandler) SimpleOrdersV3(w http.ResponseWriter, r *http.Request) {
	orders, err := h.simpleQuery.FindAllWithMemberDelivery(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	result := make([]query.SimpleOrderProjection, 0, len(orders))
	for _, order := range orders {
		projection, err := query.SimpleProjectionFromOrder(order)
		if err != nil {
			h.respondDomainError(w, err)
			return
		}
		result = append(result, projection)
	}
	h.respondJSON(w, http.StatusOK, result)
}

// SimpleOrdersV4 단순 주문 목록 - 직접 프로젝션
func (h *HTTPHandler) SimpleOrdersV4(w http.ResponseWriter, r *http.Request) {
	result, err := h.simpleQuery.FindProjections(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// HealthCheck 헬스 체크 API
func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

//=== 공통 ===//

func (h *HTTPHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid id", "")
		return 0, false
	}
	return id, true
}

func (h *HTTPHandler) paging(w http.ResponseWriter, r *http.Request) (offset, limit int, ok bool) {
	offset, limit = 0, 100

	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.respondError(w, http.StatusBadRequest, "invalid offset", "")
			return 0, 0, false
		}
		offset = parsed
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.respondError(w, http.StatusBadRequest, "invalid limit", "")
			return 0, 0, false
		}
		limit = parsed
	}
	return offset, limit, true
}

func hasPagingParams(r *http.Request) bool {
	q := r.URL.Query()
	return q.Has("offset") || q.Has("limit")
}

func orderSearch(r *http.Request) domain.OrderSearch {
	return domain.OrderSearch{
		MemberName: r.URL.Query().Get("memberName"),
		Status:     domain.OrderStatus(r.URL.Query().Get("status")),
	}
}

func (h *HTTPHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, status int, message string, code string) {
	h.respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func (h *HTTPHandler) respondDomainError(w http.ResponseWriter, err error) {
	code := errors.Code(err)

	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeInvalidOrder:
		status = http.StatusBadRequest
	case errors.ErrCodeOutOfStock, errors.ErrCodeAlreadyDelivered, errors.ErrCodeAlreadyCanceled,
		errors.ErrCodeDuplicateMember, errors.ErrCodeDuplicateRequest, errors.ErrCodeConflict:
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	} else {
		h.logger.Warn("request rejected", zap.String("code", string(code)), zap.Error(err))
	}

	h.respondError(w, status, err.Error(), string(code))
}
