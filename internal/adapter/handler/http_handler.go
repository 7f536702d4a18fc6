package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/service"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/port"
)

type HTTPOptions struct {
	TokenTTL        time.Duration
	CookieSecure    bool
	CORSOrigin      string
	LoginRateLimit  int
	LoginRateWindow time.Duration
}

type HTTPHandler struct {
	svc     *Services
	limiter port.RateLimiter
	opts    HTTPOptions
	logger  *zap.Logger
}

// NewHTTPHandler builds the HTTP transport. A nil limiter turns off login
// rate limiting.
func NewHTTPHandler(svc *Services, limiter port.RateLimiter, opts HTTPOptions, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, limiter: limiter, opts: opts, logger: logger}
}

func (h *HTTPHandler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.observe(), h.cors())

	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(h.svc.Metrics.Handler()))

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", h.rateLimit("signup"), h.Signup)
	auth.POST("/login", h.rateLimit("login"), h.Login)
	auth.POST("/logout", h.Logout)

	api.GET("/inventory", h.ListItems)
	api.GET("/suppliers", h.ListSuppliers)

	authed := api.Group("", h.authenticate())

	authed.POST("/inventory", h.require(CapManageCatalog), h.CreateItem)
	authed.PUT("/inventory/:id", h.require(CapManageCatalog), h.UpdateItem)
	authed.DELETE("/inventory/:id", h.require(CapManageCatalog), h.DeleteItem)

	authed.POST("/suppliers", h.require(CapManageCatalog), h.CreateSupplier)
	authed.PUT("/suppliers/:id", h.require(CapManageCatalog), h.UpdateSupplier)
	authed.DELETE("/suppliers/:id", h.require(CapManageCatalog), h.DeleteSupplier)

	authed.GET("/orders", h.require(CapViewRecords), h.ListOrders)
	authed.POST("/orders", h.require(CapPlaceOrder), h.CreateOrder)
	authed.PUT("/orders/:id", h.require(CapDecideOrder), h.DecideOrder)
	authed.DELETE("/orders/:id", h.require(CapDeleteOrder), h.DeleteOrder)

	authed.GET("/replenishment", h.require(CapViewRecords), h.ListReplenishments)
	authed.POST("/replenishment", h.require(CapRequestReplenishment), h.CreateReplenishment)
	authed.PUT("/replenishment/:id", h.require(CapApproveReplenishment), h.ApproveReplenishment)

	authed.POST("/payment/verify", h.require(CapVerifyPayment), h.VerifyPayment)

	authed.GET("/users", h.require(CapManageUsers), h.ListUsers)
	authed.PUT("/users/:id", h.UpdateUser)
	authed.DELETE("/users/:id", h.require(CapManageUsers), h.DeleteUser)

	authed.GET("/dashboard/metrics", h.require(CapViewRecords), h.DashboardMetrics)

	return r
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

func (h *HTTPHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFailure(c, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := h.svc.Auth.Signup(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.setSession(c, token)
	writeData(c, http.StatusCreated, "user registered", authResponse{User: *user, Token: token})
}

func (h *HTTPHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFailure(c, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := h.svc.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.setSession(c, token)
	writeData(c, http.StatusOK, "logged in", authResponse{User: *user, Token: token})
}

func (h *HTTPHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(tokenCookie, "", -1, "/", "", h.opts.CookieSecure, true)
	writeData(c, http.StatusOK, "logged out", nil)
}

func (h *HTTPHandler) setSession(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(tokenCookie, token, int(h.opts.TokenTTL.Seconds()), "/", "", h.opts.CookieSecure, true)
}

type itemRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Quantity    *int     `json:"quantity"`
	Price       *float64 `json:"price"`
	SupplierID  *string  `json:"supplier_id"`
}

func (r itemRequest) input() service.ItemInput {
	var in service.ItemInput
	if r.Name != nil {
		in.Name = *r.Name
	}
	if r.Description != nil {
		in.Description = *r.Description
	}
	if r.Quantity != nil {
		in.Quantity = *r.Quantity
	}
	if r.Price != nil {
		in.Price = *r.Price
	}
	if r.SupplierID != nil {
		in.SupplierID = *r.SupplierID
	}
	return in
}

func (r itemRequest) patch() service.ItemPatch {
	return service.ItemPatch{
		Name:        r.Name,
		Description: r.Description,
		Quantity:    r.Quantity,
		Price:       r.Price,
		SupplierID:  r.SupplierID,
	}
}

func (h *HTTPHandler) ListItems(c *gin.Context) {
	items, err := h.svc.Catalog.ListItems(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "", items)
}

func (h *HTTPHandler) CreateItem(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFailure(c, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := h.svc.Catalog.CreateItem(c.Request.Context(), req.input())
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusCreated, "item created", item)
}

func (h *HTTPHandler) UpdateItem(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFailure(c, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := h.svc.Catalog.UpdateItem(c.Request.Context(), c.Param("id"), req.patch())
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "item updated", item)
}

func (h *HTTPHandler) DeleteItem(c *gin.Context) {
	if err := h.svc.Catalog.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "item removed", nil)
}

type supplierRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

func (r supplierRequest) input() service.SupplierInput {
	return service.SupplierInput{Name: r.Name, Contact: r.Contact, Email: r.Email, Address: r.Address}
}

func (h *HTTPHandler) ListSuppliers(c *gin.Context) {
	suppliers, err := h.svc.Catalog.ListSuppliers(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "", suppliers)
}

func (h *HTTPHandler) CreateSupplier(c *gin.Context) {
	var req supplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFailure(c, http.StatusBadRequest, "invalid request body")
		return
	}
	s, err := h.svc.Catalog.CreateSupplier(c.Request.Context(), req.input())
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusCreated, "supplier created", s)
}

func (h *HTTPHandler) UpdateSupplier(c *gin.Context) {
	var req supplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFailure(c, http.StatusBadRequest, "invalid request body")
		return
	}
	s, err := h.svc.Catalog.UpdateSupplier(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "supplier updated", s)
}

func (h *HTTPHandler) DeleteSupplier(c *gin.Context) {
	if err := h.svc.Catalog.DeleteSupplier(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "supplier removed", nil)
}

type orderRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type decisionRequest struct {
	Status domain.OrderStatus `json:"status"`
}

type orderResponse struct {
	Order domain.Order `json:"order"`
	Item  *domain.Item `json:"item,omitempty"`
}

func (h *HTTPHandler) ListOrders(c *gin.Context) {
	orders, err := h.svc.Catalog.ListOrders(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "", orders)
}

func (h *HTTPHandler) CreateOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFailure(c, http.StatusBadRequest, "invalid request body")
		return
	}
	order, err := h.svc.createOrder(c.Request.Context(), req.ItemID, req.Quantity, currentUser(c).ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusCreated, "order placed", order)
}

func (h *HTTPHandler) DecideOrder(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFailure(c, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.decideOrder(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "order "+string(res.Order.Status), orderResponse{Order: res.Order, Item: res.Item})
}

func (h *HTTPHandler) DeleteOrder(c *gin.Context) {
	if err := h.svc.Catalog.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "order removed", nil)
}

type replenishmentRequest struct {
	ItemID     string `json:"item_id"`
	Quantity   int    `json:"quantity"`
	SupplierID string `json:"supplier_id"`
}

type replenishmentResponse struct {
	Replenishment domain.Replenishment `json:"replenishment"`
	Item          *domain.Item         `json:"item,omitempty"`
}

func (h *HTTPHandler) ListReplenishments(c *gin.Context) {
	list, err := h.svc.Catalog.ListReplenishments(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "", list)
}

func (h *HTTPHandler) CreateReplenishment(c *gin.Context) {
	var req replenishmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFailure(c, http.StatusBadRequest, "invalid request body")
		return
	}
	r, err := h.svc.createReplenishment(c.Request.Context(), req.ItemID, req.Quantity, req.SupplierID, currentUser(c).ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusCreated, "replenishment requested", r)
}

func (h *HTTPHandler) ApproveReplenishment(c *gin.Context) {
	res, err := h.svc.approveReplenishment(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "replenishment approved", replenishmentResponse{Replenishment: res.Replenishment, Item: res.Item})
}

// Field names follow the payment gateway's callback payload.
type verifyPaymentRequest struct {
	GatewayOrderID  string `json:"razorpay_order_id"`
	PaymentID       string `json:"razorpay_payment_id"`
	Signature       string `json:"razorpay_signature"`
	ReplenishmentID string `json:"replenishment_id"`
}

func (h *HTTPHandler) VerifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFailure(c, http.StatusBadRequest, "invalid request body")
		return
	}
	r, err := h.svc.verifyPayment(c.Request.Context(), service.PaymentConfirmation{
		GatewayOrderID:  req.GatewayOrderID,
		PaymentID:       req.PaymentID,
		Signature:       req.Signature,
		ReplenishmentID: req.ReplenishmentID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "payment verified", r)
}

type userRequest struct {
	Name     *string      `json:"name"`
	Email    *string      `json:"email"`
	Password *string      `json:"password"`
	Role     *domain.Role `json:"role"`
}

func (h *HTTPHandler) ListUsers(c *gin.Context) {
	users, err := h.svc.Auth.ListUsers(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "", users)
}

// UpdateUser lets anyone edit their own account; only admins may edit other
// accounts or change a role.
func (h *HTTPHandler) UpdateUser(c *gin.Context) {
	caller := currentUser(c)
	id := c.Param("id")
	isAdmin := Allowed(caller.Role, CapManageUsers)
	if caller.ID != id && !isAdmin {
		writeFailure(c, http.StatusForbidden, "not authorized for this action")
		return
	}

	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFailure(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role != nil && !isAdmin {
		writeFailure(c, http.StatusForbidden, "only admins can change roles")
		return
	}

	user, err := h.svc.Auth.UpdateUser(c.Request.Context(), id, service.UserPatch{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "user updated", user)
}

func (h *HTTPHandler) DeleteUser(c *gin.Context) {
	if err := h.svc.Auth.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "user removed", nil)
}

func (h *HTTPHandler) DashboardMetrics(c *gin.Context) {
	m, err := h.svc.Catalog.Metrics(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, "", m)
}
