package handler

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/service"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/port"
)

// An empty capability means any authenticated caller.
var methodCapabilities = map[string]Capability{
	fullMethod("CreateOrder"):           CapPlaceOrder,
	fullMethod("ApproveOrder"):          CapDecideOrder,
	fullMethod("CreateReplenishment"):   CapRequestReplenishment,
	fullMethod("ApproveReplenishment"):  CapApproveReplenishment,
	fullMethod("MarkReplenishmentPaid"): CapMarkPaid,
	fullMethod("GetItem"):               "",
}

type callerKey struct{}

type GRPCHandler struct {
	svc    *Services
	logger *zap.Logger
}

var _ StockLedgerServer = (*GRPCHandler)(nil)

func NewGRPCHandler(svc *Services, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{svc: svc, logger: logger}
}

// UnaryAuthInterceptor authenticates calls into the ledger service from the
// "authorization: Bearer" metadata and applies the capability table. Other
// services, such as health, pass through.
func (h *GRPCHandler) UnaryAuthInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		capability, ok := methodCapabilities[info.FullMethod]
		if !ok {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		var token string
		if values := md.Get("authorization"); len(values) > 0 {
			token = strings.TrimPrefix(values[0], "Bearer ")
		}
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}

		user, err := h.svc.Auth.Authenticate(ctx, token)
		if err != nil {
			return nil, h.grpcError(err)
		}
		if capability != "" && !Allowed(user.Role, capability) {
			return nil, status.Error(codes.PermissionDenied, "not authorized for this action")
		}
		return handler(context.WithValue(ctx, callerKey{}, *user), req)
	}
}

func caller(ctx context.Context) domain.User {
	user, _ := ctx.Value(callerKey{}).(domain.User)
	return user
}

func (h *GRPCHandler) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderReply, error) {
	order, err := h.svc.createOrder(ctx, req.ItemID, req.Quantity, caller(ctx).ID)
	if err != nil {
		return nil, h.grpcError(err)
	}
	return &OrderReply{Order: *order}, nil
}

func (h *GRPCHandler) ApproveOrder(ctx context.Context, req *ApproveOrderRequest) (*OrderReply, error) {
	res, err := h.svc.decideOrder(ctx, req.OrderID, req.Status)
	if err != nil {
		return nil, h.grpcError(err)
	}
	return &OrderReply{Order: res.Order, Item: res.Item}, nil
}

func (h *GRPCHandler) CreateReplenishment(ctx context.Context, req *CreateReplenishmentRequest) (*ReplenishmentReply, error) {
	r, err := h.svc.createReplenishment(ctx, req.ItemID, req.Quantity, req.SupplierID, caller(ctx).ID)
	if err != nil {
		return nil, h.grpcError(err)
	}
	return &ReplenishmentReply{Replenishment: *r}, nil
}

func (h *GRPCHandler) ApproveReplenishment(ctx context.Context, req *ReplenishmentIDRequest) (*ReplenishmentReply, error) {
	res, err := h.svc.approveReplenishment(ctx, req.ID)
	if err != nil {
		return nil, h.grpcError(err)
	}
	return &ReplenishmentReply{Replenishment: res.Replenishment, Item: res.Item}, nil
}

func (h *GRPCHandler) MarkReplenishmentPaid(ctx context.Context, req *ReplenishmentIDRequest) (*ReplenishmentReply, error) {
	r, err := h.svc.markPaid(ctx, req.ID)
	if err != nil {
		return nil, h.grpcError(err)
	}
	return &ReplenishmentReply{Replenishment: *r}, nil
}

func (h *GRPCHandler) GetItem(ctx context.Context, req *GetItemRequest) (*ItemReply, error) {
	item, err := h.svc.Catalog.GetItem(ctx, req.ID)
	if err != nil {
		return nil, h.grpcError(err)
	}
	return &ItemReply{Item: *item}, nil
}

func (h *GRPCHandler) grpcError(err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrInvalidState):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrInsufficientStock):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, service.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, port.ErrLockTimeout):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	h.logger.Error("grpc call failed", zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}
