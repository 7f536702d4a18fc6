package handler

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
)

func startGRPC(t *testing.T, f *fixture) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	h := NewGRPCHandler(f.svc, zap.NewNop())
	srv := grpc.NewServer(grpc.UnaryInterceptor(h.UnaryAuthInterceptor()))
	RegisterStockLedgerServer(srv, h)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func withToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func TestGRPC_OrderFlow(t *testing.T) {
	f := newFixture(t)
	f.seedItem("widget", 10)
	client := NewStockLedgerClient(startGRPC(t, f))
	ctx := context.Background()

	_, err := client.CreateOrder(ctx, &CreateOrderRequest{ItemID: "widget", Quantity: 4})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	created, err := client.CreateOrder(withToken(ctx, f.tokens[domain.RoleEmployee]), &CreateOrderRequest{ItemID: "widget", Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, created.Order.Status)
	assert.Equal(t, f.users[domain.RoleEmployee].ID, created.Order.EmployeeID)

	_, err = client.ApproveOrder(withToken(ctx, f.tokens[domain.RoleEmployee]), &ApproveOrderRequest{OrderID: created.Order.ID, Status: domain.OrderStatusApproved})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	managerCtx := withToken(ctx, f.tokens[domain.RoleManager])
	approved, err := client.ApproveOrder(managerCtx, &ApproveOrderRequest{OrderID: created.Order.ID, Status: domain.OrderStatusApproved})
	require.NoError(t, err)
	require.NotNil(t, approved.Item)
	assert.Equal(t, 6, approved.Item.Quantity)

	_, err = client.ApproveOrder(managerCtx, &ApproveOrderRequest{OrderID: created.Order.ID, Status: domain.OrderStatusApproved})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	big, err := client.CreateOrder(managerCtx, &CreateOrderRequest{ItemID: "widget", Quantity: 8})
	require.NoError(t, err)
	_, err = client.ApproveOrder(managerCtx, &ApproveOrderRequest{OrderID: big.Order.ID, Status: domain.OrderStatusApproved})
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	_, err = client.CreateOrder(managerCtx, &CreateOrderRequest{ItemID: "widget", Quantity: 0})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.GetItem(managerCtx, &GetItemRequest{ID: "missing"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	item, err := client.GetItem(withToken(ctx, f.tokens[domain.RoleEmployee]), &GetItemRequest{ID: "widget"})
	require.NoError(t, err)
	assert.Equal(t, 6, item.Item.Quantity)
}

func TestGRPC_ReplenishmentFlow(t *testing.T) {
	f := newFixture(t)
	f.seedItem("widget", 6)
	f.seedSupplier("acme")
	client := NewStockLedgerClient(startGRPC(t, f))
	ctx := withToken(context.Background(), f.tokens[domain.RoleManager])

	created, err := client.CreateReplenishment(ctx, &CreateReplenishmentRequest{ItemID: "widget", Quantity: 20, SupplierID: "acme"})
	require.NoError(t, err)

	approved, err := client.ApproveReplenishment(ctx, &ReplenishmentIDRequest{ID: created.Replenishment.ID})
	require.NoError(t, err)
	assert.Equal(t, 26, approved.Item.Quantity)

	paid, err := client.MarkReplenishmentPaid(ctx, &ReplenishmentIDRequest{ID: created.Replenishment.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.ReplenishmentStatusPaid, paid.Replenishment.Status)

	_, err = client.MarkReplenishmentPaid(ctx, &ReplenishmentIDRequest{ID: created.Replenishment.ID})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = client.ApproveReplenishment(ctx, &ReplenishmentIDRequest{ID: created.Replenishment.ID})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Equal(t, 26, f.quantity("widget"))
}

func TestGRPC_HealthSkipsAuth(t *testing.T) {
	f := newFixture(t)
	conn := startGRPC(t, f)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
