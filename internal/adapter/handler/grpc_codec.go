package handler

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
)

// codecName is the gRPC content-subtype; requests arrive as
// application/grpc+json.
const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

const stockLedgerService = "inventory.v1.StockLedger"

type CreateOrderRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type ApproveOrderRequest struct {
	OrderID string             `json:"order_id"`
	Status  domain.OrderStatus `json:"status"`
}

type OrderReply struct {
	Order domain.Order `json:"order"`
	Item  *domain.Item `json:"item,omitempty"`
}

type CreateReplenishmentRequest struct {
	ItemID     string `json:"item_id"`
	Quantity   int    `json:"quantity"`
	SupplierID string `json:"supplier_id"`
}

type ReplenishmentIDRequest struct {
	ID string `json:"id"`
}

type ReplenishmentReply struct {
	Replenishment domain.Replenishment `json:"replenishment"`
	Item          *domain.Item         `json:"item,omitempty"`
}

type GetItemRequest struct {
	ID string `json:"id"`
}

type ItemReply struct {
	Item domain.Item `json:"item"`
}

type StockLedgerServer interface {
	CreateOrder(context.Context, *CreateOrderRequest) (*OrderReply, error)
	ApproveOrder(context.Context, *ApproveOrderRequest) (*OrderReply, error)
	CreateReplenishment(context.Context, *CreateReplenishmentRequest) (*ReplenishmentReply, error)
	ApproveReplenishment(context.Context, *ReplenishmentIDRequest) (*ReplenishmentReply, error)
	MarkReplenishmentPaid(context.Context, *ReplenishmentIDRequest) (*ReplenishmentReply, error)
	GetItem(context.Context, *GetItemRequest) (*ItemReply, error)
}

func fullMethod(name string) string {
	return "/" + stockLedgerService + "/" + name
}

func unaryHandler[Req, Resp any](name string, call func(StockLedgerServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(StockLedgerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(StockLedgerServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var StockLedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: stockLedgerService,
	HandlerType: (*StockLedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateOrder", Handler: unaryHandler("CreateOrder", StockLedgerServer.CreateOrder)},
		{MethodName: "ApproveOrder", Handler: unaryHandler("ApproveOrder", StockLedgerServer.ApproveOrder)},
		{MethodName: "CreateReplenishment", Handler: unaryHandler("CreateReplenishment", StockLedgerServer.CreateReplenishment)},
		{MethodName: "ApproveReplenishment", Handler: unaryHandler("ApproveReplenishment", StockLedgerServer.ApproveReplenishment)},
		{MethodName: "MarkReplenishmentPaid", Handler: unaryHandler("MarkReplenishmentPaid", StockLedgerServer.MarkReplenishmentPaid)},
		{MethodName: "GetItem", Handler: unaryHandler("GetItem", StockLedgerServer.GetItem)},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterStockLedgerServer(s grpc.ServiceRegistrar, srv StockLedgerServer) {
	s.RegisterService(&StockLedgerServiceDesc, srv)
}

// StockLedgerClient calls the service with the JSON codec.
type StockLedgerClient struct {
	cc grpc.ClientConnInterface
}

func NewStockLedgerClient(cc grpc.ClientConnInterface) *StockLedgerClient {
	return &StockLedgerClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, name string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StockLedgerClient) CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*OrderReply, error) {
	return invoke[OrderReply](ctx, c.cc, "CreateOrder", in, opts)
}

func (c *StockLedgerClient) ApproveOrder(ctx context.Context, in *ApproveOrderRequest, opts ...grpc.CallOption) (*OrderReply, error) {
	return invoke[OrderReply](ctx, c.cc, "ApproveOrder", in, opts)
}

func (c *StockLedgerClient) CreateReplenishment(ctx context.Context, in *CreateReplenishmentRequest, opts ...grpc.CallOption) (*ReplenishmentReply, error) {
	return invoke[ReplenishmentReply](ctx, c.cc, "CreateReplenishment", in, opts)
}

func (c *StockLedgerClient) ApproveReplenishment(ctx context.Context, in *ReplenishmentIDRequest, opts ...grpc.CallOption) (*ReplenishmentReply, error) {
	return invoke[ReplenishmentReply](ctx, c.cc, "ApproveReplenishment", in, opts)
}

func (c *StockLedgerClient) MarkReplenishmentPaid(ctx context.Context, in *ReplenishmentIDRequest, opts ...grpc.CallOption) (*ReplenishmentReply, error) {
	return invoke[ReplenishmentReply](ctx, c.cc, "MarkReplenishmentPaid", in, opts)
}

func (c *StockLedgerClient) GetItem(ctx context.Context, in *GetItemRequest, opts ...grpc.CallOption) (*ItemReply, error) {
	return invoke[ItemReply](ctx, c.cc, "GetItem", in, opts)
}
