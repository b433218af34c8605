package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/kitchen-ledger/internal/core/domain"
	"github.com/rl1809/kitchen-ledger/internal/core/service"
)

const (
	inventoryServiceName   = "kitchenledger.Inventory"
	recordIntentMethod     = "/" + inventoryServiceName + "/RecordIntent"
	currentSnapshotMethod  = "/" + inventoryServiceName + "/CurrentSnapshot"
	idempotencyMetadataKey = "idempotency-key"
)

type RecordIntentRequest struct {
	Intent domain.Intent `json:"intent"`
}

type RecordIntentResponse struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
	Snapshot    *domain.Snapshot    `json:"snapshot,omitempty"`
}

type SnapshotRequest struct{}

type SnapshotResponse struct {
	Snapshot domain.Snapshot `json:"snapshot"`
}

// InventoryServer is the gRPC surface over InventoryService.
type InventoryServer interface {
	RecordIntent(ctx context.Context, req *RecordIntentRequest) (*RecordIntentResponse, error)
	CurrentSnapshot(ctx context.Context, req *SnapshotRequest) (*SnapshotResponse, error)
}

type GRPCHandler struct {
	inventory *service.InventoryService
}

func NewGRPCHandler(inventory *service.InventoryService) *GRPCHandler {
	return &GRPCHandler{inventory: inventory}
}

func RegisterInventoryServer(s grpc.ServiceRegistrar, srv InventoryServer) {
	s.RegisterService(&inventoryServiceDesc, srv)
}

// RecordIntent reports business rejections in the response body and uses
// status codes only for ledger failures.
func (h *GRPCHandler) RecordIntent(ctx context.Context, req *RecordIntentRequest) (*RecordIntentResponse, error) {
	var requestID string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(idempotencyMetadataKey); len(values) > 0 {
			requestID = values[0]
		}
	}

	tx, snap, err := h.inventory.RecordIntent(ctx, requestID, req.Intent)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrParseRejected), errors.Is(err, service.ErrUnitConflict):
			return &RecordIntentResponse{Success: false, Message: err.Error()}, nil
		case errors.Is(err, service.ErrDuplicateRequest):
			return &RecordIntentResponse{Success: false, Message: "duplicate request"}, nil
		case errors.Is(err, service.ErrPersistence):
			return nil, status.Error(codes.Unavailable, "ledger unavailable")
		default:
			return nil, status.Error(codes.Internal, "internal error")
		}
	}

	return &RecordIntentResponse{
		Success:     true,
		Message:     "event recorded",
		Transaction: &tx,
		Snapshot:    &snap,
	}, nil
}

func (h *GRPCHandler) CurrentSnapshot(ctx context.Context, _ *SnapshotRequest) (*SnapshotResponse, error) {
	snap, err := h.inventory.CurrentSnapshot(ctx)
	if err != nil {
		return nil, status.Error(codes.Unavailable, "ledger unavailable")
	}
	return &SnapshotResponse{Snapshot: snap}, nil
}

func recordIntentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RecordIntentRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).RecordIntent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: recordIntentMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServer).RecordIntent(ctx, req.(*RecordIntentRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func currentSnapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SnapshotRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).CurrentSnapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: currentSnapshotMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServer).CurrentSnapshot(ctx, req.(*SnapshotRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var inventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: inventoryServiceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RecordIntent", Handler: recordIntentHandler},
		{MethodName: "CurrentSnapshot", Handler: currentSnapshotHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kitchenledger/inventory",
}

// InventoryClient is a thin client for the JSON-encoded inventory service.
type InventoryClient struct {
	conn grpc.ClientConnInterface
}

func NewInventoryClient(conn grpc.ClientConnInterface) *InventoryClient {
	return &InventoryClient{conn: conn}
}

func (c *InventoryClient) RecordIntent(ctx context.Context, requestID string, intent domain.Intent) (*RecordIntentResponse, error) {
	if requestID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, idempotencyMetadataKey, requestID)
	}
	out := new(RecordIntentResponse)
	err := c.conn.Invoke(ctx, recordIntentMethod, &RecordIntentRequest{Intent: intent}, out, grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InventoryClient) CurrentSnapshot(ctx context.Context) (*SnapshotResponse, error) {
	out := new(SnapshotResponse)
	err := c.conn.Invoke(ctx, currentSnapshotMethod, &SnapshotRequest{}, out, grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		return nil, err
	}
	return out, nil
}
