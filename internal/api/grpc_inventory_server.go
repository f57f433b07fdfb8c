package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const inventoryServiceName = "kuchnia.inventory.v1.InventoryService"

// InventoryServiceServer gRPC сервис распределения остатков.
// Запрос {"plan_id": "..."}, ответ повторяет JSON результата HTTP API
type InventoryServiceServer interface {
	Reserve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Consume(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterInventoryServiceServer регистрирует сервис на gRPC сервере
func RegisterInventoryServiceServer(s grpc.ServiceRegistrar, srv InventoryServiceServer) {
	s.RegisterService(&inventoryServiceDesc, srv)
}

var inventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: inventoryServiceName,
	HandlerType: (*InventoryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Reserve", Handler: unaryHandler("Reserve", InventoryServiceServer.Reserve)},
		{MethodName: "Consume", Handler: unaryHandler("Consume", InventoryServiceServer.Consume)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kuchnia/inventory/v1/inventory.proto",
}

type unaryMethod func(InventoryServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, method unaryMethod) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + inventoryServiceName + "/" + name
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return method(srv.(InventoryServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return method(srv.(InventoryServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// InventoryServiceClient клиент для того же сервиса
type InventoryServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewInventoryServiceClient создает клиента поверх соединения
func NewInventoryServiceClient(cc grpc.ClientConnInterface) *InventoryServiceClient {
	return &InventoryServiceClient{cc: cc}
}

// Reserve вызывает InventoryService/Reserve
func (c *InventoryServiceClient) Reserve(ctx context.Context, planID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Reserve", planID, opts...)
}

// Consume вызывает InventoryService/Consume
func (c *InventoryServiceClient) Consume(ctx context.Context, planID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Consume", planID, opts...)
}

func (c *InventoryServiceClient) invoke(ctx context.Context, method, planID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]interface{}{"plan_id": planID})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+inventoryServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// InventoryGRPCServer реализация InventoryServiceServer поверх движка
type InventoryGRPCServer struct {
	engine InventoryEngine
	guard  *PlanGuard
}

// NewInventoryGRPCServer создает gRPC сервер. guard может быть nil
func NewInventoryGRPCServer(engine InventoryEngine, guard *PlanGuard) *InventoryGRPCServer {
	return &InventoryGRPCServer{engine: engine, guard: guard}
}

func (s *InventoryGRPCServer) Reserve(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	planID, err := planIDFromStruct(req)
	if err != nil {
		return nil, err
	}
	var result interface{}
	err = s.guard.Run(ctx, planID, func(ctx context.Context) error {
		res, err := s.engine.Reserve(ctx, planID)
		result = res
		return err
	})
	if err != nil {
		return nil, grpcStatusFor(err)
	}
	return toStruct(result)
}

func (s *InventoryGRPCServer) Consume(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	planID, err := planIDFromStruct(req)
	if err != nil {
		return nil, err
	}
	var result interface{}
	err = s.guard.Run(ctx, planID, func(ctx context.Context) error {
		res, err := s.engine.Consume(ctx, planID)
		result = res
		return err
	})
	if err != nil {
		return nil, grpcStatusFor(err)
	}
	return toStruct(result)
}

func planIDFromStruct(req *structpb.Struct) (string, error) {
	planID := req.GetFields()["plan_id"].GetStringValue()
	if _, err := uuid.Parse(planID); err != nil {
		return "", status.Errorf(codes.InvalidArgument, "invalid plan_id %q", planID)
	}
	return planID, nil
}

// toStruct переводит результат через JSON, decimal остаются строками
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("build response: %v", err))
	}
	return out, nil
}

// LoggingInterceptor пишет метод, код ответа и длительность каждого вызова
func LoggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	event := log.Info()
	if err != nil {
		event = log.Warn().Err(err)
	}
	event.Str("method", info.FullMethod).
		Str("code", status.Code(err).String()).
		Dur("latency", time.Since(start)).
		Msg("📡 gRPC call")
	return resp, err
}
