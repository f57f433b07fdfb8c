package api

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/ki3lbix/Kuchnia/internal/services"
)

func startGRPC(t *testing.T, engine InventoryEngine, guard *PlanGuard) *InventoryServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor))
	RegisterInventoryServiceServer(srv, NewInventoryGRPCServer(engine, guard))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewInventoryServiceClient(conn)
}

func TestGRPCReserve(t *testing.T) {
	client := startGRPC(t, &fakeEngine{}, nil)

	out, err := client.Reserve(context.Background(), testPlanID)
	require.NoError(t, err)

	fields := out.AsMap()
	assert.Equal(t, testPlanID, fields["plan_id"])
	reserved := fields["reserved"].([]interface{})
	require.Len(t, reserved, 1)
	assert.Equal(t, "1.5", reserved[0].(map[string]interface{})["qty"])
}

func TestGRPCConsume(t *testing.T) {
	client := startGRPC(t, &fakeEngine{}, nil)

	out, err := client.Consume(context.Background(), testPlanID)
	require.NoError(t, err)

	txns := out.AsMap()["transactions"].([]interface{})
	require.Len(t, txns, 2)
	assert.Equal(t, "b1", txns[0].(map[string]interface{})["batch_id"])
}

func TestGRPCStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"not found", services.ErrPlanNotFound, codes.NotFound},
		{"shortage", &services.InsufficientStockError{ProductID: testProductID}, codes.FailedPrecondition},
		{"busy", services.ErrPlanBusy, codes.Aborted},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := startGRPC(t, &fakeEngine{consumeErr: tc.err}, nil)

			_, err := client.Consume(context.Background(), testPlanID)

			assert.Equal(t, tc.code, status.Code(err))
		})
	}
}

func TestGRPCInvalidPlanID(t *testing.T) {
	engine := &fakeEngine{}
	client := startGRPC(t, engine, nil)

	_, err := client.Reserve(context.Background(), "nope")

	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Empty(t, engine.calls)
}

func TestGRPCPlanLocked(t *testing.T) {
	locker := newFakeLocker()
	locker.held["kuchnia:plan-lock:"+testPlanID] = "someone-else"
	client := startGRPC(t, &fakeEngine{}, NewPlanGuard(locker, 0))

	_, err := client.Reserve(context.Background(), testPlanID)

	assert.Equal(t, codes.Aborted, status.Code(err))
}
