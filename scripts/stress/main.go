package main

// Параллельные Consume по одному плану через gRPC. Каждый запуск либо проходит целиком,
// либо получает Aborted (план занят) или FailedPrecondition (остатков уже нет), других кодов быть не должно.
// go run ./scripts/stress -plan <plan_id>

import (
	"context"
	"flag"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/ki3lbix/Kuchnia/internal/api"
)

var (
	successRequests  int64
	busyRequests     int64
	shortageRequests int64
	failedRequests   int64
)

func main() {
	grpcAddr := flag.String("addr", "localhost:9090", "gRPC address")
	planID := flag.String("plan", "", "plan id")
	workers := flag.Int("workers", 50, "concurrent Consume calls")
	flag.Parse()

	if *planID == "" {
		log.Fatal().Msg("❌ -plan обязателен")
	}

	conn, err := grpc.NewClient(*grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal().Err(err).Str("addr", *grpcAddr).Msg("❌ Не удалось подключиться к gRPC серверу")
	}
	defer conn.Close()
	client := api.NewInventoryServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := client.Reserve(ctx, *planID); err != nil {
		log.Fatal().Err(err).Msg("❌ Reserve перед тестом не прошел")
	}

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Consume(ctx, *planID)
			switch status.Code(err) {
			case codes.OK:
				atomic.AddInt64(&successRequests, 1)
			case codes.Aborted:
				atomic.AddInt64(&busyRequests, 1)
			case codes.FailedPrecondition:
				atomic.AddInt64(&shortageRequests, 1)
			default:
				atomic.AddInt64(&failedRequests, 1)
				log.Warn().Err(err).Msg("⚠️ unexpected Consume error")
			}
		}()
	}
	wg.Wait()

	log.Info().
		Int64("success", successRequests).
		Int64("busy", busyRequests).
		Int64("shortage", shortageRequests).
		Int64("failed", failedRequests).
		Dur("elapsed", time.Since(start)).
		Msg("📊 stress finished")

	if failedRequests > 0 {
		log.Error().Int64("failed", failedRequests).Msg("❌ есть ответы кроме OK/Aborted/FailedPrecondition")
	}
}
