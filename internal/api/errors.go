package api

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ki3lbix/Kuchnia/internal/services"
)

// httpStatusFor сопоставляет ошибки сервисов с HTTP кодами
func httpStatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrPlanNotFound), errors.Is(err, services.ErrRecipeNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInsufficientStock), errors.Is(err, services.ErrPlanBusy):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidPortions), errors.Is(err, services.ErrEmptyReceipt):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// grpcStatusFor то же самое для gRPC
func grpcStatusFor(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, services.ErrPlanNotFound):
		code = codes.NotFound
	case errors.Is(err, services.ErrInsufficientStock):
		code = codes.FailedPrecondition
	case errors.Is(err, services.ErrPlanBusy):
		code = codes.Aborted
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
