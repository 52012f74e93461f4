// Package service exposes the pricing console's HTTP-facing operations and
// maps domain errors to transport errors.
package service

import (
	"errors"
	"net/http"

	"RatePilot/internal/biz"

	kratoserrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(
	NewPricingService,
	NewSyncService,
)

// toTransportError converts a domain error into a Kratos error carrying the
// right HTTP status and the operator-facing message. Internal detail stays in
// the logs and the sync history record.
func toTransportError(err error) error {
	if err == nil {
		return nil
	}

	var ke *kratoserrors.Error
	if errors.As(err, &ke) {
		return err
	}

	classified := biz.Classify(err)
	switch classified.Type {
	case biz.ErrorTypeValidation:
		return kratoserrors.New(http.StatusBadRequest, "VALIDATION", classified.Message)
	case biz.ErrorTypeAuth:
		return kratoserrors.New(http.StatusBadGateway, "CHANNEL_AUTH", classified.UserMessage())
	case biz.ErrorTypeCircuitOpen:
		return kratoserrors.New(http.StatusServiceUnavailable, "CIRCUIT_OPEN", classified.UserMessage())
	case biz.ErrorTypeTimeout, biz.ErrorTypeNetwork:
		return kratoserrors.New(http.StatusServiceUnavailable, "CHANNEL_UNAVAILABLE", classified.UserMessage())
	case biz.ErrorTypeAPI:
		return kratoserrors.New(http.StatusBadGateway, "CHANNEL_REJECTED", classified.UserMessage())
	default:
		return kratoserrors.New(http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
