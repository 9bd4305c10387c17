package app

import (
	"context"
	"errors"
	"net"
)

// Sentinel errors surfaced to the HTTP layer.
var (
	// ErrNoCredential means the provider API key env var is unset.
	ErrNoCredential = errors.New("model API key is not configured")

	// ErrEmptyMessage means the request carried no usable user message.
	ErrEmptyMessage = errors.New("message required")
)

// Error classes attached to chat failure logs.
const (
	ErrorClassConfiguration = "configuration"
	ErrorClassNetwork       = "network"
	ErrorClassModel         = "model"
	ErrorClassTool          = "tool"
)

// Classify buckets an error for logging. Tool failures never reach here;
// they are values fed back to the model.
func Classify(err error) string {
	var netErr net.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoCredential):
		return ErrorClassConfiguration
	case errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return ErrorClassNetwork
	default:
		return ErrorClassModel
	}
}
