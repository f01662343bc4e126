package domain

import (
	"context"
	"errors"
)

type Service interface {
	// HandleDelivery verifies, resolves, and applies one raw webhook
	// delivery. Callers map ErrEventIgnored, ErrEventAlreadyProcessed, and
	// ErrIntegrityFault to an acknowledgement; anything else is retryable
	// by the sender.
	HandleDelivery(ctx context.Context, payload []byte, signatureHeader string) error
}

var (
	ErrInvalidSignature      = errors.New("verification_failed")
	ErrInvalidPayload        = errors.New("invalid_event_payload")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrIntegrityFault        = errors.New("integrity_fault")
)
