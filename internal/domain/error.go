package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")

	// Webhook pipeline errors
	ErrMalformedPayload     = errors.New("payload is not parseable JSON")
	ErrNoChargeIdentifier   = errors.New("payload lacks a usable charge id")
	ErrGatewayVerification  = errors.New("authoritative gateway verification failed")
	ErrSubscriptionNotFound = errors.New("no subscription matches the charge")
	ErrMetadataMismatch     = errors.New("charge metadata contradicts subscription on file")
)
