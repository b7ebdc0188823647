package mongodb

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrConnectFailed    = errors.New("failed to connect to database")
	ErrPingFailed       = errors.New("failed to ping database")
	ErrDisconnectFailed = errors.New("failed to disconnect from database")
	ErrUnknownField     = errors.New("unknown entity field")
	ErrImmutableField   = errors.New("field cannot be modified")
	ErrInvalidID        = errors.New("invalid id")
	ErrIDGeneration     = errors.New("cannot generate id")
	ErrInvalidMapping   = errors.New("invalid id mapping")
	ErrMappingConflict  = errors.New("conflicting id mapping")
	ErrValidation       = errors.New("entity validation failed")
)

// BulkFailure describes one rejected operation of a batch write.
type BulkFailure struct {
	Index   int
	Code    int
	Message string
}

// BulkFailures lists the failed operations carried by err, in batch order.
// It returns nil when err is not a batch write error.
func BulkFailures(err error) []BulkFailure {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return nil
	}

	failures := make([]BulkFailure, 0, len(bwe.WriteErrors))
	for _, we := range bwe.WriteErrors {
		failures = append(failures, BulkFailure{
			Index:   we.Index,
			Code:    we.Code,
			Message: we.Message,
		})
	}
	return failures
}

// IsDuplicateKey reports whether err was caused by a unique index violation.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
