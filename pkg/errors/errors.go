package errors

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Scan pipeline errors.
var (
	// ErrEmptyFile is returned when a scan request carries no bytes.
	ErrEmptyFile = errors.New("file is empty")
	// ErrFileTooLarge is returned when a file exceeds the scan size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrCredentialMissing is returned when the reputation service credential is not configured.
	ErrCredentialMissing = errors.New("reputation credential not configured")
	// ErrScanTimeout is returned when the reputation analysis poll budget is exhausted.
	ErrScanTimeout = errors.New("reputation scan timed out")
	// ErrScanAborted is returned when a scan is cancelled before completion.
	ErrScanAborted = errors.New("scan aborted")
	// ErrUnsupportedFormat is returned when metadata sanitization does not support the container format.
	ErrUnsupportedFormat = errors.New("unsupported container format")
	// ErrMalformedSegments is returned when an image segment table cannot be walked safely.
	ErrMalformedSegments = errors.New("malformed segment table")
)

// Review queue errors.
var (
	// ErrReviewNotFound is returned when a review record cannot be found.
	ErrReviewNotFound = errors.New("review record not found")
	// ErrReviewResolved is returned when acting on an already-resolved review record.
	ErrReviewResolved = errors.New("review record already resolved")
)

// New creates a new error with the given message.
func New(msg string) error {
	return errors.New(msg)
}

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.New(msg + ": " + err.Error())
}

// LogWithError logs the error with context and returns a wrapped error. Use this for standardized error logging across services.
func LogWithError(ctx context.Context, log *zap.Logger, msg string, err error, fields ...zap.Field) error {
	if log != nil {
		if ctx != nil {
			if reqID, ok := ctx.Value("request_id").(string); ok && reqID != "" {
				fields = append(fields, zap.String("request_id", reqID))
			}
		}
		log.Error(msg, append(fields, zap.Error(err))...)
	}
	return Wrap(err, msg)
}
