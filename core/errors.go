package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ServiceErrorBadInput          = "LEDGERFLOW_BAD_INPUT"
	ServiceErrorNotFound          = "LEDGERFLOW_NOT_FOUND"
	ServiceErrorUnauthorized      = "LEDGERFLOW_UNAUTHORIZED"
	ServiceErrorForbidden         = "LEDGERFLOW_FORBIDDEN"
	ServiceErrorConflict          = "LEDGERFLOW_CONFLICT"
	ServiceErrorRateLimited       = "LEDGERFLOW_RATE_LIMITED"
	ServiceErrorOperationFailed   = "LEDGERFLOW_OPERATION_FAILED"
	ServiceErrorExternalFailure   = "LEDGERFLOW_EXTERNAL_FAILURE"
	ServiceErrorAmountOverflow    = "LEDGERFLOW_AMOUNT_OVERFLOW"
	ServiceErrorUnsupportedToken  = "LEDGERFLOW_UNSUPPORTED_TOKEN"
	ServiceErrorTransferFailed    = "LEDGERFLOW_TRANSFER_FAILED"
	ServiceErrorRetryQueueMissing = "LEDGERFLOW_RETRY_QUEUE_UNAVAILABLE"
	ServiceErrorInternal          = "LEDGERFLOW_INTERNAL_ERROR"
)

var ErrRetryQueueUnavailable = errors.New("core: retry queue is not configured")

func serviceErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureServiceErrorEnvelope(richErr)
	}

	var failed *FailedTransaction
	switch {
	case errors.As(err, &failed):
		return newServiceError(err.Error(), goerrors.CategoryExternal, ServiceErrorTransferFailed)
	case errors.Is(err, ErrAmountOverflow):
		return newServiceError(err.Error(), goerrors.CategoryBadInput, ServiceErrorAmountOverflow)
	case errors.Is(err, ErrUnsupportedProtocol):
		return newServiceError(err.Error(), goerrors.CategoryOperation, ServiceErrorUnsupportedToken)
	case errors.Is(err, ErrRetryQueueUnavailable):
		return newServiceError(err.Error(), goerrors.CategoryInternal, ServiceErrorRetryQueueMissing)
	case errors.Is(err, ErrCreatedAtTimeRequired), errors.Is(err, ErrInvalidPrincipal):
		return newServiceError(err.Error(), goerrors.CategoryBadInput, ServiceErrorBadInput)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"):
		return newServiceError(err.Error(), goerrors.CategoryNotFound, ServiceErrorNotFound)
	case strings.Contains(msg, "throttl"), strings.Contains(msg, "rate limit"):
		return newServiceError(err.Error(), goerrors.CategoryRateLimit, ServiceErrorRateLimited)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newServiceError(err.Error(), goerrors.CategoryBadInput, ServiceErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureServiceErrorEnvelope(mapped)
}

func newServiceError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureServiceErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureServiceErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = serviceHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultServiceTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultServiceTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ServiceErrorBadInput
	case goerrors.CategoryNotFound:
		return ServiceErrorNotFound
	case goerrors.CategoryAuth:
		return ServiceErrorUnauthorized
	case goerrors.CategoryAuthz:
		return ServiceErrorForbidden
	case goerrors.CategoryConflict:
		return ServiceErrorConflict
	case goerrors.CategoryRateLimit:
		return ServiceErrorRateLimited
	case goerrors.CategoryOperation:
		return ServiceErrorOperationFailed
	case goerrors.CategoryExternal:
		return ServiceErrorExternalFailure
	default:
		return ServiceErrorInternal
	}
}

func serviceHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
