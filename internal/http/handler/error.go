package handler

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"

	"docsync/internal/http/middleware"
	"docsync/internal/service"
	"docsync/internal/store"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// serviceError translates service-level errors into the standardized error
// response. Unknown errors become a 500 without leaking internals.
func serviceError(c *fiber.Ctx, err error) error {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", verrs.Error())
	}

	switch {
	case errors.Is(err, service.ErrIdentifierRequired):
		return writeError(c, fiber.StatusBadRequest, "IDENTIFIER_REQUIRED", "identifier is required")
	case errors.Is(err, service.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	case errors.Is(err, service.ErrDocumentExists):
		return writeError(c, fiber.StatusConflict, "DUPLICATE_IDENTIFIER", "document identifier is not unique")
	case errors.Is(err, service.ErrDocumentLocked):
		return writeError(c, fiber.StatusConflict, "DOCUMENT_LOCKED", "document is already checked out")
	case errors.Is(err, service.ErrDocumentConflict), errors.Is(err, store.ErrConflict):
		return writeError(c, fiber.StatusConflict, "UPDATE_CONFLICT", "document update conflict")
	case errors.Is(err, service.ErrSyncConflict):
		return writeError(c, fiber.StatusConflict, "SYNC_IN_PROGRESS", "another reconciliation run is in progress")
	case errors.Is(err, service.ErrSyncConfig):
		return writeError(c, fiber.StatusBadGateway, "STORE_UNAVAILABLE", "content store is unavailable")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
