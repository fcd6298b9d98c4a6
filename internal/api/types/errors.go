package types

import (
	"net/http"

	appErr "github.com/reelwork/marketplace/pkg/errors"
)

// InternalErrorMessage replaces the message of every 5xx response.
const InternalErrorMessage = "Internal server error"

// FromError maps err to a status and a client-safe body. Only AppErrors
// with a 4xx code expose their message.
func FromError(err error) (int, ErrorResponse) {
	ae, ok := appErr.As(err)
	if !ok {
		return http.StatusInternalServerError, ErrorResponse{Error: InternalErrorMessage}
	}
	status := appErr.HTTPStatus(ae.Code)
	if status >= http.StatusInternalServerError {
		switch status {
		case http.StatusServiceUnavailable:
			return status, ErrorResponse{Error: "Service unavailable"}
		case http.StatusGatewayTimeout:
			return status, ErrorResponse{Error: "Request timed out"}
		}
		return status, ErrorResponse{Error: InternalErrorMessage}
	}
	return status, ErrorResponse{Error: ae.Message}
}
