package nagad

import (
	"encoding/json"
	"errors"
	"net/http"
)

func writeServiceError(w http.ResponseWriter, err error) {
	var typed *Error
	if errors.As(err, &typed) {
		writeJSONError(w, typed)
		return
	}
	writeJSONError(w, newError("internal_error", "internal server error", WithCause(err)))
}

func writeJSONError(w http.ResponseWriter, payload *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(payload))
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// httpStatus maps an error type onto the status returned by inbound handlers.
func httpStatus(err *Error) int {
	switch err.Type {
	case ValidationError:
		return http.StatusBadRequest
	case TransportTimeoutError:
		return http.StatusGatewayTimeout
	case TransportError, ProtocolError, InitializationFailedError, CheckoutFailedError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
