package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tinoosan/stealth/internal/data"
)

var (
	ErrScoreCtx    = errors.New("score missing in context")
	ErrContentType = errors.New("Content-Type must be application/json")
	ErrURLRequired = &data.ValidationError{Field: "url", Reason: "is required"}
)

type errorBody struct {
	Detail string `json:"detail"`
	Field  string `json:"field,omitempty"`
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) (int, errorBody) {
	var (
		ve *data.ValidationError
		fe *data.FetchError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, errorBody{Detail: ve.Error(), Field: ve.Field}
	case errors.Is(err, ErrContentType):
		return http.StatusUnsupportedMediaType, errorBody{Detail: err.Error()}
	case errors.Is(err, data.ErrRejected):
		return http.StatusBadRequest, errorBody{Detail: err.Error()}
	case errors.As(err, &fe) && fe.Inconsistent:
		return http.StatusInternalServerError, errorBody{Detail: fe.Error()}
	case errors.As(err, &fe):
		return http.StatusBadRequest, errorBody{Detail: fe.Error()}
	case errors.Is(err, data.ErrEngineUnavailable),
		errors.Is(err, data.ErrScratchUnavailable),
		errors.Is(err, data.ErrStorageUnavailable):
		return http.StatusInternalServerError, errorBody{Detail: err.Error()}
	default:
		return http.StatusInternalServerError, errorBody{Detail: "internal error"}
	}
}

// writeError marks err for the request log and writes the JSON error body.
func writeError(w http.ResponseWriter, err error) {
	markErr(w, err)
	status, body := statusFor(err)
	writeJSON(w, status, body)
}

// writeBadRequest reports a body that could not be decoded.
func writeBadRequest(w http.ResponseWriter, err error) {
	markErr(w, err)
	writeJSON(w, http.StatusBadRequest, errorBody{Detail: "invalid JSON: " + err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
