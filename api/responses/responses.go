package responses

import (
	"encoding/json"
	"net/http"

	"github.com/lamnguyendev/keymart-backend/pkg/errors"
	"github.com/lamnguyendev/keymart-backend/pkg/logger"
	"github.com/lamnguyendev/keymart-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

func WriteSuccessMeta(w http.ResponseWriter, status int, data, meta any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data, Meta: meta})
}

// WriteError maps a coded error to its HTTP status and public shape.
// Internal detail never leaves the process; it is logged instead.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	typed := errors.As(err)
	if typed == nil {
		typed = errors.Wrap(errors.CodeInternal, err, "unexpected error")
	}

	meta := errors.MetadataFor(typed.Code())

	if meta.HTTPStatus >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).
			WithField("dump", errors.Dump(err)).
			Error(err, "request failed")
	}

	apiErr := types.APIError{
		Code:    string(typed.Code()),
		Message: meta.PublicMessage,
	}
	if meta.DetailsAllowed {
		apiErr.Message = typed.Message()
		apiErr.Details = typed.Details()
	}

	writeJSON(w, meta.HTTPStatus, types.ErrorEnvelope{Error: apiErr})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
