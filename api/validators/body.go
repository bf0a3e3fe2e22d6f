package validators

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/lamnguyendev/keymart-backend/pkg/errors"
)

var validate = validator.New()

// DecodeJSONBody parses and validates a request body. Unknown fields are
// rejected so typos surface instead of silently dropping.
func DecodeJSONBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(errors.CodeValidation, err, "malformed request body")
	}

	if err := validate.Struct(dst); err != nil {
		fields := map[string]string{}
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		return errors.New(errors.CodeValidation, "request validation failed").
			WithDetails(fields)
	}
	return nil
}
