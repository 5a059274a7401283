package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// MsgMalformedJSON is the exact user-visible message for an unparseable
// request body. API clients branch on it, do not reword.
const MsgMalformedJSON = "无效的 JSON 请求体"

// ErrMalformedJSON is returned by DecodeJSON when the body is not valid JSON.
var ErrMalformedJSON = errors.New("malformed JSON request body")

// Validate is the shared validator instance. validator.Validate is
// concurrency-safe and caches struct metadata, so one instance serves all
// handlers.
var Validate = validator.New()

// DecodeJSON decodes the request body into v.
// Returns ErrMalformedJSON if the body cannot be parsed.
func DecodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return nil
}

// ValidateStruct validates v with the shared validator and reports only the
// FIRST failing field as a single message. The contract deliberately never
// aggregates violations into a list.
func ValidateStruct(v interface{}) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return fmt.Errorf("字段 %s 未通过 %s 校验", first.Field(), first.Tag())
	}

	return err
}

// DecodeAndValidate combines DecodeJSON and ValidateStruct, the common path
// of every create/update handler.
func DecodeAndValidate(r *http.Request, v interface{}) error {
	if err := DecodeJSON(r, v); err != nil {
		return err
	}
	return ValidateStruct(v)
}
