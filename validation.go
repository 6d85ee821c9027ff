package auth

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	MaxLoginLength        = 128
	MinPasswordLength     = 8
	MaxPasswordLength     = 128
	MaxClaimTypeLength    = 128
	MaxClaimValueLength   = 512
	MaxRefreshTokenLength = 1024
)

var loginRules = []validation.Rule{validation.Required, validation.Length(1, MaxLoginLength)}
var passwordRules = []validation.Rule{validation.Required, validation.Length(MinPasswordLength, MaxPasswordLength)}

func claimRules(c *Claim) []*validation.FieldRules {
	return []*validation.FieldRules{
		validation.Field(&c.Type, validation.Required, validation.Length(1, MaxClaimTypeLength)),
		validation.Field(&c.Value, validation.Length(0, MaxClaimValueLength)),
	}
}

// Validate implements validation.Validatable.
func (c Claim) Validate() error {
	return validation.ValidateStruct(&c, claimRules(&c)...)
}

// asValidationError converts ozzo-validation failures into ErrValidation
// carrying the per field messages.
func asValidationError(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return withMetadata(ErrValidation, map[string]any{"reason": err.Error()})
	}

	fields := make(map[string]any, len(fieldErrs))
	for field, fieldErr := range fieldErrs {
		if fieldErr != nil {
			fields[field] = fieldErr.Error()
		}
	}

	return withMetadata(ErrValidation, map[string]any{"fields": fields})
}
