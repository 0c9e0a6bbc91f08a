package processor

import (
	"regexp"
	"strings"

	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

// Field names of a reading payload
const (
	FieldPresence  = "presenca"
	FieldAccess    = "acesso"
	FieldUIDTag    = "uid_tag"
	FieldTimestamp = "timestamp"
)

// RequiredFields lists the payload keys a reading must carry, in the order
// they are checked.
var RequiredFields = []string{FieldPresence, FieldAccess, FieldUIDTag}

// Client facing validation messages
const (
	MsgMissingField = "Campo obrigatório ausente: "
	MsgInvalidUID   = "UID inválido"
)

// ReadingValidator checks raw reading payloads before they are sanitized
type ReadingValidator struct {
	required []string
	uidRegex *regexp.Regexp
}

// NewReadingValidator creates a validator for the given required fields. A nil
// slice uses RequiredFields.
func NewReadingValidator(required []string) *ReadingValidator {
	if required == nil {
		required = RequiredFields
	}
	return &ReadingValidator{
		required: required,
		uidRegex: regexp.MustCompile(`^[A-Fa-f0-9 ]{8,}$`),
	}
}

// Validate returns a MISSING_FIELD error for the first absent required key,
// or an INVALID_UID error when the trimmed uid_tag is not at least eight hex
// digits or spaces. A key holding null counts as present.
func (v *ReadingValidator) Validate(body map[string]interface{}) error {
	for _, field := range v.required {
		if _, ok := body[field]; !ok {
			return utils.NewAppError(utils.ErrCodeMissingField, MsgMissingField+field, field)
		}
	}

	uid := strings.TrimSpace(stringForm(body[FieldUIDTag]))
	if !v.uidRegex.MatchString(uid) {
		return utils.NewAppError(utils.ErrCodeInvalidUID, MsgInvalidUID, uid)
	}

	return nil
}
