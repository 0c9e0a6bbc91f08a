package processor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/iot-leituras-api/pkg/utils"
)

func TestValidate_MissingFieldsInOrder(t *testing.T) {
	v := NewReadingValidator(nil)

	cases := []struct {
		name string
		body map[string]interface{}
		want string
	}{
		{"all missing", map[string]interface{}{"foo": 1}, "Campo obrigatório ausente: presenca"},
		{"missing acesso and uid", map[string]interface{}{"presenca": "1"}, "Campo obrigatório ausente: acesso"},
		{"missing uid_tag", map[string]interface{}{"presenca": "1", "acesso": "true"}, "Campo obrigatório ausente: uid_tag"},
		{"missing presenca only", map[string]interface{}{"acesso": "true", "uid_tag": "AB12CD34"}, "Campo obrigatório ausente: presenca"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.body)
			require.Error(t, err)
			assert.True(t, utils.HasCode(err, utils.ErrCodeMissingField))

			var appErr *utils.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tc.want, appErr.Message)
		})
	}
}

func TestValidate_NullCountsAsPresent(t *testing.T) {
	v := NewReadingValidator(nil)

	err := v.Validate(map[string]interface{}{"presenca": nil, "acesso": nil, "uid_tag": "AB12CD34"})
	assert.NoError(t, err)
}

func TestValidate_UIDFormat(t *testing.T) {
	v := NewReadingValidator(nil)

	valid := []interface{}{
		"AB12 34CD",
		"abcdef01",
		"  0123456789abcdef  ",
		json.Number("12345678"),
	}
	invalid := []interface{}{
		"",
		"ABC123",
		"XYZ12345",
		"AB12-34CD",
		"0x12345678",
		"        ab",
		nil,
		true,
	}

	for _, uid := range valid {
		body := map[string]interface{}{"presenca": "1", "acesso": "true", "uid_tag": uid}
		assert.NoError(t, v.Validate(body), "uid %v", uid)
	}

	for _, uid := range invalid {
		body := map[string]interface{}{"presenca": "1", "acesso": "true", "uid_tag": uid}
		err := v.Validate(body)
		require.Error(t, err, "uid %v", uid)
		assert.True(t, utils.HasCode(err, utils.ErrCodeInvalidUID))

		var appErr *utils.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, MsgInvalidUID, appErr.Message)
	}
}
