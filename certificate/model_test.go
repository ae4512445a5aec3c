package certificate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFields(t *testing.T) {
	data := []byte(`[
		{"key":"name","x":421,"y":250.5,"fontFamily":"Times Roman","fontSize":36,"bold":true,"color":"#aa0000"},
		{"key":"event","x":421,"y":320,"active":false},
		{"key":"footer","x":100,"y":560,"label":"Panitia","unknown":"ignored"}
	]`)
	fields, err := DecodeFields(data)
	require.NoError(t, err)
	require.Len(t, fields, 3)

	assert.Equal(t, KeyName, fields[0].Key)
	assert.Equal(t, 250.5, fields[0].Y)
	assert.Equal(t, FamilyTimes, fields[0].FontFamily)
	assert.Equal(t, "#aa0000", fields[0].Color)
	assert.True(t, fields[0].IsActive())
	assert.False(t, fields[1].IsActive())
	assert.Equal(t, float64(DefaultFontSize), fields[1].EffectiveFontSize())
	assert.Equal(t, "Panitia", fields[2].Label)
}

func TestDecodeFieldsRejectsMalformedInput(t *testing.T) {
	cases := map[string]struct {
		data  string
		index int
	}{
		"object instead of array": {`{"key":"name"}`, -1},
		"not json":                {`fields`, -1},
		"null list":               {` null `, -1},
		"string position":         {`[{"key":"name","x":"421","y":10}]`, 0},
		"missing y":               {`[{"key":"name","x":1},{"key":"event","x":1}]`, 0},
		"null x in second field":  {`[{"key":"name","x":1,"y":1},{"key":"event","x":null,"y":1}]`, 1},
		"scalar element":          {`[{"key":"name","x":1,"y":1},7]`, 1},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeFields([]byte(tc.data))
			var formatErr *TemplateFieldFormatError
			require.ErrorAs(t, err, &formatErr)
			assert.Equal(t, tc.index, formatErr.Index)
		})
	}
}

func TestEncodeFieldsKeepsDesignerAttributes(t *testing.T) {
	data, err := EncodeFields([]FieldSpec{{Key: KeyDate, X: 10, Y: 20, Active: active(false), Color: "#123456"}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"key":"date","active":false,"x":10,"y":20,"color":"#123456"}]`, string(data))

	styled, err := EncodeFields([]FieldSpec{{Key: KeyName, X: 1, Y: 2, FontSize: 30, Bold: true}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"key":"name","x":1,"y":2,"fontSize":30,"bold":true}]`, string(styled))

	empty, err := EncodeFields(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}
