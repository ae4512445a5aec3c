package nullable

import (
	"testing"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Email    String `json:"email"`
	Template Int    `json:"template"`
	At       Time   `json:"at"`
}

func TestJSONNulls(t *testing.T) {
	data, err := json.Marshal(row{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":null,"template":null,"at":null}`, string(data))

	at := time.Date(2024, 8, 17, 9, 0, 0, 0, time.UTC)
	data, err = json.Marshal(row{Email: StringOf("a@b.c"), Template: IntOf(3), At: TimeOf(at)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"a@b.c","template":3,"at":"2024-08-17T09:00:00Z"}`, string(data))

	var back row
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "a@b.c", back.Email.ForceValue())
	assert.Equal(t, int64(3), back.Template.ForceValue())
	assert.True(t, at.Equal(back.At.ForceValue()))

	require.NoError(t, json.Unmarshal([]byte(`{"email":null,"template":null,"at":null}`), &back))
	assert.True(t, back.Email.IsNil())
	assert.True(t, back.Template.IsNil())
	assert.True(t, back.At.ForceValue().IsZero())
}

func TestScan(t *testing.T) {
	var s String
	require.NoError(t, s.Scan(nil))
	assert.True(t, s.IsNil())
	require.NoError(t, s.Scan("Jakarta"))
	assert.Equal(t, "Jakarta", s.ForceValue())

	var n Int
	require.NoError(t, n.Scan(int64(7)))
	assert.Equal(t, Of[int64](7), n)
}
