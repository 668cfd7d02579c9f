package ids

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNorm(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want ID
	}{
		{"string", "2", ID("2")},
		{"int", 2, ID("2")},
		{"int64", int64(42), ID("42")},
		{"whole float", float64(2), ID("2")},
		{"fractional float", 2.5, ID("2.5")},
		{"json number", json.Number("7"), ID("7")},
		{"already canonical", ID("abc"), ID("abc")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Norm(tt.in))
		})
	}
}

func TestEqualAcrossTypes(t *testing.T) {
	assert.True(t, Equal("2", 2))
	assert.True(t, Equal(float64(2), "2"))
	assert.True(t, Equal(json.Number("2"), ID("2")))
	assert.False(t, Equal("2", 3))
}

func TestUnmarshalJSON(t *testing.T) {
	var payload struct {
		DoctorID ID `json:"doctor_id"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"doctor_id":"2"}`), &payload))
	assert.Equal(t, ID("2"), payload.DoctorID)

	require.NoError(t, json.Unmarshal([]byte(`{"doctor_id":2}`), &payload))
	assert.Equal(t, ID("2"), payload.DoctorID)

	assert.Error(t, json.Unmarshal([]byte(`{"doctor_id":[1]}`), &payload))
}

func TestNewIsUnique(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsZero())
}
