package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantity_String(t *testing.T) {
	assert.Equal(t, "12.5000", Quantity(125000).String())
	assert.Equal(t, "-3.0000", NewQuantity(-3).String())
	assert.Equal(t, "0.0001", Quantity(1).String())
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want Quantity
	}{
		{"10", NewQuantity(10)},
		{"1.25", Quantity(12500)},
		{"-0.5", Quantity(-5000)},
		{"0.123456", Quantity(1234)},
		{"1e2", NewQuantity(100)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuantity(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseQuantity("")
	assert.Error(t, err)
	_, err = ParseQuantity("abc")
	assert.Error(t, err)
}

func TestQuantity_JSON(t *testing.T) {
	var payload struct {
		A Quantity `json:"a"`
		B Quantity `json:"b"`
		C Quantity `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 7.5, "b": "2", "c": null}`), &payload))
	assert.Equal(t, Quantity(75000), payload.A)
	assert.Equal(t, NewQuantity(2), payload.B)
	assert.Zero(t, payload.C)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 7.5, "b": 2, "c": 0}`, string(out))
}

func TestQuantity_Cost(t *testing.T) {
	cost := NewQuantity(5).Cost(MustMoney("100"))
	assert.True(t, cost.Equal(MustMoney("500")), cost.String())

	frac := Quantity(2500).Cost(MustMoney("10.40"))
	assert.True(t, frac.Equal(MustMoney("2.6")), frac.String())
}

func TestMinQuantity(t *testing.T) {
	assert.Equal(t, NewQuantity(3), MinQuantity(NewQuantity(3), NewQuantity(4)))
	assert.Equal(t, NewQuantity(3), MinQuantity(NewQuantity(4), NewQuantity(3)))
}

func TestMoneyHelpers(t *testing.T) {
	assert.True(t, Zero().IsZero())

	_, err := ParseMoney("twelve")
	assert.Error(t, err)
}
