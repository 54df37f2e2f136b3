package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    Price
		wantErr bool
	}{
		{in: "0", want: 0},
		{in: "12", want: 1200},
		{in: "12.5", want: 1250},
		{in: " 12.05 ", want: 1205},
		{in: "99999999.99", want: MaxPrice},
		{in: "100000000", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "1.234", wantErr: true},
		{in: "1.", wantErr: true},
		{in: ".5", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPrice)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriceScanAndJSON(t *testing.T) {
	var p Price
	require.NoError(t, p.Scan([]byte("19.90")))
	assert.Equal(t, Price(1990), p)
	assert.Equal(t, "19.90", p.String())

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `"19.90"`, string(data))

	var decoded Price
	require.NoError(t, json.Unmarshal([]byte(`"7.5"`), &decoded))
	assert.Equal(t, Price(750), decoded)

	assert.Error(t, p.Scan(true))
}
