package parse

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoney(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"$50B", 50e9, true},
		{"$1.2B", 1.2e9, true},
		{"$3.5M", 3.5e6, true},
		{"40k", 40e3, true},
		{"1,200,000", 1.2e6, true},
		{"$25,000,000", 25e6, true},
		{"USD 10M", 10e6, true},
		{" 7 ", 7, true},
		{"", 0, false},
		{"$", 0, false},
		{"n/a", 0, false},
		{"12X", 0, false},
		{"NaN", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Money(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-6)
			}
		})
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"7:1", 7, true},
		{"15:2", 7.5, true},
		{" 3 : 1 ", 3, true},
		{"12", 12, true},
		{"3:0", 0, false},
		{"a:1", 0, false},
		{"1:b", 0, false},
		{"high", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Ratio(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestPercent(t *testing.T) {
	v, ok := Percent("41.5%")
	assert.True(t, ok)
	assert.Equal(t, 41.5, v)

	v, ok = Percent("50")
	assert.True(t, ok)
	assert.Equal(t, 50.0, v)

	_, ok = Percent("fast")
	assert.False(t, ok)
}

func TestYear(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"2021", 2021, true},
		{"2019-20", 2019, true},
		{"2019-2020", 2019, true},
		{"Q1 2021", 0, false},
		{"21", 0, false},
		{"20211", 0, false},
		{"", 0, false},
		{"abcd", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Year(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumber(t *testing.T) {
	cases := map[string]struct {
		in     interface{}
		want   float64
		wantOK bool
	}{
		"float":       {12.5, 12.5, true},
		"int":         {3, 3, true},
		"int64":       {int64(9), 9, true},
		"json number": {json.Number("4.25"), 4.25, true},
		"money":       {"$2M", 2e6, true},
		"bool":        {true, 0, false},
		"nil":         {nil, 0, false},
		"map":         {map[string]interface{}{}, 0, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, ok := Number(tc.in)
			assert.Equal(t, tc.wantOK, ok)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestPercentValue(t *testing.T) {
	v, ok := PercentValue("18%")
	assert.True(t, ok)
	assert.Equal(t, 18.0, v)

	v, ok = PercentValue(22.0)
	assert.True(t, ok)
	assert.Equal(t, 22.0, v)
}
