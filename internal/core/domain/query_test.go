package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseModeIsValid(t *testing.T) {
	tests := []struct {
		mode  ResponseMode
		valid bool
	}{
		{ResponseModeCompact, true},
		{ResponseModeTreeSummarize, true},
		{ResponseMode(""), false},
		{ResponseMode("refine"), false},
		{ResponseMode("Compact"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.mode.IsValid())
		})
	}
}

func TestQueryOptionsNormalised(t *testing.T) {
	tests := []struct {
		name     string
		in       QueryOptions
		wantTopK int
		wantMode ResponseMode
	}{
		{
			name:     "zero value takes defaults",
			in:       QueryOptions{},
			wantTopK: DefaultTopK,
			wantMode: ResponseModeCompact,
		},
		{
			name:     "negative k takes default",
			in:       QueryOptions{TopK: -3},
			wantTopK: DefaultTopK,
			wantMode: ResponseModeCompact,
		},
		{
			name:     "explicit values survive",
			in:       QueryOptions{TopK: 12, Mode: ResponseModeTreeSummarize},
			wantTopK: 12,
			wantMode: ResponseModeTreeSummarize,
		},
		{
			name:     "invalid mode falls back to compact",
			in:       QueryOptions{TopK: 2, Mode: ResponseMode("bogus")},
			wantTopK: 2,
			wantMode: ResponseModeCompact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalised()
			assert.Equal(t, tt.wantTopK, got.TopK)
			assert.Equal(t, tt.wantMode, got.Mode)
		})
	}
}

func TestQueryOptionsWithDefaults(t *testing.T) {
	configured := QueryOptions{TopK: 8, Mode: ResponseModeTreeSummarize}

	tests := []struct {
		name     string
		in       QueryOptions
		defaults QueryOptions
		wantTopK int
		wantMode ResponseMode
	}{
		{
			name:     "unset fields take configured defaults",
			in:       QueryOptions{},
			defaults: configured,
			wantTopK: 8,
			wantMode: ResponseModeTreeSummarize,
		},
		{
			name:     "explicit values win over configured defaults",
			in:       QueryOptions{TopK: 2, Mode: ResponseModeCompact},
			defaults: configured,
			wantTopK: 2,
			wantMode: ResponseModeCompact,
		},
		{
			name:     "zero defaults fall through to package defaults",
			in:       QueryOptions{},
			defaults: QueryOptions{},
			wantTopK: DefaultTopK,
			wantMode: ResponseModeCompact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.WithDefaults(tt.defaults)
			assert.Equal(t, tt.wantTopK, got.TopK)
			assert.Equal(t, tt.wantMode, got.Mode)
		})
	}
}
