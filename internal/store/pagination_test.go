package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPaginationParams(t *testing.T) {
	params := DefaultPaginationParams()
	assert.Equal(t, DefaultPageSize, params.Limit)
	assert.Empty(t, params.AfterID)
}

func TestPaginationParams_Validate(t *testing.T) {
	tests := []struct {
		name          string
		input         PaginationParams
		expectedLimit int
	}{
		{name: "valid parameters", input: PaginationParams{Limit: 50}, expectedLimit: 50},
		{name: "zero limit defaults", input: PaginationParams{Limit: 0}, expectedLimit: DefaultPageSize},
		{name: "negative limit defaults", input: PaginationParams{Limit: -10}, expectedLimit: DefaultPageSize},
		{name: "limit over max is capped", input: PaginationParams{Limit: 50000}, expectedLimit: MaxPageSize},
		{name: "limit at max stays", input: PaginationParams{Limit: MaxPageSize}, expectedLimit: MaxPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := tt.input
			params.Validate()
			assert.Equal(t, tt.expectedLimit, params.Limit)
		})
	}
}

func TestCursorRoundTrip(t *testing.T) {
	b := Boundary{OrderValue: "super mario", ID: "0b6f3c1e-7e1d-4a55-9d55-3f8f5c0e6f10"}

	cursor := EncodeCursor(b)
	require.NotEmpty(t, cursor)

	decoded, err := DecodeCursor(cursor)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.Equal(t, b, *decoded)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	decoded, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, decoded)

	_, err = DecodeCursor("!!!not-base64!!!")
	assert.Error(t, err)

	_, err = DecodeCursor(EncodeCursor(Boundary{OrderValue: "x"}))
	require.NoError(t, err, "empty id encodes to the empty cursor")
}
