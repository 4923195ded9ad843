package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransitionAllowed(t *testing.T) {
	cases := []struct {
		from, to BookingStatus
	}{
		{BookingRequested, BookingConfirmed},
		{BookingRequested, BookingCancelled},
		{BookingConfirmed, BookingCompleted},
		{BookingConfirmed, BookingCancelled},
	}
	for _, tc := range cases {
		assert.NoError(t, ValidateTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestValidateTransitionRejected(t *testing.T) {
	cases := []struct {
		from, to BookingStatus
	}{
		{BookingRequested, BookingCompleted},
		{BookingRequested, BookingRequested},
		{BookingConfirmed, BookingRequested},
		{BookingCompleted, BookingCancelled},
		{BookingCompleted, BookingConfirmed},
		{BookingCancelled, BookingRequested},
		{BookingCancelled, BookingConfirmed},
	}
	for _, tc := range cases {
		err := ValidateTransition(tc.from, tc.to)
		require.Error(t, err, "%s -> %s", tc.from, tc.to)

		var transitionErr *InvalidTransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, tc.from, transitionErr.From)
		assert.Equal(t, tc.to, transitionErr.To)
		assert.Contains(t, err.Error(), string(tc.from))
		assert.Contains(t, err.Error(), string(tc.to))
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.False(t, BookingRequested.IsTerminal())
	assert.False(t, BookingConfirmed.IsTerminal())
	assert.True(t, BookingCompleted.IsTerminal())
	assert.True(t, BookingCancelled.IsTerminal())
}

func TestStatusValid(t *testing.T) {
	assert.True(t, BookingRequested.Valid())
	assert.True(t, BookingCancelled.Valid())
	assert.False(t, BookingStatus("paid").Valid())
	assert.False(t, BookingStatus("").Valid())
}
