package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventType(t *testing.T) {
	for _, valid := range []string{"discovery", "decision", "warning", "mutation", "outcome"} {
		got, err := ParseEventType(valid)
		require.NoError(t, err)
		assert.Equal(t, EventType(valid), got)
	}

	_, err := ParseEventType("observation")
	assert.ErrorIs(t, err, ErrUnknownEventType)
	_, err = ParseEventType("Discovery")
	assert.ErrorIs(t, err, ErrUnknownEventType, "parsing is case-sensitive; callers lowercase first")
	_, err = ParseEventType("")
	assert.ErrorIs(t, err, ErrUnknownEventType)
}

func TestParseStatusAndPriority(t *testing.T) {
	_, err := ParseStatus("resolved")
	require.NoError(t, err)
	_, err = ParseStatus("open")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = ParsePriority("critical")
	require.NoError(t, err)
	_, err = ParsePriority("urgent")
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestValidateTransition(t *testing.T) {
	cases := []struct {
		name    string
		current Status
		next    Status
		ok      bool
	}{
		{"resolve active", StatusActive, StatusResolved, true},
		{"supersede active", StatusActive, StatusSuperseded, true},
		{"reopen resolved", StatusResolved, StatusActive, true},
		{"reopen active", StatusActive, StatusActive, false},
		{"supersede resolved", StatusResolved, StatusSuperseded, false},
		{"resolve resolved", StatusResolved, StatusResolved, false},
		{"reopen superseded", StatusSuperseded, StatusActive, false},
		{"resolve superseded", StatusSuperseded, StatusResolved, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := &Event{ID: "evt-1", Status: tc.current, SupersededBy: "evt-2"}
			err := ValidateTransition(e, tc.next)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				var invalid *InvalidTransitionError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, tc.current, invalid.Current)
				assert.Equal(t, tc.next, invalid.Requested)
			}
		})
	}
}

func TestInvalidTransitionErrorNamesSuperseder(t *testing.T) {
	e := &Event{ID: "evt-1", Status: StatusSuperseded, SupersededBy: "evt-2"}
	err := ValidateTransition(e, StatusActive)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evt-2")
}
