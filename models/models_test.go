package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusPending, true},
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusGenerated, false},
		{StatusApproved, StatusApproved, true},
		{StatusApproved, StatusGenerated, false},
		{StatusRejected, StatusApproved, true},
		{StatusGenerated, StatusGenerated, true},
		{StatusGenerated, StatusApproved, true},
		{StatusGenerated, StatusPending, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, c.from.CanTransition(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("approved")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, s)

	_, err = ParseStatus("archived")
	assert.Error(t, err)
}

func TestGeneratable(t *testing.T) {
	assert.True(t, StatusApproved.Generatable())
	assert.True(t, StatusGenerated.Generatable())
	assert.False(t, StatusPending.Generatable())
	assert.False(t, StatusRejected.Generatable())
}

func TestNormalizeHostname(t *testing.T) {
	good := map[string]string{
		"Coach.Example.com":           "coach.example.com",
		"https://coach.example.com/x": "coach.example.com",
		"coach.example.com:8443":      "coach.example.com",
		"coach.example.com.":          "coach.example.com",
		"localhost":                   "localhost",
	}
	for in, want := range good {
		got, err := NormalizeHostname(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, in := range []string{"", "nodot", "-bad.com", "a..b.com", "sp ace.com", "under_score.com"} {
		_, err := NormalizeHostname(in)
		assert.ErrorIs(t, err, ErrInvalidHostname, in)
	}
}
