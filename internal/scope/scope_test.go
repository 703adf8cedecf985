package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringForm(t *testing.T) {

	assert.Equal(t, "event:7", Event(7).String())
	assert.Equal(t, "submission:42", Submission(42).String())
	assert.Equal(t, "judging:5", Judging(5).String())
	assert.Equal(t, "team:13", Team(13).String())
}

func TestFamiliesDoNotCollide(t *testing.T) {

	// same numeric id in different families must be distinct keys
	assert.NotEqual(t, Event(1), Judging(1))
	assert.NotEqual(t, Submission(1), Team(1))

	// only an identical construction compares equal
	assert.Equal(t, Judging(1), Judging(1))
}

func TestParseRoundTrip(t *testing.T) {

	for _, s := range []Scope{Event(7), Submission(42), Judging(5), Team(13)} {
		got, err := Parse(s.String())
		assert.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestParseRejectsBadInput(t *testing.T) {

	for _, str := range []string{"", "event", "event:", "event:x", "round:3", "judging:1:2x"} {
		_, err := Parse(str)
		assert.Error(t, err, str)
		assert.ErrorIs(t, err, ErrBadScope)
	}
}

func TestZero(t *testing.T) {

	var s Scope
	assert.True(t, s.IsZero())
	assert.False(t, Event(0).IsZero())
}
