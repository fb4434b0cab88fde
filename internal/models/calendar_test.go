package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventID(t *testing.T) {
	kind, refID, date, err := ParseEventID(ClassEventID("sched-1", "2025-03-03"))
	require.NoError(t, err)
	assert.Equal(t, EventKindClass, kind)
	assert.Equal(t, "sched-1", refID)
	assert.Equal(t, "2025-03-03", date)

	kind, refID, date, err = ParseEventID(MeetingEventID("meet-7"))
	require.NoError(t, err)
	assert.Equal(t, EventKindMeeting, kind)
	assert.Equal(t, "meet-7", refID)
	assert.Empty(t, date)

	kind, refID, _, err = ParseEventID(TestEventID("test-9"))
	require.NoError(t, err)
	assert.Equal(t, EventKindTest, kind)
	assert.Equal(t, "test-9", refID)

	for _, malformed := range []string{"", "class:sched-1", "meeting:a:b", "holiday:x", "sched-1"} {
		_, _, _, err := ParseEventID(malformed)
		assert.Error(t, err, "id %q", malformed)
	}
}
