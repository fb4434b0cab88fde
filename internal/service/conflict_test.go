package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adiwidodo/classadmin-api/internal/models"
)

func TestOverlapIDs(t *testing.T) {
	siblings := []models.Schedule{
		{ID: "s1", StartTime: "08:00", EndTime: "09:00"},
		{ID: "s2", StartTime: "10:00", EndTime: "11:30"},
		{ID: "s3", StartTime: "bad", EndTime: "11:30"},
	}

	// Fully inside an existing slot.
	assert.Equal(t, []string{"s2"}, OverlapIDs(615, 660, siblings, ""))

	// Partial overlap at the start boundary.
	assert.Equal(t, []string{"s1"}, OverlapIDs(510, 590, siblings, ""))

	// Touching intervals are not conflicts: 09:00-10:00 fits exactly
	// between s1 and s2.
	assert.Empty(t, OverlapIDs(540, 600, siblings, ""))

	// A slot spanning both collides with both.
	assert.Equal(t, []string{"s1", "s2"}, OverlapIDs(480, 720, siblings, ""))

	// The candidate never conflicts with itself.
	assert.Empty(t, OverlapIDs(600, 690, siblings, "s2"))

	// Rows with malformed stored times are skipped rather than matched.
	assert.Empty(t, OverlapIDs(660, 690, []models.Schedule{{ID: "s3", StartTime: "bad", EndTime: "11:30"}}, ""))
}
