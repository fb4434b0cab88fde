package service

import "github.com/adiwidodo/classadmin-api/internal/models"

// OverlapIDs returns the ids of schedules whose [start, end) interval
// overlaps the candidate interval, skipping excludeID. Intervals are
// half-open: slots that merely touch (one ends exactly where the other
// starts) do not conflict. All comparisons run on minute-of-day integers;
// stored rows that fail to parse are skipped.
//
// Callers must pass only siblings sharing the candidate's (classID,
// dayOfWeek); cross-class and cross-day slots never conflict.
func OverlapIDs(startMin, endMin int, siblings []models.Schedule, excludeID string) []string {
	var ids []string
	for _, s := range siblings {
		if s.ID == excludeID {
			continue
		}
		otherStart, err := models.MinuteOfDay(s.StartTime)
		if err != nil {
			continue
		}
		otherEnd, err := models.MinuteOfDay(s.EndTime)
		if err != nil {
			continue
		}
		if max(startMin, otherStart) < min(endMin, otherEnd) {
			ids = append(ids, s.ID)
		}
	}
	return ids
}
