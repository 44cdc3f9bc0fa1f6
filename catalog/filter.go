package catalog

import (
	"strings"

	"github.com/toondesk/toondesk/ai/criteria"
)

// ageAffinityMarker matches the 상/중 ("high"/"medium") affinity grades in an
// age-band column. Only rows graded at least medium pass the age filter.
var ageAffinityMarkers = []string{"상", "중"}

// safeContains is a null-safe case-insensitive substring match. An empty
// needle matches everything, mirroring an unset criterion.
func safeContains(value, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(needle))
}

// FilterByCriteria returns the rows matching all set criteria fields.
// Filters whose column is absent from the dataset degrade to no-ops.
func (t *Table) FilterByCriteria(c criteria.Criteria) []Row {
	filtered := make([]Row, 0, len(t.rows))
	for _, row := range t.rows {
		if t.HasColumn(ColCategory) && c.Category != "" &&
			!safeContains(row.Get(ColCategory), c.Category) {
			continue
		}
		if c.AgeBand != criteria.AgeBandUnset && t.HasColumn(string(c.AgeBand)) &&
			!containsAnyMarker(row.Get(string(c.AgeBand))) {
			continue
		}
		if t.HasColumn(ColGenderAffinity) && c.Gender != criteria.GenderUnset &&
			!safeContains(row.Get(ColGenderAffinity), string(c.Gender)) {
			continue
		}
		filtered = append(filtered, row)
	}
	return filtered
}

func containsAnyMarker(value string) bool {
	for _, marker := range ageAffinityMarkers {
		if strings.Contains(value, marker) {
			return true
		}
	}
	return false
}
