package board

import (
	"fmt"

	"github.com/starford/jobdeck/internal/models"
)

// CheckInvariants verifies that every column is present, every record sits in
// the column named by its status, and no id appears twice.
func CheckInvariants(b models.BoardState) error {
	seen := make(map[string]models.Column, b.Len())
	for _, c := range models.Columns {
		cards, ok := b[c]
		if !ok {
			return fmt.Errorf("column %s missing", c)
		}
		for _, r := range cards {
			if r.Status != c {
				return fmt.Errorf("record %s has status %s but sits in %s", r.ID, r.Status, c)
			}
			if prev, dup := seen[r.ID]; dup {
				return fmt.Errorf("record %s appears in %s and %s", r.ID, prev, c)
			}
			seen[r.ID] = c
		}
	}
	if len(b) != len(models.Columns) {
		return fmt.Errorf("board has %d columns, want %d", len(b), len(models.Columns))
	}
	return nil
}
