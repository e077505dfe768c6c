package shelfd

import "fmt"

// Policy controls how ownership is enforced for mutations.
//
// Source deployments disagree on whether records without an owner may be
// mutated by anyone or by no one, so the choice is an explicit knob rather
// than a hard-coded rule. The default (false) is the strict reading: a
// public record is frozen.
type Policy struct {
	AllowUnownedMutation bool
}

// VisibleTo partitions records for a caller identity.
//
// With an identity: public records plus the caller's own, each annotated
// with Mine. Without one: only public records, Mine always false. A record
// owned by a different identity is never returned.
func VisibleTo(identity string, records []CatalogRecord) []RecordView {
	views := make([]RecordView, 0, len(records))
	for _, rec := range records {
		switch {
		case rec.Owner == "":
			views = append(views, RecordView{CatalogRecord: rec})
		case identity != "" && rec.Owner == identity:
			views = append(views, RecordView{CatalogRecord: rec, Mine: true})
		}
	}
	return views
}

// Mine reports whether a record belongs to the given identity.
func Mine(identity string, rec CatalogRecord) bool {
	return identity != "" && rec.Owner == identity
}

// Authorize decides whether identity may mutate or delete rec.
// Comparison is exact and case-sensitive.
func (p Policy) Authorize(identity string, rec CatalogRecord) error {
	if rec.Owner == "" {
		if p.AllowUnownedMutation {
			return nil
		}
		return fmt.Errorf("record %s has no owner: %w", rec.ID, ErrForbidden)
	}

	if rec.Owner != identity {
		return fmt.Errorf("record %s: %w", rec.ID, ErrForbidden)
	}

	return nil
}
