package schedule

import "github.com/litespace/availability/libs/timex"

// Overlap reports whether any occurrence of a intersects any occurrence of b.
// It is symmetric and ignores activation flags.
func Overlap(a, b Rule) (bool, error) {
	if err := a.Validate(); err != nil {
		return false, err
	}
	if err := b.Validate(); err != nil {
		return false, err
	}
	return overlap(a, b), nil
}

func overlap(a, b Rule) bool {
	aStart, aEnd := a.span()
	bStart, bEnd := b.span()
	lo, hi := timex.Max(aStart, bStart), timex.Min(aEnd, bEnd)
	if !lo.Before(hi) {
		return false
	}

	// Occurrences touching [lo, hi) start at most one duration before lo.
	from := lo.Add(-max(a.length(), b.length()))
	return sweep(expand(a, from, hi), expand(b, from, hi))
}

// sweep walks two ascending, internally disjoint event lists and reports the
// first intersecting pair.
func sweep(xs, ys []Event) bool {
	i, j := 0, 0
	for i < len(xs) && j < len(ys) {
		if xs[i].Overlaps(ys[j]) {
			return true
		}
		if xs[i].End.After(ys[j].End) {
			j++
		} else {
			i++
		}
	}
	return false
}

// FindOverlap returns the first live rule in existing that overlaps
// candidate. Rules with candidate's ID are skipped so an update does not
// collide with its previous version. A candidate that is not live never
// conflicts.
func FindOverlap(candidate Rule, existing []Rule) (Rule, bool, error) {
	if err := candidate.Validate(); err != nil {
		return Rule{}, false, err
	}
	if !candidate.Live() {
		return Rule{}, false, nil
	}
	for _, r := range existing {
		if !r.Live() || (candidate.ID != "" && r.ID == candidate.ID) {
			continue
		}
		if err := r.Validate(); err != nil {
			return Rule{}, false, err
		}
		if overlap(candidate, r) {
			return r, true, nil
		}
	}
	return Rule{}, false, nil
}
