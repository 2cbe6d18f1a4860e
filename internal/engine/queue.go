package engine

import (
	"slices"
	"sort"
	"time"

	"github.com/hammamikhairi/announcer/internal/domain"
)

// insertSorted places a after every entry that does not sort after it,
// so equal keys keep insertion order.
func insertSorted(list []domain.Announcement, a domain.Announcement) []domain.Announcement {
	i := sort.Search(len(list), func(i int) bool { return a.Less(list[i]) })
	return slices.Insert(list, i, a)
}

// popDue removes and returns the first entry in queue order whose play
// time has been reached. Held entries keep their positions.
func popDue(list []domain.Announcement, now time.Time) ([]domain.Announcement, domain.Announcement, bool) {
	for i, a := range list {
		if a.IsDue(now) {
			return slices.Delete(list, i, i+1), a, true
		}
	}
	return list, domain.Announcement{}, false
}

// earliest returns the smallest play time in list.
func earliest(list []domain.Announcement) (time.Time, bool) {
	if len(list) == 0 {
		return time.Time{}, false
	}
	t := list[0].PlayTime
	for _, a := range list[1:] {
		if a.PlayTime.Before(t) {
			t = a.PlayTime
		}
	}
	return t, true
}
