package access

// HasAccess reports whether set grants subArea within area. Both arguments are normalized
// first, so "Edit_Task " and "edit_task" are equivalent. Unknown areas, empty input and
// malformed tokens deny.
func HasAccess(set CombinedSet, area, subArea string) bool {
	a, err := NormalizeToken(area)
	if err != nil {
		return false
	}
	s, err := NormalizeToken(subArea)
	if err != nil {
		return false
	}
	return set.Granted(a, s)
}

// HasAreaAccess is the coarse check used for navigation: the area has at least one granted
// sub-area, or it is enabled by a grant row with zero sub-areas.
func HasAreaAccess(set CombinedSet, area string) bool {
	a, err := NormalizeToken(area)
	if err != nil {
		return false
	}
	if len(set.areas[a]) > 0 {
		return true
	}
	return set.Enabled(a)
}
