package grading

// gradeHotspot credits the first region hit, in declaration order, when it is the correct one.
func gradeHotspot(q Hotspot, p Point, ok bool, max float64) Result {
	if len(q.Regions) == 0 {
		return unconfigured(max, "regions")
	}
	if !ok {
		return zeroResult(max, "Invalid point", nil)
	}
	details := map[string]any{"point": p}
	hit, found := firstHit(q.Regions, p)
	if !found {
		return zeroResult(max, "No region hit", details)
	}
	details["hit_region"] = hit.ID
	if hit.ID == q.CorrectRegion {
		return newResult(max, max, true, "Correct", details)
	}
	return zeroResult(max, "Incorrect region", details)
}
