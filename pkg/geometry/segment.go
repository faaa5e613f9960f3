package geometry

// SegmentsIntersectStrict reports whether the open segments p1-p2 and
// p3-p4 cross. Both intersection parameters must be strictly interior, so
// segments that merely touch at an endpoint do not count.
func SegmentsIntersectStrict(p1, p2, p3, p4 Point2D) bool {
	d1x := p2.X - p1.X
	d1y := p2.Y - p1.Y
	d2x := p4.X - p3.X
	d2y := p4.Y - p3.Y

	denom := d1x*d2y - d1y*d2x
	if denom == 0 {
		return false // parallel or degenerate
	}

	t := ((p3.X-p1.X)*d2y - (p3.Y-p1.Y)*d2x) / denom
	u := ((p3.X-p1.X)*d1y - (p3.Y-p1.Y)*d1x) / denom

	return t > 0 && t < 1 && u > 0 && u < 1
}

// SegmentIntersectsRect reports whether the segment a-b crosses the
// boundary of r, or lies entirely inside it.
func SegmentIntersectsRect(a, b Point2D, r Rect) bool {
	if r.Contains(a) || r.Contains(b) {
		return true
	}
	for _, edge := range r.Edges() {
		if SegmentsIntersectStrict(a, b, edge[0], edge[1]) {
			return true
		}
	}
	return false
}
