package shp

// Byte sizes of the fixed parts of each record layout. A point is its type
// followed by x and y; a multipoint adds the box and a point count; a
// polyline or polygon adds the box, a part count and a point count.
const (
	typeBytes      = 4
	boxBytes       = 32
	ordinateBytes  = 8
	rangeBytes     = 2 * ordinateBytes
	pointBytes     = typeBytes + 2*ordinateBytes
	multiPointBase = typeBytes + boxBytes + 4
	polyBase       = typeBytes + boxBytes + 4 + 4
)

// optionalBlock reports whether a record whose content is contentWords long
// has room, after base bytes, for a block of count values of perValue bytes,
// preceded by a min/max pair when ranged is set. M blocks are optional even
// in Z records, so their presence is decided by the declared length alone.
func optionalBlock(contentWords int32, base, perValue, count int, ranged bool) bool {
	full := int64(base) + int64(perValue)*int64(count)
	if ranged {
		full += rangeBytes
	}
	return int64(contentWords)*2 >= full
}

// blockBytes is the size of a ranged Z or M block for n points.
func blockBytes(n int) int {
	return rangeBytes + ordinateBytes*n
}
