package runtime

// Range is a contiguous run [Start, End) of linear positions.
type Range struct {
	Start, End int
}

func (r Range) Len() int { return r.End - r.Start }

// Partition splits [0, total) into n contiguous ranges laid end to end.
// Range lengths differ by at most one, the first total%n ranges being the
// longer ones. When total < n the trailing ranges are empty.
func Partition(total, n int) []Range {
	if n < 1 {
		n = 1
	}
	if total < 0 {
		total = 0
	}
	per, rem := total/n, total%n
	ranges := make([]Range, n)
	start := 0
	for k := range ranges {
		size := per
		if k < rem {
			size++
		}
		ranges[k] = Range{Start: start, End: start + size}
		start += size
	}
	return ranges
}
