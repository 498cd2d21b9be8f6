package listdiff

import "sort"

// stableLIS marks a longest strictly increasing subsequence of seq.
//
// When several subsequences share the maximum length, the one that is
// lexicographically smallest by position is chosen, so items that appear
// earlier stay in place and later ones move.
func stableLIS(seq []int) []bool {
	n := len(seq)
	keep := make([]bool, n)
	if n == 0 {
		return keep
	}

	// from[i] is the length of the longest increasing run starting at i.
	// tails[l] is the largest value that starts an increasing run of length
	// l+1 in the suffix scanned so far; it is strictly decreasing in l.
	from := make([]int, n)
	tails := make([]int, 0, n)
	for i := n - 1; i >= 0; i-- {
		v := seq[i]
		l := sort.Search(len(tails), func(l int) bool { return tails[l] <= v })
		if l == len(tails) {
			tails = append(tails, v)
		} else {
			tails[l] = v
		}
		from[i] = l + 1
	}

	need := len(tails)
	last := 0
	first := true
	for i := 0; i < n && need > 0; i++ {
		if from[i] != need {
			continue
		}
		if !first && seq[i] <= last {
			continue
		}
		keep[i] = true
		last = seq[i]
		first = false
		need--
	}
	return keep
}

// lisLength returns the length of the longest strictly increasing subsequence.
func lisLength(seq []int) int {
	n := 0
	for _, k := range stableLIS(seq) {
		if k {
			n++
		}
	}
	return n
}
