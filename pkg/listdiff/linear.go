package listdiff

// Move is a matched item whose position changed beyond what the longest
// increasing subsequence keeps in place.
type Move struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Pair links an item of the old sequence to its match in the new sequence.
type Pair struct {
	Old int `json:"old"`
	New int `json:"new"`
}

// LinearResult is the edit script between two flat sequences.
type LinearResult struct {
	// Deletes are old indices without a match, ascending.
	Deletes []int
	// Inserts are new indices without a match, ascending.
	Inserts []int
	// Moves are matched items outside the kept subsequence, in old order.
	Moves []Move
	// Updates are matched items whose content differs, in old order.
	Updates []Pair
	// Matches are all matched pairs, in old order.
	Matches []Pair
}

// HasChanges returns true if the result carries any operation.
func (r *LinearResult) HasChanges() bool {
	return len(r.Deletes) > 0 || len(r.Inserts) > 0 || len(r.Moves) > 0 || len(r.Updates) > 0
}

// HasStructuralChanges returns true if the result inserts, deletes or moves.
func (r *LinearResult) HasStructuralChanges() bool {
	return len(r.Deletes) > 0 || len(r.Inserts) > 0 || len(r.Moves) > 0
}

// Linear computes the minimal edit script turning old into new.
//
// Items are matched by identity. When an identity occurs more than once, the
// first unmatched old occurrence pairs with the first unmatched new
// occurrence. Among matched pairs, those forming the longest increasing
// subsequence of new positions stay in place; every other match is a Move,
// so len(Moves) == len(Matches) - LIS for duplicate-free input.
func Linear[T any, K comparable](old, new []T, c Contract[T, K]) LinearResult {
	var r LinearResult

	queues := make(map[K][]int, len(new))
	for j, item := range new {
		k := c.Identify(item)
		queues[k] = append(queues[k], j)
	}

	matchedNew := make([]bool, len(new))
	for i, item := range old {
		k := c.Identify(item)
		q := queues[k]
		if len(q) == 0 {
			r.Deletes = append(r.Deletes, i)
			continue
		}
		j := q[0]
		queues[k] = q[1:]
		matchedNew[j] = true
		r.Matches = append(r.Matches, Pair{Old: i, New: j})
	}

	for j, ok := range matchedNew {
		if !ok {
			r.Inserts = append(r.Inserts, j)
		}
	}

	positions := make([]int, len(r.Matches))
	for idx, p := range r.Matches {
		positions[idx] = p.New
	}
	keep := stableLIS(positions)

	for idx, p := range r.Matches {
		if !keep[idx] {
			r.Moves = append(r.Moves, Move{From: p.Old, To: p.New})
		}
		if !c.equal(old[p.Old], new[p.New]) {
			r.Updates = append(r.Updates, p)
		}
	}
	return r
}
