// Package listdiff computes staged changesets between two-level ordered
// collections: sections holding ordered elements.
//
// Given an old and a new Snapshot plus an identity/equality Contract for
// sections and one for elements, a Differ computes the minimal set of
// insert, delete, move and update operations and splits it into Stages.
// Every stage is a conflict-free batch a list view can apply atomically.
//
// # Matching
//
// Items are matched by identity. Duplicated identities pair strictly left to
// right. Among matched items, those on the longest increasing subsequence of
// new positions stay in place and the rest become moves; ties keep earlier
// items in place. Elements that change section are reported as a single
// MoveElement unless WithCrossSectionMoves(false) is given.
//
// # Coordinates
//
// An Operation's At addresses the snapshot before its stage and To the
// snapshot after it, the way batch list updates are addressed. Each Stage
// carries the snapshot the list shows once the stage is applied.
//
// # Applying
//
// StagedApply hands stages to an Applier one by one and commits each stage's
// snapshot, checking for interruption between stages:
//
//	d := listdiff.New(sectionContract, elementContract)
//	cs, err := d.Diff(old, new)
//	if err != nil {
//	    return err
//	}
//	report, err := listdiff.StagedApply(ctx, cs, applier)
//	if errors.Is(err, listdiff.ErrInterrupted) {
//	    reload(cs.New)
//	}
package listdiff
