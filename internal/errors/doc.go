// Package errors provides structured, coded error messages for listdiff.
//
// Every failure the module can surface maps to a registered code (e.g.
// "E100") carrying a category, a short message, a longer explanation and a
// documentation URL. Callers add specifics with the With* builders:
//
//	err := errors.New("E100").
//	    WithDetail("stage 2: DeleteElement at (1, 7) but section 1 has 3 elements").
//	    Wrap(cause)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E100: Coordinate out of bounds
//	//
//	//   stage 2: DeleteElement at (1, 7) but section 1 has 3 elements
//	//
//	//   Learn more: https://vango.dev/docs/listdiff/errors/E100
//
// # Error Categories
//
//   - invariant: the diff engine produced an inconsistent result (a bug)
//   - apply: the consumer rejected or interrupted a staged apply
//   - document: snapshot documents that cannot be decoded
//   - config: invalid listdiff.json
//   - store: snapshot sources (local files, S3)
//   - protocol: websocket staged-apply protocol violations
//   - cli: command line usage
package errors
