// Package index holds the two ordered indices used for nearest-match lookup.
//
// Both indices publish an immutable state through an atomic pointer. Readers
// load the pointer once and work on that snapshot without locking. Writers
// serialize on a per-index mutex, copy the current state, add the new
// element and publish the copy.
package index
