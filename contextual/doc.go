// Package contextual prepends a short, LLM-written situating preamble to
// document chunks before they are embedded.
//
// Contextualization is best effort: any failure returns the chunk unchanged
// with the contextualized flag unset. ContextualizeBatch fans a batch out over
// a bounded ants worker pool that lives only for the duration of the call and
// returns results in submission order.
package contextual
