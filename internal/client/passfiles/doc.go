// Package passfiles holds the in-memory editing layer over the local store.
//
// A Context tracks every passfile of one type for one user as a pair of
// records: the last committed state (source) and the working state
// (current). Edits touch only current records and are made durable by
// Commit or discarded by Rollback. Callers always work with the *PassFile
// pointers handed out by the context; passing any other pointer to a
// mutating operation is an invariant violation.
//
// Content edits follow the version rule: a local content change bumps
// Version once per commit cycle, i.e. only while the working Version still
// equals the committed one.
//
// Manager owns one Context per passfile type and switches them together
// when the active user changes.
package passfiles
