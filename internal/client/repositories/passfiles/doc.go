// Package passfiles persists the local passfile index: one row per passfile
// Info record, scoped by user. Content blobs live in the contents package.
//
// The index of one passfile type is always replaced as a whole
// (ReplaceType) inside the caller's transaction, so readers never observe a
// half-written list.
package passfiles
