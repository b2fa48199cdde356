// Package contents stores encrypted passfile content blobs keyed by
// (user, id, version). Several versions of the same passfile coexist until
// they are pruned.
package contents
