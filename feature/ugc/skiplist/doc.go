// Package skiplist loads the set of asset IDs known to break enrichment.
// The list is read once per process and never modified by the sync.
package skiplist
