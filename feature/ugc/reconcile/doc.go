// Package reconcile adapts the generic reconcile engine to stored UGC assets.
//
// The upstream set is a complete walk of the search listing for one kind;
// candidates are verified with an unauthenticated probe of the public asset
// page before they are deleted.
package reconcile
