// Package models defines the gorm models of the UGC store: assets, their
// contributors and tags, the join tables linking them and the per-kind sync
// watermarks. All returns them in migration order.
package models
