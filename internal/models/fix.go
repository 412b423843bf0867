package models

import "time"

// FixRecord is one entry in a workspace's fix log: a build failure paired
// with the remedy the agent reported. Records are immutable once written;
// the log is append-only and only clearable in bulk.
type FixRecord struct {
	Timestamp  time.Time
	Platform   string
	ErrorSig   string
	FixSummary string
}
