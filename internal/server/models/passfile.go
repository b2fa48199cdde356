package models

import "time"

// PassFile is the server copy of a passfile index record. Version 0 means
// no content was uploaded yet.
type PassFile struct {
	ID               int64
	UserID           int64
	Type             int
	Name             string
	Color            string
	CreatedOn        time.Time
	InfoChangedOn    time.Time
	VersionChangedOn time.Time
	Version          int
}
