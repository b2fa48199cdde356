package models

import "strings"

// Mark carries per-passfile sync annotations. It is persisted in the local
// index but never sent to the server.
type Mark uint8

const MarkNone Mark = 0

const (
	MarkNeedsMerge Mark = 1 << iota
	MarkDownloadError
	MarkUploadError
	MarkOtherError
)

// MarkErrors is the union of every error flag.
const MarkErrors = MarkDownloadError | MarkUploadError | MarkOtherError

func (m Mark) Has(flag Mark) bool { return m&flag != 0 }

func (m Mark) With(flag Mark) Mark { return m | flag }

func (m Mark) Without(flag Mark) Mark { return m &^ flag }

func (m Mark) String() string {
	if m == MarkNone {
		return ""
	}
	var parts []string
	if m.Has(MarkNeedsMerge) {
		parts = append(parts, "needs-merge")
	}
	if m.Has(MarkDownloadError) {
		parts = append(parts, "download-error")
	}
	if m.Has(MarkUploadError) {
		parts = append(parts, "upload-error")
	}
	if m.Has(MarkOtherError) {
		parts = append(parts, "error")
	}
	return strings.Join(parts, ",")
}
