package merge

import (
	"strings"

	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	markerLocal  = "<<<<<<< local\n"
	markerSep    = "=======\n"
	markerRemote = ">>>>>>> remote\n"
)

// ConflictText renders both sides of a conflict as a line diff with
// conflict markers around the lines that differ.
func ConflictText[S models.SectionKind](c Conflict[S]) string {
	var localText, remoteText string
	if c.Local != nil {
		localText = (*c.Local).String()
	}
	if c.Remote != nil {
		remoteText = (*c.Remote).String()
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(localText, remoteText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out, del, ins strings.Builder
	flush := func() {
		if del.Len() == 0 && ins.Len() == 0 {
			return
		}
		out.WriteString(markerLocal)
		out.WriteString(del.String())
		out.WriteString(markerSep)
		out.WriteString(ins.String())
		out.WriteString(markerRemote)
		del.Reset()
		ins.Reset()
	}
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			del.WriteString(withNewline(d.Text))
		case diffmatchpatch.DiffInsert:
			ins.WriteString(withNewline(d.Text))
		default:
			flush()
			out.WriteString(d.Text)
		}
	}
	flush()
	return out.String()
}

// SuggestTxt proposes a merged text section for a conflict where both
// sides edited the same note: the local edits (base to local) are applied
// as patches onto the remote text. ok is false when there is no base, a
// side was deleted, or some patch did not apply cleanly.
func SuggestTxt(c Conflict[models.TxtSection]) (models.TxtSection, bool) {
	if c.Local == nil || c.Remote == nil || c.Base == nil {
		return models.TxtSection{}, false
	}

	content, ok := patchText(c.Base.Content, c.Local.Content, c.Remote.Content)
	if !ok {
		return models.TxtSection{}, false
	}
	merged := *c.Remote
	merged.Content = content
	if c.Local.Name != c.Base.Name {
		merged.Name = c.Local.Name
	}
	return merged, true
}

func patchText(base, local, remote string) (string, bool) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(base, local, true)
	if len(diffs) > 2 {
		diffs = dmp.DiffCleanupSemantic(diffs)
		diffs = dmp.DiffCleanupEfficiency(diffs)
	}
	patches := dmp.PatchMake(base, diffs)
	merged, applied := dmp.PatchApply(patches, remote)
	for _, ok := range applied {
		if !ok {
			return "", false
		}
	}
	return merged, true
}

func withNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
