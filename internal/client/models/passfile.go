// Package models defines the client-side passfile model: the content-less
// Info record kept in the local index, its typed content, and the section
// variants stored inside the content.
package models

import (
	"time"

	"github.com/dmitrijs2005/passkeeper/internal/common"
)

// PassFileType identifies the content variant of a passfile.
type PassFileType int

const (
	PassFileTypePwd PassFileType = 1
	PassFileTypeTxt PassFileType = 2
)

func (t PassFileType) String() string {
	switch t {
	case PassFileTypePwd:
		return "pwd"
	case PassFileTypeTxt:
		return "txt"
	default:
		return "unknown"
	}
}

// ChangeStamps is the snapshot of a record's change metadata taken at the
// last successful sync. It marks the branch point between replicas.
type ChangeStamps struct {
	InfoChangedOn    time.Time `json:"info_changed_on"`
	VersionChangedOn time.Time `json:"version_changed_on"`
	Version          int       `json:"version"`
}

// Info is the persisted, content-less part of a passfile.
type Info struct {
	// ID is server-assigned (positive) or minted locally (negative) until
	// the first upload.
	ID   int64        `json:"id"`
	Type PassFileType `json:"type" validate:"oneof=1 2"`

	Name  string `json:"name" validate:"required,max=128"`
	Color string `json:"color,omitempty" validate:"omitempty,hexcolor"`

	CreatedOn        time.Time `json:"created_on"`
	InfoChangedOn    time.Time `json:"info_changed_on"`
	VersionChangedOn time.Time `json:"version_changed_on"`
	Version          int       `json:"version" validate:"gte=0"`

	// DeletedOn is set for tombstones awaiting remote deletion.
	DeletedOn *time.Time `json:"deleted_on,omitempty"`

	// Origin is nil until the record has been synced once.
	Origin *ChangeStamps `json:"origin,omitempty"`

	Mark Mark `json:"mark,omitempty"`
}

// IsLocalOnly reports whether the record has never been uploaded.
func (i Info) IsLocalOnly() bool { return i.ID < 0 }

// IsDeleted reports whether the record is a tombstone.
func (i Info) IsDeleted() bool { return i.DeletedOn != nil }

// Stamps returns the record's current change stamps.
func (i Info) Stamps() ChangeStamps {
	return ChangeStamps{
		InfoChangedOn:    i.InfoChangedOn,
		VersionChangedOn: i.VersionChangedOn,
		Version:          i.Version,
	}
}

// Clone returns a deep copy of the record.
func (i Info) Clone() Info {
	out := i
	if i.DeletedOn != nil {
		d := *i.DeletedOn
		out.DeletedOn = &d
	}
	if i.Origin != nil {
		o := *i.Origin
		out.Origin = &o
	}
	return out
}

// Content holds a passfile's sections, decrypted or not, together with the
// cached ciphertext and the passphrase used to open it.
type Content[S SectionKind] struct {
	Sections  []S
	Decrypted bool

	// Encrypted caches the ciphertext of Sections. It is dropped on every
	// local content edit and rebuilt on commit.
	Encrypted []byte

	// PassPhrase lives only in memory and is never persisted.
	PassPhrase []byte
}

// Clone returns an independent copy, sections included.
func (c Content[S]) Clone() Content[S] {
	return Content[S]{
		Sections:   CloneSections(c.Sections),
		Decrypted:  c.Decrypted,
		Encrypted:  common.CloneBytes(c.Encrypted),
		PassPhrase: common.CloneBytes(c.PassPhrase),
	}
}

// Wipe zeroes the passphrase and forgets the decrypted sections.
func (c *Content[S]) Wipe() {
	common.WipeByteArray(c.PassPhrase)
	c.PassPhrase = nil
	c.Sections = nil
	c.Decrypted = false
}

// PassFile is an Info record plus its typed content.
type PassFile[S SectionKind] struct {
	Info
	Content Content[S]
}

// Clone returns a deep copy of the passfile.
func (p *PassFile[S]) Clone() *PassFile[S] {
	if p == nil {
		return nil
	}
	return &PassFile[S]{Info: p.Info.Clone(), Content: p.Content.Clone()}
}

// TypeOf returns the PassFileType that corresponds to section kind S.
func TypeOf[S SectionKind]() PassFileType {
	var zero S
	switch any(zero).(type) {
	case PwdSection:
		return PassFileTypePwd
	case TxtSection:
		return PassFileTypeTxt
	}
	panic("models: unreachable section kind")
}
