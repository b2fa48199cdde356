package merge

import (
	"fmt"

	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/common"
)

// ErrNoConflict is returned when resolving a conflict index that does not
// exist.
var ErrNoConflict = fmt.Errorf("%w: no such conflict", common.ErrValidation)

// Conflict is a section the merge could not decide. A nil side means the
// section is absent there. Base is nil when the section did not exist at
// the branch point or the base is unknown.
type Conflict[S models.SectionKind] struct {
	Local  *S
	Remote *S
	Base   *S
}

// ID returns the id of the conflicting section.
func (c Conflict[S]) ID() string {
	if c.Local != nil {
		return (*c.Local).SectionID()
	}
	return (*c.Remote).SectionID()
}

// Strategy picks a side for ResolveAll.
type Strategy int

const (
	PreferLocal Strategy = iota
	PreferRemote
)

// Result holds the merged sections and the conflicts still to be resolved.
// Resolving a conflict appends the chosen section to Sections and removes
// the conflict, so indexes shift after every call.
type Result[S models.SectionKind] struct {
	Sections  []S
	Conflicts []Conflict[S]

	// TwoWay is set when the branch-point content was not available.
	TwoWay bool
}

func (r *Result[S]) addConflict(local, remote, base *S) {
	r.Conflicts = append(r.Conflicts, Conflict[S]{Local: local, Remote: remote, Base: base})
}

// Resolved reports whether no conflicts are left.
func (r *Result[S]) Resolved() bool { return len(r.Conflicts) == 0 }

// AcceptLocal resolves conflict i with the local side. A missing local side
// drops the section.
func (r *Result[S]) AcceptLocal(i int) error {
	c, err := r.take(i)
	if err != nil {
		return err
	}
	if c.Local != nil {
		r.Sections = append(r.Sections, *c.Local)
	}
	return nil
}

// AcceptRemote resolves conflict i with the remote side. A missing remote
// side drops the section.
func (r *Result[S]) AcceptRemote(i int) error {
	c, err := r.take(i)
	if err != nil {
		return err
	}
	if c.Remote != nil {
		r.Sections = append(r.Sections, *c.Remote)
	}
	return nil
}

// Accept resolves conflict i with a section built by the caller, usually a
// hand-merged version of both sides.
func (r *Result[S]) Accept(i int, section S) error {
	if _, err := r.take(i); err != nil {
		return err
	}
	r.Sections = append(r.Sections, section)
	return nil
}

// Discard resolves conflict i by dropping the section on both sides.
func (r *Result[S]) Discard(i int) error {
	_, err := r.take(i)
	return err
}

// ResolveAll resolves every remaining conflict with one strategy.
func (r *Result[S]) ResolveAll(s Strategy) {
	for !r.Resolved() {
		if s == PreferRemote {
			_ = r.AcceptRemote(0)
		} else {
			_ = r.AcceptLocal(0)
		}
	}
}

func (r *Result[S]) take(i int) (Conflict[S], error) {
	if i < 0 || i >= len(r.Conflicts) {
		return Conflict[S]{}, fmt.Errorf("%w: %d of %d", ErrNoConflict, i, len(r.Conflicts))
	}
	c := r.Conflicts[i]
	r.Conflicts = append(r.Conflicts[:i], r.Conflicts[i+1:]...)
	return c, nil
}
