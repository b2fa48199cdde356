// Package merge reconciles the content of a passfile edited on two
// replicas. Sections are matched by id and compared by fingerprint against
// the branch-point content; whatever cannot be decided automatically is
// left as a Conflict for the user.
package merge

import (
	"fmt"

	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/codec"
)

// Sections runs the three-way section merge. base is the content at the
// branch point; hasBase false means it is unknown and the merge degrades to
// two-way, where every difference is a conflict.
//
// Merged sections keep local order, followed by remote-only sections in
// remote order.
func Sections[S models.SectionKind](local, remote, base []S, hasBase bool) (*Result[S], error) {
	lfp, err := fingerprints(local)
	if err != nil {
		return nil, err
	}
	rfp, err := fingerprints(remote)
	if err != nil {
		return nil, err
	}
	bfp, err := fingerprints(base)
	if err != nil {
		return nil, err
	}

	remoteByID := index(remote)
	baseByID := index(base)
	res := &Result[S]{TwoWay: !hasBase}

	for i, l := range local {
		id := l.SectionID()
		b, inBase := baseByID[id]
		ri, inRemote := remoteByID[id]

		if !inRemote {
			switch {
			case hasBase && !inBase:
				res.Sections = append(res.Sections, l)
			case hasBase && bfp[b] == lfp[i]:
				// deleted remotely, untouched locally
			default:
				res.addConflict(ref(l), nil, baseOf(base, baseByID, id))
			}
			continue
		}

		switch {
		case lfp[i] == rfp[ri]:
			res.Sections = append(res.Sections, l)
		case hasBase && inBase && bfp[b] == lfp[i]:
			res.Sections = append(res.Sections, remote[ri])
		case hasBase && inBase && bfp[b] == rfp[ri]:
			res.Sections = append(res.Sections, l)
		default:
			res.addConflict(ref(l), ref(remote[ri]), baseOf(base, baseByID, id))
		}
	}

	localByID := index(local)
	for i, r := range remote {
		id := r.SectionID()
		if _, ok := localByID[id]; ok {
			continue
		}
		if b, inBase := baseByID[id]; hasBase && inBase && bfp[b] == rfp[i] {
			// deleted locally, untouched remotely
			continue
		}
		res.addConflict(nil, ref(r), baseOf(base, baseByID, id))
	}

	return res, nil
}

func fingerprints[S models.SectionKind](list []S) ([]codec.Digest, error) {
	out := make([]codec.Digest, len(list))
	for i, s := range list {
		d, err := codec.Fingerprint(s)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", s.SectionID(), err)
		}
		out[i] = d
	}
	return out, nil
}

func index[S models.SectionKind](list []S) map[string]int {
	m := make(map[string]int, len(list))
	for i, s := range list {
		m[s.SectionID()] = i
	}
	return m
}

func baseOf[S models.SectionKind](base []S, byID map[string]int, id string) *S {
	if i, ok := byID[id]; ok {
		return ref(base[i])
	}
	return nil
}

func ref[S any](s S) *S { return &s }
