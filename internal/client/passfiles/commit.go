package passfiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/common"
)

// CommitResult summarizes a successful commit.
type CommitResult struct {
	// Written counts content blobs stored.
	Written int
	// Purged counts records dropped from the index.
	Purged int
	// Warnings are non-fatal failures, such as versions that could not be
	// pruned.
	Warnings []error
}

// WarningsErr joins commit warnings into one error, or nil.
func (r CommitResult) WarningsErr() error {
	return errors.Join(r.Warnings...)
}

type contentWrite[S models.SectionKind] struct {
	pf      *models.PassFile[S]
	version int
	data    []byte
}

// pruneAll as keep count removes every stored version.
const pruneAll = 0

// Commit makes the working state durable: content blobs first, then the
// whole index of this type in one atomic replace. The in-memory state is
// swapped only after both succeed, so a failed commit changes nothing.
// Cancelling ctx has no effect once Commit has started.
func (c *Context[S]) Commit(ctx context.Context) (CommitResult, error) {
	ctx = context.WithoutCancel(ctx)
	var res CommitResult

	var writes []contentWrite[S]
	prune := make(map[int64]int)
	survivors := make([]*state[S], 0, len(c.states))
	index := make([]models.Info, 0, len(c.states))

	for _, st := range c.states {
		cur := st.current
		if cur == nil {
			prune[st.source.ID] = pruneAll
			res.Purged++
			continue
		}
		if err := cur.Info.Validate(); err != nil {
			return CommitResult{}, err
		}

		if st.source == nil || st.source.ID != cur.ID || st.source.Version != cur.Version {
			data, err := c.contentForWrite(ctx, st)
			if err != nil {
				return CommitResult{}, err
			}
			writes = append(writes, contentWrite[S]{pf: cur, version: cur.Version, data: data})
			if _, ok := prune[cur.ID]; !ok {
				prune[cur.ID] = c.keep
			}
			if st.source != nil && st.source.ID != cur.ID {
				prune[st.source.ID] = pruneAll
			}
		}

		survivors = append(survivors, st)
		index = append(index, cur.Info.Clone())
	}

	for _, w := range writes {
		if err := c.store.SaveEncryptedContent(ctx, c.typ, w.pf.ID, w.version, w.data, c.user); err != nil {
			c.logger.Error(ctx, "commit failed while saving content", "id", w.pf.ID, "version", w.version, "error", err)
			return CommitResult{}, err
		}
	}
	if err := c.store.SaveList(ctx, c.typ, index, c.user); err != nil {
		c.logger.Error(ctx, "commit failed while saving index", "error", err)
		return CommitResult{}, err
	}

	// Everything is durable; swap the in-memory state.
	for _, w := range writes {
		w.pf.Content.Encrypted = w.data
	}
	for _, st := range c.states {
		if st.current == nil && st.source != nil {
			st.source.Content.Wipe()
		}
	}
	origins := make(map[int64]int, len(survivors))
	currents := make(map[int64]int, len(survivors))
	next := make([]*state[S], 0, len(survivors))
	for _, st := range survivors {
		if st.source != nil && st.source != st.current {
			common.WipeByteArray(st.source.Content.PassPhrase)
		}
		next = append(next, &state[S]{source: st.current.Clone(), current: st.current})
		currents[st.current.ID] = st.current.Version
		if o := st.current.Origin; o != nil {
			origins[st.current.ID] = o.Version
		}
	}
	c.states = next
	c.changed = false
	res.Written = len(writes)

	for id, keep := range prune {
		originVersion, hasOrigin := origins[id]
		if err := c.prune(ctx, id, keep, currents[id], originVersion, hasOrigin); err != nil {
			c.logger.Warn(ctx, "could not prune old content versions", "id", id, "error", err)
			res.Warnings = append(res.Warnings, err)
		}
	}

	c.logger.Info(ctx, "passfiles committed", "records", len(next), "written", res.Written, "purged", res.Purged)
	return res, nil
}

// contentForWrite returns the ciphertext to store for st.current.
func (c *Context[S]) contentForWrite(ctx context.Context, st *state[S]) ([]byte, error) {
	cur := st.current
	if cur.Content.Encrypted != nil {
		return cur.Content.Encrypted, nil
	}
	if cur.Content.Decrypted {
		data, err := c.crypto.Seal(cur.Content.Sections, cur.Content.PassPhrase)
		if err != nil {
			return nil, fmt.Errorf("encrypt passfile %d: %w", cur.ID, err)
		}
		return data, nil
	}
	if st.source != nil {
		// re-keyed without opening the content: carry the committed blob over
		return c.store.LoadEncryptedContent(ctx, c.typ, st.source.ID, st.source.Version, c.user)
	}
	return nil, fmt.Errorf("%w: passfile %d has no content to store", common.ErrInvariant, cur.ID)
}

// prune keeps the newest keep versions of id counting down from current,
// plus its branch-point version, which later merges read as their common
// base. Versions above current are left over from before a sync renumbered
// the record and are always removed.
func (c *Context[S]) prune(ctx context.Context, id int64, keep, current, originVersion int, hasOrigin bool) error {
	versions, err := c.store.GetVersions(ctx, id, c.user)
	if err != nil {
		return err
	}

	var failed []error
	kept := 0
	for _, v := range versions {
		if keep != pruneAll && v <= current {
			if kept < keep || v == current {
				kept++
				continue
			}
			if hasOrigin && v == originVersion {
				continue
			}
		}
		if err := c.store.DeleteEncryptedContent(ctx, id, v, c.user); err != nil {
			failed = append(failed, err)
			continue
		}
		c.logger.Debug(ctx, "pruned content version", "id", id, "version", v)
	}
	if len(failed) > 0 {
		return fmt.Errorf("prune passfile %d: %d of %d deletions failed: %w", id, len(failed), len(versions), failed[0])
	}
	return nil
}
