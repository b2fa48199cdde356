package passfiles

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/passkeeper/internal/clock"
	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/client/passfilecrypto"
	"github.com/dmitrijs2005/passkeeper/internal/client/storage"
	"github.com/dmitrijs2005/passkeeper/internal/common"
	"github.com/dmitrijs2005/passkeeper/internal/logging"
)

// ErrNotDecrypted is returned for content edits on content that was never
// opened.
var ErrNotDecrypted = passfilecrypto.ErrNotDecrypted

// Options tune a Context.
type Options struct {
	// KeepVersions is how many content versions per passfile survive
	// pruning, besides the branch-point version.
	KeepVersions int
}

type state[S models.SectionKind] struct {
	source  *models.PassFile[S]
	current *models.PassFile[S]
}

// Context is the shadow-state editor for the passfiles of one type.
// It is not safe for concurrent use.
type Context[S models.SectionKind] struct {
	user   string
	typ    models.PassFileType
	store  storage.LocalStore
	crypto *passfilecrypto.Service[S]
	clock  clock.Clock
	logger logging.Logger
	keep   int

	states  []*state[S]
	changed bool
}

func NewContext[S models.SectionKind](user string, store storage.LocalStore, clk clock.Clock, logger logging.Logger, opts Options) *Context[S] {
	keep := opts.KeepVersions
	if keep <= 0 {
		keep = common.DefaultKeepVersions
	}
	typ := models.TypeOf[S]()
	return &Context[S]{
		user:   user,
		typ:    typ,
		store:  store,
		crypto: passfilecrypto.New[S](),
		clock:  clk,
		logger: logger.With("module", "passfiles", "type", typ.String(), "user", user),
		keep:   keep,
	}
}

func (c *Context[S]) User() string { return c.user }

func (c *Context[S]) Type() models.PassFileType { return c.typ }

func (c *Context[S]) Crypto() *passfilecrypto.Service[S] { return c.crypto }

// AnyChanged reports whether a local edit happened since the last
// LoadList, Commit or Rollback.
func (c *Context[S]) AnyChanged() bool { return c.changed }

// LoadList replaces the in-memory state with the committed index.
func (c *Context[S]) LoadList(ctx context.Context) error {
	list, err := c.store.LoadList(ctx, c.typ, c.user)
	if err != nil {
		return err
	}

	c.wipeAll()
	states := make([]*state[S], 0, len(list))
	for _, info := range list {
		src := &models.PassFile[S]{Info: info.Clone()}
		states = append(states, &state[S]{source: src, current: src.Clone()})
	}
	c.states = states
	c.changed = false

	c.logger.Debug(ctx, "passfile list loaded", "count", len(states))
	return nil
}

// CurrentList returns the working records, tombstones included, in index
// order. Records pending purge are omitted.
func (c *Context[S]) CurrentList() []*models.PassFile[S] {
	out := make([]*models.PassFile[S], 0, len(c.states))
	for _, st := range c.states {
		if st.current != nil {
			out = append(out, st.current)
		}
	}
	return out
}

// Get returns the working record with the given id.
func (c *Context[S]) Get(id int64) (*models.PassFile[S], bool) {
	for _, st := range c.states {
		if st.current != nil && st.current.ID == id {
			return st.current, true
		}
	}
	return nil, false
}

// Create inserts a new, never committed passfile with an id minted from
// the store's local counter.
func (c *Context[S]) Create(ctx context.Context, name string, passphrase []byte) (*models.PassFile[S], error) {
	id, err := c.store.NextLocalID(ctx, c.user)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	pf := &models.PassFile[S]{
		Info: models.Info{
			ID:               id,
			Type:             c.typ,
			Name:             name,
			CreatedOn:        now,
			InfoChangedOn:    now,
			VersionChangedOn: now,
			Version:          1,
		},
		Content: models.Content[S]{
			Sections:   []S{},
			Decrypted:  true,
			PassPhrase: common.CloneBytes(passphrase),
		},
	}
	c.states = append(c.states, &state[S]{current: pf})
	c.changed = true

	c.logger.Info(ctx, "passfile created", "id", id)
	return pf, nil
}

// Add inserts origin as a new working record, or, when replace is given,
// puts origin in place of the tracked record replace.
func (c *Context[S]) Add(origin, replace *models.PassFile[S]) error {
	if origin == nil {
		return fmt.Errorf("%w: add: nil passfile", common.ErrInvariant)
	}
	if origin.Type != c.typ {
		return fmt.Errorf("%w: add: passfile %d has type %s", common.ErrInvariant, origin.ID, origin.Type)
	}

	skip := -1
	if replace != nil {
		i, err := c.find("add", replace)
		if err != nil {
			return err
		}
		skip = i
	}
	for i, st := range c.states {
		if i == skip {
			continue
		}
		if (st.current != nil && st.current.ID == origin.ID) || (st.source != nil && st.source.ID == origin.ID) {
			return fmt.Errorf("%w: add: passfile %d already tracked", common.ErrInvariant, origin.ID)
		}
	}

	if skip >= 0 {
		c.states[skip].current = origin
	} else {
		c.states = append(c.states, &state[S]{current: origin})
	}
	c.changed = true
	return nil
}

// ApplyLocalInfoEdit registers a user edit of Name or Color.
func (c *Context[S]) ApplyLocalInfoEdit(pf *models.PassFile[S]) error {
	if _, err := c.find("local info edit", pf); err != nil {
		return err
	}
	pf.InfoChangedOn = c.clock.Now()
	c.changed = true
	return nil
}

// ApplyRemoteInfoBaseline records the record's info as matching the remote
// copy. It does not count as a local edit.
func (c *Context[S]) ApplyRemoteInfoBaseline(pf *models.PassFile[S]) error {
	if _, err := c.find("remote info baseline", pf); err != nil {
		return err
	}
	ensureOrigin(pf).InfoChangedOn = pf.InfoChangedOn
	return nil
}

// ApplyLocalContentEdit registers a user edit of the sections or of the
// passphrase. The cached ciphertext is dropped and rebuilt on commit.
func (c *Context[S]) ApplyLocalContentEdit(pf *models.PassFile[S]) error {
	i, err := c.find("local content edit", pf)
	if err != nil {
		return err
	}
	if !pf.Content.Decrypted {
		return ErrNotDecrypted
	}

	st := c.states[i]
	pf.VersionChangedOn = c.clock.Now()
	pf.Content.Encrypted = nil
	if st.source != nil && st.source.Version == pf.Version {
		pf.Version++
	}
	c.changed = true
	return nil
}

// ApplyRemoteContentBaseline records the record's version as matching the
// remote copy. It does not count as a local edit.
func (c *Context[S]) ApplyRemoteContentBaseline(pf *models.PassFile[S]) error {
	if _, err := c.find("remote content baseline", pf); err != nil {
		return err
	}
	o := ensureOrigin(pf)
	o.Version = pf.Version
	o.VersionChangedOn = pf.VersionChangedOn
	return nil
}

// Delete removes a record on behalf of the user. Never committed records
// disappear at once, never uploaded ones are purged on commit, and synced
// ones become tombstones until the deletion reaches the server.
func (c *Context[S]) Delete(pf *models.PassFile[S]) error {
	return c.delete(pf, false)
}

// AcceptRemoteDelete purges a record that no longer exists remotely.
func (c *Context[S]) AcceptRemoteDelete(pf *models.PassFile[S]) error {
	return c.delete(pf, true)
}

func (c *Context[S]) delete(pf *models.PassFile[S], fromOrigin bool) error {
	i, err := c.find("delete", pf)
	if err != nil {
		return err
	}
	st := c.states[i]

	switch {
	case st.source == nil:
		pf.Content.Wipe()
		c.states = append(c.states[:i], c.states[i+1:]...)
	case fromOrigin || pf.IsLocalOnly():
		st.current = nil
	default:
		now := c.clock.Now()
		pf.DeletedOn = &now
	}
	if !fromOrigin {
		c.changed = true
	}
	return nil
}

// Restore clears a tombstone. When the content is open this also counts as
// a content edit so the restored version is uploaded again.
func (c *Context[S]) Restore(pf *models.PassFile[S]) error {
	if _, err := c.find("restore", pf); err != nil {
		return err
	}
	if pf.DeletedOn == nil {
		return nil
	}
	pf.DeletedOn = nil
	c.changed = true
	if pf.Content.Decrypted {
		return c.ApplyLocalContentEdit(pf)
	}
	return nil
}

// SetMark replaces the sync annotations of a record. Marks are persisted on
// the next commit and are not a local edit.
func (c *Context[S]) SetMark(pf *models.PassFile[S], mark models.Mark) error {
	if _, err := c.find("set mark", pf); err != nil {
		return err
	}
	pf.Mark = mark
	return nil
}

// LoadContent opens the content of pf with passphrase, reading the
// committed ciphertext from the store when nothing is cached.
func (c *Context[S]) LoadContent(ctx context.Context, pf *models.PassFile[S], passphrase []byte) error {
	i, err := c.find("load content", pf)
	if err != nil {
		return err
	}
	if pf.Content.Decrypted {
		return nil
	}
	st := c.states[i]

	enc := pf.Content.Encrypted
	if enc == nil {
		if st.source == nil {
			return fmt.Errorf("%w: passfile %d has no stored content", common.ErrInvariant, pf.ID)
		}
		enc, err = c.store.LoadEncryptedContent(ctx, c.typ, st.source.ID, st.source.Version, c.user)
		if err != nil {
			return err
		}
	}

	sections, err := c.crypto.Open(enc, passphrase)
	if err != nil {
		c.logger.Warn(ctx, "passfile content could not be opened", "id", pf.ID, "error", err)
		return fmt.Errorf("open passfile %d: %w", pf.ID, err)
	}

	common.WipeByteArray(pf.Content.PassPhrase)
	pf.Content = models.Content[S]{
		Sections:   sections,
		Decrypted:  true,
		Encrypted:  enc,
		PassPhrase: common.CloneBytes(passphrase),
	}

	// The committed version is what was opened; cache it on the source so
	// a rollback keeps the content readable.
	if st.source != nil && st.source.ID == pf.ID && st.source.Version == pf.Version {
		st.source.Content = pf.Content.Clone()
	}
	return nil
}

// EncryptedContent returns the ciphertext of pf's working content: the
// cached one, a fresh encryption of open content, or the committed blob.
func (c *Context[S]) EncryptedContent(ctx context.Context, pf *models.PassFile[S]) ([]byte, error) {
	i, err := c.find("encrypted content", pf)
	if err != nil {
		return nil, err
	}
	if pf.Content.Encrypted != nil {
		return pf.Content.Encrypted, nil
	}
	if pf.Content.Decrypted {
		if err := c.crypto.Encrypt(pf); err != nil {
			return nil, err
		}
		return pf.Content.Encrypted, nil
	}
	st := c.states[i]
	if st.source == nil {
		return nil, fmt.Errorf("%w: passfile %d has no stored content", common.ErrInvariant, pf.ID)
	}
	data, err := c.store.LoadEncryptedContent(ctx, c.typ, st.source.ID, st.source.Version, c.user)
	if err != nil {
		return nil, err
	}
	pf.Content.Encrypted = data
	return data, nil
}

// Rollback discards every uncommitted change. Records that were never
// committed are dropped. The others are restored from the committed state;
// the passphrase already entered is kept so open content stays readable.
func (c *Context[S]) Rollback() {
	restored := make([]*state[S], 0, len(c.states))
	for _, st := range c.states {
		if st.source == nil {
			if st.current != nil {
				st.current.Content.Wipe()
			}
			continue
		}

		cur := st.source.Clone()
		if old := st.current; old != nil {
			if len(cur.Content.PassPhrase) == 0 && len(old.Content.PassPhrase) > 0 {
				cur.Content.PassPhrase = common.CloneBytes(old.Content.PassPhrase)
			}
			if cur.Content.Encrypted == nil && old.Content.Encrypted != nil &&
				old.ID == st.source.ID && old.Version == st.source.Version {
				cur.Content.Encrypted = common.CloneBytes(old.Content.Encrypted)
			}
			common.WipeByteArray(old.Content.PassPhrase)
		}
		if !cur.Content.Decrypted && cur.Content.Encrypted != nil && len(cur.Content.PassPhrase) > 0 {
			if sections, err := c.crypto.Open(cur.Content.Encrypted, cur.Content.PassPhrase); err == nil {
				cur.Content.Sections = sections
				cur.Content.Decrypted = true
			}
		}
		restored = append(restored, &state[S]{source: st.source, current: cur})
	}
	c.states = restored
	c.changed = false
}

// Dispose wipes every passphrase and forgets all records. The store is not
// touched.
func (c *Context[S]) Dispose() {
	c.wipeAll()
	c.states = nil
	c.changed = false
}

func (c *Context[S]) wipeAll() {
	for _, st := range c.states {
		if st.current != nil {
			st.current.Content.Wipe()
		}
		if st.source != nil {
			st.source.Content.Wipe()
		}
	}
}

// find locates the state whose working record is exactly pf.
func (c *Context[S]) find(op string, pf *models.PassFile[S]) (int, error) {
	if pf != nil {
		for i, st := range c.states {
			if st.current == pf {
				return i, nil
			}
		}
	}
	var id int64
	if pf != nil {
		id = pf.ID
	}
	c.logger.Error(context.Background(), "passfile is not tracked by this context", "op", op, "id", id)
	return -1, fmt.Errorf("%w: %s: passfile %d is not tracked by this context", common.ErrInvariant, op, id)
}

func ensureOrigin[S models.SectionKind](pf *models.PassFile[S]) *models.ChangeStamps {
	if pf.Origin == nil {
		pf.Origin = &models.ChangeStamps{}
	}
	return pf.Origin
}
