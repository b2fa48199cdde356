// Package passfilecrypto turns passfile sections into ciphertext and back:
// sections are serialized with the content codec and then run through the
// chained cipher.
package passfilecrypto

import (
	"fmt"

	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/codec"
	"github.com/dmitrijs2005/passkeeper/internal/common"
	"github.com/dmitrijs2005/passkeeper/internal/cryptox"
)

// ErrNotDecrypted is returned when encrypting content that was never opened.
var ErrNotDecrypted = fmt.Errorf("%w: content is not decrypted", common.ErrValidation)

// ErrNoCiphertext is returned when decrypting content with nothing cached.
var ErrNoCiphertext = fmt.Errorf("%w: no encrypted content", common.ErrValidation)

// Service encrypts and decrypts the content of passfiles of one kind.
// It holds no state.
type Service[S models.SectionKind] struct{}

func New[S models.SectionKind]() *Service[S] {
	return &Service[S]{}
}

// Seal serializes and encrypts sections with passphrase.
func (s *Service[S]) Seal(sections []S, passphrase []byte) ([]byte, error) {
	if sections == nil {
		sections = []S{}
	}
	plain, err := codec.EncodeContent(sections)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(plain)

	return cryptox.Encrypt(plain, passphrase)
}

// Open decrypts and decodes ciphertext. Every failure after the cipher
// layer is reported as common.ErrWrongPassphrase: a wrong key and corrupt
// data are indistinguishable here.
func (s *Service[S]) Open(ciphertext, passphrase []byte) ([]S, error) {
	plain, err := cryptox.Decrypt(ciphertext, passphrase)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(plain)

	var sections []S
	if err := codec.DecodeContent(plain, &sections); err != nil {
		return nil, common.ErrWrongPassphrase
	}
	if sections == nil {
		sections = []S{}
	}
	return sections, nil
}

// Encrypt fills pf.Content.Encrypted from the decrypted sections using the
// passphrase held in the content.
func (s *Service[S]) Encrypt(pf *models.PassFile[S]) error {
	if !pf.Content.Decrypted {
		return ErrNotDecrypted
	}
	ct, err := s.Seal(pf.Content.Sections, pf.Content.PassPhrase)
	if err != nil {
		return fmt.Errorf("encrypt passfile %d: %w", pf.ID, err)
	}
	pf.Content.Encrypted = ct
	return nil
}

// Decrypt opens pf.Content.Encrypted with passphrase. On success the
// sections are attached and a copy of the passphrase is kept in memory.
// On failure pf is left unchanged.
func (s *Service[S]) Decrypt(pf *models.PassFile[S], passphrase []byte) error {
	if len(pf.Content.Encrypted) == 0 {
		return ErrNoCiphertext
	}
	sections, err := s.Open(pf.Content.Encrypted, passphrase)
	if err != nil {
		return fmt.Errorf("decrypt passfile %d: %w", pf.ID, err)
	}

	common.WipeByteArray(pf.Content.PassPhrase)
	pf.Content.Sections = sections
	pf.Content.Decrypted = true
	pf.Content.PassPhrase = common.CloneBytes(passphrase)
	return nil
}
