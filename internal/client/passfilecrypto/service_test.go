package passfilecrypto

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/passkeeper/internal/client/models"
	"github.com/dmitrijs2005/passkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt_PwdRoundTrip(t *testing.T) {
	svc := New[models.PwdSection]()
	pf := &models.PassFile[models.PwdSection]{
		Info: models.Info{ID: 1, Name: "mail"},
		Content: models.Content[models.PwdSection]{
			Sections: []models.PwdSection{
				models.NewPwdSection("gmail", "https://mail.google.com",
					models.PwdItem{Value: "hunter2", Usage: []string{"me@gmail.com"}}),
			},
			Decrypted:  true,
			PassPhrase: []byte("open sesame"),
		},
	}

	require.NoError(t, svc.Encrypt(pf))
	require.NotEmpty(t, pf.Content.Encrypted)

	loaded := &models.PassFile[models.PwdSection]{
		Info:    pf.Info,
		Content: models.Content[models.PwdSection]{Encrypted: pf.Content.Encrypted},
	}
	require.NoError(t, svc.Decrypt(loaded, []byte("open sesame")))

	assert.True(t, loaded.Content.Decrypted)
	assert.Equal(t, pf.Content.Sections, loaded.Content.Sections)
	assert.Equal(t, []byte("open sesame"), loaded.Content.PassPhrase)
}

func TestDecrypt_WrongPassphraseLeavesRecordUntouched(t *testing.T) {
	svc := New[models.TxtSection]()
	ct, err := svc.Seal([]models.TxtSection{models.NewTxtSection("n", "secret text")}, []byte("right"))
	require.NoError(t, err)

	pf := &models.PassFile[models.TxtSection]{Content: models.Content[models.TxtSection]{Encrypted: ct}}
	err = svc.Decrypt(pf, []byte("wrong"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrWrongPassphrase))
	assert.True(t, errors.Is(err, common.ErrValidation))
	assert.False(t, pf.Content.Decrypted)
	assert.Nil(t, pf.Content.PassPhrase)
}

func TestSealOpen_EmptyContent(t *testing.T) {
	svc := New[models.TxtSection]()
	ct, err := svc.Seal(nil, []byte("pp"))
	require.NoError(t, err)

	out, err := svc.Open(ct, []byte("pp"))
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestEncrypt_Preconditions(t *testing.T) {
	svc := New[models.TxtSection]()

	err := svc.Encrypt(&models.PassFile[models.TxtSection]{})
	assert.ErrorIs(t, err, ErrNotDecrypted)

	err = svc.Encrypt(&models.PassFile[models.TxtSection]{Content: models.Content[models.TxtSection]{Decrypted: true}})
	assert.ErrorIs(t, err, common.ErrValidation)

	err = svc.Decrypt(&models.PassFile[models.TxtSection]{}, []byte("x"))
	assert.ErrorIs(t, err, ErrNoCiphertext)
}
