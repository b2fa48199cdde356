// Package cryptox contains the cryptographic primitives of passkeeper: the
// chained passfile cipher and the account key derivation.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/passkeeper/internal/common"
	"golang.org/x/crypto/sha3"
)

// Rounds is the number of chained cipher passes applied to passfile content.
const Rounds = 100

// fixedIV is shared by every pass. Each pass uses a distinct key, so the
// (key, IV) pair never repeats within one encryption.
var fixedIV = []byte{
	0x3a, 0x91, 0x5c, 0x0e, 0xd7, 0x42, 0xb8, 0x6f,
	0x14, 0xe3, 0x7d, 0x29, 0xa6, 0x50, 0xcb, 0x08,
}

var (
	// ErrEmptyPassphrase is returned when encryption or decryption is
	// attempted without a passphrase.
	ErrEmptyPassphrase = fmt.Errorf("%w: passphrase required", common.ErrValidation)

	// ErrInvalidCiphertext is returned for input that cannot be a chained
	// ciphertext at all (empty or not block aligned).
	ErrInvalidCiphertext = fmt.Errorf("%w: invalid ciphertext", common.ErrValidation)

	errBadPadding = errors.New("bad padding")
)

// DeriveKeys expands a passphrase into the Rounds keys used by the chain.
//
// Key i is SHA3-256 over the passphrase with the decimal token
// (Rounds-i)^(i mod 5) spliced in at offset len(passphrase)/2.
//
// The caller owns the returned keys and should wipe them after use.
func DeriveKeys(passphrase []byte) [][]byte {
	keys := make([][]byte, Rounds)
	offset := len(passphrase) / 2
	buf := make([]byte, 0, len(passphrase)+16)

	for i := 0; i < Rounds; i++ {
		token := strconv.Itoa(ipow(Rounds-i, i%5))

		buf = buf[:0]
		buf = append(buf, passphrase[:offset]...)
		buf = append(buf, token...)
		buf = append(buf, passphrase[offset:]...)

		sum := sha3.Sum256(buf)
		keys[i] = sum[:]
	}
	common.WipeByteArray(buf[:cap(buf)])

	return keys
}

// Encrypt applies Rounds chained AES-256-CBC passes over plain, each with
// its own derived key. The output of pass i is the input of pass i+1.
func Encrypt(plain, passphrase []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}

	keys := DeriveKeys(passphrase)
	defer wipeKeys(keys)

	data := plain
	for i := 0; i < Rounds; i++ {
		out, err := encryptPass(data, keys[i])
		if err != nil {
			return nil, fmt.Errorf("encrypt round %d: %w", i, err)
		}
		data = out
	}
	return data, nil
}

// Decrypt reverses Encrypt. A wrong passphrase is detected through padding
// validation and reported as common.ErrWrongPassphrase. Garbage that happens
// to unpad cleanly is caught one layer up, when the plaintext fails to decode.
func Decrypt(ciphertext, passphrase []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrInvalidCiphertext
	}

	keys := DeriveKeys(passphrase)
	defer wipeKeys(keys)

	data := ciphertext
	for i := Rounds - 1; i >= 0; i-- {
		out, err := decryptPass(data, keys[i])
		if err != nil {
			if errors.Is(err, errBadPadding) {
				return nil, common.ErrWrongPassphrase
			}
			return nil, fmt.Errorf("decrypt round %d: %w", i, err)
		}
		data = out
	}
	return data, nil
}

func encryptPass(plain, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plain, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, fixedIV).CryptBlocks(out, padded)
	return out, nil
}

func decryptPass(data, key []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, errBadPadding
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, fixedIV).CryptBlocks(out, data)
	return pkcs7Unpad(out, aes.BlockSize)
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(bytes.Clone(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 {
		return nil, errBadPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errBadPadding
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, errBadPadding
		}
	}
	return b[:len(b)-n], nil
}

func ipow(base, exp int) int {
	result := 1
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

func wipeKeys(keys [][]byte) {
	for _, k := range keys {
		common.WipeByteArray(k)
	}
}
