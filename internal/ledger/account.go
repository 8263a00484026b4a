package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"hash/crc32"
)

// Subaccount selects one of an owner's accounts; the zero value is the default
type Subaccount [32]byte

// AccountIdentifier is the 32-byte ledger address: a crc32 checksum followed by
// the sha224 hash of the owner and subaccount.
type AccountIdentifier [32]byte

var (
	ErrAccountLength   = errors.New("account identifier must be 64 hex characters")
	ErrAccountChecksum = errors.New("account identifier checksum mismatch")
)

// NewAccountIdentifier derives the account of owner under subaccount (nil means default)
func NewAccountIdentifier(owner []byte, subaccount *Subaccount) AccountIdentifier {
	var sub Subaccount
	if subaccount != nil {
		sub = *subaccount
	}
	h := sha256.New224()
	h.Write([]byte("\x0Aaccount-id"))
	h.Write(owner)
	h.Write(sub[:])
	sum := h.Sum(nil)

	var id AccountIdentifier
	binary.BigEndian.PutUint32(id[:4], crc32.ChecksumIEEE(sum))
	copy(id[4:], sum)
	return id
}

// ParseAccountIdentifier decodes a hex account identifier and checks its checksum
func ParseAccountIdentifier(s string) (AccountIdentifier, error) {
	var id AccountIdentifier
	if len(s) != 64 {
		return id, ErrAccountLength
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	copy(id[:], raw)
	if binary.BigEndian.Uint32(id[:4]) != crc32.ChecksumIEEE(id[4:]) {
		return id, ErrAccountChecksum
	}
	return id, nil
}

func (a AccountIdentifier) String() string {
	return hex.EncodeToString(a[:])
}
