package token2022

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var (
	// ErrExtensionAlreadyInitialized is returned when an extension is written twice
	ErrExtensionAlreadyInitialized = errors.New("extension already initialized on this account")

	// ErrNoExtensionSpace is returned when the account was not allocated with room for the extension
	ErrNoExtensionSpace = errors.New("account does not have enough space for the extension")

	// ErrInvalidAccountType is returned when the account type byte does not match the expected account kind
	ErrInvalidAccountType = errors.New("invalid account type for extension")

	// ErrMalformedTLV is returned when a TLV entry runs past the end of the account data
	ErrMalformedTLV = errors.New("malformed extension data")
)

// Extension is one TLV entry of an account
type Extension struct {
	Type  ExtensionType
	Value []byte
}

const tlvStart = AccountSize + accountTypeSize

// HasExtensions reports whether the account data is long enough to carry an extension region
func HasExtensions(data []byte) bool {
	return len(data) > AccountSize
}

// ParseExtensions returns the account type and every initialized TLV entry of the account data.
// Values alias the input slice.
func ParseExtensions(data []byte) (AccountType, []Extension, error) {
	if !HasExtensions(data) {
		return AccountTypeUninitialized, nil, nil
	}
	kind := AccountType(data[AccountSize])

	var out []Extension
	offset := tlvStart
	for offset+tlvHeaderSize <= len(data) {
		typ := ExtensionType(binary.LittleEndian.Uint16(data[offset:]))
		length := int(binary.LittleEndian.Uint16(data[offset+2:]))
		if typ == Uninitialized {
			break
		}
		start := offset + tlvHeaderSize
		if start+length > len(data) {
			return kind, nil, errors.Wrapf(ErrMalformedTLV, "%s entry at offset %d", typ, offset)
		}
		out = append(out, Extension{Type: typ, Value: data[start : start+length]})
		offset = start + length
	}
	return kind, out, nil
}

// ExtensionTypes lists the types of all initialized extensions in the account data
func ExtensionTypes(data []byte) ([]ExtensionType, error) {
	_, exts, err := ParseExtensions(data)
	if err != nil {
		return nil, err
	}
	out := make([]ExtensionType, 0, len(exts))
	for _, ext := range exts {
		out = append(out, ext.Type)
	}
	return out, nil
}

// FindExtension returns the value of the extension if the account carries it
func FindExtension(data []byte, typ ExtensionType) ([]byte, bool) {
	_, exts, err := ParseExtensions(data)
	if err != nil {
		return nil, false
	}
	for _, ext := range exts {
		if ext.Type == typ {
			return ext.Value, true
		}
	}
	return nil, false
}

// InitExtension writes a new extension into the pre-allocated extension region of data
func InitExtension(data []byte, kind AccountType, typ ExtensionType, value []byte) error {
	if !HasExtensions(data) {
		return errors.Wrapf(ErrNoExtensionSpace, "%s", typ)
	}
	if err := setAccountType(data, kind); err != nil {
		return err
	}

	offset := tlvStart
	for offset+tlvHeaderSize <= len(data) {
		existing := ExtensionType(binary.LittleEndian.Uint16(data[offset:]))
		length := int(binary.LittleEndian.Uint16(data[offset+2:]))
		if existing == Uninitialized {
			return writeEntry(data, offset, typ, value)
		}
		if existing == typ {
			return errors.Wrapf(ErrExtensionAlreadyInitialized, "%s", typ)
		}
		offset += tlvHeaderSize + length
	}
	return errors.Wrapf(ErrNoExtensionSpace, "%s", typ)
}

// AppendExtension grows data by one TLV entry, this is how variable length extensions are added
// after the account was allocated. The caller must have reallocated the account for the new length.
func AppendExtension(data []byte, kind AccountType, typ ExtensionType, value []byte) ([]byte, error) {
	if _, ok := FindExtension(data, typ); ok {
		return nil, errors.Wrapf(ErrExtensionAlreadyInitialized, "%s", typ)
	}
	if !HasExtensions(data) {
		return nil, errors.Wrapf(ErrNoExtensionSpace, "%s", typ)
	}

	used, err := usedLen(data)
	if err != nil {
		return nil, err
	}

	out := make([]byte, used+tlvHeaderSize+len(value))
	copy(out, data[:used])
	if err := setAccountType(out, kind); err != nil {
		return nil, err
	}
	if err := writeEntry(out, used, typ, value); err != nil {
		return nil, err
	}
	return out, nil
}

// usedLen is the offset right after the last initialized TLV entry
func usedLen(data []byte) (int, error) {
	offset := tlvStart
	for offset+tlvHeaderSize <= len(data) {
		typ := ExtensionType(binary.LittleEndian.Uint16(data[offset:]))
		if typ == Uninitialized {
			break
		}
		length := int(binary.LittleEndian.Uint16(data[offset+2:]))
		if offset+tlvHeaderSize+length > len(data) {
			return 0, ErrMalformedTLV
		}
		offset += tlvHeaderSize + length
	}
	return offset, nil
}

func setAccountType(data []byte, kind AccountType) error {
	switch AccountType(data[AccountSize]) {
	case AccountTypeUninitialized:
		data[AccountSize] = byte(kind)
	case kind:
	default:
		return errors.Wrapf(ErrInvalidAccountType, "account type %d", data[AccountSize])
	}
	return nil
}

func writeEntry(data []byte, offset int, typ ExtensionType, value []byte) error {
	end := offset + tlvHeaderSize + len(value)
	if end > len(data) {
		return errors.Wrapf(ErrNoExtensionSpace, "%s needs %d bytes", typ, tlvHeaderSize+len(value))
	}
	binary.LittleEndian.PutUint16(data[offset:], uint16(typ))
	binary.LittleEndian.PutUint16(data[offset+2:], uint16(len(value)))
	copy(data[offset+tlvHeaderSize:end], value)
	return nil
}
