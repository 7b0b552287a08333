package token2022

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/pkg/errors"
)

// isInitializedOffset is the position of the is_initialized flag in the base mint
const isInitializedOffset = 45

// accountStateOffset is the position of the state byte in the base token account
const accountStateOffset = 108

// DecodeMint reads the base mint state from the account data
func DecodeMint(data []byte) (*token.Mint, error) {
	if len(data) < MintSize {
		return nil, errors.Errorf("mint data too short: %d bytes", len(data))
	}
	var mint token.Mint
	if err := mint.UnmarshalWithDecoder(bin.NewBinDecoder(data[:MintSize])); err != nil {
		return nil, errors.Wrap(err, "failed to decode mint")
	}
	return &mint, nil
}

// EncodeMint writes the base mint state into the first bytes of the account data
func EncodeMint(mint *token.Mint, data []byte) error {
	if len(data) < MintSize {
		return errors.Errorf("mint data too short: %d bytes", len(data))
	}
	buf := new(bytes.Buffer)
	if err := mint.MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		return errors.Wrap(err, "failed to encode mint")
	}
	copy(data[:MintSize], buf.Bytes())
	return nil
}

// MintInitialized reports whether the base mint in data has been initialized
func MintInitialized(data []byte) bool {
	return len(data) >= MintSize && data[isInitializedOffset] == 1
}

// DecodeAccount reads the base token account state from the account data
func DecodeAccount(data []byte) (*token.Account, error) {
	if len(data) < AccountSize {
		return nil, errors.Errorf("token account data too short: %d bytes", len(data))
	}
	var account token.Account
	if err := account.UnmarshalWithDecoder(bin.NewBinDecoder(data[:AccountSize])); err != nil {
		return nil, errors.Wrap(err, "failed to decode token account")
	}
	return &account, nil
}

// EncodeAccount writes the base token account state into the first bytes of the account data
func EncodeAccount(account *token.Account, data []byte) error {
	if len(data) < AccountSize {
		return errors.Errorf("token account data too short: %d bytes", len(data))
	}
	buf := new(bytes.Buffer)
	if err := account.MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		return errors.Wrap(err, "failed to encode token account")
	}
	copy(data[:AccountSize], buf.Bytes())
	return nil
}

// AccountInitialized reports whether the base token account in data has been initialized
func AccountInitialized(data []byte) bool {
	return len(data) >= AccountSize && token.AccountState(data[accountStateOffset]) != token.Uninitialized
}

// Pointer is the value of the metadata pointer, group pointer and transfer hook extensions:
// an optional authority followed by an optional address. The zero key means none.
type Pointer struct {
	Authority solana.PublicKey
	Address   solana.PublicKey
}

// MarshalBinary encodes the pointer as two OptionalNonZeroPubkey values
func (p Pointer) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, 64)
	out = append(out, p.Authority[:]...)
	out = append(out, p.Address[:]...)
	return out, nil
}

// DecodePointer reads a pointer extension value
func DecodePointer(value []byte) (Pointer, error) {
	if len(value) != 64 {
		return Pointer{}, errors.Errorf("pointer extension must be 64 bytes, got %d", len(value))
	}
	return Pointer{
		Authority: solana.PublicKeyFromBytes(value[:32]),
		Address:   solana.PublicKeyFromBytes(value[32:]),
	}, nil
}

// MintState is a decoded mint together with its extensions
type MintState struct {
	Mint       *token.Mint
	Extensions []Extension
}

// DecodeMintState decodes the base mint and its extension region
func DecodeMintState(data []byte) (*MintState, error) {
	mint, err := DecodeMint(data)
	if err != nil {
		return nil, err
	}
	kind, exts, err := ParseExtensions(data)
	if err != nil {
		return nil, err
	}
	if len(exts) > 0 && kind != AccountTypeMint {
		return nil, errors.Wrapf(ErrInvalidAccountType, "account type %d", kind)
	}
	return &MintState{Mint: mint, Extensions: exts}, nil
}

// Extension returns the raw value of the extension
func (m *MintState) Extension(typ ExtensionType) ([]byte, bool) {
	for _, ext := range m.Extensions {
		if ext.Type == typ {
			return ext.Value, true
		}
	}
	return nil, false
}

// Pointer decodes one of the pointer style extensions
func (m *MintState) Pointer(typ ExtensionType) (Pointer, bool) {
	value, ok := m.Extension(typ)
	if !ok {
		return Pointer{}, false
	}
	p, err := DecodePointer(value)
	if err != nil {
		return Pointer{}, false
	}
	return p, true
}

// Metadata decodes the embedded token metadata extension
func (m *MintState) Metadata() (*Metadata, bool) {
	value, ok := m.Extension(TokenMetadata)
	if !ok {
		return nil, false
	}
	var md Metadata
	if err := md.UnmarshalBinary(value); err != nil {
		return nil, false
	}
	return &md, true
}
