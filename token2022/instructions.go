package token2022

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// Instruction tags of the token program 2022 that the token package of solana-go doesn't know about
const (
	InstructionInitializeImmutableOwner    uint8 = 22
	InstructionTransferHookExtension       uint8 = 36
	InstructionMetadataPointerExtension    uint8 = 39
	InstructionGroupPointerExtension       uint8 = 40
	InstructionGroupMemberPointerExtension uint8 = 41

	// extensionInitialize is the sub instruction tag of every pointer style extension
	extensionInitialize uint8 = 0
)

// TokenMetadataInitializeDiscriminator prefixes the token metadata interface Initialize instruction
var TokenMetadataInitializeDiscriminator = bin.Sighash("spl_token_metadata_interface", "initialize_account")

// PointerExtensions maps the pointer style mint extensions to the instruction tag that initializes them
var PointerExtensions = map[ExtensionType]uint8{
	TransferHook:       InstructionTransferHookExtension,
	MetadataPointer:    InstructionMetadataPointerExtension,
	GroupPointer:       InstructionGroupPointerExtension,
	GroupMemberPointer: InstructionGroupMemberPointerExtension,
}

// NewInitializePointerInstruction initializes one of the pointer style extensions on an uninitialized mint.
// A zero authority or address is stored as none.
func NewInitializePointerInstruction(ext ExtensionType, mint, authority, address solana.PublicKey) (*solana.GenericInstruction, error) {
	tag, ok := PointerExtensions[ext]
	if !ok {
		return nil, errors.Errorf("%s is not a pointer extension", ext)
	}

	data := make([]byte, 0, 2+64)
	data = append(data, tag, extensionInitialize)
	data = append(data, authority[:]...)
	data = append(data, address[:]...)

	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(mint).WRITE(),
	}, data), nil
}

// NewInitializeMetadataPointerInstruction points the mint metadata at the given account
func NewInitializeMetadataPointerInstruction(mint, authority, metadata solana.PublicKey) *solana.GenericInstruction {
	ix, _ := NewInitializePointerInstruction(MetadataPointer, mint, authority, metadata)
	return ix
}

// NewInitializeTransferHookInstruction sets the transfer hook program of the mint
func NewInitializeTransferHookInstruction(mint, authority, hookProgram solana.PublicKey) *solana.GenericInstruction {
	ix, _ := NewInitializePointerInstruction(TransferHook, mint, authority, hookProgram)
	return ix
}

// NewInitializeGroupPointerInstruction points the mint group configuration at the given account
func NewInitializeGroupPointerInstruction(mint, authority, group solana.PublicKey) *solana.GenericInstruction {
	ix, _ := NewInitializePointerInstruction(GroupPointer, mint, authority, group)
	return ix
}

// DecodeInitializePointer returns the extension and pointer value of a pointer initialize instruction
func DecodeInitializePointer(data []byte) (ExtensionType, Pointer, error) {
	if len(data) != 2+64 {
		return 0, Pointer{}, errors.Errorf("invalid pointer initialize instruction length %d", len(data))
	}
	if data[1] != extensionInitialize {
		return 0, Pointer{}, errors.Errorf("unsupported extension instruction %d/%d", data[0], data[1])
	}
	for ext, tag := range PointerExtensions {
		if tag == data[0] {
			p, err := DecodePointer(data[2:])
			return ext, p, err
		}
	}
	return 0, Pointer{}, errors.Errorf("unknown extension instruction %d", data[0])
}

// IsPointerInstruction reports whether the instruction data initializes a pointer style extension
func IsPointerInstruction(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	for _, tag := range PointerExtensions {
		if tag == data[0] {
			return true
		}
	}
	return false
}

// NewInitializeImmutableOwnerInstruction marks an uninitialized token account as having an immutable owner
func NewInitializeImmutableOwnerInstruction(account solana.PublicKey) *solana.GenericInstruction {
	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(account).WRITE(),
	}, []byte{InstructionInitializeImmutableOwner})
}

// NewInitializeTokenMetadataInstruction writes name, symbol and uri into the metadata account, which
// for the token program 2022 is the mint itself. The mint authority must sign.
func NewInitializeTokenMetadataInstruction(metadata, updateAuthority, mint, mintAuthority solana.PublicKey, name, symbol, uri string) (*solana.GenericInstruction, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(TokenMetadataInitializeDiscriminator, false); err != nil {
		return nil, err
	}
	for _, s := range []string{name, symbol, uri} {
		if err := enc.WriteString(s); err != nil {
			return nil, errors.Wrap(err, "failed to encode token metadata")
		}
	}

	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(metadata).WRITE(),
		solana.Meta(updateAuthority),
		solana.Meta(mint),
		solana.Meta(mintAuthority).SIGNER(),
	}, buf.Bytes()), nil
}

// IsTokenMetadataInitialize reports whether the instruction data is a token metadata interface Initialize
func IsTokenMetadataInitialize(data []byte) bool {
	return len(data) >= 8 && bytes.Equal(data[:8], TokenMetadataInitializeDiscriminator)
}

// DecodeInitializeTokenMetadata returns name, symbol and uri of a token metadata Initialize instruction
func DecodeInitializeTokenMetadata(data []byte) (name, symbol, uri string, err error) {
	if !IsTokenMetadataInitialize(data) {
		return "", "", "", errors.New("not a token metadata initialize instruction")
	}
	dec := bin.NewBorshDecoder(data[8:])
	if name, err = dec.ReadString(); err != nil {
		return
	}
	if symbol, err = dec.ReadString(); err != nil {
		return
	}
	uri, err = dec.ReadString()
	return
}
