package token2022

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/pkg/errors"
)

var (
	// ErrVariableLength is returned when a fixed size is requested for an extension whose size depends on its content
	ErrVariableLength = errors.New("extension has a variable length")

	// ErrUnknownExtension is returned for extension types this package can't size
	ErrUnknownExtension = errors.New("unknown extension type")
)

// ProgramID of the token program with extensions
var ProgramID = solana.Token2022ProgramID

// Point the token instruction builders at the token program 2022, every mint created here lives there
func init() {
	token.SetProgramID(ProgramID)
}

const (
	// MintSize is the length of the base mint state
	MintSize = 82
	// AccountSize is the length of the base token account state, mints with extensions are padded up to it
	AccountSize = 165
	// multisigSize is never allowed as the length of an account with extensions
	multisigSize = 355

	accountTypeSize   = 1
	extensionTypeSize = 2
	tlvHeaderSize     = 4
)

// AccountType stored right after the base state of accounts carrying extensions
type AccountType uint8

const (
	AccountTypeUninitialized AccountType = iota
	AccountTypeMint
	AccountTypeAccount
)

// ExtensionType is the u16 tag of a TLV entry
type ExtensionType uint16

const (
	Uninitialized ExtensionType = iota
	TransferFeeConfig
	TransferFeeAmount
	MintCloseAuthority
	ConfidentialTransferMint
	ConfidentialTransferAccount
	DefaultAccountState
	ImmutableOwner
	MemoTransfer
	NonTransferable
	InterestBearingConfig
	CpiGuard
	PermanentDelegate
	NonTransferableAccount
	TransferHook
	TransferHookAccount
	ConfidentialTransferFeeConfig
	ConfidentialTransferFeeAmount
	MetadataPointer
	TokenMetadata
	GroupPointer
	TokenGroup
	GroupMemberPointer
	TokenGroupMember
)

var extensionNames = map[ExtensionType]string{
	Uninitialized:                 "Uninitialized",
	TransferFeeConfig:             "TransferFeeConfig",
	TransferFeeAmount:             "TransferFeeAmount",
	MintCloseAuthority:            "MintCloseAuthority",
	ConfidentialTransferMint:      "ConfidentialTransferMint",
	ConfidentialTransferAccount:   "ConfidentialTransferAccount",
	DefaultAccountState:           "DefaultAccountState",
	ImmutableOwner:                "ImmutableOwner",
	MemoTransfer:                  "MemoTransfer",
	NonTransferable:               "NonTransferable",
	InterestBearingConfig:         "InterestBearingConfig",
	CpiGuard:                      "CpiGuard",
	PermanentDelegate:             "PermanentDelegate",
	NonTransferableAccount:        "NonTransferableAccount",
	TransferHook:                  "TransferHook",
	TransferHookAccount:           "TransferHookAccount",
	ConfidentialTransferFeeConfig: "ConfidentialTransferFeeConfig",
	ConfidentialTransferFeeAmount: "ConfidentialTransferFeeAmount",
	MetadataPointer:               "MetadataPointer",
	TokenMetadata:                 "TokenMetadata",
	GroupPointer:                  "GroupPointer",
	TokenGroup:                    "TokenGroup",
	GroupMemberPointer:            "GroupMemberPointer",
	TokenGroupMember:              "TokenGroupMember",
}

func (e ExtensionType) String() string {
	if name, ok := extensionNames[e]; ok {
		return name
	}
	return fmt.Sprintf("ExtensionType(%d)", uint16(e))
}

// MarshalText encodes the extension by name
func (e ExtensionType) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText decodes an extension name
func (e *ExtensionType) UnmarshalText(text []byte) error {
	for typ, name := range extensionNames {
		if name == string(text) {
			*e = typ
			return nil
		}
	}
	return errors.Wrapf(ErrUnknownExtension, "%q", text)
}

// fixed value lengths of the extensions we know how to lay out
var extensionSizes = map[ExtensionType]int{
	TransferFeeConfig:      108,
	TransferFeeAmount:      8,
	MintCloseAuthority:     32,
	InterestBearingConfig:  52,
	DefaultAccountState:    1,
	ImmutableOwner:         0,
	MemoTransfer:           1,
	NonTransferable:        0,
	CpiGuard:               1,
	PermanentDelegate:      32,
	NonTransferableAccount: 0,
	TransferHook:           64,
	TransferHookAccount:    1,
	MetadataPointer:        64,
	GroupPointer:           64,
	GroupMemberPointer:     64,
	TokenGroup:             80,
	TokenGroupMember:       72,
}

// Size of the extension value, without the TLV header
func (e ExtensionType) Size() (int, error) {
	if e == TokenMetadata {
		return 0, ErrVariableLength
	}
	size, ok := extensionSizes[e]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownExtension, "%s", e)
	}
	return size, nil
}

// AccountType the extension belongs to
func (e ExtensionType) AccountType() AccountType {
	switch e {
	case TransferFeeAmount, ConfidentialTransferAccount, ImmutableOwner, MemoTransfer, CpiGuard,
		NonTransferableAccount, TransferHookAccount, ConfidentialTransferFeeAmount:
		return AccountTypeAccount
	case Uninitialized:
		return AccountTypeUninitialized
	default:
		return AccountTypeMint
	}
}

// MintLen returns the number of bytes a mint with the given fixed size extensions occupies
func MintLen(extensions ...ExtensionType) (int, error) {
	return stateLen(MintSize, AccountTypeMint, extensions)
}

// AccountLen returns the number of bytes a token account with the given fixed size extensions occupies
func AccountLen(extensions ...ExtensionType) (int, error) {
	return stateLen(AccountSize, AccountTypeAccount, extensions)
}

func stateLen(base int, kind AccountType, extensions []ExtensionType) (int, error) {
	if len(extensions) == 0 {
		return base, nil
	}

	size := AccountSize + accountTypeSize
	seen := make(map[ExtensionType]struct{}, len(extensions))
	for _, ext := range extensions {
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}

		if ext.AccountType() != kind {
			return 0, errors.Errorf("extension %s can't be used on this account type", ext)
		}
		n, err := ext.Size()
		if err != nil {
			return 0, err
		}
		size += tlvHeaderSize + n
	}

	if size == multisigSize {
		size += extensionTypeSize
	}
	return size, nil
}

// VariableLen is the number of bytes a variable length extension adds to an account, header included
func VariableLen(valueLen int) int {
	return tlvHeaderSize + valueLen
}

// RequiredAccountExtensions lists the extensions a token account needs to hold the given mint
func RequiredAccountExtensions(mintExtensions []ExtensionType) []ExtensionType {
	var out []ExtensionType
	for _, ext := range mintExtensions {
		switch ext {
		case TransferHook:
			out = append(out, TransferHookAccount)
		case NonTransferable:
			out = append(out, NonTransferableAccount)
		case TransferFeeConfig:
			out = append(out, TransferFeeAmount)
		}
	}
	return out
}
