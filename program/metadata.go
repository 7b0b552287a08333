package program

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/near/borsh-go"
	"github.com/pkg/errors"

	"github.com/GrafMine/ownership-nft/ledger"
	"github.com/GrafMine/ownership-nft/metaplex"
	"github.com/GrafMine/ownership-nft/token2022"
)

// MintContext is the state of one init_ownership_nft execution shared by its steps
type MintContext struct {
	IC        *ledger.InvokeContext
	Config    Config
	Ticket    TicketID
	Addresses Addresses
	Payer     solana.PublicKey
	// UpdateAuthority of the metadata, always the admin
	UpdateAuthority solana.PublicKey
	Authority       TokenMintAuthority

	Name   string
	Symbol string
	URI    string
}

// MetadataAttacher stores the name, symbol and uri of an ownership nft
type MetadataAttacher interface {
	// ExtraMintSpace the mint must be funded for on top of its allocation
	ExtraMintSpace(name, symbol, uri string) int
	// Attach runs once the mint and token account exist, before any token is minted
	Attach(mc *MintContext) error
	// Finalize runs after the token is minted
	Finalize(mc *MintContext) error
}

func newMetadataAttacher(s MetadataStrategy) (MetadataAttacher, error) {
	switch s {
	case MetaplexMetadata:
		return metaplexAttacher{}, nil
	case CustomAccountMetadata:
		return customAccountAttacher{}, nil
	case Token2022ExtensionMetadata:
		return extensionAttacher{}, nil
	default:
		return nil, errors.Errorf("unknown metadata strategy %d", s)
	}
}

// metaplexAttacher creates the Metaplex metadata account and, once the token exists, the master
// edition which takes over the mint and freeze authority
type metaplexAttacher struct{}

func (metaplexAttacher) ExtraMintSpace(string, string, string) int {
	return 0
}

func (metaplexAttacher) Attach(mc *MintContext) error {
	creators := []metaplex.Creator{{Address: mc.Config.Admin, Verified: true, Share: 100}}
	ix, err := metaplex.NewCreateMetadataAccountV3Instruction(
		metaplex.CreateMetadataAccountV3Accounts{
			Metadata:        mc.Addresses.Metadata,
			Mint:            mc.Addresses.Mint,
			MintAuthority:   mc.Authority.Key(),
			Payer:           mc.Payer,
			UpdateAuthority: mc.UpdateAuthority,
		},
		metaplex.CreateMetadataAccountV3Args{
			Data: metaplex.DataV2{
				Name:                 mc.Name,
				Symbol:               mc.Symbol,
				Uri:                  mc.URI,
				SellerFeeBasisPoints: 0,
				Creators:             &creators,
			},
			IsMutable: true,
		},
	)
	if err != nil {
		return err
	}
	mc.IC.Log("Creating Metaplex Metadata for Ownership NFT...")
	return mc.Authority.Invoke(mc.IC, ix)
}

func (metaplexAttacher) Finalize(mc *MintContext) error {
	maxSupply := uint64(0)
	ix, err := metaplex.NewCreateMasterEditionV3Instruction(
		metaplex.CreateMasterEditionV3Accounts{
			Edition:         mc.Addresses.MasterEdition,
			Mint:            mc.Addresses.Mint,
			UpdateAuthority: mc.UpdateAuthority,
			MintAuthority:   mc.Authority.Key(),
			Payer:           mc.Payer,
			Metadata:        mc.Addresses.Metadata,
			TokenProgram:    token2022.ProgramID,
		},
		&maxSupply,
	)
	if err != nil {
		return err
	}
	mc.IC.Log("Creating Master Edition for Ownership NFT...")
	return mc.Authority.Invoke(mc.IC, ix)
}

// extensionAttacher embeds the metadata in the mint, which the metadata pointer refers to
type extensionAttacher struct{}

func (extensionAttacher) ExtraMintSpace(name, symbol, uri string) int {
	return token2022.MetadataLen(name, symbol, uri)
}

func (extensionAttacher) Attach(mc *MintContext) error {
	ix, err := token2022.NewInitializeTokenMetadataInstruction(
		mc.Addresses.Mint,
		mc.UpdateAuthority,
		mc.Addresses.Mint,
		mc.Authority.Key(),
		mc.Name,
		mc.Symbol,
		mc.URI,
	)
	if err != nil {
		return err
	}
	mc.IC.Log("Initializing Token-2022 metadata for Ownership NFT...")
	return mc.Authority.Invoke(mc.IC, ix)
}

func (extensionAttacher) Finalize(*MintContext) error {
	return nil
}

// OwnershipMetadataDiscriminator prefixes the program owned metadata account
var OwnershipMetadataDiscriminator = bin.Sighash("account", "OwnershipMetadata")

// OwnershipMetadataSize is the allocation of a program owned metadata account, sized for the
// longest name, symbol and uri
const OwnershipMetadataSize = 8 + 32 + 32 + (4 + metaplex.MaxNameLength) + (4 + metaplex.MaxSymbolLength) + (4 + metaplex.MaxURILength) + 1

// OwnershipMetadata is the program owned metadata account of the custom account strategy
type OwnershipMetadata struct {
	Mint            solana.PublicKey
	UpdateAuthority solana.PublicKey
	Name            string
	Symbol          string
	URI             string
	Bump            uint8
}

// MarshalBinary encodes the account with its discriminator
func (m OwnershipMetadata) MarshalBinary() ([]byte, error) {
	raw, err := borsh.Serialize(m)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode ownership metadata")
	}
	return append(append([]byte{}, OwnershipMetadataDiscriminator...), raw...), nil
}

// DecodeOwnershipMetadata decodes a program owned metadata account
func DecodeOwnershipMetadata(data []byte) (*OwnershipMetadata, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], OwnershipMetadataDiscriminator) {
		return nil, errors.New("account is not an ownership metadata account")
	}
	var m OwnershipMetadata
	if err := borsh.Deserialize(&m, data[8:]); err != nil {
		return nil, errors.Wrap(err, "failed to decode ownership metadata")
	}
	return &m, nil
}

// customAccountAttacher writes the metadata into an account owned by the ownership program
type customAccountAttacher struct{}

func (customAccountAttacher) ExtraMintSpace(string, string, string) int {
	return 0
}

func (customAccountAttacher) Attach(mc *MintContext) error {
	ic := mc.IC
	mint := mc.Addresses.Mint
	metadata := mc.Addresses.Metadata

	ic.Log("Creating ownership metadata account %s...", metadata)
	err := ic.Invoke(
		system.NewCreateAccountInstruction(
			ic.Rent().MinimumBalance(OwnershipMetadataSize),
			OwnershipMetadataSize,
			mc.Config.ProgramID,
			mc.Payer,
			metadata,
		).Build(),
		[][]byte{[]byte(metadataSeed), mint[:], {mc.Addresses.MetadataBump}},
	)
	if err != nil {
		return err
	}

	raw, err := OwnershipMetadata{
		Mint:            mint,
		UpdateAuthority: mc.UpdateAuthority,
		Name:            mc.Name,
		Symbol:          mc.Symbol,
		URI:             mc.URI,
		Bump:            mc.Addresses.MetadataBump,
	}.MarshalBinary()
	if err != nil {
		return err
	}
	if len(raw) > OwnershipMetadataSize {
		return errors.Errorf("ownership metadata is %d bytes, the account holds %d", len(raw), OwnershipMetadataSize)
	}

	acc, err := ic.Load(metadata)
	if err != nil {
		return err
	}
	copy(acc.Data, raw)
	return nil
}

func (customAccountAttacher) Finalize(*MintContext) error {
	return nil
}
