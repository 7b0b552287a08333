package metaplex

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
	"github.com/pkg/errors"
)

// Instruction discriminators of the token metadata program
const (
	InstructionCreateMasterEditionV3   uint8 = 17
	InstructionCreateMetadataAccountV3 uint8 = 33
)

// CreateMetadataAccountV3Args is the borsh encoded argument of CreateMetadataAccountV3
type CreateMetadataAccountV3Args struct {
	Data              DataV2
	IsMutable         bool
	CollectionDetails *CollectionDetails
}

// CreateMetadataAccountV3Accounts lists the accounts of CreateMetadataAccountV3 in instruction order
type CreateMetadataAccountV3Accounts struct {
	Metadata        solana.PublicKey
	Mint            solana.PublicKey
	MintAuthority   solana.PublicKey
	Payer           solana.PublicKey
	UpdateAuthority solana.PublicKey
}

// NewCreateMetadataAccountV3Instruction creates the metadata account of a mint
func NewCreateMetadataAccountV3Instruction(accounts CreateMetadataAccountV3Accounts, args CreateMetadataAccountV3Args) (*solana.GenericInstruction, error) {
	raw, err := borsh.Serialize(args)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode metadata arguments")
	}
	data := append([]byte{InstructionCreateMetadataAccountV3}, raw...)

	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(accounts.Metadata).WRITE(),
		solana.Meta(accounts.Mint),
		solana.Meta(accounts.MintAuthority).SIGNER(),
		solana.Meta(accounts.Payer).WRITE().SIGNER(),
		solana.Meta(accounts.UpdateAuthority).SIGNER(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	}, data), nil
}

// DecodeCreateMetadataAccountV3 decodes the instruction data, discriminator included
func DecodeCreateMetadataAccountV3(data []byte) (*CreateMetadataAccountV3Args, error) {
	if len(data) == 0 || data[0] != InstructionCreateMetadataAccountV3 {
		return nil, errors.New("not a create metadata account v3 instruction")
	}
	dec := bin.NewBorshDecoder(data[1:])

	var args CreateMetadataAccountV3Args
	d, err := readData(dec)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read data")
	}
	args.Data = DataV2{
		Name:                 d.Name,
		Symbol:               d.Symbol,
		Uri:                  d.Uri,
		SellerFeeBasisPoints: d.SellerFeeBasisPoints,
		Creators:             d.Creators,
	}

	some, err := dec.ReadOption()
	if err != nil {
		return nil, err
	}
	if some {
		var c Collection
		if c.Verified, err = dec.ReadBool(); err != nil {
			return nil, err
		}
		if c.Key, err = readPublicKey(dec); err != nil {
			return nil, err
		}
		args.Data.Collection = &c
	}
	if some, err = dec.ReadOption(); err != nil {
		return nil, err
	}
	if some {
		var u Uses
		if u.UseMethod, err = dec.ReadUint8(); err != nil {
			return nil, err
		}
		if u.Remaining, err = dec.ReadUint64(bin.LE); err != nil {
			return nil, err
		}
		if u.Total, err = dec.ReadUint64(bin.LE); err != nil {
			return nil, err
		}
		args.Data.Uses = &u
	}

	if args.IsMutable, err = dec.ReadBool(); err != nil {
		return nil, errors.Wrap(err, "failed to read is mutable")
	}
	if some, err = dec.ReadOption(); err != nil {
		return nil, err
	}
	if some {
		variant, err := dec.ReadUint8()
		if err != nil {
			return nil, err
		}
		size, err := dec.ReadUint64(bin.LE)
		if err != nil {
			return nil, err
		}
		args.CollectionDetails = &CollectionDetails{Enum: borsh.Enum(variant), V1: CollectionDetailsV1{Size: size}}
	}
	return &args, nil
}

// CreateMasterEditionV3Accounts lists the accounts of CreateMasterEditionV3 in instruction order
type CreateMasterEditionV3Accounts struct {
	Edition         solana.PublicKey
	Mint            solana.PublicKey
	UpdateAuthority solana.PublicKey
	MintAuthority   solana.PublicKey
	Payer           solana.PublicKey
	Metadata        solana.PublicKey
	TokenProgram    solana.PublicKey
}

// NewCreateMasterEditionV3Instruction turns a mint with supply one into a master edition.
// A nil max supply allows unlimited prints.
func NewCreateMasterEditionV3Instruction(accounts CreateMasterEditionV3Accounts, maxSupply *uint64) (*solana.GenericInstruction, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint8(InstructionCreateMasterEditionV3); err != nil {
		return nil, err
	}
	if err := enc.WriteOption(maxSupply != nil); err != nil {
		return nil, err
	}
	if maxSupply != nil {
		if err := enc.WriteUint64(*maxSupply, bin.LE); err != nil {
			return nil, err
		}
	}

	tokenProgram := accounts.TokenProgram
	if tokenProgram.IsZero() {
		tokenProgram = solana.TokenProgramID
	}

	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(accounts.Edition).WRITE(),
		solana.Meta(accounts.Mint).WRITE(),
		solana.Meta(accounts.UpdateAuthority).SIGNER(),
		solana.Meta(accounts.MintAuthority).SIGNER(),
		solana.Meta(accounts.Payer).WRITE().SIGNER(),
		solana.Meta(accounts.Metadata).WRITE(),
		solana.Meta(tokenProgram),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	}, buf.Bytes()), nil
}

// DecodeCreateMasterEditionV3 returns the max supply of a CreateMasterEditionV3 instruction
func DecodeCreateMasterEditionV3(data []byte) (*uint64, error) {
	if len(data) == 0 || data[0] != InstructionCreateMasterEditionV3 {
		return nil, errors.New("not a create master edition v3 instruction")
	}
	dec := bin.NewBorshDecoder(data[1:])
	some, err := dec.ReadOption()
	if err != nil || !some {
		return nil, err
	}
	maxSupply, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read max supply")
	}
	return &maxSupply, nil
}
