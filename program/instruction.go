package program

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/GrafMine/ownership-nft/metaplex"
	"github.com/GrafMine/ownership-nft/token2022"
)

// anchor prefixes instruction data with the sighash of the instruction name
var (
	InitOwnershipNftDiscriminator = bin.Sighash("global", "init_ownership_nft")
	InitializeDiscriminator       = bin.Sighash("global", "initialize")
)

// Accounts of init_ownership_nft, in instruction order
const (
	AccountMint = iota
	AccountMetadata
	AccountMasterEdition
	AccountTokenAccount
	AccountPayer
	AccountAdmin
	AccountUpdateAuthority
	AccountSystemProgram
	AccountTokenProgram
	AccountTokenMetadataProgram
	AccountRent
	AccountAssociatedTokenProgram
	AccountLegacyTokenProgram
	// AccountInstructionsSysvar is optional
	AccountInstructionsSysvar

	requiredAccounts = AccountInstructionsSysvar
)

var ErrUnknownInstruction = errors.New("instruction discriminator did not match any instruction of the program")

// InitOwnershipNftArgs is the borsh encoded argument of init_ownership_nft
type InitOwnershipNftArgs struct {
	TicketID [16]byte
}

// NewInitOwnershipNftInstruction builds the instruction minting the ownership nft of a ticket to payer
func NewInitOwnershipNftInstruction(cfg Config, ticket TicketID, payer solana.PublicKey) (*solana.GenericInstruction, Addresses, error) {
	addrs, err := cfg.Addresses(ticket, payer)
	if err != nil {
		return nil, addrs, err
	}

	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(InitOwnershipNftDiscriminator, false); err != nil {
		return nil, addrs, err
	}
	if err := enc.Encode(InitOwnershipNftArgs{TicketID: ticket}); err != nil {
		return nil, addrs, errors.Wrap(err, "failed to encode init_ownership_nft arguments")
	}

	// the edition placeholder of strategies without a master edition is not written
	edition := solana.Meta(addrs.MasterEdition)
	if !addrs.MasterEdition.Equals(solana.SystemProgramID) {
		edition = edition.WRITE()
	}

	return solana.NewInstruction(cfg.ProgramID, solana.AccountMetaSlice{
		solana.Meta(addrs.Mint).WRITE(),
		solana.Meta(addrs.Metadata).WRITE(),
		edition,
		solana.Meta(addrs.TokenAccount).WRITE(),
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(cfg.Admin).SIGNER(),
		solana.Meta(cfg.Admin).SIGNER(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(token2022.ProgramID),
		solana.Meta(metaplex.ProgramID),
		solana.Meta(solana.SysVarRentPubkey),
		solana.Meta(token2022.AssociatedTokenProgramID),
		solana.Meta(solana.TokenProgramID),
	}, buf.Bytes()), addrs, nil
}

// NewInitializeInstruction builds the diagnostic initialize instruction
func NewInitializeInstruction(programID solana.PublicKey) *solana.GenericInstruction {
	return solana.NewInstruction(programID, solana.AccountMetaSlice{}, InitializeDiscriminator)
}

// DecodeInitOwnershipNft returns the ticket id of init_ownership_nft instruction data
func DecodeInitOwnershipNft(data []byte) (TicketID, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], InitOwnershipNftDiscriminator) {
		return TicketID{}, ErrUnknownInstruction
	}
	var args InitOwnershipNftArgs
	if err := bin.NewBorshDecoder(data[8:]).Decode(&args); err != nil {
		return TicketID{}, errors.Wrap(err, "failed to decode init_ownership_nft arguments")
	}
	return TicketID(args.TicketID), nil
}
