package program

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/GrafMine/ownership-nft/metaplex"
	"github.com/GrafMine/ownership-nft/token2022"
)

const (
	mintSeed     = "lottery_nft_mint"
	metadataSeed = "metadata"
)

// MintAddress derives the mint of the ownership nft of a ticket
func MintAddress(programID solana.PublicKey, ticket TicketID) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(mintSeed), ticket[:]}, programID)
}

// mintSeeds signs for the mint PDA
func mintSeeds(ticket TicketID, bump uint8) [][]byte {
	return [][]byte{[]byte(mintSeed), ticket[:], {bump}}
}

// CustomMetadataAddress derives the program owned metadata account of a mint
func CustomMetadataAddress(programID, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(metadataSeed), mint[:]}, programID)
}

// Addresses are the accounts an ownership nft mint creates or checks
type Addresses struct {
	Mint     solana.PublicKey `json:"mint"`
	MintBump uint8            `json:"mintBump"`
	// Metadata is the account the metadata pointer refers to
	Metadata     solana.PublicKey `json:"metadata"`
	MetadataBump uint8            `json:"metadataBump"`
	// MasterEdition is the system program when the strategy has no edition
	MasterEdition solana.PublicKey `json:"masterEdition"`
	TokenAccount  solana.PublicKey `json:"tokenAccount"`
}

// Addresses derives every account of the mint of a ticket to a payer
func (c Config) Addresses(ticket TicketID, payer solana.PublicKey) (Addresses, error) {
	var a Addresses
	var err error

	a.Mint, a.MintBump, err = MintAddress(c.ProgramID, ticket)
	if err != nil {
		return a, errors.Wrap(err, "failed to derive mint address")
	}

	a.MasterEdition = solana.SystemProgramID
	switch c.Strategy {
	case MetaplexMetadata:
		a.Metadata, a.MetadataBump, err = metaplex.MetadataAddress(a.Mint)
		if err != nil {
			return a, errors.Wrap(err, "failed to derive metadata address")
		}
		a.MasterEdition, _, err = metaplex.MasterEditionAddress(a.Mint)
		if err != nil {
			return a, errors.Wrap(err, "failed to derive master edition address")
		}
	case CustomAccountMetadata:
		a.Metadata, a.MetadataBump, err = CustomMetadataAddress(c.ProgramID, a.Mint)
		if err != nil {
			return a, errors.Wrap(err, "failed to derive metadata address")
		}
	default:
		a.Metadata = a.Mint
	}

	a.TokenAccount, _, err = token2022.FindAssociatedTokenAddress(payer, a.Mint)
	if err != nil {
		return a, errors.Wrap(err, "failed to derive token account address")
	}
	return a, nil
}
