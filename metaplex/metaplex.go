// Package metaplex builds and decodes the parts of the Metaplex token metadata program used to
// give an ownership NFT its name, symbol, uri and master edition.
package metaplex

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// ProgramID of the Metaplex token metadata program
var ProgramID = solana.TokenMetadataProgramID

const (
	// metadataSeed prefixes every token metadata PDA
	metadataSeed = "metadata"
	// editionSeed suffixes the edition PDA seeds
	editionSeed = "edition"

	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
	MaxCreatorLimit = 5

	// MetadataAccountSize is the fixed allocation of a metadata account
	MetadataAccountSize = 679
	// MasterEditionAccountSize is the fixed allocation of a master edition account
	MasterEditionAccountSize = 282
)

var (
	ErrNameTooLong        = errors.New("name too long")
	ErrSymbolTooLong      = errors.New("symbol too long")
	ErrURITooLong         = errors.New("uri too long")
	ErrCreatorsTooLong    = errors.New("creators list too long")
	ErrInvalidShares      = errors.New("share total must equal 100 for creator array")
	ErrInvalidBasisPoints = errors.New("basis points cannot be more than 10000")
)

// MetadataAddress derives the metadata account of a mint
func MetadataAddress(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte(metadataSeed),
		ProgramID[:],
		mint[:],
	}, ProgramID)
}

// MasterEditionAddress derives the master edition account of a mint
func MasterEditionAddress(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte(metadataSeed),
		ProgramID[:],
		mint[:],
		[]byte(editionSeed),
	}, ProgramID)
}
