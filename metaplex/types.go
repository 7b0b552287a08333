package metaplex

import (
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
)

// Key identifies the kind of a token metadata account
type Key uint8

const (
	KeyUninitialized Key = iota
	KeyEditionV1
	KeyMasterEditionV1
	KeyReservationListV1
	KeyMetadataV1
	KeyReservationListV2
	KeyMasterEditionV2
	KeyEditionMarker
)

// TokenStandard of a mint as recorded in its metadata
type TokenStandard uint8

const (
	TokenStandardNonFungible TokenStandard = iota
	TokenStandardFungibleAsset
	TokenStandardFungible
	TokenStandardNonFungibleEdition
	TokenStandardProgrammableNonFungible
)

type Creator struct {
	Address  solana.PublicKey
	Verified bool
	Share    uint8
}

type Collection struct {
	Verified bool
	Key      solana.PublicKey
}

type Uses struct {
	UseMethod uint8
	Remaining uint64
	Total     uint64
}

type CollectionDetails struct {
	Enum borsh.Enum `borsh_enum:"true"`
	V1   CollectionDetailsV1
}

type CollectionDetailsV1 struct {
	Size uint64
}

type ProgrammableConfig struct {
	Enum borsh.Enum `borsh_enum:"true"`
	V1   ProgrammableConfigV1
}

type ProgrammableConfigV1 struct {
	RuleSet *solana.PublicKey
}

// Data is the display data stored in a metadata account
type Data struct {
	Name                 string
	Symbol               string
	Uri                  string
	SellerFeeBasisPoints uint16
	Creators             *[]Creator
}

// DataV2 is the instruction input for metadata creation
type DataV2 struct {
	Name                 string
	Symbol               string
	Uri                  string
	SellerFeeBasisPoints uint16
	Creators             *[]Creator
	Collection           *Collection
	Uses                 *Uses
}

// Validate checks the lengths and creator shares the way the metadata program does
func (d DataV2) Validate() error {
	if len(d.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if len(d.Symbol) > MaxSymbolLength {
		return ErrSymbolTooLong
	}
	if len(d.Uri) > MaxURILength {
		return ErrURITooLong
	}
	if d.SellerFeeBasisPoints > 10000 {
		return ErrInvalidBasisPoints
	}
	if d.Creators != nil {
		if len(*d.Creators) > MaxCreatorLimit {
			return ErrCreatorsTooLong
		}
		total := 0
		for _, c := range *d.Creators {
			total += int(c.Share)
		}
		if len(*d.Creators) > 0 && total != 100 {
			return ErrInvalidShares
		}
	}
	return nil
}

// Puffed returns the on-chain form of the data, strings padded with zero bytes to their maximum length
func (d DataV2) Puffed() Data {
	return Data{
		Name:                 puff(d.Name, MaxNameLength),
		Symbol:               puff(d.Symbol, MaxSymbolLength),
		Uri:                  puff(d.Uri, MaxURILength),
		SellerFeeBasisPoints: d.SellerFeeBasisPoints,
		Creators:             d.Creators,
	}
}

func puff(s string, size int) string {
	if len(s) >= size {
		return s
	}
	return s + strings.Repeat("\x00", size-len(s))
}

// Unpuff strips the zero padding of an on-chain string
func Unpuff(s string) string {
	return strings.TrimRight(s, "\x00")
}
