package metaplex

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"
	"github.com/pkg/errors"
)

// Metadata account state
type Metadata struct {
	Key                 Key
	UpdateAuthority     solana.PublicKey
	Mint                solana.PublicKey
	Data                Data
	PrimarySaleHappened bool
	IsMutable           bool
	EditionNonce        *uint8
	TokenStandard       *TokenStandard
	Collection          *Collection
	Uses                *Uses
	CollectionDetails   *CollectionDetails
	ProgrammableConfig  *ProgrammableConfig
}

// Name without padding
func (m Metadata) Name() string {
	return Unpuff(m.Data.Name)
}

// Symbol without padding
func (m Metadata) Symbol() string {
	return Unpuff(m.Data.Symbol)
}

// URI without padding
func (m Metadata) URI() string {
	return Unpuff(m.Data.Uri)
}

// MasterEditionV2 account state
type MasterEditionV2 struct {
	Key       Key
	Supply    uint64
	MaxSupply *uint64
}

// EncodeMetadata serializes the metadata padded to the fixed metadata allocation
func EncodeMetadata(md *Metadata) ([]byte, error) {
	return encodePadded(*md, MetadataAccountSize)
}

// EncodeMasterEdition serializes the edition padded to the fixed master edition allocation
func EncodeMasterEdition(me *MasterEditionV2) ([]byte, error) {
	return encodePadded(*me, MasterEditionAccountSize)
}

// encodePadded takes the state by value, borsh-go writes a pointer as an option
func encodePadded(v interface{}, size int) ([]byte, error) {
	raw, err := borsh.Serialize(v)
	if err != nil {
		return nil, err
	}
	if len(raw) > size {
		return nil, errors.Errorf("encoded account is %d bytes, larger than its %d byte allocation", len(raw), size)
	}
	out := make([]byte, size)
	copy(out, raw)
	return out, nil
}

// The decoders below walk the layout by hand: borsh-go turns a None option into a pointer to the
// zero value, which makes Some(0) and None indistinguishable for max supply and token standard.

// DecodeMetadata reads a metadata account, trailing allocation padding is ignored
func DecodeMetadata(data []byte) (*Metadata, error) {
	dec := bin.NewBorshDecoder(data)

	key, err := dec.ReadUint8()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read key")
	}
	if Key(key) != KeyMetadataV1 {
		return nil, errors.Errorf("account is not a metadata account, key %d", key)
	}

	md := Metadata{Key: Key(key)}
	if md.UpdateAuthority, err = readPublicKey(dec); err != nil {
		return nil, errors.Wrap(err, "failed to read update authority")
	}
	if md.Mint, err = readPublicKey(dec); err != nil {
		return nil, errors.Wrap(err, "failed to read mint")
	}
	if md.Data, err = readData(dec); err != nil {
		return nil, errors.Wrap(err, "failed to read data")
	}
	if md.PrimarySaleHappened, err = dec.ReadBool(); err != nil {
		return nil, err
	}
	if md.IsMutable, err = dec.ReadBool(); err != nil {
		return nil, err
	}

	// accounts written by older program versions end here
	if !dec.HasRemaining() {
		return &md, nil
	}
	if md.EditionNonce, err = readOptionalUint8(dec); err != nil {
		return nil, errors.Wrap(err, "failed to read edition nonce")
	}
	standard, err := readOptionalUint8(dec)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read token standard")
	}
	if standard != nil {
		ts := TokenStandard(*standard)
		md.TokenStandard = &ts
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
		md.Collection = &c
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
		md.Uses = &u
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
		md.CollectionDetails = &CollectionDetails{Enum: borsh.Enum(variant), V1: CollectionDetailsV1{Size: size}}
	}

	if !dec.HasRemaining() {
		return &md, nil
	}
	if some, err = dec.ReadOption(); err != nil {
		return nil, err
	}
	if some {
		variant, err := dec.ReadUint8()
		if err != nil {
			return nil, err
		}
		pc := &ProgrammableConfig{Enum: borsh.Enum(variant)}
		hasRuleSet, err := dec.ReadOption()
		if err != nil {
			return nil, err
		}
		if hasRuleSet {
			rs, err := readPublicKey(dec)
			if err != nil {
				return nil, err
			}
			pc.V1.RuleSet = &rs
		}
		md.ProgrammableConfig = pc
	}

	return &md, nil
}

// DecodeMasterEdition reads a master edition account
func DecodeMasterEdition(data []byte) (*MasterEditionV2, error) {
	dec := bin.NewBorshDecoder(data)

	key, err := dec.ReadUint8()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read key")
	}
	if Key(key) != KeyMasterEditionV2 {
		return nil, errors.Errorf("account is not a master edition account, key %d", key)
	}
	me := MasterEditionV2{Key: Key(key)}
	if me.Supply, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, errors.Wrap(err, "failed to read supply")
	}
	some, err := dec.ReadOption()
	if err != nil {
		return nil, err
	}
	if some {
		maxSupply, err := dec.ReadUint64(bin.LE)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read max supply")
		}
		me.MaxSupply = &maxSupply
	}
	return &me, nil
}

func readPublicKey(dec *bin.Decoder) (solana.PublicKey, error) {
	raw, err := dec.ReadNBytes(32)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(raw), nil
}

func readOptionalUint8(dec *bin.Decoder) (*uint8, error) {
	some, err := dec.ReadOption()
	if err != nil || !some {
		return nil, err
	}
	v, err := dec.ReadUint8()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readCreators(dec *bin.Decoder) (*[]Creator, error) {
	some, err := dec.ReadOption()
	if err != nil || !some {
		return nil, err
	}
	count, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, err
	}
	if count > MaxCreatorLimit {
		return nil, ErrCreatorsTooLong
	}
	creators := make([]Creator, 0, count)
	for i := uint32(0); i < count; i++ {
		var c Creator
		if c.Address, err = readPublicKey(dec); err != nil {
			return nil, err
		}
		if c.Verified, err = dec.ReadBool(); err != nil {
			return nil, err
		}
		if c.Share, err = dec.ReadUint8(); err != nil {
			return nil, err
		}
		creators = append(creators, c)
	}
	return &creators, nil
}

func readData(dec *bin.Decoder) (Data, error) {
	var d Data
	var err error
	if d.Name, err = dec.ReadString(); err != nil {
		return d, err
	}
	if d.Symbol, err = dec.ReadString(); err != nil {
		return d, err
	}
	if d.Uri, err = dec.ReadString(); err != nil {
		return d, err
	}
	if d.SellerFeeBasisPoints, err = dec.ReadUint16(bin.LE); err != nil {
		return d, err
	}
	d.Creators, err = readCreators(dec)
	return d, err
}
