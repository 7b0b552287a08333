package token2022

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// Metadata is the value of the TokenMetadata extension, as defined by the token metadata interface
type Metadata struct {
	// UpdateAuthority may change the metadata, the zero key means it is immutable
	UpdateAuthority solana.PublicKey
	Mint            solana.PublicKey
	Name            string
	Symbol          string
	URI             string
	// AdditionalMetadata key/value pairs
	AdditionalMetadata [][2]string
}

// MarshalBinary encodes the metadata with borsh
func (m Metadata) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteBytes(m.UpdateAuthority[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(m.Mint[:], false); err != nil {
		return nil, err
	}
	for _, s := range []string{m.Name, m.Symbol, m.URI} {
		if err := enc.WriteString(s); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteUint32(uint32(len(m.AdditionalMetadata)), bin.LE); err != nil {
		return nil, err
	}
	for _, kv := range m.AdditionalMetadata {
		if err := enc.WriteString(kv[0]); err != nil {
			return nil, err
		}
		if err := enc.WriteString(kv[1]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a borsh encoded metadata value
func (m *Metadata) UnmarshalBinary(data []byte) error {
	dec := bin.NewBorshDecoder(data)

	authority, err := dec.ReadNBytes(32)
	if err != nil {
		return errors.Wrap(err, "failed to read update authority")
	}
	mint, err := dec.ReadNBytes(32)
	if err != nil {
		return errors.Wrap(err, "failed to read mint")
	}
	m.UpdateAuthority = solana.PublicKeyFromBytes(authority)
	m.Mint = solana.PublicKeyFromBytes(mint)

	if m.Name, err = dec.ReadString(); err != nil {
		return errors.Wrap(err, "failed to read name")
	}
	if m.Symbol, err = dec.ReadString(); err != nil {
		return errors.Wrap(err, "failed to read symbol")
	}
	if m.URI, err = dec.ReadString(); err != nil {
		return errors.Wrap(err, "failed to read uri")
	}

	count, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return errors.Wrap(err, "failed to read additional metadata")
	}
	m.AdditionalMetadata = nil
	for i := uint32(0); i < count; i++ {
		k, err := dec.ReadString()
		if err != nil {
			return err
		}
		v, err := dec.ReadString()
		if err != nil {
			return err
		}
		m.AdditionalMetadata = append(m.AdditionalMetadata, [2]string{k, v})
	}
	return nil
}

// Len is the encoded length of the metadata value
func (m Metadata) Len() int {
	n := 32 + 32 + 4 + len(m.Name) + 4 + len(m.Symbol) + 4 + len(m.URI) + 4
	for _, kv := range m.AdditionalMetadata {
		n += 4 + len(kv[0]) + 4 + len(kv[1])
	}
	return n
}

// MetadataLen is the number of bytes initializing metadata with these fields adds to a mint
func MetadataLen(name, symbol, uri string) int {
	return VariableLen(Metadata{Name: name, Symbol: symbol, URI: uri}.Len())
}
