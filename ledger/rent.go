package ledger

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
)

// accountStorageOverhead is charged on top of the data length of every account
const accountStorageOverhead = 128

// Rent parameters, the layout of the rent sysvar
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
	BurnPercent         uint8
}

// DefaultRent as configured on every public cluster
var DefaultRent = Rent{
	LamportsPerByteYear: 3480,
	ExemptionThreshold:  2,
	BurnPercent:         50,
}

// MinimumBalance for an account holding size bytes to be rent exempt
func (r Rent) MinimumBalance(size int) uint64 {
	return uint64(float64((accountStorageOverhead+uint64(size))*r.LamportsPerByteYear) * r.ExemptionThreshold)
}

// IsExempt reports whether the balance covers rent exemption for size bytes
func (r Rent) IsExempt(lamports uint64, size int) bool {
	return lamports >= r.MinimumBalance(size)
}

func (r Rent) encode() []byte {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	// writes to a buffer can't fail
	_ = enc.WriteUint64(r.LamportsPerByteYear, bin.LE)
	_ = enc.WriteFloat64(r.ExemptionThreshold, bin.LE)
	_ = enc.WriteUint8(r.BurnPercent)
	return buf.Bytes()
}

// DecodeRent reads the rent sysvar account data
func DecodeRent(data []byte) (Rent, error) {
	var r Rent
	dec := bin.NewBinDecoder(data)
	var err error
	if r.LamportsPerByteYear, err = dec.ReadUint64(bin.LE); err != nil {
		return Rent{}, err
	}
	if r.ExemptionThreshold, err = dec.ReadFloat64(bin.LE); err != nil {
		return Rent{}, err
	}
	if r.BurnPercent, err = dec.ReadUint8(); err != nil {
		return Rent{}, err
	}
	return r, nil
}
