package program

import (
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/GrafMine/ownership-nft/faults"
)

// TicketID identifies the lottery ticket an ownership nft is minted for
type TicketID [16]byte

// NewTicketID returns a random ticket id
func NewTicketID() TicketID {
	return TicketID(uuid.New())
}

// ParseTicketID accepts the hyphenated, braced, urn or plain hex forms of a uuid
func ParseTicketID(s string) (TicketID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return TicketID{}, errors.Wrapf(faults.ErrInvalidTicketID, "%q", s)
	}
	return TicketID(id), nil
}

// TicketIDFromBytes copies a 16 byte ticket id
func TicketIDFromBytes(b []byte) (TicketID, error) {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return TicketID{}, errors.Wrapf(faults.ErrInvalidTicketID, "%d bytes", len(b))
	}
	return TicketID(id), nil
}

// String is the lower case hyphenated form
func (t TicketID) String() string {
	return uuid.UUID(t).String()
}

// Hex is the 32 lower case hex digits without separators
func (t TicketID) Hex() string {
	return hex.EncodeToString(t[:])
}

func (t TicketID) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TicketID) UnmarshalText(text []byte) error {
	id, err := ParseTicketID(string(text))
	if err != nil {
		return err
	}
	*t = id
	return nil
}
