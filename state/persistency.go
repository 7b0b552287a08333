package state

import (
	"encoding/json"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/GrafMine/ownership-nft/program"
)

// Receipt of a minted ownership nft
type Receipt struct {
	Ticket    program.TicketID         `json:"ticketId"`
	Owner     solana.PublicKey         `json:"owner"`
	Addresses program.Addresses        `json:"addresses"`
	Strategy  program.MetadataStrategy `json:"strategy"`
	Network   string                   `json:"network"`
	Signature solana.Signature         `json:"signature"`
	Slot      uint64                   `json:"slot"`
	Fee       uint64                   `json:"fee"`
	MintedAt  time.Time                `json:"mintedAt"`
}

type Receipts struct {
	Minted map[program.TicketID]Receipt `json:"minted"`
}

type ReceiptPersistency struct {
	location string
}

// NewReceiptPersistency creates new ReceiptPersistency object and returns a reference to it.
func NewReceiptPersistency(location string) *ReceiptPersistency {
	return &ReceiptPersistency{
		location: location,
	}
}

func (b *ReceiptPersistency) SaveReceipt(receipt Receipt) error {
	receipts, err := b.GetReceipts()
	if err != nil {
		return err
	}

	receipts.Minted[receipt.Ticket] = receipt
	return b.Save(receipts)
}

func (b *ReceiptPersistency) GetReceipts() (*Receipts, error) {
	receipts := Receipts{Minted: make(map[program.TicketID]Receipt)}
	file, err := os.ReadFile(b.location)
	if os.IsNotExist(err) {
		return &receipts, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read receipts")
	}
	err = json.Unmarshal(file, &receipts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode receipts in %s", b.location)
	}
	if receipts.Minted == nil {
		receipts.Minted = make(map[program.TicketID]Receipt)
	}

	return &receipts, nil
}

func (b *ReceiptPersistency) Save(receipts *Receipts) error {
	updatedPersistency, err := json.MarshalIndent(receipts, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(b.location, updatedPersistency, 0o644)
}
