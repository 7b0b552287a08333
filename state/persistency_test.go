package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafMine/ownership-nft/program"
)

func TestReceiptPersistency(t *testing.T) {
	location := filepath.Join(t.TempDir(), "receipts.json")
	p := NewReceiptPersistency(location)

	receipts, err := p.GetReceipts()
	require.NoError(t, err)
	assert.Empty(t, receipts.Minted)

	ticket := program.NewTicketID()
	owner := solana.NewWallet().PublicKey()
	addrs, err := program.DefaultConfig().Addresses(ticket, owner)
	require.NoError(t, err)

	receipt := Receipt{
		Ticket:    ticket,
		Owner:     owner,
		Addresses: addrs,
		Strategy:  program.Token2022ExtensionMetadata,
		Network:   "memory",
		Signature: solana.Signature{1, 2, 3},
		Slot:      4,
		Fee:       10000,
		MintedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.SaveReceipt(receipt))

	second := receipt
	second.Ticket = program.NewTicketID()
	second.Strategy = program.MetaplexMetadata
	require.NoError(t, p.SaveReceipt(second))

	receipts, err = NewReceiptPersistency(location).GetReceipts()
	require.NoError(t, err)
	require.Len(t, receipts.Minted, 2)
	assert.Equal(t, receipt, receipts.Minted[ticket])
	assert.Equal(t, program.MetaplexMetadata, receipts.Minted[second.Ticket].Strategy)

	raw, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Contains(t, string(raw), ticket.String())
	assert.Contains(t, string(raw), `"strategy": "token2022-extension"`)
}

func TestReceiptPersistencyCorrupt(t *testing.T) {
	location := filepath.Join(t.TempDir(), "receipts.json")
	require.NoError(t, os.WriteFile(location, []byte("{not json"), 0o644))

	_, err := NewReceiptPersistency(location).GetReceipts()
	assert.Error(t, err)
	assert.Error(t, NewReceiptPersistency(location).SaveReceipt(Receipt{}))
}
