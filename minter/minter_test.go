package minter

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafMine/ownership-nft/faults"
	"github.com/GrafMine/ownership-nft/ledger"
	"github.com/GrafMine/ownership-nft/program"
	"github.com/GrafMine/ownership-nft/state"
)

type testMinter struct {
	*Minter
	ledger   *ledger.Ledger
	location string
}

func newTestMinter(t *testing.T, opts ...program.Option) *testMinter {
	payer, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	admin, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	cfg, err := program.NewConfig(append([]program.Option{program.WithAdmin(admin.PublicKey())}, opts...)...)
	require.NoError(t, err)
	prog, err := program.New(cfg)
	require.NoError(t, err)

	l := ledger.New()
	l.Airdrop(payer.PublicKey(), 10*solana.LAMPORTS_PER_SOL)

	location := filepath.Join(t.TempDir(), "receipts.json")
	m, err := New(cfg, NewLedgerSubmitter(l, prog), "memory", payer, admin, state.NewReceiptPersistency(location))
	require.NoError(t, err)
	return &testMinter{Minter: m, ledger: l, location: location}
}

func TestMint(t *testing.T) {
	m := newTestMinter(t)
	ctx := context.Background()
	ticket := program.NewTicketID()

	receipt, err := m.Mint(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, ticket, receipt.Ticket)
	assert.Equal(t, m.Payer(), receipt.Owner)
	assert.Equal(t, "memory", receipt.Network)
	assert.Equal(t, program.Token2022ExtensionMetadata, receipt.Strategy)
	// payer and admin sign
	assert.Equal(t, uint64(2*ledger.LamportsPerSignature), receipt.Fee)

	stored, ok := m.Receipt(ticket)
	require.True(t, ok)
	assert.Equal(t, *receipt, stored)

	holding, err := m.Inspect(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), holding.Supply)
	assert.Equal(t, uint64(1), holding.Amount)
	assert.Equal(t, m.Config().Name(ticket), holding.Name)

	persisted, err := state.NewReceiptPersistency(m.location).GetReceipts()
	require.NoError(t, err)
	assert.Contains(t, persisted.Minted, ticket)
}

func TestMintTwice(t *testing.T) {
	m := newTestMinter(t)
	ctx := context.Background()
	ticket := program.NewTicketID()

	first, err := m.Mint(ctx, ticket)
	require.NoError(t, err)
	slot := m.ledger.Slot()

	again, err := m.Mint(ctx, ticket)
	assert.ErrorIs(t, err, faults.ErrAlreadyMinted)
	require.NotNil(t, again)
	assert.Equal(t, first.Signature, again.Signature)
	assert.Equal(t, slot, m.ledger.Slot(), "nothing was submitted")
}

func TestMintWithoutReceipt(t *testing.T) {
	m := newTestMinter(t)
	ctx := context.Background()
	ticket := program.NewTicketID()

	_, err := m.Mint(ctx, ticket)
	require.NoError(t, err)

	// a second minter on the same ledger has no receipt for the ticket
	restarted, err := New(m.Config(), &LedgerSubmitter{ledger: m.ledger}, "memory", m.payer, m.admin, state.NewReceiptPersistency(filepath.Join(t.TempDir(), "other.json")))
	require.NoError(t, err)
	_, err = restarted.Mint(ctx, ticket)
	assert.ErrorIs(t, err, faults.ErrAlreadyMinted)
}

func TestReceiptsSurviveRestart(t *testing.T) {
	m := newTestMinter(t)
	ctx := context.Background()
	ticket := program.NewTicketID()

	_, err := m.Mint(ctx, ticket)
	require.NoError(t, err)

	restarted, err := New(m.Config(), &LedgerSubmitter{ledger: m.ledger}, "memory", m.payer, m.admin, state.NewReceiptPersistency(m.location))
	require.NoError(t, err)
	_, ok := restarted.Receipt(ticket)
	assert.True(t, ok)
}

func TestConcurrentMints(t *testing.T) {
	m := newTestMinter(t, program.WithStrategy(program.CustomAccountMetadata), program.WithNameStyle(program.HexName), program.WithSymbol("OWN"))
	ctx := context.Background()

	tickets := make([]program.TicketID, 8)
	for i := range tickets {
		tickets[i] = program.NewTicketID()
	}

	var wg sync.WaitGroup
	errs := make([]error, len(tickets)*2)
	for i, ticket := range tickets {
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(n int, ticket program.TicketID) {
				defer wg.Done()
				_, errs[n] = m.Mint(ctx, ticket)
			}(i*2+j, ticket)
		}
	}
	wg.Wait()

	// exactly one of the two mints of every ticket succeeds
	for i := range tickets {
		failed := 0
		for _, err := range errs[i*2 : i*2+2] {
			if err != nil {
				failed++
				assert.True(t, errorsIsAny(err, faults.ErrAlreadyMinted, ErrMintInProgress), err.Error())
			}
		}
		assert.Equal(t, 1, failed)
		_, ok := m.Receipt(tickets[i])
		assert.True(t, ok)
	}
}

func TestAdminMismatch(t *testing.T) {
	payer, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	admin, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	_, err = New(program.DefaultConfig(), nil, "memory", payer, admin, state.NewReceiptPersistency(filepath.Join(t.TempDir(), "r.json")))
	assert.ErrorIs(t, err, ErrAdminMismatch)
}

func TestPlan(t *testing.T) {
	m := newTestMinter(t)
	ticket := program.NewTicketID()

	plan, err := m.Plan(context.Background(), ticket)
	require.NoError(t, err)
	assert.Equal(t, 302, plan.MintSize)

	receipt, err := m.Mint(context.Background(), ticket)
	require.NoError(t, err)
	assert.Equal(t, plan.Addresses, receipt.Addresses)
}

func TestInspectUnknownTicket(t *testing.T) {
	m := newTestMinter(t)

	_, err := m.Inspect(context.Background(), program.NewTicketID())
	assert.ErrorIs(t, err, faults.ErrUnknownTicket)
}

func errorsIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
