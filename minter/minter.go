// Package minter builds, signs and submits ownership nft mints and keeps a receipt of every ticket
// that was minted
package minter

import (
	"context"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GrafMine/ownership-nft/faults"
	"github.com/GrafMine/ownership-nft/ledger"
	"github.com/GrafMine/ownership-nft/program"
	cluster "github.com/GrafMine/ownership-nft/solana"
	"github.com/GrafMine/ownership-nft/state"
)

var (
	// ErrAdminMismatch is returned when the admin key does not match the program config
	ErrAdminMismatch = errors.New("admin key does not match the configured admin")

	// ErrMintInProgress is returned when the ticket is being minted by another request
	ErrMintInProgress = errors.New("a mint for this ticket is already in progress")
)

// Submitter executes signed transactions, either on a cluster or in an in-process ledger
type Submitter interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	Submit(ctx context.Context, tx *solana.Transaction) (*cluster.Confirmation, error)
	Fetcher(ctx context.Context) program.AccountFetcher
	Rent(ctx context.Context) (ledger.Rent, error)
}

type Minter struct {
	cfg       program.Config
	submitter Submitter
	network   string

	payer solana.PrivateKey
	admin solana.PrivateKey

	persistency *state.ReceiptPersistency
	receipts    map[program.TicketID]state.Receipt
	pending     map[program.TicketID]struct{}

	m sync.RWMutex
}

// New minter submitting with the payer and admin keys. Receipts of earlier runs are loaded from
// the persistency.
func New(cfg program.Config, submitter Submitter, network string, payer, admin solana.PrivateKey, persistency *state.ReceiptPersistency) (*Minter, error) {
	if !admin.PublicKey().Equals(cfg.Admin) {
		return nil, errors.Wrapf(ErrAdminMismatch, "admin key %s, configured %s", admin.PublicKey(), cfg.Admin)
	}

	receipts, err := persistency.GetReceipts()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load receipts")
	}
	log.Info().Int("receipts", len(receipts.Minted)).Str("payer", payer.PublicKey().String()).Msg("Minter loaded")

	return &Minter{
		cfg:         cfg,
		submitter:   submitter,
		network:     network,
		payer:       payer,
		admin:       admin,
		persistency: persistency,
		receipts:    receipts.Minted,
		pending:     make(map[program.TicketID]struct{}),
	}, nil
}

// Config of the program the minter submits to
func (m *Minter) Config() program.Config {
	return m.cfg
}

// Payer of the mints, which also owns the minted tokens
func (m *Minter) Payer() solana.PublicKey {
	return m.payer.PublicKey()
}

// Receipt of a minted ticket
func (m *Minter) Receipt(ticket program.TicketID) (state.Receipt, bool) {
	m.m.RLock()
	defer m.m.RUnlock()

	r, ok := m.receipts[ticket]
	return r, ok
}

// Mint the ownership nft of a ticket. A ticket with a receipt is not submitted again, its receipt
// is returned together with faults.ErrAlreadyMinted.
func (m *Minter) Mint(ctx context.Context, ticket program.TicketID) (*state.Receipt, error) {
	if err := m.reserve(ticket); err != nil {
		if r, ok := m.Receipt(ticket); ok {
			return &r, err
		}
		return nil, err
	}
	defer m.release(ticket)

	logger := log.With().Str("ticket", ticket.String()).Logger()

	addrs, err := m.cfg.Addresses(ticket, m.Payer())
	if err != nil {
		return nil, err
	}
	// the mint can exist without a receipt when it was minted by another process
	data, _, err := m.submitter.Fetcher(ctx)(addrs.Mint)
	if err != nil {
		return nil, err
	}
	if data != nil {
		return nil, errors.Wrapf(faults.ErrAlreadyMinted, "mint %s exists", addrs.Mint)
	}

	tx, err := m.transaction(ctx, ticket)
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("mint", addrs.Mint.String()).Msg("Submitting ownership nft mint")
	conf, err := m.submitter.Submit(ctx, tx)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountInUse) {
			return nil, errors.Wrap(faults.ErrAlreadyMinted, err.Error())
		}
		return nil, errors.Wrap(err, "failed to mint ownership nft")
	}
	for _, line := range conf.Logs {
		logger.Debug().Msg(line)
	}

	receipt := state.Receipt{
		Ticket:    ticket,
		Owner:     m.Payer(),
		Addresses: addrs,
		Strategy:  m.cfg.Strategy,
		Network:   m.network,
		Signature: conf.Signature,
		Slot:      conf.Slot,
		Fee:       conf.Fee,
		MintedAt:  time.Now().UTC(),
	}
	m.m.Lock()
	m.receipts[ticket] = receipt
	err = m.persistency.SaveReceipt(receipt)
	m.m.Unlock()
	if err != nil {
		// the nft exists on chain, the receipt is kept in memory
		logger.Error().Err(err).Msg("Failed to persist receipt")
	}

	logger.Info().
		Str("mint", addrs.Mint.String()).
		Str("tokenAccount", addrs.TokenAccount.String()).
		Str("signature", conf.Signature.String()).
		Msg("Ownership nft minted")
	return &receipt, nil
}

// transaction builds and signs the mint of a ticket: the compute unit limit followed by
// init_ownership_nft, paid by the payer and co-signed by the admin
func (m *Minter) transaction(ctx context.Context, ticket program.TicketID) (*solana.Transaction, error) {
	ix, _, err := program.NewInitOwnershipNftInstruction(m.cfg, ticket, m.Payer())
	if err != nil {
		return nil, err
	}
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		data, _ := ix.Data()
		if decoded, err := program.DecodeInitOwnershipNft(data); err == nil {
			spew.Dump(decoded)
		}
	}

	recent, err := m.submitter.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction([]solana.Instruction{
		cluster.ComputeUnitLimitInstruction(),
		ix,
	}, recent, solana.TransactionPayer(m.Payer()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create mint transaction")
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		switch {
		case m.payer.PublicKey().Equals(key):
			return &m.payer
		case m.admin.PublicKey().Equals(key):
			return &m.admin
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign mint transaction")
	}
	return tx, nil
}

// Plan the mint of a ticket without submitting it
func (m *Minter) Plan(ctx context.Context, ticket program.TicketID) (*program.Plan, error) {
	rent, err := m.submitter.Rent(ctx)
	if err != nil {
		return nil, err
	}
	return m.cfg.Plan(ticket, m.ownerOf(ticket), rent)
}

// Inspect reads back the ownership nft of a ticket
func (m *Minter) Inspect(ctx context.Context, ticket program.TicketID) (*program.Holding, error) {
	addrs, err := m.cfg.Addresses(ticket, m.ownerOf(ticket))
	if err != nil {
		return nil, err
	}
	return m.cfg.Inspect(addrs, m.submitter.Fetcher(ctx))
}

func (m *Minter) ownerOf(ticket program.TicketID) solana.PublicKey {
	if r, ok := m.Receipt(ticket); ok {
		return r.Owner
	}
	return m.Payer()
}

func (m *Minter) reserve(ticket program.TicketID) error {
	m.m.Lock()
	defer m.m.Unlock()

	if _, ok := m.receipts[ticket]; ok {
		return faults.ErrAlreadyMinted
	}
	if _, ok := m.pending[ticket]; ok {
		return ErrMintInProgress
	}
	m.pending[ticket] = struct{}{}
	return nil
}

func (m *Minter) release(ticket program.TicketID) {
	m.m.Lock()
	defer m.m.Unlock()

	delete(m.pending, ticket)
}
