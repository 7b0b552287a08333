// Package program is the ownership nft program. For a ticket id it creates a Token-2022 mint at a
// PDA of the ticket, initializes its extensions, creates the payer's associated token account,
// attaches metadata with the configured strategy and mints exactly one token.
//
// The program executes inside a ledger; instruction data and accounts are the ones an anchor
// program would receive, so the client side builders work against a cluster as well.
package program

import (
	"bytes"
	"encoding/hex"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/GrafMine/ownership-nft/faults"
	"github.com/GrafMine/ownership-nft/ledger"
	"github.com/GrafMine/ownership-nft/metaplex"
	"github.com/GrafMine/ownership-nft/token2022"
)

// Program executes the instructions of the ownership program for one config
type Program struct {
	cfg      Config
	attacher MetadataAttacher
}

// New program for a valid config
func New(cfg Config) (*Program, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid program config")
	}
	attacher, err := newMetadataAttacher(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("program", cfg.ProgramID.String()).
		Str("strategy", cfg.Strategy.String()).
		Str("authority", cfg.MintAuthority.String()).
		Msg("ownership program loaded")
	return &Program{cfg: cfg, attacher: attacher}, nil
}

// Config the program runs with
func (p *Program) Config() Config {
	return p.cfg
}

// Register the program in a ledger at its program id
func (p *Program) Register(l *ledger.Ledger) {
	l.Register(p.cfg.ProgramID, p)
}

// Process dispatches on the anchor discriminator
func (p *Program) Process(ic *ledger.InvokeContext, data []byte) error {
	if len(data) < 8 {
		return errors.Wrap(ledger.ErrInvalidInstructionData, "instruction data is shorter than a discriminator")
	}
	switch {
	case bytes.Equal(data[:8], InitializeDiscriminator):
		ic.Log("Instruction: Initialize")
		ic.Log("Greetings from: %s", ic.ProgramID())
		return nil
	case bytes.Equal(data[:8], InitOwnershipNftDiscriminator):
		ic.Log("Instruction: InitOwnershipNft")
		ticket, err := DecodeInitOwnershipNft(data)
		if err != nil {
			return errors.Wrap(ledger.ErrInvalidInstructionData, err.Error())
		}
		return p.initOwnershipNft(ic, ticket)
	default:
		return errors.Wrap(ledger.ErrInvalidInstructionData, ErrUnknownInstruction.Error())
	}
}

func (p *Program) initOwnershipNft(ic *ledger.InvokeContext, ticket TicketID) error {
	mc, err := p.validate(ic, ticket)
	if err != nil {
		return err
	}

	if err := p.createMint(mc); err != nil {
		return err
	}
	if err := p.initializeExtensions(mc); err != nil {
		return err
	}

	ic.Log("Initializing Ownership NFT Mint data (decimals, authorities)...")
	if err := mc.Authority.InitializeMint(ic, mc.Addresses.Mint, p.cfg.Admin); err != nil {
		return err
	}

	ic.Log("Creating Ownership NFT ATA...")
	ata, err := token2022.NewCreateAssociatedTokenAccountBuilder().
		SetPayer(mc.Payer).
		SetWallet(mc.Payer).
		SetMint(mc.Addresses.Mint).
		SetIdempotent(p.cfg.TokenAccountInitIfNeeded).
		ValidateAndBuild()
	if err != nil {
		return err
	}
	if err := ic.Invoke(ata); err != nil {
		return err
	}

	if err := p.attacher.Attach(mc); err != nil {
		return err
	}

	ic.Log("Minting Ownership NFT...")
	if err := mc.Authority.MintTo(ic, mc.Addresses.Mint, mc.Addresses.TokenAccount, 1); err != nil {
		return err
	}

	return p.attacher.Finalize(mc)
}

// validate checks signers, programs and every derived address. Nothing is written before it passes.
func (p *Program) validate(ic *ledger.InvokeContext, ticket TicketID) (*MintContext, error) {
	accounts := ic.Accounts()
	if len(accounts) < requiredAccounts {
		return nil, errors.Wrapf(ledger.ErrNotEnoughAccountKeys, "init_ownership_nft needs %d accounts, got %d", requiredAccounts, len(accounts))
	}
	key := func(i int) solana.PublicKey { return accounts[i].PublicKey }

	addrs, err := p.cfg.Addresses(ticket, key(AccountPayer))
	if err != nil {
		return nil, err
	}

	ic.Log("ticketIdBytes (hex): %s", hex.EncodeToString(ticket[:]))
	ic.Log("ownershipNftMintPda: %s", key(AccountMint))
	ic.Log("ownershipNftMetadataPda (calculated): %s", addrs.Metadata)
	ic.Log("ownershipNftMetadataPda (from ctx): %s", key(AccountMetadata))
	ic.Log("ADMIN_TICKET_VALIDATOR: %s", p.cfg.Admin)
	ic.Log("admin.key(): %s", key(AccountAdmin))

	if !ic.IsSigner(key(AccountPayer)) {
		return nil, errors.Wrapf(ledger.ErrMissingSigner, "payer %s", key(AccountPayer))
	}
	if !key(AccountAdmin).Equals(p.cfg.Admin) || !ic.IsSigner(key(AccountAdmin)) {
		return nil, faults.ErrInvalidServerSigner
	}
	if !key(AccountUpdateAuthority).Equals(key(AccountAdmin)) || !ic.IsSigner(key(AccountUpdateAuthority)) {
		return nil, faults.ErrInvalidServerSigner
	}

	programs := map[int]solana.PublicKey{
		AccountSystemProgram:          solana.SystemProgramID,
		AccountTokenProgram:           token2022.ProgramID,
		AccountTokenMetadataProgram:   metaplex.ProgramID,
		AccountRent:                   solana.SysVarRentPubkey,
		AccountAssociatedTokenProgram: token2022.AssociatedTokenProgramID,
		AccountLegacyTokenProgram:     solana.TokenProgramID,
	}
	for i, expected := range programs {
		if !key(i).Equals(expected) {
			log.Debug().Int("account", i).Str("expected", expected.String()).Str("got", key(i).String()).Msg("unexpected program account")
			return nil, faults.ErrInvalidProgram
		}
	}

	derived := map[int]solana.PublicKey{
		AccountMint:          addrs.Mint,
		AccountMetadata:      addrs.Metadata,
		AccountMasterEdition: addrs.MasterEdition,
		AccountTokenAccount:  addrs.TokenAccount,
	}
	for i, expected := range derived {
		if !key(i).Equals(expected) {
			log.Debug().Int("account", i).Str("expected", expected.String()).Str("got", key(i).String()).Msg("account does not match derived address")
			return nil, faults.ErrInvalidProgram
		}
	}

	name, symbol, uri := p.cfg.Name(ticket), p.cfg.Symbol, p.cfg.URI(ticket)
	return &MintContext{
		IC:              ic,
		Config:          p.cfg,
		Ticket:          ticket,
		Addresses:       addrs,
		Payer:           key(AccountPayer),
		UpdateAuthority: key(AccountUpdateAuthority),
		Authority:       newTokenMintAuthority(p.cfg.MintAuthority, p.cfg.Admin, addrs.Mint, mintSeeds(ticket, addrs.MintBump)),
		Name:            name,
		Symbol:          symbol,
		URI:             uri,
	}, nil
}

// createMint allocates the mint at its PDA, sized for the configured extensions and funded for the
// metadata the strategy adds later
func (p *Program) createMint(mc *MintContext) error {
	ic := mc.IC
	ic.Log("Calculating size and rent for Ownership NFT Mint...")

	space, err := token2022.MintLen(p.cfg.MintExtensions()...)
	if err != nil {
		return err
	}
	funded := space + p.attacher.ExtraMintSpace(mc.Name, mc.Symbol, mc.URI)

	ic.Log("Creating Ownership NFT Mint Account (PDA)...")
	err = ic.Invoke(
		system.NewCreateAccountInstruction(
			ic.Rent().MinimumBalance(funded),
			uint64(space),
			token2022.ProgramID,
			mc.Payer,
			mc.Addresses.Mint,
		).Build(),
		mintSeeds(mc.Ticket, mc.Addresses.MintBump),
	)
	if err != nil {
		return err
	}
	ic.Log("Ownership NFT Mint Account created.")
	return nil
}

// initializeExtensions runs before the base mint is initialized, the token program rejects them after
func (p *Program) initializeExtensions(mc *MintContext) error {
	mint := mc.Addresses.Mint
	for _, ext := range p.cfg.MintExtensions() {
		var address solana.PublicKey
		switch ext {
		case token2022.MetadataPointer:
			address = mc.Addresses.Metadata
		case token2022.TransferHook:
			address = p.cfg.TransferHookProgram
		case token2022.GroupPointer:
			address = mint
		}
		ix, err := token2022.NewInitializePointerInstruction(ext, mint, p.cfg.Admin, address)
		if err != nil {
			return err
		}
		mc.IC.Log("Initializing %s for Ownership NFT...", ext)
		if err := mc.IC.Invoke(ix); err != nil {
			return err
		}
	}
	return nil
}
