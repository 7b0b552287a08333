package program

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/GrafMine/ownership-nft/ledger"
)

// TokenMintAuthority holds the mint authority of an ownership nft and signs the token program
// instructions that require it
type TokenMintAuthority interface {
	// Key recorded as mint authority
	Key() solana.PublicKey
	// InitializeMint writes the base mint: no decimals, the authority and the admin as freeze authority
	InitializeMint(ic *ledger.InvokeContext, mint, freezeAuthority solana.PublicKey) error
	// MintTo mints amount tokens into account
	MintTo(ic *ledger.InvokeContext, mint, account solana.PublicKey, amount uint64) error
	// Invoke calls an instruction that lists Key as a signer
	Invoke(ic *ledger.InvokeContext, ix solana.Instruction) error
}

func newTokenMintAuthority(mode MintAuthorityMode, admin, mint solana.PublicKey, seeds [][]byte) TokenMintAuthority {
	if mode == PDAMintAuthority {
		return &pdaAuthority{mint: mint, seeds: seeds}
	}
	return &adminAuthority{admin: admin}
}

// adminAuthority is the admin co-signer of the transaction
type adminAuthority struct {
	admin solana.PublicKey
}

func (a *adminAuthority) Key() solana.PublicKey {
	return a.admin
}

func (a *adminAuthority) InitializeMint(ic *ledger.InvokeContext, mint, freezeAuthority solana.PublicKey) error {
	return initializeMint(ic, mint, a.admin, freezeAuthority)
}

func (a *adminAuthority) MintTo(ic *ledger.InvokeContext, mint, account solana.PublicKey, amount uint64) error {
	return a.Invoke(ic, token.NewMintToInstruction(amount, mint, account, a.admin, nil).Build())
}

func (a *adminAuthority) Invoke(ic *ledger.InvokeContext, ix solana.Instruction) error {
	return ic.Invoke(ix)
}

// pdaAuthority is the mint PDA, it signs with the seeds of the mint
type pdaAuthority struct {
	mint  solana.PublicKey
	seeds [][]byte
}

func (a *pdaAuthority) Key() solana.PublicKey {
	return a.mint
}

func (a *pdaAuthority) InitializeMint(ic *ledger.InvokeContext, mint, freezeAuthority solana.PublicKey) error {
	return initializeMint(ic, mint, a.mint, freezeAuthority)
}

func (a *pdaAuthority) MintTo(ic *ledger.InvokeContext, mint, account solana.PublicKey, amount uint64) error {
	return a.Invoke(ic, token.NewMintToInstruction(amount, mint, account, a.mint, nil).Build())
}

func (a *pdaAuthority) Invoke(ic *ledger.InvokeContext, ix solana.Instruction) error {
	return ic.Invoke(ix, a.seeds)
}

func initializeMint(ic *ledger.InvokeContext, mint, mintAuthority, freezeAuthority solana.PublicKey) error {
	return ic.Invoke(token.NewInitializeMintInstruction(0, mintAuthority, freezeAuthority, mint, solana.SysVarRentPubkey).Build())
}
