package token2022

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// AssociatedTokenProgramID is the associated token account program
var AssociatedTokenProgramID = solana.SPLAssociatedTokenAccountProgramID

// Associated token account program instruction tags
const (
	ATAInstructionCreate           uint8 = 0
	ATAInstructionCreateIdempotent uint8 = 1
)

// FindAssociatedTokenAddress derives the associated token account of wallet for a mint of the
// token program 2022. solana.FindAssociatedTokenAddress only covers the legacy token program.
func FindAssociatedTokenAddress(wallet, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		wallet[:],
		ProgramID[:],
		mint[:],
	}, AssociatedTokenProgramID)
}

// CreateAssociatedTokenAccount builds the associated token account program Create instruction for
// a token program 2022 mint
type CreateAssociatedTokenAccount struct {
	Payer  solana.PublicKey
	Wallet solana.PublicKey
	Mint   solana.PublicKey
	// Idempotent succeeds when the account already exists with the expected owner and mint
	Idempotent bool
}

// NewCreateAssociatedTokenAccountBuilder creates a new builder.
func NewCreateAssociatedTokenAccountBuilder() *CreateAssociatedTokenAccount {
	return &CreateAssociatedTokenAccount{}
}

func (inst *CreateAssociatedTokenAccount) SetPayer(payer solana.PublicKey) *CreateAssociatedTokenAccount {
	inst.Payer = payer
	return inst
}

func (inst *CreateAssociatedTokenAccount) SetWallet(wallet solana.PublicKey) *CreateAssociatedTokenAccount {
	inst.Wallet = wallet
	return inst
}

func (inst *CreateAssociatedTokenAccount) SetMint(mint solana.PublicKey) *CreateAssociatedTokenAccount {
	inst.Mint = mint
	return inst
}

func (inst *CreateAssociatedTokenAccount) SetIdempotent(idempotent bool) *CreateAssociatedTokenAccount {
	inst.Idempotent = idempotent
	return inst
}

// Validate the builder parameters
func (inst *CreateAssociatedTokenAccount) Validate() error {
	if inst.Payer.IsZero() {
		return errors.New("Payer not set")
	}
	if inst.Wallet.IsZero() {
		return errors.New("Wallet not set")
	}
	if inst.Mint.IsZero() {
		return errors.New("Mint not set")
	}
	return nil
}

// ValidateAndBuild validates the parameters and derives the account to create
func (inst *CreateAssociatedTokenAccount) ValidateAndBuild() (*solana.GenericInstruction, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}

	ata, _, err := FindAssociatedTokenAddress(inst.Wallet, inst.Mint)
	if err != nil {
		return nil, errors.Wrap(err, "could not derive associated token address")
	}

	tag := ATAInstructionCreate
	if inst.Idempotent {
		tag = ATAInstructionCreateIdempotent
	}

	return solana.NewInstruction(AssociatedTokenProgramID, solana.AccountMetaSlice{
		solana.Meta(inst.Payer).WRITE().SIGNER(),
		solana.Meta(ata).WRITE(),
		solana.Meta(inst.Wallet),
		solana.Meta(inst.Mint),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(ProgramID),
	}, []byte{tag}), nil
}
