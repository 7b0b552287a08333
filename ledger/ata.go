package ledger

import (
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/pkg/errors"

	"github.com/GrafMine/ownership-nft/token2022"
)

// ErrInvalidOwner is returned by the associated token account program when an existing account has
// an unexpected owner
var ErrInvalidOwner = errors.New("associated token account owner does not match address derivation")

func processAssociatedToken(ic *InvokeContext, data []byte) error {
	idempotent := false
	switch {
	case len(data) == 0 || data[0] == token2022.ATAInstructionCreate:
		ic.Log("Create")
	case data[0] == token2022.ATAInstructionCreateIdempotent:
		ic.Log("CreateIdempotent")
		idempotent = true
	default:
		return errors.Wrapf(ErrInvalidInstructionData, "unsupported associated token instruction %d", data[0])
	}

	if err := requireAccounts(ic, 6); err != nil {
		return err
	}
	metas := ic.Accounts()
	payer, address, wallet, mint, tokenProgram := metas[0].PublicKey, metas[1].PublicKey, metas[2].PublicKey, metas[3].PublicKey, metas[5].PublicKey

	if !tokenProgram.Equals(token2022.ProgramID) {
		return errors.Wrapf(ErrIncorrectProgramID, "token program %s", tokenProgram)
	}
	expected, bump, err := token2022.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return errors.Wrap(ErrInvalidSeeds, err.Error())
	}
	if !expected.Equals(address) {
		ic.Log("Error: Associated address does not match seed derivation")
		return errors.Wrapf(ErrInvalidSeeds, "expected associated token account %s, got %s", expected, address)
	}

	acc, err := ic.Load(address)
	if err != nil {
		return err
	}
	if idempotent && acc.Owner.Equals(tokenProgram) && token2022.AccountInitialized(acc.Data) {
		existing, err := token2022.DecodeAccount(acc.Data)
		if err != nil {
			return errors.Wrap(ErrInvalidAccountData, err.Error())
		}
		if !existing.Owner.Equals(wallet) || !existing.Mint.Equals(mint) {
			return ErrInvalidOwner
		}
		return nil
	}

	mintAccount, err := ic.Load(mint)
	if err != nil {
		return err
	}
	if !mintAccount.Owner.Equals(tokenProgram) {
		return errors.Wrapf(ErrTokenInvalidMint, "%s", mint)
	}
	mintExtensions, err := token2022.ExtensionTypes(mintAccount.Data)
	if err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}
	extensions := append([]token2022.ExtensionType{token2022.ImmutableOwner}, token2022.RequiredAccountExtensions(mintExtensions)...)
	space, err := token2022.AccountLen(extensions...)
	if err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}

	seeds := [][]byte{wallet[:], tokenProgram[:], mint[:], {bump}}
	err = ic.Invoke(
		system.NewCreateAccountInstruction(ic.Rent().MinimumBalance(space), uint64(space), tokenProgram, payer, address).Build(),
		seeds,
	)
	if err != nil {
		return err
	}

	ic.Log("Initialize the associated token account")
	if err := ic.Invoke(token2022.NewInitializeImmutableOwnerInstruction(address)); err != nil {
		return err
	}
	return ic.Invoke(token.NewInitializeAccount3Instruction(wallet, address, mint).Build())
}
