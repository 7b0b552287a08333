package ledger

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/pkg/errors"
)

func processSystem(ic *InvokeContext, data []byte) error {
	inst, err := system.DecodeInstruction(ic.Accounts(), data)
	if err != nil {
		return errors.Wrap(ErrInvalidInstructionData, err.Error())
	}

	switch ix := inst.Impl.(type) {
	case *system.CreateAccount:
		if err := requireAccounts(ic, 2); err != nil {
			return err
		}
		return createAccount(ic, ix.GetFundingAccount().PublicKey, ix.GetNewAccount().PublicKey, *ix.Lamports, *ix.Space, *ix.Owner)
	case *system.Transfer:
		if err := requireAccounts(ic, 2); err != nil {
			return err
		}
		return transfer(ic, ix.GetFundingAccount().PublicKey, ix.GetRecipientAccount().PublicKey, *ix.Lamports)
	case *system.Allocate:
		if err := requireAccounts(ic, 1); err != nil {
			return err
		}
		return allocate(ic, ix.GetNewAccount().PublicKey, *ix.Space)
	case *system.Assign:
		if err := requireAccounts(ic, 1); err != nil {
			return err
		}
		return assign(ic, ix.GetAssignedAccount().PublicKey, *ix.Owner)
	default:
		return errors.Wrapf(ErrInvalidInstructionData, "unsupported system instruction %s", system.InstructionIDToName(inst.TypeID.Uint32()))
	}
}

func createAccount(ic *InvokeContext, from, to solana.PublicKey, lamports, space uint64, owner solana.PublicKey) error {
	target, err := ic.Load(to)
	if err != nil {
		return err
	}
	if target.Exists() {
		ic.Log("Create Account: account Address { address: %s, base: None } already in use", to)
		return errors.Wrapf(ErrAccountInUse, "%s", to)
	}
	if err := allocate(ic, to, space); err != nil {
		return err
	}
	if err := assign(ic, to, owner); err != nil {
		return err
	}
	return transfer(ic, from, to, lamports)
}

func allocate(ic *InvokeContext, address solana.PublicKey, space uint64) error {
	if !ic.IsSigner(address) {
		return errors.Wrapf(ErrMissingSigner, "allocate: %s", address)
	}
	acc, err := ic.Load(address)
	if err != nil {
		return err
	}
	if len(acc.Data) > 0 || !acc.Owner.Equals(solana.SystemProgramID) {
		ic.Log("Allocate: account Address { address: %s, base: None } already in use", address)
		return errors.Wrapf(ErrAccountInUse, "%s", address)
	}
	if space > maxPermittedDataLength {
		return errors.Wrapf(ErrInvalidInstructionData, "allocate: requested %d bytes, max %d", space, maxPermittedDataLength)
	}
	acc.Data = make([]byte, space)
	return nil
}

func assign(ic *InvokeContext, address, owner solana.PublicKey) error {
	acc, err := ic.Load(address)
	if err != nil {
		return err
	}
	if acc.Owner.Equals(owner) {
		return nil
	}
	if !ic.IsSigner(address) {
		return errors.Wrapf(ErrMissingSigner, "assign: %s", address)
	}
	acc.Owner = owner
	return nil
}

func transfer(ic *InvokeContext, from, to solana.PublicKey, lamports uint64) error {
	if !ic.IsSigner(from) {
		return errors.Wrapf(ErrMissingSigner, "transfer: from %s", from)
	}
	source, err := ic.Load(from)
	if err != nil {
		return err
	}
	if len(source.Data) > 0 {
		return errors.Wrap(ErrInvalidAccountData, "transfer: `from` must not carry data")
	}
	if source.Lamports < lamports {
		ic.Log("Transfer: insufficient lamports %d, need %d", source.Lamports, lamports)
		return errors.Wrapf(ErrInsufficientFunds, "%s has %d lamports, needs %d", from, source.Lamports, lamports)
	}
	dest, err := ic.Load(to)
	if err != nil {
		return err
	}
	source.Lamports -= lamports
	dest.Lamports += lamports
	return nil
}

func processComputeBudget(ic *InvokeContext, data []byte) error {
	if len(data) == 0 {
		return ErrInvalidInstructionData
	}
	return nil
}
