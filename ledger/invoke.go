package ledger

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Processor executes the instructions of one program
type Processor interface {
	Process(ic *InvokeContext, data []byte) error
}

// ProcessorFunc adapts a function to a Processor
type ProcessorFunc func(ic *InvokeContext, data []byte) error

func (f ProcessorFunc) Process(ic *InvokeContext, data []byte) error {
	return f(ic, data)
}

// transactionContext holds the working copy of every account touched by a transaction
type transactionContext struct {
	ledger   *Ledger
	accounts map[solana.PublicKey]*Account
	logs     []string
}

func (tc *transactionContext) load(key solana.PublicKey) *Account {
	if acc, ok := tc.accounts[key]; ok {
		return acc
	}
	acc := &Account{Owner: solana.SystemProgramID}
	if existing, ok := tc.ledger.accounts[key]; ok {
		acc = existing.clone()
	}
	tc.accounts[key] = acc
	return acc
}

func (tc *transactionContext) log(msg string) {
	tc.logs = append(tc.logs, msg)
	log.Debug().Msg(msg)
}

// process runs one instruction, top level or invoked, and verifies the changes it made
func (tc *transactionContext) process(programID solana.PublicKey, metas []*solana.AccountMeta, data []byte, depth int) error {
	if depth > maxCallDepth {
		return ErrCallDepth
	}
	p, ok := tc.ledger.programs[programID]
	if !ok {
		return errors.Wrapf(ErrUnknownProgram, "%s", programID)
	}

	ic := &InvokeContext{tc: tc, programID: programID, metas: metas, depth: depth}
	ic.snapshot()

	tc.log(fmt.Sprintf("Program %s invoke [%d]", programID, depth+1))
	if err := p.Process(ic, data); err != nil {
		tc.log(fmt.Sprintf("Program %s failed: %s", programID, err))
		return err
	}
	if err := ic.verify(); err != nil {
		tc.log(fmt.Sprintf("Program %s failed: %s", programID, err))
		return err
	}
	tc.log(fmt.Sprintf("Program %s success", programID))
	return nil
}

// checkRent rejects transactions leaving a changed, funded account below the rent exempt minimum
func (tc *transactionContext) checkRent() error {
	for key, acc := range tc.accounts {
		if original, ok := tc.ledger.accounts[key]; ok && original.equal(acc) {
			continue
		}
		if acc.Lamports == 0 {
			continue
		}
		if !tc.ledger.rent.IsExempt(acc.Lamports, len(acc.Data)) {
			return errors.Wrapf(ErrInsufficientFundsForRent, "account %s", key)
		}
	}
	return nil
}

func (tc *transactionContext) commit() {
	for key, acc := range tc.accounts {
		if !acc.Exists() {
			delete(tc.ledger.accounts, key)
			continue
		}
		tc.ledger.accounts[key] = acc
	}
}

// InvokeContext is what a processor sees while executing one instruction: the accounts passed to
// the instruction with their privileges, and the means to invoke other programs.
type InvokeContext struct {
	tc        *transactionContext
	programID solana.PublicKey
	metas     []*solana.AccountMeta
	depth     int

	pre map[solana.PublicKey]*Account
}

// ProgramID of the executing program
func (ic *InvokeContext) ProgramID() solana.PublicKey {
	return ic.programID
}

// Accounts passed to the instruction, in order
func (ic *InvokeContext) Accounts() []*solana.AccountMeta {
	return ic.metas
}

// AccountAt returns the instruction account at index i
func (ic *InvokeContext) AccountAt(i int) (*solana.AccountMeta, error) {
	if i < 0 || i >= len(ic.metas) {
		return nil, errors.Wrapf(ErrNotEnoughAccountKeys, "account %d of %d", i, len(ic.metas))
	}
	return ic.metas[i], nil
}

func requireAccounts(ic *InvokeContext, n int) error {
	if len(ic.metas) < n {
		return errors.Wrapf(ErrNotEnoughAccountKeys, "need %d accounts, got %d", n, len(ic.metas))
	}
	return nil
}

// Rent parameters of the runtime
func (ic *InvokeContext) Rent() Rent {
	return ic.tc.ledger.rent
}

// Load returns the working state of an account of the instruction. Changes made to the returned
// value are checked against the account privileges when the instruction completes.
func (ic *InvokeContext) Load(key solana.PublicKey) (*Account, error) {
	if ic.meta(key) == nil {
		return nil, errors.Wrapf(ErrMissingAccount, "%s", key)
	}
	return ic.tc.load(key), nil
}

// IsSigner reports whether the account signed the instruction
func (ic *InvokeContext) IsSigner(key solana.PublicKey) bool {
	m := ic.meta(key)
	return m != nil && m.IsSigner
}

// IsWritable reports whether the instruction may modify the account
func (ic *InvokeContext) IsWritable(key solana.PublicKey) bool {
	m := ic.meta(key)
	return m != nil && m.IsWritable
}

// Log appends a program log line to the transaction logs
func (ic *InvokeContext) Log(format string, args ...interface{}) {
	ic.tc.log("Program log: " + fmt.Sprintf(format, args...))
}

// Invoke calls another program. Every account of the instruction must be available to the caller
// with at least the requested privileges, except signatures of addresses derived from the caller
// program with one of signerSeeds.
func (ic *InvokeContext) Invoke(ix solana.Instruction, signerSeeds ...[][]byte) error {
	programID := ix.ProgramID()
	if ic.meta(programID) == nil {
		return errors.Wrapf(ErrMissingAccount, "program %s not passed to the instruction", programID)
	}
	data, err := ix.Data()
	if err != nil {
		return errors.Wrap(ErrInvalidInstructionData, err.Error())
	}

	pdaSigners := make(map[solana.PublicKey]struct{}, len(signerSeeds))
	for _, seeds := range signerSeeds {
		signer, err := solana.CreateProgramAddress(seeds, ic.programID)
		if err != nil {
			return errors.Wrap(ErrInvalidSeeds, err.Error())
		}
		pdaSigners[signer] = struct{}{}
	}

	metas := ix.Accounts()
	for _, m := range metas {
		caller := ic.meta(m.PublicKey)
		if caller == nil {
			return errors.Wrapf(ErrMissingAccount, "%s", m.PublicKey)
		}
		if m.IsWritable && !caller.IsWritable {
			return errors.Wrapf(ErrPrivilegeEscalation, "%s writable", m.PublicKey)
		}
		if m.IsSigner && !caller.IsSigner {
			if _, ok := pdaSigners[m.PublicKey]; !ok {
				return errors.Wrapf(ErrPrivilegeEscalation, "%s signer", m.PublicKey)
			}
		}
	}

	// changes made so far belong to the caller, changes made by the callee are verified by the callee
	if err := ic.verify(); err != nil {
		return err
	}
	if err := ic.tc.process(programID, metas, data, ic.depth+1); err != nil {
		return err
	}
	ic.snapshot()
	return nil
}

func (ic *InvokeContext) meta(key solana.PublicKey) *solana.AccountMeta {
	var found *solana.AccountMeta
	for _, m := range ic.metas {
		if !m.PublicKey.Equals(key) {
			continue
		}
		// the same account can be listed more than once, privileges are merged
		if found == nil {
			c := *m
			found = &c
			continue
		}
		found.IsSigner = found.IsSigner || m.IsSigner
		found.IsWritable = found.IsWritable || m.IsWritable
	}
	return found
}

func (ic *InvokeContext) snapshot() {
	ic.pre = make(map[solana.PublicKey]*Account, len(ic.metas))
	for _, m := range ic.metas {
		if _, ok := ic.pre[m.PublicKey]; ok {
			continue
		}
		ic.pre[m.PublicKey] = ic.tc.load(m.PublicKey).clone()
	}
}

// verify checks the changes made by this program since the last snapshot
func (ic *InvokeContext) verify() error {
	var before, after uint64
	for key, pre := range ic.pre {
		post := ic.tc.load(key)
		before += pre.Lamports
		after += post.Lamports

		if pre.equal(post) {
			continue
		}
		if !ic.IsWritable(key) {
			return errors.Wrapf(ErrReadonlyModified, "%s", key)
		}
		owned := pre.Owner.Equals(ic.programID)
		if !post.Owner.Equals(pre.Owner) && (!owned || !isZeroed(post.Data)) {
			return errors.Wrapf(ErrModifiedProgramID, "%s", key)
		}
		if !owned && !bytes.Equal(pre.Data, post.Data) {
			return errors.Wrapf(ErrExternalAccountDataModified, "%s", key)
		}
		if !owned && post.Lamports < pre.Lamports {
			return errors.Wrapf(ErrExternalLamportSpend, "%s", key)
		}
		if post.Executable != pre.Executable {
			return errors.Wrapf(ErrModifiedProgramID, "%s executable flag", key)
		}
	}
	if before != after {
		return ErrUnbalancedInstruction
	}
	return nil
}

func isZeroed(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
