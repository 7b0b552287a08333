// Package ledger is an in-process Solana runtime. It keeps accounts in memory, executes signed
// transactions against native program processors and commits every transaction atomically: either
// all account changes are applied or none are, only the fee is kept on failure.
//
// The processors cover what is needed to run the ownership NFT program: the system program, the
// compute budget program, the token program 2022, the associated token account program and the
// token metadata program. Other programs are plugged in with Register.
package ledger

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/GrafMine/ownership-nft/metaplex"
	"github.com/GrafMine/ownership-nft/token2022"
)

var (
	ErrAccountInUse                = errors.New("account already in use")
	ErrInsufficientFunds           = errors.New("insufficient funds for instruction")
	ErrInsufficientFundsForFee     = errors.New("insufficient funds for fee")
	ErrInsufficientFundsForRent    = errors.New("insufficient funds for rent")
	ErrMissingSigner               = errors.New("missing required signature for instruction")
	ErrPrivilegeEscalation         = errors.New("cross-program invocation with unauthorized signer or writable account")
	ErrUnknownProgram              = errors.New("attempt to load a program that does not exist")
	ErrInvalidAccountData          = errors.New("invalid account data for instruction")
	ErrInvalidInstructionData      = errors.New("invalid instruction data")
	ErrNotEnoughAccountKeys        = errors.New("insufficient account keys for instruction")
	ErrMissingAccount              = errors.New("an account required by the instruction is missing")
	ErrIncorrectProgramID          = errors.New("incorrect program id for instruction")
	ErrInvalidSeeds                = errors.New("provided seeds do not result in a valid address")
	ErrExternalAccountDataModified = errors.New("instruction modified data of an account it does not own")
	ErrExternalLamportSpend        = errors.New("instruction spent from the balance of an account it does not own")
	ErrReadonlyModified            = errors.New("instruction modified a read-only account")
	ErrModifiedProgramID           = errors.New("instruction illegally modified the program id of an account")
	ErrUnbalancedInstruction       = errors.New("sum of account balances before and after instruction do not match")
	ErrCallDepth                   = errors.New("cross-program invocation call depth too deep")
	ErrBlockhashNotFound           = errors.New("blockhash not found")
	ErrAlreadyProcessed            = errors.New("this transaction has already been processed")
)

const (
	// LamportsPerSignature is the fee charged for every signature of a transaction
	LamportsPerSignature = 5000

	// maxRecentBlockhashes is how many blockhashes a transaction may reference
	maxRecentBlockhashes = 150

	// maxCallDepth limits nested cross-program invocations
	maxCallDepth = 4

	// maxPermittedDataLength of a single account
	maxPermittedDataLength = 10 * 1024 * 1024
)

var (
	nativeLoader = solana.MustPublicKeyFromBase58("NativeLoader1111111111111111111111111111111")
	sysvarOwner  = solana.MustPublicKeyFromBase58("Sysvar1111111111111111111111111111111111111")
)

// Account is the state of one address
type Account struct {
	Lamports   uint64
	Owner      solana.PublicKey
	Data       []byte
	Executable bool
}

// Exists reports whether the account was ever funded, allocated or assigned
func (a *Account) Exists() bool {
	return a.Lamports > 0 || len(a.Data) > 0 || !a.Owner.Equals(solana.SystemProgramID)
}

func (a *Account) clone() *Account {
	c := *a
	c.Data = append([]byte(nil), a.Data...)
	return &c
}

func (a *Account) equal(b *Account) bool {
	return a.Lamports == b.Lamports && a.Owner.Equals(b.Owner) && a.Executable == b.Executable && bytes.Equal(a.Data, b.Data)
}

// Result of a committed transaction
type Result struct {
	Signature solana.Signature
	Slot      uint64
	Fee       uint64
	Logs      []string
}

// TransactionError is returned when an instruction of a transaction fails. Index is -1 when the
// failure is not attributed to a single instruction.
type TransactionError struct {
	Index int
	Err   error
	Logs  []string
}

func (e *TransactionError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("transaction failed: %s", e.Err)
	}
	return fmt.Sprintf("instruction %d failed: %s", e.Index, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// Option configures a new ledger
type Option func(*Ledger)

// WithRent replaces the default rent parameters
func WithRent(rent Rent) Option {
	return func(l *Ledger) {
		l.rent = rent
	}
}

// Ledger holds the account state and executes transactions one at a time
type Ledger struct {
	mu sync.Mutex

	accounts    map[solana.PublicKey]*Account
	programs    map[solana.PublicKey]Processor
	rent        Rent
	slot        uint64
	blockhashes []solana.Hash
	processed   map[solana.Signature]struct{}
}

// New ledger with the native programs and sysvars loaded
func New(opts ...Option) *Ledger {
	l := &Ledger{
		accounts:  make(map[solana.PublicKey]*Account),
		programs:  make(map[solana.PublicKey]Processor),
		rent:      DefaultRent,
		processed: make(map[solana.Signature]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.Register(solana.SystemProgramID, ProcessorFunc(processSystem))
	l.Register(solana.ComputeBudget, ProcessorFunc(processComputeBudget))
	l.Register(token2022.ProgramID, ProcessorFunc(processToken))
	l.Register(token2022.AssociatedTokenProgramID, ProcessorFunc(processAssociatedToken))
	l.Register(metaplex.ProgramID, ProcessorFunc(processTokenMetadata))

	l.accounts[solana.SysVarRentPubkey] = &Account{Lamports: 1, Owner: sysvarOwner, Data: l.rent.encode()}
	l.accounts[solana.SysVarInstructionsPubkey] = &Account{Lamports: 1, Owner: sysvarOwner}

	l.advance()
	return l
}

// Register a processor for a program id. The program account is created as executable.
func (l *Ledger) Register(programID solana.PublicKey, p Processor) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.programs[programID] = p
	l.accounts[programID] = &Account{Lamports: 1, Owner: nativeLoader, Executable: true}
}

// Rent parameters of the ledger
func (l *Ledger) Rent() Rent {
	return l.rent
}

// Airdrop credits lamports to an address
func (l *Ledger) Airdrop(to solana.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[to]
	if !ok {
		acc = &Account{Owner: solana.SystemProgramID}
		l.accounts[to] = acc
	}
	acc.Lamports += lamports
}

// GetAccount returns a copy of the account state, or nil if it doesn't exist
func (l *Ledger) GetAccount(key solana.PublicKey) *Account {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[key]
	if !ok {
		return nil
	}
	return acc.clone()
}

// Slot of the last committed transaction
func (l *Ledger) Slot() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.slot
}

// LatestBlockhash a new transaction can reference
func (l *Ledger) LatestBlockhash() solana.Hash {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.blockhashes[len(l.blockhashes)-1]
}

// Execute verifies and runs a signed transaction. On success all account changes are committed, on
// failure none are, apart from the fee charged to the fee payer.
func (l *Ledger) Execute(ctx context.Context, tx *solana.Transaction) (*Result, error) {
	if err := tx.VerifySignatures(); err != nil {
		return nil, errors.Wrap(err, "failed to verify transaction signatures")
	}
	if len(tx.Signatures) == 0 {
		return nil, errors.Wrap(ErrMissingSigner, "transaction is not signed")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.isRecent(tx.Message.RecentBlockhash) {
		return nil, ErrBlockhashNotFound
	}
	sig := tx.Signatures[0]
	if _, ok := l.processed[sig]; ok {
		return nil, ErrAlreadyProcessed
	}

	payer := tx.Message.AccountKeys[0]
	fee := uint64(LamportsPerSignature * len(tx.Signatures))
	payerAccount, ok := l.accounts[payer]
	if !ok || payerAccount.Lamports < fee {
		return nil, ErrInsufficientFundsForFee
	}
	payerAccount.Lamports -= fee
	l.processed[sig] = struct{}{}

	tc, err := l.run(ctx, tx)
	if err != nil {
		log.Debug().Str("signature", sig.String()).Err(err).Msg("Transaction failed")
		return nil, err
	}

	tc.commit()
	l.advance()

	return &Result{Signature: sig, Slot: l.slot, Fee: fee, Logs: tc.logs}, nil
}

// Simulate runs the transaction against the current state without verifying signatures, charging
// fees or committing anything
func (l *Ledger) Simulate(ctx context.Context, tx *solana.Transaction) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tc, err := l.run(ctx, tx)
	if err != nil {
		return nil, err
	}
	return &Result{Slot: l.slot, Logs: tc.logs}, nil
}

func (l *Ledger) run(ctx context.Context, tx *solana.Transaction) (*transactionContext, error) {
	tc := &transactionContext{ledger: l, accounts: make(map[solana.PublicKey]*Account)}

	for i, ci := range tx.Message.Instructions {
		if err := ctx.Err(); err != nil {
			return nil, &TransactionError{Index: i, Err: err, Logs: tc.logs}
		}
		programID, err := tx.Message.Program(ci.ProgramIDIndex)
		if err != nil {
			return nil, &TransactionError{Index: i, Err: errors.Wrap(ErrMissingAccount, err.Error()), Logs: tc.logs}
		}
		metas, err := ci.ResolveInstructionAccounts(&tx.Message)
		if err != nil {
			return nil, &TransactionError{Index: i, Err: errors.Wrap(ErrMissingAccount, err.Error()), Logs: tc.logs}
		}
		if err := tc.process(programID, metas, ci.Data, 0); err != nil {
			return nil, &TransactionError{Index: i, Err: err, Logs: tc.logs}
		}
	}

	if err := tc.checkRent(); err != nil {
		return nil, &TransactionError{Index: -1, Err: err, Logs: tc.logs}
	}
	return tc, nil
}

func (l *Ledger) isRecent(hash solana.Hash) bool {
	for _, h := range l.blockhashes {
		if h.Equals(hash) {
			return true
		}
	}
	return false
}

// advance moves to the next slot and produces its blockhash
func (l *Ledger) advance() {
	l.slot++
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], l.slot)
	h := solana.Hash(sha256.Sum256(append([]byte("ledger blockhash"), seed[:]...)))

	l.blockhashes = append(l.blockhashes, h)
	if len(l.blockhashes) > maxRecentBlockhashes {
		l.blockhashes = l.blockhashes[1:]
	}
}
