package ledger

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/pkg/errors"

	"github.com/GrafMine/ownership-nft/token2022"
)

// Errors of the token program, in the order of their custom error code
var (
	ErrTokenNotRentExempt        = errors.New("token: lamport balance below rent-exempt threshold")
	ErrTokenInvalidMint          = errors.New("token: invalid mint")
	ErrTokenMintMismatch         = errors.New("token: account not associated with this mint")
	ErrTokenOwnerMismatch        = errors.New("token: owner does not match")
	ErrTokenFixedSupply          = errors.New("token: fixed supply")
	ErrTokenAlreadyInUse         = errors.New("token: already in use")
	ErrTokenUninitializedState   = errors.New("token: state is uninitialized")
	ErrTokenOverflow             = errors.New("token: operation overflowed")
	ErrTokenAuthorityType        = errors.New("token: account does not support specified authority type")
	ErrTokenAccountFrozen        = errors.New("token: account is frozen")
	ErrTokenDecimalsMismatch     = errors.New("token: the provided decimals value different from the mint decimals")
	ErrTokenImmutableOwner       = errors.New("token: the owner authority cannot be changed")
	ErrTokenInvalidMetadataOwner = errors.New("token: metadata pointer does not reference the metadata account")
)

// tokenAccountCounts is the minimum number of accounts of every supported base instruction
var tokenAccountCounts = map[uint8]int{
	token.Instruction_InitializeMint:     2,
	token.Instruction_InitializeMint2:    1,
	token.Instruction_InitializeAccount3: 2,
	token.Instruction_MintTo:             3,
	token.Instruction_MintToChecked:      3,
	token.Instruction_SetAuthority:       2,
}

func processToken(ic *InvokeContext, data []byte) error {
	if len(data) == 0 {
		return ErrInvalidInstructionData
	}

	switch {
	case token2022.IsTokenMetadataInitialize(data):
		return initializeTokenMetadata(ic, data)
	case token2022.IsPointerInstruction(data):
		return initializePointer(ic, data)
	case data[0] == token2022.InstructionInitializeImmutableOwner:
		return initializeImmutableOwner(ic)
	}

	n, ok := tokenAccountCounts[data[0]]
	if !ok {
		return errors.Wrapf(ErrInvalidInstructionData, "unsupported token instruction %s", token.InstructionIDToName(data[0]))
	}
	if err := requireAccounts(ic, n); err != nil {
		return err
	}
	inst, err := token.DecodeInstruction(ic.Accounts(), data)
	if err != nil {
		return errors.Wrap(ErrInvalidInstructionData, err.Error())
	}

	switch ix := inst.Impl.(type) {
	case *token.InitializeMint:
		ic.Log("Instruction: InitializeMint")
		return initializeMint(ic, ix.GetMintAccount().PublicKey, *ix.Decimals, *ix.MintAuthority, ix.FreezeAuthority)
	case *token.InitializeMint2:
		ic.Log("Instruction: InitializeMint2")
		return initializeMint(ic, ix.GetMintAccount().PublicKey, *ix.Decimals, *ix.MintAuthority, ix.FreezeAuthority)
	case *token.InitializeAccount3:
		ic.Log("Instruction: InitializeAccount3")
		return initializeAccount(ic, ix.GetAccount().PublicKey, ix.GetMintAccount().PublicKey, *ix.Owner)
	case *token.MintTo:
		ic.Log("Instruction: MintTo")
		return mintTo(ic, ix.GetMintAccount().PublicKey, ix.GetDestinationAccount().PublicKey, ix.GetAuthorityAccount().PublicKey, *ix.Amount, nil)
	case *token.MintToChecked:
		ic.Log("Instruction: MintToChecked")
		return mintTo(ic, ix.GetMintAccount().PublicKey, ix.GetDestinationAccount().PublicKey, ix.GetAuthorityAccount().PublicKey, *ix.Amount, ix.Decimals)
	case *token.SetAuthority:
		ic.Log("Instruction: SetAuthority")
		return setAuthority(ic, ix.GetSubjectAccount().PublicKey, ix.GetAuthorityAccount().PublicKey, *ix.AuthorityType, ix.NewAuthority)
	default:
		return errors.Wrapf(ErrInvalidInstructionData, "unsupported token instruction %s", token.InstructionIDToName(data[0]))
	}
}

// loadOwned loads an account of the instruction and requires it to belong to the executing program
func loadOwned(ic *InvokeContext, key solana.PublicKey) (*Account, error) {
	acc, err := ic.Load(key)
	if err != nil {
		return nil, err
	}
	if !acc.Owner.Equals(ic.ProgramID()) {
		return nil, errors.Wrapf(ErrIncorrectProgramID, "%s is owned by %s", key, acc.Owner)
	}
	return acc, nil
}

func loadMint(ic *InvokeContext, key solana.PublicKey) (*Account, *token.Mint, error) {
	acc, err := loadOwned(ic, key)
	if err != nil {
		return nil, nil, err
	}
	if !token2022.MintInitialized(acc.Data) {
		return nil, nil, errors.Wrapf(ErrTokenUninitializedState, "mint %s", key)
	}
	mint, err := token2022.DecodeMint(acc.Data)
	if err != nil {
		return nil, nil, errors.Wrap(ErrInvalidAccountData, err.Error())
	}
	return acc, mint, nil
}

func initializePointer(ic *InvokeContext, data []byte) error {
	ext, pointer, err := token2022.DecodeInitializePointer(data)
	if err != nil {
		return errors.Wrap(ErrInvalidInstructionData, err.Error())
	}
	ic.Log("%s extension instruction: Initialize", ext)

	meta, err := ic.AccountAt(0)
	if err != nil {
		return err
	}
	acc, err := loadOwned(ic, meta.PublicKey)
	if err != nil {
		return err
	}
	if token2022.MintInitialized(acc.Data) {
		return errors.Wrapf(ErrTokenAlreadyInUse, "%s can only be initialized before the mint", ext)
	}
	if pointer.Authority.IsZero() && pointer.Address.IsZero() {
		return errors.Wrapf(ErrInvalidInstructionData, "%s needs an authority or an address", ext)
	}

	value, err := pointer.MarshalBinary()
	if err != nil {
		return err
	}
	if err := token2022.InitExtension(acc.Data, token2022.AccountTypeMint, ext, value); err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}
	return nil
}

func initializeImmutableOwner(ic *InvokeContext) error {
	ic.Log("Instruction: InitializeImmutableOwner")
	meta, err := ic.AccountAt(0)
	if err != nil {
		return err
	}
	acc, err := loadOwned(ic, meta.PublicKey)
	if err != nil {
		return err
	}
	if token2022.AccountInitialized(acc.Data) {
		return ErrTokenAlreadyInUse
	}
	if err := token2022.InitExtension(acc.Data, token2022.AccountTypeAccount, token2022.ImmutableOwner, nil); err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}
	return nil
}

func initializeMint(ic *InvokeContext, key solana.PublicKey, decimals uint8, mintAuthority solana.PublicKey, freezeAuthority *solana.PublicKey) error {
	acc, err := loadOwned(ic, key)
	if err != nil {
		return err
	}
	if token2022.MintInitialized(acc.Data) {
		return errors.Wrapf(ErrTokenAlreadyInUse, "mint %s", key)
	}

	extensions, err := token2022.ExtensionTypes(acc.Data)
	if err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}
	expected, err := token2022.MintLen(extensions...)
	if err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}
	if len(acc.Data) != expected {
		return errors.Wrapf(ErrInvalidAccountData, "mint is %d bytes, extensions %v need %d", len(acc.Data), extensions, expected)
	}
	if !ic.Rent().IsExempt(acc.Lamports, len(acc.Data)) {
		return ErrTokenNotRentExempt
	}

	return token2022.EncodeMint(&token.Mint{
		MintAuthority:   &mintAuthority,
		Decimals:        decimals,
		IsInitialized:   true,
		FreezeAuthority: freezeAuthority,
	}, acc.Data)
}

func initializeAccount(ic *InvokeContext, key, mintKey, owner solana.PublicKey) error {
	acc, err := loadOwned(ic, key)
	if err != nil {
		return err
	}
	if token2022.AccountInitialized(acc.Data) {
		return errors.Wrapf(ErrTokenAlreadyInUse, "token account %s", key)
	}

	mintAccount, err := ic.Load(mintKey)
	if err != nil {
		return err
	}
	if !mintAccount.Owner.Equals(ic.ProgramID()) || !token2022.MintInitialized(mintAccount.Data) {
		return errors.Wrapf(ErrTokenInvalidMint, "%s", mintKey)
	}
	mintExtensions, err := token2022.ExtensionTypes(mintAccount.Data)
	if err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}
	required := token2022.RequiredAccountExtensions(mintExtensions)

	existing, err := token2022.ExtensionTypes(acc.Data)
	if err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}
	expected, err := token2022.AccountLen(append(existing, required...)...)
	if err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}
	if len(acc.Data) != expected {
		return errors.Wrapf(ErrInvalidAccountData, "token account is %d bytes, needs %d", len(acc.Data), expected)
	}
	if !ic.Rent().IsExempt(acc.Lamports, len(acc.Data)) {
		return ErrTokenNotRentExempt
	}

	for _, ext := range required {
		size, err := ext.Size()
		if err != nil {
			return errors.Wrap(ErrInvalidAccountData, err.Error())
		}
		err = token2022.InitExtension(acc.Data, token2022.AccountTypeAccount, ext, make([]byte, size))
		if err != nil && !errors.Is(err, token2022.ErrExtensionAlreadyInitialized) {
			return errors.Wrap(ErrInvalidAccountData, err.Error())
		}
	}

	return token2022.EncodeAccount(&token.Account{
		Mint:  mintKey,
		Owner: owner,
		State: token.Initialized,
	}, acc.Data)
}

func mintTo(ic *InvokeContext, mintKey, destination, authority solana.PublicKey, amount uint64, decimals *uint8) error {
	mintAccount, mint, err := loadMint(ic, mintKey)
	if err != nil {
		return err
	}
	if decimals != nil && *decimals != mint.Decimals {
		return ErrTokenDecimalsMismatch
	}

	destAccount, err := loadOwned(ic, destination)
	if err != nil {
		return err
	}
	if !token2022.AccountInitialized(destAccount.Data) {
		return errors.Wrapf(ErrTokenUninitializedState, "token account %s", destination)
	}
	dest, err := token2022.DecodeAccount(destAccount.Data)
	if err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}
	if dest.State == token.Frozen {
		return ErrTokenAccountFrozen
	}
	if !dest.Mint.Equals(mintKey) {
		return ErrTokenMintMismatch
	}

	if mint.MintAuthority == nil {
		return ErrTokenFixedSupply
	}
	if !mint.MintAuthority.Equals(authority) {
		return ErrTokenOwnerMismatch
	}
	if !ic.IsSigner(authority) {
		return errors.Wrapf(ErrMissingSigner, "mint authority %s", authority)
	}

	if mint.Supply+amount < mint.Supply || dest.Amount+amount < dest.Amount {
		return ErrTokenOverflow
	}
	mint.Supply += amount
	dest.Amount += amount

	if err := token2022.EncodeMint(mint, mintAccount.Data); err != nil {
		return err
	}
	return token2022.EncodeAccount(dest, destAccount.Data)
}

func setAuthority(ic *InvokeContext, subject, authority solana.PublicKey, typ token.AuthorityType, newAuthority *solana.PublicKey) error {
	acc, err := loadOwned(ic, subject)
	if err != nil {
		return err
	}
	if !ic.IsSigner(authority) {
		return errors.Wrapf(ErrMissingSigner, "authority %s", authority)
	}

	switch typ {
	case token.AuthorityMintTokens, token.AuthorityFreezeAccount:
		if !isMint(acc.Data) {
			return ErrTokenAuthorityType
		}
		_, mint, err := loadMint(ic, subject)
		if err != nil {
			return err
		}
		current := mint.MintAuthority
		if typ == token.AuthorityFreezeAccount {
			current = mint.FreezeAuthority
		}
		if current == nil {
			return ErrTokenFixedSupply
		}
		if !current.Equals(authority) {
			return ErrTokenOwnerMismatch
		}
		if typ == token.AuthorityMintTokens {
			mint.MintAuthority = newAuthority
		} else {
			mint.FreezeAuthority = newAuthority
		}
		return token2022.EncodeMint(mint, acc.Data)

	case token.AuthorityAccountOwner:
		if !token2022.AccountInitialized(acc.Data) {
			return ErrTokenUninitializedState
		}
		if _, ok := token2022.FindExtension(acc.Data, token2022.ImmutableOwner); ok {
			return ErrTokenImmutableOwner
		}
		account, err := token2022.DecodeAccount(acc.Data)
		if err != nil {
			return errors.Wrap(ErrInvalidAccountData, err.Error())
		}
		if !account.Owner.Equals(authority) {
			return ErrTokenOwnerMismatch
		}
		if newAuthority == nil {
			return ErrInvalidInstructionData
		}
		account.Owner = *newAuthority
		return token2022.EncodeAccount(account, acc.Data)

	default:
		return ErrTokenAuthorityType
	}
}

// isMint reports whether the data holds a mint rather than a token account
func isMint(data []byte) bool {
	if len(data) == token2022.MintSize {
		return true
	}
	kind, _, err := token2022.ParseExtensions(data)
	return err == nil && kind == token2022.AccountTypeMint
}

func initializeTokenMetadata(ic *InvokeContext, data []byte) error {
	ic.Log("Instruction: TokenMetadataInstruction: Initialize")
	name, symbol, uri, err := token2022.DecodeInitializeTokenMetadata(data)
	if err != nil {
		return errors.Wrap(ErrInvalidInstructionData, err.Error())
	}
	if err := requireAccounts(ic, 4); err != nil {
		return err
	}
	metas := ic.Accounts()
	metadataKey, updateAuthority, mintKey, mintAuthority := metas[0].PublicKey, metas[1].PublicKey, metas[2].PublicKey, metas[3].PublicKey

	mintAccount, mint, err := loadMint(ic, mintKey)
	if err != nil {
		return err
	}
	state, err := token2022.DecodeMintState(mintAccount.Data)
	if err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}
	pointer, ok := state.Pointer(token2022.MetadataPointer)
	if !ok || !pointer.Address.Equals(metadataKey) || !metadataKey.Equals(mintKey) {
		return ErrTokenInvalidMetadataOwner
	}

	if !ic.IsSigner(mintAuthority) {
		return errors.Wrapf(ErrMissingSigner, "mint authority %s", mintAuthority)
	}
	if mint.MintAuthority == nil || !mint.MintAuthority.Equals(mintAuthority) {
		return ErrTokenOwnerMismatch
	}

	value, err := token2022.Metadata{
		UpdateAuthority: updateAuthority,
		Mint:            mintKey,
		Name:            name,
		Symbol:          symbol,
		URI:             uri,
	}.MarshalBinary()
	if err != nil {
		return err
	}
	grown, err := token2022.AppendExtension(mintAccount.Data, token2022.AccountTypeMint, token2022.TokenMetadata, value)
	if err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}
	mintAccount.Data = grown
	return nil
}
