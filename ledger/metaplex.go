package ledger

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/pkg/errors"

	"github.com/GrafMine/ownership-nft/metaplex"
	"github.com/GrafMine/ownership-nft/token2022"
)

// Errors of the token metadata program
var (
	ErrMetadataInvalidMintAuthority    = errors.New("token metadata: mint authority provided does not match the authority on the mint")
	ErrMetadataUpdateAuthorityMismatch = errors.New("token metadata: update authority is incorrect")
	ErrMetadataCreatorNotVerified      = errors.New("token metadata: creator can only be verified by the signing update authority")
	ErrMetadataAlreadyInitialized      = errors.New("token metadata: already initialized")
	ErrMetadataEditionSupply           = errors.New("token metadata: editions must have exactly one token")
	ErrMetadataIncorrectOwner          = errors.New("token metadata: incorrect account owner")
)

func processTokenMetadata(ic *InvokeContext, data []byte) error {
	if len(data) == 0 {
		return ErrInvalidInstructionData
	}
	switch data[0] {
	case metaplex.InstructionCreateMetadataAccountV3:
		ic.Log("IX: Create Metadata Accounts v3")
		return createMetadataAccount(ic, data)
	case metaplex.InstructionCreateMasterEditionV3:
		ic.Log("V3 Create Master Edition")
		return createMasterEdition(ic, data)
	default:
		return errors.Wrapf(ErrInvalidInstructionData, "unsupported token metadata instruction %d", data[0])
	}
}

// loadTokenMint loads a mint owned by either token program
func loadTokenMint(ic *InvokeContext, key solana.PublicKey) (*Account, *token.Mint, error) {
	acc, err := ic.Load(key)
	if err != nil {
		return nil, nil, err
	}
	if !acc.Owner.Equals(token2022.ProgramID) && !acc.Owner.Equals(solana.TokenProgramID) {
		return nil, nil, errors.Wrapf(ErrMetadataIncorrectOwner, "mint %s", key)
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

func createMetadataAccount(ic *InvokeContext, data []byte) error {
	args, err := metaplex.DecodeCreateMetadataAccountV3(data)
	if err != nil {
		return errors.Wrap(ErrInvalidInstructionData, err.Error())
	}
	if err := requireAccounts(ic, 5); err != nil {
		return err
	}
	metas := ic.Accounts()
	metadataKey, mintKey, mintAuthority, payer, updateAuthority := metas[0].PublicKey, metas[1].PublicKey, metas[2].PublicKey, metas[3].PublicKey, metas[4].PublicKey

	expected, bump, err := metaplex.MetadataAddress(mintKey)
	if err != nil {
		return errors.Wrap(ErrInvalidSeeds, err.Error())
	}
	if !expected.Equals(metadataKey) {
		return errors.Wrapf(ErrInvalidSeeds, "expected metadata account %s, got %s", expected, metadataKey)
	}

	_, mint, err := loadTokenMint(ic, mintKey)
	if err != nil {
		return err
	}
	if mint.MintAuthority == nil || !mint.MintAuthority.Equals(mintAuthority) {
		return ErrMetadataInvalidMintAuthority
	}
	if !ic.IsSigner(mintAuthority) {
		return errors.Wrapf(ErrMissingSigner, "mint authority %s", mintAuthority)
	}

	if err := args.Data.Validate(); err != nil {
		return err
	}
	if args.Data.Creators != nil {
		for _, c := range *args.Data.Creators {
			if c.Verified && (!c.Address.Equals(updateAuthority) || !ic.IsSigner(updateAuthority)) {
				return errors.Wrapf(ErrMetadataCreatorNotVerified, "%s", c.Address)
			}
		}
	}

	seeds := [][]byte{[]byte("metadata"), metaplex.ProgramID[:], mintKey[:], {bump}}
	err = ic.Invoke(
		system.NewCreateAccountInstruction(
			ic.Rent().MinimumBalance(metaplex.MetadataAccountSize),
			metaplex.MetadataAccountSize,
			metaplex.ProgramID,
			payer,
			metadataKey,
		).Build(),
		seeds,
	)
	if err != nil {
		return err
	}

	editionNonce := uint8(0)
	if _, nonce, err := metaplex.MasterEditionAddress(mintKey); err == nil {
		editionNonce = nonce
	}
	standard := metaplex.TokenStandardFungible
	if mint.Decimals == 0 {
		standard = metaplex.TokenStandardFungibleAsset
	}

	raw, err := metaplex.EncodeMetadata(&metaplex.Metadata{
		Key:               metaplex.KeyMetadataV1,
		UpdateAuthority:   updateAuthority,
		Mint:              mintKey,
		Data:              args.Data.Puffed(),
		IsMutable:         args.IsMutable,
		EditionNonce:      &editionNonce,
		TokenStandard:     &standard,
		Collection:        args.Data.Collection,
		Uses:              args.Data.Uses,
		CollectionDetails: args.CollectionDetails,
	})
	if err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}
	acc, err := ic.Load(metadataKey)
	if err != nil {
		return err
	}
	copy(acc.Data, raw)
	return nil
}

func createMasterEdition(ic *InvokeContext, data []byte) error {
	maxSupply, err := metaplex.DecodeCreateMasterEditionV3(data)
	if err != nil {
		return errors.Wrap(ErrInvalidInstructionData, err.Error())
	}
	if err := requireAccounts(ic, 7); err != nil {
		return err
	}
	metas := ic.Accounts()
	editionKey, mintKey, updateAuthority, mintAuthority, payer, metadataKey, tokenProgram :=
		metas[0].PublicKey, metas[1].PublicKey, metas[2].PublicKey, metas[3].PublicKey, metas[4].PublicKey, metas[5].PublicKey, metas[6].PublicKey

	expected, bump, err := metaplex.MasterEditionAddress(mintKey)
	if err != nil {
		return errors.Wrap(ErrInvalidSeeds, err.Error())
	}
	if !expected.Equals(editionKey) {
		return errors.Wrapf(ErrInvalidSeeds, "expected edition account %s, got %s", expected, editionKey)
	}

	metadataAccount, err := loadOwned(ic, metadataKey)
	if err != nil {
		return errors.Wrap(ErrMetadataIncorrectOwner, err.Error())
	}
	md, err := metaplex.DecodeMetadata(metadataAccount.Data)
	if err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}
	if !md.Mint.Equals(mintKey) {
		return errors.Wrap(ErrInvalidAccountData, "metadata belongs to another mint")
	}
	if !md.UpdateAuthority.Equals(updateAuthority) || !ic.IsSigner(updateAuthority) {
		return ErrMetadataUpdateAuthorityMismatch
	}

	mintAccount, mint, err := loadTokenMint(ic, mintKey)
	if err != nil {
		return err
	}
	if !mintAccount.Owner.Equals(tokenProgram) {
		return errors.Wrapf(ErrIncorrectProgramID, "mint is owned by %s, token program %s given", mintAccount.Owner, tokenProgram)
	}
	if mint.MintAuthority == nil || !mint.MintAuthority.Equals(mintAuthority) {
		return ErrMetadataInvalidMintAuthority
	}
	if !ic.IsSigner(mintAuthority) {
		return errors.Wrapf(ErrMissingSigner, "mint authority %s", mintAuthority)
	}
	if mint.Supply != 1 || mint.Decimals != 0 {
		return ErrMetadataEditionSupply
	}

	edition, err := ic.Load(editionKey)
	if err != nil {
		return err
	}
	if edition.Exists() {
		return ErrMetadataAlreadyInitialized
	}

	seeds := [][]byte{[]byte("metadata"), metaplex.ProgramID[:], mintKey[:], []byte("edition"), {bump}}
	err = ic.Invoke(
		system.NewCreateAccountInstruction(
			ic.Rent().MinimumBalance(metaplex.MasterEditionAccountSize),
			metaplex.MasterEditionAccountSize,
			metaplex.ProgramID,
			payer,
			editionKey,
		).Build(),
		seeds,
	)
	if err != nil {
		return err
	}

	raw, err := metaplex.EncodeMasterEdition(&metaplex.MasterEditionV2{
		Key:       metaplex.KeyMasterEditionV2,
		Supply:    0,
		MaxSupply: maxSupply,
	})
	if err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}
	copy(edition.Data, raw)

	standard := metaplex.TokenStandardNonFungible
	md.TokenStandard = &standard
	encoded, err := metaplex.EncodeMetadata(md)
	if err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}
	copy(metadataAccount.Data, encoded)

	// the edition takes over both authorities, no further tokens can be minted
	for _, typ := range []token.AuthorityType{token.AuthorityMintTokens, token.AuthorityFreezeAccount} {
		current := mintAuthority
		if typ == token.AuthorityFreezeAccount {
			if mint.FreezeAuthority == nil {
				continue
			}
			current = *mint.FreezeAuthority
		}
		err = ic.Invoke(token.NewSetAuthorityInstruction(typ, editionKey, mintKey, current, nil).Build())
		if err != nil {
			return err
		}
	}
	return nil
}
