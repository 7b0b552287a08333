package program

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafMine/ownership-nft/faults"
	"github.com/GrafMine/ownership-nft/ledger"
	"github.com/GrafMine/ownership-nft/metaplex"
	"github.com/GrafMine/ownership-nft/token2022"
)

type fixture struct {
	ledger *ledger.Ledger
	cfg    Config
	admin  solana.PrivateKey
	payer  solana.PrivateKey
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	admin, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	payer, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	cfg, err := NewConfig(append([]Option{WithAdmin(admin.PublicKey())}, opts...)...)
	require.NoError(t, err)
	prog, err := New(cfg)
	require.NoError(t, err)

	l := ledger.New()
	prog.Register(l)
	l.Airdrop(payer.PublicKey(), 10*solana.LAMPORTS_PER_SOL)

	return &fixture{ledger: l, cfg: cfg, admin: admin, payer: payer}
}

func (f *fixture) execute(t *testing.T, ix solana.Instruction, signers ...solana.PrivateKey) (*ledger.Result, error) {
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, f.ledger.LatestBlockhash(), solana.TransactionPayer(f.payer.PublicKey()))
	require.NoError(t, err)

	keys := append([]solana.PrivateKey{f.payer}, signers...)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range keys {
			if keys[i].PublicKey().Equals(key) {
				return &keys[i]
			}
		}
		return nil
	})
	require.NoError(t, err)
	return f.ledger.Execute(context.Background(), tx)
}

func (f *fixture) mint(t *testing.T, ticket TicketID) (Addresses, error) {
	ix, addrs, err := NewInitOwnershipNftInstruction(f.cfg, ticket, f.payer.PublicKey())
	require.NoError(t, err)
	_, err = f.execute(t, ix, f.admin)
	return addrs, err
}

func (f *fixture) assertMinted(t *testing.T, addrs Addresses) *token2022.MintState {
	mintAccount := f.ledger.GetAccount(addrs.Mint)
	require.NotNil(t, mintAccount)
	assert.Equal(t, token2022.ProgramID, mintAccount.Owner)
	state, err := token2022.DecodeMintState(mintAccount.Data)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), state.Mint.Supply)
	assert.Equal(t, uint8(0), state.Mint.Decimals)
	require.NotNil(t, state.Mint.FreezeAuthority)

	pointer, ok := state.Pointer(token2022.MetadataPointer)
	require.True(t, ok)
	assert.Equal(t, addrs.Metadata, pointer.Address)
	assert.Equal(t, f.cfg.Admin, pointer.Authority)

	tokenAccount := f.ledger.GetAccount(addrs.TokenAccount)
	require.NotNil(t, tokenAccount)
	holding, err := token2022.DecodeAccount(tokenAccount.Data)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), holding.Amount)
	assert.Equal(t, f.payer.PublicKey(), holding.Owner)
	assert.Equal(t, addrs.Mint, holding.Mint)
	return state
}

func TestInitOwnershipNftStrategies(t *testing.T) {
	short := []Option{WithNameStyle(HexName), WithSymbol("OWN")}

	tests := []struct {
		name  string
		opts  []Option
		check func(t *testing.T, f *fixture, ticket TicketID, addrs Addresses, state *token2022.MintState)
	}{
		{
			name: "token2022 extension",
			check: func(t *testing.T, f *fixture, ticket TicketID, addrs Addresses, state *token2022.MintState) {
				md, ok := state.Metadata()
				require.True(t, ok)
				assert.Equal(t, f.cfg.Name(ticket), md.Name)
				assert.Equal(t, DefaultSymbol, md.Symbol)
				assert.Equal(t, f.cfg.URI(ticket), md.URI)
				assert.Equal(t, f.cfg.Admin, md.UpdateAuthority)
				assert.Equal(t, f.cfg.Admin, *state.Mint.MintAuthority)

				hook, ok := state.Pointer(token2022.TransferHook)
				require.True(t, ok)
				assert.Equal(t, DefaultTransferHookProgram, hook.Address)

				assert.Len(t, f.ledger.GetAccount(addrs.TokenAccount).Data, 175)
			},
		},
		{
			name: "metaplex",
			opts: append([]Option{WithStrategy(MetaplexMetadata)}, short...),
			check: func(t *testing.T, f *fixture, ticket TicketID, addrs Addresses, state *token2022.MintState) {
				acc := f.ledger.GetAccount(addrs.Metadata)
				require.NotNil(t, acc)
				assert.Equal(t, metaplex.ProgramID, acc.Owner)
				md, err := metaplex.DecodeMetadata(acc.Data)
				require.NoError(t, err)
				assert.Equal(t, ticket.Hex(), md.Name())
				assert.Equal(t, "OWN", md.Symbol())
				assert.Equal(t, f.cfg.URI(ticket), md.URI())
				assert.True(t, md.IsMutable)
				assert.Equal(t, uint16(0), md.Data.SellerFeeBasisPoints)
				require.NotNil(t, md.Data.Creators)
				assert.Equal(t, []metaplex.Creator{{Address: f.cfg.Admin, Verified: true, Share: 100}}, *md.Data.Creators)

				edition := f.ledger.GetAccount(addrs.MasterEdition)
				require.NotNil(t, edition)
				me, err := metaplex.DecodeMasterEdition(edition.Data)
				require.NoError(t, err)
				require.NotNil(t, me.MaxSupply)
				assert.Equal(t, uint64(0), *me.MaxSupply)

				// the edition holds the mint authority, supply is fixed
				assert.Equal(t, addrs.MasterEdition, *state.Mint.MintAuthority)
			},
		},
		{
			name: "metaplex with the mint as its own authority",
			opts: append([]Option{WithStrategy(MetaplexMetadata), WithMintAuthority(PDAMintAuthority)}, short...),
			check: func(t *testing.T, f *fixture, ticket TicketID, addrs Addresses, state *token2022.MintState) {
				assert.Equal(t, addrs.MasterEdition, *state.Mint.MintAuthority)
				assert.Equal(t, addrs.MasterEdition, *state.Mint.FreezeAuthority)
			},
		},
		{
			name: "custom account",
			opts: append([]Option{WithStrategy(CustomAccountMetadata)}, short...),
			check: func(t *testing.T, f *fixture, ticket TicketID, addrs Addresses, state *token2022.MintState) {
				acc := f.ledger.GetAccount(addrs.Metadata)
				require.NotNil(t, acc)
				assert.Equal(t, f.cfg.ProgramID, acc.Owner)
				assert.Len(t, acc.Data, OwnershipMetadataSize)
				md, err := DecodeOwnershipMetadata(acc.Data)
				require.NoError(t, err)
				assert.Equal(t, addrs.Mint, md.Mint)
				assert.Equal(t, f.cfg.Admin, md.UpdateAuthority)
				assert.Equal(t, ticket.Hex(), md.Name)
				assert.Equal(t, "OWN", md.Symbol)
				assert.Equal(t, f.cfg.URI(ticket), md.URI)
				assert.Equal(t, addrs.MetadataBump, md.Bump)
				assert.Equal(t, f.cfg.Admin, *state.Mint.MintAuthority)
			},
		},
		{
			name: "token2022 extension with pda authority and group pointer",
			opts: []Option{WithMintAuthority(PDAMintAuthority), WithGroupPointer(true), WithTransferHook(solana.PublicKey{})},
			check: func(t *testing.T, f *fixture, ticket TicketID, addrs Addresses, state *token2022.MintState) {
				assert.Equal(t, addrs.Mint, *state.Mint.MintAuthority)
				group, ok := state.Pointer(token2022.GroupPointer)
				require.True(t, ok)
				assert.Equal(t, addrs.Mint, group.Address)
				_, ok = state.Pointer(token2022.TransferHook)
				assert.False(t, ok)

				md, ok := state.Metadata()
				require.True(t, ok)
				assert.Equal(t, f.cfg.Name(ticket), md.Name)

				// no transfer hook, the token account only carries the immutable owner
				assert.Len(t, f.ledger.GetAccount(addrs.TokenAccount).Data, 170)
			},
		},
		{
			name: "idempotent token account creation",
			opts: []Option{WithTokenAccountInitIfNeeded(true)},
			check: func(t *testing.T, f *fixture, ticket TicketID, addrs Addresses, state *token2022.MintState) {
				assert.Len(t, f.ledger.GetAccount(addrs.TokenAccount).Data, 175)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.opts...)
			ticket := NewTicketID()

			addrs, err := f.mint(t, ticket)
			require.NoError(t, err)

			state := f.assertMinted(t, addrs)
			tt.check(t, f, ticket, addrs, state)

			// every account the mint created is rent exempt
			rent := f.ledger.Rent()
			for _, key := range []solana.PublicKey{addrs.Mint, addrs.Metadata, addrs.TokenAccount} {
				acc := f.ledger.GetAccount(key)
				require.NotNil(t, acc)
				assert.True(t, rent.IsExempt(acc.Lamports, len(acc.Data)), key.String())
			}
		})
	}
}

func TestMintSizeWithDefaultExtensions(t *testing.T) {
	f := newFixture(t)
	ticket := NewTicketID()

	addrs, err := f.mint(t, ticket)
	require.NoError(t, err)

	// pointer and hook, then the metadata appended by the token program
	expected := 302 + token2022.MetadataLen(f.cfg.Name(ticket), f.cfg.Symbol, f.cfg.URI(ticket))
	assert.Len(t, f.ledger.GetAccount(addrs.Mint).Data, expected)
}

func TestSameTicketTwice(t *testing.T) {
	f := newFixture(t)
	ticket := NewTicketID()

	_, err := f.mint(t, ticket)
	require.NoError(t, err)

	_, err = f.mint(t, ticket)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrAccountInUse)

	var txErr *ledger.TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Contains(t, txErr.Logs, "Program log: Creating Ownership NFT Mint Account (PDA)...")
}

func TestMismatchedMint(t *testing.T) {
	f := newFixture(t)
	ticket := NewTicketID()

	ix, addrs, err := NewInitOwnershipNftInstruction(f.cfg, ticket, f.payer.PublicKey())
	require.NoError(t, err)
	other, _, err := MintAddress(f.cfg.ProgramID, NewTicketID())
	require.NoError(t, err)
	ix.AccountValues[AccountMint] = solana.Meta(other).WRITE()

	_, err = f.execute(t, ix, f.admin)
	assert.ErrorIs(t, err, faults.ErrInvalidProgram)
	assert.Nil(t, f.ledger.GetAccount(other))
	assert.Nil(t, f.ledger.GetAccount(addrs.Mint))
	assert.Nil(t, f.ledger.GetAccount(addrs.TokenAccount))
}

func TestMismatchedAccounts(t *testing.T) {
	random := solana.NewWallet().PublicKey()

	tests := []struct {
		name  string
		index int
		meta  *solana.AccountMeta
	}{
		{"metadata", AccountMetadata, solana.Meta(random).WRITE()},
		{"token account", AccountTokenAccount, solana.Meta(random).WRITE()},
		{"token program", AccountTokenProgram, solana.Meta(solana.TokenProgramID)},
		{"token metadata program", AccountTokenMetadataProgram, solana.Meta(random)},
		{"rent sysvar", AccountRent, solana.Meta(solana.SysVarClockPubkey)},
		{"associated token program", AccountAssociatedTokenProgram, solana.Meta(random)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ix, addrs, err := NewInitOwnershipNftInstruction(f.cfg, NewTicketID(), f.payer.PublicKey())
			require.NoError(t, err)
			ix.AccountValues[tt.index] = tt.meta

			_, err = f.execute(t, ix, f.admin)
			assert.ErrorIs(t, err, faults.ErrInvalidProgram)
			assert.Nil(t, f.ledger.GetAccount(addrs.Mint))
		})
	}
}

func TestWrongAdmin(t *testing.T) {
	f := newFixture(t)
	impostor, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	// a client configured with another admin
	client := f.cfg
	client.Admin = impostor.PublicKey()
	ix, addrs, err := NewInitOwnershipNftInstruction(client, NewTicketID(), f.payer.PublicKey())
	require.NoError(t, err)

	_, err = f.execute(t, ix, impostor)
	assert.ErrorIs(t, err, faults.ErrInvalidServerSigner)
	assert.Nil(t, f.ledger.GetAccount(addrs.Mint))
}

func TestUpdateAuthorityMismatch(t *testing.T) {
	f := newFixture(t)
	other, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	ix, _, err := NewInitOwnershipNftInstruction(f.cfg, NewTicketID(), f.payer.PublicKey())
	require.NoError(t, err)
	ix.AccountValues[AccountUpdateAuthority] = solana.Meta(other.PublicKey()).SIGNER()

	_, err = f.execute(t, ix, f.admin, other)
	assert.ErrorIs(t, err, faults.ErrInvalidServerSigner)
}

func TestAdminMustSign(t *testing.T) {
	f := newFixture(t)

	ix, _, err := NewInitOwnershipNftInstruction(f.cfg, NewTicketID(), f.payer.PublicKey())
	require.NoError(t, err)
	ix.AccountValues[AccountAdmin] = solana.Meta(f.cfg.Admin)
	ix.AccountValues[AccountUpdateAuthority] = solana.Meta(f.cfg.Admin)

	_, err = f.execute(t, ix)
	assert.ErrorIs(t, err, faults.ErrInvalidServerSigner)
}

func TestMissingAccounts(t *testing.T) {
	f := newFixture(t)

	ix, _, err := NewInitOwnershipNftInstruction(f.cfg, NewTicketID(), f.payer.PublicKey())
	require.NoError(t, err)
	ix.AccountValues = ix.AccountValues[:AccountLegacyTokenProgram]

	_, err = f.execute(t, ix, f.admin)
	assert.ErrorIs(t, err, ledger.ErrNotEnoughAccountKeys)
}

func TestInitialize(t *testing.T) {
	f := newFixture(t)

	res, err := f.execute(t, NewInitializeInstruction(f.cfg.ProgramID))
	require.NoError(t, err)
	assert.Contains(t, res.Logs, "Program log: Greetings from: "+f.cfg.ProgramID.String())
}

func TestUnknownInstruction(t *testing.T) {
	f := newFixture(t)

	_, err := f.execute(t, solana.NewInstruction(f.cfg.ProgramID, solana.AccountMetaSlice{}, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	assert.ErrorIs(t, err, ledger.ErrInvalidInstructionData)
}
