package token2022

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataEncoding(t *testing.T) {
	md := Metadata{
		UpdateAuthority:    solana.NewWallet().PublicKey(),
		Mint:               solana.NewWallet().PublicKey(),
		Name:               "Test #00112233-4455-6677-8899-aabbccddeeff",
		Symbol:             "OWNER-TEST-NFT",
		URI:                "http://localhost:3000/api/metadata/test/00112233-4455-6677-8899-aabbccddeeff",
		AdditionalMetadata: [][2]string{{"ticket", "00112233-4455-6677-8899-aabbccddeeff"}},
	}

	raw, err := md.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, raw, md.Len())

	var decoded Metadata
	require.NoError(t, decoded.UnmarshalBinary(raw))
	assert.Equal(t, md, decoded)
}

func TestMetadataLen(t *testing.T) {
	// 4 header + 32 + 32 + (4+4) + (4+3) + (4+16) + 4
	assert.Equal(t, 107, MetadataLen("name", "SYM", "http://localhost"))
}

func TestMintStateRoundTrip(t *testing.T) {
	size, err := MintLen(MetadataPointer)
	require.NoError(t, err)
	data := make([]byte, size)

	authority := solana.NewWallet().PublicKey()
	p := Pointer{Authority: authority, Address: solana.NewWallet().PublicKey()}
	value, err := p.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, InitExtension(data, AccountTypeMint, MetadataPointer, value))
	assert.False(t, MintInitialized(data))

	require.NoError(t, EncodeMint(&token.Mint{
		MintAuthority:   &authority,
		Decimals:        0,
		IsInitialized:   true,
		FreezeAuthority: &authority,
	}, data))
	assert.True(t, MintInitialized(data))

	state, err := DecodeMintState(data)
	require.NoError(t, err)
	assert.Equal(t, authority, *state.Mint.MintAuthority)
	assert.Equal(t, uint8(0), state.Mint.Decimals)

	got, ok := state.Pointer(MetadataPointer)
	require.True(t, ok)
	assert.Equal(t, p, got)

	_, ok = state.Pointer(TransferHook)
	assert.False(t, ok)
}

func TestAccountState(t *testing.T) {
	data := make([]byte, AccountSize)
	assert.False(t, AccountInitialized(data))

	account := token.Account{
		Mint:   solana.NewWallet().PublicKey(),
		Owner:  solana.NewWallet().PublicKey(),
		Amount: 1,
		State:  token.Initialized,
	}
	require.NoError(t, EncodeAccount(&account, data))
	assert.True(t, AccountInitialized(data))

	decoded, err := DecodeAccount(data)
	require.NoError(t, err)
	assert.Equal(t, account.Mint, decoded.Mint)
	assert.Equal(t, uint64(1), decoded.Amount)
}
