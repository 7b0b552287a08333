package program

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafMine/ownership-nft/faults"
	"github.com/GrafMine/ownership-nft/metaplex"
	"github.com/GrafMine/ownership-nft/token2022"
)

const exampleTicket = "00112233-4455-6677-8899-aabbccddeeff"

func TestTicketNaming(t *testing.T) {
	ticket, err := ParseTicketID(exampleTicket)
	require.NoError(t, err)

	cfg := DefaultConfig()
	assert.Equal(t, exampleTicket, ticket.String())
	assert.Equal(t, "00112233445566778899aabbccddeeff", ticket.Hex())
	assert.Equal(t, "Test #00112233-4455-6677-8899-aabbccddeeff", cfg.Name(ticket))
	assert.Equal(t, "http://localhost:3000/api/metadata/test/00112233-4455-6677-8899-aabbccddeeff", cfg.URI(ticket))

	cfg, err = NewConfig(WithNameStyle(HexName))
	require.NoError(t, err)
	assert.Equal(t, "00112233445566778899aabbccddeeff", cfg.Name(ticket))
}

func TestParseTicketID(t *testing.T) {
	for _, s := range []string{
		exampleTicket,
		"00112233445566778899aabbccddeeff",
		"{00112233-4455-6677-8899-aabbccddeeff}",
		"urn:uuid:00112233-4455-6677-8899-aabbccddeeff",
	} {
		ticket, err := ParseTicketID(s)
		require.NoError(t, err, s)
		assert.Equal(t, exampleTicket, ticket.String())
	}

	_, err := ParseTicketID("not a ticket")
	assert.ErrorIs(t, err, faults.ErrInvalidTicketID)

	_, err = TicketIDFromBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, faults.ErrInvalidTicketID)

	var ticket TicketID
	require.NoError(t, ticket.UnmarshalText([]byte(exampleTicket)))
	text, err := ticket.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, exampleTicket, string(text))
}

func TestMintAddressIsDeterministic(t *testing.T) {
	ticket := NewTicketID()
	programID := DefaultProgramID

	first, bump, err := MintAddress(programID, ticket)
	require.NoError(t, err)
	second, secondBump, err := MintAddress(programID, ticket)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, bump, secondBump)

	recreated, err := solana.CreateProgramAddress(mintSeeds(ticket, bump), programID)
	require.NoError(t, err)
	assert.Equal(t, first, recreated)

	other, _, err := MintAddress(programID, NewTicketID())
	require.NoError(t, err)
	assert.NotEqual(t, first, other)

	elsewhere, _, err := MintAddress(solana.NewWallet().PublicKey(), ticket)
	require.NoError(t, err)
	assert.NotEqual(t, first, elsewhere)
}

func TestAddressesPerStrategy(t *testing.T) {
	ticket := NewTicketID()
	payer := solana.NewWallet().PublicKey()

	extension := DefaultConfig()
	addrs, err := extension.Addresses(ticket, payer)
	require.NoError(t, err)
	assert.Equal(t, addrs.Mint, addrs.Metadata)
	assert.Equal(t, solana.SystemProgramID, addrs.MasterEdition)
	ata, _, err := token2022.FindAssociatedTokenAddress(payer, addrs.Mint)
	require.NoError(t, err)
	assert.Equal(t, ata, addrs.TokenAccount)

	mp, err := NewConfig(WithStrategy(MetaplexMetadata), WithNameStyle(HexName), WithSymbol("OWN"))
	require.NoError(t, err)
	addrs, err = mp.Addresses(ticket, payer)
	require.NoError(t, err)
	metadata, _, err := metaplex.MetadataAddress(addrs.Mint)
	require.NoError(t, err)
	edition, _, err := metaplex.MasterEditionAddress(addrs.Mint)
	require.NoError(t, err)
	assert.Equal(t, metadata, addrs.Metadata)
	assert.Equal(t, edition, addrs.MasterEdition)

	custom, err := NewConfig(WithStrategy(CustomAccountMetadata), WithNameStyle(HexName), WithSymbol("OWN"))
	require.NoError(t, err)
	addrs, err = custom.Addresses(ticket, payer)
	require.NoError(t, err)
	metadata, bump, err := CustomMetadataAddress(custom.ProgramID, addrs.Mint)
	require.NoError(t, err)
	assert.Equal(t, metadata, addrs.Metadata)
	assert.Equal(t, bump, addrs.MetadataBump)
	assert.Equal(t, solana.SystemProgramID, addrs.MasterEdition)
}

func TestInitOwnershipNftInstruction(t *testing.T) {
	ticket, err := ParseTicketID(exampleTicket)
	require.NoError(t, err)
	payer := solana.NewWallet().PublicKey()
	cfg := DefaultConfig()

	ix, addrs, err := NewInitOwnershipNftInstruction(cfg, ticket, payer)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Equal(t, InitOwnershipNftDiscriminator, data[:8])
	assert.Equal(t, ticket[:], data[8:])

	decoded, err := DecodeInitOwnershipNft(data)
	require.NoError(t, err)
	assert.Equal(t, ticket, decoded)

	accounts := ix.Accounts()
	require.Len(t, accounts, requiredAccounts)
	assert.Equal(t, addrs.Mint, accounts[AccountMint].PublicKey)
	assert.True(t, accounts[AccountMint].IsWritable)
	assert.False(t, accounts[AccountMasterEdition].IsWritable)
	assert.True(t, accounts[AccountPayer].IsSigner)
	assert.True(t, accounts[AccountAdmin].IsSigner)
	assert.Equal(t, cfg.Admin, accounts[AccountUpdateAuthority].PublicKey)
	assert.Equal(t, token2022.ProgramID, accounts[AccountTokenProgram].PublicKey)
	assert.Equal(t, solana.TokenProgramID, accounts[AccountLegacyTokenProgram].PublicKey)

	_, err = DecodeInitOwnershipNft(InitializeDiscriminator)
	assert.ErrorIs(t, err, ErrUnknownInstruction)

	initIx := NewInitializeInstruction(cfg.ProgramID)
	data, err = initIx.Data()
	require.NoError(t, err)
	assert.Equal(t, InitializeDiscriminator, data)
}

func TestOwnershipMetadataEncoding(t *testing.T) {
	md := OwnershipMetadata{
		Mint:            solana.NewWallet().PublicKey(),
		UpdateAuthority: solana.NewWallet().PublicKey(),
		Name:            "00112233445566778899aabbccddeeff",
		Symbol:          "OWN",
		URI:             "http://localhost:3000/api/metadata/test/" + exampleTicket,
		Bump:            254,
	}
	raw, err := md.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, OwnershipMetadataDiscriminator, raw[:8])
	assert.LessOrEqual(t, len(raw), OwnershipMetadataSize)

	// accounts are allocated at full size, the tail stays zero
	account := make([]byte, OwnershipMetadataSize)
	copy(account, raw)
	decoded, err := DecodeOwnershipMetadata(account)
	require.NoError(t, err)
	assert.Equal(t, md, *decoded)

	_, err = DecodeOwnershipMetadata(make([]byte, OwnershipMetadataSize))
	assert.Error(t, err)
}
