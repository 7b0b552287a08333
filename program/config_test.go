package program

import (
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafMine/ownership-nft/token2022"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "6HJN3E7nkbExcwfw8YkztMFC2vcfPBQwmDLrkEMJqnqM", cfg.ProgramID.String())
	assert.Equal(t, byte(196), cfg.Admin[0])
	assert.Equal(t, byte(85), cfg.Admin[31])
	assert.Equal(t, byte(1), cfg.TransferHookProgram[0])
	assert.Equal(t, "OWNER-TEST-NFT", cfg.Symbol)
	assert.Equal(t, "http://localhost:3000", cfg.MetadataBaseURL)
	assert.Equal(t, Token2022ExtensionMetadata, cfg.Strategy)
	assert.Equal(t, []token2022.ExtensionType{token2022.MetadataPointer, token2022.TransferHook}, cfg.MintExtensions())

	// the deployed name and symbol do not fit Metaplex metadata
	cfg.Strategy = MetaplexMetadata
	assert.ErrorIs(t, cfg.Validate(), ErrNameTooLong)
	cfg.NameStyle = HexName
	assert.ErrorIs(t, cfg.Validate(), ErrSymbolTooLong)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		err  error
	}{
		{
			name: "defaults",
		},
		{
			name: "missing program id",
			opts: []Option{WithProgramID(solana.PublicKey{})},
			err:  ErrMissingProgramID,
		},
		{
			name: "missing admin",
			opts: []Option{WithAdmin(solana.PublicKey{})},
			err:  ErrMissingAdmin,
		},
		{
			name: "missing symbol",
			opts: []Option{WithSymbol("")},
			err:  ErrMissingSymbol,
		},
		{
			name: "relative base url",
			opts: []Option{WithMetadataBaseURL("localhost:3000")},
			err:  ErrInvalidBaseURL,
		},
		{
			name: "metaplex with prefixed names",
			opts: []Option{WithStrategy(MetaplexMetadata), WithSymbol("OWN")},
			err:  ErrNameTooLong,
		},
		{
			name: "metaplex with the default symbol",
			opts: []Option{WithStrategy(MetaplexMetadata), WithNameStyle(HexName)},
			err:  ErrSymbolTooLong,
		},
		{
			name: "metaplex with hex names",
			opts: []Option{WithStrategy(MetaplexMetadata), WithNameStyle(HexName), WithSymbol("OWN")},
		},
		{
			name: "custom account with hex names",
			opts: []Option{WithStrategy(CustomAccountMetadata), WithNameStyle(HexName), WithSymbol("OWN")},
		},
		{
			name: "custom account uri too long",
			opts: []Option{
				WithStrategy(CustomAccountMetadata), WithNameStyle(HexName), WithSymbol("OWN"),
				WithMetadataBaseURL("https://example.com/" + strings.Repeat("a", 150)),
			},
			err: ErrURITooLong,
		},
		{
			name: "extension strategy has no length limits",
			opts: []Option{WithMetadataBaseURL("https://example.com/" + strings.Repeat("a", 300)), WithSymbol(strings.Repeat("S", 40))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewConfig(tt.opts...)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Equal(t, Config{}, cfg)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestMetadataStrategyText(t *testing.T) {
	for _, s := range []MetadataStrategy{MetaplexMetadata, CustomAccountMetadata, Token2022ExtensionMetadata} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var parsed MetadataStrategy
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, s, parsed)
	}

	var s MetadataStrategy
	assert.Error(t, s.Set("candy-machine"))
	assert.Equal(t, "metaplex", MetaplexMetadata.String())
	assert.Equal(t, "token2022-extension", Token2022ExtensionMetadata.String())
}

func TestModeFlags(t *testing.T) {
	var m MintAuthorityMode
	require.NoError(t, m.Set("mint-pda"))
	assert.Equal(t, PDAMintAuthority, m)
	assert.Equal(t, "mint-pda", m.String())
	assert.Error(t, m.Set("nobody"))

	var n NameStyle
	require.NoError(t, n.Set("hex"))
	assert.Equal(t, HexName, n)
	assert.Error(t, n.Set("short"))
}

func TestMintExtensions(t *testing.T) {
	cfg, err := NewConfig(WithTransferHook(solana.PublicKey{}), WithGroupPointer(true))
	require.NoError(t, err)
	assert.Equal(t, []token2022.ExtensionType{token2022.MetadataPointer, token2022.GroupPointer}, cfg.MintExtensions())
}

func TestMetadataBaseURLTrailingSlash(t *testing.T) {
	cfg, err := NewConfig(WithMetadataBaseURL("https://nft.example.com/"))
	require.NoError(t, err)

	ticket, err := ParseTicketID("00112233-4455-6677-8899-aabbccddeeff")
	require.NoError(t, err)
	assert.Equal(t, "https://nft.example.com/api/metadata/test/00112233-4455-6677-8899-aabbccddeeff", cfg.URI(ticket))
}
