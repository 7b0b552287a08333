package program

import (
	"net/url"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/GrafMine/ownership-nft/metaplex"
	"github.com/GrafMine/ownership-nft/token2022"
)

var (
	// DefaultProgramID the ownership program is deployed at
	DefaultProgramID = solana.MustPublicKeyFromBase58("6HJN3E7nkbExcwfw8YkztMFC2vcfPBQwmDLrkEMJqnqM")

	// DefaultAdmin is the ticket validator that co-signs every mint
	DefaultAdmin = solana.PublicKeyFromBytes([]byte{
		196, 49, 119, 241, 84, 72, 174, 21, 39, 203, 148, 43, 111, 97, 189, 117,
		219, 157, 187, 242, 107, 205, 96, 30, 175, 144, 175, 16, 189, 127, 73, 85,
	})

	// DefaultTransferHookProgram is invoked by the token program on every transfer of an ownership nft
	DefaultTransferHookProgram = solana.PublicKeyFromBytes([]byte{
		1, 2, 3, 4, 5, 130, 19, 173, 21, 58, 108, 43, 179, 33, 211, 237,
		222, 201, 145, 188, 175, 181, 142, 126, 0, 68, 162, 19, 143, 142, 77, 119,
	})
)

const (
	DefaultMetadataBaseURL = "http://localhost:3000"
	DefaultSymbol          = "OWNER-TEST-NFT"

	// metadataPath is appended to the base url, followed by the ticket id
	metadataPath = "/api/metadata/test/"
	namePrefix   = "Test #"

	// ticketTextLen is the length of a hyphenated ticket id
	ticketTextLen = 36
)

var (
	ErrMissingProgramID = errors.New("program id is required")
	ErrMissingAdmin     = errors.New("admin key is required")
	ErrMissingSymbol    = errors.New("symbol is required")
	ErrInvalidBaseURL   = errors.New("metadata base url must be an absolute http(s) url")
	ErrNameTooLong      = errors.New("nft name does not fit the metadata strategy")
	ErrSymbolTooLong    = errors.New("symbol does not fit the metadata strategy")
	ErrURITooLong       = errors.New("metadata uri does not fit the metadata strategy")
)

// MetadataStrategy selects where the name, symbol and uri of an ownership nft are stored
type MetadataStrategy uint8

const (
	// MetaplexMetadata creates a Metaplex metadata account and master edition
	MetaplexMetadata MetadataStrategy = iota
	// CustomAccountMetadata writes a metadata account owned by the ownership program
	CustomAccountMetadata
	// Token2022ExtensionMetadata embeds the metadata in the mint with the token metadata extension
	Token2022ExtensionMetadata
)

var strategyNames = map[MetadataStrategy]string{
	MetaplexMetadata:           "metaplex",
	CustomAccountMetadata:      "custom-account",
	Token2022ExtensionMetadata: "token2022-extension",
}

func (s MetadataStrategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "unknown"
}

// Set parses the text form, which makes the strategy usable as a flag value
func (s *MetadataStrategy) Set(text string) error {
	for strategy, name := range strategyNames {
		if name == text {
			*s = strategy
			return nil
		}
	}
	return errors.Errorf("unknown metadata strategy %q", text)
}

func (s MetadataStrategy) Type() string {
	return "strategy"
}

func (s MetadataStrategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *MetadataStrategy) UnmarshalText(text []byte) error {
	return s.Set(string(text))
}

// limits returns the maximum name and symbol length a strategy accepts, 0 means unbounded
func (s MetadataStrategy) limits() (name, symbol, uri int) {
	switch s {
	case MetaplexMetadata, CustomAccountMetadata:
		return metaplex.MaxNameLength, metaplex.MaxSymbolLength, metaplex.MaxURILength
	default:
		return 0, 0, 0
	}
}

// MintAuthorityMode selects the key holding the mint authority of an ownership nft
type MintAuthorityMode uint8

const (
	// AdminMintAuthority makes the admin co-signer the mint authority
	AdminMintAuthority MintAuthorityMode = iota
	// PDAMintAuthority makes the mint PDA its own mint authority, signing with its seeds
	PDAMintAuthority
)

func (m MintAuthorityMode) String() string {
	switch m {
	case AdminMintAuthority:
		return "admin"
	case PDAMintAuthority:
		return "mint-pda"
	default:
		return "unknown"
	}
}

func (m *MintAuthorityMode) Set(text string) error {
	switch text {
	case "admin":
		*m = AdminMintAuthority
	case "mint-pda":
		*m = PDAMintAuthority
	default:
		return errors.Errorf("unknown mint authority %q", text)
	}
	return nil
}

func (m MintAuthorityMode) Type() string {
	return "authority"
}

// NameStyle selects how the nft name is derived from the ticket id
type NameStyle uint8

const (
	// PrefixedName is "Test #" followed by the hyphenated ticket id
	PrefixedName NameStyle = iota
	// HexName is the 32 hex digits of the ticket id
	HexName
)

func (n NameStyle) String() string {
	switch n {
	case PrefixedName:
		return "prefixed"
	case HexName:
		return "hex"
	default:
		return "unknown"
	}
}

func (n *NameStyle) Set(text string) error {
	switch text {
	case "prefixed":
		*n = PrefixedName
	case "hex":
		*n = HexName
	default:
		return errors.Errorf("unknown name style %q", text)
	}
	return nil
}

func (n NameStyle) Type() string {
	return "style"
}

// maxLen of a name in this style
func (n NameStyle) maxLen() int {
	if n == HexName {
		return 32
	}
	return len(namePrefix) + ticketTextLen
}

// Config of the ownership program. It is built once with NewConfig and passed by value.
type Config struct {
	ProgramID solana.PublicKey
	// Admin must co-sign every mint, it holds every authority of the nft
	Admin           solana.PublicKey
	MetadataBaseURL string
	Symbol          string
	Strategy        MetadataStrategy
	NameStyle       NameStyle
	MintAuthority   MintAuthorityMode
	// TransferHookProgram enables the transfer hook extension when not zero
	TransferHookProgram solana.PublicKey
	// GroupPointer enables the group pointer extension, pointing at the mint itself
	GroupPointer bool
	// TokenAccountInitIfNeeded accepts an existing associated token account
	TokenAccountInitIfNeeded bool
}

// Option changes one setting of a config under construction
type Option func(*Config)

func WithProgramID(id solana.PublicKey) Option {
	return func(c *Config) { c.ProgramID = id }
}

func WithAdmin(admin solana.PublicKey) Option {
	return func(c *Config) { c.Admin = admin }
}

func WithMetadataBaseURL(base string) Option {
	return func(c *Config) { c.MetadataBaseURL = strings.TrimRight(base, "/") }
}

func WithSymbol(symbol string) Option {
	return func(c *Config) { c.Symbol = symbol }
}

func WithStrategy(s MetadataStrategy) Option {
	return func(c *Config) { c.Strategy = s }
}

func WithNameStyle(n NameStyle) Option {
	return func(c *Config) { c.NameStyle = n }
}

func WithMintAuthority(m MintAuthorityMode) Option {
	return func(c *Config) { c.MintAuthority = m }
}

// WithTransferHook sets the transfer hook program, the zero key disables the extension
func WithTransferHook(program solana.PublicKey) Option {
	return func(c *Config) { c.TransferHookProgram = program }
}

func WithGroupPointer(enabled bool) Option {
	return func(c *Config) { c.GroupPointer = enabled }
}

func WithTokenAccountInitIfNeeded(enabled bool) Option {
	return func(c *Config) { c.TokenAccountInitIfNeeded = enabled }
}

// DefaultConfig carries the constants of the deployed program: its id, admin, base url, symbol and
// transfer hook. Metadata lives in the Token-2022 extension since the default prefixed name and
// symbol exceed the Metaplex limits.
func DefaultConfig() Config {
	return Config{
		ProgramID:           DefaultProgramID,
		Admin:               DefaultAdmin,
		MetadataBaseURL:     DefaultMetadataBaseURL,
		Symbol:              DefaultSymbol,
		Strategy:            Token2022ExtensionMetadata,
		NameStyle:           PrefixedName,
		MintAuthority:       AdminMintAuthority,
		TransferHookProgram: DefaultTransferHookProgram,
	}
}

// NewConfig applies the options to the default config and validates the result
func NewConfig(opts ...Option) (Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate the config. Every name, symbol and uri the config can produce must fit the limits of
// the metadata strategy, so a mint never fails on metadata length.
func (c Config) Validate() error {
	if c.ProgramID.IsZero() {
		return ErrMissingProgramID
	}
	if c.Admin.IsZero() {
		return ErrMissingAdmin
	}
	if c.Symbol == "" {
		return ErrMissingSymbol
	}
	u, err := url.Parse(c.MetadataBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Wrapf(ErrInvalidBaseURL, "%q", c.MetadataBaseURL)
	}
	if _, ok := strategyNames[c.Strategy]; !ok {
		return errors.Errorf("unknown metadata strategy %d", c.Strategy)
	}

	maxName, maxSymbol, maxURI := c.Strategy.limits()
	if maxName > 0 && c.NameStyle.maxLen() > maxName {
		return errors.Wrapf(ErrNameTooLong, "%s names are %d bytes, %s allows %d", c.NameStyle, c.NameStyle.maxLen(), c.Strategy, maxName)
	}
	if maxSymbol > 0 && len(c.Symbol) > maxSymbol {
		return errors.Wrapf(ErrSymbolTooLong, "%q is %d bytes, %s allows %d", c.Symbol, len(c.Symbol), c.Strategy, maxSymbol)
	}
	if uriLen := len(strings.TrimRight(c.MetadataBaseURL, "/")) + len(metadataPath) + ticketTextLen; maxURI > 0 && uriLen > maxURI {
		return errors.Wrapf(ErrURITooLong, "uris are %d bytes, %s allows %d", uriLen, c.Strategy, maxURI)
	}
	return nil
}

// MintExtensions in the order they are initialized
func (c Config) MintExtensions() []token2022.ExtensionType {
	extensions := []token2022.ExtensionType{token2022.MetadataPointer}
	if !c.TransferHookProgram.IsZero() {
		extensions = append(extensions, token2022.TransferHook)
	}
	if c.GroupPointer {
		extensions = append(extensions, token2022.GroupPointer)
	}
	return extensions
}

// Name of the nft of a ticket
func (c Config) Name(ticket TicketID) string {
	if c.NameStyle == HexName {
		return ticket.Hex()
	}
	return namePrefix + ticket.String()
}

// URI of the off-chain metadata json of a ticket
func (c Config) URI(ticket TicketID) string {
	return strings.TrimRight(c.MetadataBaseURL, "/") + metadataPath + ticket.String()
}
