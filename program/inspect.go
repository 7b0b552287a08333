package program

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/GrafMine/ownership-nft/faults"
	"github.com/GrafMine/ownership-nft/ledger"
	"github.com/GrafMine/ownership-nft/metaplex"
	"github.com/GrafMine/ownership-nft/token2022"
)

// AccountFetcher returns the data and owner of an account. Missing accounts return nil data.
type AccountFetcher func(key solana.PublicKey) (data []byte, owner solana.PublicKey, err error)

// Holding is an ownership nft as it is read back from its accounts
type Holding struct {
	Addresses Addresses `json:"addresses"`

	Supply          uint64                    `json:"supply"`
	Decimals        uint8                     `json:"decimals"`
	MintAuthority   *solana.PublicKey         `json:"mintAuthority"`
	FreezeAuthority *solana.PublicKey         `json:"freezeAuthority"`
	Extensions      []token2022.ExtensionType `json:"extensions"`

	Owner  solana.PublicKey `json:"owner"`
	Amount uint64           `json:"amount"`

	Name            string           `json:"name"`
	Symbol          string           `json:"symbol"`
	URI             string           `json:"uri"`
	UpdateAuthority solana.PublicKey `json:"updateAuthority"`
}

// Inspect reads the mint, token account and metadata of an ownership nft. A missing mint is
// reported as an unknown ticket.
func (c Config) Inspect(addrs Addresses, fetch AccountFetcher) (*Holding, error) {
	data, owner, err := fetch(addrs.Mint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch mint")
	}
	if data == nil {
		return nil, errors.Wrapf(faults.ErrUnknownTicket, "mint %s does not exist", addrs.Mint)
	}
	if !owner.Equals(token2022.ProgramID) {
		return nil, errors.Errorf("mint %s is owned by %s", addrs.Mint, owner)
	}
	state, err := token2022.DecodeMintState(data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode mint")
	}

	h := &Holding{
		Addresses:       addrs,
		Supply:          state.Mint.Supply,
		Decimals:        state.Mint.Decimals,
		MintAuthority:   state.Mint.MintAuthority,
		FreezeAuthority: state.Mint.FreezeAuthority,
	}
	for _, ext := range state.Extensions {
		h.Extensions = append(h.Extensions, ext.Type)
	}

	data, _, err = fetch(addrs.TokenAccount)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch token account")
	}
	if data != nil {
		account, err := token2022.DecodeAccount(data)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode token account")
		}
		h.Owner = account.Owner
		h.Amount = account.Amount
	}

	switch c.Strategy {
	case Token2022ExtensionMetadata:
		md, ok := state.Metadata()
		if !ok {
			return h, nil
		}
		h.Name, h.Symbol, h.URI, h.UpdateAuthority = md.Name, md.Symbol, md.URI, md.UpdateAuthority
	case MetaplexMetadata:
		data, _, err = fetch(addrs.Metadata)
		if err != nil {
			return nil, errors.Wrap(err, "failed to fetch metadata")
		}
		if data == nil {
			return h, nil
		}
		md, err := metaplex.DecodeMetadata(data)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode metadata")
		}
		h.Name, h.Symbol, h.URI, h.UpdateAuthority = md.Name(), md.Symbol(), md.URI(), md.UpdateAuthority
	case CustomAccountMetadata:
		data, _, err = fetch(addrs.Metadata)
		if err != nil {
			return nil, errors.Wrap(err, "failed to fetch metadata")
		}
		if data == nil {
			return h, nil
		}
		md, err := DecodeOwnershipMetadata(data)
		if err != nil {
			return nil, err
		}
		h.Name, h.Symbol, h.URI, h.UpdateAuthority = md.Name, md.Symbol, md.URI, md.UpdateAuthority
	}
	return h, nil
}

// LedgerFetcher reads accounts from a ledger
func LedgerFetcher(l *ledger.Ledger) AccountFetcher {
	return func(key solana.PublicKey) ([]byte, solana.PublicKey, error) {
		acc := l.GetAccount(key)
		if acc == nil {
			return nil, solana.PublicKey{}, nil
		}
		return acc.Data, acc.Owner, nil
	}
}

// Plan is everything a mint of a ticket creates, computed without executing it
type Plan struct {
	Ticket    TicketID  `json:"ticketId"`
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	URI       string    `json:"uri"`
	Addresses Addresses `json:"addresses"`

	Extensions []token2022.ExtensionType `json:"extensions"`
	// MintSize is allocated when the mint is created, MintFinalSize once the metadata is attached
	MintSize         int `json:"mintSize"`
	MintFinalSize    int `json:"mintFinalSize"`
	TokenAccountSize int `json:"tokenAccountSize"`
	MetadataSize     int `json:"metadataSize"`

	MintRent         uint64 `json:"mintRent"`
	TokenAccountRent uint64 `json:"tokenAccountRent"`
	MetadataRent     uint64 `json:"metadataRent"`
	EditionRent      uint64 `json:"editionRent"`
}

// TotalRent the payer funds
func (p Plan) TotalRent() uint64 {
	return p.MintRent + p.TokenAccountRent + p.MetadataRent + p.EditionRent
}

// Plan sizes and prices the mint of a ticket to a payer
func (c Config) Plan(ticket TicketID, payer solana.PublicKey, rent ledger.Rent) (*Plan, error) {
	addrs, err := c.Addresses(ticket, payer)
	if err != nil {
		return nil, err
	}
	p := &Plan{
		Ticket:     ticket,
		Name:       c.Name(ticket),
		Symbol:     c.Symbol,
		URI:        c.URI(ticket),
		Addresses:  addrs,
		Extensions: c.MintExtensions(),
	}

	if p.MintSize, err = token2022.MintLen(p.Extensions...); err != nil {
		return nil, err
	}
	p.MintFinalSize = p.MintSize
	if c.Strategy == Token2022ExtensionMetadata {
		p.MintFinalSize += token2022.MetadataLen(p.Name, p.Symbol, p.URI)
	}

	accountExtensions := append([]token2022.ExtensionType{token2022.ImmutableOwner}, token2022.RequiredAccountExtensions(p.Extensions)...)
	if p.TokenAccountSize, err = token2022.AccountLen(accountExtensions...); err != nil {
		return nil, err
	}

	p.MintRent = rent.MinimumBalance(p.MintFinalSize)
	p.TokenAccountRent = rent.MinimumBalance(p.TokenAccountSize)
	switch c.Strategy {
	case MetaplexMetadata:
		p.MetadataSize = metaplex.MetadataAccountSize
		p.MetadataRent = rent.MinimumBalance(metaplex.MetadataAccountSize)
		p.EditionRent = rent.MinimumBalance(metaplex.MasterEditionAccountSize)
	case CustomAccountMetadata:
		p.MetadataSize = OwnershipMetadataSize
		p.MetadataRent = rent.MinimumBalance(OwnershipMetadataSize)
	}
	return p, nil
}
