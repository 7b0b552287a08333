package minter

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/GrafMine/ownership-nft/ledger"
	"github.com/GrafMine/ownership-nft/program"
	cluster "github.com/GrafMine/ownership-nft/solana"
)

var (
	_ Submitter = (*LedgerSubmitter)(nil)
	_ Submitter = (*cluster.Solana)(nil)
)

// LedgerSubmitter executes mints in an in-process ledger
type LedgerSubmitter struct {
	ledger *ledger.Ledger
}

// NewLedgerSubmitter with the program registered in the ledger
func NewLedgerSubmitter(l *ledger.Ledger, p *program.Program) *LedgerSubmitter {
	p.Register(l)
	return &LedgerSubmitter{ledger: l}
}

func (s *LedgerSubmitter) LatestBlockhash(context.Context) (solana.Hash, error) {
	return s.ledger.LatestBlockhash(), nil
}

func (s *LedgerSubmitter) Submit(ctx context.Context, tx *solana.Transaction) (*cluster.Confirmation, error) {
	res, err := s.ledger.Execute(ctx, tx)
	if err != nil {
		var txErr *ledger.TransactionError
		if errors.As(err, &txErr) {
			for _, line := range txErr.Logs {
				log.Debug().Msg(line)
			}
		}
		return nil, err
	}
	return &cluster.Confirmation{Signature: res.Signature, Slot: res.Slot, Fee: res.Fee, Logs: res.Logs}, nil
}

func (s *LedgerSubmitter) Fetcher(context.Context) program.AccountFetcher {
	return program.LedgerFetcher(s.ledger)
}

func (s *LedgerSubmitter) Rent(context.Context) (ledger.Rent, error) {
	return s.ledger.Rent(), nil
}
