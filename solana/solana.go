// Package solana submits ownership nft mints to a Solana cluster and reads them back
package solana

import (
	"context"
	"encoding/json"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/gagliardetto/solana-go"
	budget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/rpc"
	confirm "github.com/gagliardetto/solana-go/rpc/sendAndConfirmTransaction"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/GrafMine/ownership-nft/faults"
	"github.com/GrafMine/ownership-nft/ledger"
	"github.com/GrafMine/ownership-nft/program"
)

var (
	// ErrSolanaNetworkNotSupported is returned when an unknown Solana network name is requested
	ErrSolanaNetworkNotSupported = errors.New("the provided network is not a valid Solana network")

	// ErrSimulationFailed is returned when the cluster rejects a transaction in simulation
	ErrSimulationFailed = errors.New("transaction simulation failed")
)

// ComputeUnitLimit requested by every mint transaction, the CPI chain needs more than the default
const ComputeUnitLimit = 400_000

// ComputeUnitLimitInstruction is prepended to every mint transaction
func ComputeUnitLimitInstruction() solana.Instruction {
	return budget.NewSetComputeUnitLimitInstruction(ComputeUnitLimit).Build()
}

// Confirmation of a transaction included in a block
type Confirmation struct {
	Signature solana.Signature
	Slot      uint64
	Fee       uint64
	Logs      []string
}

type Solana struct {
	rpcClient *rpc.Client
	wsClient  *ws.Client

	confirmations *confirmationCache
}

// New Solana client connected to the configured network
func New(ctx context.Context, cfg *Config) (*Solana, error) {
	rpcClient, wsClient, err := getSolanaClient(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "could not create Solana RPC client")
	}

	return &Solana{rpcClient: rpcClient, wsClient: wsClient, confirmations: newConfirmationCache(confirmationsCached)}, nil
}

// LatestBlockhash a transaction can reference
func (sol *Solana) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	recent, err := sol.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, errors.Wrap(err, "failed to get latest finalized block hash")
	}
	return recent.Value.Blockhash, nil
}

// Rent parameters of the cluster, read from the rent sysvar
func (sol *Solana) Rent(ctx context.Context) (ledger.Rent, error) {
	res, err := sol.rpcClient.GetAccountInfo(ctx, solana.SysVarRentPubkey)
	if err != nil {
		return ledger.Rent{}, errors.Wrap(err, "failed to get rent sysvar")
	}
	return ledger.DecodeRent(res.Value.Data.GetBinary())
}

// Submit a signed transaction. It is simulated first so program errors surface with their logs
// before any fee is paid.
func (sol *Solana) Submit(ctx context.Context, tx *solana.Transaction) (*Confirmation, error) {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		spew.Dump(tx)
	}

	sim, err := sol.rpcClient.SimulateTransaction(ctx, tx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to simulate transaction")
	}
	for _, line := range sim.Value.Logs {
		log.Debug().Str("log", line).Msg("Simulation")
	}
	if sim.Value.Err != nil {
		return nil, errors.Wrapf(simulationError(sim.Value.Err), "simulation of %s", tx.Signatures[0])
	}

	sig, err := confirm.SendAndConfirmTransaction(ctx, sol.rpcClient, sol.wsClient, tx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to submit transaction")
	}
	log.Info().Str("signature", sig.String()).Msg("Submitted transaction")

	c, err := sol.confirmation(ctx, sig)
	if err != nil {
		// the transaction is confirmed, only its details are missing
		log.Warn().Err(err).Str("signature", sig.String()).Msg("Could not fetch confirmed transaction")
		return &Confirmation{Signature: sig, Logs: sim.Value.Logs}, nil
	}
	return c, nil
}

// Fetcher reads accounts at confirmed commitment
func (sol *Solana) Fetcher(ctx context.Context) program.AccountFetcher {
	return func(key solana.PublicKey) ([]byte, solana.PublicKey, error) {
		res, err := sol.rpcClient.GetAccountInfoWithOpts(ctx, key, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: rpc.CommitmentConfirmed,
		})
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, solana.PublicKey{}, nil
		}
		if err != nil {
			return nil, solana.PublicKey{}, errors.Wrapf(err, "failed to get account %s", key)
		}
		return res.Value.Data.GetBinary(), res.Value.Owner, nil
	}
}

// confirmation reads the slot, fee and logs of a confirmed transaction
func (sol *Solana) confirmation(ctx context.Context, sig solana.Signature) (*Confirmation, error) {
	if c := sol.confirmations.get(sig); c != nil {
		return c, nil
	}
	version := uint64(0)
	res, err := sol.rpcClient.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &version,
	})
	if err != nil {
		return nil, err
	}
	c := Confirmation{Signature: sig, Slot: res.Slot}
	if res.Meta != nil {
		c.Fee = res.Meta.Fee
		c.Logs = res.Meta.LogMessages
	}
	sol.confirmations.add(c)
	return &c, nil
}

// Close the client terminating all open connections
func (sol *Solana) Close() error {
	sol.wsClient.Close()
	return sol.rpcClient.Close()
}

// simulationError turns the error of a simulation into a program error where the cluster reports
// a custom code, e.g. {"InstructionError":[1,{"Custom":6000}]}
func simulationError(raw interface{}) error {
	if m, ok := raw.(map[string]interface{}); ok {
		if ie, ok := m["InstructionError"].([]interface{}); ok && len(ie) == 2 {
			if detail, ok := ie[1].(map[string]interface{}); ok {
				if code, ok := number(detail["Custom"]); ok {
					if pe := faults.ProgramErrorByCode(uint32(code)); pe != nil {
						return pe
					}
					return errors.Wrapf(ErrSimulationFailed, "custom program error %#x", code)
				}
			}
		}
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return ErrSimulationFailed
	}
	return errors.Wrap(ErrSimulationFailed, string(encoded))
}

func number(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case float64:
		return uint64(n), true
	case json.Number:
		i, err := n.Int64()
		return uint64(i), err == nil
	case int:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	}
	return 0, false
}

// cluster returns the endpoints of a named network
func cluster(network string) (rpc.Cluster, error) {
	switch network {
	case "local":
		return rpc.LocalNet, nil
	case "devnet":
		return rpc.DevNet, nil
	case "testnet":
		return rpc.TestNet, nil
	case "production":
		return rpc.MainNetBeta, nil
	default:
		return rpc.Cluster{}, ErrSolanaNetworkNotSupported
	}
}

// getSolanaClient gets an RPC client and websocket client for a specific solana network
func getSolanaClient(ctx context.Context, cfg *Config) (*rpc.Client, *ws.Client, error) {
	var config rpc.Cluster
	var err error

	if cfg.Endpoint != "" {
		config.RPC = cfg.Endpoint
		config.WS, err = wsEndpoint(cfg.Endpoint)
	} else {
		config, err = cluster(cfg.NetworkName)
	}
	if err != nil {
		return nil, nil, err
	}

	rpcClient := rpc.NewWithCustomRPCClient(rpc.NewWithLimiter(config.RPC, rate.Every(time.Second), 10))

	wsClient, err := ws.Connect(ctx, config.WS)
	if err != nil {
		rpcClient.Close()
		return nil, nil, errors.Wrap(err, "failed to establish websocket connection")
	}

	return rpcClient, wsClient, nil
}
