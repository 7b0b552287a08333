package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	flag "github.com/spf13/pflag"

	"github.com/GrafMine/ownership-nft/api"
	"github.com/GrafMine/ownership-nft/ledger"
	"github.com/GrafMine/ownership-nft/minter"
	"github.com/GrafMine/ownership-nft/program"
	cluster "github.com/GrafMine/ownership-nft/solana"
	"github.com/GrafMine/ownership-nft/state"
)

var Version = "development"

// airdrop credited to a generated payer on the in-process ledger
const memoryAirdrop = 100 * solana.LAMPORTS_PER_SOL

// programFlags are the raw flag values a program config is built from
type programFlags struct {
	programID     string
	admin         string
	metadataURL   string
	symbol        string
	strategy      program.MetadataStrategy
	mintAuthority program.MintAuthorityMode
	nameStyle     program.NameStyle
	transferHook  string
	groupPointer  bool
	initIfNeeded  bool
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println(Version)
		return
	}

	var solCfg cluster.Config
	var apiCfg api.Config
	var progFlags programFlags
	var persistencyFile string

	defaults := program.DefaultConfig()
	progFlags.strategy = defaults.Strategy
	progFlags.mintAuthority = defaults.MintAuthority
	progFlags.nameStyle = defaults.NameStyle

	flag.StringVar(&solCfg.NetworkName, "network", cluster.NetworkMemory, "the solana network to mint on: memory, local, devnet, testnet or production")
	flag.StringVar(&solCfg.Endpoint, "endpoint", "", "rpc endpoint to connect to, overrides the network")
	flag.StringVar(&solCfg.KeyFile, "payer-key", "", "path to the solana keyfile of the account paying for and receiving the nfts")
	flag.StringVar(&solCfg.AdminKeyFile, "admin-key", "", "path to the solana keyfile of the admin co-signing every mint")

	flag.StringVar(&progFlags.programID, "program-id", defaults.ProgramID.String(), "address of the ownership program")
	flag.StringVar(&progFlags.admin, "admin", "", "admin public key, defaults to the key of --admin-key")
	flag.StringVar(&progFlags.metadataURL, "metadata-url", defaults.MetadataBaseURL, "base url the metadata uri of every nft starts with")
	flag.StringVar(&progFlags.symbol, "symbol", defaults.Symbol, "symbol of the ownership nfts")
	flag.Var(&progFlags.strategy, "strategy", "where the metadata is stored: metaplex, custom-account or token2022-extension")
	flag.Var(&progFlags.mintAuthority, "mint-authority", "authority of the mint: admin or mint-pda")
	flag.Var(&progFlags.nameStyle, "name-style", "nft name format: prefixed or hex")
	flag.StringVar(&progFlags.transferHook, "transfer-hook", defaults.TransferHookProgram.String(), "transfer hook program, empty disables the extension")
	flag.BoolVar(&progFlags.groupPointer, "group-pointer", false, "add a group pointer extension to every mint")
	flag.BoolVar(&progFlags.initIfNeeded, "init-if-needed", false, "accept an existing associated token account")

	flag.StringVar(&apiCfg.Address, "http", ":3000", "address the http api listens on")
	flag.StringSliceVar(&apiCfg.AllowedOrigins, "origins", nil, "origins allowed to call the http api, all when empty")
	flag.StringVar(&apiCfg.ImageURL, "image", "", "image url served in the nft metadata")
	flag.StringVar(&persistencyFile, "persistency", "./receipts.json", "file where the receipts of minted tickets are stored")

	var debug bool
	flag.BoolVar(&debug, "debug", false, "sets debug level log output")

	flag.Parse()

	if err := solCfg.Validate(); err != nil {
		panic(err)
	}
	if err := apiCfg.Validate(); err != nil {
		panic(err)
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	payer, admin, err := loadKeys(solCfg)
	if err != nil {
		panic(err)
	}
	if progFlags.admin == "" {
		progFlags.admin = admin.PublicKey().String()
	}

	cfg, err := progFlags.config()
	if err != nil {
		panic(err)
	}
	log.Info().
		Str("network", solCfg.NetworkName).
		Str("program", cfg.ProgramID.String()).
		Str("admin", cfg.Admin.String()).
		Str("strategy", cfg.Strategy.String()).
		Msg("ownership program configured")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	submitter, closer, err := newSubmitter(ctx, solCfg, cfg, payer.PublicKey())
	if err != nil {
		panic(err)
	}

	m, err := minter.New(cfg, submitter, solCfg.NetworkName, payer, admin, state.NewReceiptPersistency(persistencyFile))
	if err != nil {
		panic(err)
	}

	if plan, err := m.Plan(ctx, program.NewTicketID()); err == nil {
		log.Info().
			Int("mintSize", plan.MintFinalSize).
			Str("rentPerMint", decimal.NewFromUint64(plan.TotalRent()).Shift(-9).String()+" SOL").
			Msg("rent of a single mint")
	} else {
		log.Warn().Err(err).Msg("could not plan a mint")
	}

	server := api.New(apiCfg, m)
	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe(ctx)
	}()

	sigs := make(chan os.Signal, 1)

	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	log.Info().Msg("awaiting signal")
	select {
	case sig := <-sigs:
		log.Info().Str("signal", sig.String()).Msg("signal")
	case err := <-errs:
		log.Error().Err(err).Msg("http api stopped")
	}
	cancel()

	closer()
	log.Info().Msg("exiting")
}

// config builds the immutable program config from the flags
func (f programFlags) config() (program.Config, error) {
	programID, err := solana.PublicKeyFromBase58(f.programID)
	if err != nil {
		return program.Config{}, errors.Wrap(err, "invalid program id")
	}
	admin, err := solana.PublicKeyFromBase58(f.admin)
	if err != nil {
		return program.Config{}, errors.Wrap(err, "invalid admin key")
	}
	var hook solana.PublicKey
	if f.transferHook != "" {
		if hook, err = solana.PublicKeyFromBase58(f.transferHook); err != nil {
			return program.Config{}, errors.Wrap(err, "invalid transfer hook program")
		}
	}

	return program.NewConfig(
		program.WithProgramID(programID),
		program.WithAdmin(admin),
		program.WithMetadataBaseURL(f.metadataURL),
		program.WithSymbol(f.symbol),
		program.WithStrategy(f.strategy),
		program.WithMintAuthority(f.mintAuthority),
		program.WithNameStyle(f.nameStyle),
		program.WithTransferHook(hook),
		program.WithGroupPointer(f.groupPointer),
		program.WithTokenAccountInitIfNeeded(f.initIfNeeded),
	)
}

// loadKeys reads the payer and admin keyfiles. On the in-process ledger missing keys are generated.
func loadKeys(cfg cluster.Config) (payer, admin solana.PrivateKey, err error) {
	load := func(path, name string) (solana.PrivateKey, error) {
		if path == "" {
			if !cfg.InMemory() {
				return nil, errors.Wrap(cluster.ErrMissingKeyFile, name)
			}
			log.Info().Str("key", name).Msg("generating key for the in-process ledger")
			return solana.NewRandomPrivateKey()
		}
		key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
		return key, errors.Wrapf(err, "could not load %s key", name)
	}

	if payer, err = load(cfg.KeyFile, "payer"); err != nil {
		return nil, nil, err
	}
	if admin, err = load(cfg.AdminKeyFile, "admin"); err != nil {
		return nil, nil, err
	}
	return payer, admin, nil
}

// newSubmitter connects to the configured cluster, or starts an in-process ledger with the program
// deployed and the payer funded
func newSubmitter(ctx context.Context, solCfg cluster.Config, cfg program.Config, payer solana.PublicKey) (minter.Submitter, func(), error) {
	if !solCfg.InMemory() {
		sol, err := cluster.New(ctx, &solCfg)
		if err != nil {
			return nil, nil, err
		}
		return sol, func() {
			if err := sol.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close solana client")
			}
		}, nil
	}

	prog, err := program.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	l := ledger.New()
	l.Airdrop(payer, memoryAirdrop)
	log.Info().Str("payer", payer.String()).Uint64("lamports", memoryAirdrop).Msg("funded payer on the in-process ledger")
	return minter.NewLedgerSubmitter(l, prog), func() {}, nil
}
