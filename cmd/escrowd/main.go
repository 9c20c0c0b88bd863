package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"escrowd/config"
	"escrowd/core/events"
	"escrowd/escrow"
	"escrowd/observability"
	"escrowd/observability/logging"
	"escrowd/rpc"
	"escrowd/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("ESCROWD_ENV"))
	logger := logging.Setup("escrowd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	state := escrow.NewStoreState(db)
	if err := seedPlatformFee(state, cfg.PlatformFeePercent); err != nil {
		logger.Error("Failed to seed platform fee", slog.Any("error", err))
		os.Exit(1)
	}

	engine := escrow.NewEngine(cfg.OwnerAddress())
	engine.SetState(state)
	engine.SetPayoutSink(payoutLogger{logger: logger})

	server := rpc.NewServer(engine)
	engine.SetEmitter(events.MultiEmitter{
		observability.NewEventLogger(logger),
		server.Emitter(),
	})

	logger.Info("Starting escrowd",
		slog.String("rpc", cfg.RPCAddress),
		slog.String("owner", cfg.OwnerAddress().Hex()),
		slog.Uint64("platformFeePercent", cfg.PlatformFeePercent),
	)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// seedPlatformFee writes the configured fee into a fresh ledger. An existing
// ledger keeps the fee the owner last set through the RPC surface.
func seedPlatformFee(state *escrow.StoreState, percent uint64) error {
	meta, err := state.MetaGet()
	if err != nil {
		return err
	}
	if meta != nil {
		return nil
	}
	return state.MetaPut(&escrow.PlatformMeta{
		TotalVolume:        big.NewInt(0),
		PlatformFeePercent: percent,
	})
}

// payoutLogger satisfies escrow.PayoutSink. The daemon has no banking rail
// attached, so withdrawals are acknowledged and surfaced through logs and the
// withdrawal event for downstream settlement tooling.
type payoutLogger struct {
	logger *slog.Logger
}

func (p payoutLogger) Payout(addr common.Address, amount *big.Int) error {
	p.logger.Info("Payout released",
		slog.String("address", addr.Hex()),
		slog.String("amount", amount.String()),
	)
	return nil
}
