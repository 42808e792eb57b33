package main

// Runs the full order lifecycle on two in-process chains: escrow on the hub
// chain, fill on the spoke chain, settlement back through the reference
// mailbox bridge. Useful as an executable walkthrough of the protocol.

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/NethermindEth/intent-settlement/internal/assets"
	"github.com/NethermindEth/intent-settlement/internal/config"
	"github.com/NethermindEth/intent-settlement/internal/hub"
	"github.com/NethermindEth/intent-settlement/internal/orderhash"
	"github.com/NethermindEth/intent-settlement/internal/router"
	"github.com/NethermindEth/intent-settlement/internal/spoke"
	"github.com/NethermindEth/intent-settlement/internal/types"
)

// Custom formatter that outputs only the message
type cleanFormatter struct{}

func (f *cleanFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return append([]byte(entry.Message), '\n'), nil
}

const (
	hubChainID   = 31337
	spokeChainID = 31338
	startTime    = 1_700_000_000
)

func addr(hex string) types.Address {
	return types.AddressFromEVM(common.HexToAddress(hex))
}

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e15))
}

func main() {
	// .env is optional for the demo
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	config.InitializeNetworks()

	logger := setupLogger(cfg)
	logger.Info("🛰  Intent Settlement Demo")
	logger.Infof("📊 Known networks: %v", config.GetNetworkNames())

	// Actors. The user signs with a real secp256k1 key.
	userKey, err := crypto.GenerateKey()
	if err != nil {
		logger.Fatalf("Failed to generate user key: %v", err)
	}
	user := types.AddressFromEVM(crypto.PubkeyToAddress(userKey.PublicKey))
	owner := addr("0x00000000000000000000000000000000000000a0")
	filler := addr("0x00000000000000000000000000000000000000f1")
	fundingWallet := addr("0x00000000000000000000000000000000000000f2")
	recipient := addr("0x00000000000000000000000000000000000000c1")

	hubAddr := addr("0x0000000000000000000000000000000000000101")
	spokeAddr := addr("0x0000000000000000000000000000000000000202")
	routerAAddr := addr("0x0000000000000000000000000000000000000103")
	routerBAddr := addr("0x0000000000000000000000000000000000000203")

	tokenX := addr("0x00000000000000000000000000000000000000e1")
	tokenY := addr("0x00000000000000000000000000000000000000e2")

	// Chain environments.
	clockA := assets.NewManualClock(startTime)
	clockB := assets.NewManualClock(startTime)
	ledgerA := assets.NewLedger()
	ledgerB := assets.NewLedger()
	events := types.NewRecorder()

	routerA := router.New(hubChainID, routerAAddr, owner, logger, events)
	routerB := router.New(spokeChainID, routerBAddr, owner, logger, events)
	mailbox := router.NewMailbox(logger,
		new(big.Int).SetUint64(cfg.BridgeBaseFee),
		new(big.Int).SetUint64(cfg.BridgePerByteFee))
	mailbox.Connect(routerA)
	mailbox.Connect(routerB)

	validator := orderhash.NewValidator(orderhash.Domain{
		Name:              "iLayer",
		Version:           "1",
		ChainID:           hubChainID,
		VerifyingContract: hubAddr,
	})

	h, err := hub.New(hub.Params{
		ChainID: hubChainID, Address: hubAddr, Owner: owner,
		Clock: clockA, Ledger: ledgerA, Router: routerA, Validator: validator,
		MaxOrderDeadline: cfg.MaxOrderDeadline, TimeBuffer: cfg.TimeBuffer,
		Log: logger, Events: events,
	})
	if err != nil {
		logger.Fatalf("Failed to create hub: %v", err)
	}
	sp, err := spoke.New(spoke.Params{
		ChainID: spokeChainID, Address: spokeAddr, Owner: owner,
		Clock: clockB, Ledger: ledgerB, Router: routerB,
		FeeRate: cfg.FeeRate, Log: logger, Events: events,
	})
	if err != nil {
		logger.Fatalf("Failed to create spoke: %v", err)
	}

	// Deployment wiring: receivers, whitelists, peers.
	routerA.RegisterReceiver(hubAddr, h)
	routerB.RegisterReceiver(spokeAddr, sp)
	must(routerA.SetWhitelisted(owner, hubAddr, true))
	must(routerB.SetWhitelisted(owner, spokeAddr, true))
	must(routerA.SetPeer(owner, spokeChainID, routerBAddr))
	must(routerB.SetPeer(owner, hubChainID, routerAAddr))
	must(h.SetSpoke(owner, spokeChainID, spokeAddr))
	must(sp.SetHub(owner, hubChainID, hubAddr))

	// Balances: user holds X on the hub chain, the filler holds Y on the
	// spoke chain, both hold native for bridge fees.
	amountX := new(big.Int).Mul(big.NewInt(1), big.NewInt(1e18))
	amountY := new(big.Int).Mul(big.NewInt(2), big.NewInt(1e18))
	must(ledgerA.MintFungible(tokenX, user, amountX))
	must(ledgerB.MintFungible(tokenY, filler, amountY))
	must(ledgerA.MintNative(user, eth(10)))
	must(ledgerB.MintNative(filler, eth(10)))
	must(ledgerA.Approve(tokenX, user, hubAddr, amountX))
	must(ledgerB.Approve(tokenY, filler, spokeAddr, amountY))

	now := clockA.Now()
	order := types.Order{
		User:                  user,
		Recipient:             recipient,
		Inputs:                []types.Token{types.NewFungibleToken(tokenX, amountX)},
		Outputs:               []types.Token{types.NewFungibleToken(tokenY, amountY)},
		SourceChainID:         hubChainID,
		DestinationChainID:    spokeChainID,
		PrimaryFillerDeadline: now + 60,
		Deadline:              now + 300,
	}
	req := types.OrderRequest{Order: order, Nonce: big.NewInt(1), Deadline: now + 120}
	sig, err := orderhash.SignOrderRequest(validator.Domain(), &req, userKey)
	if err != nil {
		logger.Fatalf("Failed to sign order request: %v", err)
	}

	orderID, err := h.CreateOrder(user, eth(1), &req, [][]byte{nil}, sig, router.BridgeHyperlane, nil)
	if err != nil {
		logger.Fatalf("❌ createOrder failed: %v", err)
	}
	logger.Infof("📜 Escrowed %s X for order %s", amountX, orderID.Hex())

	// Relay the pending notification to the spoke chain.
	must(mailbox.DeliverNext())

	// Two minutes pass; the primary-filler window is over, anyone may fill.
	clockA.Advance(120)
	clockB.Advance(120)

	err = sp.FillOrder(filler, eth(1), &order, h.OrderNonce(), fundingWallet, 0, router.BridgeHyperlane, nil)
	if err != nil {
		logger.Fatalf("❌ fillOrder failed: %v", err)
	}

	// Relay the settlement back to the hub chain.
	must(mailbox.DeliverNext())

	logger.Info("✅ Lifecycle complete")
	logger.Infof("   Recipient Y balance: %s", ledgerB.FungibleBalance(tokenY, recipient))
	logger.Infof("   Spoke fee balance:   %s", ledgerB.FungibleBalance(tokenY, spokeAddr))
	logger.Infof("   Funding wallet X:    %s", ledgerA.FungibleBalance(tokenX, fundingWallet))
	logger.Infof("   Hub X balance:       %s", ledgerA.FungibleBalance(tokenX, hubAddr))
	logger.Infof("   Events recorded:     %d", len(events.Events()))
}

func must(err error) {
	if err != nil {
		logrus.Fatalf("wiring failed: %v", err)
	}
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warnf("Invalid log level %s, using info: %v", cfg.LogLevel, err)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		// Custom formatter that outputs only the message text
		logger.SetFormatter(&cleanFormatter{})
	}

	return logger
}
