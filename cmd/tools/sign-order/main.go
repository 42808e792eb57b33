package main

// Builds an OrderRequest from flags, signs it with the key in PRIVATE_KEY and
// prints the order id, digest and signature. Addresses accept EVM hex,
// Starknet felt or raw bytes32 form.

import (
	"encoding/hex"
	"flag"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"

	"github.com/NethermindEth/intent-settlement/internal/orderhash"
	"github.com/NethermindEth/intent-settlement/internal/types"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("⚠️  No .env file found, using environment variables")
	}

	var (
		recipientFlag = flag.String("recipient", "", "recipient address on the destination chain (defaults to the signer)")
		fillerFlag    = flag.String("filler", "", "exclusive primary filler address (optional)")
		inputToken    = flag.String("input-token", "", "input token address on the source chain")
		inputAmount   = flag.String("input-amount", "1000000000000000000", "input token amount in base units")
		outputToken   = flag.String("output-token", "", "output token address on the destination chain")
		outputAmount  = flag.String("output-amount", "1000000000000000000", "output token amount in base units")
		sourceChain   = flag.Uint64("source-chain", 11155111, "source chain id")
		destChain     = flag.Uint64("dest-chain", 84532, "destination chain id")
		verifying     = flag.String("verifying-contract", "", "hub address used as the signing domain contract")
		nonce         = flag.Uint64("nonce", 1, "request nonce")
		fillerMins    = flag.Uint64("filler-mins", 5, "primary filler window in minutes")
		deadlineMins  = flag.Uint64("deadline-mins", 60, "order deadline in minutes")
		requestMins   = flag.Uint64("request-mins", 30, "request validity in minutes")
		domainName    = flag.String("domain-name", "iLayer", "signing domain name")
		domainVersion = flag.String("domain-version", "1", "signing domain version")
	)
	flag.Parse()

	privateKeyHex := os.Getenv("PRIVATE_KEY")
	if privateKeyHex == "" {
		fmt.Println("❌ PRIVATE_KEY environment variable is required")
		os.Exit(1)
	}
	if len(privateKeyHex) > 2 && privateKeyHex[:2] == "0x" {
		privateKeyHex = privateKeyHex[2:]
	}
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		fmt.Printf("❌ Invalid private key: %v\n", err)
		os.Exit(1)
	}
	user := types.AddressFromEVM(crypto.PubkeyToAddress(key.PublicKey))

	recipient := user
	if *recipientFlag != "" {
		recipient = mustParseAddress("recipient", *recipientFlag)
	}
	var filler types.Address
	if *fillerFlag != "" {
		filler = mustParseAddress("filler", *fillerFlag)
	}
	if *inputToken == "" || *outputToken == "" {
		fmt.Println("❌ -input-token and -output-token are required")
		os.Exit(1)
	}
	if *verifying == "" {
		fmt.Println("❌ -verifying-contract is required")
		os.Exit(1)
	}

	now := uint64(time.Now().Unix())
	order := types.Order{
		User:                  user,
		Recipient:             recipient,
		Filler:                filler,
		Inputs:                []types.Token{types.NewFungibleToken(mustParseAddress("input-token", *inputToken), mustParseAmount("input-amount", *inputAmount))},
		Outputs:               []types.Token{types.NewFungibleToken(mustParseAddress("output-token", *outputToken), mustParseAmount("output-amount", *outputAmount))},
		SourceChainID:         *sourceChain,
		DestinationChainID:    *destChain,
		PrimaryFillerDeadline: now + *fillerMins*60,
		Deadline:              now + *deadlineMins*60,
	}
	req := types.OrderRequest{
		Order:    order,
		Nonce:    new(big.Int).SetUint64(*nonce),
		Deadline: now + *requestMins*60,
	}

	domain := orderhash.Domain{
		Name:              *domainName,
		Version:           *domainVersion,
		ChainID:           *sourceChain,
		VerifyingContract: mustParseAddress("verifying-contract", *verifying),
	}

	sig, err := orderhash.SignOrderRequest(domain, &req, key)
	if err != nil {
		fmt.Printf("❌ Failed to sign order request: %v\n", err)
		os.Exit(1)
	}
	digest := orderhash.Digest(domain, &req)

	fmt.Println("✍️  Order request signed")
	fmt.Printf("   User:      %s\n", user.Hex())
	fmt.Printf("   Digest:    %s\n", digest.Hex())
	fmt.Printf("   Signature: 0x%s\n", hex.EncodeToString(sig))
	fmt.Printf("   Nonce:     %d\n", *nonce)
	fmt.Printf("   Deadline:  %d (request), %d (order)\n", req.Deadline, order.Deadline)
}

func mustParseAddress(name, s string) types.Address {
	a, err := types.ParseAddress(s)
	if err != nil {
		fmt.Printf("❌ Invalid -%s address %q: %v\n", name, s, err)
		os.Exit(1)
	}
	return a
}

func mustParseAmount(name, s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		fmt.Printf("❌ Invalid -%s amount %q\n", name, s)
		os.Exit(1)
	}
	return v
}
