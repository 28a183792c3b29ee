// rosetta-cli is a wallet and signing client for the Klingnet Rosetta
// gateway. Keys never leave this process: the gateway builds transactions
// and this tool signs them.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/Klingon-tech/klingnet-rosetta/config"
	"github.com/Klingon-tech/klingnet-rosetta/internal/api"
	"github.com/Klingon-tech/klingnet-rosetta/internal/apiclient"
	"github.com/Klingon-tech/klingnet-rosetta/internal/construction"
	"github.com/Klingon-tech/klingnet-rosetta/internal/wallet"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/crypto"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
)

// globals holds the flags that precede the subcommand.
type globals struct {
	gateway string
	network string
	dataDir string
	timeout time.Duration
}

func (g globals) params() construction.Params {
	if g.network == string(config.Testnet) {
		return construction.TestnetParams()
	}
	return construction.MainnetParams()
}

// keystoreDir returns <datadir>/<network>/keystore.
func (g globals) keystoreDir() string {
	return filepath.Join(g.dataDir, g.network, "keystore")
}

func (g globals) client() *apiclient.Client {
	return apiclient.New(g.gateway, rosetta.NetworkIdentifier{Blockchain: api.Blockchain, Network: g.network}, g.timeout)
}

func main() {
	g := globals{
		gateway: "http://127.0.0.1:8080",
		network: string(config.Mainnet),
		dataDir: config.DefaultDataDir(),
		timeout: 30 * time.Second,
	}

	args := os.Args[1:]
	for len(args) > 0 {
		name, value, ok := globalFlag(args)
		if !ok {
			break
		}
		switch name {
		case "gateway":
			g.gateway = value
		case "network":
			g.network = value
		case "datadir":
			g.dataDir = value
		}
		if strings.Contains(args[0], "=") {
			args = args[1:]
		} else {
			args = args[2:]
		}
	}
	if g.network != string(config.Mainnet) && g.network != string(config.Testnet) {
		fatal("unknown network %q (use mainnet or testnet)", g.network)
	}

	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cmd, cmdArgs := args[0], args[1:]
	switch cmd {
	case "wallet":
		cmdWallet(g, cmdArgs)
	case "derive":
		cmdDerive(g, cmdArgs)
	case "balance":
		cmdBalance(g, cmdArgs)
	case "status":
		cmdStatus(g)
	case "send":
		cmdSend(g, cmdArgs)
	case "parse":
		cmdParse(g, cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

// globalFlag recognizes --gateway, --network and --datadir in both the
// --name value and --name=value forms.
func globalFlag(args []string) (name, value string, ok bool) {
	for _, n := range []string{"gateway", "network", "datadir"} {
		if v, found := strings.CutPrefix(args[0], "--"+n+"="); found {
			return n, v, true
		}
		if args[0] == "--"+n && len(args) > 1 {
			return n, args[1], true
		}
	}
	return "", "", false
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: rosetta-cli [global flags] <command> [flags]

Global flags:
  --gateway <url>     Rosetta gateway (default: http://127.0.0.1:8080)
  --network <net>     mainnet (default) or testnet
  --datadir <path>    Data directory (default: ~/.klingnet-rosetta)

Commands:
  wallet create  --name <name>             Create a wallet from a new mnemonic
  wallet import  --name <name>             Import a wallet from a mnemonic
  wallet list                              List wallets
  wallet address --name <name> [--new]     Show or derive receiving addresses
  derive  --pubkey <hex>                   Address of a compressed public key
  balance --address <addr>                 Balance of an address
  status                                   Gateway network status
  send    --wallet <name> --to <addr> --amount <amt>
                                           Build, sign and submit a transfer
  parse   --tx <hex> [--signed]            Decode a transaction
`)
}

// ── wallet ──────────────────────────────────────────────────────────────

func cmdWallet(g globals, args []string) {
	if len(args) < 1 {
		fatal("Usage: rosetta-cli wallet <create|import|list|address> [flags]")
	}
	switch args[0] {
	case "create":
		cmdWalletCreate(g, args[1:], false)
	case "import":
		cmdWalletCreate(g, args[1:], true)
	case "list":
		cmdWalletList(g)
	case "address":
		cmdWalletAddress(g, args[1:])
	default:
		fatal("Unknown wallet command: %s", args[0])
	}
}

func cmdWalletCreate(g globals, args []string, imported bool) {
	verb := "create"
	if imported {
		verb = "import"
	}
	fs := flag.NewFlagSet("wallet "+verb, flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)
	if *name == "" {
		fatal("Usage: rosetta-cli wallet %s --name <name>", verb)
	}

	var mnemonic string
	if imported {
		line, err := readLine("Enter mnemonic: ")
		if err != nil {
			fatal("read mnemonic: %v", err)
		}
		mnemonic = strings.Join(strings.Fields(line), " ")
	} else {
		m, err := wallet.GenerateMnemonic()
		if err != nil {
			fatal("generate mnemonic: %v", err)
		}
		mnemonic = m
		fmt.Println("Mnemonic (write this down!):")
		fmt.Printf("  %s\n\n", mnemonic)
	}

	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	ks, err := wallet.NewKeystore(g.keystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	if err := ks.Create(*name, g.network, seed, password, wallet.DefaultParams()); err != nil {
		fatal("create wallet: %v", err)
	}

	entry := deriveEntry(g, seed, 0, wallet.ChangeExternal, 0)
	if err := ks.AddAddress(*name, entry); err != nil {
		fatal("record address: %v", err)
	}
	fmt.Printf("Wallet %q created.\nAddress: %s\n", *name, entry.Address)
}

func cmdWalletList(g globals) {
	ks, err := wallet.NewKeystore(g.keystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	names, err := ks.List()
	if err != nil {
		fatal("list wallets: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No wallets.")
		return
	}
	for _, n := range names {
		fmt.Println(n)
	}
}

func cmdWalletAddress(g globals, args []string) {
	fs := flag.NewFlagSet("wallet address", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fresh := fs.Bool("new", false, "Derive a new receiving address")
	fs.Parse(args)
	if *name == "" {
		fatal("Usage: rosetta-cli wallet address --name <name> [--new]")
	}

	ks, err := wallet.NewKeystore(g.keystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	if *fresh {
		seed := unlock(ks, *name)
		next, err := ks.NextIndex(*name, 0, wallet.ChangeExternal)
		if err != nil {
			fatal("next index: %v", err)
		}
		entry := deriveEntry(g, seed, 0, wallet.ChangeExternal, next)
		if err := ks.AddAddress(*name, entry); err != nil {
			fatal("record address: %v", err)
		}
		fmt.Println(entry.Address)
		return
	}

	entries, err := ks.Addresses(*name)
	if err != nil {
		fatal("list addresses: %v", err)
	}
	for _, e := range entries {
		fmt.Printf("%-20s %s\n", wallet.FormatPath(e.Path()), e.Address)
	}
}

// ── gateway queries ─────────────────────────────────────────────────────

func cmdDerive(g globals, args []string) {
	fs := flag.NewFlagSet("derive", flag.ExitOnError)
	pubkey := fs.String("pubkey", "", "Compressed secp256k1 public key (hex)")
	fs.Parse(args)
	if *pubkey == "" {
		fatal("Usage: rosetta-cli derive --pubkey <hex>")
	}
	addr, err := g.client().Derive(context.Background(), rosetta.PublicKey{HexBytes: *pubkey, CurveType: rosetta.CurveSecp256k1})
	if err != nil {
		fatal("derive: %v", err)
	}
	fmt.Println(addr)
}

func cmdBalance(g globals, args []string) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	address := fs.String("address", "", "Address")
	fs.Parse(args)
	if *address == "" {
		fatal("Usage: rosetta-cli balance --address <addr>")
	}
	resp, err := g.client().Balance(context.Background(), *address)
	if err != nil {
		fatal("balance: %v", err)
	}
	for _, b := range resp.Balances {
		units, err := strconv.ParseUint(b.Value, 10, 64)
		if err != nil {
			fatal("balance value %q: %v", b.Value, err)
		}
		fmt.Printf("%s %s (block %d)\n", wallet.FormatAmount(units), b.Currency.Symbol, resp.BlockIdentifier.Index)
	}
}

func cmdStatus(g globals) {
	st, err := g.client().Status(context.Background())
	if err != nil {
		fatal("status: %v", err)
	}
	fmt.Printf("Block:    %d %s\n", st.CurrentBlockIdentifier.Index, st.CurrentBlockIdentifier.Hash)
	fmt.Printf("Time:     %s\n", time.UnixMilli(st.CurrentBlockTimestamp).UTC().Format(time.RFC3339))
	fmt.Printf("Genesis:  %s\n", st.GenesisBlockIdentifier.Hash)
	if st.SyncStatus != nil {
		fmt.Printf("Synced:   %v\n", st.SyncStatus.Synced)
	}
	fmt.Printf("Peers:    %d\n", len(st.Peers))
}

func cmdParse(g globals, args []string) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	txHex := fs.String("tx", "", "Transaction (hex)")
	signed := fs.Bool("signed", false, "Transaction carries signatures")
	fs.Parse(args)
	if *txHex == "" {
		fatal("Usage: rosetta-cli parse --tx <hex> [--signed]")
	}
	resp, err := g.client().Parse(context.Background(), *txHex, *signed)
	if err != nil {
		fatal("parse: %v", err)
	}
	printOperations(resp.Operations)
	for _, s := range resp.AccountIdentifierSigners {
		fmt.Printf("signer %s\n", s.Address)
	}
}

// ── send ────────────────────────────────────────────────────────────────

func cmdSend(g globals, args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	to := fs.String("to", "", "Recipient address")
	amountStr := fs.String("amount", "", "Amount to send (e.g. 1.5)")
	yes := fs.Bool("yes", false, "Skip confirmation")
	fs.Parse(args)
	if *walletName == "" || *to == "" || *amountStr == "" {
		fatal("Usage: rosetta-cli send --wallet <name> --to <addr> --amount <amt>")
	}
	amount, err := wallet.ParseAmount(*amountStr)
	if err != nil {
		fatal("%v", err)
	}

	ks, err := wallet.NewKeystore(g.keystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	seed := unlock(ks, *walletName)
	entries, err := ks.Addresses(*walletName)
	if err != nil {
		fatal("list addresses: %v", err)
	}

	ctx := context.Background()
	client := g.client()

	// Keys and coins of every known address.
	keys := make(map[string]*crypto.PrivateKey)
	var coins []wallet.Coin
	for _, e := range entries {
		keys[e.Address] = signingKey(seed, e)
		listed, err := client.Coins(ctx, e.Address)
		if err != nil {
			fatal("coins of %s: %v", e.Address, err)
		}
		owned, err := wallet.CoinsFrom(e.Address, listed.Coins)
		if err != nil {
			fatal("%v", err)
		}
		coins = append(coins, owned...)
	}
	defer func() {
		for _, k := range keys {
			k.Zero()
		}
	}()

	changeIndex, err := ks.NextIndex(*walletName, 0, wallet.ChangeInternal)
	if err != nil {
		fatal("next change index: %v", err)
	}
	change := deriveEntry(g, seed, 0, wallet.ChangeInternal, changeIndex)

	plan, err := wallet.PlanTransfer(coins, *to, amount, change.Address)
	if err != nil {
		fatal("plan transfer: %v", err)
	}
	ops := plan.Operations(g.params().Currency)

	unsigned, err := client.Construct(ctx, ops)
	if err != nil {
		fatal("construct: %v", err)
	}

	// Show what the gateway actually built before signing it.
	parsed, err := client.Parse(ctx, unsigned.UnsignedTransaction, false)
	if err != nil {
		fatal("parse: %v", err)
	}
	printOperations(parsed.Operations)
	if !*yes {
		answer, err := readLine("Sign and submit? [y/N] ")
		if err != nil || !strings.EqualFold(strings.TrimSpace(answer), "y") {
			fatal("aborted")
		}
	}

	if plan.ChangeAmount > 0 {
		if err := ks.AddAddress(*walletName, change); err != nil {
			fatal("record change address: %v", err)
		}
	}

	signers := make(map[string]crypto.Signer, len(keys))
	for addr, k := range keys {
		signers[addr] = k
	}
	sigs, err := wallet.Sign(signers, unsigned.Payloads)
	if err != nil {
		fatal("sign: %v", err)
	}
	signed, err := client.Combine(ctx, unsigned.UnsignedTransaction, sigs)
	if err != nil {
		fatal("combine: %v", err)
	}
	id, err := client.Submit(ctx, signed)
	if err != nil {
		fatal("submit: %v", err)
	}
	fmt.Printf("Submitted: %s\n", id)
}

// ── helpers ─────────────────────────────────────────────────────────────

func unlock(ks *wallet.Keystore, name string) []byte {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	seed, err := ks.Unlock(name, password)
	if err != nil {
		fatal("%v", err)
	}
	return seed
}

func deriveEntry(g globals, seed []byte, account, change, index uint32) wallet.AddressEntry {
	master, err := wallet.NewMasterKey(seed)
	if err != nil {
		fatal("master key: %v", err)
	}
	k, err := master.DeriveAccount(account, change, index)
	if err != nil {
		fatal("derive: %v", err)
	}
	return wallet.AddressEntry{
		Account: account,
		Change:  change,
		Index:   index,
		Address: k.Address().Encode(g.params().HRP),
	}
}

func signingKey(seed []byte, e wallet.AddressEntry) *crypto.PrivateKey {
	master, err := wallet.NewMasterKey(seed)
	if err != nil {
		fatal("master key: %v", err)
	}
	k, err := master.Derive(e.Path()...)
	if err != nil {
		fatal("derive %s: %v", wallet.FormatPath(e.Path()), err)
	}
	priv, err := k.PrivateKey()
	if err != nil {
		fatal("signing key: %v", err)
	}
	return priv
}

func printOperations(ops []rosetta.Operation) {
	for _, op := range ops {
		var addr, value, coin string
		if op.Account != nil {
			addr = op.Account.Address
		}
		if op.Amount != nil {
			value = op.Amount.Value
		}
		if op.CoinChange != nil {
			coin = op.CoinChange.CoinIdentifier.Identifier
		}
		fmt.Printf("%2d %-34s %-48s %20s %s\n", op.OperationIdentifier.Index, op.Type, addr, value, coin)
	}
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return password, nil
}

func readLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	return bufio.NewReader(os.Stdin).ReadString('\n')
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
