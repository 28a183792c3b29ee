// Klingnet Rosetta gateway daemon.
//
// Usage:
//
//	rosettad [--testnet] [--offline] [--node-url=...]  Run gateway
//	rosettad --help                                    Show help
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Klingon-tech/klingnet-rosetta/config"
	"github.com/Klingon-tech/klingnet-rosetta/internal/gateway"
)

func main() {
	cfg, _, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	g, err := gateway.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := g.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		g.Stop()
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	g.Stop()
}
