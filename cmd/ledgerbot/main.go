package main

import (
	"fmt"
	"os"

	"github.com/ledgerbot/ledgerbot/pkg/logging"
)

func main() {
	logger := logging.Setup(logging.DefaultConfig())

	cmd := "run"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "run":
		err = runBot(logger)
	case "status":
		err = runStatus(logger)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("ledgerbot failed", "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: ledgerbot [command]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run     Start the expense bot (default)")
	fmt.Println("  status  Check configuration, credentials and ledger connectivity")
	fmt.Println("  help    Show this help")
}
