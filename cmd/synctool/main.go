// Command synctool is an operator CLI for a running forcelink service.
// It triggers sync cycles and manages the push queue over the HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	client := newAPIClient()

	var err error
	switch os.Args[1] {
	case "push":
		err = client.runCycle("push", optionalArg(2))
	case "pull":
		err = client.runPull(optionalArg(2), hasFlag("--force"))
	case "reconcile":
		err = client.runCycle("reconcile", "")
	case "orphans":
		err = client.purgeOrphans(requiredArg(2, "orphans <mapping-id>"))
	case "depth":
		err = client.queueDepth()
	case "quarantine":
		err = client.listQuarantine()
	case "retry":
		err = client.queueItem("retry", requiredArg(2, "retry <item-id>"))
	case "purge":
		err = client.queueItem("purge", requiredArg(2, "purge <item-id>"))
	case "mappings":
		err = client.listMappings()
	case "invalidate":
		err = client.invalidateMapping(requiredArg(2, "invalidate <mapping-id>"))
	case "force-pull":
		err = client.forcePull(
			requiredArg(2, "force-pull <mapping-id> <local-id>"),
			requiredArg(3, "force-pull <mapping-id> <local-id>"))
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// optionalArg returns the positional argument at index i, or "" when absent.
// Flag-style arguments are not treated as positionals.
func optionalArg(i int) string {
	if len(os.Args) > i && os.Args[i] != "" && os.Args[i][0] != '-' {
		return os.Args[i]
	}
	return ""
}

func requiredArg(i int, usage string) string {
	v := optionalArg(i)
	if v == "" {
		fmt.Fprintln(os.Stderr, "Usage: synctool", usage)
		os.Exit(1)
	}
	return v
}

func hasFlag(name string) bool {
	for _, arg := range os.Args[2:] {
		if arg == name {
			return true
		}
	}
	return false
}

func printUsage() {
	fmt.Println("Usage: synctool <command> [args...]")
	fmt.Println("Commands:")
	fmt.Println("  push [mapping-id]                Run a push cycle (optionally for one mapping)")
	fmt.Println("  pull [mapping-id] [--force]      Run a pull cycle (--force overrides conflict checks)")
	fmt.Println("  reconcile                        Run a delete reconciliation cycle")
	fmt.Println("  orphans <mapping-id>             Purge links whose local entity is gone")
	fmt.Println("  depth                            Show the push queue depth")
	fmt.Println("  quarantine                       List quarantined queue items")
	fmt.Println("  retry <item-id>                  Requeue a quarantined item")
	fmt.Println("  purge <item-id>                  Drop a quarantined item")
	fmt.Println("  mappings                         List registered mappings")
	fmt.Println("  invalidate <mapping-id>          Drop a mapping from the in-memory cache")
	fmt.Println("  force-pull <mapping-id> <local-id>  Flag a link so the next pull overwrites it")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  API_URL  Base URL of the service (default http://localhost:8080)")
	fmt.Println("  API_KEY  API key sent as X-API-Key")
}
