// Command userdir administers the users of a user directory.
//
// Usage:
//
//	userdir [-config dir] <command> [args]
//
// Commands:
//
//	create <email> <password> [first] [last]
//	find <email>
//	list [page] [limit]
//	purge
//	set-token <email> <token>
//	set-password <email> <password>
//	logout <email>
//	verify <email> <password>
//
// Results are printed to the standard output as JSON.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "userdir:", err)
		os.Exit(1)
	}
}
