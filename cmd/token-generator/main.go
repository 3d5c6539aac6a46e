// Package main prints worker tokens signed with the broker's shared secret,
// for connecting to the worker endpoint by hand (e.g. with a WebSocket CLI).
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/phrazzld/cardfarm/internal/auth"
)

func main() {
	flags := pflag.NewFlagSet("token-generator", pflag.ExitOnError)
	secret := flags.String("secret", os.Getenv("CARDFARM_BROKER_SHARED_SECRET"), "shared secret (at least 32 characters)")
	lifetime := flags.Duration("lifetime", auth.DefaultTokenLifetime, "token lifetime")
	header := flags.Bool("header", false, "print a full Authorization header")
	_ = flags.Parse(os.Args[1:])

	names := flags.Args()
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "usage: token-generator [--secret S] [--lifetime D] [--header] NAME...")
		os.Exit(2)
	}

	tokens, err := auth.NewWorkerTokens(*secret, *lifetime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, name := range names {
		token, err := tokens.Generate(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating token for %s: %v\n", name, err)
			continue
		}
		if *header {
			fmt.Printf("Authorization: Bearer %s\n", token)
			continue
		}
		fmt.Printf("Worker: %s\nExpires: %s\nToken: %s\n\n", name, time.Now().Add(*lifetime).Format(time.RFC3339), token)
	}
}
