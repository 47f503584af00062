// Package main generates access keys and their bcrypt hashes. The API stores only hashes, so
// this tool produces the value for auth.bootstrap_key_hash or for a POST /admin/keys payload.
//
// Usage:
//
//	hash            generate a new cec_ key and print it with its hash
//	hash <key>      print the hash of an existing key
//
// BCRYPT_COST overrides the hashing cost.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/auth"
)

func main() {
	if err := run(os.Args[1:], os.Getenv("BCRYPT_COST"), os.Stdout); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run(args []string, costEnv string, out io.Writer) error {
	cost := auth.DefaultBcryptCost
	if costEnv != "" {
		c, err := strconv.Atoi(costEnv)
		if err != nil {
			return fmt.Errorf("invalid BCRYPT_COST %q: %w", costEnv, err)
		}
		cost = c
	}

	switch len(args) {
	case 0:
		key, hash, err := auth.GenerateAPIKey(auth.DefaultKeyPrefix, cost)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Key:  %s\n", key)
		fmt.Fprintf(out, "Hash: %s\n", hash)
		fmt.Fprintf(out, "\nSend the key in the %s header. Store only the hash.\n", auth.DefaultHeader)
		return nil
	case 1:
		hash, err := auth.HashKey(args[0], cost)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, hash)
		return nil
	default:
		return fmt.Errorf("usage: hash [key]")
	}
}
