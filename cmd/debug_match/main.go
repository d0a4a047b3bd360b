package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"glass-tracker/core/config"
	"glass-tracker/core/database"
	"glass-tracker/core/ordernumber"
	"glass-tracker/feature/glass/reconcile"
)

// Prints how raw order numbers parse and what the matcher would decide for them.
// Usage: go run ./cmd/debug_match 53714 "53714-A" 53714b
func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: debug_match <raw-order-number>...")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal(err)
	}

	engine := reconcile.NewEngine(db, nil, nil, cfg.Reconcile)
	ctx := context.Background()

	for _, raw := range os.Args[1:] {
		fmt.Printf("=== %q ===\n", raw)

		n, err := ordernumber.Parse(raw)
		if err != nil {
			fmt.Printf("parse: %v\n", err)
		} else {
			fmt.Printf("parse: base=%s suffix=%q canonical=%s\n", n.Base, n.Suffix, n.Canonical())
		}

		d, err := engine.Explain(ctx, raw)
		if err != nil {
			log.Fatal(err)
		}
		out, _ := json.MarshalIndent(d, "", "  ")
		fmt.Println(string(out))
		if d.Err != nil {
			fmt.Printf("error: %v\n", d.Err)
		}
		fmt.Println()
	}
}
