package main

import (
	"flag"
	"fmt"
	"os"

	"campusboard/pkg/logger"
	"campusboard/pkg/store"
)

// inspect dumps raw store keys and cross-checks denormalized reaction
// counts against the ledger rows. Run it against a copy of the database,
// not a live one.
func main() {
	var (
		dbPath string
		prefix string
		check  string
	)
	flag.StringVar(&dbPath, "db", "", "pebble db path")
	flag.StringVar(&prefix, "prefix", "", "key prefix to list (empty lists everything)")
	flag.StringVar(&check, "check", "", "post id to cross-check counts against the ledger")
	flag.Parse()
	if dbPath == "" {
		fmt.Fprintln(os.Stderr, "--db required")
		os.Exit(2)
	}
	logger.Init()
	if err := store.Open(dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "open failed: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if check != "" {
		p, err := store.GetPost(check)
		if err != nil {
			fmt.Fprintf(os.Stderr, "get post: %v\n", err)
			os.Exit(1)
		}
		derived, err := store.CountReactions(check)
		if err != nil {
			fmt.Fprintf(os.Stderr, "count reactions: %v\n", err)
			os.Exit(1)
		}
		reports, err := store.CountReports(check)
		if err != nil {
			fmt.Fprintf(os.Stderr, "count reports: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("post %s removed=%v\n", p.ID, p.Removed)
		fmt.Printf("  stored counts:  %v (reports %d)\n", p.Reactions, p.ReportCount)
		fmt.Printf("  derived counts: %v (reports %d)\n", derived, reports)
		ok := reports == p.ReportCount
		for t, n := range derived {
			if p.Reactions[t] != n {
				ok = false
			}
		}
		if !ok {
			fmt.Println("  MISMATCH")
			os.Exit(1)
		}
		fmt.Println("  ok")
		return
	}

	keys, err := store.ListKeys(prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list keys: %v\n", err)
		os.Exit(1)
	}
	for _, k := range keys {
		v, err := store.GetKey(k)
		if err != nil {
			fmt.Printf("%s\t<error: %v>\n", k, err)
			continue
		}
		fmt.Printf("%s\t%s\n", k, v)
	}
}
