package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/osa030/slidebox/internal/domain/playlist"
	"github.com/osa030/slidebox/internal/infra/airtable"
	"github.com/osa030/slidebox/internal/infra/config"
)

// checkLibrary fetches the playlist document once and prints what the player
// would see, flagging records that can never match or that shadow each other.
func checkLibrary(cfg *config.Config) error {
	source, err := airtable.New(airtable.Config{
		URL:     cfg.Library.URL,
		Token:   cfg.Library.Token,
		Timeout: cfg.Library.Timeout(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Library.Timeout()+5*time.Second)
	defer cancel()

	records, err := source.FetchRecords(ctx)
	if err != nil {
		return err
	}

	printRecords(records)
	return nil
}

func printRecords(records playlist.Set) {
	fmt.Printf("\n=== PLAYLIST DOCUMENT (%d records) ===\n", len(records))
	for i, r := range records {
		uri := r.URI
		if r.Inert() {
			uri = "(none)"
		}
		fmt.Printf("%3d. %-20s %-45s %s\n", i+1, r.TagID, uri, r.Note)
	}

	var blank int
	for _, r := range records {
		if r.TagID == "" {
			blank++
		}
	}
	if blank > 0 {
		fmt.Printf("\nWarning: %d records have no tag id and can never match\n", blank)
	}

	dups := records.Duplicates()
	if len(dups) == 0 {
		return
	}
	ids := make([]string, 0, len(dups))
	for id := range dups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fmt.Println("\nDuplicate tag ids (only the first record is used):")
	for _, id := range ids {
		fmt.Printf("  %s x%d\n", id, dups[id])
	}
}
