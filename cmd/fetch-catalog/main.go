package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/raine/relic-reward-prices/internal/catalog"
	"github.com/raine/relic-reward-prices/internal/config"
	"github.com/raine/relic-reward-prices/internal/prices"
)

func main() {
	config.LoadEnvFile()

	out := flag.String("out", envOr("CATALOG_PATH", config.DefaultCatalogPath()), "where to store the catalog")
	baseURL := flag.String("api", envOr("PRICE_API_URL", prices.ApiBaseUrl), "price API base URL")
	maxAge := flag.Duration("max-age", catalog.DefaultMaxAge, "refetch when the stored copy is older than this")
	force := flag.Bool("force", false, "always refetch")
	flag.Parse()

	if *force {
		*maxAge = 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := prices.NewClient(prices.ClientOpts{BaseURL: *baseURL})
	if err := catalog.EnsureFile(ctx, *out, *maxAge, client.FetchFilteredItems); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to fetch catalog: %v\n", err)
		os.Exit(1)
	}

	c, err := catalog.LoadFile(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load catalog: %v\n", err)
		os.Exit(1)
	}

	counts := map[catalog.Category]int{}
	vaulted := 0
	for _, it := range c.Items() {
		counts[it.Category]++
		if it.Vaulted {
			vaulted++
		}
	}
	fmt.Printf("Catalog: %s\n", *out)
	fmt.Printf("  items:         %d\n", c.Len())
	fmt.Printf("  relic rewards: %d (%d vaulted)\n", counts[catalog.CategoryRelicReward], vaulted)
	fmt.Printf("  ducat items:   %d\n", counts[catalog.CategoryDucatItem])
	fmt.Printf("  misc:          %d\n", counts[catalog.CategoryMisc])
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
