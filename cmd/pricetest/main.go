// Command pricetest prints the classified quote book of one pair straight
// from the quoting service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"buddy_go/internal/domain"
	"buddy_go/internal/infra"
	"buddy_go/internal/infra/deqs"
	"buddy_go/internal/order"
	"buddy_go/internal/quote"
)

func main() {
	base := flag.Uint64("base", 0, "base token id")
	counter := flag.Uint64("counter", 1, "counter token id")
	limit := flag.Int("limit", 20, "quotes per side")
	flag.Parse()

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.Quoting.URL == "" {
		fmt.Fprintln(os.Stderr, "no quoting service configured (set MC_DEQS_URI)")
		os.Exit(1)
	}

	// fees do not matter for display
	var infos []domain.TokenInfo
	for _, m := range cfg.Tokens {
		infos = append(infos, domain.TokenInfo{TokenID: m.ID, Symbol: m.Symbol, Decimals: m.Decimals})
	}
	pair := domain.Pair{Base: domain.TokenID(*base), Counter: domain.TokenID(*counter)}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := deqs.NewClient(cfg.Quoting.URL, cfg.RPCTimeout())
	client.Start(ctx)
	defer client.Stop()

	fmt.Printf("=== Quote book %s ===\n\n", pair)

	validator := order.NewValidator(nil)
	for _, side := range []struct {
		name string
		pair domain.Pair
	}{{"ASKS", pair}, {"BIDS", pair.Reverse()}} {
		raws, err := client.GetQuotes(ctx, side.pair, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "get quotes:", err)
			os.Exit(1)
		}

		var book []quote.ValidatedQuote
		for _, raw := range raws {
			q, err := quote.NewValidatedQuote(raw.ID, raw.Order, raw.Timestamp, validator)
			if err != nil {
				fmt.Printf("   dropped %s: %v\n", raw.ID, err)
				continue
			}
			book = append(book, q)
		}

		fmt.Printf("%s (%d)\n", side.name, len(book))
		for _, info := range quote.ClassifyBook(book, pair, infos) {
			kind := "AON"
			if info.IsPartialFill {
				kind = "PF"
			}
			fmt.Printf("   %-4s price %-20s volume %-20s %s\n", kind, info.Price.String(), info.Volume.String(), info.ID)
		}
		fmt.Println()
	}
}
