package infra

import (
	"fmt"
)

// ANSI Color Codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// PrintBanner displays the startup banner. Without a quoting service the
// engine can send payments but not swap, which is flagged in yellow.
func PrintBanner(cfg *Config) {
	color := ColorGreen
	quoting := cfg.Quoting.URL
	if quoting == "" {
		color = ColorYellow
		quoting = "(disabled)"
	}

	fmt.Println()
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#                  Buddy Wallet Engine                    #%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#   WALLET:  %-44s #%s\n", color, truncate(cfg.Wallet.URL, 44), ColorReset)
	fmt.Printf("%s#   QUOTES:  %-44s #%s\n", color, truncate(quoting, 44), ColorReset)
	fmt.Printf("%s#   API:     %-44s #%s\n", color, truncate(cfg.API.Listen, 44), ColorReset)
	fmt.Printf("%s#   VERSION: %-44s #%s\n", color, truncate(cfg.App.Version, 44), ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)

	if cfg.Quoting.URL == "" {
		fmt.Printf("%s#   NOTE: swaps and offers need MC_DEQS_URI               #%s\n", ColorYellow, ColorReset)
	}

	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Println()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
