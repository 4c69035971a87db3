// Package utils holds small console formatting helpers.
package utils

import (
	"fmt"
)

// ShortAddress renders an address or signature as "abcd...wxyz".
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}

// TokenLabel prefers the symbol and falls back to a shortened mint.
func TokenLabel(symbol, mint string) string {
	if symbol != "" {
		return symbol
	}
	return ShortAddress(mint)
}

// FormatTokenAmount scales a raw amount by its decimals and picks a display
// precision that suits the magnitude.
func FormatTokenAmount(amount uint64, decimals uint8) string {
	divisor := 1.0
	for i := uint8(0); i < decimals; i++ {
		divisor *= 10
	}
	value := float64(amount) / divisor

	switch {
	case value == 0:
		return "0"
	case value < 0.00001:
		return fmt.Sprintf("%.2e", value)
	case value < 0.01:
		return fmt.Sprintf("%.6f", value)
	case value < 1:
		return fmt.Sprintf("%.4f", value)
	case value < 1000:
		return fmt.Sprintf("%.2f", value)
	case value < 1_000_000:
		return fmt.Sprintf("%.0f", value)
	default:
		return fmt.Sprintf("%.2fM", value/1_000_000)
	}
}
