// Package format converts between raw base-unit token amounts and the
// human-readable decimal strings shown on the dashboard.
package format

import (
	"errors"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidAmount indicates a transfer amount that is not a positive
	// finite decimal within the token's precision.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidAddress indicates a string that is not a 0x-prefixed
	// 40-hex-digit address.
	ErrInvalidAddress = errors.New("invalid address")

	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	amountPattern  = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
)

// minFractionDigits is the minimum number of fraction digits rendered by
// ToDisplayAmount, matching the dashboard's fixed two-decimal display.
const minFractionDigits = 2

// ToDisplayAmount scales a raw base-unit integer amount down by 10^decimals
// and renders it with thousands separators and between minFractionDigits and
// decimals fraction digits. Zero renders as "0.00".
func ToDisplayAmount(raw string, decimals int) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "0"
	}

	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return "", ErrInvalidAmount
	}

	negative := value.Sign() < 0
	if negative {
		value = new(big.Int).Neg(value)
	}

	scale := pow10(decimals)
	intPart, fracPart := new(big.Int).QuoRem(value, scale, new(big.Int))

	frac := fracPart.String()
	if decimals > 0 {
		frac = strings.Repeat("0", decimals-len(frac)) + frac
	} else {
		frac = ""
	}

	// Trim trailing zeros down to the minimum display precision.
	frac = strings.TrimRight(frac, "0")
	for len(frac) < minFractionDigits {
		frac += "0"
	}

	out := groupThousands(intPart.String()) + "." + frac
	if negative {
		out = "-" + out
	}
	return out, nil
}

// ToBaseUnits converts a decimal token amount to its base-unit integer
// string. The input must be a positive finite decimal with at most
// `decimals` fraction digits; thousands separators are tolerated.
func ToBaseUnits(amount string, decimals int) (string, error) {
	amount = strings.ReplaceAll(strings.TrimSpace(amount), ",", "")
	if !amountPattern.MatchString(amount) {
		return "", ErrInvalidAmount
	}

	intStr, fracStr := amount, ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		intStr, fracStr = amount[:i], amount[i+1:]
	}
	if len(fracStr) > decimals {
		return "", ErrInvalidAmount
	}

	fracStr += strings.Repeat("0", decimals-len(fracStr))
	value, ok := new(big.Int).SetString(intStr+fracStr, 10)
	if !ok || value.Sign() <= 0 {
		return "", ErrInvalidAmount
	}
	return value.String(), nil
}

// ShortenAddress renders an address as its first 6 and last 4 characters.
// Empty input yields empty output.
func ShortenAddress(address string) string {
	if address == "" {
		return ""
	}
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// ShortenHash renders a transaction hash as its first 10 and last 8
// characters. Empty input yields empty output.
func ShortenHash(hash string) string {
	if hash == "" {
		return ""
	}
	if len(hash) <= 18 {
		return hash
	}
	return hash[:10] + "..." + hash[len(hash)-8:]
}

// IsValidAddress reports whether s is a 0x-prefixed 40-hex-digit address.
// Checksum casing is not verified.
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// FormatTimestamp renders a string-encoded Unix-seconds timestamp for
// display. Invalid input is returned unchanged.
func FormatTimestamp(ts string) string {
	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ts
	}
	return time.Unix(secs, 0).UTC().Format("Jan 02, 2006 15:04 MST")
}

// ExplorerURL builds a block-explorer link for a transaction hash or address.
func ExplorerURL(baseURL, kind, ref string) string {
	return strings.TrimRight(baseURL, "/") + "/" + kind + "/" + ref
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	pre := len(digits) % 3
	if pre > 0 {
		b.WriteString(digits[:pre])
	}
	for i := pre; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
