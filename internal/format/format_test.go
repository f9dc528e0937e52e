package format

import (
	"errors"
	"testing"
)

func TestToDisplayAmount(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		decimals int
		want     string
	}{
		{"one whole unit", "1000000", 6, "1.00"},
		{"one and a half", "1500000", 6, "1.50"},
		{"full precision", "123456789", 6, "123.456789"},
		{"zero", "0", 6, "0.00"},
		{"sub-unit amount", "500", 6, "0.0005"},
		{"thousands separator", "1234567000000", 6, "1,234,567.00"},
		{"large with fraction", "1000000500000", 6, "1,000,000.50"},
		{"empty input", "", 6, "0.00"},
		{"zero decimals", "42", 0, "42.00"},
		{"eighteen decimals", "1500000000000000000", 18, "1.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToDisplayAmount(tt.raw, tt.decimals)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ToDisplayAmount(%q, %d) = %q, want %q", tt.raw, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestToDisplayAmount_Invalid(t *testing.T) {
	if _, err := ToDisplayAmount("not-a-number", 6); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int
		want     string
	}{
		{"whole amount", "1", 6, "1000000"},
		{"fractional amount", "1.5", 6, "1500000"},
		{"full precision", "123.456789", 6, "123456789"},
		{"with separators", "1,234.50", 6, "1234500000"},
		{"minimal fraction", "0.000001", 6, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToBaseUnits(tt.amount, tt.decimals)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ToBaseUnits(%q, %d) = %q, want %q", tt.amount, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestToBaseUnits_Invalid(t *testing.T) {
	invalid := []string{"", "0", "-1", "abc", "1.2.3", "1.1234567", "NaN", "+5"}
	for _, amount := range invalid {
		if _, err := ToBaseUnits(amount, 6); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("ToBaseUnits(%q) expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	// Displayed amounts convert back to the original base units as long as
	// display precision did not truncate them.
	values := []string{"1000000", "1500000", "123456789", "1234500000", "1"}
	for _, v := range values {
		display, err := ToDisplayAmount(v, 6)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		back, err := ToBaseUnits(display, 6)
		if err != nil {
			t.Fatalf("ToBaseUnits(%q): %v", display, err)
		}
		if back != v {
			t.Errorf("round trip %q -> %q -> %q", v, display, back)
		}
	}
}

func TestShortenAddress(t *testing.T) {
	got := ShortenAddress("0x742d35Cc6634C0532925a3b8D421B80000000000")
	if got != "0x742d...0000" {
		t.Errorf("unexpected shortened address: %q", got)
	}
	if ShortenAddress("") != "" {
		t.Error("empty address should shorten to empty string")
	}
}

func TestShortenHash(t *testing.T) {
	got := ShortenHash("0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef")
	if got != "0x12345678...90abcdef" {
		t.Errorf("unexpected shortened hash: %q", got)
	}
	if ShortenHash("") != "" {
		t.Error("empty hash should shorten to empty string")
	}
}

func TestIsValidAddress(t *testing.T) {
	valid := []string{
		"0x742d35Cc6634C0532925a3b8D421B80000000000",
		"0x0000000000000000000000000000000000000000",
		"0xdAC17F958D2ee523a2206206994597C13D831ec7",
	}
	for _, addr := range valid {
		if !IsValidAddress(addr) {
			t.Errorf("expected %q to be valid", addr)
		}
	}

	invalid := []string{
		"",
		"invalid-address",
		"0x123",
		"742d35Cc6634C0532925a3b8D421B80000000000",
		"0x742d35Cc6634C0532925a3b8D421B8000000000g",
		"0x742d35Cc6634C0532925a3b8D421B800000000001",
	}
	for _, addr := range invalid {
		if IsValidAddress(addr) {
			t.Errorf("expected %q to be invalid", addr)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := FormatTimestamp("1700000000"); got != "Nov 14, 2023 22:13 UTC" {
		t.Errorf("unexpected formatted timestamp: %q", got)
	}
	if got := FormatTimestamp("bogus"); got != "bogus" {
		t.Errorf("invalid timestamp should pass through, got %q", got)
	}
}

func TestExplorerURL(t *testing.T) {
	got := ExplorerURL("https://sepolia.etherscan.io/", "tx", "0xabc")
	if got != "https://sepolia.etherscan.io/tx/0xabc" {
		t.Errorf("unexpected explorer URL: %q", got)
	}
}
