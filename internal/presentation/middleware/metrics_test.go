package middleware

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			"address segment",
			"/api/v1/address/0x1111111111111111111111111111111111111111/transfers",
			"/api/v1/address/{address}/transfers",
		},
		{
			"hash segment",
			"/api/v1/transactions/0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			"/api/v1/transactions/{hash}",
		},
		{
			"static path untouched",
			"/api/v1/wallet/connect",
			"/api/v1/wallet/connect",
		},
		{
			"malformed hex segment untouched",
			"/api/v1/transactions/0x123",
			"/api/v1/transactions/0x123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.want {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
