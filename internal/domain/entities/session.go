package entities

// ConnectionStatus is the wallet session connection state.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
)

// Session is a snapshot of the wallet session state.
//
// Address is set only while Status is StatusConnected; ChainID follows
// Address (it may briefly lag during a chain-change event). Balances are
// display-formatted decimal strings and are stale between refreshes.
type Session struct {
	Address       string           `json:"address,omitempty"`
	ChainID       int64            `json:"chain_id,omitempty"`
	Status        ConnectionStatus `json:"status"`
	NativeBalance string           `json:"native_balance"`
	TokenBalance  string           `json:"token_balance"`
	LastError     string           `json:"last_error,omitempty"`
}

// NewSession returns the initial disconnected session state.
func NewSession() Session {
	return Session{
		Status:        StatusDisconnected,
		NativeBalance: "0",
		TokenBalance:  "0",
	}
}

// Connected reports whether the session currently has a wallet attached.
func (s Session) Connected() bool {
	return s.Status == StatusConnected
}
