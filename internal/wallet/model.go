package wallet

import (
	"strings"
	"time"
)

const (
	// PlatformEthereum wallets sign with secp256k1 (personal_sign).
	PlatformEthereum = "ethereum"
	// PlatformNear wallets are implicit accounts: the address is the hex ed25519 public key.
	PlatformNear = "near"
)

// Network describes a blockchain platform a wallet can live on.
type Network struct {
	ID       string
	Platform string
	ChainID  string
	RPCURL   string
}

// Wallet is an address owned by exactly one user.
type Wallet struct {
	ID        string
	UserID    string
	NetworkID string
	Primary   bool
	CreatedAt time.Time
}

// DefaultNetworks is the reference data seeded into fresh stores.
var DefaultNetworks = []Network{
	{ID: "ethereum", Platform: PlatformEthereum, ChainID: "1", RPCURL: "https://mainnet.infura.io/v3"},
	{ID: "polygon", Platform: PlatformEthereum, ChainID: "137", RPCURL: "https://polygon-rpc.com"},
	{ID: "near", Platform: PlatformNear, ChainID: "mainnet", RPCURL: "https://rpc.mainnet.near.org"},
}

// NormalizeAddress canonicalises an address so lookups are case insensitive.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
