package common

import "context"

// ExchangeClient abstracts a derivatives venue. All calls are fallible
// blocking I/O; persistent failures are handled by the caller through a
// ClientProvider reset.
type ExchangeClient interface {
	// GetBalance returns the account's available balance in the quote
	// currency.
	GetBalance(ctx context.Context) (float64, error)
	// GetSymbolSpec returns the trading grid for a symbol.
	GetSymbolSpec(ctx context.Context, symbol string) (SymbolSpec, error)
	// GetPositions returns all open positions for a symbol.
	GetPositions(ctx context.Context, symbol string) ([]Position, error)
	// SetLeverage sets the symbol's leverage. Idempotent on the exchange
	// side; some venues reject a no-op change, which callers may ignore.
	SetLeverage(ctx context.Context, symbol string, leverage int) error
	// PlaceOrder submits an order and returns the exchange ack.
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	// GetClosedPnL returns up to limit most recent closed-PnL records for
	// a symbol, newest first.
	GetClosedPnL(ctx context.Context, symbol string, limit int) ([]ClosedTrade, error)
}

// ClientProvider hands out the current ExchangeClient and can replace it
// when a session is suspected poisoned. Callers must re-request the client
// after a Reset rather than caching it across failures.
type ClientProvider interface {
	Client() ExchangeClient
	// Reset discards the current client and builds a fresh session.
	// Concurrent operations holding the old client are unaffected.
	Reset()
}
