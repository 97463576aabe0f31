package cctp

import "context"

// CCTPClient defines the interface for CCTP Iris API operations
type CCTPClient interface {
	// GetMessages fetches the messages emitted by a burn transaction on sourceDomain
	GetMessages(ctx context.Context, sourceDomain uint32, txHash string) (*AttestationResponse, error)
}

// Ensure Client implements CCTPClient interface
var _ CCTPClient = (*Client)(nil)
