package entities

// ErrorResponse represents an error response
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ChainSummary is the public view of one registry entry.
type ChainSummary struct {
	Key           string `json:"key"`
	DisplayName   string `json:"display_name"`
	DomainID      uint32 `json:"domain_id"`
	ExplorerTxURL string `json:"explorer_tx_url,omitempty"`
	IsHub         bool   `json:"is_hub"`
	Custodial     bool   `json:"custodial"`
}
