package cctp

import "strings"

// AttestationResponse represents the response from the attestation API
type AttestationResponse struct {
	Messages []CCTPMessage `json:"messages"`
}

// CCTPMessage represents a single CCTP message with attestation.
// The v2 API reports status under "status"; older payloads use "attestationStatus".
type CCTPMessage struct {
	Attestation       string          `json:"attestation"`
	Status            string          `json:"status"`
	AttestationStatus string          `json:"attestationStatus"`
	Message           string          `json:"message"`
	EventNonce        string          `json:"eventNonce"`
	CCTPVersion       int             `json:"cctpVersion"`
	DecodedMessage    *DecodedMessage `json:"decodedMessage,omitempty"`
}

// DecodedMessage is the subset of the decoded burn message we log.
type DecodedMessage struct {
	SourceDomain      string `json:"sourceDomain"`
	DestinationDomain string `json:"destinationDomain"`
	Nonce             string `json:"nonce"`
	Recipient         string `json:"recipient"`
}

// NormalizedStatus returns the lower-cased status from whichever field is populated.
func (m CCTPMessage) NormalizedStatus() string {
	status := m.Status
	if status == "" {
		status = m.AttestationStatus
	}
	return strings.ToLower(strings.TrimSpace(status))
}

// IsComplete reports whether the message carries a usable attestation.
func (m CCTPMessage) IsComplete() bool {
	return m.NormalizedStatus() == AttestationStatusComplete &&
		strings.HasPrefix(m.Attestation, "0x") &&
		strings.HasPrefix(m.Message, "0x")
}
