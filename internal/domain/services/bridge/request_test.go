package bridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/hub_bridge/internal/domain/errors"
)

func TestMapAliases(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]interface{}
		want  entities.BridgeRequest
	}{
		{
			name:  "canonical names",
			input: map[string]interface{}{"sourceChain": "arc", "destinationChain": "base", "amount": "1.5", "recipient": userAddress},
			want:  entities.BridgeRequest{UserID: "u", SourceChain: "arc", DestinationChain: "base", Amount: "1.5", Recipient: userAddress},
		},
		{
			name:  "snake case and short aliases",
			input: map[string]interface{}{"from": "arc", "destination_chain": "eth", "qty": "2", "to_address": userAddress},
			want:  entities.BridgeRequest{UserID: "u", SourceChain: "arc", DestinationChain: "eth", Amount: "2", Recipient: userAddress},
		},
		{
			name:  "to names the destination chain",
			input: map[string]interface{}{"to": "Base Sepolia", "value": "0.1"},
			want:  entities.BridgeRequest{UserID: "u", DestinationChain: "Base Sepolia", Amount: "0.1"},
		},
		{
			name:  "json numbers keep their literal form",
			input: map[string]interface{}{"target": "base", "amount": json.Number("0.10")},
			want:  entities.BridgeRequest{UserID: "u", DestinationChain: "base", Amount: "0.10"},
		},
		{
			name:  "float amount",
			input: map[string]interface{}{"target": "base", "amount": 1.5},
			want:  entities.BridgeRequest{UserID: "u", DestinationChain: "base", Amount: "1.5"},
		},
		{
			name:  "duplicate aliases with the same value",
			input: map[string]interface{}{"destination": "base", "toChain": "base", "amount": "1", "await": true},
			want:  entities.BridgeRequest{UserID: "u", DestinationChain: "base", Amount: "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MapAliases("u", tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapAliases_Rejects(t *testing.T) {
	t.Run("conflicting aliases", func(t *testing.T) {
		_, err := MapAliases("u", map[string]interface{}{"destination": "base", "toChain": "eth"})
		assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
		assert.Equal(t, FieldDestinationChain, domainerrors.GetErrorDetails(err)["field"])
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := MapAliases("u", map[string]interface{}{"fromToken": "USDC"})
		assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
	})

	t.Run("unsupported value type", func(t *testing.T) {
		_, err := MapAliases("u", map[string]interface{}{"amount": []string{"1"}})
		assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
	})
}

func TestValidateRequest(t *testing.T) {
	v := NewValidator()
	base := entities.BridgeRequest{UserID: "u", SourceChain: "arcTestnet", DestinationChain: "baseSepolia", Amount: "1.5", Recipient: userAddress}

	require.NoError(t, ValidateRequest(v, base))

	mintOnly := base
	mintOnly.Recipient = ""
	assert.NoError(t, ValidateRequest(v, mintOnly))

	for _, amount := range []string{"", "0", "-1", "abc", "1e3"} {
		req := base
		req.Amount = amount
		err := ValidateRequest(v, req)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidInput, amount)
		assert.Equal(t, FieldAmount, domainerrors.GetErrorDetails(err)["field"], amount)
	}

	badRecipient := base
	badRecipient.Recipient = "vitalik.eth"
	err := ValidateRequest(v, badRecipient)
	assert.Equal(t, FieldRecipient, domainerrors.GetErrorDetails(err)["field"])
}
