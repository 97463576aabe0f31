package bridge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/hub_bridge/internal/domain/errors"
	"github.com/rail-service/hub_bridge/pkg/units"
)

// Canonical request fields.
const (
	FieldSourceChain      = "source_chain"
	FieldDestinationChain = "destination_chain"
	FieldAmount           = "amount"
	FieldRecipient        = "recipient"
)

// fieldAliases is the closed mapping from accepted input names to canonical fields.
// Names are compared after lower-casing and stripping separators.
var fieldAliases = map[string]string{
	"sourcechain": FieldSourceChain,
	"source":      FieldSourceChain,
	"from":        FieldSourceChain,
	"fromchain":   FieldSourceChain,
	"srcchain":    FieldSourceChain,
	"origin":      FieldSourceChain,
	"chainfrom":   FieldSourceChain,

	"destinationchain": FieldDestinationChain,
	"destination":      FieldDestinationChain,
	"to":               FieldDestinationChain,
	"tochain":          FieldDestinationChain,
	"dstchain":         FieldDestinationChain,
	"destchain":        FieldDestinationChain,
	"target":           FieldDestinationChain,
	"chainto":          FieldDestinationChain,

	"amount":   FieldAmount,
	"value":    FieldAmount,
	"qty":      FieldAmount,
	"quantity": FieldAmount,

	"recipient":          FieldRecipient,
	"recipientaddress":   FieldRecipient,
	"toaddress":          FieldRecipient,
	"receiver":           FieldRecipient,
	"address":            FieldRecipient,
	"destinationaddress": FieldRecipient,
}

// ignoredFields may accompany a bridge request without being mapped.
var ignoredFields = map[string]bool{
	"await": true,
}

func normalizeFieldName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if r == '_' || r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MapAliases turns free-form input into the canonical request fields.
// Unknown fields and two aliases of the same field carrying different values are rejected.
func MapAliases(userID string, input map[string]interface{}) (entities.BridgeRequest, error) {
	canonical := make(map[string]string, 4)
	origin := make(map[string]string, 4)

	names := make([]string, 0, len(input))
	for name := range input {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		norm := normalizeFieldName(name)
		if ignoredFields[norm] {
			continue
		}
		field, ok := fieldAliases[norm]
		if !ok {
			return entities.BridgeRequest{}, domainerrors.ValidationError(name, "unknown field")
		}

		value, err := stringValue(input[name])
		if err != nil {
			return entities.BridgeRequest{}, domainerrors.ValidationError(name, err.Error())
		}
		if value == "" {
			continue
		}

		if prev, seen := canonical[field]; seen && prev != value {
			return entities.BridgeRequest{}, domainerrors.ValidationError(field,
				fmt.Sprintf("conflicting values for %s and %s", origin[field], name))
		}
		canonical[field] = value
		origin[field] = name
	}

	return entities.BridgeRequest{
		UserID:           userID,
		SourceChain:      canonical[FieldSourceChain],
		DestinationChain: canonical[FieldDestinationChain],
		Amount:           canonical[FieldAmount],
		Recipient:        canonical[FieldRecipient],
	}, nil
}

// stringValue accepts strings and JSON numbers. Numbers keep their literal form so "0.1" stays "0.1".
func stringValue(v interface{}) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(t), nil
	case fmt.Stringer:
		return strings.TrimSpace(t.String()), nil
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%v", t)), nil
	case int, int64, int32, uint, uint64, uint32:
		return fmt.Sprintf("%d", t), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// NewValidator registers the bridge request tags on a validator instance.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("decimal_gt0", func(fl validator.FieldLevel) bool {
		return units.IsPositive(fl.Field().String())
	})
	return v
}

// ValidateRequest checks the canonical request after chain names were resolved.
func ValidateRequest(v *validator.Validate, req entities.BridgeRequest) error {
	if strings.TrimSpace(req.UserID) == "" {
		return domainerrors.MissingUserIDError()
	}
	if req.DestinationChain == "" {
		return domainerrors.ValidationError(FieldDestinationChain, "destination chain is required")
	}
	if req.SourceChain == req.DestinationChain {
		return domainerrors.NewDomainError(domainerrors.ErrInvalidInput, "SAME_CHAIN", domainerrors.ErrSameChain.Error()).
			WithCause(domainerrors.ErrSameChain).
			WithDetails(map[string]interface{}{"chain": req.SourceChain})
	}

	if err := v.Struct(req); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok || len(verrs) == 0 {
			return domainerrors.ValidationError("request", err.Error())
		}
		fe := verrs[0]
		return domainerrors.ValidationError(fieldName(fe.Field()), validationMessage(fe))
	}
	return nil
}

func fieldName(structField string) string {
	switch structField {
	case "SourceChain":
		return FieldSourceChain
	case "DestinationChain":
		return FieldDestinationChain
	case "Amount":
		return FieldAmount
	case "Recipient":
		return FieldRecipient
	case "UserID":
		return "user_id"
	default:
		return strings.ToLower(structField)
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "decimal_gt0":
		return "must be a positive decimal string"
	case "eth_addr":
		return "must be a 0x-prefixed 20-byte hex address"
	case "nefield":
		return "must differ from the source chain"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
