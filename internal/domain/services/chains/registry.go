package chains

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/hub_bridge/internal/domain/errors"
)

// Registry is the immutable table of supported chains.
type Registry struct {
	chains    map[string]entities.ChainConfig
	byCustody map[string]string
	keys      []string
	hub       string
}

// NewRegistry validates the given chains and freezes them.
// Chain keys, domain ids and custody blockchain ids must be unique; hubKey must be one of the chains.
func NewRegistry(configs []entities.ChainConfig, hubKey string) (*Registry, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("chain registry is empty")
	}

	r := &Registry{
		chains:    make(map[string]entities.ChainConfig, len(configs)),
		byCustody: make(map[string]string, len(configs)),
	}
	domains := make(map[uint32]string, len(configs))

	for _, c := range configs {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.chains[c.Key]; dup {
			return nil, fmt.Errorf("duplicate chain key %s", c.Key)
		}
		if other, dup := domains[c.DomainID]; dup {
			return nil, fmt.Errorf("chains %s and %s share domain %d", other, c.Key, c.DomainID)
		}
		custody := strings.ToUpper(c.CustodyBlockchain)
		if other, dup := r.byCustody[custody]; dup {
			return nil, fmt.Errorf("chains %s and %s share custody blockchain %s", other, c.Key, custody)
		}

		c.RPCURLs = append([]string(nil), c.RPCURLs...)
		c.IsHub = c.Key == hubKey
		r.chains[c.Key] = c
		r.byCustody[custody] = c.Key
		domains[c.DomainID] = c.Key
		r.keys = append(r.keys, c.Key)
	}

	if _, ok := r.chains[hubKey]; !ok {
		return nil, fmt.Errorf("hub chain %q is not in the registry", hubKey)
	}
	r.hub = hubKey
	sort.Strings(r.keys)

	return r, nil
}

// NewDefaultRegistry builds the registry from DefaultChains with Arc as hub.
func NewDefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultChains(), ArcTestnet)
	if err != nil {
		panic(fmt.Sprintf("default chain registry is invalid: %v", err))
	}
	return r
}

// Get returns a copy of the chain config for a canonical key.
func (r *Registry) Get(key string) (entities.ChainConfig, error) {
	c, ok := r.chains[key]
	if !ok {
		return entities.ChainConfig{}, domainerrors.ChainResolutionError("chain", key)
	}
	c.RPCURLs = append([]string(nil), c.RPCURLs...)
	return c, nil
}

// Resolve canonicalizes free-form input and returns the chain config.
// Aliases that point at a chain missing from this registry are unresolved as well.
func (r *Registry) Resolve(input string) (entities.ChainConfig, error) {
	key, ok := ResolveChainKey(input)
	if !ok {
		if _, exact := r.chains[input]; exact {
			key = input
		} else {
			return entities.ChainConfig{}, domainerrors.ChainResolutionError("chain", input)
		}
	}
	if _, present := r.chains[key]; !present {
		return entities.ChainConfig{}, domainerrors.ChainResolutionError("chain", input)
	}
	return r.Get(key)
}

// ByCustodyBlockchain maps a custody blockchain id such as "BASE-SEPOLIA" to its chain.
func (r *Registry) ByCustodyBlockchain(id string) (entities.ChainConfig, bool) {
	key, ok := r.byCustody[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return entities.ChainConfig{}, false
	}
	c, err := r.Get(key)
	return c, err == nil
}

// Hub returns the hub chain.
func (r *Registry) Hub() entities.ChainConfig {
	c, _ := r.Get(r.hub)
	return c
}

// Keys returns the canonical keys in sorted order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.keys...)
}

// All returns every chain in key order.
func (r *Registry) All() []entities.ChainConfig {
	out := make([]entities.ChainConfig, 0, len(r.keys))
	for _, k := range r.keys {
		c, _ := r.Get(k)
		out = append(out, c)
	}
	return out
}
