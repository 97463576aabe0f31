package rpc

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrReceiptNotFound is returned while a transaction is not yet mined.
var ErrReceiptNotFound = errors.New("transaction receipt not found")

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

// Client performs read-only EVM calls against the RPC endpoints of each chain.
// Every call tries the chain's endpoints in order and returns the first success.
type Client struct {
	endpoints map[string][]string
	erc20     abi.ABI
	logger    *zap.Logger

	mu    sync.Mutex
	conns map[string]*ethclient.Client
}

// NewClient builds a client from chain key -> RPC URL list.
func NewClient(endpoints map[string][]string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse token ABI")
	}

	copied := make(map[string][]string, len(endpoints))
	for chain, urls := range endpoints {
		copied[chain] = append([]string(nil), urls...)
	}

	return &Client{
		endpoints: copied,
		erc20:     parsed,
		logger:    logger,
		conns:     make(map[string]*ethclient.Client),
	}, nil
}

// ERC20Balance returns balanceOf(owner) in atomic units.
func (c *Client) ERC20Balance(ctx context.Context, chainKey, token, owner string) (*big.Int, error) {
	data, err := c.erc20.Pack("balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack balanceOf data")
	}
	return c.callUint256(ctx, chainKey, token, "balanceOf", data)
}

// ERC20Allowance returns allowance(owner, spender) in atomic units.
func (c *Client) ERC20Allowance(ctx context.Context, chainKey, token, owner, spender string) (*big.Int, error) {
	data, err := c.erc20.Pack("allowance", common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack allowance data")
	}
	return c.callUint256(ctx, chainKey, token, "allowance", data)
}

// NativeBalance returns the latest native balance in wei-style atomic units.
func (c *Client) NativeBalance(ctx context.Context, chainKey, address string) (*big.Int, error) {
	return withClient(ctx, c, chainKey, func(client *ethclient.Client) (*big.Int, error) {
		balance, err := client.BalanceAt(ctx, common.HexToAddress(address), nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get native token balance")
		}
		return balance, nil
	})
}

// TransactionReceipt returns the receipt of a mined transaction, or ErrReceiptNotFound.
func (c *Client) TransactionReceipt(ctx context.Context, chainKey, txHash string) (*types.Receipt, error) {
	return withClient(ctx, c, chainKey, func(client *ethclient.Client) (*types.Receipt, error) {
		receipt, err := client.TransactionReceipt(ctx, common.HexToHash(txHash))
		if errors.Is(err, ethereum.NotFound) {
			return nil, ErrReceiptNotFound
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to get transaction receipt")
		}
		return receipt, nil
	})
}

// Close releases every dialed connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for url, conn := range c.conns {
		conn.Close()
		delete(c.conns, url)
	}
}

func (c *Client) callUint256(ctx context.Context, chainKey, contract, method string, data []byte) (*big.Int, error) {
	to := common.HexToAddress(contract)
	return withClient(ctx, c, chainKey, func(client *ethclient.Client) (*big.Int, error) {
		result, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to call %s", method)
		}
		if len(result) == 0 {
			return nil, errors.Errorf("empty result from %s call", method)
		}

		out, err := c.erc20.Unpack(method, result)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to unpack %s result", method)
		}
		value, ok := out[0].(*big.Int)
		if !ok {
			return nil, errors.Errorf("unexpected %s result type %T", method, out[0])
		}
		return value, nil
	})
}

func (c *Client) dial(ctx context.Context, url string) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conn, ok := c.conns[url]; ok {
		return conn, nil
	}
	conn, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	c.conns[url] = conn
	return conn, nil
}

// withClient runs f against each endpoint of chainKey until one succeeds.
// ErrReceiptNotFound is an answer, not an endpoint failure, and is returned immediately.
func withClient[T any](ctx context.Context, c *Client, chainKey string, f func(client *ethclient.Client) (T, error)) (res T, err error) {
	urls := c.endpoints[chainKey]
	if len(urls) == 0 {
		return res, errors.Errorf("no rpc endpoints configured for chain %s", chainKey)
	}

	for _, url := range urls {
		client, dialErr := c.dial(ctx, url)
		if dialErr != nil {
			c.logger.Warn("Error connecting to rpc endpoint",
				zap.String("chain", chainKey),
				zap.String("url", url),
				zap.Error(dialErr))
			err = dialErr
			continue
		}

		res, err = f(client)
		if err == nil || errors.Is(err, ErrReceiptNotFound) {
			return res, err
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		c.logger.Warn("RPC call failed, trying next endpoint",
			zap.String("chain", chainKey),
			zap.String("url", url),
			zap.Error(err))
	}
	return res, err
}
