package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Caller is the subset of ethclient.Client the ContractCaller reads through
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// ContractCaller performs read-only calls against the TWAP lens and ERC20 tokens
type ContractCaller struct {
	client   Caller
	closer   func()
	lensAddr common.Address

	mu                 sync.RWMutex
	tokenDecimalsCache map[common.Address]uint8
}

// NewContractCaller dials rpcURL and creates a new ContractCaller instance
func NewContractCaller(rpcURL string, lensAddr string) (*ContractCaller, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	cc := NewContractCallerWithClient(client, lensAddr)
	cc.closer = client.Close
	return cc, nil
}

// NewContractCallerWithClient creates a ContractCaller on an existing client
func NewContractCallerWithClient(client Caller, lensAddr string) *ContractCaller {
	return &ContractCaller{
		client:             client,
		lensAddr:           common.HexToAddress(lensAddr),
		tokenDecimalsCache: make(map[common.Address]uint8),
	}
}

// LensAddress returns the lens contract address
func (cc *ContractCaller) LensAddress() common.Address {
	return cc.lensAddr
}

// MakerOrders returns every order the maker created, as reported by the lens
func (cc *ContractCaller) MakerOrders(ctx context.Context, maker common.Address) ([]LensOrder, error) {
	values, err := cc.call(ctx, lensABI, cc.lensAddr, "makerOrders", maker)
	if err != nil {
		return nil, fmt.Errorf("failed to call makerOrders: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected makerOrders result length: %d", len(values))
	}

	orders, ok := abi.ConvertType(values[0], new([]LensOrder)).(*[]LensOrder)
	if !ok {
		return nil, fmt.Errorf("unexpected makerOrders result type: %T", values[0])
	}
	return *orders, nil
}

// BalanceOf returns the ERC20 balance of account
func (cc *ContractCaller) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	values, err := cc.call(ctx, erc20ABI, token, "balanceOf", account)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance of %s: %w", token.Hex(), err)
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type: %T", values[0])
	}
	return balance, nil
}

// Allowance returns how much spender may transfer from owner
func (cc *ContractCaller) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	values, err := cc.call(ctx, erc20ABI, token, "allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("failed to get allowance of %s: %w", token.Hex(), err)
	}
	allowance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected allowance result type: %T", values[0])
	}
	return allowance, nil
}

// NativeBalance returns the account balance in the chain's native currency
func (cc *ContractCaller) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := cc.client.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// TokenBalance returns the balance of token, treating the zero address and
// the 0xEeee... placeholder as the native currency
func (cc *ContractCaller) TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	if IsNativeToken(token) {
		return cc.NativeBalance(ctx, account)
	}
	return cc.BalanceOf(ctx, token, account)
}

// GetTokenDecimals gets token decimals with caching
func (cc *ContractCaller) GetTokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	cc.mu.RLock()
	decimals, ok := cc.tokenDecimalsCache[token]
	cc.mu.RUnlock()
	if ok {
		return decimals, nil
	}

	if IsNativeToken(token) {
		decimals = 18
	} else {
		values, err := cc.call(ctx, erc20ABI, token, "decimals")
		if err != nil {
			return 0, fmt.Errorf("failed to get decimals of %s: %w", token.Hex(), err)
		}
		decimals, ok = values[0].(uint8)
		if !ok {
			return 0, fmt.Errorf("unexpected decimals result type: %T", values[0])
		}
	}

	cc.mu.Lock()
	cc.tokenDecimalsCache[token] = decimals
	cc.mu.Unlock()
	return decimals, nil
}

// IsNativeToken reports whether token is a native currency placeholder
func IsNativeToken(token common.Address) bool {
	return token == (common.Address{}) || strings.EqualFold(token.Hex(), nativePlaceholder)
}

const nativePlaceholder = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

func (cc *ContractCaller) call(ctx context.Context, contractABI abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	result, err := cc.client.CallContract(ctx, ethereum.CallMsg{
		To:   &to,
		Data: data,
	}, nil)
	if err != nil {
		return nil, err
	}

	values, err := contractABI.Unpack(method, result)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty %s result", method)
	}
	return values, nil
}

// Close closes the Ethereum client connection
func (cc *ContractCaller) Close() {
	if cc.closer != nil {
		cc.closer()
	}
}
