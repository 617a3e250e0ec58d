package multicall

import (
	"context"
	"fmt"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Multicall2.tryAggregate: отдельные вызовы могут падать, батч нет.
const multicallABI = `[
{
    "inputs": [
        {"name": "requireSuccess", "type": "bool"},
        {
            "components": [
                {"name": "target", "type": "address"},
                {"name": "callData", "type": "bytes"}
            ],
            "name": "calls",
            "type": "tuple[]"
        }
    ],
    "name": "tryAggregate",
    "outputs": [
        {
            "components": [
                {"name": "success", "type": "bool"},
                {"name": "returnData", "type": "bytes"}
            ],
            "name": "returnData",
            "type": "tuple[]"
        }
    ],
    "stateMutability": "nonpayable",
    "type": "function"
}
]`

// MaxBatch ограничивает размер одного eth_call: публичные RPC режут большие запросы.
const MaxBatch = 100

type IClient interface {
	Aggregate(ctx context.Context, calls []Call) ([]Result, error)
}

type Call struct {
	Target   common.Address
	CallData []byte
}

type Result struct {
	Success    bool
	ReturnData []byte
}

// ABI returns the parsed Multicall2 interface.
func ABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(multicallABI))
	if err != nil {
		panic(err)
	}
	return parsed
}

type Client struct {
	c    ethereum.ContractCaller
	addr common.Address
	abi  abi.ABI
}

func New(c ethereum.ContractCaller, multicallAddr common.Address) (IClient, error) {
	parsedABI, err := abi.JSON(strings.NewReader(multicallABI))
	if err != nil {
		return nil, fmt.Errorf("bad abi: %w", err)
	}
	return &Client{c: c, addr: multicallAddr, abi: parsedABI}, nil
}

// Aggregate выполняет calls пачками по MaxBatch. Результаты в том же порядке.
func (c *Client) Aggregate(ctx context.Context, calls []Call) ([]Result, error) {
	out := make([]Result, 0, len(calls))
	for start := 0; start < len(calls); start += MaxBatch {
		end := min(start+MaxBatch, len(calls))
		part, err := c.aggregate(ctx, calls[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
	}
	return out, nil
}

func (c *Client) aggregate(ctx context.Context, calls []Call) ([]Result, error) {
	payload, err := c.abi.Pack("tryAggregate", false, calls)
	if err != nil {
		return nil, fmt.Errorf("pack tryAggregate: %w", err)
	}

	res, err := c.c.CallContract(ctx, ethereum.CallMsg{To: &c.addr, Data: payload}, nil)
	if err != nil {
		return nil, fmt.Errorf("call tryAggregate: %w", err)
	}

	vals, err := c.abi.Unpack("tryAggregate", res)
	if err != nil {
		return nil, fmt.Errorf("unpack tryAggregate: %w", err)
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("unpack tryAggregate: %d outputs", len(vals))
	}
	rows := *abi.ConvertType(vals[0], new([]Result)).(*[]Result)
	if len(rows) != len(calls) {
		return nil, fmt.Errorf("tryAggregate: got %d results for %d calls", len(rows), len(calls))
	}
	return rows, nil
}

// Sequential исполняет те же вызовы по одному. Используется, когда Multicall
// не настроен или батч не прошёл.
type Sequential struct {
	C ethereum.ContractCaller
}

func (s Sequential) Aggregate(ctx context.Context, calls []Call) ([]Result, error) {
	out := make([]Result, len(calls))
	for i, call := range calls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		to := call.Target
		data, err := s.C.CallContract(ctx, ethereum.CallMsg{To: &to, Data: call.CallData}, nil)
		if err != nil {
			continue
		}
		out[i] = Result{Success: true, ReturnData: data}
	}
	return out, nil
}
