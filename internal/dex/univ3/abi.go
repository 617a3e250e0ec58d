package univ3

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// NonfungiblePositionManager.positions
const nfpmABI = `[
  {"inputs":[{"internalType":"uint256","name":"tokenId","type":"uint256"}],
   "name":"positions","outputs":[
     {"internalType":"uint96","name":"nonce","type":"uint96"},
     {"internalType":"address","name":"operator","type":"address"},
     {"internalType":"address","name":"token0","type":"address"},
     {"internalType":"address","name":"token1","type":"address"},
     {"internalType":"uint24","name":"fee","type":"uint24"},
     {"internalType":"int24","name":"tickLower","type":"int24"},
     {"internalType":"int24","name":"tickUpper","type":"int24"},
     {"internalType":"uint128","name":"liquidity","type":"uint128"},
     {"internalType":"uint256","name":"feeGrowthInside0LastX128","type":"uint256"},
     {"internalType":"uint256","name":"feeGrowthInside1LastX128","type":"uint256"},
     {"internalType":"uint128","name":"tokensOwed0","type":"uint128"},
     {"internalType":"uint128","name":"tokensOwed1","type":"uint128"}],
   "stateMutability":"view","type":"function"}
]`

// минимальный ABI Factory: getPool(tokenA, tokenB, fee) -> address
const factoryABI = `[
  {"inputs":[
     {"internalType":"address","name":"tokenA","type":"address"},
     {"internalType":"address","name":"tokenB","type":"address"},
     {"internalType":"uint24","name":"fee","type":"uint24"}],
   "name":"getPool","outputs":[{"internalType":"address","name":"pool","type":"address"}],
   "stateMutability":"view","type":"function"}
]`

// Минимальный ABI пула для чтения slot0 и token0/token1
const poolABI = `[
  {"inputs":[],"name":"slot0","outputs":[
     {"internalType":"uint160","name":"sqrtPriceX96","type":"uint160"},
     {"internalType":"int24","name":"tick","type":"int24"},
     {"internalType":"uint16","name":"observationIndex","type":"uint16"},
     {"internalType":"uint16","name":"observationCardinality","type":"uint16"},
     {"internalType":"uint16","name":"observationCardinalityNext","type":"uint16"},
     {"internalType":"uint8","name":"feeProtocol","type":"uint8"},
     {"internalType":"bool","name":"unlocked","type":"bool"}],
   "stateMutability":"view","type":"function"},
  {"inputs":[],"name":"token0","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"token1","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

const erc20ABI = `[
  {"inputs":[],"name":"symbol","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

// Старые токены (MKR и т.п.) отдают symbol как bytes32.
const erc20SymbolBytes32ABI = `[
  {"inputs":[],"name":"symbol","outputs":[{"internalType":"bytes32","name":"","type":"bytes32"}],"stateMutability":"view","type":"function"}
]`

var (
	NFPMABI         = mustABI(nfpmABI)
	FactoryABI      = mustABI(factoryABI)
	PoolABI         = mustABI(poolABI)
	ERC20ABI        = mustABI(erc20ABI)
	ERC20Bytes32ABI = mustABI(erc20SymbolBytes32ABI)
)

func mustABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
