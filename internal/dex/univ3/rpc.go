package univ3

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// DialFirst подключается к первому живому RPC из urls. Живость проверяется eth_chainId.
// onAttempt (может быть nil) вызывается после каждой попытки.
func DialFirst(ctx context.Context, urls []string, timeout time.Duration, log *zap.Logger, onAttempt func(url string, err error)) (*ethclient.Client, string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	for _, u := range urls {
		ec, err := probe(ctx, u, timeout)
		if onAttempt != nil {
			onAttempt(u, err)
		}
		if err != nil {
			log.Warn("rpc unreachable", zap.String("url", u), zap.Error(err))
			continue
		}
		log.Info("rpc connected", zap.String("url", u))
		return ec, u, nil
	}
	return nil, "", fmt.Errorf("%w (tried %d)", ErrNoRPC, len(urls))
}

func probe(ctx context.Context, url string, timeout time.Duration) (*ethclient.Client, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ec, err := ethclient.DialContext(cctx, url)
	if err != nil {
		return nil, err
	}
	if _, err := ec.ChainID(cctx); err != nil {
		ec.Close()
		return nil, err
	}
	return ec, nil
}
