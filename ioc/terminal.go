package ioc

import (
	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
)

func InitFuturesCli(apiKey, apiSecret string) *futures.Client {
	return binance.NewFuturesClient(apiKey, apiSecret)
}
