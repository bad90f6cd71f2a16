// Example usage of the TWAP SDK Go
package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"time"

	twap "github.com/kaifufi/twap-sdk-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Reads twap.toml when present, then TWAP_* variables and .env
	configPath := ""
	if _, err := os.Stat("twap.toml"); err == nil {
		configPath = "twap.toml"
	}
	config, err := twap.LoadClientConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := twap.NewLogger(config.LogLevel, config.LogJSON)
	defer func() { _ = logger.Sync() }()
	config.Logger = logger
	config.MetricsRegisterer = prometheus.DefaultRegisterer

	client, err := twap.NewClient(config)
	if err != nil {
		logger.Fatal("failed to create client", zap.Error(err))
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	account := os.Getenv("TWAP_ACCOUNT")
	if account == "" {
		account = "0x0000000000000000000000000000000000000001"
	}

	// Example: derive and validate an order
	src := twap.NewToken("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", 6, "USDC")
	dst := twap.NewToken("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", 18, "WETH")
	percent := "5"
	draft := twap.OrderDraft{
		SrcToken:             &src,
		DstToken:             &dst,
		TypedSrcAmount:       "1000",
		SelectedPricePercent: &percent,
		Chunks:               4,
		Duration:             twap.TimeDuration{Value: 1, Unit: twap.Days},
	}

	// 0.0004 WETH per USDC
	marketPrice := big.NewInt(400_000_000_000_000)
	market := client.MarketSnapshot(ctx, account, &src, &dst, marketPrice)
	derived := client.DeriveOrderParams(draft, market)

	fmt.Printf("Chunk size: %s %s, min out per chunk: %s, limit price: %s\n",
		twap.AmountUI(derived.SrcChunkAmount, src.Decimals), src.Symbol,
		twap.AmountUI(derived.DstMinChunkAmountOut, dst.Decimals),
		derived.LimitPriceUI,
	)

	if warning := client.Validate(draft, derived, market); warning != twap.WarningNone {
		fmt.Printf("Order blocked: %s\n", warning)
	} else {
		submission, err := client.BuildSubmission(draft, derived)
		if err != nil {
			log.Printf("Failed to build submission: %v", err)
		} else {
			fmt.Printf("Send %d bytes of calldata to %s\n", len(submission.Data), submission.To)
		}
	}

	// Example: fetch the order history once
	orders, err := client.GetUserOrders(ctx, account)
	if err != nil {
		log.Printf("Failed to get orders: %v", err)
	} else {
		grouped := twap.GroupOrdersByStatus(orders)
		for _, status := range []twap.OrderStatus{twap.OrderStatusOpen, twap.OrderStatusCompleted, twap.OrderStatusExpired, twap.OrderStatusCanceled} {
			fmt.Printf("%s: %d\n", status, len(grouped[status]))
		}
	}

	// Example: keep the history fresh until interrupted
	poller := client.NewOrderPoller(30 * time.Second)
	updates, unsubscribe := poller.Subscribe()
	defer unsubscribe()
	poller.SetSession(account)

	stream := client.NewOrderEventStream(poller)
	if err := stream.SubscribeOrders(client.ChainID(), account); err != nil {
		logger.Warn("failed to subscribe to order events", zap.Error(err))
	}
	if err := stream.Start(ctx); err != nil {
		logger.Warn("order events unavailable, polling only", zap.Error(err))
	} else {
		defer stream.Stop()
	}

	go func() {
		_ = poller.Run(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			if update.Err != nil {
				fmt.Printf("Poll failed: %v\n", update.Err)
				continue
			}
			fmt.Printf("%s: %d orders (%d open)\n", update.At.Format(time.RFC3339), len(update.Orders), len(update.Grouped[twap.OrderStatusOpen]))
		}
	}
}
