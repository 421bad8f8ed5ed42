package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"tradeGate/config"
	"tradeGate/internal/adapters/binanceclient"
	"tradeGate/internal/adapters/logger"
	"tradeGate/internal/adapters/memory"
	"tradeGate/internal/app"
	"tradeGate/internal/domain"
	"tradeGate/internal/execution"
	"tradeGate/internal/ports"
)

var (
	identity   = flag.String("identity", "sim", "trading identity")
	symbol     = flag.String("symbol", "ETH", "symbol to trade")
	side       = flag.String("side", "BUY", "BUY or SELL")
	balance    = flag.Float64("balance", 1000, "account balance in quote currency")
	confidence = flag.Float64("confidence", 0.8, "signal confidence in [0,1]")
	price      = flag.Float64("price", 0, "static reference price; 0 reads the mark price from Binance")
	tick       = flag.String("tick", "0.01", "tick size used with -price")
	decimals   = flag.Int("decimals", 3, "size decimals used with -price")
)

// staticMarket serves a fixed price and asset spec.
type staticMarket struct {
	price float64
	spec  domain.AssetSpec
}

func (m staticMarket) GetAssetSpec(ctx context.Context, symbol string) (*domain.AssetSpec, error) {
	spec := m.spec
	spec.Symbol = symbol
	return &spec, nil
}

func (m staticMarket) GetReferencePrice(ctx context.Context, symbol string) (float64, error) {
	return m.price, nil
}

func main() {
	flag.Parse()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	orderSide, ok := domain.ParseSide(*side)
	if !ok {
		log.Fatalf("FATAL: invalid side %q", *side)
	}

	var market ports.MarketData
	if *price > 0 {
		market = staticMarket{price: *price, spec: domain.AssetSpec{TickSize: *tick, SizeDecimals: *decimals}}
	} else {
		client, err := binanceclient.New(binanceclient.Config{
			APIKey:     cfg.APIKey,
			SecretKey:  cfg.SecretKey,
			UseTestnet: cfg.IsTestnet,
			Logger:     appLogger,
			SpecTTL:    cfg.AssetSpecTTL,
			MaxRetries: cfg.MetadataMaxRetries,
			QuoteAsset: cfg.QuoteAsset,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
		}
		market = client
	}

	dispatcher, err := execution.NewDispatcher(execution.Config{Logger: appLogger, TimeInForce: cfg.OrderTIF})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize dispatcher: %v", err)
	}

	// This tool never sends orders: no transport and a SIMULATED default.
	params := cfg.Risk
	params.Mode = domain.ModeSimulated
	svc, err := app.NewExecutionService(app.Config{
		Logger:        appLogger,
		MarketData:    market,
		Dispatcher:    dispatcher,
		States:        memory.NewStateStore(),
		DefaultParams: params,
		Builder:       domain.BuilderInfo{Address: cfg.BuilderAddress, FeeTenthsBps: cfg.BuilderFeeTenthsBps},
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize execution service: %v", err)
	}

	attempt, err := svc.Evaluate(ctx, *identity, domain.TradeProposal{
		Symbol:     *symbol,
		Side:       orderSide,
		Balance:    *balance,
		Confidence: *confidence,
	})
	if err != nil {
		log.Fatalf("Attempt failed: %v", err)
	}
	printAttempt(attempt)
}

func printAttempt(a *domain.Attempt) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("SIMULATED ATTEMPT")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"Allowed", a.Allowed},
		{"Reason", a.Reason},
	})

	if a.Order != nil {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Symbol", a.Order.Symbol},
			{"Side", a.Order.Side},
			{"Price", a.Order.Price},
			{"Size", a.Order.Size},
			{"Stop Loss", a.StopLoss},
			{"Take Profit", a.TakeProfit},
			{"Degraded", a.Order.Degraded},
		})
	}
	if a.Result != nil {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Result", domain.KindOf(a.Result)},
			{"Detail", domain.Describe(a.Result)},
		})
		if f, ok := a.Result.(domain.Filled); ok {
			t.AppendRow(table.Row{"Simulated PnL", fmt.Sprintf("%.4f (%.4f%%)", f.PnL, f.PnLFraction*100)})
		}
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 15, WidthMax: 15, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 60, Align: text.AlignLeft},
	})
	t.Render()
}
