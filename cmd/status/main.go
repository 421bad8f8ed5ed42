package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"tradeGate/config"
	"tradeGate/internal/adapters/logger"
	"tradeGate/internal/adapters/sqlite"
	"tradeGate/internal/domain"
)

var (
	identity = flag.String("identity", "", "only show attempts of this identity")
	limit    = flag.Int("limit", 20, "number of recent attempts to show")
)

func main() {
	flag.Parse()
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if cfg.StateStore != config.StoreSQLite {
		log.Fatalf("FATAL: status needs STATE_STORE=%s (got %s)", config.StoreSQLite, cfg.StateStore)
	}

	appLogger := logger.NewStdLogger(logger.Config{Level: logger.LevelWarn})
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to open database: %v", err)
	}
	defer repo.Close()

	states, err := repo.ListStates(ctx)
	if err != nil {
		log.Fatalf("Error listing trader states: %v", err)
	}
	printStates(states)

	attempts, err := repo.ListAttempts(ctx, *identity, *limit)
	if err != nil {
		log.Fatalf("Error listing attempts: %v", err)
	}
	printAttempts(attempts)

	counts, err := repo.CountByResult(ctx)
	if err != nil {
		log.Fatalf("Error counting attempts: %v", err)
	}
	printCounts(counts)
}

func printStates(states []domain.TraderRiskState) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("TRADER STATES")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Identity", "Mode", "Daily PnL", "Loss Streak", "Trades", "Total PnL", "Last Trade", "Updated"})

	for _, st := range states {
		last := "-"
		if !st.LastTradeAt.IsZero() {
			last = st.LastTradeAt.Format("2006-01-02 15:04:05")
		}
		t.AppendRow(table.Row{
			st.Identity,
			st.Mode,
			fmt.Sprintf("%.2f%%", st.DailyPnL*100),
			fmt.Sprintf("%d/%d", st.ConsecutiveLosses, st.ConsecutiveLossStop),
			st.TotalTrades,
			fmt.Sprintf("%.2f", st.TotalPnL),
			last,
			st.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	if len(states) == 0 {
		t.AppendRow(table.Row{"(none)"})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	t.Render()
	fmt.Println()
}

func printAttempts(records []domain.AttemptRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("RECENT ATTEMPTS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Time", "Identity", "Symbol", "Side", "Size", "Price", "Mode", "Result", "PnL", "Detail"})

	for _, r := range records {
		t.AppendRow(table.Row{
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Identity,
			r.Symbol,
			r.Side,
			r.Size,
			r.Price,
			r.Mode,
			r.Result,
			fmt.Sprintf("%.4f", r.PnL),
			r.Detail,
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 10, WidthMax: 40},
	})
	t.Render()
	fmt.Println()
}

func printCounts(counts map[domain.ResultKind]int) {
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("RESULTS")
	t.SetStyle(table.StyleRounded)
	total := 0
	for _, k := range kinds {
		n := counts[domain.ResultKind(k)]
		total += n
		t.AppendRow(table.Row{k, n})
	}
	t.AppendFooter(table.Row{"Total", total})
	t.Render()
}
