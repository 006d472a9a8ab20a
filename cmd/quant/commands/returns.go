package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/quantgem/backend/internal/contracts"
	"github.com/wonny/quantgem/backend/internal/query"
)

// returnsCmd represents the returns command
var returnsCmd = &cobra.Command{
	Use:   "returns",
	Short: "수익률 계산 및 조회",
	Long: `수익률을 재계산하거나 저장된 결과를 조회합니다.

Subcommands:
  compute   - 수익률 재계산 (전 종목 또는 --symbol)
  rankings  - 수익률 랭킹 출력
  stats     - 시장 통계 스냅샷 출력

Example:
  go run ./cmd/quant returns compute
  go run ./cmd/quant returns compute --symbol 2330.TW
  go run ./cmd/quant returns rankings --period monthly --range top10
  go run ./cmd/quant returns stats --market listed`,
}

var (
	returnsComputeCmd = &cobra.Command{
		Use:   "compute",
		Short: "수익률 재계산",
		RunE:  runReturnsCompute,
	}

	returnsRankingsCmd = &cobra.Command{
		Use:   "rankings",
		Short: "수익률 랭킹",
		RunE:  runReturnsRankings,
	}

	returnsStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "시장 통계",
		RunE:  runReturnsStats,
	}
)

var (
	computeSymbols []string
	queryPeriod    string
	queryMarket    string
	queryRange     string
	queryDate      string
	queryLimit     int
)

func init() {
	rootCmd.AddCommand(returnsCmd)
	returnsCmd.AddCommand(returnsComputeCmd)
	returnsCmd.AddCommand(returnsRankingsCmd)
	returnsCmd.AddCommand(returnsStatsCmd)

	returnsComputeCmd.Flags().StringSliceVar(&computeSymbols, "symbol", nil, "재계산할 종목 (반복 가능, 기본: 전 종목)")

	for _, c := range []*cobra.Command{returnsRankingsCmd, returnsStatsCmd} {
		c.Flags().StringVar(&queryPeriod, "period", "daily", "daily|weekly|monthly|quarterly|yearly")
		c.Flags().StringVar(&queryMarket, "market", "all", "all|listed|otc")
		c.Flags().StringVar(&queryDate, "date", "", "기준일 YYYY-MM-DD (기본: 최신)")
	}
	returnsRankingsCmd.Flags().StringVar(&queryRange, "range", "all", "all|positive|negative|top10|extreme")
	returnsRankingsCmd.Flags().IntVar(&queryLimit, "limit", 20, "출력 개수")
}

func runReturnsCompute(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	target := "all symbols"
	if len(computeSymbols) > 0 {
		target = fmt.Sprintf("%v", computeSymbols)
	}
	printHeader("Returns Recompute", target)

	result, err := a.runner.Run(ctx, computeSymbols)
	if err != nil {
		PrintError(fmt.Sprintf("Recompute aborted: %v", err))
		return err
	}

	PrintKeyValue("Symbols", strconv.Itoa(result.Symbols), 10)
	PrintKeyValue("Succeeded", strconv.Itoa(result.Succeeded), 10)
	PrintKeyValue("Failed", strconv.Itoa(result.Failed), 10)
	PrintKeyValue("Records", strconv.Itoa(result.Records), 10)
	PrintKeyValue("Duration", result.Duration.Round(time.Millisecond).String(), 10)

	if len(result.Failures) > 0 {
		PrintWarning(fmt.Sprintf("%d symbols failed", len(result.Failures)))
		PrintTableHeader([]string{"Symbol", "Error"}, []int{12, 60})
		for _, f := range result.Failures {
			PrintTableRow([]string{f.Symbol, f.Error}, []int{12, 60})
		}
	}

	fmt.Println()
	PrintSuccess("Recompute completed")
	return nil
}

func runReturnsRankings(cmd *cobra.Command, args []string) error {
	req, err := parseRankingsFlags()
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.query.Rankings(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("rankings: %w", err)
	}

	printHeader(fmt.Sprintf("Rankings (%s, %s)", res.Period, req.Market), formatDate(res.AsOfDate))

	widths := []int{5, 10, 16, 10, 10, 14}
	PrintTableHeader([]string{"Rank", "Symbol", "Name", "Return", "Close", "Volume"}, widths)
	for _, r := range res.Results {
		PrintTableRow([]string{
			strconv.Itoa(r.Rank),
			r.Symbol,
			truncate(r.Name, widths[2]),
			formatPct(r.ReturnRate),
			formatFloat(r.CurrentPrice),
			formatVolume(r.Volume),
		}, widths)
	}

	fmt.Printf("\n%d of %d rows\n", len(res.Results), res.Total)
	return nil
}

func runReturnsStats(cmd *cobra.Command, args []string) error {
	horizon, err := contracts.ParseHorizon(queryPeriod)
	if err != nil {
		return err
	}
	market, err := contracts.ParseMarket(queryMarket)
	if err != nil {
		return err
	}
	date, err := parseDateFlag(queryDate)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.query.Statistics(cmd.Context(), query.StatisticsRequest{Horizon: horizon, Market: market, Date: date})
	if err != nil {
		return fmt.Errorf("statistics: %w", err)
	}

	printHeader(fmt.Sprintf("Market Statistics (%s, %s)", horizon, market), formatDate(snap.AsOfDate))

	const w = 18
	PrintKeyValue("Total", strconv.Itoa(snap.Total), w)
	PrintKeyValue("Rising / Falling", fmt.Sprintf("%d / %d", snap.RisingStocks, snap.FallingStocks), w)
	PrintKeyValue("Avg Return", fmt.Sprintf("%.2f%%", snap.AvgReturn), w)
	PrintKeyValue("Max / Min", fmt.Sprintf("%.2f%% / %.2f%%", snap.MaxReturn, snap.MinReturn), w)
	PrintKeyValue("Top Stock", snap.TopStock, w)
	PrintKeyValue("New / Near High", fmt.Sprintf("%d / %d", snap.NewHighStocks, snap.NearHighStocks), w)
	PrintKeyValue("Above MA20 / MA60", fmt.Sprintf("%.1f%% / %.1f%%", snap.AboveMA20Pct, snap.AboveMA60Pct), w)
	PrintKeyValue("Both Above", fmt.Sprintf("%.1f%%", snap.BothAbovePct), w)
	PrintKeyValue("Vol Surge Up", strconv.Itoa(snap.VolSurgeUp), w)
	PrintKeyValue("Over 2x Volume", strconv.Itoa(snap.Over2xCount), w)

	return nil
}

func parseRankingsFlags() (query.RankingsRequest, error) {
	var req query.RankingsRequest
	var err error

	if req.Horizon, err = contracts.ParseHorizon(queryPeriod); err != nil {
		return req, err
	}
	if req.Market, err = contracts.ParseMarket(queryMarket); err != nil {
		return req, err
	}
	if req.Range, err = contracts.ParseReturnRange(queryRange); err != nil {
		return req, err
	}
	if req.Date, err = parseDateFlag(queryDate); err != nil {
		return req, err
	}
	req.Limit = queryLimit

	return req, nil
}

func parseDateFlag(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", contracts.ErrInvalidDate, raw)
	}
	return &d, nil
}
