package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	engineConfigFile string
	verbose          bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "QuantGem - 대만 주식 수익률/시장 통계 엔진",
	Long: `QuantGem Returns Engine CLI

일별 종가로부터 기간 수익률(일/주/월/분기/연, 누적)을 계산해 저장하고,
랭킹/시장 통계/히스토리/히트맵을 REST API로 제공합니다.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant api
  go run ./cmd/quant returns compute
  go run ./cmd/quant returns compute --symbol 2330.TW
  go run ./cmd/quant returns rankings --period weekly --market otc
  go run ./cmd/quant scheduler start
  go run ./cmd/quant test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&engineConfigFile, "engine-config", "", "engine YAML (horizons, thresholds); overrides ENGINE_CONFIG")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (LOG_LEVEL=debug)")
}
