// Command betmirror runs an autonomous copy-trading session against the
// Polymarket CLOB. Configuration comes from an optional YAML file overlaid
// with BETMIRROR_* environment variables; credentials are env-only.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yanun0323/logs"

	betmirror "github.com/vmbbz/betmirror-sub005"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "betmirror",
		Short:         "Autonomous Polymarket copy-trading and market-making bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		logs.Errorf("[main] %v", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

func runCmd() *cobra.Command {
	var (
		configPath string
		copyOnly   bool
		mmOnly     bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the trading session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if copyOnly {
				cfg.Engine.MarketMakingEnabled = false
			}
			if mmOnly {
				cfg.Engine.CopyTradingEnabled = false
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().BoolVar(&copyOnly, "copy-only", false, "disable market making for this run")
	cmd.Flags().BoolVar(&mmOnly, "mm-only", false, "disable copy trading for this run")
	return cmd
}

func run(ctx context.Context, cfg betmirror.Config) error {
	sess, err := betmirror.NewSession(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := sess.Start(ctx); err != nil {
		return err
	}
	logs.Infof("[main] session started wallet=%s copy=%t mm=%t",
		cfg.Engine.WalletAddress, cfg.Engine.CopyTradingEnabled, cfg.Engine.MarketMakingEnabled)

	go consumeBus(ctx, sess)

	<-ctx.Done()
	logs.Info("[main] shutting down")
	return sess.Stop()
}

// consumeBus drains the event bus into the log so unread channels never
// stall publishers.
func consumeBus(ctx context.Context, sess *betmirror.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sess.Bus.Trades():
			if ev.Success {
				logs.Infof("[trade] %s %s %s usd=%s order=%s",
					ev.Signal.Side, ev.Signal.Title, ev.Reason, ev.SizedUSD.StringFixed(2), ev.OrderID)
			} else {
				logs.Warnf("[trade] %s %s skipped: %s",
					ev.Signal.Side, ev.Signal.Title, ev.Reason)
			}
		case st := <-sess.Bus.Stats():
			logs.Infof("[stats] cash=%s positions=%s total=%s pnl=%s winrate=%s",
				st.CashUSD.StringFixed(2), st.PositionsUSD.StringFixed(2),
				st.TotalUSD.StringFixed(2), st.PnL.StringFixed(2), st.WinRate.StringFixed(2))
		case positions := <-sess.Bus.Positions():
			logs.Infof("[sync] %d open positions", len(positions))
		case opps := <-sess.Bus.Opportunities():
			if len(opps) > 0 {
				top := opps[0]
				logs.Infof("[mm] top opportunity market=%s spread=%sbps score=%s",
					top.MarketID, top.SpreadBps.StringFixed(1), top.Score.StringFixed(2))
			}
		case snipe := <-sess.Bus.FomoSnipes():
			logs.Infof("[momentum] %s moved %s to %s",
				snipe.Title, snipe.Change.StringFixed(3), snipe.Price.StringFixed(3))
		}
	}
}
