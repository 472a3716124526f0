package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"veaxflow/internal/config"
	"veaxflow/internal/engine"
	"veaxflow/internal/model"
	"veaxflow/internal/pool"
)

var titleStyle = lipgloss.NewStyle().Bold(true)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	initial, steps, final, err := simulate(cfg)
	if err != nil {
		return err
	}

	logger.Info("simulation complete",
		zap.Int("steps", len(steps)),
		zap.Float64("final_fee", final.FeeTier),
		zap.Float64("final_lower", final.PriceRange.Lower),
		zap.Float64("final_upper", final.PriceRange.Upper),
	)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("Initial: ")+initial.Status(cfg.Units))
	fmt.Fprintln(out, renderSteps(steps, cfg.Units))
	fmt.Fprintln(out, titleStyle.Render("Final: ")+final.Status(cfg.Units))
	return nil
}

// simulate replays the engine over cfg.Volumes on a pool built from flags.
func simulate(cfg config.SimulateConfig) (*pool.State, []model.Adjustment, *pool.State, error) {
	eng, err := engine.New(cfg.Policy)
	if err != nil {
		return nil, nil, nil, err
	}

	state, err := pool.NewState(model.PoolRecord{
		TokenA:    cfg.TokenA,
		TokenB:    cfg.TokenB,
		ReserveA:  cfg.ReserveA,
		ReserveB:  cfg.ReserveB,
		SpotPrice: cfg.SpotPrice,
	}, pool.Options{InitialFee: cfg.InitialFee, RangePct: cfg.RangePct})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build pool state: %w", err)
	}
	initial := state.Clone()

	steps := make([]model.Adjustment, 0, len(cfg.Volumes))
	for i, vol := range cfg.Volumes {
		adj := eng.Adjust(state, vol)
		if err := eng.CheckInvariants(state); err != nil {
			return nil, nil, nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		steps = append(steps, adj)
	}
	return initial, steps, state, nil
}

func renderSteps(steps []model.Adjustment, units pool.Units) string {
	p := message.NewPrinter(language.English)
	rows := make([][]string, 0, len(steps))
	for i, adj := range steps {
		flags := ""
		if adj.RangeClamped {
			flags += "range-clamped "
		}
		if adj.ReservesCapped {
			flags += "reserves-capped"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			p.Sprintf("%.2f", adj.AvgVolume),
			string(adj.Branch),
			fmt.Sprintf("%.2f%%", adj.NewFee),
			fmt.Sprintf("%.4f-%.4f", adj.NewRange.Lower, adj.NewRange.Upper),
			pool.FormatAmount(adj.ReserveA, units.DecimalsA) + " " + units.SymbolA,
			pool.FormatAmount(adj.ReserveB, units.DecimalsB) + " " + units.SymbolB,
			p.Sprintf("%.2f", adj.YieldEstimate) + " " + units.SymbolB + "/h",
			flags,
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STEP", "VOLUME", "BRANCH", "FEE", "RANGE", "RESERVE A", "RESERVE B", "YIELD", "FLAGS").
		Rows(rows...).
		String()
}
