package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/inference-sim/collision-risk/risk"
	"github.com/inference-sim/collision-risk/risk/pipeline"
	"github.com/inference-sim/collision-risk/risk/record"
	"github.com/inference-sim/collision-risk/risk/riskplot"
	"github.com/inference-sim/collision-risk/risk/scene"
	"github.com/inference-sim/collision-risk/risk/situation"
	"github.com/inference-sim/collision-risk/risk/trace"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	seed            int64  // Seed for trajectory sampling
	workers         int    // Inference pool size
	interactionHops int    // Front vehicles considered for interaction, nearest first
	skipCycles      int    // Assess every Nth tick
	maxTicks        int    // Stop after this many ticks (0 = scenario length)
	scenarioPath    string // Scenario YAML to replay
	dbPath          string // SQLite database for run traces
	plotDir         string // Directory for per-tick risk PNGs
	traceLevel      string // Trace verbosity
)

// runOptions are the run settings that are not part of risk.Config.
type runOptions struct {
	MaxTicks   int
	PlotDir    string
	TraceLevel trace.TraceLevel
	Source     string
}

// runCmd replays a scenario through the pipeline
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a scenario and estimate collision risk every tick",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadDefaultsConfig(defaultsFilePath, cmd.Flags().Changed("defaults-filepath"))
		if err != nil {
			logrus.Fatalf("Failed to load configuration: %v", err)
		}
		applyOverrides(cmd, &cfg)
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level %q; valid: none, risks, full", traceLevel)
		}

		sc, err := scene.LoadScenario(scenarioPath)
		if err != nil {
			logrus.Fatalf("Failed to load scenario: %v", err)
		}
		if plotDir != "" {
			if err := os.MkdirAll(plotDir, 0o755); err != nil {
				logrus.Fatalf("Failed to create plot directory: %v", err)
			}
		}

		logrus.Infof("Starting run of %s with seed %d, %d workers, skip %d",
			scenarioPath, cfg.Seed, cfg.Inference.Workers, cfg.Pipeline.SkipCycleCount)
		rt, err := runScenario(cmd.Context(), cfg, sc, runOptions{
			MaxTicks:   maxTicks,
			PlotDir:    plotDir,
			TraceLevel: trace.TraceLevel(traceLevel),
			Source:     scenarioPath,
		})
		if err != nil {
			logrus.Fatalf("Run failed: %v", err)
		}

		if err := printSummary(os.Stdout, trace.Summarize(rt)); err != nil {
			logrus.Fatalf("Failed to write summary: %v", err)
		}

		if dbPath != "" {
			rec, err := record.NewRecorder(dbPath)
			if err != nil {
				logrus.Fatalf("Failed to open database: %v", err)
			}
			defer rec.Close()
			runID, err := rec.RecordRun(cmd.Context(), rt)
			if err != nil {
				logrus.Fatalf("Failed to record run: %v", err)
			}
			fmt.Printf("run_id: %s\n", runID)
		}
		logrus.Info("Run complete.")
	},
}

// applyOverrides copies explicitly set flags onto cfg. Flags left at their
// default never overwrite values from the configuration file.
func applyOverrides(cmd *cobra.Command, cfg *risk.Config) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("workers") {
		cfg.Inference.Workers = workers
	}
	if flags.Changed("hops") {
		cfg.Inference.InteractionHops = interactionHops
	}
	if flags.Changed("skip-cycles") {
		cfg.Pipeline.SkipCycleCount = skipCycles
	}
}

// runScenario replays sc through a fresh pipeline until the scenario ends or
// opts.MaxTicks ticks have been processed.
func runScenario(ctx context.Context, cfg risk.Config, sc *scene.Scenario, opts runOptions) (*trace.RunTrace, error) {
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if sc.StopLine != nil {
		cfg.Pipeline.StopLine = *sc.StopLine
	}
	class, err := situation.FromRoad("road", sc.Road)
	if err != nil {
		return nil, err
	}
	replay := scene.NewScenarioReplay(sc)
	p, err := pipeline.New(cfg, []situation.Class{class}, replay.Map(), nil)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	rt := trace.NewRunTrace(trace.TraceConfig{
		Level:    opts.TraceLevel,
		Seed:     cfg.Seed,
		Source:   opts.Source,
		Timestep: cfg.Prediction.Timestep,
	})
	for n := 0; opts.MaxTicks == 0 || n < opts.MaxTicks; n++ {
		snap, err := replay.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rt, err
		}
		res, err := p.Tick(ctx, snap)
		if err != nil {
			return rt, err
		}
		rec := res.Record()
		rt.RecordTick(rec)
		if res.Skipped {
			continue
		}
		logTick(rec)
		if opts.PlotDir != "" && len(rec.Risks) > 0 {
			path := filepath.Join(opts.PlotDir, fmt.Sprintf("tick_%04d.png", rec.Tick))
			if err := riskplot.WriteRiskPNG(path, rec.Tick, rec.Risks, cfg.Prediction.Timestep); err != nil {
				return rt, err
			}
		}
	}
	return rt, nil
}

func logTick(rec trace.TickRecord) {
	if !logrus.IsLevelEnabled(logrus.InfoLevel) {
		return
	}
	parts := make([]string, 0, len(rec.Risks))
	for _, vr := range rec.Risks {
		peak := 0.0
		for _, v := range vr.Total {
			peak = max(peak, v)
		}
		parts = append(parts, fmt.Sprintf("%d/%s=%.3f", vr.VehicleID, vr.Behavior, peak))
	}
	logrus.Infof("tick %d [%s]: peak risk %s", rec.Tick, rec.EgoClass, strings.Join(parts, " "))
}

// runSummary is the JSON form of a trace summary written to stdout.
type runSummary struct {
	TotalTicks        int                `json:"total_ticks"`
	SkippedTicks      int                `json:"skipped_ticks"`
	AssessedVehicles  int                `json:"assessed_vehicles"`
	InferenceFailures int                `json:"inference_failures"`
	MaxRisk           float64            `json:"max_risk"`
	MaxRiskVehicle    int                `json:"max_risk_vehicle"`
	PeakRisk          map[string]float64 `json:"peak_risk"`
	PeakTick          map[string]int     `json:"peak_tick"`
	RoleDistribution  map[string]int     `json:"role_distribution"`
}

// printSummary writes the summary as indented JSON under a header.
func printSummary(w io.Writer, s *trace.TraceSummary) error {
	out := runSummary{
		TotalTicks:        s.TotalTicks,
		SkippedTicks:      s.SkippedTicks,
		AssessedVehicles:  s.AssessedVehicles,
		InferenceFailures: s.InferenceFailures,
		MaxRisk:           s.MaxRisk,
		MaxRiskVehicle:    s.MaxRiskVehicle,
		PeakRisk:          make(map[string]float64, len(s.PeakRisk)),
		PeakTick:          make(map[string]int, len(s.PeakTick)),
		RoleDistribution:  s.RoleDistribution,
	}
	ids := make([]int, 0, len(s.PeakRisk))
	for id := range s.PeakRisk {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		key := fmt.Sprintf("vehicle_%d", id)
		out.PeakRisk[key] = s.PeakRisk[id]
		out.PeakTick[key] = s.PeakTick[id]
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "=== Run Summary ===\n%s\n", data)
	return err
}

func init() {
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for trajectory sampling")
	runCmd.Flags().IntVar(&workers, "workers", 2, "Number of inference workers")
	runCmd.Flags().IntVar(&interactionHops, "hops", 1, "Front vehicles considered as interaction partners (0 = all)")
	runCmd.Flags().IntVar(&skipCycles, "skip-cycles", 4, "Assess every Nth tick")
	runCmd.Flags().IntVar(&maxTicks, "ticks", 0, "Stop after this many ticks (0 = whole scenario)")
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to the scenario YAML")
	runCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database to record the run into")
	runCmd.Flags().StringVar(&plotDir, "plot-dir", "", "Directory for per-tick risk curve PNGs")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "risks", "Trace verbosity (none, risks, full)")
	_ = runCmd.MarkFlagRequired("scenario")

	rootCmd.AddCommand(runCmd)
}
