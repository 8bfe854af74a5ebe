package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/carbonfit/carbonfit/fit"
	"github.com/carbonfit/carbonfit/fit/dataset"
)

var (
	// Data and box-model selection
	dataPath   string  // Observation series file (time, value, uncertainty columns)
	modelName  string  // Box-model preset name from the models file
	modelsFile string  // Path to the models YAML file
	target     float64 // Equilibrium observable baseline for steady-state calibration

	// Grid construction
	resolution int     // Burn-in grid point count
	fineStep   float64 // Fine diagnostic grid step
	oversample int     // Internal samples per annual interval
	numOffset  int     // Leading observations averaged into the baseline offset

	// Production-function selection
	production       string  // Burst model name ("miyake")
	fitSolar         bool    // Free solar period/amplitude parameters
	useControlPoints bool    // Fit a control-point production history
	interp           string  // Control-point interpolation: "linear" or "gp"
	denseYears       float64 // Dense-bracket spacing for adaptive control points
	gapYears         float64 // Sparse spacing threshold for adaptive control points

	// Optimization
	avgLoss     bool    // Per-point normalized objective
	kNorm       float64 // Normalization constant for the averaged objective
	lowBound    float64 // Lower bound on every parameter
	initialCSV  string  // Comma-separated initial guess for burst-parameter fits
)

// buildFitter wires the data, grids, box model and production function
// from the shared CLI flags.
func buildFitter() *fit.Fitter {
	series, err := dataset.Load(dataPath)
	if err != nil {
		logrus.Fatalf("Failed to load observations: %v", err)
	}
	grids, err := fit.BuildTimeGrids(series, fit.GridConfig{
		Resolution: resolution,
		FineStep:   fineStep,
		Oversample: oversample,
		NumOffset:  numOffset,
	})
	if err != nil {
		logrus.Fatalf("Failed to build time grids: %v", err)
	}
	model := buildModel(modelName, modelsFile)
	fitter, err := fit.NewFitter(model, series, grids, fit.ProductionConfig{
		Production:       production,
		FitSolar:         fitSolar,
		UseControlPoints: useControlPoints,
		Interp:           interp,
		DenseYears:       denseYears,
		GapYears:         gapYears,
	}, target)
	if err != nil {
		logrus.Fatalf("Failed to configure fitter: %v", err)
	}
	logrus.Infof("Fitter ready: %d observations, production=%s, steady-state production=%.4g",
		series.Len(), fitter.Production().Kind(), fitter.SteadyStateProduction())
	return fitter
}

func parseInitial(csv string) []float64 {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			logrus.Fatalf("Invalid --initial entry %q: %v", p, err)
		}
		out[i] = v
	}
	return out
}

// fitCmd point-estimates production parameters with the bounded optimizer.
var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Point-estimate production parameters with a bounded optimizer",
	Run: func(cmd *cobra.Command, args []string) {
		fitter := buildFitter()
		opts := fit.FitOptions{LowBound: lowBound, Avg: avgLoss, K: kNorm}

		startTime := time.Now()
		if useControlPoints {
			result, err := fitter.FitControlPoints(opts)
			if err != nil {
				logrus.Fatalf("Control-point fit failed: %v", err)
			}
			reportFit(result.X, result.F, result.Iterations, result.FuncEvals, result.Converged, result.Status, startTime)
		} else {
			initial := parseInitial(initialCSV)
			if initial == nil {
				logrus.Fatalf("Burst-parameter fits require --initial (e.g. start,duration,phase,area)")
			}
			result, err := fitter.FitParams(initial, opts)
			if err != nil {
				logrus.Fatalf("Fit failed: %v", err)
			}
			reportFit(result.X, result.F, result.Iterations, result.FuncEvals, result.Converged, result.Status, startTime)
		}
	},
}

func reportFit(x []float64, f float64, iters, evals int, converged bool, status string, startTime time.Time) {
	if !converged {
		logrus.Warnf("Optimizer did not converge: %s", status)
	}
	logrus.Infof("Fit finished in %v: %d iterations, %d evaluations (%s)",
		time.Since(startTime).Round(time.Millisecond), iters, evals, status)
	fmt.Printf("loss: %.6g\n", f)
	for i, v := range x {
		fmt.Printf("p[%d] = %.6g\n", i, v)
	}
}

func init() {
	addCommonFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&dataPath, "data", "", "Observation series file (required)")
		cmd.Flags().StringVar(&modelName, "model", "", "Box-model preset (empty = built-in default)")
		cmd.Flags().StringVar(&modelsFile, "models-file", "models.yaml", "Box-model presets file")
		cmd.Flags().Float64Var(&target, "target", 707, "Equilibrium observable baseline")
		cmd.Flags().IntVar(&resolution, "resolution", 1000, "Burn-in grid point count")
		cmd.Flags().Float64Var(&fineStep, "fine-step", 0.05, "Fine diagnostic grid step")
		cmd.Flags().IntVar(&oversample, "oversample", 1000, "Internal samples per annual interval")
		cmd.Flags().IntVar(&numOffset, "num-offset", 4, "Leading observations averaged into the baseline offset")
		cmd.Flags().StringVar(&production, "production", "", "Burst model (\"miyake\")")
		cmd.Flags().BoolVar(&fitSolar, "fit-solar", false, "Free solar period/amplitude parameters")
		cmd.Flags().BoolVar(&useControlPoints, "use-control-points", false, "Fit a control-point production history")
		cmd.Flags().StringVar(&interp, "interp", "linear", "Control-point interpolation: linear or gp")
		cmd.Flags().Float64Var(&denseYears, "dense-years", 3, "Dense-bracket spacing for adaptive control points")
		cmd.Flags().Float64Var(&gapYears, "gap-years", 5, "Sparse spacing threshold for adaptive control points")
		cmd.Flags().StringVar(&initialCSV, "initial", "", "Comma-separated initial parameter guess")
		_ = cmd.MarkFlagRequired("data")
	}

	addCommonFlags(fitCmd)
	fitCmd.Flags().BoolVar(&avgLoss, "avg", false, "Use the per-point normalized objective")
	fitCmd.Flags().Float64Var(&kNorm, "k", 1, "Normalization constant for --avg")
	fitCmd.Flags().Float64Var(&lowBound, "low-bound", 0, "Lower bound on every parameter")
	rootCmd.AddCommand(fitCmd)

	addCommonFlags(sampleCmd)
	sampleCmd.Flags().IntVar(&burnInSteps, "burn-in", 500, "Burn-in sweeps (discarded)")
	sampleCmd.Flags().IntVar(&productionSteps, "production-steps", 2000, "Production sweeps (retained)")
	sampleCmd.Flags().BoolVar(&logLikeOnly, "log-like", false, "Target the bare log-likelihood instead of the posterior")
	sampleCmd.Flags().Int64Var(&samplerSeed, "seed", 42, "Sampler RNG seed")
	rootCmd.AddCommand(sampleCmd)
}
