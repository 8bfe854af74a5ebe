package cmd

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/carbonfit/carbonfit/fit"
)

var (
	burnInSteps     int   // Burn-in sweeps, discarded
	productionSteps int   // Production sweeps, retained
	logLikeOnly     bool  // Target log-likelihood only
	samplerSeed     int64 // Sampler RNG seed
)

// sampleCmd draws posterior samples with the ensemble sampler.
var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Draw posterior samples with an ensemble MCMC sampler",
	Run: func(cmd *cobra.Command, args []string) {
		fitter := buildFitter()

		initial := parseInitial(initialCSV)
		if initial == nil {
			if n := fitter.Production().NumParams(); n > 0 {
				// Default to the steady-state production broadcast, the
				// same starting point the optimizer uses.
				initial = make([]float64, n)
				for i := range initial {
					initial[i] = fitter.SteadyStateProduction()
				}
			} else {
				logrus.Fatalf("This production variant requires --initial")
			}
		}

		startTime := time.Now()
		sampler, err := fitter.Sampling(initial, fit.SamplingConfig{
			BurnIn:      burnInSteps,
			Production:  productionSteps,
			LogLikeOnly: logLikeOnly,
			Seed:        samplerSeed,
		})
		if err != nil {
			logrus.Fatalf("Sampling failed: %v", err)
		}

		logrus.Infof("Sampling finished in %v: %d samples, acceptance fraction %.3f",
			time.Since(startTime).Round(time.Millisecond),
			len(sampler.FlatChain()), sampler.AcceptanceFraction())
		mean, std := sampler.Mean(), sampler.Std()
		for i := range mean {
			fmt.Printf("p[%d] = %.6g +/- %.6g\n", i, mean[i], std[i])
		}
	},
}
