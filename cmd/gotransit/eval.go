package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kristinelam/gotransit"
	"github.com/kristinelam/gotransit/internal/processing"
	"github.com/kristinelam/gotransit/internal/tablestore"
	"github.com/kristinelam/gotransit/pkg/config"
	"github.com/kristinelam/gotransit/pkg/models"
)

var (
	radiusRatios  config.ArrayFlags
	contamination config.ArrayFlags
	orbit         = models.OrbitParams{Period: 1, A: 5, Inc: math.Pi / 2}
	incDegrees    float64
	gridStart     float64
	gridEnd       float64
	gridPoints    int
	timesFile     string
	evalTableDB   string
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a light curve",
	Long: `Evaluate a light curve and print it as time,flux CSV.

Times come from an evenly spaced grid (--start, --end, --n) or from a file
with one observation per line. A file with flux and uncertainty columns
also reports the chi-square of the model against it.

Examples:
  gotransit eval --k 0.1 --period 3 --a 7 --ldc 0.3,0.2
  gotransit eval --model power-2 --k 0.1 --ldc 0.6,0.5 --times obs.txt
  gotransit eval --model interpolated-quadratic --k 0.1 --table-db tables.db`,
	RunE: runEval,
}

func init() {
	bindModelFlags(evalCmd.Flags())

	fs := evalCmd.Flags()
	fs.Var(&radiusRatios, "k", "radius ratio per passband (comma separated)")
	fs.Var(&contamination, "contamination", "contamination per passband (comma separated)")
	fs.Float64Var(&orbit.T0, "t0", orbit.T0, "zero epoch")
	fs.Float64Var(&orbit.Period, "period", orbit.Period, "orbital period")
	fs.Float64Var(&orbit.A, "a", orbit.A, "scaled semi-major axis")
	fs.Float64Var(&orbit.Inc, "inc", orbit.Inc, "inclination in radians")
	fs.Float64Var(&incDegrees, "inc-deg", 0, "inclination in degrees, overrides --inc")
	fs.Float64Var(&orbit.Ecc, "ecc", orbit.Ecc, "eccentricity")
	fs.Float64Var(&orbit.W, "w", orbit.W, "argument of periastron in radians")
	fs.Float64Var(&gridStart, "start", -0.1, "first time of the grid")
	fs.Float64Var(&gridEnd, "end", 0.1, "last time of the grid")
	fs.IntVar(&gridPoints, "n", 201, "number of grid points")
	fs.StringVarP(&timesFile, "times", "f", "", "observation file (time [flux [sigma]] per line)")
	fs.StringVar(&evalTableDB, "table-db", "", "interpolation table database")
	_ = evalCmd.MarkFlagRequired("k")
}

// bindModelFlags registers the flags that select and tune the model.
func bindModelFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&cfg.Model, "model", "m", cfg.Model, "model: "+fmt.Sprint(gotransit.ModelNames))
	fs.Var(&cfg.LDC, "ldc", "limb darkening coefficients (comma separated, passband major)")
	fs.BoolVar(&cfg.Interpolate, "interpolate", cfg.Interpolate, "evaluate the quadratic model through an interpolation table")
	fs.IntVar(&cfg.Supersampling, "supersampling", cfg.Supersampling, "samples per exposure")
	fs.Float64Var(&cfg.ExposureTime, "exptime", cfg.ExposureTime, "exposure time")
	fs.BoolVar(&cfg.Eclipse, "eclipse", cfg.Eclipse, "model secondary eclipses")
	fs.IntVar(&cfg.Workers, "eval-workers", cfg.Workers, "evaluation parallelism (0 uses all CPUs)")
}

func runEval(cmd *cobra.Command, args []string) error {
	req := models.LightCurveRequest{
		Model:         cfg.Model,
		K:             radiusRatios,
		Orbit:         orbit,
		LDC:           cfg.LDC,
		Contamination: contamination,
	}
	if cmd.Flags().Changed("inc-deg") {
		req.Orbit.Inc = incDegrees * math.Pi / 180
	}

	if timesFile != "" {
		obs, err := readObservations(timesFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", timesFile, err)
		}
		req.Time, req.Observed, req.Sigma = obs.Time, obs.Flux, obs.Sigma
	} else {
		t, err := timeGrid(gridStart, gridEnd, gridPoints)
		if err != nil {
			return err
		}
		req.Time = t
	}

	var tables gotransit.TableStore
	if evalTableDB != "" {
		store, err := tablestore.Open(evalTableDB)
		if err != nil {
			return err
		}
		defer store.Close()
		tables = store
	}

	ev, err := processing.NewLightCurveProcessor(cfg, tables, logger).Process(req)
	if err != nil {
		return err
	}

	w := csv.NewWriter(cmd.OutOrStdout())
	if err := w.Write([]string{"time", "flux"}); err != nil {
		return err
	}
	for i, f := range ev.Flux {
		row := []string{
			strconv.FormatFloat(req.Time[i], 'g', -1, 64),
			strconv.FormatFloat(f, 'g', 10, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	if ev.HasChiSquare {
		logger.Info("chi-square", "value", ev.ChiSquare, "points", len(ev.Flux))
	}
	if ev.NonConverged > 0 {
		logger.Warn("kepler solver did not converge", "count", ev.NonConverged)
	}
	if !cfg.Quiet {
		logger.Info("light curve evaluated", "points", len(ev.Flux), "model", ev.Model)
	}
	return nil
}
