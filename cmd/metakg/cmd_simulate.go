package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nvandessel/metakg/internal/config"
	"github.com/nvandessel/metakg/internal/logging"
	"github.com/nvandessel/metakg/internal/pathutil"
	"github.com/nvandessel/metakg/internal/simulate"
	"github.com/nvandessel/metakg/internal/solver"
	"github.com/nvandessel/metakg/internal/store"
	"github.com/spf13/cobra"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run FBA, ODE or what-if analyses",
		Long: `Simulate the metabolic network stored in the graph.

The reaction scope is --reaction when given, otherwise --pathway,
otherwise every reaction in the graph. Pathways and enzymes accept the
internal ID, "db:accession" shorthand, or a node name.

Examples:
  metakg simulate fba --pathway hsa00010
  metakg simulate ode --pathway hsa00010 --t-end 50 --conc cpd:kegg:C00031=5
  metakg simulate whatif --file scenarios.yaml`,
	}

	cmd.PersistentFlags().String("pathway", "", "Pathway ID or name to scope the run")
	cmd.PersistentFlags().StringSlice("reaction", nil, "Reaction IDs to scope the run (overrides --pathway)")
	cmd.PersistentFlags().Int("top-n", simulate.DefaultRenderOptions().TopN, "Rows per report table")
	cmd.PersistentFlags().Bool("plain", false, "Plain text report instead of Markdown")

	cmd.AddCommand(
		newSimulateFBACmd(),
		newSimulateODECmd(),
		newSimulateWhatIfCmd(),
	)

	return cmd
}

func newSimulateFBACmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fba",
		Short: "Flux balance analysis at steady state",
		RunE: func(cmd *cobra.Command, args []string) error {
			objective, _ := cmd.Flags().GetString("objective")
			minimize, _ := cmd.Flags().GetBool("minimize")
			closed, _ := cmd.Flags().GetBool("closed")

			return withSimulator(cmd, func(ctx context.Context, env *simEnv) error {
				cfg := env.baseConfig(cmd)
				cfg.ObjectiveReaction = objective
				cfg.Maximize = !minimize
				cfg.ClosedSystem = closed

				res := env.sim.RunFBA(ctx, cfg)
				if err := env.emit(cmd, res, func() string {
					return simulate.RenderFBA(ctx, res, env.store, env.render)
				}); err != nil {
					return err
				}
				return statusError(res.Status, res.Message)
			})
		},
	}

	cmd.Flags().String("objective", "", "Reaction to optimize (default: mean forward flux)")
	cmd.Flags().Bool("minimize", false, "Minimize instead of maximize the objective")
	cmd.Flags().Bool("closed", false, "Balance every compound, including pathway inputs and outputs")

	return cmd
}

func newSimulateODECmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ode",
		Short: "Integrate Michaelis-Menten kinetics over time",
		RunE: func(cmd *cobra.Command, args []string) error {
			tEnd, _ := cmd.Flags().GetFloat64("t-end")
			tPoints, _ := cmd.Flags().GetInt("t-points")
			method, _ := cmd.Flags().GetString("method")
			conc, _ := cmd.Flags().GetStringToString("conc")

			initial, err := parseFloatMap(conc)
			if err != nil {
				return fmt.Errorf("invalid --conc: %w", err)
			}

			return withSimulator(cmd, func(ctx context.Context, env *simEnv) error {
				cfg := env.baseConfig(cmd)
				cfg.TEnd = tEnd
				cfg.TPoints = tPoints
				cfg.Method = method
				if len(initial) > 0 {
					cfg.InitialConcentrations = make(map[string]float64, len(initial))
					for id, v := range initial {
						resolved, err := env.store.ResolveID(ctx, id)
						if err != nil {
							return fmt.Errorf("resolving %s: %w", id, err)
						}
						if resolved == "" {
							resolved = id
						}
						cfg.InitialConcentrations[resolved] = v
					}
				}

				res := env.sim.RunODE(ctx, cfg)
				if err := env.emit(cmd, res, func() string {
					return simulate.RenderODE(ctx, res, env.store, env.render)
				}); err != nil {
					return err
				}
				return statusError(res.Status, res.Message)
			})
		},
	}

	defaults := simulate.NewConfig()
	cmd.Flags().Float64("t-end", defaults.TEnd, "Integration end time (s)")
	cmd.Flags().Int("t-points", defaults.TPoints, "Number of output samples")
	cmd.Flags().String("method", "", fmt.Sprintf("Integrator: %s or %s (default from config)", solver.MethodRosenbrock23, solver.MethodRK45))
	cmd.Flags().StringToString("conc", nil, "Initial concentrations in mM, e.g. cpd:kegg:C00031=5")

	return cmd
}

func newSimulateWhatIfCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whatif",
		Short: "Compare perturbation scenarios against a baseline",
		Long: `Run every scenario in a YAML or JSON scenario file against its baseline
and report the changes. Scope flags override the file's baseline scope.

The file must live under the project root or ~/.metakg/scenarios.

Example file:
  mode: fba
  baseline:
    pathway_id: hsa00010
  scenarios:
    - name: hk-knockout
      enzyme_knockouts: [enz:kegg:hsa:3098]
    - name: pfk-half
      enzyme_factors: {enz:kegg:hsa:5211: 0.5}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				return fmt.Errorf("--file is required")
			}

			allowedDirs, err := pathutil.ScenarioDirs(root)
			if err != nil {
				return fmt.Errorf("failed to determine allowed scenario dirs: %w", err)
			}
			if err := pathutil.ValidatePath(file, allowedDirs); err != nil {
				return fmt.Errorf("scenario path rejected: %w", err)
			}
			sf, err := simulate.LoadScenarioFile(file)
			if err != nil {
				return err
			}

			return withSimulator(cmd, func(ctx context.Context, env *simEnv) error {
				cfg := sf.Baseline.Clone()
				if cmd.Flags().Changed("pathway") || cmd.Flags().Changed("reaction") {
					scoped := env.baseConfig(cmd)
					cfg.PathwayID = scoped.PathwayID
					cfg.ReactionIDs = scoped.ReactionIDs
				}

				results, err := env.sim.RunWhatIfBatch(ctx, cfg, sf.Scenarios, sf.Mode)
				if err != nil {
					return err
				}
				return env.emit(cmd, results, func() string {
					var sb strings.Builder
					for i, res := range results {
						if i > 0 {
							sb.WriteString("\n")
						}
						sb.WriteString(simulate.RenderWhatIf(ctx, res, env.store, env.render))
					}
					return sb.String()
				})
			})
		},
	}

	cmd.Flags().String("file", "", "Scenario file (.yaml, .yml or .json)")

	return cmd
}

// simEnv bundles what a simulate subcommand needs.
type simEnv struct {
	store  *store.SQLiteGraphStore
	sim    *simulate.Simulator
	render simulate.RenderOptions
}

// baseConfig returns the simulator's default config scoped by the
// --pathway and --reaction flags.
func (e *simEnv) baseConfig(cmd *cobra.Command) simulate.SimulationConfig {
	pathway, _ := cmd.Flags().GetString("pathway")
	reactions, _ := cmd.Flags().GetStringSlice("reaction")

	cfg := e.sim.NewConfig()
	cfg.PathwayID = pathway
	cfg.ReactionIDs = reactions
	return cfg
}

// emit writes v as JSON when --json is set, otherwise the rendered report.
func (e *simEnv) emit(cmd *cobra.Command, v interface{}, report func() string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(v)
	}
	_, err := io.WriteString(cmd.OutOrStdout(), report()+"\n")
	return err
}

// withSimulator opens the store, builds a simulator from the settings, and
// runs fn with them.
func withSimulator(cmd *cobra.Command, fn func(ctx context.Context, env *simEnv) error) error {
	root, _ := cmd.Flags().GetString("root")
	topN, _ := cmd.Flags().GetInt("top-n")
	plain, _ := cmd.Flags().GetBool("plain")

	gs, settings, err := openStore(root)
	if err != nil {
		return err
	}
	defer gs.Close()

	sim, closeSim, err := newSimulator(gs, settings, root, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeSim()

	env := &simEnv{
		store:  gs,
		sim:    sim,
		render: simulate.RenderOptions{TopN: topN, Markdown: !plain},
	}
	return fn(context.Background(), env)
}

// newSimulator builds a simulator from settings. The returned func closes
// the run log.
func newSimulator(src simulate.ReactionSource, settings *config.MetaKGConfig, root string, logOut io.Writer) (*simulate.Simulator, func(), error) {
	integrator, err := solver.New(settings.Simulation.ODE.Method)
	if err != nil {
		return nil, nil, err
	}
	runLog := logging.NewRunLogger(store.LocalMetaKGPath(root), settings.Logging.Level)
	sim := simulate.New(src, simulate.SimulatorConfig{
		Defaults:    settings.Simulation.Defaults,
		Integrator:  integrator,
		ODESettings: settings.Simulation.ODE.Settings(),
		Logger:      logging.NewLogger(settings.Logging.Level, logOut),
		RunLog:      runLog,
	})
	return sim, runLog.Close, nil
}

// statusError turns an "error" run status into a command failure so the
// exit code reflects it. Infeasible and failed solves are reported, not errors.
func statusError(status, message string) error {
	if status == simulate.StatusError {
		return fmt.Errorf("simulation error: %s", message)
	}
	return nil
}

// parseFloatMap converts flag values like {"a": "1.5"} to floats.
func parseFloatMap(in map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%s=%s: not a number", k, v)
		}
		out[k] = f
	}
	return out, nil
}
