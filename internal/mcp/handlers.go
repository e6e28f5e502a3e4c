package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/metakg/internal/models"
	"github.com/nvandessel/metakg/internal/ratelimit"
	"github.com/nvandessel/metakg/internal/sanitize"
	"github.com/nvandessel/metakg/internal/simulate"
	"github.com/nvandessel/metakg/internal/store"
)

// Tool names.
const (
	toolGetReaction    = "metakg_get_reaction"
	toolGetCompound    = "metakg_get_compound"
	toolSimulateFBA    = "metakg_simulate_fba"
	toolSimulateODE    = "metakg_simulate_ode"
	toolSimulateWhatIf = "metakg_simulate_whatif"
	toolStats          = "metakg_stats"
)

// Resource URIs.
const (
	statsResourceURI       = "metakg://stats"
	reactionResourcePrefix = "metakg://reactions/"
)

// maxWhatIfScenarios bounds one metakg_simulate_whatif call.
const maxWhatIfScenarios = 10

// maxODEPoints bounds the samples a tool caller may request.
const maxODEPoints = 5000

// registerTools registers all metakg MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        toolGetReaction,
		Description: "Look up a reaction with its substrates, products, catalyzing enzymes and kinetic parameters",
	}, s.handleGetReaction)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        toolGetCompound,
		Description: "Look up a compound and the reactions that consume, produce or regulate it",
	}, s.handleGetCompound)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        toolSimulateFBA,
		Description: "Run flux balance analysis over a pathway or reaction set and return steady-state fluxes and shadow prices",
	}, s.handleSimulateFBA)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        toolSimulateODE,
		Description: "Integrate Michaelis-Menten kinetics over a pathway or reaction set and return concentration time courses",
	}, s.handleSimulateODE)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        toolSimulateWhatIf,
		Description: "Compare enzyme knockouts, activity changes or concentration changes against an unperturbed baseline",
	}, s.handleSimulateWhatIf)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        toolStats,
		Description: "Summarize the knowledge graph: node counts by kind, edge counts by relation, kinetic rows",
	}, s.handleStats)
}

// registerResources registers the graph summary and per-reaction resources.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         statsResourceURI,
		Name:        "metakg-stats",
		Description: "Size of the metabolic knowledge graph by node kind and relation.",
		MIMEType:    "text/markdown",
	}, s.handleStatsResource)

	s.server.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: reactionResourcePrefix + "{id}",
		Name:        "metakg-reaction",
		Description: "Equation, enzymes and kinetic parameters of one reaction.",
		MIMEType:    "text/markdown",
	}, s.handleReactionResource)
}

// names returns a NodeLookup whose node names are safe to embed in Markdown.
func (s *Server) names() simulate.NodeLookup {
	return sanitizedLookup{gs: s.store}
}

// sanitizedLookup strips markup from imported node names before rendering.
type sanitizedLookup struct {
	gs store.GraphStore
}

func (l sanitizedLookup) GetNode(ctx context.Context, id string) (*models.Node, error) {
	n, err := l.gs.GetNode(ctx, id)
	if err != nil || n == nil {
		return n, err
	}
	out := *n
	out.Name = sanitize.Label(n.Name)
	return &out, nil
}

// sanitizeReactionView rewrites every display name in v in place.
func sanitizeReactionView(v *store.ReactionView) {
	v.Node.Name = sanitize.Label(v.Node.Name)
	v.Node.Description = sanitize.Label(v.Node.Description)
	for i := range v.Substrates {
		v.Substrates[i].Name = sanitize.Label(v.Substrates[i].Name)
	}
	for i := range v.Products {
		v.Products[i].Name = sanitize.Label(v.Products[i].Name)
	}
	for i := range v.Enzymes {
		v.Enzymes[i].Name = sanitize.Label(v.Enzymes[i].Name)
	}
	for i := range v.Regulators {
		v.Regulators[i].Name = sanitize.Label(v.Regulators[i].Name)
	}
}

// resolveNode resolves a user-supplied id and returns the node, or nil when
// nothing matches.
func (s *Server) resolveNode(ctx context.Context, raw string) (*models.Node, error) {
	id := sanitize.Identifier(raw)
	if id == "" {
		return nil, fmt.Errorf("'id' parameter is required")
	}
	resolved, err := s.store.ResolveID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", id, err)
	}
	if resolved == "" {
		return nil, nil
	}
	return s.store.GetNode(ctx, resolved)
}

// handleGetReaction implements the metakg_get_reaction tool.
func (s *Server) handleGetReaction(ctx context.Context, req *sdk.CallToolRequest, args GetReactionInput) (_ *sdk.CallToolResult, _ GetReactionOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(toolGetReaction, start, retErr, sanitizeToolParams(map[string]any{"id": args.ID}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, toolGetReaction); err != nil {
		return nil, GetReactionOutput{}, err
	}

	node, err := s.resolveNode(ctx, args.ID)
	if err != nil {
		return nil, GetReactionOutput{}, err
	}
	if node == nil {
		return nil, GetReactionOutput{Message: fmt.Sprintf("No node matches %q", sanitize.Identifier(args.ID))}, nil
	}
	if node.Kind != models.KindReaction {
		return nil, GetReactionOutput{Message: fmt.Sprintf("%s is a %s, not a reaction", node.ID, node.Kind)}, nil
	}

	view, err := store.ReactionDetail(ctx, s.store, node.ID)
	if err != nil {
		return nil, GetReactionOutput{}, fmt.Errorf("failed to load reaction: %w", err)
	}
	if view == nil {
		return nil, GetReactionOutput{Message: fmt.Sprintf("Reaction %s not found", node.ID)}, nil
	}
	sanitizeReactionView(view)

	return nil, GetReactionOutput{
		Found:    true,
		Reaction: view,
		Message: fmt.Sprintf("%s: %d substrates, %d products, %d enzymes, %d kinetic rows",
			view.Node.ID, len(view.Substrates), len(view.Products), len(view.Enzymes), len(view.KineticParams)),
	}, nil
}

// compoundRole maps a compound's edge to its role in the linked reaction.
func compoundRole(e models.Edge, compoundID string) (reactionID, role string, ok bool) {
	switch {
	case e.Relation == models.RelSubstrateOf && e.Source == compoundID:
		return e.Target, "substrate", true
	case e.Relation == models.RelProductOf && e.Target == compoundID:
		return e.Source, "product", true
	case e.Relation == models.RelInhibits && e.Source == compoundID:
		return e.Target, "inhibitor", true
	case e.Relation == models.RelActivates && e.Source == compoundID:
		return e.Target, "activator", true
	default:
		return "", "", false
	}
}

// handleGetCompound implements the metakg_get_compound tool.
func (s *Server) handleGetCompound(ctx context.Context, req *sdk.CallToolRequest, args GetCompoundInput) (_ *sdk.CallToolResult, _ GetCompoundOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(toolGetCompound, start, retErr, sanitizeToolParams(map[string]any{"id": args.ID}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, toolGetCompound); err != nil {
		return nil, GetCompoundOutput{}, err
	}

	node, err := s.resolveNode(ctx, args.ID)
	if err != nil {
		return nil, GetCompoundOutput{}, err
	}
	if node == nil {
		return nil, GetCompoundOutput{Message: fmt.Sprintf("No node matches %q", sanitize.Identifier(args.ID))}, nil
	}
	if node.Kind != models.KindCompound {
		return nil, GetCompoundOutput{Message: fmt.Sprintf("%s is a %s, not a compound", node.ID, node.Kind)}, nil
	}

	edges, err := s.store.EdgesOf(ctx, node.ID)
	if err != nil {
		return nil, GetCompoundOutput{}, fmt.Errorf("failed to load edges: %w", err)
	}

	names := s.names()
	var reactions []CompoundReaction
	for _, e := range edges {
		rxnID, role, ok := compoundRole(e, node.ID)
		if !ok {
			continue
		}
		cr := CompoundReaction{ID: rxnID, Name: rxnID, Role: role}
		if role == "substrate" || role == "product" {
			cr.Stoich = e.Coefficient()
		}
		if n, err := names.GetNode(ctx, rxnID); err == nil && n != nil {
			cr.Name = n.Name
		}
		reactions = append(reactions, cr)
	}
	sort.Slice(reactions, func(i, j int) bool {
		if reactions[i].Role != reactions[j].Role {
			return reactions[i].Role < reactions[j].Role
		}
		return reactions[i].ID < reactions[j].ID
	})

	compound := *node
	compound.Name = sanitize.Label(node.Name)
	compound.Description = sanitize.Label(node.Description)

	return nil, GetCompoundOutput{
		Found:     true,
		Compound:  &compound,
		Reactions: reactions,
		Message:   fmt.Sprintf("%s participates in %d reactions", compound.ID, len(reactions)),
	}, nil
}

// applyScope copies a sanitized scope selection into cfg.
func applyScope(cfg *simulate.SimulationConfig, scope ScopeInput) {
	cfg.PathwayID = sanitize.Identifier(scope.PathwayID)
	for _, id := range scope.ReactionIDs {
		if id = sanitize.Identifier(id); id != "" {
			cfg.ReactionIDs = append(cfg.ReactionIDs, id)
		}
	}
}

// sanitizeKeys returns a copy of m with sanitized, non-empty keys.
func sanitizeKeys[V any](m map[string]V) map[string]V {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		if k = sanitize.Identifier(k); k != "" {
			out[k] = v
		}
	}
	return out
}

func renderOptions(topN int) simulate.RenderOptions {
	opts := simulate.DefaultRenderOptions()
	if topN > 0 {
		opts.TopN = topN
	}
	return opts
}

// handleSimulateFBA implements the metakg_simulate_fba tool.
func (s *Server) handleSimulateFBA(ctx context.Context, req *sdk.CallToolRequest, args SimulateFBAInput) (_ *sdk.CallToolResult, _ SimulateFBAOutput, retErr error) {
	start := time.Now()
	var runID string
	defer func() {
		s.auditTool(toolSimulateFBA, start, retErr, sanitizeToolParams(map[string]any{
			"pathway_id": args.PathwayID, "reaction_ids": args.ReactionIDs,
			"objective_reaction": args.ObjectiveReaction, "minimize": args.Minimize,
			"flux_bounds": args.FluxBounds, "closed_system": args.ClosedSystem,
		}), runID)
	}()

	if limit := s.sim.MaxFBAReactions(); limit > 0 && len(args.ReactionIDs) > limit {
		return nil, SimulateFBAOutput{}, fmt.Errorf("at most %d reaction_ids per FBA call, got %d", limit, len(args.ReactionIDs))
	}
	if err := ratelimit.CheckLimit(s.toolLimiters, toolSimulateFBA); err != nil {
		return nil, SimulateFBAOutput{}, err
	}

	cfg := s.sim.NewConfig()
	applyScope(&cfg, args.ScopeInput)
	cfg.ObjectiveReaction = sanitize.Identifier(args.ObjectiveReaction)
	cfg.Maximize = !args.Minimize
	cfg.FluxBounds = sanitizeKeys(args.FluxBounds)
	cfg.ClosedSystem = args.ClosedSystem

	res := s.sim.RunFBA(ctx, cfg)
	runID = res.RunID

	return nil, SimulateFBAOutput{
		Result: res,
		Report: simulate.RenderFBA(ctx, res, s.names(), renderOptions(args.TopN)),
	}, nil
}

// handleSimulateODE implements the metakg_simulate_ode tool.
func (s *Server) handleSimulateODE(ctx context.Context, req *sdk.CallToolRequest, args SimulateODEInput) (_ *sdk.CallToolResult, _ SimulateODEOutput, retErr error) {
	start := time.Now()
	var runID string
	defer func() {
		s.auditTool(toolSimulateODE, start, retErr, sanitizeToolParams(map[string]any{
			"pathway_id": args.PathwayID, "reaction_ids": args.ReactionIDs,
			"t_end": args.TEnd, "t_points": args.TPoints, "method": args.Method,
			"initial_concentrations": args.InitialConcentrations,
			"include_trajectories":   args.IncludeTrajectories,
		}), runID)
	}()

	if args.TPoints > maxODEPoints {
		return nil, SimulateODEOutput{}, fmt.Errorf("'t_points' must be at most %d, got %d", maxODEPoints, args.TPoints)
	}
	if err := ratelimit.CheckLimit(s.toolLimiters, toolSimulateODE); err != nil {
		return nil, SimulateODEOutput{}, err
	}

	cfg := s.sim.NewConfig()
	applyScope(&cfg, args.ScopeInput)
	if args.TEnd != 0 {
		cfg.TEnd = args.TEnd
	}
	if args.TPoints != 0 {
		cfg.TPoints = args.TPoints
	}
	if args.DefaultConcentration != nil {
		conc := *args.DefaultConcentration
		cfg.DefaultConcentration = &conc
	}
	cfg.InitialConcentrations = sanitizeKeys(args.InitialConcentrations)
	cfg.Method = strings.ToLower(strings.TrimSpace(args.Method))

	res := s.sim.RunODE(ctx, cfg)
	runID = res.RunID

	out := SimulateODEOutput{
		RunID:               res.RunID,
		Status:              res.Status,
		Message:             res.Message,
		Steps:               res.Steps,
		FinalConcentrations: res.FinalConcentrations(),
		Report:              simulate.RenderODE(ctx, res, s.names(), renderOptions(args.TopN)),
	}
	if args.IncludeTrajectories {
		out.T = res.T
		out.Concentrations = res.Concentrations
	}
	return nil, out, nil
}

// sanitizeScenario cleans a caller-supplied scenario's name and identifiers.
func sanitizeScenario(sc simulate.WhatIfScenario) simulate.WhatIfScenario {
	out := simulate.WhatIfScenario{
		Name:                 sanitize.ScenarioName(sc.Name),
		EnzymeFactors:        sanitizeKeys(sc.EnzymeFactors),
		InitialConcOverrides: sanitizeKeys(sc.InitialConcOverrides),
	}
	for _, id := range sc.EnzymeKnockouts {
		if id = sanitize.Identifier(id); id != "" {
			out.EnzymeKnockouts = append(out.EnzymeKnockouts, id)
		}
	}
	return out
}

// summarizeWhatIf flattens a comparison into its tool output row.
func summarizeWhatIf(r *simulate.WhatIfResult) WhatIfSummary {
	sum := WhatIfSummary{
		ScenarioName:    r.ScenarioName,
		BaselineStatus:  r.Baseline.Status(),
		PerturbedStatus: r.Perturbed.Status(),
		DeltaFluxes:     r.DeltaFluxes,
		DeltaFinalConc:  r.DeltaFinalConc,
	}
	if r.Baseline.FBA != nil {
		sum.BaselineObjective = r.Baseline.FBA.ObjectiveValue
	}
	if r.Perturbed.FBA != nil {
		sum.PerturbedObjective = r.Perturbed.FBA.ObjectiveValue
	}
	return sum
}

// runIDsOf returns the baseline and perturbed run ids of r.
func runIDsOf(r *simulate.WhatIfResult) []string {
	var ids []string
	for _, rr := range []simulate.RunResult{r.Baseline, r.Perturbed} {
		switch {
		case rr.FBA != nil:
			ids = append(ids, rr.FBA.RunID)
		case rr.ODE != nil:
			ids = append(ids, rr.ODE.RunID)
		}
	}
	return ids
}

// handleSimulateWhatIf implements the metakg_simulate_whatif tool.
func (s *Server) handleSimulateWhatIf(ctx context.Context, req *sdk.CallToolRequest, args SimulateWhatIfInput) (_ *sdk.CallToolResult, _ SimulateWhatIfOutput, retErr error) {
	start := time.Now()
	var runIDs []string
	defer func() {
		s.auditTool(toolSimulateWhatIf, start, retErr, sanitizeToolParams(map[string]any{
			"pathway_id": args.PathwayID, "reaction_ids": args.ReactionIDs,
			"mode": args.Mode, "scenarios": args.Scenarios,
		}), runIDs...)
	}()

	modeName := args.Mode
	if strings.TrimSpace(modeName) == "" {
		modeName = string(simulate.ModeFBA)
	}
	mode, err := simulate.ParseMode(modeName)
	if err != nil {
		return nil, SimulateWhatIfOutput{}, err
	}
	if len(args.Scenarios) == 0 {
		return nil, SimulateWhatIfOutput{}, fmt.Errorf("'scenarios' parameter is required")
	}
	if len(args.Scenarios) > maxWhatIfScenarios {
		return nil, SimulateWhatIfOutput{}, fmt.Errorf("at most %d scenarios per call, got %d", maxWhatIfScenarios, len(args.Scenarios))
	}
	if args.TPoints > maxODEPoints {
		return nil, SimulateWhatIfOutput{}, fmt.Errorf("'t_points' must be at most %d, got %d", maxODEPoints, args.TPoints)
	}

	scenarios := make([]simulate.WhatIfScenario, len(args.Scenarios))
	for i, sc := range args.Scenarios {
		scenarios[i] = sanitizeScenario(sc)
		if err := scenarios[i].Validate(); err != nil {
			return nil, SimulateWhatIfOutput{}, err
		}
	}

	// Malformed calls are rejected above without spending a token.
	if err := ratelimit.CheckLimit(s.toolLimiters, toolSimulateWhatIf); err != nil {
		return nil, SimulateWhatIfOutput{}, err
	}

	cfg := s.sim.NewConfig()
	applyScope(&cfg, args.ScopeInput)
	if args.TEnd != 0 {
		cfg.TEnd = args.TEnd
	}
	if args.TPoints != 0 {
		cfg.TPoints = args.TPoints
	}

	results, err := s.sim.RunWhatIfBatch(ctx, cfg, scenarios, mode)
	if err != nil {
		return nil, SimulateWhatIfOutput{}, err
	}

	out := SimulateWhatIfOutput{Mode: string(mode)}
	seen := make(map[string]bool)
	reports := make([]string, 0, len(results))
	opts := renderOptions(args.TopN)
	for _, r := range results {
		out.Results = append(out.Results, summarizeWhatIf(r))
		reports = append(reports, simulate.RenderWhatIf(ctx, r, s.names(), opts))
		for _, id := range runIDsOf(r) {
			if !seen[id] {
				seen[id] = true
				runIDs = append(runIDs, id)
			}
		}
	}
	out.Report = strings.Join(reports, "\n\n")
	return nil, out, nil
}

// handleStats implements the metakg_stats tool.
func (s *Server) handleStats(ctx context.Context, req *sdk.CallToolRequest, args StatsInput) (_ *sdk.CallToolResult, _ StatsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(toolStats, start, retErr, sanitizeToolParams(map[string]any{"validate": args.Validate}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, toolStats); err != nil {
		return nil, StatsOutput{}, err
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, StatsOutput{}, fmt.Errorf("failed to read stats: %w", err)
	}
	out := StatsOutput{Stats: stats}
	if args.Validate {
		issues, err := store.ValidateGraph(ctx, s.store)
		if err != nil {
			return nil, StatsOutput{}, fmt.Errorf("validation failed: %w", err)
		}
		out.Issues = issues
	}
	return nil, out, nil
}

// handleStatsResource renders graph statistics as Markdown.
func (s *Server) handleStatsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# Metabolic Knowledge Graph\n\n")
	sb.WriteString(fmt.Sprintf("- Nodes: %d\n", stats.Nodes))
	for _, kind := range models.AllKinds {
		if n := stats.NodesByKind[kind]; n > 0 {
			sb.WriteString(fmt.Sprintf("  - %s: %d\n", kind, n))
		}
	}
	sb.WriteString(fmt.Sprintf("- Edges: %d\n", stats.Edges))
	rels := make([]string, 0, len(stats.EdgesByRelation))
	for rel := range stats.EdgesByRelation {
		rels = append(rels, string(rel))
	}
	sort.Strings(rels)
	for _, rel := range rels {
		sb.WriteString(fmt.Sprintf("  - %s: %d\n", rel, stats.EdgesByRelation[models.Relation(rel)]))
	}
	sb.WriteString(fmt.Sprintf("- Kinetic parameter rows: %d\n", stats.KineticParams))
	sb.WriteString(fmt.Sprintf("- Regulatory interactions: %d\n", stats.RegulatoryInteractions))

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{{
			URI:      statsResourceURI,
			MIMEType: "text/markdown",
			Text:     sb.String(),
		}},
	}, nil
}

// handleReactionResource renders one reaction as Markdown.
// URI format: metakg://reactions/{id}
func (s *Server) handleReactionResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	if !strings.HasPrefix(uri, reactionResourcePrefix) {
		return nil, fmt.Errorf("invalid URI format: %s", uri)
	}
	id := sanitize.Identifier(strings.TrimPrefix(uri, reactionResourcePrefix))
	if id == "" {
		return nil, fmt.Errorf("reaction ID is required")
	}

	resolved, err := s.store.ResolveID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", id, err)
	}
	view, err := store.ReactionDetail(ctx, s.store, resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to load reaction: %w", err)
	}
	if view == nil {
		return nil, sdk.ResourceNotFoundError(uri)
	}
	sanitizeReactionView(view)

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     formatReaction(view),
		}},
	}, nil
}

// formatReaction renders a reaction view as a Markdown document.
func formatReaction(v *store.ReactionView) string {
	side := func(ps []store.ParticipantDetail) string {
		terms := make([]string, 0, len(ps))
		for _, p := range ps {
			if p.Stoich != 1 {
				terms = append(terms, fmt.Sprintf("%g %s", p.Stoich, p.Name))
			} else {
				terms = append(terms, p.Name)
			}
		}
		return strings.Join(terms, " + ")
	}
	arrow := "→"
	if v.Reversible {
		arrow = "⇌"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Reaction: %s\n\n", v.Node.Name))
	sb.WriteString(fmt.Sprintf("**ID:** %s\n", v.Node.ID))
	sb.WriteString(fmt.Sprintf("**Equation:** %s %s %s\n", side(v.Substrates), arrow, side(v.Products)))

	if len(v.Enzymes) > 0 {
		sb.WriteString("\n## Enzymes\n\n")
		for _, e := range v.Enzymes {
			if e.ECNumber != "" {
				sb.WriteString(fmt.Sprintf("- %s (EC %s)\n", e.Name, e.ECNumber))
			} else {
				sb.WriteString(fmt.Sprintf("- %s\n", e.Name))
			}
		}
	}

	if len(v.Regulators) > 0 {
		sb.WriteString("\n## Regulators\n\n")
		for _, r := range v.Regulators {
			sb.WriteString(fmt.Sprintf("- %s (%s)\n", r.Name, strings.ToLower(string(r.Relation))))
		}
	}

	if len(v.KineticParams) > 0 {
		sb.WriteString("\n## Kinetic Parameters\n\n")
		sb.WriteString("| Enzyme | Km (mM) | Vmax (mM/s) | kcat (1/s) | Keq | Source |\n")
		sb.WriteString("|---|---|---|---|---|---|\n")
		for _, kp := range v.KineticParams {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s |\n",
				orDash(kp.EnzymeID), fmtOpt(kp.Km), fmtOpt(kp.Vmax), fmtOpt(kp.Kcat),
				fmtOpt(kp.EquilibriumConstant), orDash(kp.SourceDatabase)))
		}
	}
	return sb.String()
}

func fmtOpt(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
