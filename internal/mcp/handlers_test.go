package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/metakg/internal/config"
	"github.com/nvandessel/metakg/internal/models"
	"github.com/nvandessel/metakg/internal/simulate"
	"github.com/nvandessel/metakg/internal/store"
)

const (
	glucose  = "cpd:kegg:C00031"
	atp      = "cpd:kegg:C00002"
	g6p      = "cpd:kegg:C00092"
	adp      = "cpd:kegg:C00008"
	pyruvate = "cpd:kegg:C00022"

	rxnHK  = "rxn:kegg:R00299"
	rxnG6P = "rxn:test:R2"
	enzHK  = "enz:ec:2.7.1.1"

	pathwayGlyco = "pwy:test:glyco"
)

// glycolysisGraph is glucose + ATP -> G6P + ADP (hexokinase) followed by
// G6P -> pyruvate, both irreversible, under one pathway.
func glycolysisGraph() ([]models.Node, []models.Edge) {
	irr := &models.Stoichiometry{Direction: models.DirectionIrreversible}
	nodes := []models.Node{
		{ID: pathwayGlyco, Kind: models.KindPathway, Name: "Test glycolysis"},
		{ID: glucose, Kind: models.KindCompound, Name: "D-Glucose", Xrefs: map[string]string{"kegg": "C00031"}},
		{ID: atp, Kind: models.KindCompound, Name: "ATP"},
		{ID: g6p, Kind: models.KindCompound, Name: "D-Glucose 6-phosphate"},
		{ID: adp, Kind: models.KindCompound, Name: "ADP"},
		{ID: pyruvate, Kind: models.KindCompound, Name: "Pyruvate"},
		{ID: rxnHK, Kind: models.KindReaction, Name: "hexokinase reaction", Stoichiometry: irr},
		{ID: rxnG6P, Kind: models.KindReaction, Name: "G6P to pyruvate", Stoichiometry: irr},
		{ID: enzHK, Kind: models.KindEnzyme, Name: "Hexokinase", ECNumber: "2.7.1.1"},
	}
	edges := []models.Edge{
		{Source: pathwayGlyco, Target: rxnHK, Relation: models.RelContains},
		{Source: pathwayGlyco, Target: rxnG6P, Relation: models.RelContains},
		{Source: glucose, Target: rxnHK, Relation: models.RelSubstrateOf, Stoich: 1},
		{Source: atp, Target: rxnHK, Relation: models.RelSubstrateOf, Stoich: 1},
		{Source: rxnHK, Target: g6p, Relation: models.RelProductOf, Stoich: 1},
		{Source: rxnHK, Target: adp, Relation: models.RelProductOf, Stoich: 1},
		{Source: g6p, Target: rxnG6P, Relation: models.RelSubstrateOf, Stoich: 1},
		{Source: rxnG6P, Target: pyruvate, Relation: models.RelProductOf, Stoich: 1},
		{Source: enzHK, Target: rxnHK, Relation: models.RelCatalyzes},
		{Source: g6p, Target: rxnHK, Relation: models.RelInhibits},
	}
	return nodes, edges
}

func setupTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	gs := store.NewInMemoryGraphStore()
	nodes, edges := glycolysisGraph()
	ctx := context.Background()
	if err := gs.WriteGraph(ctx, nodes, edges); err != nil {
		t.Fatalf("WriteGraph() error = %v", err)
	}
	if _, err := gs.UpsertKineticParams(ctx, []models.KineticParam{{
		ID:             "kp:test",
		EnzymeID:       enzHK,
		ReactionID:     rxnHK,
		Vmax:           models.Float(2.8),
		Km:             models.Float(0.1),
		SourceDatabase: "literature",
	}}); err != nil {
		t.Fatalf("UpsertKineticParams() error = %v", err)
	}

	server, err := NewServer(&Config{
		Name:     "test-server",
		Version:  "v1.0.0",
		Root:     tmpDir,
		Store:    gs,
		Settings: config.Default(),
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return server, tmpDir
}

func TestHandleGetReaction(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	result, out, err := server.handleGetReaction(context.Background(), &sdk.CallToolRequest{}, GetReactionInput{ID: rxnHK})
	if err != nil {
		t.Fatalf("handleGetReaction failed: %v", err)
	}
	if result != nil {
		t.Error("Expected nil result (SDK auto-populates)")
	}
	if !out.Found || out.Reaction == nil {
		t.Fatalf("reaction not found: %+v", out)
	}
	if len(out.Reaction.Substrates) != 2 || len(out.Reaction.Products) != 2 {
		t.Errorf("participants = %d substrates, %d products; want 2, 2",
			len(out.Reaction.Substrates), len(out.Reaction.Products))
	}
	if len(out.Reaction.Enzymes) != 1 || out.Reaction.Enzymes[0].ECNumber != "2.7.1.1" {
		t.Errorf("enzymes = %+v", out.Reaction.Enzymes)
	}
	if out.Reaction.Reversible {
		t.Error("hexokinase reaction should be irreversible")
	}
	if len(out.Reaction.KineticParams) != 1 {
		t.Errorf("kinetic rows = %d, want 1", len(out.Reaction.KineticParams))
	}
}

func TestHandleGetReaction_ByName(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	_, out, err := server.handleGetReaction(context.Background(), &sdk.CallToolRequest{}, GetReactionInput{ID: "G6P TO PYRUVATE"})
	if err != nil {
		t.Fatalf("handleGetReaction failed: %v", err)
	}
	if !out.Found || out.Reaction.Node.ID != rxnG6P {
		t.Errorf("resolved to %+v, want %s", out.Reaction, rxnG6P)
	}
}

func TestHandleGetReaction_NotFoundAndWrongKind(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	ctx := context.Background()

	_, out, err := server.handleGetReaction(ctx, &sdk.CallToolRequest{}, GetReactionInput{ID: "rxn:kegg:R99999"})
	if err != nil {
		t.Fatalf("handleGetReaction failed: %v", err)
	}
	if out.Found {
		t.Error("unknown reaction reported as found")
	}

	_, out, err = server.handleGetReaction(ctx, &sdk.CallToolRequest{}, GetReactionInput{ID: glucose})
	if err != nil {
		t.Fatalf("handleGetReaction failed: %v", err)
	}
	if out.Found || !strings.Contains(out.Message, "not a reaction") {
		t.Errorf("compound lookup = %+v, want a not-a-reaction message", out)
	}

	if _, _, err := server.handleGetReaction(ctx, &sdk.CallToolRequest{}, GetReactionInput{ID: "  "}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestHandleGetCompound(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	_, out, err := server.handleGetCompound(context.Background(), &sdk.CallToolRequest{}, GetCompoundInput{ID: g6p})
	if err != nil {
		t.Fatalf("handleGetCompound failed: %v", err)
	}
	if !out.Found {
		t.Fatalf("compound not found: %+v", out)
	}

	roles := map[string]string{}
	for _, r := range out.Reactions {
		roles[r.Role] = r.ID
	}
	want := map[string]string{"product": rxnHK, "substrate": rxnG6P, "inhibitor": rxnHK}
	for role, id := range want {
		if roles[role] != id {
			t.Errorf("role %s = %q, want %q", role, roles[role], id)
		}
	}
}

func TestHandleGetCompound_ByXref(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	_, out, err := server.handleGetCompound(context.Background(), &sdk.CallToolRequest{}, GetCompoundInput{ID: "kegg:C00031"})
	if err != nil {
		t.Fatalf("handleGetCompound failed: %v", err)
	}
	if !out.Found || out.Compound.ID != glucose {
		t.Errorf("kegg:C00031 resolved to %+v, want %s", out.Compound, glucose)
	}
	if len(out.Reactions) != 1 || out.Reactions[0].Role != "substrate" {
		t.Errorf("reactions = %+v", out.Reactions)
	}
}

func TestHandleSimulateFBA(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	_, out, err := server.handleSimulateFBA(context.Background(), &sdk.CallToolRequest{}, SimulateFBAInput{
		ScopeInput: ScopeInput{PathwayID: pathwayGlyco},
	})
	if err != nil {
		t.Fatalf("handleSimulateFBA failed: %v", err)
	}
	res := out.Result
	if res.Status != "optimal" {
		t.Fatalf("status = %q (%s), want optimal", res.Status, res.Message)
	}
	if res.ObjectiveValue == nil || *res.ObjectiveValue <= 0 {
		t.Errorf("objective = %v, want > 0", res.ObjectiveValue)
	}
	if res.Fluxes[rxnHK] == 0 || res.Fluxes[rxnG6P] == 0 {
		t.Errorf("fluxes = %v, want both non-zero", res.Fluxes)
	}
	if res.RunID == "" {
		t.Error("missing run id")
	}
	if !strings.Contains(out.Report, "FBA Result") || !strings.Contains(out.Report, "hexokinase reaction") {
		t.Errorf("report missing title or reaction name:\n%s", out.Report)
	}
}

func TestHandleSimulateFBA_EmptyScope(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	_, out, err := server.handleSimulateFBA(context.Background(), &sdk.CallToolRequest{}, SimulateFBAInput{
		ScopeInput: ScopeInput{PathwayID: "pwy:test:missing"},
	})
	if err != nil {
		t.Fatalf("handleSimulateFBA failed: %v", err)
	}
	if out.Result.Status != "error" {
		t.Errorf("status = %q, want error for an empty scope", out.Result.Status)
	}
}

func TestHandleSimulateODE(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	args := SimulateODEInput{
		ScopeInput:            ScopeInput{PathwayID: pathwayGlyco},
		TEnd:                  20,
		TPoints:               50,
		InitialConcentrations: map[string]float64{glucose: 5, atp: 3, pyruvate: 0},
	}
	_, out, err := server.handleSimulateODE(context.Background(), &sdk.CallToolRequest{}, args)
	if err != nil {
		t.Fatalf("handleSimulateODE failed: %v", err)
	}
	if out.Status != "ok" {
		t.Fatalf("status = %q (%s), want ok", out.Status, out.Message)
	}
	if len(out.FinalConcentrations) != 5 {
		t.Errorf("final concentrations = %d compounds, want 5", len(out.FinalConcentrations))
	}
	if out.FinalConcentrations[pyruvate] <= 0 {
		t.Errorf("final pyruvate = %g, want > 0", out.FinalConcentrations[pyruvate])
	}
	if out.T != nil || out.Concentrations != nil {
		t.Error("trajectories returned without include_trajectories")
	}

	args.IncludeTrajectories = true
	_, out, err = server.handleSimulateODE(context.Background(), &sdk.CallToolRequest{}, args)
	if err != nil {
		t.Fatalf("handleSimulateODE failed: %v", err)
	}
	if len(out.T) != 50 || len(out.Concentrations[glucose]) != 50 {
		t.Errorf("trajectory lengths = %d, %d; want 50", len(out.T), len(out.Concentrations[glucose]))
	}
}

func TestHandleSimulateODE_TooManyPoints(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	_, _, err := server.handleSimulateODE(context.Background(), &sdk.CallToolRequest{}, SimulateODEInput{TPoints: maxODEPoints + 1})
	if err == nil {
		t.Error("expected error for t_points above the cap")
	}
}

func TestHandleSimulateWhatIf_Knockout(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	_, out, err := server.handleSimulateWhatIf(context.Background(), &sdk.CallToolRequest{}, SimulateWhatIfInput{
		ScopeInput: ScopeInput{PathwayID: pathwayGlyco},
		Scenarios: []simulate.WhatIfScenario{
			{Name: "hk-knockout", EnzymeKnockouts: []string{enzHK}},
			{Name: "no-op"},
		},
	})
	if err != nil {
		t.Fatalf("handleSimulateWhatIf failed: %v", err)
	}
	if out.Mode != "fba" {
		t.Errorf("mode = %q, want fba", out.Mode)
	}
	if len(out.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(out.Results))
	}

	ko := out.Results[0]
	if ko.ScenarioName != "hk-knockout" {
		t.Errorf("first scenario = %q", ko.ScenarioName)
	}
	if ko.DeltaFluxes[rxnHK] >= 0 {
		t.Errorf("knockout delta for %s = %g, want negative", rxnHK, ko.DeltaFluxes[rxnHK])
	}
	for id, d := range out.Results[1].DeltaFluxes {
		if d != 0 {
			t.Errorf("no-op scenario changed %s by %g", id, d)
		}
	}
	if !strings.Contains(out.Report, "What-If: hk-knockout") {
		t.Errorf("report missing scenario heading:\n%s", out.Report)
	}
}

func TestHandleSimulateWhatIf_Errors(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	ctx := context.Background()

	_, _, err := server.handleSimulateWhatIf(ctx, &sdk.CallToolRequest{}, SimulateWhatIfInput{
		Mode:      "steady-state",
		Scenarios: []simulate.WhatIfScenario{{Name: "x"}},
	})
	if !errors.Is(err, simulate.ErrInvalidMode) {
		t.Errorf("error = %v, want ErrInvalidMode", err)
	}

	if _, _, err := server.handleSimulateWhatIf(ctx, &sdk.CallToolRequest{}, SimulateWhatIfInput{}); err == nil {
		t.Error("expected error without scenarios")
	}

	_, _, err = server.handleSimulateWhatIf(ctx, &sdk.CallToolRequest{}, SimulateWhatIfInput{
		Scenarios: []simulate.WhatIfScenario{{Name: "neg", EnzymeFactors: map[string]float64{enzHK: -1}}},
	})
	if !errors.Is(err, simulate.ErrInvalidScenario) {
		t.Errorf("error = %v, want ErrInvalidScenario", err)
	}
}

func TestHandleSimulateWhatIf_RejectedCallsKeepBudget(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	ctx := context.Background()

	invalid := SimulateWhatIfInput{
		Scenarios: []simulate.WhatIfScenario{{Name: "neg", EnzymeFactors: map[string]float64{enzHK: -1}}},
	}
	for i := 0; i < 5; i++ {
		_, _, err := server.handleSimulateWhatIf(ctx, &sdk.CallToolRequest{}, invalid)
		if !errors.Is(err, simulate.ErrInvalidScenario) {
			t.Fatalf("call %d: error = %v, want ErrInvalidScenario", i+1, err)
		}
	}

	valid := SimulateWhatIfInput{
		ScopeInput: ScopeInput{PathwayID: pathwayGlyco},
		Scenarios:  []simulate.WhatIfScenario{{Name: "no-op"}},
	}
	// The what-if burst is 2; rejected calls must not have spent it.
	for i := 0; i < 2; i++ {
		if _, _, err := server.handleSimulateWhatIf(ctx, &sdk.CallToolRequest{}, valid); err != nil {
			t.Fatalf("valid call %d: %v", i+1, err)
		}
	}
	_, _, err := server.handleSimulateWhatIf(ctx, &sdk.CallToolRequest{}, valid)
	if err == nil || !strings.Contains(err.Error(), "rate limit exceeded") {
		t.Errorf("error = %v, want rate limit after the burst", err)
	}
}

func TestHandleSimulateODE_RejectedCallsKeepBudget(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, _, err := server.handleSimulateODE(ctx, &sdk.CallToolRequest{}, SimulateODEInput{TPoints: maxODEPoints + 1}); err == nil {
			t.Fatal("expected error for t_points above the cap")
		}
	}
	_, _, err := server.handleSimulateODE(ctx, &sdk.CallToolRequest{}, SimulateODEInput{
		ScopeInput: ScopeInput{PathwayID: pathwayGlyco},
		TEnd:       1,
		TPoints:    5,
	})
	if err != nil {
		t.Errorf("valid call after rejected ones: %v", err)
	}
}

func TestHandleSimulateFBA_OversizedScope(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	ctx := context.Background()

	limit := server.sim.MaxFBAReactions()
	ids := make([]string, limit+1)
	for i := range ids {
		ids[i] = "rxn:bulk:" + strconv.Itoa(i)
	}
	oversized := SimulateFBAInput{ScopeInput: ScopeInput{ReactionIDs: ids}}

	// More rejected calls than the FBA burst of 5.
	for i := 0; i < 6; i++ {
		_, _, err := server.handleSimulateFBA(ctx, &sdk.CallToolRequest{}, oversized)
		if err == nil || !strings.Contains(err.Error(), "reaction_ids per FBA call") {
			t.Fatalf("call %d: error = %v, want the scope cap", i+1, err)
		}
	}

	_, out, err := server.handleSimulateFBA(ctx, &sdk.CallToolRequest{}, SimulateFBAInput{
		ScopeInput: ScopeInput{ReactionIDs: []string{rxnHK}},
	})
	if err != nil {
		t.Fatalf("valid call after rejected ones: %v", err)
	}
	if out.Result == nil || out.Result.Status != simulate.StatusOptimal {
		t.Errorf("result = %+v, want optimal", out.Result)
	}
}

func TestHandleStats(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	_, out, err := server.handleStats(context.Background(), &sdk.CallToolRequest{}, StatsInput{Validate: true})
	if err != nil {
		t.Fatalf("handleStats failed: %v", err)
	}
	if out.Stats.Nodes != 9 || out.Stats.Edges != 10 {
		t.Errorf("stats = %d nodes, %d edges; want 9, 10", out.Stats.Nodes, out.Stats.Edges)
	}
	if out.Stats.NodesByKind[models.KindCompound] != 5 {
		t.Errorf("compounds = %d, want 5", out.Stats.NodesByKind[models.KindCompound])
	}
	if len(out.Issues) != 0 {
		t.Errorf("unexpected validation issues: %v", out.Issues)
	}
}

func TestRateLimit_Stats(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	ctx := context.Background()

	var limited bool
	for i := 0; i < 20; i++ {
		if _, _, err := server.handleStats(ctx, &sdk.CallToolRequest{}, StatsInput{}); err != nil {
			if !strings.Contains(err.Error(), "rate limit") {
				t.Fatalf("unexpected error: %v", err)
			}
			limited = true
			break
		}
	}
	if !limited {
		t.Error("expected metakg_stats to be rate limited within 20 rapid calls")
	}
}

func TestAudit_RecordsToolCalls(t *testing.T) {
	server, tmpDir := setupTestServer(t)
	ctx := context.Background()

	if _, _, err := server.handleSimulateFBA(ctx, &sdk.CallToolRequest{}, SimulateFBAInput{
		ScopeInput: ScopeInput{PathwayID: pathwayGlyco},
	}); err != nil {
		t.Fatalf("handleSimulateFBA failed: %v", err)
	}
	_, _, _ = server.handleGetReaction(ctx, &sdk.CallToolRequest{}, GetReactionInput{})
	server.Close()

	f, err := os.Open(filepath.Join(tmpDir, ".metakg", AuditFileName))
	if err != nil {
		t.Fatalf("opening audit log: %v", err)
	}
	defer f.Close()

	var entries []AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("parsing audit line: %v", err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(entries))
	}

	fba := entries[0]
	if fba.Tool != toolSimulateFBA || fba.Status != "success" {
		t.Errorf("fba entry = %+v", fba)
	}
	if len(fba.RunIDs) != 1 {
		t.Errorf("fba run ids = %v, want 1", fba.RunIDs)
	}
	if fba.Params["pathway_id"] != "(set)" {
		t.Errorf("pathway_id param = %q, want (set)", fba.Params["pathway_id"])
	}
	if strings.Contains(fba.Params["pathway_id"], pathwayGlyco) {
		t.Error("audit log leaked the pathway id")
	}

	if entries[1].Status != "error" || entries[1].Error == "" {
		t.Errorf("failed call entry = %+v", entries[1])
	}
}

func TestReactionResource(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()
	ctx := context.Background()

	uri := reactionResourcePrefix + rxnHK
	res, err := server.handleReactionResource(ctx, &sdk.ReadResourceRequest{Params: &sdk.ReadResourceParams{URI: uri}})
	if err != nil {
		t.Fatalf("handleReactionResource failed: %v", err)
	}
	text := res.Contents[0].Text
	for _, want := range []string{"# Reaction: hexokinase reaction", "D-Glucose + ATP → D-Glucose 6-phosphate + ADP", "EC 2.7.1.1", "| 0.1 | 2.8 |"} {
		if !strings.Contains(text, want) {
			t.Errorf("resource missing %q:\n%s", want, text)
		}
	}

	_, err = server.handleReactionResource(ctx, &sdk.ReadResourceRequest{Params: &sdk.ReadResourceParams{URI: reactionResourcePrefix + "rxn:none"}})
	if err == nil {
		t.Error("expected not-found error for unknown reaction")
	}
}

func TestStatsResource(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	res, err := server.handleStatsResource(context.Background(), &sdk.ReadResourceRequest{Params: &sdk.ReadResourceParams{URI: statsResourceURI}})
	if err != nil {
		t.Fatalf("handleStatsResource failed: %v", err)
	}
	text := res.Contents[0].Text
	if !strings.Contains(text, "- Nodes: 9") || !strings.Contains(text, "  - compound: 5") {
		t.Errorf("unexpected stats resource:\n%s", text)
	}
}

func TestSanitizedLookup_StripsMarkup(t *testing.T) {
	gs := store.NewInMemoryGraphStore()
	node := models.Node{ID: "cpd:test:x", Kind: models.KindCompound, Name: "<b>## Evil</b> | name"}
	if err := gs.WriteGraph(context.Background(), []models.Node{node}, nil); err != nil {
		t.Fatalf("WriteGraph() error = %v", err)
	}

	got, err := sanitizedLookup{gs: gs}.GetNode(context.Background(), node.ID)
	if err != nil {
		t.Fatalf("GetNode() error = %v", err)
	}
	if strings.ContainsAny(got.Name, "<>|#") {
		t.Errorf("name not sanitized: %q", got.Name)
	}

	stored, _ := gs.GetNode(context.Background(), node.ID)
	if stored.Name != node.Name {
		t.Error("sanitizing mutated the stored node")
	}
}
