package simulate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildNetwork_MassBalanceColumn(t *testing.T) {
	gs := newStore(t, []reaction{
		{id: "rxn:test:AB", substrates: []side{{"cpd:test:A", 1}}, products: []side{{"cpd:test:B", 2}}},
		{id: "rxn:test:BC", substrates: []side{{"cpd:test:B", 1}}, products: []side{{"cpd:test:C", 1}}, irreversible: true},
	})

	net, err := BuildNetwork(context.Background(), gs, NewConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{"cpd:test:A", "cpd:test:B", "cpd:test:C"}, net.CompoundIDs)
	assert.Equal(t, []string{"rxn:test:AB", "rxn:test:BC"}, net.ReactionIDs)

	tests := []struct {
		compound string
		reaction string
		want     float64
	}{
		{"cpd:test:A", "rxn:test:AB", -1},
		{"cpd:test:B", "rxn:test:AB", 2},
		{"cpd:test:C", "rxn:test:AB", 0},
		{"cpd:test:B", "rxn:test:BC", -1},
		{"cpd:test:C", "rxn:test:BC", 1},
		{"cpd:test:A", "rxn:test:BC", 0},
		{"cpd:test:missing", "rxn:test:BC", 0},
	}
	for _, tt := range tests {
		t.Run(tt.compound+"/"+tt.reaction, func(t *testing.T) {
			assert.Equal(t, tt.want, net.Coefficient(tt.compound, tt.reaction))
		})
	}

	assert.True(t, net.Reversible["rxn:test:AB"])
	assert.False(t, net.Reversible["rxn:test:BC"])
}

func TestBuildNetwork_NetCoefficientAccumulates(t *testing.T) {
	// ATP is regenerated: consumed once, produced twice.
	gs := newStore(t, []reaction{
		{
			id:         "rxn:test:cycle",
			substrates: []side{{"cpd:test:ATP", 1}, {"cpd:test:X", 1}},
			products:   []side{{"cpd:test:ATP", 2}},
		},
	})

	net, err := BuildNetwork(context.Background(), gs, NewConfig())
	require.NoError(t, err)
	assert.Equal(t, 1.0, net.Coefficient("cpd:test:ATP", "rxn:test:cycle"))
	assert.Equal(t, -1.0, net.Coefficient("cpd:test:X", "rxn:test:cycle"))
}

func TestBuildNetwork_Scope(t *testing.T) {
	gs := newStore(t, glycolysisReactions())
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  func() SimulationConfig
		want []string
	}{
		{
			name: "all reactions when unscoped",
			cfg:  NewConfig,
			want: []string{rxnHK, rxnG6P},
		},
		{
			name: "pathway by id",
			cfg: func() SimulationConfig {
				c := NewConfig()
				c.PathwayID = pathwayGlyco
				return c
			},
			want: []string{rxnHK, rxnG6P},
		},
		{
			name: "pathway by name",
			cfg: func() SimulationConfig {
				c := NewConfig()
				c.PathwayID = "test PATHWAY"
				return c
			},
			want: []string{rxnHK, rxnG6P},
		},
		{
			name: "unknown pathway is empty",
			cfg: func() SimulationConfig {
				c := NewConfig()
				c.PathwayID = "pwy:none"
				return c
			},
			want: []string{},
		},
		{
			name: "explicit list wins and keeps order",
			cfg: func() SimulationConfig {
				c := NewConfig()
				c.PathwayID = "pwy:none"
				c.ReactionIDs = []string{rxnG6P, rxnHK, rxnG6P}
				return c
			},
			want: []string{rxnG6P, rxnHK},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net, err := BuildNetwork(ctx, gs, tt.cfg())
			require.NoError(t, err)
			assert.Equal(t, tt.want, net.ReactionIDs)
		})
	}
}

func TestBuildNetwork_UnknownReactionKeepsEmptyColumn(t *testing.T) {
	gs := newStore(t, glycolysisReactions())
	cfg := NewConfig()
	cfg.ReactionIDs = []string{"rxn:test:ghost", rxnG6P}

	net, err := BuildNetwork(context.Background(), gs, cfg)
	require.NoError(t, err)

	j, ok := net.ReactionIndex("rxn:test:ghost")
	require.True(t, ok)
	for i := range net.CompoundIDs {
		assert.Zero(t, net.S.At(i, j))
	}
	assert.True(t, net.Reversible["rxn:test:ghost"])
	assert.Equal(t, []string{pyruvate, g6p}, net.CompoundIDs)
}

func TestBuildNetwork_StoreError(t *testing.T) {
	gs := newStore(t, glycolysisReactions())
	_, err := BuildNetwork(context.Background(), failingSource{ReactionSource: gs, failEdges: true}, NewConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errInjected))
}

func TestBalancedRows(t *testing.T) {
	gs := newStore(t, glycolysisReactions())
	net, err := BuildNetwork(context.Background(), gs, NewConfig())
	require.NoError(t, err)

	open := net.BalancedRows(false)
	require.Len(t, open, 1)
	assert.Equal(t, g6p, net.CompoundIDs[open[0]])

	assert.Len(t, net.BalancedRows(true), len(net.CompoundIDs))
}
