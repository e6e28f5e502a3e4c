package simulate

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// RenderOptions control report formatting.
type RenderOptions struct {
	// TopN caps the rows per table. Zero or less uses 20.
	TopN int
	// Markdown emits headings and tables; otherwise aligned plain text.
	Markdown bool
}

// DefaultRenderOptions returns Markdown output with 20 rows per table.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{TopN: 20, Markdown: true}
}

// deltaEpsilon hides changes too small to report.
const deltaEpsilon = 1e-8

// report accumulates lines in either Markdown or plain style.
type report struct {
	ctx   context.Context
	names NodeLookup
	opts  RenderOptions
	lines []string
}

func newReport(ctx context.Context, names NodeLookup, opts RenderOptions) *report {
	if opts.TopN <= 0 {
		opts.TopN = DefaultRenderOptions().TopN
	}
	return &report{ctx: ctx, names: names, opts: opts}
}

func (r *report) title(s string) {
	if r.opts.Markdown {
		s = "## " + s
	}
	r.lines = append(r.lines, s)
}

func (r *report) section(s string) {
	if r.opts.Markdown {
		s = "### " + s
	} else {
		s = "--- " + s
	}
	r.lines = append(r.lines, s)
}

func (r *report) field(label, value string) {
	if r.opts.Markdown {
		label = "**" + label + "**"
	}
	r.lines = append(r.lines, label+" "+value)
}

func (r *report) blank() {
	r.lines = append(r.lines, "")
}

// table writes a Markdown header; plain output has none.
func (r *report) table(headers ...string) {
	if !r.opts.Markdown {
		return
	}
	r.lines = append(r.lines, "| "+strings.Join(headers, " | ")+" |")
	align := make([]string, len(headers))
	for i := range align {
		align[i] = "---"
		if i >= 2 {
			align[i] = "---:"
		}
	}
	r.lines = append(r.lines, "|"+strings.Join(align, "|")+"|")
}

// row writes one entry: a Markdown row, or the name padded to width followed
// by plain.
func (r *report) row(id string, cells []string, plain string, width int) {
	name := r.name(id)
	if r.opts.Markdown {
		r.lines = append(r.lines, fmt.Sprintf("| %s | `%s` | %s |", name, id, strings.Join(cells, " | ")))
		return
	}
	r.lines = append(r.lines, fmt.Sprintf("  %-*s %s", width, name, plain))
}

func (r *report) name(id string) string {
	if r.names == nil {
		return id
	}
	n, err := r.names.GetNode(r.ctx, id)
	if err != nil || n == nil || n.Name == "" {
		return id
	}
	return n.Name
}

func (r *report) String() string {
	return strings.Join(r.lines, "\n")
}

func formatObjective(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.6g", *v)
}

func arrow(delta float64) string {
	if delta > 0 {
		return "▲"
	}
	return "▼"
}

// RenderFBA formats an FBA result with its largest fluxes and shadow prices.
// names may be nil, in which case IDs are shown.
func RenderFBA(ctx context.Context, res *FBAResult, names NodeLookup, opts RenderOptions) string {
	r := newReport(ctx, names, opts)
	r.title("FBA Result")
	r.field("Status:", res.Status)
	if res.ObjectiveValue != nil {
		r.field("Objective value:", formatObjective(res.ObjectiveValue))
	}
	r.field("Message:", res.Message)
	r.blank()

	if len(res.Fluxes) > 0 {
		ranked := rank(res.Fluxes, math.Abs)
		r.section(fmt.Sprintf("Top %d Fluxes (by magnitude)", min(r.opts.TopN, len(ranked))))
		r.table("Reaction", "ID", "Flux")
		for _, e := range ranked[:min(r.opts.TopN, len(ranked))] {
			r.row(e.ID, []string{fmt.Sprintf("%.4f", e.Value)}, fmt.Sprintf("%10.4f", e.Value), 40)
		}
	}

	if len(res.ShadowPrices) > 0 {
		r.blank()
		r.section("Top Shadow Prices")
		r.table("Compound", "ID", "Shadow Price")
		ranked := rank(res.ShadowPrices, math.Abs)
		for _, e := range ranked[:min(r.opts.TopN, len(ranked))] {
			r.row(e.ID, []string{fmt.Sprintf("%.4g", e.Value)}, fmt.Sprintf("%10.4g", e.Value), 40)
		}
	}
	return r.String()
}

// RenderODE formats an ODE result with its highest final concentrations.
func RenderODE(ctx context.Context, res *ODEResult, names NodeLookup, opts RenderOptions) string {
	r := newReport(ctx, names, opts)
	r.title("ODE Result")
	r.field("Status:", res.Status)
	r.field("Message:", res.Message)
	r.blank()

	final := res.FinalConcentrations()
	if len(final) > 0 {
		tEnd := "?"
		if len(res.T) > 0 {
			tEnd = fmt.Sprintf("%g", res.T[len(res.T)-1])
		}
		r.section(fmt.Sprintf("Final Concentrations (t = %s)", tEnd))
		r.table("Compound", "ID", "Final [mM]")
		ranked := rank(final, func(v float64) float64 { return v })
		for _, e := range ranked[:min(r.opts.TopN, len(ranked))] {
			r.row(e.ID, []string{fmt.Sprintf("%.4f", e.Value)}, fmt.Sprintf("%10.4f", e.Value), 40)
		}
	}
	return r.String()
}

// RenderWhatIf formats a what-if comparison, listing the largest changes.
func RenderWhatIf(ctx context.Context, res *WhatIfResult, names NodeLookup, opts RenderOptions) string {
	r := newReport(ctx, names, opts)
	r.title("What-If: " + res.ScenarioName)
	r.field("Mode:", strings.ToUpper(string(res.Mode)))
	r.field("Baseline status:", res.Baseline.Status())
	r.field("Perturbed status:", res.Perturbed.Status())
	r.blank()

	var deltas map[string]float64
	var before, after func(id string) float64
	if res.Mode == ModeFBA {
		r.field("Baseline objective:", formatObjective(res.Baseline.FBA.ObjectiveValue))
		r.field("Perturbed objective:", formatObjective(res.Perturbed.FBA.ObjectiveValue))
		r.blank()
		deltas = res.DeltaFluxes
		before = func(id string) float64 { return res.Baseline.FBA.Fluxes[id] }
		after = func(id string) float64 { return res.Perturbed.FBA.Fluxes[id] }
		if len(deltas) > 0 {
			r.section("Flux Changes (Δ = perturbed − baseline)")
			r.table("Reaction", "ID", "Baseline", "Perturbed", "Δ Flux")
		}
	} else {
		b := res.Baseline.ODE.FinalConcentrations()
		p := res.Perturbed.ODE.FinalConcentrations()
		deltas = res.DeltaFinalConc
		before = func(id string) float64 { return b[id] }
		after = func(id string) float64 { return p[id] }
		if len(deltas) > 0 {
			r.section("Final Concentration Changes (Δ[C] at t_end)")
			r.table("Compound", "ID", "Baseline [mM]", "Perturbed [mM]", "Δ [mM]")
		}
	}

	shown := 0
	ranked := rank(deltas, math.Abs)
	for _, e := range ranked[:min(r.opts.TopN, len(ranked))] {
		if math.Abs(e.Value) < deltaEpsilon {
			continue
		}
		b, p := before(e.ID), after(e.ID)
		tag := arrow(e.Value)
		r.row(e.ID,
			[]string{fmt.Sprintf("%.4f", b), fmt.Sprintf("%.4f", p), fmt.Sprintf("%s %.4f", tag, math.Abs(e.Value))},
			fmt.Sprintf("%8.4f → %8.4f  (%s%.4f)", b, p, tag, math.Abs(e.Value)),
			38)
		shown++
	}
	if len(deltas) > 0 && shown == 0 {
		r.lines = append(r.lines, "No changes above threshold.")
	}
	return r.String()
}
