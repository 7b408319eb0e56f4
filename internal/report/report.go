// Package report renders a demonstration run as markdown
package report

import (
	"fmt"
	"strings"

	"gocausal/app"
)

// Markdown renders the run as a self-contained markdown document
func Markdown(res *app.DemoResult) string {
	var b strings.Builder
	sc := res.Scenario

	fmt.Fprintf(&b, "# Do-sampling a confounded treatment\n\n")
	fmt.Fprintf(&b, "Run `%s`, %d rows, seed %d, %dms.\n\n", res.RunID, sc.Rows, sc.Seed, res.RuntimeMs)

	b.WriteString("## Data\n\n")
	fmt.Fprintf(&b, "- Z ~ U(0, 1)\n")
	fmt.Fprintf(&b, "- D ~ Bernoulli(sigmoid(%g·Z))\n", sc.Strength)
	fmt.Fprintf(&b, "- Y = %g·Z + %g·D + %g·N(0, 1)\n\n", sc.ConfounderEffect, sc.TreatmentEffect, sc.Noise)
	b.WriteString("Causal graph:\n\n```dot\n")
	b.WriteString(strings.TrimSpace(res.Graph))
	b.WriteString("\n```\n\n")
	fmt.Fprintf(&b, "Backdoor adjustment set: `{%s}`\n\n", strings.Join(res.Confounders, ", "))

	b.WriteString("## Estimates\n\n")
	b.WriteString("| Estimate | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| True effect of D on Y | %.3f |\n", sc.TreatmentEffect)
	fmt.Fprintf(&b, "| Naive difference of group means | %.3f |\n", res.Naive)
	fmt.Fprintf(&b, "| Keep-original do-sample difference | %.3f |\n", res.KeepOrig)
	fmt.Fprintf(&b, "| Contrast do(D=1) vs do(D=0) | %.3f |\n\n", res.Contrast)
	if kt := res.KeepTest; kt.NA > 0 {
		fmt.Fprintf(&b, "Welch test of the keep-original difference: t = %.2f, df = %.1f, p = %.3g (%d treated, %d untreated).\n\n",
			kt.T, kt.DF, kt.PValue, kt.NA, kt.NB)
	}

	if len(res.Balance) > 0 {
		b.WriteString("## Covariate balance\n\n")
		b.WriteString("Standardized mean difference between treated and untreated rows.\n\n")
		b.WriteString("| Covariate | Observed | Reweighted |\n|---|---|---|\n")
		for _, bal := range res.Balance {
			fmt.Fprintf(&b, "| %s | %.3f | %.3f |\n", bal.Covariate, bal.Observed, bal.Adjusted)
		}
		b.WriteString("\n")
	}

	if boot := res.Bootstrap; boot != nil {
		b.WriteString("## Bootstrap\n\n")
		fmt.Fprintf(&b, "%d replicates: mean %.3f, sd %.3f, %.0f%% interval [%.3f, %.3f].\n\n",
			len(boot.Estimates), boot.Mean, boot.StdDev, boot.Level*100, boot.Lower, boot.Upper)
	}

	d := res.Diagnostics
	b.WriteString("## Propensity model\n\n")
	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Strategy | %s |\n", d.Strategy)
	fmt.Fprintf(&b, "| Features | %s |\n", strings.Join(d.Features, ", "))
	fmt.Fprintf(&b, "| Treatment levels | %d |\n", d.Levels)
	fmt.Fprintf(&b, "| Score range | [%.4f, %.4f] |\n", d.MinScore, d.MaxScore)
	fmt.Fprintf(&b, "| Extreme policy | %s (%d clipped, %d dropped) |\n", d.Policy, d.Clipped, d.Dropped)
	fmt.Fprintf(&b, "| Effective sample size | %.1f of %d |\n", d.EffectiveSize, d.Rows)

	return b.String()
}
