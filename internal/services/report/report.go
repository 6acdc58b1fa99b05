package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"BrentShift/internal/domain/models"
)

// Writer renders one human-readable markdown report per run.
type Writer struct {
	dir string
}

// NewWriter reports into dir/reports. An empty dir disables reporting by
// writing into "artifacts".
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "artifacts"
	}
	return &Writer{dir: dir}
}

// Write renders res and returns the report path.
func (w *Writer) Write(res *models.AnalysisResult) (string, error) {
	dir := filepath.Join(w.dir, "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report dir: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Brent change-point analysis: run %s\n\n", res.RunID)
	fmt.Fprintf(&b, "Generated %s over %d log returns (%s to %s), %d change points, %d chains x %d draws after %d tuning steps, seed %d.\n\n",
		res.GeneratedAt.Format("2006-01-02 15:04 MST"),
		res.Observations, res.FirstDate, res.LastDate,
		res.Breaks, res.Chains, res.Draws, res.Tune, res.Seed)

	b.WriteString("## Change points\n\n")
	b.WriteString("| Date | Mean before | Mean after | Price impact | Event date | Event |\n")
	b.WriteString("|------|-------------|------------|--------------|------------|-------|\n")
	for _, cp := range res.ChangePoints {
		fmt.Fprintf(&b, "| %s | %.5f | %.5f | %+.2f%% | %s | %s |\n",
			cp.Date, cp.MeanBefore, cp.MeanAfter, cp.PriceChangePct, cp.EventDate, cp.EventDescription)
	}

	b.WriteString("\n## Diagnostics\n\n")
	fmt.Fprintf(&b, "Max split R-hat %.4f, converged: %v. Posterior noise sd %.5f.\n",
		res.Diagnostics.MaxRHat, res.Diagnostics.Converged, res.SigmaMean)
	if st := res.Diagnostics.Stationarity; st != nil {
		fmt.Fprintf(&b, "ADF statistic %.3f with %d lags (5%% value %.3f), stationary: %v.\n",
			st.Statistic, st.Lag, st.CriticalValues["5%"], st.Stationary)
	}
	fmt.Fprintf(&b, "Segment sizes: %v.\n", res.Diagnostics.SegmentSizes)

	if len(res.Diagnostics.Params) > 0 {
		b.WriteString("\n| Parameter | R-hat | ESS |\n|-----------|-------|-----|\n")
		for _, pd := range res.Diagnostics.Params {
			fmt.Fprintf(&b, "| %s | %.4f | %.0f |\n", pd.Name, pd.RHat, pd.ESS)
		}
	}

	if len(res.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, warn := range res.Warnings {
			fmt.Fprintf(&b, "- %s\n", warn)
		}
	}

	path := filepath.Join(dir, res.RunID+".md")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
