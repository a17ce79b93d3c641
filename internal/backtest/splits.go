package backtest

import (
	"fmt"
	"path/filepath"

	"momentum-backtest/internal/data"
	"momentum-backtest/internal/model"
	"momentum-backtest/internal/strategy"
)

// SplitFileName is the split artifact name for a period and lambda. Splits do
// not depend on composition or weighting, so one file serves all of them.
func SplitFileName(p model.Period, lambda float64) string {
	return fmt.Sprintf("final_split_%s_lambda_%s.json", p, FormatLambda(lambda))
}

// SplitFiles serves each spec from the artifact stored under dir.
func SplitFiles(dir string) func(Spec) (strategy.SplitSource, error) {
	return func(s Spec) (strategy.SplitSource, error) {
		return data.OpenSplitFile(filepath.Join(dir, SplitFileName(s.Period, s.Lambda)))
	}
}
