package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ReturnKind selects gross or net (after cost) monthly returns.
type ReturnKind string

const (
	ReturnGross ReturnKind = "gross"
	ReturnNet   ReturnKind = "net"
)

// DefaultTestPeriods is the number of months in the full reported sample.
const DefaultTestPeriods = 360

const (
	ConclusionReject    = "reject"
	ConclusionNotReject = "not reject"
)

type TestResult struct {
	Statistic  float64 `json:"test_statistic"`
	PValue     float64 `json:"p_value"`
	Conclusion string  `json:"conclusion"`
}

// ZStatistic is sqrt(n)*(m1-m2)/sqrt(v1+v2).
func ZStatistic(mean1, mean2, var1, var2 float64, n int) (float64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("periods must be > 0, got %d", n)
	}
	den := math.Sqrt(var1 + var2)
	if den == 0 || math.IsNaN(den) {
		return 0, errors.New("z statistic: zero combined variance")
	}
	return math.Sqrt(float64(n)) * (mean1 - mean2) / den, nil
}

// ZTest checks whether a outperforms b with a two-sided normal test.
func ZTest(a, b Summary, kind ReturnKind, n int, alpha float64) (TestResult, error) {
	var m1, m2, s1, s2 float64
	switch kind {
	case ReturnGross:
		m1, s1 = a.MonthlyGrossReturn, a.MonthlyGrossReturnStd
		m2, s2 = b.MonthlyGrossReturn, b.MonthlyGrossReturnStd
	case ReturnNet:
		m1, s1 = a.MonthlyNetReturn, a.MonthlyNetReturnStd
		m2, s2 = b.MonthlyNetReturn, b.MonthlyNetReturnStd
	default:
		return TestResult{}, fmt.Errorf("unknown return kind %q", kind)
	}
	z, err := ZStatistic(m1, m2, s1*s1, s2*s2, n)
	if err != nil {
		return TestResult{}, err
	}
	p := 2 * (1 - distuv.UnitNormal.CDF(math.Abs(z)))
	res := TestResult{Statistic: z, PValue: p, Conclusion: ConclusionNotReject}
	if p < alpha {
		res.Conclusion = ConclusionReject
	}
	return res, nil
}
