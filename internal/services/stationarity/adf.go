package stationarity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"BrentShift/internal/domain/models"
)

// Check runs an augmented Dickey-Fuller test with a constant term:
//
//	dy_t = a + b*y_{t-1} + g_1*dy_{t-1} + ... + g_p*dy_{t-p} + e_t
//
// The lag order p is chosen by AIC over 0..maxlag with the Schwert rule for
// maxlag, comparing candidates on a common sample. The reported statistic is
// the t ratio of b from a refit on the full sample for the chosen lag, and
// the unit root is rejected when it falls below the 5% critical value.
func Check(series []float64) (models.Stationarity, error) {
	var st models.Stationarity

	n := len(series)
	if n < 15 {
		return st, fmt.Errorf("%w: augmented Dickey-Fuller needs at least 15 observations, got %d", models.ErrMalformedInput, n)
	}

	diff := make([]float64, n-1)
	flat := true
	for i := range diff {
		diff[i] = series[i+1] - series[i]
		flat = flat && diff[i] == 0
	}
	if flat {
		return st, fmt.Errorf("%w: constant series has no unit-root behavior to test", models.ErrMalformedInput)
	}
	nd := len(diff)

	maxLag := int(math.Ceil(12.0 * math.Pow(float64(nd)/100.0, 0.25)))
	if limit := nd/2 - 2; maxLag > limit {
		maxLag = limit
	}
	if maxLag < 0 {
		return st, fmt.Errorf("%w: series too short for lag selection", models.ErrMalformedInput)
	}

	// lag selection on a common sample, so AIC values are comparable
	bestLag, bestAIC := 0, math.Inf(1)
	for p := 0; p <= maxLag; p++ {
		fit, err := regress(series, diff, p, maxLag)
		if err != nil {
			return st, err
		}
		if fit.aic < bestAIC {
			bestAIC = fit.aic
			bestLag = p
		}
	}

	// final fit uses every observation the chosen lag allows
	fit, err := regress(series, diff, bestLag, bestLag)
	if err != nil {
		return st, err
	}

	st.Statistic = fit.stat
	st.Lag = bestLag
	st.CriticalValues = criticalValues(fit.nobs)
	st.Stationary = fit.stat < st.CriticalValues["5%"]
	return st, nil
}

type adfFit struct {
	stat float64
	aic  float64
	nobs int
}

// regress fits the Dickey-Fuller regression with p lagged differences,
// dropping the first hold rows of the differenced series.
func regress(series, diff []float64, p, hold int) (adfFit, error) {
	rows := len(diff) - hold
	cols := 2 + p
	if rows <= cols {
		return adfFit{}, fmt.Errorf("%w: %d rows for %d regressors", models.ErrMalformedInput, rows, cols)
	}

	x := mat.NewDense(rows, cols, nil)
	y := mat.NewVecDense(rows, nil)
	for r := 0; r < rows; r++ {
		t := hold + r
		y.SetVec(r, diff[t])
		x.Set(r, 0, 1)
		x.Set(r, 1, series[t]) // level one step before diff[t]
		for i := 1; i <= p; i++ {
			x.Set(r, 1+i, diff[t-i])
		}
	}

	var qr mat.QR
	qr.Factorize(x)
	var coef mat.VecDense
	if err := qr.SolveVecTo(&coef, false, y); err != nil {
		return adfFit{}, fmt.Errorf("dickey-fuller regression: %w", err)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &coef)
	ssr := 0.0
	for r := 0; r < rows; r++ {
		e := y.AtVec(r) - fitted.AtVec(r)
		ssr += e * e
	}
	if ssr <= 0 {
		return adfFit{}, fmt.Errorf("%w: degenerate series, zero residual variance", models.ErrMalformedInput)
	}

	var xtx, inv mat.Dense
	xtx.Mul(x.T(), x)
	if err := inv.Inverse(&xtx); err != nil {
		return adfFit{}, fmt.Errorf("dickey-fuller regression: %w", err)
	}
	s2 := ssr / float64(rows-cols)
	se := math.Sqrt(s2 * inv.At(1, 1))
	if se == 0 || math.IsNaN(se) {
		return adfFit{}, fmt.Errorf("%w: degenerate series, zero standard error", models.ErrMalformedInput)
	}

	return adfFit{
		stat: coef.AtVec(1) / se,
		aic:  float64(rows)*math.Log(ssr/float64(rows)) + 2*float64(cols),
		nobs: rows,
	}, nil
}

// MacKinnon (2010) response-surface coefficients for the constant-only case.
var tauC = map[string][4]float64{
	"1%":  {-3.43035, -6.5393, -16.786, -79.433},
	"5%":  {-2.86154, -2.8903, -4.234, -40.040},
	"10%": {-2.56677, -1.5384, -2.809, 0},
}

func criticalValues(nobs int) map[string]float64 {
	out := make(map[string]float64, len(tauC))
	n := float64(nobs)
	for level, b := range tauC {
		out[level] = b[0] + b[1]/n + b[2]/(n*n) + b[3]/(n*n*n)
	}
	return out
}
