package forecasting

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"finops/internal/errors"
	"finops/internal/shared"
	"finops/pkg/contracts/domain"
)

// LinearModel is an ordinary least squares fit with an intercept.
type LinearModel struct {
	Intercept    float64
	Coefficients []float64
}

var machineEpsilon = math.Nextafter(1, 2) - 1

// FitOLS fits y ≈ intercept + X·β. Features and target are centered first and
// the centered system is solved by SVD, so rank-deficient designs get the
// minimum-norm coefficients.
func FitOLS(x [][]float64, y []float64) (*LinearModel, error) {
	n := len(y)
	if n == 0 || len(x) != n {
		return nil, errors.NewDataError(fmt.Sprintf("cannot fit a model to %d observations and %d targets", len(x), n))
	}
	p := len(x[0])
	for i, row := range x {
		if len(row) != p {
			return nil, errors.NewDataError(fmt.Sprintf("observation %d has %d features, want %d", i, len(row), p))
		}
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NewDataError(fmt.Sprintf("target %d is not a finite number", i))
		}
	}

	xMean := make([]float64, p)
	for j := 0; j < p; j++ {
		col := make([]float64, n)
		for i := range x {
			col[i] = x[i][j]
		}
		xMean[j] = shared.Mean(col)
	}
	yMean := shared.Mean(y)

	a := mat.NewDense(n, p, nil)
	b := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			a.Set(i, j, x[i][j]-xMean[j])
		}
		b.Set(i, 0, y[i]-yMean)
	}

	model := &LinearModel{Coefficients: make([]float64, p)}
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, errors.NewDataError("singular value decomposition of the design matrix failed")
	}
	if rank := svd.Rank(machineEpsilon * float64(max(n, p))); rank > 0 {
		var beta mat.Dense
		svd.SolveTo(&beta, b, rank)
		for j := 0; j < p; j++ {
			model.Coefficients[j] = beta.At(j, 0)
		}
	}

	model.Intercept = yMean
	for j, c := range model.Coefficients {
		model.Intercept -= c * xMean[j]
	}
	return model, nil
}

// Predict evaluates the model for one feature vector.
func (m *LinearModel) Predict(features []float64) float64 {
	out := m.Intercept
	for j, c := range m.Coefficients {
		out += c * features[j]
	}
	return out
}

// PredictAll evaluates the model for every row of x.
func (m *LinearModel) PredictAll(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = m.Predict(row)
	}
	return out
}

// Params returns the intercept followed by the feature coefficients.
func (m *LinearModel) Params() []float64 {
	return append([]float64{m.Intercept}, m.Coefficients...)
}

// MAPE is the mean absolute percentage error in percent. Actual values are
// floored at machine epsilon in magnitude.
func MAPE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i, a := range actual {
		sum += math.Abs(a-predicted[i]) / math.Max(math.Abs(a), machineEpsilon)
	}
	return sum / float64(len(actual)) * 100
}

// RMSE is the root mean squared error.
func RMSE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i, a := range actual {
		d := a - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual)))
}

// R2 is the coefficient of determination. A constant target scores 1 when
// predicted exactly and 0 otherwise.
func R2(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	mean := shared.Mean(actual)
	var ssRes, ssTot float64
	for i, a := range actual {
		ssRes += (a - predicted[i]) * (a - predicted[i])
		ssTot += (a - mean) * (a - mean)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// Evaluate computes the in-sample metrics of a fit.
func Evaluate(actual, predicted []float64) domain.ModelMetrics {
	return domain.ModelMetrics{
		MAPE: MAPE(actual, predicted),
		RMSE: RMSE(actual, predicted),
		R2:   R2(actual, predicted),
	}
}
