// Package stats has summary statistics and goodness of fit tests for
// chain samples.
package stats

import (
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MeanStdDev computes the mean and the standard deviation of every
// column of samples.
func MeanStdDev(samples [][]float64) (means, sds []float64) {
	if len(samples) == 0 {
		return nil, nil
	}
	n := len(samples[0])
	means = make([]float64, n)
	sds = make([]float64, n)
	col := make([]float64, len(samples))
	for j := 0; j < n; j++ {
		for i, s := range samples {
			col[i] = s[j]
		}
		means[j], sds[j] = stat.MeanStdDev(col, nil)
	}
	return
}

// ChiSquareNormal tests whether x comes from N(mu, sigma^2). The real
// line is split into bins equiprobable intervals. It returns Pearson's
// statistic and the p-value with bins-1 degrees of freedom.
func ChiSquareNormal(x []float64, mu, sigma float64, bins int) (statistic, pValue float64) {
	if bins < 2 {
		panic("at least two bins are required")
	}
	if len(x) == 0 {
		panic("no observations")
	}
	d := distuv.Normal{Mu: mu, Sigma: sigma}
	obs := make([]float64, bins)
	for _, v := range x {
		b := int(d.CDF(v) * float64(bins))
		if b >= bins {
			b = bins - 1
		}
		if b < 0 {
			b = 0
		}
		obs[b]++
	}
	exp := make([]float64, bins)
	for i := range exp {
		exp[i] = float64(len(x)) / float64(bins)
	}
	statistic = stat.ChiSquare(obs, exp)
	df := float64(bins - 1)
	pValue = mathext.GammaIncRegComp(df/2, statistic/2)
	if math.IsNaN(pValue) {
		pValue = 0
	}
	return
}
