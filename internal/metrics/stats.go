package metrics

import (
    "math"
    "sort"
)

func mean(xs []float64) float64 {
    if len(xs) == 0 { return 0 }
    sum := 0.0
    for _, x := range xs { sum += x }
    return sum / float64(len(xs))
}

// stdDevPop is the population standard deviation. The cohort is the whole
// population for one report, so no Bessel correction.
func stdDevPop(xs []float64) float64 {
    if len(xs) == 0 { return 0 }
    mu := mean(xs)
    sum := 0.0
    for _, x := range xs { d := x - mu; sum += d * d }
    return math.Sqrt(sum / float64(len(xs)))
}

// zScores normalizes each value against the population. When the deviation
// is zero (all equal, or cohort of one) every z is 0 rather than NaN.
func zScores(xs []float64) []float64 {
    out := make([]float64, len(xs))
    sigma := stdDevPop(xs)
    if sigma == 0 { return out }
    mu := mean(xs)
    for i, x := range xs { out[i] = (x - mu) / sigma }
    return out
}

func median(xs []float64) float64 {
    if len(xs) == 0 { return 0 }
    s := append([]float64(nil), xs...)
    sort.Float64s(s)
    n := len(s)
    if n%2 == 1 { return s[n/2] }
    return (s[n/2-1] + s[n/2]) / 2
}
