// Copyright (c) 2024 Shadow-Trading-Bot
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package indicator

import "math"

// VolatilityCalculator tracks an exponentially weighted mean and variance of
// simple price returns. lambda is the decay of the previous estimate, so
// 0.94 keeps 94% of the old variance on every update.
type VolatilityCalculator struct {
	lambda        float64
	prevPrice     float64
	ewmaReturn    float64
	ewmVarReturn  float64
	isInitialized bool
}

// NewVolatilityCalculator creates a new VolatilityCalculator.
func NewVolatilityCalculator(lambda float64) *VolatilityCalculator {
	return &VolatilityCalculator{lambda: lambda}
}

// Update folds currentPrice into the estimate and returns the EWMA of returns
// and the EW standard deviation of returns.
func (vc *VolatilityCalculator) Update(currentPrice float64) (ewmaRet float64, ewmStdDev float64) {
	if !vc.isInitialized || vc.prevPrice == 0 {
		vc.prevPrice = currentPrice
		vc.isInitialized = true
		return vc.ewmaReturn, vc.GetEWMStandardDeviation()
	}

	ret := (currentPrice - vc.prevPrice) / vc.prevPrice
	vc.ewmaReturn = vc.lambda*vc.ewmaReturn + (1-vc.lambda)*ret
	// RiskMetrics form: the mean return is taken as zero for the variance.
	vc.ewmVarReturn = vc.lambda*vc.ewmVarReturn + (1-vc.lambda)*ret*ret
	vc.prevPrice = currentPrice

	return vc.ewmaReturn, vc.GetEWMStandardDeviation()
}

// GetEWMAReturn returns the current EWMA of price returns.
func (vc *VolatilityCalculator) GetEWMAReturn() float64 {
	return vc.ewmaReturn
}

// GetEWMStandardDeviation returns the current EW standard deviation of price returns.
func (vc *VolatilityCalculator) GetEWMStandardDeviation() float64 {
	if !vc.isInitialized || vc.ewmVarReturn <= 0 {
		return 0
	}
	return math.Sqrt(vc.ewmVarReturn)
}

// EWMVolatility replays prices through a fresh calculator and returns the
// resulting standard deviation of returns.
func EWMVolatility(prices []float64, lambda float64) float64 {
	vc := NewVolatilityCalculator(lambda)
	var std float64
	for _, p := range prices {
		_, std = vc.Update(p)
	}
	return std
}
