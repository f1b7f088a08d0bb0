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

// MACDResult holds the latest MACD reading.
type MACDResult struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
	Valid     bool    `json:"valid"`
}

// MACD computes the moving average convergence divergence of prices.
// It needs at least slow+signal-1 prices; otherwise the result is not Valid.
func MACD(prices []float64, fast, slow, signal int) MACDResult {
	if fast <= 0 || slow <= fast || signal <= 0 || len(prices) < slow+signal-1 {
		return MACDResult{}
	}

	fastSeries := EMASeries(prices, fast)
	slowSeries := EMASeries(prices, slow)

	// slowSeries[k] and fastSeries[k+slow-fast] refer to the same price index.
	offset := slow - fast
	line := make([]float64, len(slowSeries))
	for k := range slowSeries {
		line[k] = fastSeries[k+offset] - slowSeries[k]
	}

	signalSeries := EMASeries(line, signal)
	if len(signalSeries) == 0 {
		return MACDResult{}
	}

	last := line[len(line)-1]
	sig := signalSeries[len(signalSeries)-1]
	return MACDResult{
		Line:      last,
		Signal:    sig,
		Histogram: last - sig,
		Valid:     true,
	}
}
