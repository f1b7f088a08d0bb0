// Package assistant answers free-text questions about the bot's state.
// Classification is a pure function; open-ended answers are delegated to an
// injected Advisor.
package assistant

import (
	"regexp"
	"strings"
)

// Kind is the intent of a query.
type Kind string

const (
	KindPrice      Kind = "price"
	KindPrediction Kind = "prediction"
	KindPortfolio  Kind = "portfolio"
	KindAnalysis   Kind = "analysis"
	KindGeneral    Kind = "general"
)

// Query is a classified question.
type Query struct {
	Text    string   `json:"text"`
	Kind    Kind     `json:"kind"`
	Symbols []string `json:"symbols,omitempty"`
}

var (
	portfolioPattern  = regexp.MustCompile(`(?i)\b(portfolio|balance|positions?|holdings?|pnl|p&l|profit|performance|my tasks?)\b`)
	predictionPattern = regexp.MustCompile(`(?i)\b(predict\w*|forecast\w*|outlook|future|tomorrow|next (week|month|year)|will \w+ (go|rise|fall|drop|climb))\b`)
	analysisPattern   = regexp.MustCompile(`(?i)\b(analy[sz]\w*|rsi|macd|moving averages?|sma|technical|signals?|indicators?|trend)\b`)
	pricePattern      = regexp.MustCompile(`(?i)\b(price|quote|trading at|how much|cost|worth|value)\b`)

	cashtagPattern = regexp.MustCompile(`\$([A-Za-z]{1,5})\b`)
	tickerPattern  = regexp.MustCompile(`\b[A-Z]{1,6}(?:-USD|=X|=F)?\b`)
)

// tokens that look like tickers but never are.
var notTickers = map[string]bool{
	"I": true, "A": true, "AI": true, "RSI": true, "SMA": true, "EMA": true, "MACD": true,
	"USD": true, "PNL": true, "P": true, "L": true, "OK": true, "IS": true, "THE": true,
	"WHAT": true, "HOW": true, "AND": true, "OR": true, "TO": true, "OF": true, "FOR": true,
}

// Classify tags text with its intent and the symbols it mentions.
// Portfolio questions win over predictions, predictions over analysis and
// analysis over plain price lookups.
func Classify(text string) Query {
	q := Query{Text: text, Kind: KindGeneral, Symbols: extractSymbols(text)}
	switch {
	case portfolioPattern.MatchString(text):
		q.Kind = KindPortfolio
	case predictionPattern.MatchString(text):
		q.Kind = KindPrediction
	case analysisPattern.MatchString(text):
		q.Kind = KindAnalysis
	case pricePattern.MatchString(text):
		q.Kind = KindPrice
	}
	return q
}

func extractSymbols(text string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		s = strings.ToUpper(s)
		if notTickers[s] || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, m := range cashtagPattern.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	withoutCashtags := cashtagPattern.ReplaceAllString(text, " ")
	for _, m := range tickerPattern.FindAllString(withoutCashtags, -1) {
		add(m)
	}
	return out
}
