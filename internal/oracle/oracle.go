// Package oracle provides the classifier behind the trading signal. The
// engine consumes it through the Oracle interface only; the bundled random
// forest is one interchangeable implementation.
package oracle

import "binance-signal-bot-go/internal/models"

// Oracle turns one feature row into a classification signal: a discrete
// class and the probability mass behind it. Implementations must be
// deterministic for a fixed trained state.
type Oracle interface {
	Predict(features []float64) (models.Signal, error)
}
