// Package reporter accumulates completed trades and renders the end-of-run
// session summary.
package reporter

import (
	"fmt"
	"io"
	"sync"
	"time"

	"binance-signal-bot-go/internal/models"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Session collects the round trips of one bot run.
type Session struct {
	mu        sync.Mutex
	symbol    string
	startedAt time.Time
	trades    []models.CompletedTrade
}

// NewSession starts an empty report for the symbol.
func NewSession(symbol string, startedAt time.Time) *Session {
	return &Session{symbol: symbol, startedAt: startedAt}
}

// RecordTrade appends one completed round trip. Safe for concurrent use.
func (s *Session) RecordTrade(trade models.CompletedTrade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, trade)
}

// Trades returns a copy of everything recorded so far.
func (s *Session) Trades() []models.CompletedTrade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CompletedTrade, len(s.trades))
	copy(out, s.trades)
	return out
}

// Metrics summarizes a session. A trade with zero profit counts as a loss:
// it paid the spread for nothing.
type Metrics struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64 // percent
	TotalProfit   float64
	AvgProfit     float64
}

// Metrics computes the summary over the recorded trades.
func (s *Session) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := Metrics{TotalTrades: len(s.trades)}
	for _, t := range s.trades {
		m.TotalProfit += t.Profit
		if t.Profit > 0 {
			m.WinningTrades++
		} else {
			m.LosingTrades++
		}
	}
	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
		m.AvgProfit = m.TotalProfit / float64(m.TotalTrades)
	}
	return m
}

// Render writes the trade table and the summary line to w.
func (s *Session) Render(w io.Writer) {
	trades := s.Trades()
	m := s.Metrics()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("session %s, started %s", s.symbol, s.startedAt.Format(time.RFC3339))
	t.AppendHeader(table.Row{"#", "entry time", "exit time", "held", "qty", "entry", "exit", "profit", "reason"})
	for i, tr := range trades {
		t.AppendRow(table.Row{
			i + 1,
			tr.EntryTime.Format("01-02 15:04:05"),
			tr.ExitTime.Format("01-02 15:04:05"),
			tr.HoldDuration.Round(time.Second).String(),
			fmt.Sprintf("%.6f", tr.Quantity),
			fmt.Sprintf("%.2f", tr.EntryPrice),
			fmt.Sprintf("%.2f", tr.ExitPrice),
			fmt.Sprintf("%+.2f", tr.Profit),
			tr.Reason,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "TOTAL", fmt.Sprintf("%+.2f", m.TotalProfit), ""})
	t.Render()

	fmt.Fprintf(w, "trades: %d  wins: %d  losses: %d  win rate: %.1f%%  avg pnl: %+.2f\n",
		m.TotalTrades, m.WinningTrades, m.LosingTrades, m.WinRate, m.AvgProfit)
}
