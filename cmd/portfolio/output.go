package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ndewijer/portfolio-client/internal/analytics"
	"github.com/ndewijer/portfolio-client/internal/model"
	"github.com/ndewijer/portfolio-client/internal/service"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	gainStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	lossStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EF4444"))

	advisorStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(lipgloss.Color("#3B82F6"))
)

func printError(w io.Writer, msg string) {
	fmt.Fprintln(w, errorStyle.Render("error: ")+msg)
}

// signed renders v with its sign, colored by direction.
func signed(v float64, suffix string) string {
	text := fmt.Sprintf("%+.2f%s", v, suffix)
	if v < 0 {
		return lossStyle.Render(text)
	}
	return gainStyle.Render(text)
}

func formatReturn(pct *float64) string {
	if pct == nil {
		return mutedStyle.Render("N/A")
	}
	return signed(*pct, "%")
}

func formatDate(h model.Holding) string {
	if h.PurchaseDate.IsZero() {
		return "-"
	}
	return h.PurchaseDate.Format(model.DateLayout)
}

func renderHoldings(holdings []model.Holding) string {
	if len(holdings) == 0 {
		return mutedStyle.Render("No holdings yet. Add one with: portfolio add TICKER SHARES DATE")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers("ID", "TICKER", "SHARES", "BUY", "PRICE", "VALUE", "GAIN/LOSS", "RETURN", "BOUGHT", "SECTOR")

	for _, h := range holdings {
		m := analytics.CalculateHolding(h)
		t.Row(
			h.ID,
			h.Ticker,
			fmt.Sprintf("%g", h.Shares),
			fmt.Sprintf("%.2f", h.BuyPrice),
			fmt.Sprintf("%.2f", h.CurrentPrice),
			fmt.Sprintf("%.2f", m.MarketValue),
			signed(m.GainLoss, ""),
			formatReturn(m.ReturnPct),
			formatDate(h),
			h.Sector,
		)
	}
	return t.String()
}

func renderSummary(snap service.Snapshot) string {
	m := snap.Metrics

	var b strings.Builder
	fmt.Fprintf(&b, "%s  value %.2f  cost %.2f  gain/loss %s (%s)  holdings %d",
		titleStyle.Render("Portfolio"),
		m.TotalValue,
		m.TotalCost,
		signed(m.TotalGainLoss, ""),
		signed(m.GainLossPercentage, "%"),
		m.TotalHoldings,
	)
	if m.BestPerformer != nil {
		fmt.Fprintf(&b, "  best %s %s", m.BestPerformer.Ticker, signed(m.BestPerformer.ReturnPct, "%"))
	}
	if m.WorstPerformer != nil {
		fmt.Fprintf(&b, "  worst %s %s", m.WorstPerformer.Ticker, signed(m.WorstPerformer.ReturnPct, "%"))
	}
	if n := len(snap.History); n > 0 {
		last := snap.History[n-1]
		fmt.Fprintf(&b, "  %s", mutedStyle.Render(fmt.Sprintf("(%s: %.2f)", last.Label, last.Value)))
	}
	return b.String()
}

func renderInsights(in analytics.Insights) string {
	var b strings.Builder

	fmt.Fprintln(&b, titleStyle.Render("Insights"))
	fmt.Fprintf(&b, "Total return:          %s\n", signed(in.TotalReturn, "%"))
	fmt.Fprintf(&b, "Average holding time:  %s\n", in.AverageHoldingTime)

	if len(in.Sectors) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, titleStyle.Render("Sector allocation"))
		for _, s := range in.Sectors {
			swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)).Render("■")
			fmt.Fprintf(&b, "%s %-20s %6.2f%%  %.2f\n", swatch, s.Sector, s.Percentage, s.Value)
		}
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, titleStyle.Render("Risks"))
	if len(in.Risks) == 0 {
		fmt.Fprintln(&b, mutedStyle.Render("No concentration risks found."))
	}
	for _, r := range in.Risks {
		fmt.Fprintf(&b, "%s %s\n", lossStyle.Render("!"), r.Title)
		fmt.Fprintf(&b, "  %s\n", mutedStyle.Render(r.Detail))
	}

	return strings.TrimRight(b.String(), "\n")
}

func renderSuggestions(suggestions []model.AdvisorySuggestion) string {
	var b strings.Builder
	for i, s := range suggestions {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s\n", titleStyle.Render(s.Title))
		if s.Description != "" {
			fmt.Fprintf(&b, "  %s\n", s.Description)
		}
		if s.Recommendation != "" {
			fmt.Fprintf(&b, "  %s\n", gainStyle.Render(s.Recommendation))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderMessage(msg model.ChatMessage) string {
	if msg.Role == model.RoleAdvisor {
		return advisorStyle.Render(msg.Content)
	}
	return msg.Content
}
