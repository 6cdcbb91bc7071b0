package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"workshop-optimizer/internal/gamedata"
	"workshop-optimizer/internal/gateway"
	"workshop-optimizer/internal/island"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	arrow       = mutedStyle.Render(" → ")
)

// FormatResult renders ranked plans, one block per chain.
func FormatResult(plans []gateway.Plan) string {
	if len(plans) == 0 {
		return "no production chains found\n"
	}

	var b strings.Builder
	for i, p := range plans {
		if i > 0 {
			b.WriteString(mutedStyle.Render("-------------------") + "\n")
		}
		fmt.Fprintf(&b, "%s value %s  groove %d  %dh\n",
			headerStyle.Render(fmt.Sprintf("#%d", i+1)),
			valueStyle.Render(fmt.Sprint(p.Value)),
			p.Groove, p.Time)

		parts := make([]string, len(p.Products))
		for j, prod := range p.Products {
			parts[j] = fmt.Sprintf("%s(%dh)", prod.Name, prod.Time)
		}
		b.WriteString(strings.Join(parts, arrow) + "\n")
	}
	return b.String()
}

// FormatIsland renders the saved settings with the values derived from them.
func FormatIsland(is *island.Island, d *gamedata.Data) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d / %d\n", headerStyle.Render("Rank:"), is.Rank, d.MaxRank)
	fmt.Fprintf(&b, "%s %d (max groove %d)\n", headerStyle.Render("Landmarks:"), is.Landmarks, is.MaxGroove(d))
	fmt.Fprintf(&b, "%s %d\n", headerStyle.Render("Groove:"), is.Groove)

	fmt.Fprintf(&b, "%s %d built, %d allowed at this rank\n",
		headerStyle.Render("Workshops:"), len(is.WorkshopModifiers(d)), is.MaxWorkshops(d))
	for i, tier := range is.Workshops {
		name := "unbuilt"
		if tier >= 0 && tier < len(d.Tiers) {
			t := d.Tiers[tier]
			name = fmt.Sprintf("%s (x%.1f)", t.Name, t.Modifier)
		}
		fmt.Fprintf(&b, "  %d: %s\n", i, name)
	}

	var changed []string
	for i := range d.Products {
		p := &d.Products[i]
		st, ok := is.Products[p.ID]
		if !ok {
			continue
		}
		line := fmt.Sprintf("  %-28s popularity %-8s supply %s",
			p.Name, is.Popularity(p.ID), is.Supply(p.ID))
		if st.PredictedDemand != "" {
			line += mutedStyle.Render("  next: " + st.PredictedDemand)
		}
		changed = append(changed, line)
	}
	if len(changed) == 0 {
		b.WriteString(mutedStyle.Render("All products at average popularity and sufficient supply.") + "\n")
	} else {
		b.WriteString(headerStyle.Render("Market:") + "\n")
		b.WriteString(strings.Join(changed, "\n") + "\n")
	}
	return b.String()
}
