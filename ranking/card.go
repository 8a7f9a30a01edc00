package ranking

import (
	"fmt"
	"strings"
)

const progressCells = 15

func ProgressBar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := (percent*progressCells + 50) / 100
	return "┃" + strings.Repeat("█", filled) + strings.Repeat("━", progressCells-filled) + "┃"
}

// Percentage of the way through the current level's XP band.
func Progress(xp, xpPerLevel int) int {
	if xpPerLevel <= 0 {
		return 0
	}
	p := (xp % xpPerLevel) * 100 / xpPerLevel
	if p > 100 {
		p = 100
	}
	return p
}

// HTML rank card for a single profile. A rank of zero or less leaves the rank line out.
func Card(p Profile, rank int, s Settings) string {
	pct := Progress(p.XP, s.XPPerLevel)
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", p.Name)
	if p.Username != "" {
		fmt.Fprintf(&b, "@%s\n", p.Username)
	}
	fmt.Fprintf(&b, "\nLEVEL %d\n", p.Level)
	if rank > 0 {
		fmt.Fprintf(&b, "RANK #%d\n", rank)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d / %d XP\n", p.XP, p.Level*s.XPPerLevel)
	fmt.Fprintf(&b, "%s %d%%\n\n", ProgressBar(pct), pct)
	fmt.Fprintf(&b, "Daily Streak: %d 🔥", p.Streak)
	return b.String()
}

// HTML top-N board.
func Board(top []Profile) string {
	var b strings.Builder
	b.WriteString("🏆 <b>TOP 10 USERS</b> 🏆\n")
	if len(top) == 0 {
		b.WriteString("\nNo ranked users yet.")
		return b.String()
	}
	for i, p := range top {
		name := p.Name
		if p.Username != "" {
			name = fmt.Sprintf("%s (@%s)", p.Name, p.Username)
		}
		fmt.Fprintf(&b, "\n%d. %s - Level %d (%d XP)", i+1, name, p.Level, p.XP)
	}
	return b.String()
}
