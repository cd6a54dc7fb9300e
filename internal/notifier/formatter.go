package notifier

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"PriceStation/internal/alert"
)

// FormatPrice renders a price with thousands separators. Gold is quoted in whole dollars.
func FormatPrice(v float64, whole bool) string {
	if whole {
		return humanize.FormatFloat("#,###.", math.Round(v))
	}
	return humanize.FormatFloat("#,###.##", v)
}

// FormatChange renders a percentage move with a direction arrow.
func FormatChange(pct float64) string {
	switch {
	case pct > 0:
		return fmt.Sprintf("🔺 %.2f%%", math.Abs(pct))
	case pct < 0:
		return fmt.Sprintf("🔻 %.2f%%", math.Abs(pct))
	default:
		return fmt.Sprintf("➖ %.2f%%", 0.0)
	}
}

// FormatSummary formats the daily market summary.
func FormatSummary(quotes []alert.Quote) string {
	var b strings.Builder
	b.WriteString("📊 每日行情摘要")
	for _, q := range quotes {
		b.WriteString(fmt.Sprintf("\n%s (%s): %s", q.Symbol, q.Time.Format("01/02"), FormatPrice(q.Price, q.Gold)))
		if pct, ok := q.ChangePercent(); ok {
			b.WriteString(" " + FormatChange(pct))
		}
	}
	return b.String()
}

// FormatAlert formats one fired alert.
func FormatAlert(a alert.Alert) string {
	q := a.Quote
	price := FormatPrice(q.Price, q.Gold)
	if a.Kind == alert.TypePriceTarget {
		side := "高於"
		if a.Rule.Direction == "below" {
			side = "低於"
		}
		return fmt.Sprintf("🎯 %s 到價通知: %s (%s %s)", q.Name, price, side, FormatPrice(a.Rule.TargetPrice, q.Gold))
	}
	indicator := "📈"
	if a.ChangePct < 0 {
		indicator = "📉"
	}
	return fmt.Sprintf("🚨 異常變動 %s: %s %s %.2f%% (相較於前次報價)", q.Name, price, indicator, math.Abs(a.ChangePct))
}

// FormatMessage joins an optional summary and fired alerts into one message.
// It returns "" when there is nothing to say.
func FormatMessage(summary string, alerts []alert.Alert) string {
	var parts []string
	if summary != "" {
		parts = append(parts, summary)
	}
	if len(alerts) > 0 {
		lines := make([]string, 0, len(alerts)+1)
		lines = append(lines, "⚠️ 觸發警報:")
		for _, a := range alerts {
			lines = append(lines, FormatAlert(a))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n")
}
