package station

import (
	"context"
	"fmt"
	"strings"

	"PriceStation/internal/model"
	"PriceStation/internal/notifier"
)

// HandleCommand answers a chat command and returns the reply.
func (s *Station) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	switch strings.ToLower(fields[0]) {
	case "/summary", "摘要":
		return notifier.FormatSummary(s.Alerts.Summary(s.Config.Summary.Symbols))
	case "/price", "價格":
		if len(fields) < 2 {
			return "用法: /price <symbol>"
		}
		q, ok := s.Alerts.Quotes.Quote(fields[1])
		if !ok {
			return fmt.Sprintf("%s: 無資料", fields[1])
		}
		line := fmt.Sprintf("%s (%s): %s", q.Symbol, q.Time.Format(model.DateLayout), notifier.FormatPrice(q.Price, q.Gold))
		if pct, ok := q.ChangePercent(); ok {
			line += " " + notifier.FormatChange(pct)
		}
		return line
	case "/update", "更新":
		if len(fields) < 2 {
			return "用法: /update <symbol>"
		}
		out, err := s.Update(ctx, fields[1], false)
		if err != nil {
			return fmt.Sprintf("❌ %s 更新失敗: %v", fields[1], err)
		}
		if out.RateLimit != nil {
			return fmt.Sprintf("⏳ %s: %v", out.Symbol, out.RateLimit)
		}
		return fmt.Sprintf("✅ %s 已更新 %d 筆資料", out.Symbol, out.Fetched)
	default:
		return "可用命令:\n• /summary\n• /price <symbol>\n• /update <symbol>"
	}
}
