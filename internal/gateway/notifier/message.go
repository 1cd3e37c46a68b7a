package notifier

import (
	"fmt"
	"strings"
	"time"

	"paperperp/internal/engine"
)

const maxStructuredMessageLen = 3800

// MessageSection 表示通知中的一个段落。
type MessageSection struct {
	Title string
	Lines []string
}

// StructuredMessage 描述统一格式的 Telegram 推送。
type StructuredMessage struct {
	Icon      string
	Title     string
	Sections  []MessageSection
	Footer    string
	Timestamp time.Time
}

// RenderMarkdown 生成 Markdown 文本，自动裁剪长度。
func (m StructuredMessage) RenderMarkdown() string {
	var b strings.Builder
	header := strings.TrimSpace(strings.TrimSpace(m.Icon + " " + m.Title))
	if header != "" {
		b.WriteString(header + "\n\n")
	}
	if block := renderSections(m.Sections); block != "" {
		b.WriteString(block)
	}
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString(sanitize(footer))
		b.WriteString("\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("时间：" + m.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}
	body := strings.TrimSpace(b.String())
	if len(body) > maxStructuredMessageLen {
		body = body[:maxStructuredMessageLen] + "..."
	}
	return body
}

// BuildCloseMessage 把一笔自动平仓的成交渲染成推送消息。
func BuildCloseMessage(t engine.Trade) StructuredMessage {
	icon := "✅"
	title := "模拟仓位已平仓"
	switch t.CloseReason {
	case engine.CloseLiquidated:
		icon = "💥"
		title = "模拟仓位被强平"
	case engine.CloseTakeProfit:
		icon = "🎯"
		title = "模拟仓位止盈离场"
	case engine.CloseStopLoss:
		icon = "🛑"
		title = "模拟仓位止损离场"
	}
	lines := []string{
		fmt.Sprintf("交易对: %s", t.Symbol),
		fmt.Sprintf("方向: %s", t.Side),
		fmt.Sprintf("价格: %.6g", t.Price),
		fmt.Sprintf("数量: %.6g", t.Quantity),
		fmt.Sprintf("杠杆: %dx", t.Leverage),
		fmt.Sprintf("已实现盈亏: %+.2f USDT", t.RealizedPnL),
	}
	if t.Fee > 0 {
		lines = append(lines, fmt.Sprintf("手续费: %.4f USDT", t.Fee))
	}
	return StructuredMessage{
		Icon:      icon,
		Title:     title,
		Sections:  []MessageSection{{Title: "平仓明细", Lines: lines}},
		Timestamp: t.Timestamp,
	}
}

func renderSections(secs []MessageSection) string {
	hasContent := false
	for _, sec := range secs {
		if len(sanitizeLines(sec.Lines)) > 0 {
			hasContent = true
			break
		}
	}
	if !hasContent {
		return ""
	}
	var b strings.Builder
	b.WriteString("```\n")
	for idx, sec := range secs {
		lines := sanitizeLines(sec.Lines)
		if len(lines) == 0 {
			continue
		}
		title := strings.TrimSpace(sec.Title)
		if title != "" {
			b.WriteString(sanitize(title))
			b.WriteString("\n")
		}
		for _, line := range lines {
			b.WriteString("- ")
			b.WriteString(sanitize(line))
			b.WriteString("\n")
		}
		if idx != len(secs)-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString("```\n\n")
	return b.String()
}

func sanitizeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if text := strings.TrimSpace(line); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "```", "'''")
	return s
}
