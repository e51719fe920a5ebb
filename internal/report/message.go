// Package report builds the daily cluster report and delivers it to a Slack
// incoming webhook.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/growthlab/backend/internal/clusters"
	"github.com/growthlab/backend/internal/domain"
)

// Message is a Slack Block Kit payload.
type Message struct {
	Text   string  `json:"text,omitempty"`
	Blocks []Block `json:"blocks"`
}

// Block is a single layout block.
type Block struct {
	Type string      `json:"type"`
	Text *TextObject `json:"text,omitempty"`
}

// TextObject is a plain_text or mrkdwn text element.
type TextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func header(text string) Block {
	return Block{Type: "header", Text: &TextObject{Type: "plain_text", Text: text}}
}

func section(text string) Block {
	return Block{Type: "section", Text: &TextObject{Type: "mrkdwn", Text: text}}
}

func divider() Block {
	return Block{Type: "divider"}
}

// Report is the data behind one message.
type Report struct {
	// FirstRun is set when no previous customer snapshot existed.
	FirstRun    bool
	Transitions []domain.Transition
	Joined      int
	Left        int

	Clusters []domain.ClusterAggregate
	// Deltas is nil when there was no previous aggregate table to compare.
	Deltas []clusters.AggregateDelta
}

// BuildMessage renders r. The output depends only on r and now.
func BuildMessage(r Report, now time.Time) Message {
	title := fmt.Sprintf("📈 Daily Growth Report (%s)", now.Format("02/01/2006"))

	blocks := []Block{
		header(title),
		section(migrationText(r)),
		divider(),
		header("🔍 Current Cluster X-ray"),
	}

	deltas := make(map[string]clusters.AggregateDelta, len(r.Deltas))
	for _, d := range r.Deltas {
		deltas[d.Cluster] = d
	}
	for _, c := range r.Clusters {
		text := clusterText(c)
		if d, ok := deltas[c.Cluster]; ok {
			text += "\n" + deltaText(d)
		}
		blocks = append(blocks, section(text))
	}

	if r.Deltas != nil {
		blocks = append(blocks, divider(), section(dropsText(r.Deltas)))
	}

	return Message{Text: title, Blocks: blocks}
}

func migrationText(r Report) string {
	if r.FirstRun {
		return "First run: today's snapshot was saved, migrations will be reported from tomorrow."
	}

	var b strings.Builder
	if len(r.Transitions) == 0 {
		b.WriteString("No customer migrations between clusters were detected today.")
	} else {
		b.WriteString("Top movements today:")
		for _, t := range r.Transitions {
			fmt.Fprintf(&b, "\n➡️ %d customers moved from '%s' to '%s'", t.Count, t.From, t.To)
		}
	}
	fmt.Fprintf(&b, "\n🆕 New customers: %d | 👋 Gone: %d", r.Joined, r.Left)
	return b.String()
}

func clusterText(c domain.ClusterAggregate) string {
	return fmt.Sprintf("*%s* (%d customers)\n> Recency: `%.0fd` | Frequency: `%.0f` | Spend: `R$ %s`",
		c.Cluster, c.CustomerCount, c.MeanRecency, c.MeanFrequency, money(c.MeanMonetary))
}

func deltaText(d clusters.AggregateDelta) string {
	return fmt.Sprintf("> 💰 %s `R$ %s` (%+.2f%%) | 🔁 %s `%.2f` (%+.2f%%) | 👥 %s `%d` (%+.2f%%)",
		trend(d.MonetaryDiff), money(d.MonetaryDiff), d.MonetaryPct,
		trend(d.FrequencyDiff), d.FrequencyDiff, d.FrequencyPct,
		trend(float64(d.CustomerDiff)), d.CustomerDiff, d.CustomerPct)
}

func dropsText(deltas []clusters.AggregateDelta) string {
	var alerts []string
	for _, d := range deltas {
		drops := d.Drops()
		if len(drops) == 0 {
			continue
		}
		parts := make([]string, len(drops))
		for i, m := range drops {
			parts[i] = fmt.Sprintf("%s (%.2f%%)", m, d.Pct(m))
		}
		alerts = append(alerts, fmt.Sprintf("- `%s`: down in %s", d.Cluster, strings.Join(parts, ", ")))
	}

	if len(alerts) == 0 {
		return "✅ No cluster dropped today."
	}
	return "🔍 *Attention! Some clusters dropped:*\n" + strings.Join(alerts, "\n") +
		"\n🔧 *Suggestion:* review reactivation campaigns or run a churn analysis on these clusters."
}

func trend(diff float64) string {
	switch {
	case diff > 0:
		return "📈"
	case diff < 0:
		return "📉"
	default:
		return "➖"
	}
}

// money formats v with two decimals and comma thousands separators.
func money(v float64) string {
	s := strconv.FormatFloat(math.Abs(v), 'f', 2, 64)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if v < 0 && s != "0.00" {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
