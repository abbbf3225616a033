package router

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"hookbot/internal/services/broadcast"
	"hookbot/internal/transport"
)

func formatSummary(sum broadcast.Summary) string {
	return fmt.Sprintf(
		"📣 Queue status:\n📌 Job: %s\n✅ Delivered: %d\n❌ Failed: %d\n⏳ Remaining: %d\nStatus: %s",
		sum.JobID, sum.Success, sum.Failed, sum.Remaining, sum.Status,
	)
}

func formatWebhookInfo(info transport.APIResult) string {
	if !info.OK {
		desc := info.Description
		if desc == "" {
			desc = "failed to reach Telegram"
		}
		return "❌ Could not fetch webhook status: " + desc
	}
	return "ℹ️ Webhook status:\n<code>" + htmlEscape(info.ResultJSON) + "</code>"
}

func supportText(contacts []string) string {
	var b strings.Builder
	b.WriteString("💬 Bot support:\n\n")
	for _, c := range contacts {
		fmt.Fprintf(&b, "👨‍💻 %s\n", c)
	}
	b.WriteString("\nContact any of the above for help.")
	return b.String()
}

func htmlEscape(s string) string {
	rep := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return rep.Replace(s)
}

// recentErrorCount samples the tail of the JSON log file and counts error
// records. Best-effort: a missing or unreadable file counts as zero.
func recentErrorCount(path string, sample int) int {
	if strings.TrimSpace(path) == "" {
		return 0
	}
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	lines := make([]string, 0, sample)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
		if len(lines) > sample {
			lines = lines[1:]
		}
	}

	n := 0
	for _, line := range lines {
		if strings.Contains(line, `"level":"error"`) {
			n++
		}
	}
	return n
}
