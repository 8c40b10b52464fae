package notify

import (
	"fmt"
	"math"
	"strings"

	"github.com/your-org/fdalert/internal/models"
)

// ChatTimeLayout is the timestamp format used in chat messages, always UTC.
const ChatTimeLayout = "2006-01-02 15:04:05 MST"

var markdownEscaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

// FormatChatMessage renders the chat relay text: a header line followed by
// one labeled field per line.
func FormatChatMessage(alert *models.AlertNotification) string {
	person := "Unknown Person"
	if alert.Payload.Person != nil && alert.Payload.Person.Name != "" {
		person = alert.Payload.Person.Name
	}

	var b strings.Builder
	b.WriteString("🔔 *Face Detection Alert*\n\n")
	fmt.Fprintf(&b, "👤 *Person:* %s\n", markdownEscaper.Replace(person))
	fmt.Fprintf(&b, "📹 *Camera:* %s\n", markdownEscaper.Replace(alert.CameraName))
	fmt.Fprintf(&b, "📊 *Confidence:* %d%%\n", int(math.Round(alert.Payload.Confidence*100)))
	fmt.Fprintf(&b, "⏰ *Time:* %s\n", alert.Timestamp.UTC().Format(ChatTimeLayout))

	if attrs := alert.Payload.Attributes; attrs != nil {
		if attrs.Age != nil {
			fmt.Fprintf(&b, "🎂 *Estimated Age:* ~%d\n", *attrs.Age)
		}
		if attrs.Gender != nil {
			fmt.Fprintf(&b, "⚥ *Gender:* %s\n", *attrs.Gender)
		}
	}
	return b.String()
}

func photoCaption(alert *models.AlertNotification) string {
	return "Detection from " + alert.CameraName
}
