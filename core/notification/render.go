package notification

import (
	"html"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
)

// Supported digest formats
const (
	MimeTypeText = "text/plain"
	MimeTypeHTML = "text/html"
)

type (
	// ListItem is one change. Description is plain text; URL and IconClass only show in HTML.
	ListItem struct {
		Description string    `json:"description"`
		URL         string    `json:"url,omitempty"`
		Timestamp   time.Time `json:"timestamp"`
		IconClass   string    `json:"icon_class,omitempty"`
	}

	SubscriptionInfo struct {
		Title string     `json:"title"`
		Items []ListItem `json:"items"`
	}
)

func (si SubscriptionInfo) HasNews() bool { return len(si.Items) > 0 }

// SpecificInfo renders the items as an HTML unordered list or as newline-joined plain text.
// It panics with an *UnknownMimeTypeError for any other mime type.
func (si SubscriptionInfo) SpecificInfo(mimeType string, trans ut.Translator) string {
	mustKnowMimeType(mimeType)

	var sb strings.Builder
	switch mimeType {
	case MimeTypeHTML:
		if !si.HasNews() {
			return ""
		}
		sb.WriteString(`<ul class="o_subscription_items">`)
		for _, item := range si.Items {
			sb.WriteString("\n<li>")
			if item.IconClass != "" {
				sb.WriteString(`<i class="` + html.EscapeString(item.IconClass) + `"></i> `)
			}
			if item.URL != "" {
				sb.WriteString(`<a href="` + html.EscapeString(item.URL) + `">` + html.EscapeString(item.Description) + `</a>`)
			} else {
				sb.WriteString(html.EscapeString(item.Description))
			}
			if !item.Timestamp.IsZero() {
				sb.WriteString(` <span class="o_date">` + html.EscapeString(formatTimestamp(item.Timestamp, trans)) + `</span>`)
			}
			sb.WriteString("</li>")
		}
		sb.WriteString("\n</ul>")
	case MimeTypeText:
		for i, item := range si.Items {
			if i > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString("- " + item.Description)
			if !item.Timestamp.IsZero() {
				sb.WriteString(" (" + formatTimestamp(item.Timestamp, trans) + ")")
			}
		}
	}
	return sb.String()
}

func mustKnowMimeType(mimeType string) {
	if mimeType != MimeTypeText && mimeType != MimeTypeHTML {
		panic(&UnknownMimeTypeError{MimeType: mimeType})
	}
}

func formatTimestamp(t time.Time, trans ut.Translator) string {
	if trans == nil {
		return t.Format("2006-01-02 15:04")
	}
	return trans.FmtDateMedium(t) + " " + trans.FmtTimeShort(t)
}
