package tracker

import (
	"fmt"
	"strings"
)

const (
	// contentPreviewLength bounds the raw content captured from the upstream
	// document; messagePreviewLength bounds what a notification shows.
	contentPreviewLength = 200
	messagePreviewLength = 100
)

// FormatEnrichedSuccess is the fully-enriched terminal message: file, AI
// metadata, and a content preview when available.
func FormatEnrichedSuccess(item *Item) string {
	var b strings.Builder
	b.WriteString("✅ **Document Processed Successfully!**\n\n")
	fmt.Fprintf(&b, "📄 **File:** %s\n", item.DisplayName)

	if ai := item.Enrichment; ai != nil {
		if ai.Title != "" && ai.Title != item.DisplayName {
			fmt.Fprintf(&b, "📝 **Title:** %s\n", ai.Title)
		}
		if len(ai.Tags) > 0 {
			fmt.Fprintf(&b, "🏷️ **Tags:** %s\n", strings.Join(ai.Tags, ", "))
		}
		if ai.Correspondent != "" {
			fmt.Fprintf(&b, "👤 **Correspondent:** %s\n", ai.Correspondent)
		}
		if ai.DocumentType != "" {
			fmt.Fprintf(&b, "📋 **Type:** %s\n", ai.DocumentType)
		}
		if ai.ContentPreview != "" {
			fmt.Fprintf(&b, "\n💬 **Preview:** _%s_\n", truncate(ai.ContentPreview, messagePreviewLength))
		}
	}
	b.WriteString("\n🤖 *AI analysis complete - document is searchable!*")
	return b.String()
}

// FormatSuccessNoEnrichment is the terminal message when no enrichment
// service is configured: indexing finished, nothing more is coming.
func FormatSuccessNoEnrichment(item *Item) string {
	var b strings.Builder
	b.WriteString("✅ **Document Processed Successfully!**\n\n")
	fmt.Fprintf(&b, "📄 **File:** %s\n", item.DisplayName)
	if item.DocumentID != 0 {
		fmt.Fprintf(&b, "🆔 **Document ID:** %d\n", item.DocumentID)
	}
	b.WriteString("\n✅ *Document uploaded and indexed in Paperless-NGX*\n")
	b.WriteString("📝 *Ready for searching and manual tagging*")
	return b.String()
}

// FormatBasicSuccess is the degraded terminal message used whenever tracking
// gives up before full confirmation: the upload almost certainly landed, but
// the later milestones were never observed.
func FormatBasicSuccess(item *Item) string {
	var b strings.Builder
	b.WriteString("✅ **Document Upload Complete!**\n\n")
	fmt.Fprintf(&b, "📄 **File:** %s\n", item.DisplayName)
	b.WriteString("✅ *Document should be processed and available in Paperless-NGX*\n")
	b.WriteString("🔍 *Try searching for it in a moment*")
	return b.String()
}

// FormatTimeout is the terminal message when the upload task itself never
// finished within budget.
func FormatTimeout(item *Item) string {
	var b strings.Builder
	b.WriteString("⏱️ **Document Processing Timeout**\n\n")
	fmt.Fprintf(&b, "📄 File: %s\n", item.DisplayName)
	if item.DocumentID != 0 {
		fmt.Fprintf(&b, "✅ Document was uploaded (ID: %d)\n", item.DocumentID)
		b.WriteString("⏳ But AI analysis is still pending.\n\n")
		b.WriteString("The document is searchable, but may lack AI-generated tags.")
	} else {
		b.WriteString("⚠️ Processing is taking longer than expected.\n")
		b.WriteString("Please check Paperless-NGX directly.")
	}
	return b.String()
}

// FormatFailure is the terminal message when the upstream task reports an
// explicit failure.
func FormatFailure(item *Item, reason string) string {
	var b strings.Builder
	b.WriteString("❌ **Document Processing Failed**\n\n")
	fmt.Fprintf(&b, "📄 File: %s\n", item.DisplayName)
	if reason != "" {
		fmt.Fprintf(&b, "⚠️ Error: %s\n", reason)
	}
	b.WriteString("\nPlease try uploading again or check the document format.")
	return b.String()
}

// truncate shortens s to at most limit characters, appending an ellipsis when
// anything was cut. Limit is in runes so multi-byte content never splits.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
