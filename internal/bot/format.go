package bot

import (
	"fmt"
	"strings"

	"github.com/soyeahso/modseek/internal/domain"
)

// versionLegend is the first card of every version bundle, explaining the
// single-letter channel column.
const versionLegend = "Channels: R = Release, B = Beta, A = Alpha"

// searchResultText renders the textual companion of a result page. On
// media transports it is the caption under the screenshot; on text-only
// transports it is the whole result message.
func searchResultText(displayName, query string, page int, items []domain.SearchItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %q - page %d\n", displayName, query, page)
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.Name)
	}
	b.WriteString("Reply p<n> for another page, g<n> to open a result")
	return b.String()
}

// detailText renders the textual companion of a detail view.
func detailText(name, url string) string {
	return fmt.Sprintf("[Detail] %s\n%s\nReply v to list versions", name, url)
}

// versionBundle renders one page of versions as forwarded-message cards,
// legend first. Ordinals are page-relative because downloads are requested
// against the page the user is looking at.
func versionBundle(resourceName string, slice []domain.VersionRecord) []string {
	cards := make([]string, 0, len(slice)+2)
	cards = append(cards, fmt.Sprintf("Versions of %s", resourceName))
	cards = append(cards, versionLegend)
	for i, v := range slice {
		var b strings.Builder
		fmt.Fprintf(&b, "%d. %s\n", i+1, v.Name)
		fmt.Fprintf(&b, "Channel: %s | Game: %s\n", v.Channel, v.GameVersion)
		fmt.Fprintf(&b, "Platforms: %s\n", v.Platforms)
		fmt.Fprintf(&b, "Published: %s | Downloads: %s", v.Published, v.Downloads)
		cards = append(cards, b.String())
	}
	return cards
}

// versionFooter summarizes where the shown page sits in the full list.
func versionFooter(page, totalPages, start, end, total int) string {
	return fmt.Sprintf("Page %d/%d (%d-%d of %d versions). Reply v<n> for another page, d<n> to download.",
		page, totalPages, start+1, end, total)
}

// pickFile chooses the artifact to download: the primary file when one is
// marked, otherwise the first.
func pickFile(files []domain.VersionFile) domain.VersionFile {
	for _, f := range files {
		if f.Primary {
			return f
		}
	}
	return files[0]
}
