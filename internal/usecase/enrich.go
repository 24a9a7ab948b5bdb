package usecase

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/matthewd-so/The-Game-Gazette/internal/domain"
)

const maxSourceURLs = 4

// Slugify lowercases the title, collapses runs of non-alphanumerics into
// single hyphens, trims edge hyphens, and caps the result at 100 chars.
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > 100 {
		slug = strings.Trim(slug[:100], "-")
	}
	return slug
}

// uniqueSlug appends a base-36 millisecond timestamp so identical titles
// still produce distinct slugs across and within runs.
func uniqueSlug(title string, now time.Time) string {
	return Slugify(title) + "-" + strconv.FormatInt(now.UnixMilli(), 36)
}

// normalizeText lowercases s and strips everything but letters, digits, and
// spaces, keeping the substring matching predictable.
func normalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// firstToken returns the first whitespace-separated token of the normalized
// form of s, or "" when nothing survives normalization.
func firstToken(s string) string {
	fields := strings.Fields(normalizeText(s))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// titleMatchesGame reports whether a research-item title mentions the
// game's first word. Deliberately loose: source links are best-effort
// further reading, not guaranteed citations.
func titleMatchesGame(title, gameName string) bool {
	token := firstToken(gameName)
	if token == "" {
		return false
	}
	return strings.Contains(normalizeText(title), token)
}

// sourceLinks selects up to four attribution URLs for a story: two from
// discussion posts and two from news items whose titles mention the game.
func sourceLinks(bundle domain.ResearchBundle, gameName string) []string {
	var links []string

	matched := 0
	for _, p := range bundle.Discussions {
		if matched == 2 {
			break
		}
		if titleMatchesGame(p.Title, gameName) && p.Permalink != "" {
			links = append(links, p.Permalink)
			matched++
		}
	}

	matched = 0
	for _, n := range bundle.News {
		if matched == 2 {
			break
		}
		if titleMatchesGame(n.Title, gameName) && n.Link != "" {
			links = append(links, n.Link)
			matched++
		}
	}

	if len(links) > maxSourceURLs {
		links = links[:maxSourceURLs]
	}
	return links
}

// injectHeroImage guarantees the resolved image shows up in the article
// body. Content already referencing the URL is left alone; otherwise a
// markdown image lands after the first paragraph break, or at the top when
// the content has no break at all.
func injectHeroImage(content, gameName, imageURL string) string {
	if imageURL == "" || strings.Contains(content, imageURL) {
		return content
	}

	ref := fmt.Sprintf("![%s](%s)", gameName, imageURL)
	if idx := strings.Index(content, "\n\n"); idx > 0 {
		return content[:idx] + "\n\n" + ref + "\n\n" + content[idx+2:]
	}
	return ref + "\n\n" + content
}
