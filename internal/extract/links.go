package extract

import "regexp"

var (
	imageRe = regexp.MustCompile(`!\[([^\]]*?)\]\([^)]*?\)`)
	linkRe  = regexp.MustCompile(`\[([^\]]*?)\]\([^)]*?\)`)
)

// StripLinks replaces Markdown images with their alt text and links with
// their text. Nested markup can form a new link once the inner one is
// removed, so replacement runs until the text stops changing.
func StripLinks(text string) string {
	for {
		next := linkRe.ReplaceAllString(imageRe.ReplaceAllString(text, "$1"), "$1")
		if next == text {
			return next
		}
		text = next
	}
}
