package render

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday"
)

const extensions = blackfriday.EXTENSION_NO_INTRA_EMPHASIS |
	blackfriday.EXTENSION_FENCED_CODE |
	blackfriday.EXTENSION_AUTOLINK |
	blackfriday.EXTENSION_STRIKETHROUGH |
	blackfriday.EXTENSION_HARD_LINE_BREAK |
	blackfriday.EXTENSION_NO_EMPTY_LINE_BEFORE_BLOCK

const htmlFlags = blackfriday.HTML_SKIP_HTML |
	blackfriday.HTML_SKIP_IMAGES |
	blackfriday.HTML_SKIP_STYLE

// Telegram accepts only a handful of inline tags; block tags are flattened
// to plain text.
var telegramTags = strings.NewReplacer(
	"<p>", "", "</p>", "\n",
	"<ul>", "", "</ul>", "",
	"<ol>", "", "</ol>", "",
	"<li>", "• ", "</li>", "",
	"<br>", "", "<br />", "",
	"<hr>", "", "<hr />", "",
	"<h1>", "<b>", "</h1>", "</b>\n",
	"<h2>", "<b>", "</h2>", "</b>\n",
	"<h3>", "<b>", "</h3>", "</b>\n",
	"<h4>", "<b>", "</h4>", "</b>\n",
	"<h5>", "<b>", "</h5>", "</b>\n",
	"<h6>", "<b>", "</h6>", "</b>\n",
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// ToHTML renders Markdown into the HTML subset Telegram's HTML parse mode accepts.
func ToHTML(markdown string) string {
	renderer := blackfriday.HtmlRenderer(htmlFlags, "", "")
	html := string(blackfriday.Markdown([]byte(markdown), renderer, extensions))

	html = telegramTags.Replace(html)
	html = blankLines.ReplaceAllString(html, "\n\n")
	return strings.TrimSpace(html)
}
