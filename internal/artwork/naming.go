package artwork

import (
	"fmt"
	"strings"

	"romscribe/internal/gamelist"
	"romscribe/internal/textutil"
)

// DefaultPromptTemplate is used when no template is configured.
const DefaultPromptTemplate = "Box art for the video game {name}. {desc}"

// Prompt fills the {name} and {desc} placeholders of template from g.
func Prompt(template string, g gamelist.Game) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultPromptTemplate
	}
	return strings.NewReplacer("{name}", g.Name, "{desc}", g.Desc).Replace(template)
}

// Namer hands out lowercased PNG file names, keeping them unique within a
// run so two games with the same name never share one image.
type Namer struct {
	issued map[string]bool
	next   map[string]int
}

// NewNamer returns an empty Namer.
func NewNamer() *Namer {
	return &Namer{issued: make(map[string]bool), next: make(map[string]int)}
}

// Next returns the file name for a game name. fallback is used when the
// game name sanitizes to nothing.
func (n *Namer) Next(name, fallback string) string {
	base := textutil.LowerFileName(name)
	if base == "" {
		base = textutil.LowerFileName(strings.TrimSuffix(fallback, ".zip"))
	}
	if base == "" {
		base = "game"
	}
	stem := base
	for suffix := n.next[base]; n.issued[stem]; suffix++ {
		if suffix < 2 {
			suffix = 2
		}
		stem = fmt.Sprintf("%s (%d)", base, suffix)
		n.next[base] = suffix + 1
	}
	n.issued[stem] = true
	return stem + ".png"
}
