package gamelist

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/beevik/etree"

	"romscribe/internal/fileutil"
)

// FileName is the document written at the root of the output directory.
const FileName = "gamelist.xml"

const (
	rootElement = "gameList"
	gameElement = "game"
)

// Document builds the XML tree for list. Child elements follow a fixed
// order; image is emitted only when set.
func Document(list *List) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := doc.CreateElement(rootElement)
	for _, game := range list.Games() {
		appendGame(root, game)
	}
	doc.Indent(2)
	return doc
}

func appendGame(root *etree.Element, g Game) {
	el := root.CreateElement(gameElement)
	el.CreateElement("path").SetText(g.Path)
	el.CreateElement("name").SetText(g.Name)
	el.CreateElement("desc").SetText(g.Desc)
	if g.Image != "" {
		el.CreateElement("image").SetText(g.Image)
	}
	el.CreateElement("rating").SetText(strconv.FormatFloat(g.Rating, 'f', -1, 64))
	el.CreateElement("releasedate").SetText(g.ReleaseDate)
	el.CreateElement("developer").SetText(g.Developer)
	el.CreateElement("publisher").SetText(g.Publisher)
	el.CreateElement("genre").SetText(g.Genre)
	el.CreateElement("players").SetText(strconv.Itoa(g.Players))
}

// Encode writes the serialized document for list to w.
func Encode(w io.Writer, list *List) error {
	if _, err := Document(list).WriteTo(w); err != nil {
		return fmt.Errorf("encode game list: %w", err)
	}
	return nil
}

// Write serializes list to path in one atomic write. A failed write leaves
// no document behind.
func Write(path string, list *List) error {
	if err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return Encode(w, list)
	}); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Read parses a previously written document for the list command. Runs
// never read their own output.
func Read(path string) ([]Game, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	root := doc.SelectElement(rootElement)
	if root == nil {
		return nil, fmt.Errorf("parse %s: missing <%s> root", path, rootElement)
	}
	var games []Game
	for _, el := range root.SelectElements(gameElement) {
		g := Game{
			Path:        childText(el, "path"),
			Name:        childText(el, "name"),
			Desc:        childText(el, "desc"),
			Image:       childText(el, "image"),
			ReleaseDate: childText(el, "releasedate"),
			Developer:   childText(el, "developer"),
			Publisher:   childText(el, "publisher"),
			Genre:       childText(el, "genre"),
		}
		if raw := childText(el, "rating"); raw != "" {
			if g.Rating, err = strconv.ParseFloat(raw, 64); err != nil {
				return nil, fmt.Errorf("parse %s: rating %q: %w", path, raw, err)
			}
		}
		if raw := childText(el, "players"); raw != "" {
			if g.Players, err = strconv.Atoi(raw); err != nil {
				return nil, fmt.Errorf("parse %s: players %q: %w", path, raw, err)
			}
		}
		games = append(games, g)
	}
	return games, nil
}

func childText(el *etree.Element, tag string) string {
	child := el.SelectElement(tag)
	if child == nil {
		return ""
	}
	return child.Text()
}
