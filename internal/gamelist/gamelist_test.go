package gamelist_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"romscribe/internal/gamelist"
)

func sonic() gamelist.Game {
	return gamelist.Game{
		Path:        "/roms/sonic.zip",
		Name:        "Sonic the Hedgehog",
		Desc:        "A fast blue hedgehog & friends",
		Rating:      0.9,
		ReleaseDate: "1991-06-23",
		Developer:   "Sonic Team",
		Publisher:   "Sega",
		Genre:       "Platform",
		Players:     1,
	}
}

func TestListPreservesOrderAndPatchesInPlace(t *testing.T) {
	var list gamelist.List
	for _, name := range []string{"a", "b", "c"} {
		list.Append(gamelist.Game{Name: name})
	}
	if list.Len() != 3 {
		t.Fatalf("expected 3 games, got %d", list.Len())
	}
	list.At(1).Image = "./media/images/b.png"

	games := list.Games()
	for i, want := range []string{"a", "b", "c"} {
		if games[i].Name != want {
			t.Fatalf("game %d: got %q want %q", i, games[i].Name, want)
		}
	}
	if games[1].Image != "./media/images/b.png" {
		t.Fatalf("expected in-place patch, got %q", games[1].Image)
	}
	games[0].Name = "mutated"
	if list.At(0).Name != "a" {
		t.Fatal("Games must return a copy")
	}
}

func TestEncodeElementOrder(t *testing.T) {
	var list gamelist.List
	list.Append(sonic())

	var buf bytes.Buffer
	if err := gamelist.Encode(&buf, &list); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`) {
		t.Fatalf("missing xml declaration: %q", out)
	}
	order := []string{"<gameList>", "<game>", "<path>", "<name>", "<desc>", "<rating>0.9</rating>",
		"<releasedate>", "<developer>", "<publisher>", "<genre>", "<players>1</players>"}
	last := -1
	for _, tag := range order {
		idx := strings.Index(out, tag)
		if idx < 0 {
			t.Fatalf("missing %s in %q", tag, out)
		}
		if idx <= last {
			t.Fatalf("%s out of order in %q", tag, out)
		}
		last = idx
	}
	if strings.Contains(out, "<image>") {
		t.Fatalf("image must be omitted when unset: %q", out)
	}
	if !strings.Contains(out, "hedgehog &amp; friends") {
		t.Fatalf("expected escaped text, got %q", out)
	}
}

func TestEncodeIncludesImageWhenSet(t *testing.T) {
	var list gamelist.List
	g := sonic()
	g.Image = "./media/images/sonic the hedgehog.png"
	list.Append(g)

	var buf bytes.Buffer
	if err := gamelist.Encode(&buf, &list); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	out := buf.String()
	desc := strings.Index(out, "<desc>")
	image := strings.Index(out, "<image>")
	rating := strings.Index(out, "<rating>")
	if image < 0 || image < desc || image > rating {
		t.Fatalf("image element misplaced: %q", out)
	}
}

func TestEncodeEmptyList(t *testing.T) {
	var buf bytes.Buffer
	if err := gamelist.Encode(&buf, &gamelist.List{}); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "<gameList/>") {
		t.Fatalf("expected empty root element, got %q", buf.String())
	}
}

func TestWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), gamelist.FileName)
	var list gamelist.List
	list.Append(sonic())
	second := sonic()
	second.Path = "/roms/ecco.zip"
	second.Name = "Ecco the Dolphin"
	second.Players = 0
	list.Append(second)

	if err := gamelist.Write(path, &list); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	games, err := gamelist.Read(path)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(games))
	}
	if games[0] != sonic() {
		t.Fatalf("round trip mismatch: got %+v want %+v", games[0], sonic())
	}
	if games[1].Name != "Ecco the Dolphin" || games[1].Players != 0 {
		t.Fatalf("unexpected second game %+v", games[1])
	}
}

func TestWriteFailsForMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", gamelist.FileName)
	if err := gamelist.Write(path, &gamelist.List{}); err == nil {
		t.Fatal("expected write error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no document, stat err=%v", err)
	}
}

func TestReadRejectsForeignDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.xml")
	if err := os.WriteFile(path, []byte("<root/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := gamelist.Read(path); err == nil {
		t.Fatal("expected error for missing gameList root")
	}
}
