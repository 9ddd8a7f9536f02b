package artwork_test

import (
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"romscribe/internal/artwork"
	"romscribe/internal/diffusion"
	"romscribe/internal/gamelist"
)

func TestRasterScalesRoundsAndClips(t *testing.T) {
	tensor := diffusion.NewTensor(3, 2, 2)
	red := []float32{-0.5, 0.5, 1.5, float32(math.NaN())}
	for i, v := range red {
		y, x := i/2, i%2
		tensor.Set(0, y, x, v)
		tensor.Set(1, y, x, 0.2)
		tensor.Set(2, y, x, 1)
	}

	img, err := artwork.Raster(tensor, 2)
	if err != nil {
		t.Fatalf("Raster returned error: %v", err)
	}
	wantRed := []uint8{0, 128, 255, 0}
	for i, want := range wantRed {
		y, x := i/2, i%2
		c := img.RGBAAt(x, y)
		if c.R != want {
			t.Fatalf("pixel %d red: got %d want %d", i, c.R, want)
		}
		if c.G != 51 || c.B != 255 || c.A != 255 {
			t.Fatalf("pixel %d: unexpected color %+v", i, c)
		}
	}
}

func TestRasterResizesToOutputSize(t *testing.T) {
	tensor := diffusion.NewTensor(3, 768, 768)
	for i := range tensor.Data {
		tensor.Data[i] = 0.5
	}
	img, err := artwork.Raster(tensor, 0)
	if err != nil {
		t.Fatalf("Raster returned error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 512 || b.Dy() != 512 {
		t.Fatalf("expected 512x512, got %v", b)
	}
	if c := img.RGBAAt(256, 256); c.R != 128 || c.A != 255 {
		t.Fatalf("unexpected center pixel %+v", c)
	}
}

func TestRasterGrayscaleAndInvalid(t *testing.T) {
	gray := diffusion.NewTensor(1, 1, 1)
	gray.Set(0, 0, 0, 1)
	img, err := artwork.Raster(gray, 1)
	if err != nil {
		t.Fatalf("Raster returned error: %v", err)
	}
	if c := img.RGBAAt(0, 0); c.R != 255 || c.G != 255 || c.B != 255 {
		t.Fatalf("expected white pixel, got %+v", c)
	}
	if _, err := artwork.Raster(diffusion.NewTensor(2, 1, 1), 1); err == nil {
		t.Fatal("expected two-channel tensor to be rejected")
	}
	if _, err := artwork.Raster(&diffusion.Tensor{Channels: 3, Height: 1, Width: 1}, 1); err == nil {
		t.Fatal("expected malformed tensor to be rejected")
	}
}

func TestWritePNG(t *testing.T) {
	tensor := diffusion.NewTensor(3, 64, 64)
	img, err := artwork.Raster(tensor, 512)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "sonic the hedgehog.png")
	if err := artwork.WritePNG(path, img); err != nil {
		t.Fatalf("WritePNG returned error: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("DecodeConfig returned error: %v", err)
	}
	if cfg.Width != 512 || cfg.Height != 512 {
		t.Fatalf("unexpected dimensions %dx%d", cfg.Width, cfg.Height)
	}
}

func TestPrompt(t *testing.T) {
	g := gamelist.Game{Name: "Sonic", Desc: "Run fast."}
	if got := artwork.Prompt("", g); got != "Box art for the video game Sonic. Run fast." {
		t.Fatalf("unexpected default prompt %q", got)
	}
	if got := artwork.Prompt("{name} / {name}: {desc}", g); got != "Sonic / Sonic: Run fast." {
		t.Fatalf("unexpected custom prompt %q", got)
	}
}

func TestNamer(t *testing.T) {
	n := artwork.NewNamer()
	cases := []struct {
		name, fallback, want string
	}{
		{"Sonic The Hedgehog", "sonic.zip", "sonic the hedgehog.png"},
		{"SONIC the hedgehog", "sonic2.zip", "sonic the hedgehog (2).png"},
		{"Ecco: The Dolphin", "ecco.zip", "ecco- the dolphin.png"},
		{"???", "Mystery Game.zip", "mystery game.png"},
		{"", "", "game.png"},
		{"Sonic (2)", "sonic-literal.zip", "sonic (2).png"},
		{"Sonic", "sonic-a.zip", "sonic.png"},
		{"sonic", "sonic-b.zip", "sonic (3).png"},
		{"Sonic (3)", "sonic-c.zip", "sonic (3) (2).png"},
	}
	for _, tc := range cases {
		if got := n.Next(tc.name, tc.fallback); got != tc.want {
			t.Fatalf("Next(%q, %q): got %q want %q", tc.name, tc.fallback, got, tc.want)
		}
	}
}
