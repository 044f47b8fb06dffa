package gui

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/san-kum/metaballs/internal/raymarch"
)

func TestUniformNamesDeclared(t *testing.T) {
	src := raymarch.FragmentShader(raymarch.DefaultMaxSteps)
	for _, name := range uniformNames {
		found := false
		for _, line := range strings.Split(src, "\n") {
			if strings.HasPrefix(line, "uniform ") && strings.Contains(line, " "+name) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("uniform %q not declared in shader", name)
		}
	}
}

func TestHistory(t *testing.T) {
	h := newHistory(3)
	if h.points(0, 0, 10, 10) != nil || h.last() != 0 {
		t.Fatal("empty history should have no points")
	}
	for _, v := range []float64{1, 2, 3, 4} {
		h.push(v)
	}
	if h.len() != 3 || h.values[0] != 2 || h.last() != 4 {
		t.Fatalf("expected [2 3 4], got %v", h.values)
	}

	pts := h.points(10, 20, 30, 40)
	if len(pts) != 3 {
		t.Fatalf("expected 3 points, got %d", len(pts))
	}
	if pts[0].X != 10 || pts[0].Y != 60 {
		t.Errorf("minimum should sit at the bottom-left, got %+v", pts[0])
	}
	if pts[2].Y != 20 {
		t.Errorf("maximum should touch the top, got %+v", pts[2])
	}

	h.clear()
	h.push(5)
	h.push(5)
	for _, p := range h.points(0, 0, 10, 10) {
		if p.Y != 10 {
			t.Errorf("flat series should lie on the bottom edge, got %+v", p)
		}
	}
}

func TestCPUFrameSize(t *testing.T) {
	tests := []struct {
		width, sw, sh int
		wantW, wantH  int
	}{
		{160, 1280, 720, 160, 90},
		{160, 800, 600, 160, 120},
		{160, 0, 0, 160, 120},
		{0, 1280, 720, 1, 1},
		{10, 1000, 10, 10, 1},
	}
	for _, tt := range tests {
		w, h := cpuFrameSize(tt.width, tt.sw, tt.sh)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("cpuFrameSize(%d, %d, %d) = %d,%d, want %d,%d", tt.width, tt.sw, tt.sh, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestCopyPixels(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{1, 2, 3, 4})
	img.SetRGBA(1, 0, color.RGBA{5, 6, 7, 8})
	dst := make([]color.RGBA, 2)
	copyPixels(dst, img)
	if dst[0] != (color.RGBA{1, 2, 3, 4}) || dst[1] != (color.RGBA{5, 6, 7, 8}) {
		t.Errorf("got %v", dst)
	}
}
