package dataset

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func writeTestImage(t *testing.T, path string, width, height int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 3), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
}

func writeTestManifest(t *testing.T, dir string, rows [][4]string) string {
	t.Helper()
	path := filepath.Join(dir, "manifest.csv")
	content := "path,age,gender,accent\n"
	for _, r := range rows {
		content += fmt.Sprintf("%s,%s,%s,%s\n", r[0], r[1], r[2], r[3])
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

func TestLoadManifestDropsBadRows(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "a.png")
	writeTestImage(t, good, 10, 10)

	manifest := writeTestManifest(t, dir, [][4]string{
		{good, "teens", "male", "us"},
		{filepath.Join(dir, "missing.png"), "teens", "male", "us"},
		{good, "", "male", "us"},
	})

	rows, dropped, err := LoadManifest(manifest)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("kept %d rows, want 1", len(rows))
	}
	if dropped != 2 {
		t.Errorf("dropped %d rows, want 2", dropped)
	}
}

func TestLoadManifestAllBadIsFatal(t *testing.T) {
	dir := t.TempDir()
	manifest := writeTestManifest(t, dir, [][4]string{
		{filepath.Join(dir, "missing.png"), "teens", "male", "us"},
	})
	if _, _, err := LoadManifest(manifest); err == nil {
		t.Error("expected error when no rows survive")
	}
}

func TestEvalTransformDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mel.png")
	writeTestImage(t, path, 100, 64)

	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}

	tr := NewEvalTransform(ImageSize)
	a, err := tr.Apply(img)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	b, err := tr.Apply(img)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	aData := a.Data.([]float32)
	bData := b.Data.([]float32)
	for i := range aData {
		if aData[i] != bData[i] {
			t.Fatalf("eval transform not deterministic at element %d", i)
		}
	}
}

func TestTransformOutputShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mel.png")
	writeTestImage(t, path, 173, 64)

	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}

	for _, tr := range []*Transform{
		NewEvalTransform(ImageSize),
		NewTrainTransform(ImageSize, rand.New(rand.NewSource(1))),
	} {
		out, err := tr.Apply(img)
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		want := []int{3, ImageSize, ImageSize}
		for i, dim := range want {
			if out.Shape[i] != dim {
				t.Fatalf("output shape = %v, want %v", out.Shape, want)
			}
		}
	}
}

func TestTransformNormalization(t *testing.T) {
	// A mid-gray image should land near zero after normalization.
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 124, G: 116, B: 104, A: 255})
		}
	}

	out, err := NewEvalTransform(8).Apply(img)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	for i, v := range out.Data.([]float32) {
		if math.Abs(float64(v)) > 0.1 {
			t.Fatalf("normalized element %d = %f, expected near zero", i, v)
		}
	}
}

func TestDatasetGet(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "a.png")
	writeTestImage(t, imgPath, 64, 64)

	rows := []Row{
		{ImagePath: imgPath, Age: "teens", Gender: "male", Accent: "us"},
		{ImagePath: imgPath, Age: "twenties", Gender: "female", Accent: "england"},
	}
	encoders, err := FitEncoders(rows)
	if err != nil {
		t.Fatalf("FitEncoders failed: %v", err)
	}

	ds, err := New(rows, encoders, NewEvalTransform(ImageSize))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("Len = %d, want 2", ds.Len())
	}

	input, labels, err := ds.Get(0)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if input.Shape[0] != 3 {
		t.Errorf("input channels = %d, want 3", input.Shape[0])
	}

	for i, label := range labels {
		limits := []int{encoders.Age.NumClasses(), encoders.Gender.NumClasses(), encoders.Accent.NumClasses()}
		if label < 0 || label >= limits[i] {
			t.Errorf("label %d = %d outside [0, %d)", i, label, limits[i])
		}
	}
}

func TestDatasetGetOutOfRange(t *testing.T) {
	ds := &Dataset{transform: NewEvalTransform(ImageSize)}
	if _, _, err := ds.Get(0); err == nil {
		t.Error("expected error for out-of-range index")
	}
}

func TestDatasetGetMissingImage(t *testing.T) {
	rows := []Row{{ImagePath: "/nonexistent/a.png", Age: "teens", Gender: "male", Accent: "us"}}
	encoders, err := FitEncoders(rows)
	if err != nil {
		t.Fatalf("FitEncoders failed: %v", err)
	}
	ds, err := New(rows, encoders, NewEvalTransform(ImageSize))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, _, err := ds.Get(0); err == nil {
		t.Error("expected error for missing image file")
	}
}

func TestSplitKeepsAllRows(t *testing.T) {
	rows := make([]Row, 10)
	for i := range rows {
		rows[i] = Row{ImagePath: fmt.Sprintf("img%d.png", i), Age: "teens", Gender: "male", Accent: "us"}
	}

	train, val := Split(rows, 0.2, rand.New(rand.NewSource(9)))
	if len(train)+len(val) != len(rows) {
		t.Errorf("split lost rows: %d + %d != %d", len(train), len(val), len(rows))
	}
	if len(val) != 2 {
		t.Errorf("validation size = %d, want 2", len(val))
	}

	seen := make(map[string]bool)
	for _, r := range append(append([]Row{}, train...), val...) {
		if seen[r.ImagePath] {
			t.Errorf("row %s appears twice after split", r.ImagePath)
		}
		seen[r.ImagePath] = true
	}
}

func TestSplitTinyDataset(t *testing.T) {
	rows := []Row{
		{ImagePath: "a.png", Age: "teens", Gender: "male", Accent: "us"},
		{ImagePath: "b.png", Age: "teens", Gender: "male", Accent: "us"},
	}
	train, val := Split(rows, 0.01, rand.New(rand.NewSource(10)))
	if len(train) == 0 || len(val) == 0 {
		t.Errorf("tiny split produced empty subset: train=%d val=%d", len(train), len(val))
	}
}
