package face

import (
	"math"
	"testing"

	"google.golang.org/protobuf/types/known/structpb"

	"omnis/kiosk/internal/types"
)

func det(top, left, size int, desc ...float64) types.Detection {
	return types.Detection{
		Region:     types.Region{Top: top, Left: left, Bottom: top + size, Right: left + size},
		Descriptor: desc,
	}
}

func gallery(pairs ...any) []types.FaceRecord {
	var out []types.FaceRecord
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, types.FaceRecord{Name: pairs[i].(string), Descriptor: pairs[i+1].(types.Descriptor)})
	}
	return out
}

func TestMatchAcceptsBelowTolerance(t *testing.T) {
	m := NewMatcher(0.55, 4)
	g := gallery("Alice", types.Descriptor{0, 0}, "Bob", types.Descriptor{1, 1})

	res := m.Match([]types.Detection{det(0, 0, 10, 0.1, 0.1), det(0, 20, 10, 5, 5)}, g)
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res))
	}
	if !res[0].Identity.Known || res[0].Identity.Name != "Alice" {
		t.Fatalf("expected Alice, got %+v", res[0].Identity)
	}
	if res[1].Identity.Known {
		t.Fatalf("expected unknown for far face, got %+v", res[1].Identity)
	}
}

func TestMatchToleranceIsStrict(t *testing.T) {
	m := NewMatcher(0.5, 4)
	g := gallery("Alice", types.Descriptor{0})

	res := m.Match([]types.Detection{det(0, 0, 10, 0.5)}, g)
	if res[0].Identity.Known {
		t.Fatalf("distance equal to tolerance must not match")
	}
}

func TestMatchTieResolvesToFirstEnrolled(t *testing.T) {
	m := NewMatcher(0.55, 4)
	g := gallery("First", types.Descriptor{0.1}, "Second", types.Descriptor{-0.1})

	res := m.Match([]types.Detection{det(0, 0, 10, 0)}, g)
	if res[0].Identity.Name != "First" {
		t.Fatalf("expected tie to resolve to First, got %q", res[0].Identity.Name)
	}
}

func TestMatchDropsFacesPastCap(t *testing.T) {
	m := NewMatcher(0.55, 2)
	g := gallery("Alice", types.Descriptor{0})

	dets := []types.Detection{det(0, 0, 10, 0), det(0, 10, 10, 9), det(0, 20, 50, 0)}
	res := m.Match(dets, g)
	if len(res) != 2 {
		t.Fatalf("expected cap of 2 results, got %d", len(res))
	}
	if res[1].Detection.Region != dets[1].Region {
		t.Fatalf("results must keep input order")
	}
}

func TestMatchEmptyInputs(t *testing.T) {
	m := NewMatcher(0.55, 4)
	if res := m.Match(nil, gallery("Alice", types.Descriptor{0})); len(res) != 0 {
		t.Fatalf("expected no results for empty frame, got %d", len(res))
	}
	res := m.Match([]types.Detection{det(0, 0, 10, 0)}, nil)
	if len(res) != 1 || res[0].Identity.Known || !math.IsInf(res[0].Distance, 1) {
		t.Fatalf("expected single unknown with infinite distance, got %+v", res)
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b types.Descriptor
		want float64
	}{
		{"identical", types.Descriptor{1, 2}, types.Descriptor{1, 2}, 0},
		{"3-4-5", types.Descriptor{0, 0}, types.Descriptor{3, 4}, 5},
		{"length mismatch", types.Descriptor{0}, types.Descriptor{0, 0}, math.Inf(1)},
		{"empty", nil, nil, math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.IsInf(tt.want, 1) {
				if !math.IsInf(got, 1) {
					t.Errorf("Distance() = %v, want +Inf", got)
				}
				return
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Distance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGalleryRejectsDuplicateName(t *testing.T) {
	g := NewGallery(gallery("Alice", types.Descriptor{0}))
	if err := g.Add(types.FaceRecord{Name: "Alice"}); err != ErrNameExists {
		t.Fatalf("expected ErrNameExists, got %v", err)
	}
	if err := g.Add(types.FaceRecord{Name: "Priya", Descriptor: types.Descriptor{1}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	names := g.Names()
	if len(names) != 2 || names[1] != "Priya" {
		t.Fatalf("expected enrollment order [Alice Priya], got %v", names)
	}
}

func TestParseDetections(t *testing.T) {
	resp, err := structpb.NewStruct(map[string]any{
		"faces": []any{
			map[string]any{
				"box":        []any{10.0, 60.0, 70.0, 20.0},
				"descriptor": []any{0.25, -0.5},
				"crop":       "aGk=",
			},
		},
	})
	if err != nil {
		t.Fatalf("struct: %v", err)
	}
	dets, err := parseDetections(resp)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(dets) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(dets))
	}
	d := dets[0]
	if d.Region != (types.Region{Top: 10, Right: 60, Bottom: 70, Left: 20}) {
		t.Fatalf("unexpected region %+v", d.Region)
	}
	if d.Region.Area() != 60*40 {
		t.Fatalf("unexpected area %d", d.Region.Area())
	}
	if len(d.Descriptor) != 2 || d.Descriptor[1] != -0.5 {
		t.Fatalf("unexpected descriptor %v", d.Descriptor)
	}
	if string(d.Crop) != "hi" {
		t.Fatalf("unexpected crop %q", d.Crop)
	}
}

func TestParseDetectionsRejectsBadBox(t *testing.T) {
	resp, _ := structpb.NewStruct(map[string]any{
		"faces": []any{map[string]any{"box": []any{1.0}, "descriptor": []any{0.1}}},
	})
	if _, err := parseDetections(resp); err == nil {
		t.Fatalf("expected error for short box")
	}
}
