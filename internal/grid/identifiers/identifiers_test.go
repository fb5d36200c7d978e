package identifiers

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseRoundTrip(t *testing.T) {
	tags := []string{"g12", "g12i", "s7i", "3ac", "15dc"}
	for _, tag := range tags {
		e, err := Parse(tag)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tag, err)
		}
		if got := e.Tag(); got != tag {
			t.Fatalf("round trip %q: got %q", tag, got)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	for _, tag := range []string{"", "g", "gi", "x4", "4", "g4x", "s4", "4ab", "ac4"} {
		if _, err := Parse(tag); !errors.Is(err, ErrMalformedTag) {
			t.Fatalf("Parse(%q): want ErrMalformedTag, got %v", tag, err)
		}
	}
}

func TestMakePlantTags(t *testing.T) {
	existing, hypothetical := MakePlantTags([]int{1, 4, 2})
	wantExisting := []string{"g1", "g4", "g2"}
	wantHypothetical := []string{"g1i", "g4i", "g2i"}
	if !reflect.DeepEqual(existing, wantExisting) {
		t.Fatalf("existing tags: got %v, want %v", existing, wantExisting)
	}
	if !reflect.DeepEqual(hypothetical, wantHypothetical) {
		t.Fatalf("hypothetical tags: got %v, want %v", hypothetical, wantHypothetical)
	}
}

func TestRecoverPlantIndices(t *testing.T) {
	plants, storage, err := RecoverPlantIndices([]string{"g1", "g2", "g1i", "g2i"}, -1)
	if err != nil {
		t.Fatalf("RecoverPlantIndices: %v", err)
	}
	want := map[int]string{1: "g1", 2: "g2", 3: "g1i", 4: "g2i"}
	if !reflect.DeepEqual(plants, want) {
		t.Fatalf("plants: got %v, want %v", plants, want)
	}
	if len(storage) != 0 {
		t.Fatalf("storage: got %v, want empty", storage)
	}
}

func TestRecoverPlantIndicesWithStorage(t *testing.T) {
	plants, storage, err := RecoverPlantIndices([]string{"g1", "g2", "g1i", "s2i"}, -1)
	if err != nil {
		t.Fatalf("RecoverPlantIndices: %v", err)
	}
	wantPlants := map[int]string{1: "g1", 2: "g2", 3: "g1i"}
	wantStorage := map[int]string{4: "s2i"}
	if !reflect.DeepEqual(plants, wantPlants) {
		t.Fatalf("plants: got %v, want %v", plants, wantPlants)
	}
	if !reflect.DeepEqual(storage, wantStorage) {
		t.Fatalf("storage: got %v, want %v", storage, wantStorage)
	}
}

func TestRecoverPlantIndicesFloor(t *testing.T) {
	// The floor keeps synthesized ids consistent when tags is a slice
	// of a wider namespace whose largest original id is 10.
	plants, storage, err := RecoverPlantIndices([]string{"s3i", "s8i"}, 10)
	if err != nil {
		t.Fatalf("RecoverPlantIndices: %v", err)
	}
	if len(plants) != 0 {
		t.Fatalf("plants: got %v, want empty", plants)
	}
	want := map[int]string{11: "s3i", 12: "s8i"}
	if !reflect.DeepEqual(storage, want) {
		t.Fatalf("storage: got %v, want %v", storage, want)
	}
}

func TestRecoverPlantIndicesRejectsBranch(t *testing.T) {
	if _, _, err := RecoverPlantIndices([]string{"g1", "2ac"}, -1); !errors.Is(err, ErrMalformedTag) {
		t.Fatalf("want ErrMalformedTag for branch tag, got %v", err)
	}
}

func TestRecoverBranchIndices(t *testing.T) {
	ac, dc, err := RecoverBranchIndices([]string{"1ac", "2ac", "0dc"})
	if err != nil {
		t.Fatalf("RecoverBranchIndices: %v", err)
	}
	wantAC := map[int]string{1: "1ac", 2: "2ac"}
	wantDC := map[int]string{0: "0dc"}
	if !reflect.DeepEqual(ac, wantAC) {
		t.Fatalf("ac: got %v, want %v", ac, wantAC)
	}
	if !reflect.DeepEqual(dc, wantDC) {
		t.Fatalf("dc: got %v, want %v", dc, wantDC)
	}
}

func TestSplitExistingVsExpansion(t *testing.T) {
	existing, expansion := SplitExistingVsExpansion([]string{"g2", "g1i", "g1", "s3i", "g2i"})
	if !reflect.DeepEqual(existing, []string{"g2", "g1"}) {
		t.Fatalf("existing: got %v", existing)
	}
	if !reflect.DeepEqual(expansion, []string{"g1i", "g2i"}) {
		t.Fatalf("expansion: got %v", expansion)
	}
}

func TestRecoverStorageBus(t *testing.T) {
	bus, err := RecoverStorageBus("s42i")
	if err != nil {
		t.Fatalf("RecoverStorageBus: %v", err)
	}
	if bus != 42 {
		t.Fatalf("bus: got %d, want 42", bus)
	}
	if _, err := RecoverStorageBus("g42i"); err == nil {
		t.Fatal("want error for non-storage tag")
	}
}

func TestInvertMapping(t *testing.T) {
	inv := InvertMapping(map[int]string{3: "g1i", 1: "g1"})
	want := map[string]int{"g1i": 3, "g1": 1}
	if !reflect.DeepEqual(inv, want) {
		t.Fatalf("got %v, want %v", inv, want)
	}
}
