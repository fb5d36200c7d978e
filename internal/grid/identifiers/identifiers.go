// Package identifiers encodes and decodes the composite string tags used by
// the optimizer to name grid entities. An existing generator with plant id 4
// is tagged "g4", its buildable expansion twin "g4i", a buildable storage unit
// at bus 7 "s7i", and transmission lines "{id}ac" or "{id}dc". The trailing
// "i" always marks a hypothetical (buildable) entity.
package identifiers

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrMalformedTag is returned when a tag matches none of the known patterns.
var ErrMalformedTag = errors.New("identifiers: malformed tag")

var (
	existingPlantRe  = regexp.MustCompile(`^g(\d+)$`)
	expansionPlantRe = regexp.MustCompile(`^g(\d+)i$`)
	storageRe        = regexp.MustCompile(`^s(\d+)i$`)
	branchRe         = regexp.MustCompile(`^(\d+)(ac|dc)$`)
)

// Kind distinguishes the roles a tag can carry.
type Kind int

const (
	ExistingPlant Kind = iota
	ExpansionPlant
	Storage
	ACBranch
	DCBranch
)

// Entity is the in-memory form of a tag: a role plus the numeric id embedded
// in the tag (a plant id, bus id, or branch id depending on the role).
type Entity struct {
	Kind Kind
	ID   int
}

// Tag renders the entity in its string wire format.
func (e Entity) Tag() string {
	switch e.Kind {
	case ExistingPlant:
		return fmt.Sprintf("g%d", e.ID)
	case ExpansionPlant:
		return fmt.Sprintf("g%di", e.ID)
	case Storage:
		return fmt.Sprintf("s%di", e.ID)
	case ACBranch:
		return fmt.Sprintf("%dac", e.ID)
	case DCBranch:
		return fmt.Sprintf("%ddc", e.ID)
	}
	return ""
}

// Parse decodes a tag into an Entity.
func Parse(tag string) (Entity, error) {
	var kind Kind
	var body string
	switch {
	case existingPlantRe.MatchString(tag):
		kind, body = ExistingPlant, existingPlantRe.FindStringSubmatch(tag)[1]
	case expansionPlantRe.MatchString(tag):
		kind, body = ExpansionPlant, expansionPlantRe.FindStringSubmatch(tag)[1]
	case storageRe.MatchString(tag):
		kind, body = Storage, storageRe.FindStringSubmatch(tag)[1]
	case branchRe.MatchString(tag):
		m := branchRe.FindStringSubmatch(tag)
		kind, body = ACBranch, m[1]
		if m[2] == "dc" {
			kind = DCBranch
		}
	default:
		return Entity{}, fmt.Errorf("%w: %q", ErrMalformedTag, tag)
	}
	id, err := strconv.Atoi(body)
	if err != nil {
		return Entity{}, fmt.Errorf("%w: %q", ErrMalformedTag, tag)
	}
	return Entity{Kind: kind, ID: id}, nil
}

// EncodePlant tags an existing generator.
func EncodePlant(id int) string { return Entity{Kind: ExistingPlant, ID: id}.Tag() }

// EncodeExpansion tags the hypothetical expansion twin of a generator.
func EncodeExpansion(id int) string { return Entity{Kind: ExpansionPlant, ID: id}.Tag() }

// EncodeStorage tags a hypothetical storage unit at a bus.
func EncodeStorage(busID int) string { return Entity{Kind: Storage, ID: busID}.Tag() }

// EncodeACBranch tags an existing AC branch.
func EncodeACBranch(id int) string { return Entity{Kind: ACBranch, ID: id}.Tag() }

// EncodeDCBranch tags an existing DC line.
func EncodeDCBranch(id int) string { return Entity{Kind: DCBranch, ID: id}.Tag() }

// MakePlantTags returns the existing and hypothetical-expansion tags for a set
// of plant ids, in the input order.
func MakePlantTags(plantIDs []int) (existing, hypothetical []string) {
	existing = make([]string, len(plantIDs))
	hypothetical = make([]string, len(plantIDs))
	for i, id := range plantIDs {
		existing[i] = EncodePlant(id)
		hypothetical[i] = EncodeExpansion(id)
	}
	return existing, hypothetical
}

// RecoverPlantIndices maps optimizer generator tags back to numeric plant ids.
// Existing tags keep their original id. Every hypothetical tag (plant
// expansion or storage) is assigned a newly synthesized id, starting one past
// the largest existing id and incrementing in the input order of tags; storage
// tags consume ids from the same counter but land in the second returned map.
//
// lastOriginalID is an optional floor (pass a negative value to disable): when
// tags is a slice of a larger namespace, supplying the full namespace's
// largest original id keeps synthesized ids consistent across calls. The
// effective floor is the max of the computed and supplied values.
//
// Stable synthesis order = input order; callers must not sort tags first.
func RecoverPlantIndices(tags []string, lastOriginalID int) (plants, storage map[int]string, err error) {
	last := lastOriginalID
	for _, tag := range tags {
		e, err := Parse(tag)
		if err != nil {
			return nil, nil, err
		}
		if e.Kind == ExistingPlant && e.ID > last {
			last = e.ID
		}
	}

	plants = make(map[int]string)
	storage = make(map[int]string)
	for _, tag := range tags {
		e, _ := Parse(tag)
		switch e.Kind {
		case ExistingPlant:
			plants[e.ID] = tag
		case ExpansionPlant:
			last++
			plants[last] = tag
		case Storage:
			last++
			storage[last] = tag
		default:
			return nil, nil, fmt.Errorf("%w: %q is not a generator or storage tag", ErrMalformedTag, tag)
		}
	}
	return plants, storage, nil
}

// RecoverBranchIndices splits branch tags into AC and DC maps keyed by the
// numeric branch id. Branches are never built new, so no ids are synthesized.
func RecoverBranchIndices(tags []string) (ac, dc map[int]string, err error) {
	ac = make(map[int]string)
	dc = make(map[int]string)
	for _, tag := range tags {
		e, err := Parse(tag)
		if err != nil {
			return nil, nil, err
		}
		switch e.Kind {
		case ACBranch:
			ac[e.ID] = tag
		case DCBranch:
			dc[e.ID] = tag
		default:
			return nil, nil, fmt.Errorf("%w: %q is not a branch tag", ErrMalformedTag, tag)
		}
	}
	return ac, dc, nil
}

// SplitExistingVsExpansion partitions generator tags into existing and
// expansion lists, preserving input order. Storage tags are ignored.
func SplitExistingVsExpansion(tags []string) (existing, expansion []string) {
	for _, tag := range tags {
		switch {
		case existingPlantRe.MatchString(tag):
			existing = append(existing, tag)
		case expansionPlantRe.MatchString(tag):
			expansion = append(expansion, tag)
		}
	}
	return existing, expansion
}

// RecoverStorageBus extracts the bus id from a storage tag.
func RecoverStorageBus(tag string) (int, error) {
	e, err := Parse(tag)
	if err != nil {
		return 0, err
	}
	if e.Kind != Storage {
		return 0, fmt.Errorf("%w: %q is not a storage tag", ErrMalformedTag, tag)
	}
	return e.ID, nil
}

// InvertMapping turns an id→tag mapping into tag→id.
func InvertMapping(m map[int]string) map[string]int {
	inv := make(map[string]int, len(m))
	for id, tag := range m {
		inv[tag] = id
	}
	return inv
}
