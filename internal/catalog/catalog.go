package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/samber/lo"
	"go.uber.org/multierr"
)

var ErrDataUnavailable = errors.New("catalog data unavailable")
var ErrEmptyCatalog = errors.New("catalog is empty")
var ErrMalformedEntry = errors.New("malformed catalog entry")

// PuzzleEntry is one stylized image together with the images that produced it
// and the two decoys shown next to them.
type PuzzleEntry struct {
	StylizedRef   string    `json:"stylized_ref"`
	ContentRef    string    `json:"content_ref"`
	StyleRef      string    `json:"style_ref"`
	DecoyRefs     [2]string `json:"decoy_refs"`
	ProcessFrames []string  `json:"process_frames"`
}

// Catalog maps a stylized image ref to its entry. Treat as read-only once loaded.
type Catalog map[string]PuzzleEntry

// Source loads a fresh catalog. Implementations wrap failures in ErrDataUnavailable.
type Source interface {
	Load(ctx context.Context) (Catalog, error)
}

// Options returns the four option refs in canonical order: content, style, decoys.
func (e PuzzleEntry) Options() []string {
	return []string{e.ContentRef, e.StyleRef, e.DecoyRefs[0], e.DecoyRefs[1]}
}

func (e PuzzleEntry) Validate() error {
	opts := e.Options()
	if e.StylizedRef == "" || slices.Contains(opts, "") {
		return fmt.Errorf("%w: %q has an empty ref", ErrMalformedEntry, e.StylizedRef)
	}
	if len(lo.Uniq(opts)) != len(opts) {
		return fmt.Errorf("%w: %q repeats a ref among content, style and decoys", ErrMalformedEntry, e.StylizedRef)
	}
	return nil
}

// DrawRandom picks an entry uniformly over the catalog keys.
func DrawRandom(cat Catalog, rng *rand.Rand) (string, PuzzleEntry, error) {
	if len(cat) == 0 {
		return "", PuzzleEntry{}, ErrEmptyCatalog
	}
	// map order is random; sort so a seeded rng reproduces the same draw
	keys := lo.Keys(cat)
	slices.Sort(keys)
	key := keys[rng.IntN(len(keys))]
	return key, cat[key], nil
}

// Decode parses the catalog document:
//
//	{ "<stylized>": [ ["<content>", "<style>", "<decoy1>", "<decoy2>"], [["<frame>", ...], ...] ] }
//
// Entries that don't fit the shape are skipped; the returned error combines the
// reasons (each wrapping ErrMalformedEntry) and is nil when nothing was skipped.
// A document that is not an object at all (null included) fails with
// ErrDataUnavailable and a nil catalog.
func Decode(data []byte) (Catalog, error) {
	var raw map[string][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: document is not an object", ErrDataUnavailable)
	}

	keys := lo.Keys(raw)
	slices.Sort(keys)

	cat := make(Catalog, len(raw))
	var skipped error
	for _, key := range keys {
		entry, err := decodeEntry(key, raw[key])
		if err != nil {
			skipped = multierr.Append(skipped, err)
			continue
		}
		cat[key] = entry
	}
	return cat, skipped
}

func decodeEntry(key string, tuple []json.RawMessage) (PuzzleEntry, error) {
	if len(tuple) != 2 {
		return PuzzleEntry{}, fmt.Errorf("%w: %q has %d elements, want 2", ErrMalformedEntry, key, len(tuple))
	}

	var refs []string
	if err := json.Unmarshal(tuple[0], &refs); err != nil {
		return PuzzleEntry{}, fmt.Errorf("%w: %q options: %v", ErrMalformedEntry, key, err)
	}
	if len(refs) != 4 {
		return PuzzleEntry{}, fmt.Errorf("%w: %q has %d options, want 4", ErrMalformedEntry, key, len(refs))
	}

	entry := PuzzleEntry{
		StylizedRef: key,
		ContentRef:  refs[0],
		StyleRef:    refs[1],
		DecoyRefs:   [2]string{refs[2], refs[3]},
	}

	var frameLists [][]string
	if err := json.Unmarshal(tuple[1], &frameLists); err != nil {
		return PuzzleEntry{}, fmt.Errorf("%w: %q process frames: %v", ErrMalformedEntry, key, err)
	}
	if len(frameLists) > 0 {
		entry.ProcessFrames = frameLists[0]
	}

	if err := entry.Validate(); err != nil {
		return PuzzleEntry{}, err
	}
	return entry, nil
}
