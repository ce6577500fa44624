package catalog

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const sampleDoc = `{
  "stylized/a.jpg": [["content/a.jpg", "style/a.jpg", "decoy/1.jpg", "decoy/2.jpg"], [["frame/a0.jpg", "frame/a1.jpg"], ["unused.jpg"]]],
  "stylized/b.jpg": [["content/b.jpg", "style/b.jpg", "decoy/3.jpg", "decoy/4.jpg"], [[]]],
  "stylized/c.jpg": [["content/c.jpg", "style/c.jpg", "decoy/5.jpg", "decoy/6.jpg"], []]
}`

func TestDecode(t *testing.T) {
	cat, err := Decode([]byte(sampleDoc))
	require.NoError(t, err)
	require.Len(t, cat, 3)

	a := cat["stylized/a.jpg"]
	assert.Equal(t, "content/a.jpg", a.ContentRef)
	assert.Equal(t, "style/a.jpg", a.StyleRef)
	assert.Equal(t, [2]string{"decoy/1.jpg", "decoy/2.jpg"}, a.DecoyRefs)
	assert.Equal(t, []string{"frame/a0.jpg", "frame/a1.jpg"}, a.ProcessFrames)

	assert.Empty(t, cat["stylized/c.jpg"].ProcessFrames)
}

func TestDecode_SkipsMalformedEntries(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{name: "three options", doc: `{"bad": [["c", "s", "d1"], [[]]]}`},
		{name: "duplicate content and decoy", doc: `{"bad": [["c", "s", "c", "d2"], [[]]]}`},
		{name: "empty ref", doc: `{"bad": [["c", "", "d1", "d2"], [[]]]}`},
		{name: "options without frames", doc: `{"bad": [["c", "s", "d1", "d2"]]}`},
		{name: "too many elements", doc: `{"bad": [["c", "s", "d1", "d2"], [[]], [[]]]}`},
		{name: "options not strings", doc: `{"bad": [[1, 2, 3, 4], [[]]]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cat, err := Decode([]byte(tc.doc))
			require.NotNil(t, cat)
			assert.Empty(t, cat)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedEntry)
		})
	}
}

func TestDecode_KeepsGoodEntriesAlongsideBadOnes(t *testing.T) {
	doc := `{
		"good": [["c", "s", "d1", "d2"], [["f"]]],
		"bad1": [["c", "s"], [[]]],
		"bad2": [["c", "c", "d1", "d2"], [[]]]
	}`
	cat, err := Decode([]byte(doc))
	require.Len(t, cat, 1)
	assert.Contains(t, cat, "good")
	assert.Len(t, multierr.Errors(err), 2)
}

func TestDecode_NotAnObject(t *testing.T) {
	for _, doc := range []string{`[1, 2, 3]`, `null`, `"catalog"`, `{"k": `} {
		t.Run(doc, func(t *testing.T) {
			cat, err := Decode([]byte(doc))
			assert.Nil(t, cat)
			assert.ErrorIs(t, err, ErrDataUnavailable)
		})
	}
}

func TestDrawRandom_EmptyCatalog(t *testing.T) {
	_, _, err := DrawRandom(Catalog{}, rand.New(rand.NewPCG(1, 2)))
	assert.ErrorIs(t, err, ErrEmptyCatalog)
}

func TestDrawRandom_NeverReturnsOverlappingDecoys(t *testing.T) {
	cat, err := Decode([]byte(sampleDoc))
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(7, 11))
	seen := map[string]int{}
	for i := 0; i < 3000; i++ {
		key, entry, err := DrawRandom(cat, rng)
		require.NoError(t, err)
		require.Equal(t, key, entry.StylizedRef)
		for _, decoy := range entry.DecoyRefs {
			require.NotEqual(t, entry.ContentRef, decoy)
			require.NotEqual(t, entry.StyleRef, decoy)
		}
		seen[key]++
	}

	// uniform over three keys: each should land well inside [700, 1300]
	for key, n := range seen {
		assert.InDelta(t, 1000, n, 300, "key %s drawn %d times", key, n)
	}
	assert.Len(t, seen, 3)
}

func TestDrawRandom_SeededIsReproducible(t *testing.T) {
	cat, err := Decode([]byte(sampleDoc))
	require.NoError(t, err)

	k1, _, _ := DrawRandom(cat, rand.New(rand.NewPCG(3, 4)))
	k2, _, _ := DrawRandom(cat, rand.New(rand.NewPCG(3, 4)))
	assert.Equal(t, k1, k2)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "image_relations.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(sampleDoc), 0o644))

	yamlPath := filepath.Join(dir, "image_relations.yaml")
	yamlDoc := `
stylized/a.jpg:
  - [content/a.jpg, style/a.jpg, decoy/1.jpg, decoy/2.jpg]
  - [[frame/a0.jpg]]
`
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlDoc), 0o644))

	t.Run("json", func(t *testing.T) {
		cat, err := NewFileSource(jsonPath, zap.NewNop()).Load(context.Background())
		require.NoError(t, err)
		assert.Len(t, cat, 3)
	})

	t.Run("yaml", func(t *testing.T) {
		cat, err := NewFileSource(yamlPath, zap.NewNop()).Load(context.Background())
		require.NoError(t, err)
		require.Len(t, cat, 1)
		assert.Equal(t, []string{"frame/a0.jpg"}, cat["stylized/a.jpg"].ProcessFrames)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewFileSource(filepath.Join(dir, "nope.json"), zap.NewNop()).Load(context.Background())
		assert.ErrorIs(t, err, ErrDataUnavailable)
	})
}

func TestFileSource_LogsSkippedEntries(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"good": [["c","s","d1","d2"],[[]]], "bad": [["c"],[[]]]}`), 0o644))

	cat, err := NewFileSource(path, zap.New(core)).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, cat, 1)

	entries := logs.FilterMessage("skipped malformed catalog entries").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 1, entries[0].ContextMap()["skipped"])
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/image_relations.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(sampleDoc))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cat, err := NewHTTPSource(srv.URL+"/image_relations.json", srv.Client(), zap.NewNop()).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, cat, 3)

	_, err = NewHTTPSource(srv.URL+"/missing.json", srv.Client(), zap.NewNop()).Load(context.Background())
	assert.True(t, errors.Is(err, ErrDataUnavailable), "got %v", err)
}

func TestOpen(t *testing.T) {
	src, err := Open(context.Background(), "file:///tmp/doc.json", zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &FileSource{}, src)
	assert.Equal(t, "/tmp/doc.json", src.(*FileSource).path)

	src, err = Open(context.Background(), "https://example.com/image_relations.json", zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &HTTPSource{}, src)

	_, err = Open(context.Background(), "ftp://example.com/doc.json", zap.NewNop())
	assert.Error(t, err)
}

func TestCatalogFromRows(t *testing.T) {
	rows := []puzzleRow{
		{StylizedRef: "a", ContentRef: "c", StyleRef: "s", Decoy1Ref: "d1", Decoy2Ref: "d2", ProcessFrames: []string{"f"}},
		{StylizedRef: "b", ContentRef: "c", StyleRef: "s", Decoy1Ref: "s", Decoy2Ref: "d2"},
	}
	cat, skipped := catalogFromRows(rows)
	require.Len(t, cat, 1)
	assert.Equal(t, [2]string{"d1", "d2"}, cat["a"].DecoyRefs)
	assert.ErrorIs(t, skipped, ErrMalformedEntry)
}
