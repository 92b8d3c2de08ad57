package annotations

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "annotations.csv"))
	require.NoError(t, err)
	return store
}

func TestSave_RequiresImageNameAndDescription(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name string
		rec  Record
	}{
		{"empty image name", Record{Description: "a cat"}},
		{"blank image name", Record{ImageName: "   ", Description: "a cat"}},
		{"empty description", Record{ImageName: "cat.jpg"}},
		{"whitespace description", Record{ImageName: "cat.jpg", Description: " \t\n "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Save(tt.rec)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}

	all, err := store.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSaveAndReadAll_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	before := time.Now().Add(-time.Second)

	err := store.Save(Record{
		ImageName:   "a.jpg",
		Description: "hello, world",
		Tags:        "x,y",
		Labels:      "",
	})
	require.NoError(t, err)

	all, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, all, 1)

	rec := all[0]
	assert.Equal(t, "a.jpg", rec.ImageName)
	assert.Equal(t, "hello, world", rec.Description)
	assert.Equal(t, "x,y", rec.Tags)
	assert.Equal(t, "", rec.Labels)

	ts, err := time.Parse(time.RFC3339, rec.Timestamp)
	require.NoError(t, err, "timestamp must be RFC 3339: %q", rec.Timestamp)
	assert.True(t, ts.After(before))
}

func TestSave_SanitizesFields(t *testing.T) {
	store := newTestStore(t)

	err := store.Save(Record{
		ImageName:   "a.jpg",
		Description: "=SUM(A1:A9)",
		Tags:        "line\nbreak,  spaced  tag ",
		Labels:      "+payload",
	})
	require.NoError(t, err)

	all, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, all, 1)

	assert.Equal(t, "'=SUM(A1:A9)", all[0].Description)
	assert.Equal(t, "line break, spaced tag", all[0].Tags)
	assert.Equal(t, "'+payload", all[0].Labels)

	// The raw file must not carry an unescaped formula trigger either.
	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	for _, line := range strings.Split(string(raw), "\n")[1:] {
		if line == "" {
			continue
		}
		assert.NotRegexp(t, `^"?[=+\-@]`, strings.SplitN(line, ",", 2)[1])
	}
}

func TestSave_AccumulatesRows(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(Record{ImageName: "a.jpg", Description: "first"}))
	require.NoError(t, store.Save(Record{ImageName: "a.jpg", Description: "second"}))

	all, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Latest wins by file order: the last row is the current one.
	assert.Equal(t, "second", all[1].Description)
}

func TestReadAll_MissingFileIsEmpty(t *testing.T) {
	store := newTestStore(t)

	all, err := store.ReadAll()
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestReadAll_HeaderMismatchIsCorruptStore(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("foo,bar\n1,2\n"), 0o644))

	_, err := store.ReadAll()
	assert.ErrorIs(t, err, ErrCorruptStore)
}

func TestReadForImage(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(Record{ImageName: "a.jpg", Description: "one"}))
	require.NoError(t, store.Save(Record{ImageName: "b.jpg", Description: "two"}))
	require.NoError(t, store.Save(Record{ImageName: "a.jpg", Description: "three"}))

	matched, err := store.ReadForImage("a.jpg")
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, "one", matched[0].Description)
	assert.Equal(t, "three", matched[1].Description)

	none, err := store.ReadForImage("c.jpg")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteForImage(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(Record{ImageName: "a.jpg", Description: "one"}))
	require.NoError(t, store.Save(Record{ImageName: "a.jpg", Description: "two"}))
	require.NoError(t, store.Save(Record{ImageName: "b.jpg", Description: "keep"}))

	removed, err := store.DeleteForImage("a.jpg")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	remaining, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "b.jpg", remaining[0].ImageName)

	gone, err := store.ReadForImage("a.jpg")
	require.NoError(t, err)
	assert.Empty(t, gone)

	// No leftover temp files from the swap.
	dirents, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Len(t, dirents, 1)
}

func TestDeleteForImage_NoMatches(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(Record{ImageName: "a.jpg", Description: "stay"}))

	removed, err := store.DeleteForImage("missing.jpg")
	require.NoError(t, err)
	assert.Zero(t, removed)

	all, err := store.ReadAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestWriteCSV_QuotesSpecialCharacters(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(Record{
		ImageName:   "a.jpg",
		Description: `says "hi", twice`,
		Tags:        "x,y",
	}))

	var buf bytes.Buffer
	require.NoError(t, store.WriteCSV(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "image_name,description,tags,labels,timestamp", lines[0])
	assert.Contains(t, lines[1], `"says ""hi"", twice"`)
	assert.Contains(t, lines[1], `"x,y"`)
}

func TestStatistics(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(Record{ImageName: "1.jpg", Description: "d", Tags: "a,b", Labels: "cat"}))
	require.NoError(t, store.Save(Record{ImageName: "2.jpg", Description: "d", Tags: "a,c", Labels: "cat,dog"}))
	require.NoError(t, store.Save(Record{ImageName: "1.jpg", Description: "d", Tags: "a,b"}))

	stats, err := store.Statistics()
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalAnnotations)
	assert.Equal(t, 2, stats.TotalImages)
	assert.Equal(t, []TokenCount{{"a", 3}, {"b", 2}, {"c", 1}}, stats.MostCommonTags)
	assert.Equal(t, []TokenCount{{"cat", 2}, {"dog", 1}}, stats.MostCommonLabels)
}

func TestStatistics_EmptyStore(t *testing.T) {
	store := newTestStore(t)

	stats, err := store.Statistics()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalAnnotations)
	assert.Zero(t, stats.TotalImages)
	assert.Empty(t, stats.MostCommonTags)
	assert.Empty(t, stats.MostCommonLabels)
}

func TestConcurrentSavesAndDeletes(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = store.Save(Record{ImageName: "race.jpg", Description: "row"})
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 10; j++ {
			_, _ = store.DeleteForImage("race.jpg")
		}
	}()
	wg.Wait()

	// Whatever interleaving happened, the file must still parse cleanly.
	all, err := store.ReadAll()
	require.NoError(t, err)
	for _, rec := range all {
		assert.Equal(t, "race.jpg", rec.ImageName)
		assert.Equal(t, "row", rec.Description)
	}
}
