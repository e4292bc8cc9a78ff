package backup

import (
	"archive/zip"
	"bytes"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playlore/playlore-server/internal/domain"
)

func TestRecords_RoundTripThroughZip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	platforms := []*domain.Platform{
		{ID: 1, PrimaryAlias: "Flash", Description: "Adobe Flash <AS3>"},
		{ID: 2, PrimaryAlias: "HTML5"},
	}
	var n int
	require.NoError(t, writeRecords(zw, platformsFile, platforms, &n))
	require.NoError(t, zw.Close())
	assert.Equal(t, 2, n)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	var got []*domain.Platform
	for p, err := range readRecords[*domain.Platform](zr, platformsFile) {
		require.NoError(t, err)
		got = append(got, p)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "Flash", got[0].PrimaryAlias)
	assert.Equal(t, "Adobe Flash <AS3>", got[0].Description)
	assert.Equal(t, int64(2), got[1].ID)

	count, err := countRecords(zr, platformsFile)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestReadRecords_SkipsBlankLines(t *testing.T) {
	fsys := fstest.MapFS{
		"tags.jsonl": {Data: []byte("{\"id\":1}\n\n{\"id\":2}\n")},
	}
	n, err := countRecords(fsys, "tags.jsonl")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReadRecords_ReportsLineOfBadRecord(t *testing.T) {
	fsys := fstest.MapFS{
		"games.jsonl": {Data: []byte("{\"id\":\"a\"}\n{\"id\":\n{\"id\":\"c\"}\n")},
	}

	n, err := countRecords(fsys, "games.jsonl")
	assert.Equal(t, 1, n)

	var recErr *RecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "games.jsonl", recErr.File)
	assert.Equal(t, 2, recErr.Line)
	assert.Contains(t, err.Error(), "games.jsonl line 2")
}

func TestReadRecords_MissingMember(t *testing.T) {
	fsys := fstest.MapFS{}

	for _, err := range readRecords[domain.Tag](fsys, "tags.jsonl") {
		assert.ErrorIs(t, err, fs.ErrNotExist)
	}

	_, err := countRecords(fsys, "tags.jsonl")
	require.Error(t, err)
	assert.Equal(t, "tags.jsonl: missing from archive", err.Error())
}
