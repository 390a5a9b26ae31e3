package tombstone

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/penwyp/go-logviewer/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHeader = "*** *** *** *** *** *** *** *** *** *** *** *** *** *** *** ***\n" +
	"Build fingerprint: 'google/husky/husky:14/AP1A/2024030100:user/release-keys'\n" +
	"Revision: 'MP1.0'\n" +
	"ABI: 'arm64'\n" +
	"Timestamp: 2024-03-01 12:00:00.123456789+0000\n"

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func writeTombstone(t *testing.T, dir, name, content string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestFindSingleMatch(t *testing.T) {
	dir := t.TempDir()
	path := writeTombstone(t, dir, "tombstone_00", sampleHeader+"Process uptime: 3s\n", baseTime)

	tf, ok := NewFinder(dir).Find([]byte(sampleHeader))

	require.True(t, ok)
	assert.Equal(t, path, tf.Path)
	assert.Equal(t, baseTime.UnixMilli(), tf.LastModified)
}

func TestFindPrefersNewest(t *testing.T) {
	dir := t.TempDir()
	writeTombstone(t, dir, "tombstone_00", sampleHeader+"old\n", baseTime)
	newer := writeTombstone(t, dir, "tombstone_01", sampleHeader+"new\n", baseTime.Add(time.Minute))

	tf, ok := NewFinder(dir).Find([]byte(sampleHeader))

	require.True(t, ok)
	assert.Equal(t, newer, tf.Path)
}

func TestFindSkipsNonMatching(t *testing.T) {
	dir := t.TempDir()
	writeTombstone(t, dir, "tombstone_00", "short", baseTime.Add(2*time.Minute))
	writeTombstone(t, dir, "tombstone_01", "something else entirely, long enough to compare against the header"+sampleHeader, baseTime.Add(time.Minute))
	writeTombstone(t, dir, "tombstone_02.pb", sampleHeader, baseTime.Add(3*time.Minute))
	match := writeTombstone(t, dir, "tombstone_03", sampleHeader, baseTime)

	tf, ok := NewFinder(dir).Find([]byte(sampleHeader))

	require.True(t, ok)
	assert.Equal(t, match, tf.Path)
}

func TestFindNoMatch(t *testing.T) {
	dir := t.TempDir()
	writeTombstone(t, dir, "tombstone_00", "unrelated content that is long enough", baseTime)

	tf, ok := NewFinder(dir).Find([]byte("missing header"))

	assert.False(t, ok)
	assert.Nil(t, tf)
}

func TestFindUnreadableDirectory(t *testing.T) {
	tf, ok := NewFinder(filepath.Join(t.TempDir(), "missing")).Find([]byte(sampleHeader))

	assert.False(t, ok)
	assert.Nil(t, tf)
}

func TestFindRejectsFileChangedAfterMatch(t *testing.T) {
	dir := t.TempDir()
	writeTombstone(t, dir, "tombstone_00", sampleHeader, baseTime)
	writeTombstone(t, dir, "tombstone_01", sampleHeader, baseTime.Add(time.Minute))

	finder := NewFinder(dir)
	calls := 0
	finder.lastModified = func(path string) int64 {
		calls++
		return baseTime.Add(time.Hour).UnixMilli()
	}

	tf, ok := finder.Find([]byte(sampleHeader))

	assert.False(t, ok, "a changed match must not fall through to older candidates")
	assert.Nil(t, tf)
	assert.Equal(t, 1, calls)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	path := writeTombstone(t, dir, "tombstone_00", sampleHeader, baseTime)
	finder := NewFinder(dir)

	tf, err := finder.Resolve(path, baseTime.UnixMilli())
	require.NoError(t, err)
	assert.Equal(t, model.TimestampedFile{Path: path, LastModified: baseTime.UnixMilli()}, *tf)

	_, err = finder.Resolve(path, baseTime.UnixMilli()+1)
	assert.True(t, errors.Is(err, ErrChanged))

	_, err = finder.Resolve(filepath.Join(dir, "tombstone_99"), baseTime.UnixMilli())
	assert.True(t, errors.Is(err, ErrChanged))
}

func TestReadStable(t *testing.T) {
	dir := t.TempDir()
	path := writeTombstone(t, dir, "tombstone_00", sampleHeader+"body\n", baseTime)
	finder := NewFinder(dir)

	data, err := finder.Read(model.TimestampedFile{Path: path, LastModified: baseTime.UnixMilli()})

	require.NoError(t, err)
	assert.Equal(t, sampleHeader+"body\n", string(data))
}

func TestReadDetectsChangeDuringRead(t *testing.T) {
	dir := t.TempDir()
	path := writeTombstone(t, dir, "tombstone_00", sampleHeader, baseTime)
	finder := NewFinder(dir)

	calls := 0
	finder.lastModified = func(p string) int64 {
		calls++
		if calls == 1 {
			return baseTime.UnixMilli()
		}
		return baseTime.UnixMilli() + 5
	}

	data, err := finder.Read(model.TimestampedFile{Path: path, LastModified: baseTime.UnixMilli()})

	assert.Nil(t, data)
	assert.True(t, errors.Is(err, ErrChanged))
	assert.Equal(t, 2, calls)
}

func TestReadRejectsStaleReference(t *testing.T) {
	dir := t.TempDir()
	path := writeTombstone(t, dir, "tombstone_00", sampleHeader, baseTime)

	_, err := NewFinder(dir).Read(model.TimestampedFile{Path: path, LastModified: 1})

	assert.True(t, errors.Is(err, ErrChanged))
}

func TestHeaderFromStackTrace(t *testing.T) {
	tests := []struct {
		name       string
		stackTrace string
		want       string
		wantOK     bool
	}{
		{
			name:       "native crash",
			stackTrace: sampleHeader + "Process uptime: 3s\nsignal 11 (SIGSEGV)\n",
			want:       sampleHeader,
			wantOK:     true,
		},
		{
			name:       "no timestamp line",
			stackTrace: "java.lang.RuntimeException: boom\n\tat Foo.bar(Foo.java:1)\n",
			wantOK:     false,
		},
		{
			name:       "unterminated timestamp line",
			stackTrace: "banner\nTimestamp: 2024-03-01",
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, ok := HeaderFromStackTrace(tt.stackTrace)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, string(header))
			}
		})
	}
}
