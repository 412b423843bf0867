package fixlog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeloop-io/forgeloop/internal/models"
)

func rec(platform, errSig, fix string) models.FixRecord {
	return models.FixRecord{
		Timestamp:  time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC),
		Platform:   platform,
		ErrorSig:   errSig,
		FixSummary: fix,
	}
}

func TestAppendAndDigest(t *testing.T) {
	s := NewStore()
	root := t.TempDir()

	require.NoError(t, s.Append(root, rec("android", "unresolved reference: Foo", "added import for Foo")))

	digest, err := s.Digest(root, 0)
	require.NoError(t, err)
	assert.Contains(t, digest, "unresolved reference: Foo")
	assert.Contains(t, digest, "added import for Foo")
	assert.Contains(t, digest, "android")
}

func TestDigestEmptyWorkspace(t *testing.T) {
	s := NewStore()

	digest, err := s.Digest(t.TempDir(), 1000)
	require.NoError(t, err)
	assert.Empty(t, digest)
}

func TestDigestBoundKeepsNewestEntries(t *testing.T) {
	s := NewStore()
	root := t.TempDir()

	for i := 0; i < 20; i++ {
		require.NoError(t, s.Append(root, rec("android",
			"error number "+strings.Repeat("x", 50),
			"fix number "+string(rune('a'+i)))))
	}

	digest, err := s.Digest(root, 300)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(digest), 300)
	// Newest entry survives, oldest is evicted from the view.
	assert.Contains(t, digest, "fix number "+string(rune('a'+19)))
	assert.NotContains(t, digest, "fix number a\n")

	// The underlying log keeps everything.
	records, err := s.Records(root)
	require.NoError(t, err)
	assert.Len(t, records, 20)
}

func TestDigestIsolatedPerWorkspace(t *testing.T) {
	s := NewStore()
	rootA := t.TempDir()
	rootB := t.TempDir()

	require.NoError(t, s.Append(rootA, rec("android", "error A", "fix A")))
	require.NoError(t, s.Append(rootB, rec("ios", "error B", "fix B")))

	digestA, err := s.Digest(rootA, 0)
	require.NoError(t, err)
	assert.Contains(t, digestA, "error A")
	assert.NotContains(t, digestA, "error B")
}

func TestClear(t *testing.T) {
	s := NewStore()
	root := t.TempDir()
	other := t.TempDir()

	require.NoError(t, s.Append(root, rec("android", "error", "fix")))
	require.NoError(t, s.Append(other, rec("ios", "other error", "other fix")))

	require.NoError(t, s.Clear(root))

	digest, err := s.Digest(root, 0)
	require.NoError(t, err)
	assert.Empty(t, digest)

	// Clear is scoped to one workspace.
	otherDigest, err := s.Digest(other, 0)
	require.NoError(t, err)
	assert.Contains(t, otherDigest, "other error")

	// Clearing an already-empty log is fine.
	require.NoError(t, s.Clear(root))
}

func TestRecordsRoundTrip(t *testing.T) {
	s := NewStore()
	root := t.TempDir()

	require.NoError(t, s.Append(root, rec("android", "first error", "first fix")))
	require.NoError(t, s.Append(root, rec("ios", "second error", "second fix")))

	records, err := s.Records(root)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Chronological append order is preserved.
	assert.Equal(t, "first error", records[0].ErrorSig)
	assert.Equal(t, "android", records[0].Platform)
	assert.Equal(t, "second fix", records[1].FixSummary)
	assert.Equal(t, "ios", records[1].Platform)
	assert.Equal(t, 2026, records[0].Timestamp.Year())
}
