package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavitra93/go-multi-tenant-rsvp/shared/models"
)

func newRecord(id, name string) *models.GuestRecord {
	return &models.GuestRecord{
		ID:           id,
		Name:         name,
		Relationship: "Friend",
		Attendance:   models.AttendanceYes,
		Message:      "",
		SubmittedAt:  time.Date(2025, 10, 28, 0, 0, 0, 0, time.UTC),
	}
}

func TestFileRecordStore_ReadAllEmptyTenant(t *testing.T) {
	store := NewFileRecordStore(t.TempDir(), FileRecordStoreOptions{})

	records, err := store.ReadAll(context.Background(), "john-jane")

	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestFileRecordStore_AppendRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewFileRecordStore(root, FileRecordStoreOptions{})

	rec := &models.GuestRecord{
		ID:           "1",
		Name:         `Alice "Al" Smith, Jr.`,
		Relationship: " College friend ",
		Attendance:   models.AttendanceMaybe,
		Message:      "Can't wait!\nSee you, \"lovebirds\"",
		SubmittedAt:  time.Date(2025, 10, 28, 14, 3, 5, 123000000, time.UTC),
	}
	require.NoError(t, store.Append(ctx, "john-jane", rec))

	records, err := store.ReadAll(ctx, "john-jane")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, *rec, records[0])

	data, err := os.ReadFile(filepath.Join(root, "john-jane", "rsvp.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "ID,Name,Relationship,Attendance,Message,Submitted At\n")
	assert.Contains(t, string(data), `"Alice ""Al"" Smith, Jr."`)
}

func TestFileRecordStore_EndToEndScenario(t *testing.T) {
	ctx := context.Background()
	store := NewFileRecordStore(t.TempDir(), FileRecordStoreOptions{})

	id, err := store.NextID(ctx, "john-jane")
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	rec := newRecord(id, "Alice")
	require.NoError(t, store.Append(ctx, "john-jane", rec))

	records, err := store.ReadAll(ctx, "john-jane")
	require.NoError(t, err)
	assert.Equal(t, []models.GuestRecord{*rec}, records)

	next, err := store.NextID(ctx, "john-jane")
	require.NoError(t, err)
	assert.Equal(t, "2", next)
}

func TestFileRecordStore_NextIDStrictlyIncreases(t *testing.T) {
	ctx := context.Background()
	store := NewFileRecordStore(t.TempDir(), FileRecordStoreOptions{})

	seen := map[string]bool{}
	prev := int64(0)
	for i := 0; i < 5; i++ {
		id, err := store.NextID(ctx, "john-jane")
		require.NoError(t, err)
		assert.False(t, seen[id], "id %s reused", id)
		seen[id] = true

		n := mustAtoi(t, id)
		assert.Greater(t, n, prev)
		prev = n

		require.NoError(t, store.Append(ctx, "john-jane", newRecord(id, "Guest")))
	}
}

func TestFileRecordStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := NewFileRecordStore(t.TempDir(), FileRecordStoreOptions{})

	a := newRecord("1", "Alice from A")
	b := newRecord("1", "Bob from B")
	b.Attendance = models.AttendanceNo
	require.NoError(t, store.Append(ctx, "tenant-a", a))
	require.NoError(t, store.Append(ctx, "tenant-b", b))

	recsA, err := store.ReadAll(ctx, "tenant-a")
	require.NoError(t, err)
	recsB, err := store.ReadAll(ctx, "tenant-b")
	require.NoError(t, err)

	assert.Equal(t, []models.GuestRecord{*a}, recsA)
	assert.Equal(t, []models.GuestRecord{*b}, recsB)

	b.Name = "Bob updated"
	require.NoError(t, store.Update(ctx, "tenant-b", b))

	recsA, err = store.ReadAll(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, "Alice from A", recsA[0].Name)
}

func TestFileRecordStore_AppendRejectsIncompleteRecord(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewFileRecordStore(root, FileRecordStoreOptions{})

	rec := newRecord("1", "")
	rec.Relationship = ""
	err := store.Append(ctx, "john-jane", rec)

	assert.ErrorIs(t, err, ErrMissingFields)
	assert.Contains(t, err.Error(), "name, relationship")
	_, statErr := os.Stat(filepath.Join(root, "john-jane"))
	assert.True(t, os.IsNotExist(statErr), "nothing may be written")
}

func TestFileRecordStore_AppendRejectsBadAttendance(t *testing.T) {
	store := NewFileRecordStore(t.TempDir(), FileRecordStoreOptions{})

	rec := newRecord("1", "Alice")
	rec.Attendance = "perhaps"

	assert.ErrorIs(t, store.Append(context.Background(), "john-jane", rec), ErrInvalidAttendance)
}

func TestFileRecordStore_RejectsUnsafeTenant(t *testing.T) {
	ctx := context.Background()
	store := NewFileRecordStore(t.TempDir(), FileRecordStoreOptions{})

	for _, bad := range []string{"..", "../other", "a/b", ""} {
		_, err := store.ReadAll(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidTenant, bad)
		assert.ErrorIs(t, store.Append(ctx, bad, newRecord("1", "Alice")), ErrInvalidTenant, bad)
		_, err = store.NextID(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidTenant, bad)
	}
}

func TestFileRecordStore_FindByID(t *testing.T) {
	ctx := context.Background()
	store := NewFileRecordStore(t.TempDir(), FileRecordStoreOptions{})
	require.NoError(t, store.Append(ctx, "john-jane", newRecord("1", "Alice")))
	require.NoError(t, store.Append(ctx, "john-jane", newRecord("2", "Bob")))

	rec, err := store.FindByID(ctx, "john-jane", "2")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Bob", rec.Name)

	rec, err = store.FindByID(ctx, "john-jane", "9")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestFileRecordStore_UpdateMissingLeavesFileUntouched(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewFileRecordStore(root, FileRecordStoreOptions{})
	require.NoError(t, store.Append(ctx, "john-jane", newRecord("1", "Alice")))
	require.NoError(t, store.Append(ctx, "john-jane", newRecord("2", "Bob")))

	path := filepath.Join(root, "john-jane", "rsvp.csv")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = store.Update(ctx, "john-jane", newRecord("3", "Carol"))
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.Contains(t, err.Error(), "record not found")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFileRecordStore_UpdatePreservesOthers(t *testing.T) {
	for _, atomic := range []bool{false, true} {
		t.Run(map[bool]string{false: "in place", true: "atomic"}[atomic], func(t *testing.T) {
			ctx := context.Background()
			root := t.TempDir()
			store := NewFileRecordStore(root, FileRecordStoreOptions{AtomicRewrite: atomic})

			originals := []*models.GuestRecord{
				newRecord("1", "Alice"),
				newRecord("2", "Bob"),
				newRecord("3", "Carol"),
			}
			for _, r := range originals {
				require.NoError(t, store.Append(ctx, "john-jane", r))
			}

			changed := newRecord("2", "Bob, plus one")
			changed.Attendance = models.AttendanceNo
			changed.Message = `Sorry, "work"`
			require.NoError(t, store.Update(ctx, "john-jane", changed))

			records, err := store.ReadAll(ctx, "john-jane")
			require.NoError(t, err)
			assert.Equal(t, []models.GuestRecord{*originals[0], *changed, *originals[2]}, records)

			entries, err := os.ReadDir(filepath.Join(root, "john-jane"))
			require.NoError(t, err)
			assert.Len(t, entries, 1, "no temp files left behind")
		})
	}
}

func TestFileRecordStore_UpdateRejectsIncompleteRecord(t *testing.T) {
	ctx := context.Background()
	store := NewFileRecordStore(t.TempDir(), FileRecordStoreOptions{})
	require.NoError(t, store.Append(ctx, "john-jane", newRecord("1", "Alice")))

	rec := newRecord("1", "Alice")
	rec.SubmittedAt = time.Time{}

	assert.ErrorIs(t, store.Update(ctx, "john-jane", rec), ErrMissingFields)
}

func TestFileRecordStore_LegacyAndMalformedLines(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir := filepath.Join(root, "john-jane")
	require.NoError(t, os.MkdirAll(dir, 0755))

	content := "ID,Name,Position,Attendance,Message,Submitted At\n" +
		"1,Alice,Friend,yes,,2025-10-28T00:00:00Z\n" +
		"2,,Cousin,no,,2025-10-28T00:00:00Z\n" +
		"3,Carol,Colleague,sometimes,,2025-10-28T00:00:00Z\n" +
		"4,Dave,Uncle,maybe,\"Hi, all\",not-a-date\n" +
		"5,Eve,Neighbor,no,\"See you\",2025-10-29T10:00:00.5Z"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rsvp.csv"), []byte(content), 0644))

	store := NewFileRecordStore(root, FileRecordStoreOptions{})
	records, err := store.ReadAll(ctx, "john-jane")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Alice", records[0].Name)
	assert.Equal(t, "Friend", records[0].Relationship)
	assert.Equal(t, "Eve", records[1].Name)
	assert.Equal(t, "Neighbor", records[1].Relationship)

	next, err := store.NextID(ctx, "john-jane")
	require.NoError(t, err)
	assert.Equal(t, "6", next)

	// the file ends without a newline; appending must not glue lines together
	require.NoError(t, store.Append(ctx, "john-jane", newRecord(next, "Frank")))
	records, err = store.ReadAll(ctx, "john-jane")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Eve", records[1].Name)
	assert.Equal(t, "Frank", records[2].Name)

	// updates write the current header only
	require.NoError(t, store.Update(ctx, "john-jane", newRecord("1", "Alice")))
	data, err := os.ReadFile(filepath.Join(dir, "rsvp.csv"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Position")
	assert.Contains(t, string(data), "Relationship")

	// the rewrite keeps only the lines that parsed
	assert.NotContains(t, string(data), "Carol")
	assert.NotContains(t, string(data), "not-a-date")
	assert.Equal(t, 4, strings.Count(string(data), "\n"), "header plus three records")
	records, err = store.ReadAll(ctx, "john-jane")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"1", "5", "6"}, []string{records[0].ID, records[1].ID, records[2].ID})
}

func TestFileRecordStore_SubmittedAtNormalisedToUTC(t *testing.T) {
	ctx := context.Background()
	store := NewFileRecordStore(t.TempDir(), FileRecordStoreOptions{})

	zone := time.FixedZone("IST", 5*3600+1800)
	rec := newRecord("1", "Alice")
	rec.SubmittedAt = time.Date(2025, 10, 28, 5, 30, 0, 123456789, zone)
	require.NoError(t, store.Append(ctx, "john-jane", rec))
	assert.Equal(t, time.UTC, rec.SubmittedAt.Location())

	records, err := store.ReadAll(ctx, "john-jane")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, *rec, records[0])
	assert.True(t, time.Date(2025, 10, 28, 0, 0, 0, 123456789, time.UTC).Equal(records[0].SubmittedAt))
}

func TestFileRecordStore_ConcurrentNextIDCanCollide(t *testing.T) {
	ctx := context.Background()
	store := NewFileRecordStore(t.TempDir(), FileRecordStoreOptions{})
	require.NoError(t, store.Append(ctx, "john-jane", newRecord("1", "Alice")))

	// two requests compute an id before either one writes
	first, err := store.NextID(ctx, "john-jane")
	require.NoError(t, err)
	second, err := store.NextID(ctx, "john-jane")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, store.Append(ctx, "john-jane", newRecord(first, "Bob")))
	require.NoError(t, store.Append(ctx, "john-jane", newRecord(second, "Carol")))

	records, err := store.ReadAll(ctx, "john-jane")
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, records[1].ID, records[2].ID)
}
