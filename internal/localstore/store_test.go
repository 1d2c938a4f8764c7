package localstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jgoulah/plantlog/internal/database"
	"github.com/jgoulah/plantlog/pkg/models"
)

type memKV struct {
	data    map[string]string
	failGet bool
	failSet bool
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]string)}
}

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	if m.failGet {
		return "", false, errors.New("disk on fire")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	if m.failSet {
		return errors.New("disk full")
	}
	m.data[key] = value
	return nil
}

func (m *memKV) Remove(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// indexFailKV refuses writes to the date index
type indexFailKV struct {
	*database.DB
}

func (k indexFailKV) Set(ctx context.Context, key, value string) error {
	if key == DatesKey {
		return errors.New("disk full")
	}
	return k.DB.Set(ctx, key, value)
}

func openDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRecord(dateKey string) models.DayRecord {
	r := models.NewDayRecord(dateKey)
	r.Feeders[models.FeederF2] = models.FeederReading{Start: "500", End: "300"}
	r.Turbines[models.TurbineA] = models.TurbineReading{Previous: "1000", Present: "1100", Hours: "24"}
	return r
}

func TestStore_LoadDayDefaultsWhenMissing(t *testing.T) {
	s := New(newMemKV(), zap.NewNop())

	r := s.LoadDay(context.Background(), "2026-01-20")
	assert.Equal(t, models.NewDayRecord("2026-01-20"), r)
	assert.Nil(t, s.FindDay(context.Background(), "2026-01-20"))
}

func TestStore_SaveAndLoad(t *testing.T) {
	kv := newMemKV()
	s := New(kv, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.SaveDay(ctx, sampleRecord("2026-01-20")))
	require.NoError(t, s.SaveDay(ctx, sampleRecord("2026-01-18")))
	require.NoError(t, s.SaveDay(ctx, sampleRecord("2026-01-20")))

	assert.Equal(t, sampleRecord("2026-01-20"), s.LoadDay(ctx, "2026-01-20"))
	assert.Contains(t, kv.data, "plantlog:v1:day:2026-01-20")

	dates, err := s.Dates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-01-18", "2026-01-20"}, dates)
}

func TestStore_SaveRejectsBadDate(t *testing.T) {
	s := New(newMemKV(), zap.NewNop())

	err := s.SaveDay(context.Background(), models.NewDayRecord("20-01-2026"))
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestStore_WriteFailurePropagates(t *testing.T) {
	kv := newMemKV()
	kv.failSet = true
	s := New(kv, zap.NewNop())

	assert.Error(t, s.SaveDay(context.Background(), sampleRecord("2026-01-20")))
	assert.Error(t, s.SaveSettings(context.Background(), models.DefaultSettings()))
}

func TestStore_ReadFailureIsAbsent(t *testing.T) {
	kv := newMemKV()
	s := New(kv, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, s.SaveDay(ctx, sampleRecord("2026-01-20")))

	kv.failGet = true
	assert.Equal(t, models.NewDayRecord("2026-01-20"), s.LoadDay(ctx, "2026-01-20"))
	assert.Equal(t, models.DefaultSettings(), s.LoadSettings(ctx))
}

func TestStore_CorruptRecordIsAbsent(t *testing.T) {
	kv := newMemKV()
	kv.data[DayKey("2026-01-20")] = "{not json"
	s := New(kv, zap.NewNop())

	assert.Nil(t, s.FindDay(context.Background(), "2026-01-20"))
}

func TestStore_PartialRecordIsNormalized(t *testing.T) {
	kv := newMemKV()
	kv.data[DayKey("2026-01-20")] = `{"feeders":{"F1":{"start":"7","end":""}}}`
	s := New(kv, zap.NewNop())

	r := s.LoadDay(context.Background(), "2026-01-20")
	assert.Equal(t, "2026-01-20", r.DateKey)
	assert.Equal(t, "7", r.Feeders[models.FeederF1].Start)
	assert.Len(t, r.Feeders, 4)
	assert.Len(t, r.Turbines, 4)
}

func TestStore_DeleteDay(t *testing.T) {
	s := New(newMemKV(), zap.NewNop())
	ctx := context.Background()
	require.NoError(t, s.SaveDay(ctx, sampleRecord("2026-01-19")))
	require.NoError(t, s.SaveDay(ctx, sampleRecord("2026-01-20")))

	require.NoError(t, s.DeleteDay(ctx, "2026-01-19"))

	assert.Nil(t, s.FindDay(ctx, "2026-01-19"))
	dates, err := s.Dates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-01-20"}, dates)
}

func TestStore_ConcurrentSavesKeepEveryDate(t *testing.T) {
	s := New(openDB(t), zap.NewNop())
	ctx := context.Background()

	var want []string
	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		d := fmt.Sprintf("2026-01-%02d", i)
		want = append(want, d)
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.SaveDay(ctx, sampleRecord(d)))
		}()
	}
	wg.Wait()

	dates, err := s.Dates(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, dates)
}

func TestStore_CorruptIndexIsRebuilt(t *testing.T) {
	db := openDB(t)
	s := New(db, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, s.SaveDay(ctx, sampleRecord("2026-01-18")))
	require.NoError(t, s.SaveDay(ctx, sampleRecord("2026-01-19")))

	require.NoError(t, db.Set(ctx, DatesKey, "{not json"))
	require.NoError(t, db.Set(ctx, SettingsKey, `{"displayName":"x","decimalPrecision":2}`))

	dates, err := s.Dates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-01-18", "2026-01-19"}, dates)

	require.NoError(t, s.SaveDay(ctx, sampleRecord("2026-01-20")))

	bundle, err := s.ExportBundle(ctx)
	require.NoError(t, err)
	assert.Len(t, bundle.Days, 3)

	raw, ok, err := db.Get(ctx, DatesKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `["2026-01-18","2026-01-19","2026-01-20"]`, raw)
}

func TestStore_MissingIndexIsRebuilt(t *testing.T) {
	db := openDB(t)
	s := New(db, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, s.SaveDay(ctx, sampleRecord("2026-01-18")))
	require.NoError(t, db.Remove(ctx, DatesKey))

	dates, err := s.Dates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-01-18"}, dates)
}

func TestStore_FailedIndexWriteRollsBackRecord(t *testing.T) {
	db := openDB(t)
	s := New(indexFailKV{DB: db}, zap.NewNop())
	ctx := context.Background()

	err := s.SaveDay(ctx, sampleRecord("2026-01-20"))
	require.Error(t, err)

	_, ok, err := db.Get(ctx, DayKey("2026-01-20"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_DatesInMonth(t *testing.T) {
	s := New(newMemKV(), zap.NewNop())
	ctx := context.Background()
	for _, d := range []string{"2026-01-31", "2026-02-01", "2026-02-14"} {
		require.NoError(t, s.SaveDay(ctx, sampleRecord(d)))
	}

	got, err := s.DatesInMonth(ctx, "2026-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02-01", "2026-02-14"}, got)
}

func TestStore_Settings(t *testing.T) {
	s := New(newMemKV(), zap.NewNop())
	ctx := context.Background()

	assert.Equal(t, models.DefaultSettings(), s.LoadSettings(ctx))

	want := models.UserSettings{DisplayName: "Shift B", DecimalPrecision: 3}
	require.NoError(t, s.SaveSettings(ctx, want))
	assert.Equal(t, want, s.LoadSettings(ctx))
}

func TestBundle_RoundTripIsByteIdentical(t *testing.T) {
	ctx := context.Background()
	srcDB, err := database.New(filepath.Join(t.TempDir(), "src.db"))
	require.NoError(t, err)
	defer srcDB.Close()
	dstDB, err := database.New(filepath.Join(t.TempDir(), "dst.db"))
	require.NoError(t, err)
	defer dstDB.Close()

	src := New(srcDB, zap.NewNop())
	withdrawal := sampleRecord("2026-01-21")
	withdrawal.Feeders[models.FeederF4] = models.FeederReading{Start: "1", End: "9000"}
	for _, r := range []models.DayRecord{sampleRecord("2026-01-20"), withdrawal, models.NewDayRecord("2026-02-01")} {
		require.NoError(t, src.SaveDay(ctx, r))
	}
	require.NoError(t, src.SaveSettings(ctx, models.UserSettings{DisplayName: "Unit 3", DecimalPrecision: 1}))

	bundle, err := src.ExportBundle(ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteBundle(&buf, bundle))
	decoded, err := ReadBundle(&buf)
	require.NoError(t, err)

	dst := New(dstDB, zap.NewNop())
	require.NoError(t, dst.ImportBundle(ctx, decoded))

	for _, d := range []string{"2026-01-20", "2026-01-21", "2026-02-01"} {
		want, ok, err := srcDB.Get(ctx, DayKey(d))
		require.NoError(t, err)
		require.True(t, ok)
		got, ok, err := dstDB.Get(ctx, DayKey(d))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, got, d)
	}
	assert.Equal(t, src.LoadSettings(ctx), dst.LoadSettings(ctx))

	again, err := dst.ExportBundle(ctx)
	require.NoError(t, err)
	assert.Equal(t, bundle, again)
}

func TestBundle_RejectsUnknownVersion(t *testing.T) {
	s := New(newMemKV(), zap.NewNop())
	assert.Error(t, s.ImportBundle(context.Background(), Bundle{Version: 99}))
}
