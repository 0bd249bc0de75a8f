package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"starnotify/internal/notifications/core"
	"starnotify/internal/types"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// --- Mock Rows ---

type mockRows struct {
	data    [][]any
	idx     int
	closed  bool
	scanErr error
	errVal  error
}

func newMockRows(data [][]any) *mockRows {
	return &mockRows{data: data, idx: -1}
}

func (r *mockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *mockRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.data[r.idx]
	for i, d := range dest {
		switch v := d.(type) {
		case *string:
			*v = row[i].(string)
		case *time.Time:
			*v = row[i].(time.Time)
		case *int64:
			*v = row[i].(int64)
		}
	}
	return nil
}

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.errVal }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }

type mockPinger struct{ err error }

func (p mockPinger) Ping(context.Context) error { return p.err }

// --- DeliveryRepository Tests ---

func TestDeliveryRepository_EnsureSchema(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDeliveryRepository(db)

	db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return assert.ObjectsAreEqual(deliverySchema, sql)
	}), mock.Anything).Return(pgconn.NewCommandTag("CREATE TABLE"), nil)

	require.NoError(t, repo.EnsureSchema(context.Background()))
	db.AssertExpectations(t)
}

func TestDeliveryRepository_EnsureSchema_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDeliveryRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("permission denied"))

	err := repo.EnsureSchema(context.Background())
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestDeliveryRepository_Record(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDeliveryRepository(db)

	at := time.Date(2026, 3, 1, 22, 15, 0, 0, time.UTC)
	rec := core.DeliveryRecord{
		ID:         "0d6c2c1e-7d55-4c1b-9d7e-0a1b2c3d4e5f",
		TriggerID:  "hfr",
		Channel:    types.ChannelPushover,
		Source:     types.SourceByCondition,
		Result:     core.MetricSuccess,
		Body:       "HFR: 3.61    -> Condition fulfilled",
		AttemptAt:  at,
		DurationMS: 412,
	}

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), []any{
		rec.ID, "hfr", "pushover", "by_condition", "success", "", rec.Body, at, int64(412),
	}).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	require.NoError(t, repo.Record(context.Background(), rec))
	db.AssertExpectations(t)
}

func TestDeliveryRepository_Record_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDeliveryRepository(db)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection refused"))

	err := repo.Record(context.Background(), core.DeliveryRecord{ID: "x"})
	require.Error(t, err)
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestDeliveryRepository_Recent(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDeliveryRepository(db)

	newer := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	rows := newMockRows([][]any{
		{"b", "every-5", "ntfy", "after_exposures", "timeout", "dispatch_timeout: sending via ntfy exceeded 40s", "Stars: 10", newer, int64(40000)},
		{"a", "hfr", "email", "by_condition", "success", "", "HFR: 3.2", older, int64(950)},
	})
	db.On("Query", mock.Anything, mock.AnythingOfType("string"), []any{10}).Return(rows, nil)

	recs, err := repo.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "b", recs[0].ID)
	assert.Equal(t, types.TriggerID("every-5"), recs[0].TriggerID)
	assert.Equal(t, types.ChannelNtfy, recs[0].Channel)
	assert.Equal(t, types.SourceAfterExposures, recs[0].Source)
	assert.Equal(t, core.MetricTimeout, recs[0].Result)
	assert.Equal(t, int64(40000), recs[0].DurationMS)
	assert.True(t, newer.Equal(recs[0].AttemptAt))
	assert.Equal(t, core.MetricSuccess, recs[1].Result)
	assert.True(t, rows.closed)
}

func TestDeliveryRepository_Recent_Errors(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		db := new(mockDBTX)
		db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
			Return(nil, errors.New("connection refused"))

		_, err := NewDeliveryRepository(db).Recent(context.Background(), 5)
		var appErr *types.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
	})

	t.Run("scan", func(t *testing.T) {
		db := new(mockDBTX)
		rows := newMockRows([][]any{{"a"}})
		rows.scanErr = errors.New("type mismatch")
		db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

		_, err := NewDeliveryRepository(db).Recent(context.Background(), 5)
		require.Error(t, err)
	})

	t.Run("iteration", func(t *testing.T) {
		db := new(mockDBTX)
		rows := newMockRows(nil)
		rows.errVal = errors.New("conn reset")
		db.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

		_, err := NewDeliveryRepository(db).Recent(context.Background(), 5)
		require.Error(t, err)
	})
}

func TestHealthProbe(t *testing.T) {
	probe := HealthProbe{DB: mockPinger{}}
	assert.Equal(t, "database", probe.Name())
	assert.NoError(t, probe.Check(context.Background()))

	probe = HealthProbe{DB: mockPinger{err: errors.New("down")}}
	assert.Error(t, probe.Check(context.Background()))
}
