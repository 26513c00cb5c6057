package notify

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lustra-app/lustra-golang/internal/models"
)

type fakeExecer struct {
	query string
	args  []any
	err   error
}

func (f *fakeExecer) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	f.query = query
	f.args = args
	if f.err != nil {
		return nil, f.err
	}
	return fakeResult(99), nil
}

type fakeResult int64

func (r fakeResult) LastInsertId() (int64, error) { return int64(r), nil }
func (r fakeResult) RowsAffected() (int64, error) { return 1, nil }

func TestCreate_FullSchemaIncludesType(t *testing.T) {
	db := &fakeExecer{}
	e := &Emitter{DB: db}

	n := &models.Notification{UserID: 7, Title: "Order Placed", Message: "hi", Type: TypeOrder}
	require.NoError(t, e.Create(context.Background(), n))

	assert.Contains(t, db.query, "type")
	assert.Len(t, db.args, 6)
	assert.Equal(t, int64(99), n.ID)
	assert.False(t, n.CreatedAt.IsZero())
}

func TestCreate_LegacySchemaDropsType(t *testing.T) {
	db := &fakeExecer{}
	e := &Emitter{DB: db, LegacySchema: true}

	n := &models.Notification{UserID: 7, Title: "Order Placed", Message: "hi", Type: TypeOrder}
	require.NoError(t, e.Create(context.Background(), n))

	assert.NotContains(t, db.query, "type")
	assert.Len(t, db.args, 5)
}

func TestCreate_DefaultsTypeToSystem(t *testing.T) {
	db := &fakeExecer{}
	e := &Emitter{DB: db}

	n := &models.Notification{UserID: 7, Message: "hi"}
	require.NoError(t, e.Create(context.Background(), n))
	assert.Equal(t, TypeSystem, n.Type)
}

func TestOrderPlaced(t *testing.T) {
	db := &fakeExecer{}
	e := &Emitter{DB: db}

	require.NoError(t, e.OrderPlaced(context.Background(), 7, 31))
	assert.Equal(t, int64(7), db.args[0])
	assert.Equal(t, "Order Placed", db.args[1])
	assert.Contains(t, db.args[2], "#31")
	assert.Equal(t, TypeOrder, db.args[3])
}

func TestCreate_SinkFailureIsReturnedToCaller(t *testing.T) {
	db := &fakeExecer{err: errors.New("table gone")}
	e := &Emitter{DB: db}

	err := e.OrderPlaced(context.Background(), 7, 31)
	assert.Error(t, err)
}

func TestValidType(t *testing.T) {
	for _, typ := range []string{TypePayment, TypeOrder, TypePromotion, TypeSystem} {
		assert.True(t, ValidType(typ))
	}
	assert.False(t, ValidType("sms"))
	assert.False(t, ValidType(""))
}
