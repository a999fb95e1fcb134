package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartarleather/erp-backend/internal/production/repository"
	"github.com/bartarleather/erp-backend/pkg/database"
	"github.com/bartarleather/erp-backend/pkg/errors"
	"github.com/bartarleather/erp-backend/pkg/testutil"
)

func TestInventoryRepository_Upsert_PreservesWarehouse(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	now := time.Now()
	// The conflict branch does not overwrite warehouse_id; the stored value
	// comes back through RETURNING.
	mockDB.ExpectQuery("INSERT INTO inventory_records").
		WillReturnRows(testutil.MockRows("warehouse_id", "created_at", "updated_at").
			AddRow("wh-original", now, now))

	repo := repository.NewInventoryRepository(&database.DB{DB: mockDB.DB})

	rec := &repository.InventoryRecord{
		ProductID:   "p1",
		ShelfID:     "s1",
		Stock:       12.5,
		WarehouseID: "wh-other",
	}
	err := repo.Upsert(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, "wh-original", rec.WarehouseID)
	assert.Equal(t, now, rec.UpdatedAt)
	mockDB.ExpectationsWereMet(t)
}

func TestOrderRepository_ListByIDs_MissingID(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	now := time.Now()
	mockDB.ExpectQuery("FROM production_orders").
		WillReturnRows(testutil.MockRows("id", "title", "quantity", "status", "grids", "created_at", "updated_at").
			AddRow("o1", "کیف", 10.0, repository.OrderStatusPending, []byte("[]"), now, now))

	repo := repository.NewOrderRepository(&database.DB{DB: mockDB.DB})

	_, err := repo.ListByIDs(context.Background(), []string{"o1", "o2"})
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	mockDB.ExpectationsWereMet(t)
}

func TestOrderRepository_ListByIDs_PreservesRequestedOrder(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	now := time.Now()
	// The database returns rows in its own order.
	mockDB.ExpectQuery("FROM production_orders").
		WillReturnRows(testutil.MockRows("id", "title", "quantity", "status", "grids", "created_at", "updated_at").
			AddRow("o2", "کمربند", 5.0, repository.OrderStatusPending, []byte("[]"), now, now).
			AddRow("o1", "کیف", 10.0, repository.OrderStatusPending, []byte("[]"), now, now))

	repo := repository.NewOrderRepository(&database.DB{DB: mockDB.DB})

	orders, err := repo.ListByIDs(context.Background(), []string{"o1", "o2"})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "o1", orders[0].ID)
	assert.Equal(t, "o2", orders[1].ID)
	mockDB.ExpectationsWereMet(t)
}

func TestStageTaskRepository_SaveHandoverState_NotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectExec("UPDATE stage_tasks SET handover_state").
		WillReturnResult(testutil.MockResult(0, 0))

	repo := repository.NewStageTaskRepository(&database.DB{DB: mockDB.DB})

	err := repo.SaveHandoverState(context.Background(), "missing", repository.HandoverState{})
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	mockDB.ExpectationsWereMet(t)
}
