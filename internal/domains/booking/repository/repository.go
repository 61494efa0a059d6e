package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"
	"time"

	"studio/infras/otel"
	"studio/infras/postgres"
	"studio/internal/domains/booking/model"
	"studio/shared/constant"
	gDto "studio/shared/dto"
	gRepo "studio/shared/repository"

	"github.com/jmoiron/sqlx"
)

// ConflictCheck inspects the confirmed bookings of a room and day and returns a non-nil
// error to abort the insert.
type ConflictCheck func(confirmed []model.Booking) error

type Booking interface {
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Booking, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	ListConfirmed(ctx context.Context, roomID string, date time.Time) ([]model.Booking, error)
	InsertChecked(ctx context.Context, lockKey string, booking model.Booking, check ConflictCheck) error
	GetDetail(ctx context.Context, filter gDto.FilterGroup) (model.Detail, error)
	GetAllDetails(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) ([]model.Detail, error)
	CountDetails(ctx context.Context, filter gDto.FilterGroup) (int, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Booking]
	detail gRepo.Repository[model.Detail]
	otel   otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Booking {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Booking](model.EntityName, model.TableName, model.FieldID, db, otel),
		detail:     gRepo.NewRepository[model.Detail](model.EntityName, model.TableName, model.FieldID, db, otel),
		otel:       otel,
	}
}

func confirmedOn(roomID string, date time.Time) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldRoomID, Value: roomID, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{Field: model.FieldBookingDate, Value: date.Format(constant.DayFormat), Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{Field: model.FieldStatus, Value: string(model.StatusConfirmed), Operator: gDto.FilterOperatorEq, Table: model.TableName},
		},
	}
}

var byStart = gDto.QueryParams{SortBy: model.TableName + "." + model.FieldStartTime, SortDir: gDto.SortDirAsc}

func (repo *repositoryImpl) ListConfirmed(ctx context.Context, roomID string, date time.Time) ([]model.Booking, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.ListConfirmed")
	defer scope.End()

	return repo.GetAll(ctx, byStart, confirmedOn(roomID, date)) //nolint:wrapcheck
}

// InsertChecked serializes writers on lockKey with a transaction scoped advisory lock, hands the
// confirmed bookings of the same room and day to check, and inserts only when check passes.
func (repo *repositoryImpl) InsertChecked(ctx context.Context, lockKey string, booking model.Booking, check ConflictCheck) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.InsertChecked")
	defer scope.End()

	err := repo.WithTx(ctx, func(sqltx *sqlx.Tx) error {
		if err := repo.LockTx(ctx, sqltx, lockKey); err != nil {
			return err
		}

		confirmed, err := repo.GetAllTx(ctx, sqltx, byStart, confirmedOn(booking.RoomID, booking.BookingDate))
		if err != nil {
			return err
		}

		if err := check(confirmed); err != nil {
			return err
		}

		return repo.InsertTx(ctx, sqltx, booking)
	})
	if err != nil {
		scope.TraceError(err)

		return fmt.Errorf("failed to insert booking: %w", err)
	}

	return nil
}

func (repo *repositoryImpl) GetDetail(ctx context.Context, filter gDto.FilterGroup) (model.Detail, error) {
	return repo.detail.Get(ctx, filter) //nolint:wrapcheck
}

func (repo *repositoryImpl) GetAllDetails(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) ([]model.Detail, error) {
	return repo.detail.GetAll(ctx, params, filter) //nolint:wrapcheck
}

func (repo *repositoryImpl) CountDetails(ctx context.Context, filter gDto.FilterGroup) (int, error) {
	return repo.detail.Count(ctx, filter) //nolint:wrapcheck
}
