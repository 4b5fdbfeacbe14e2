package history

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hbomb79/mediagetter/internal/api/util"
	"github.com/hbomb79/mediagetter/internal/history"
	"github.com/hbomb79/mediagetter/internal/media"
	"github.com/hbomb79/mediagetter/internal/report"
	"github.com/labstack/echo/v4"
)

type (
	ListRequest struct {
		Folder string `query:"folder" validate:"omitempty,oneof=safe unsafe"`
		Limit  uint64 `query:"limit" validate:"omitempty,min=1,max=500"`
	}

	RecordDto struct {
		Id          uuid.UUID `json:"id"`
		URL         string    `json:"url"`
		Folder      string    `json:"folder"`
		Strategy    string    `json:"strategy"`
		State       string    `json:"state"`
		Kind        *string   `json:"kind"`
		Size        *string   `json:"size"`
		FailureKind *string   `json:"failure_kind"`
		Message     *string   `json:"failure_message"`
		CreatedAt   time.Time `json:"created_at"`
		FinishedAt  time.Time `json:"finished_at"`
	}

	Store interface {
		List(ctx context.Context, filter history.Filter) ([]*history.Record, error)
	}

	Controller struct {
		store    Store
		validate *validator.Validate
	}
)

func New(validate *validator.Validate, store Store) *Controller {
	return &Controller{store: store, validate: validate}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
}

func (controller *Controller) list(ec echo.Context) error {
	var request ListRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid query: %s", err.Error()))
	}

	if err := controller.validate.Struct(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid query: %s", err.Error()))
	}

	filter := history.Filter{Limit: request.Limit}
	if request.Folder != "" {
		folder, err := media.ParseFolder(request.Folder)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		filter.Folder = &folder
	}

	records, err := controller.store.List(ec.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return ec.JSON(http.StatusOK, util.ApplyConversion(records, NewDto))
}

func NewDto(record *history.Record) *RecordDto {
	var size *string
	if record.SizeBytes != nil {
		human := report.HumanSize(*record.SizeBytes)
		size = &human
	}

	return &RecordDto{
		Id:          record.ID,
		URL:         record.URL,
		Folder:      record.Folder,
		Strategy:    record.Strategy,
		State:       record.State,
		Kind:        record.Kind,
		Size:        size,
		FailureKind: record.FailureKind,
		Message:     record.FailureMessage,
		CreatedAt:   record.CreatedAt,
		FinishedAt:  record.FinishedAt,
	}
}
