package acquisitions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hbomb79/mediagetter/internal/acquire"
	"github.com/hbomb79/mediagetter/internal/api/util"
	"github.com/hbomb79/mediagetter/internal/media"
	"github.com/hbomb79/mediagetter/pkg/logger"
	"github.com/labstack/echo/v4"
)

var controllerLogger = logger.Get("AcquisitionsController")

type (
	// SubmitRequest is the body accepted by both the synchronous submission
	// endpoint, and the creation of a background acquisition.
	SubmitRequest struct {
		URL    string        `json:"url" validate:"required"`
		Folder *media.Folder `json:"folder" validate:"required"`
	}

	AcquisitionDto struct {
		Id        uuid.UUID      `json:"id"`
		URL       string         `json:"url"`
		Folder    media.Folder   `json:"folder"`
		Strategy  string         `json:"strategy"`
		State     string         `json:"state"`
		Outcome   *media.Outcome `json:"outcome"`
		Failure   *FailureDto    `json:"failure"`
		CreatedAt time.Time      `json:"created_at"`
		UpdatedAt time.Time      `json:"updated_at"`
	}

	FailureDto struct {
		Type    acquire.FailureKind `json:"type"`
		Message string              `json:"message"`
	}

	Service interface {
		Submit(ctx context.Context, rawURL string, folder media.Folder) (*media.Outcome, error)
		Enqueue(rawURL string, folder media.Folder) (uuid.UUID, error)
		GetAcquisition(uuid.UUID) *acquire.Acquisition
		GetAllAcquisitions() []*acquire.Acquisition
		RemoveAcquisition(uuid.UUID) error
	}

	Controller struct {
		service  Service
		validate *validator.Validate
	}
)

func New(validate *validator.Validate, service Service) *Controller {
	return &Controller{service: service, validate: validate}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
	eg.POST("/", controller.create)
	eg.GET("/:id/", controller.get)
	eg.DELETE("/:id/", controller.delete)
}

// Submit runs the acquisition to completion before responding, replying
// with a pretty-printed outcome. Failures are returned as a plain text
// diagnostic, with a status code reflecting the classification of the error.
func (controller *Controller) Submit(ec echo.Context) error {
	request, err := controller.bindSubmitRequest(ec)
	if err != nil {
		return ec.String(http.StatusBadRequest, err.Error())
	}

	outcome, err := controller.service.Submit(ec.Request().Context(), request.URL, *request.Folder)
	if err != nil {
		return ec.String(StatusFor(err), err.Error())
	}

	return ec.JSONPretty(http.StatusOK, outcome, "  ")
}

func (controller *Controller) create(ec echo.Context) error {
	request, err := controller.bindSubmitRequest(ec)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	id, err := controller.service.Enqueue(request.URL, *request.Folder)
	if err != nil {
		return echo.NewHTTPError(StatusFor(err), err.Error())
	}

	acquisition := controller.service.GetAcquisition(id)
	if acquisition == nil {
		// Finished and removed before we could report on it
		return ec.JSON(http.StatusAccepted, map[string]any{"id": id})
	}

	return ec.JSON(http.StatusAccepted, NewDto(acquisition))
}

func (controller *Controller) list(ec echo.Context) error {
	acquisitions := controller.service.GetAllAcquisitions()
	return ec.JSON(http.StatusOK, util.ApplyConversion(acquisitions, NewDto))
}

func (controller *Controller) get(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Acquisition ID is not a valid UUID")
	}

	acquisition := controller.service.GetAcquisition(id)
	if acquisition == nil {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("Acquisition with ID %s does not exist", id))
	}

	return ec.JSON(http.StatusOK, NewDto(acquisition))
}

func (controller *Controller) delete(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Acquisition ID is not a valid UUID")
	}

	if err := controller.service.RemoveAcquisition(id); err != nil {
		switch {
		case errors.Is(err, acquire.ErrAcquisitionNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, acquire.ErrAcquisitionInProgress):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}

		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return ec.NoContent(http.StatusOK)
}

func (controller *Controller) bindSubmitRequest(ec echo.Context) (*SubmitRequest, error) {
	var request SubmitRequest
	if err := ec.Bind(&request); err != nil {
		controllerLogger.Debugf("Rejecting submission with illegal body: %v\n", err)
		return nil, fmt.Errorf("invalid body: %v", err)
	}

	if err := controller.validate.Struct(request); err != nil {
		return nil, fmt.Errorf("invalid body: %v", err)
	}

	return &request, nil
}

// StatusFor maps an error returned by the acquisition service to the HTTP
// status code which best describes it.
func StatusFor(err error) int {
	switch acquire.Classify(err) {
	case acquire.INVALID_URL:
		return http.StatusBadRequest
	case acquire.BETTER_IMAGE_EXISTS:
		return http.StatusConflict
	case acquire.EXTRACTION_FAILED, acquire.UNCLASSIFIABLE_MEDIA, acquire.DECODE_ERROR:
		return http.StatusUnprocessableEntity
	case acquire.NETWORK_FAILURE:
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

func NewDto(acquisition *acquire.Acquisition) *AcquisitionDto {
	var failure *FailureDto
	if acquisition.Err != nil {
		failure = &FailureDto{Type: acquisition.FailureKind(), Message: acquisition.Err.Error()}
	}

	return &AcquisitionDto{
		Id:        acquisition.ID,
		URL:       acquisition.URL,
		Folder:    acquisition.Folder,
		Strategy:  acquisition.Strategy,
		State:     acquisition.State.String(),
		Outcome:   acquisition.Outcome,
		Failure:   failure,
		CreatedAt: acquisition.CreatedAt,
		UpdatedAt: acquisition.UpdatedAt,
	}
}
