package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/hbomb79/mediagetter/internal/api/acquisitions"
	"github.com/hbomb79/mediagetter/internal/api/history"
	"github.com/hbomb79/mediagetter/internal/http/websocket"
	"github.com/hbomb79/mediagetter/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var log = logger.Get("API")

const (
	apiPrefix = "/api/mediagetter/v1"

	CommandListAcquisitions = "LIST_ACQUISITIONS"
)

type (
	RestConfig struct {
		HostAddr string `yaml:"host_address" env:"API_HOST_ADDR" env-default:"0.0.0.0:6969"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// The RestGateway is a thin-wrapper around the Echo HTTP router. It's sole responsibility
	// is to create the routes exposed by the server, and to manage ongoing web socket
	// connections.
	RestGateway struct {
		*broadcaster
		config                *RestConfig
		ec                    *echo.Echo
		socket                *websocket.SocketHub
		acquisitionController *acquisitions.Controller
		historyController     controller
	}
)

// NewRestGateway constructs the Echo router and populates it with all the
// routes defined by the controllers. The history store is optional, and
// when nil the history endpoints are not registered.
func NewRestGateway(config *RestConfig, acquisitionService acquisitions.Service, historyStore history.Store) *RestGateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HidePort = true
	ec.HideBanner = true

	validate := validator.New()
	socket := websocket.New()
	gateway := &RestGateway{
		broadcaster:           newBroadcaster(socket, acquisitionService),
		config:                config,
		ec:                    ec,
		socket:                socket,
		acquisitionController: acquisitions.New(validate, acquisitionService),
	}

	socket.WithConnectionCallback(gateway.connectionPayload).
		BindCommand(CommandListAcquisitions, gateway.listAcquisitions)

	ec.Use(middleware.Logger())
	ec.Use(middleware.Recover())
	ec.Pre(middleware.AddTrailingSlash())

	ec.POST("/url/", gateway.acquisitionController.Submit)
	ec.GET(apiPrefix+"/activity/ws/", func(ec echo.Context) error {
		gateway.socket.UpgradeToSocket(ec.Response(), ec.Request())
		return nil
	})

	gateway.acquisitionController.SetRoutes(ec.Group(apiPrefix + "/acquisitions"))
	if historyStore != nil {
		gateway.historyController = history.New(validate, historyStore)
		gateway.historyController.SetRoutes(ec.Group(apiPrefix + "/history"))
	}

	return gateway
}

// Handler exposes the router, allowing the gateway to be mounted without Run.
func (gateway *RestGateway) Handler() http.Handler {
	return gateway.ec
}

func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	// Start echo router
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Emit(logger.INFO, "Listening on %s\n", gateway.config.HostAddr)
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil && err != http.ErrServerClosed {
			ctxCancel(err)
		}
	}()

	// Start thread to listen for context cancellation
	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	// Start websocket
	wg.Add(1)
	go func() {
		defer wg.Done()
		gateway.socket.Start(ctx)
	}()

	wg.Wait()

	// Return cancellation cause if any, otherwise nil as parent context
	// cancellation is not an error case we should report.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}
