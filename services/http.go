package services

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	"github.com/press141-netizen/reflex/dto"
	"github.com/press141-netizen/reflex/services/handlers"
	"github.com/press141-netizen/reflex/shared"
)

type HttpService struct {
	appContext.DefaultService

	boardSvc     *BoardService
	blobSvc      *BlobService
	figmaSvc     *FigmaService
	rateLimitSvc *RateLimitService

	port int
	app  *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *appContext.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.boardSvc = svc.Service(BOARD_SVC).(*BoardService)
	svc.blobSvc = svc.Service(BLOB_SVC).(*BlobService)
	svc.figmaSvc = svc.Service(FIGMA_SVC).(*FigmaService)
	svc.rateLimitSvc = svc.Service(RATE_LIMIT_SVC).(*RateLimitService)

	svc.app = svc.buildApp()

	log.WithField("port", svc.port).Info("HTTP service started")
	return svc.app.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) buildApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "reflex",
		BodyLimit:    12 * 1024 * 1024,
		ErrorHandler: svc.handleError,
		JSONEncoder:  shared.JSONMarshal,
		JSONDecoder:  shared.JSONUnmarshal,
	})

	app.Use(recover.New())

	// The cors layer answers preflight with 204; the plugin frontend
	// expects an empty 200.
	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		if c.Method() == fiber.MethodOptions && c.Response().StatusCode() == fiber.StatusNoContent {
			c.Response().ResetBody()
			c.Status(fiber.StatusOK)
		}
		return err
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	app.Use(MonitoringMiddleware())

	app.Get("/ping", svc.ping)

	analyzeHandler := handlers.NewAnalyzeHandler(svc.figmaSvc)
	boardHandler := handlers.NewBoardHandler(svc.boardSvc)
	uploadHandler := handlers.NewUploadHandler(svc.blobSvc)

	app.Post("/analyze", svc.rateLimitSvc.Limit("analyze"), analyzeHandler.Analyze)

	general := svc.rateLimitSvc.Limit("api_general")
	app.Get("/boards", general, boardHandler.GetBoard)
	app.Post("/boards", general, boardHandler.AddReference)
	app.Put("/boards", general, boardHandler.UpdateReference)
	app.Delete("/boards", general, boardHandler.RemoveReference)
	app.Post("/categories", general, boardHandler.SetCategories)
	app.Post("/upload", general, uploadHandler.Upload)

	return app
}

func (svc *HttpService) Shutdown() {
	if svc.app != nil {
		_ = svc.app.Shutdown()
	}
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set("Cache-Control", "max-age=10")
	return shared.ResponseOK(c, "pong")
}

// handleError maps AppErrors and router errors to the JSON error body.
// Messages for unexpected errors stay generic so internals never leak.
func (svc *HttpService) handleError(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		if appErr.RetryAfter > 0 {
			return c.Status(appErr.StatusCode).JSON(dto.RateLimitedResponse{
				Error:      appErr.Message,
				Message:    fmt.Sprintf("Rate limit exceeded. Please try again in %d seconds.", appErr.RetryAfter),
				RetryAfter: appErr.RetryAfter,
			})
		}

		body := fiber.Map{"error": appErr.Message}
		if appErr.Data != nil {
			body["details"] = appErr.Data
		}
		if appErr.StatusCode >= fiber.StatusInternalServerError {
			log.WithError(err).Error("Request failed")
		}
		return c.Status(appErr.StatusCode).JSON(body)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		message := fiberErr.Message
		switch fiberErr.Code {
		case fiber.StatusMethodNotAllowed:
			message = "Method not allowed"
		case fiber.StatusNotFound:
			message = "Not found"
		}
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": message})
	}

	log.WithError(err).Error("Unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}
