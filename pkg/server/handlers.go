package server

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/teslashibe/go-truesight/pkg/debounce"
	"github.com/teslashibe/go-truesight/pkg/detection"
	"github.com/teslashibe/go-truesight/pkg/vision"
)

// DefaultRoom is used when a humans request names no room.
const DefaultRoom = "default"

// FrameRequest is the body of both detection routes.
type FrameRequest struct {
	Data      string  `json:"data" validate:"required"`
	Timestamp float64 `json:"timestamp"`
	Room      string  `json:"room" validate:"omitempty,max=128"`
}

// ObserveRequest carries detection counts from an external detector.
type ObserveRequest struct {
	Humans  int `json:"humans" validate:"gte=0"`
	Devices int `json:"devices" validate:"gte=0"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	loaded := s.deps.Analyzer.ModelLoaded()
	status := "healthy"
	if !loaded {
		status = "model_not_loaded"
	}
	return c.JSON(fiber.Map{
		"status":       status,
		"model_loaded": loaded,
		"version":      s.cfg.Version,
		"calibrated":   s.deps.Profile != nil,
		"threshold":    s.deps.Threshold,
		"rooms":        s.deps.Rooms.Len(),
	})
}

func (s *Server) handleDetectOverlay(c *fiber.Ctx) error {
	var req FrameRequest
	if err := s.parse(c, &req); err != nil {
		return err
	}

	res, err := s.deps.Analyzer.DetectOverlay(c.UserContext(), req.Data)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(res)
}

func (s *Server) handleDetectHumans(c *fiber.Ctx) error {
	var req FrameRequest
	if err := s.parse(c, &req); err != nil {
		return err
	}
	if req.Room == "" {
		req.Room = DefaultRoom
	}

	res, err := s.deps.Analyzer.DetectHumans(c.UserContext(), req.Room, req.Data)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(res)
}

func (s *Server) handleObserve(c *fiber.Ctx) error {
	var req ObserveRequest
	if err := s.parse(c, &req); err != nil {
		return err
	}

	alerts := s.deps.Analyzer.Observe(c.Params("room"), debounce.Outcome{Humans: req.Humans, Devices: req.Devices})
	if alerts == nil {
		alerts = []debounce.Alert{}
	}
	return c.JSON(fiber.Map{"alerts": alerts})
}

func (s *Server) handleListRooms(c *fiber.Ctx) error {
	rooms := s.deps.Rooms.Rooms()
	return c.JSON(fiber.Map{
		"rooms": rooms,
		"count": len(rooms),
	})
}

func (s *Server) handleRoomAlerts(c *fiber.Ctx) error {
	if s.deps.History == nil {
		return fiber.NewError(fiber.StatusNotFound, "alert history is not configured")
	}

	alerts, err := s.deps.History.ListByRoom(c.UserContext(), c.Params("room"), c.QueryInt("limit", 0))
	if err != nil {
		return s.fail(c, err)
	}
	if alerts == nil {
		alerts = []debounce.Alert{}
	}
	return c.JSON(fiber.Map{"alerts": alerts, "count": len(alerts)})
}

func (s *Server) handleCalibration(c *fiber.Ctx) error {
	resp := fiber.Map{
		"calibrated": s.deps.Profile != nil,
		"threshold":  s.deps.Threshold,
	}
	if p := s.deps.Profile; p != nil {
		resp["profile"] = fiber.Map{
			"id":                   p.ID,
			"threshold":            p.Threshold,
			"normal_samples_count": p.NormalSamplesCount,
			"cheat_samples_count":  p.CheatSamplesCount,
			"timestamp":            p.Timestamp,
		}
	}
	return c.JSON(resp)
}

func (s *Server) handleDemoStart(c *fiber.Ctx) error {
	return c.JSON(s.deps.Demo.Start(c.Params("room"), time.Now()))
}

func (s *Server) handleDemoCheck(c *fiber.Ctx) error {
	return c.JSON(s.deps.Demo.Next(c.Params("room"), time.Now()))
}

// parse decodes and validates a JSON body.
func (s *Server) parse(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "validation failed"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" "+fe.Tag())
	}
	return "validation failed: " + strings.Join(fields, ", ")
}

// fail maps an analysis error to its HTTP status.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.log.Error("request failed", "path", c.Path(), "error", err)
	}
	return fiber.NewError(status, err.Error())
}

// StatusFor returns the HTTP status for an analysis error.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, vision.ErrInvalidBase64), errors.Is(err, vision.ErrDecodeImage):
		return fiber.StatusBadRequest
	case errors.Is(err, detection.ErrDetectorUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
