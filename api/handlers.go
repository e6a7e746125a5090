package api

import (
	"context"
	"strings"
	"time"

	"github.com/CristiGvl/picoRing0/internal/platform"
	"github.com/gofiber/fiber/v2"
)

const requestTimeout = 10 * time.Second

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// Host endpoint
func (s *Server) getHost(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	info, err := platform.GetInfo(ctx)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(info)
}

// CPU endpoint
func (s *Server) getCPU(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	info, err := s.cpuReader.GetInfo(ctx)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(info)
}

// CPU register report endpoint
func (s *Server) getCPUReport(c *fiber.Ctx) error {
	if len(s.reporters) == 0 {
		return fail(c, fiber.StatusNotFound, "no processor with register access")
	}
	var b strings.Builder
	for _, r := range s.reporters {
		b.WriteString(r.Report())
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(b.String())
}

// Temperature endpoint
func (s *Server) getTemps(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	info, err := s.temps.GetInfo(ctx)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(info)
}

// Disk endpoint
func (s *Server) getDisk(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	info, err := s.disks.GetInfo(ctx)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(info)
}

// Sensor list endpoint
func (s *Server) getSensors(c *fiber.Ctx) error {
	return c.JSON(s.registry.Snapshots())
}

func (s *Server) sensorID(c *fiber.Ctx) string {
	return "/" + strings.TrimPrefix(c.Params("*"), "/")
}

func (s *Server) getSensorParameters(c *fiber.Ctx) error {
	id := s.sensorID(c)
	sn, ok := s.registry.Get(id)
	if !ok {
		return fail(c, fiber.StatusNotFound, "unknown sensor "+id)
	}
	return c.JSON(sn.Parameters())
}

// parameterRequest sets a value or, with Reset, restores the default
type parameterRequest struct {
	Name  string   `json:"name"`
	Value *float32 `json:"value"`
	Reset bool     `json:"reset"`
}

func (s *Server) setSensorParameter(c *fiber.Ctx) error {
	id := s.sensorID(c)
	sn, ok := s.registry.Get(id)
	if !ok {
		return fail(c, fiber.StatusNotFound, "unknown sensor "+id)
	}

	var req parameterRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || (req.Value == nil && !req.Reset) {
		return fail(c, fiber.StatusBadRequest, "name and either value or reset are required")
	}

	var err error
	if req.Reset {
		err = sn.ResetParameter(req.Name)
	} else {
		err = sn.SetParameter(req.Name, *req.Value)
	}
	if err != nil {
		return fail(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	s.logger.Info().Str("sensor", id).Str("parameter", req.Name).
		Float32("value", sn.Parameter(req.Name)).Msg("sensor parameter changed")
	return c.JSON(sn.Parameters())
}
