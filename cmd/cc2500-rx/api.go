// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

package main

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"

	cc2500 "github.com/DanCrank/cc2500-rpi"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SendSuccess sends a successful response
func SendSuccess(c *fiber.Ctx, data interface{}) error {
	return c.JSON(APIResponse{Success: true, Data: data})
}

// SendError sends an error response
func SendError(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(APIResponse{Success: false, Error: err.Error()})
}

// radioInfo is the part of *cc2500.Radio the API reports on.
type radioInfo interface {
	State() cc2500.State
	Status() (cc2500.Status, error)
	ChipInfo() (part, version byte)
}

type statusResponse struct {
	State     string `json:"state"`
	ChipState string `json:"chip_state,omitempty"`
	ChipReady bool   `json:"chip_ready"`
	Part      string `json:"part"`
	Version   string `json:"version"`
	Received  int    `json:"received"`
	Accepted  int    `json:"accepted"`
}

func newAPI(radio radioInfo, frames *frameLog, logRequests bool) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "cc2500-rx",
		DisableStartupMessage: true,
	})
	if logRequests {
		app.Use(fiberLogger.New(fiberLogger.Config{
			Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
		}))
	}

	api := app.Group("/api/radio")
	api.Get("/status", func(c *fiber.Ctx) error {
		part, version := radio.ChipInfo()
		received, accepted := frames.counts()
		resp := statusResponse{
			State:    radio.State().String(),
			Part:     fmt.Sprintf("0x%02x", part),
			Version:  fmt.Sprintf("0x%02x", version),
			Received: received,
			Accepted: accepted,
		}
		st, err := radio.Status()
		if err == nil {
			resp.ChipState = st.State().String()
			resp.ChipReady = st.ChipReady()
		}
		return SendSuccess(c, resp)
	})
	api.Get("/frames", func(c *fiber.Ctx) error {
		return SendSuccess(c, frames.recent())
	})
	return app
}
