package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/groupmod/groupmod/event"
	"github.com/groupmod/groupmod/scheduler"

	"github.com/labstack/echo/v4"
)

type GenericError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(200, map[string]any{"status": "ok", "rooms": s.engine.Rooms.Len()})
}

type eventsResponse struct {
	Accepted int      `json:"accepted"`
	IDs      []string `json:"ids"`
}

// Body is a single envelope or a JSON array of them. Envelopes are validated up front, so a bad batch queues nothing.
func decodeEnvelopes(body []byte) ([]*event.Envelope, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty request body")
	}
	var envs []*event.Envelope
	if body[0] == '[' {
		if err := json.Unmarshal(body, &envs); err != nil {
			return nil, err
		}
	} else {
		var env event.Envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, err
		}
		envs = append(envs, &env)
	}
	for i, env := range envs {
		if env == nil {
			return nil, fmt.Errorf("event %d: null", i)
		}
		if err := env.Validate(); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
	}
	return envs, nil
}

func (s *Server) HandleEvents(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(400, GenericError{
			Error:   "BadRequest",
			Message: err.Error(),
		})
	}
	envs, err := decodeEnvelopes(body)
	if err != nil {
		return c.JSON(400, GenericError{
			Error:   "InvalidEvent",
			Message: err.Error(),
		})
	}

	resp := eventsResponse{IDs: []string{}}
	for _, env := range envs {
		if err := s.Submit(ctx, env); err != nil {
			status := http.StatusInternalServerError
			switch {
			case errors.Is(err, scheduler.ErrQueueFull):
				status = http.StatusTooManyRequests
			case errors.Is(err, scheduler.ErrShutdown):
				status = http.StatusServiceUnavailable
			}
			s.logger.Warn("failed to queue event", "room", env.RoomID(), "type", env.Type, "err", err)
			return c.JSON(status, GenericError{
				Error:   "NotQueued",
				Message: fmt.Sprintf("queued %d of %d events: %s", resp.Accepted, len(envs), err),
			})
		}
		resp.Accepted++
		resp.IDs = append(resp.IDs, env.ID)
	}
	return c.JSON(http.StatusAccepted, resp)
}
