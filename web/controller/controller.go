package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"camrelay/app"
	"camrelay/apperror"
	"camrelay/logger"
	"camrelay/models"
	"camrelay/web/helper"
)

// StreamBoundary separates the parts of every MJPEG stream.
const StreamBoundary = "frame"

type Controller struct {
	logger *logger.Logger
	app    *app.App
}

func NewController(app *app.App, logger *logger.Logger) *Controller {
	return &Controller{
		app:    app,
		logger: logger,
	}
}

func (c *Controller) commandResult(w http.ResponseWriter, id int, command string) {
	helper.ReturnSuccess(w, models.CommandResult{Status: "success", Camera: id, Command: command})
}

// Camera endpoints

func (c *Controller) RegisterCamera(w http.ResponseWriter, r *http.Request) {
	id, err := helper.CameraID(r)
	if err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	var p models.Registration
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		c.logger.LogError(err, "Error decoding camera registration", "camera", id)
		helper.ReturnFailure(w, apperror.InvalidRequest)
		return
	}

	if err := c.app.RegisterCamera(id, p.StreamURL); err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	helper.ReturnSuccess(w, models.CommandResult{Status: "success", Camera: id})
}

func (c *Controller) TriggerAlarm(w http.ResponseWriter, r *http.Request) {
	id, err := helper.CameraID(r)
	if err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	command, err := c.app.TriggerAlarm(id)
	if err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	c.commandResult(w, id, command)
}

func (c *Controller) ClearAlarm(w http.ResponseWriter, r *http.Request) {
	id, err := helper.CameraID(r)
	if err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	command, err := c.app.ClearAlarm(id)
	if err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	c.commandResult(w, id, command)
}

func (c *Controller) Heartbeat(w http.ResponseWriter, r *http.Request) {
	id, err := helper.CameraID(r)
	if err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	if err := c.app.Heartbeat(id); err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	helper.ReturnSuccess(w, map[string]string{"status": "success"})
}

func (c *Controller) PushFrame(w http.ResponseWriter, r *http.Request) {
	id, err := helper.CameraID(r)
	if err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	if err := c.app.ValidateCamera(id); err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	frame, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(c.app.MaxFrameSize())))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			helper.ReturnFailure(w, apperror.FrameTooLarge)
			return
		}
		c.logger.LogError(err, "Error reading frame body", "camera", id)
		helper.ReturnFailure(w, apperror.InvalidRequest)
		return
	}

	if err := c.app.PushFrame(id, frame); err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	helper.ReturnSuccess(w, map[string]string{"status": "success", "bytes": strconv.Itoa(len(frame))})
}

// Dashboard endpoints

func (c *Controller) PollCommand(w http.ResponseWriter, _ *http.Request) {
	helper.ReturnSuccess(w, models.Command{Command: c.app.PollCommand()})
}

func (c *Controller) AlarmStatus(w http.ResponseWriter, _ *http.Request) {
	helper.ReturnSuccess(w, c.app.AlarmStatus())
}

func (c *Controller) CameraStreams(w http.ResponseWriter, _ *http.Request) {
	helper.ReturnSuccess(w, c.app.CameraStreams())
}

func (c *Controller) ClearAllAlarms(w http.ResponseWriter, _ *http.Request) {
	c.commandResult(w, 0, c.app.ClearAllAlarms())
}

func (c *Controller) Status(w http.ResponseWriter, _ *http.Request) {
	helper.ReturnSuccess(w, c.app.AppStatus())
}

func (c *Controller) Snapshot(w http.ResponseWriter, r *http.Request) {
	id, err := helper.CameraID(r)
	if err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	frame, at, err := c.app.Snapshot(id)
	if err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(frame)))
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Last-Modified", at.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(frame)
}

func (c *Controller) ShowStream(w http.ResponseWriter, r *http.Request) {
	id, err := helper.CameraID(r)
	if err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		helper.ReturnFailure(w, apperror.ServerError.SetMessage("Streaming unsupported"))
		return
	}

	stream, err := c.app.OpenStream(r.Context(), id)
	if err != nil {
		helper.ReturnFailure(w, err)
		return
	}
	defer stream.Close()

	mimeWriter := multipart.NewWriter(w)
	if err := mimeWriter.SetBoundary(StreamBoundary); err != nil {
		helper.ReturnFailure(w, err)
		return
	}

	w.Header().Set("Content-Type", fmt.Sprintf("multipart/x-mixed-replace; boundary=%s", mimeWriter.Boundary()))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for frame := range stream.Frames {
		partHeader := make(textproto.MIMEHeader)
		partHeader.Add("Content-Type", "image/jpeg")
		partHeader.Add("Content-Length", strconv.Itoa(len(frame)))

		part, err := mimeWriter.CreatePart(partHeader)
		if err != nil {
			c.app.StreamFailed(stream, err)
			return
		}

		if _, err = part.Write(frame); err != nil {
			c.app.StreamFailed(stream, err)
			return
		}

		flusher.Flush()
		c.app.FrameEmitted()
	}
}

const indexPage = `<!DOCTYPE html>
<html>
<head><title>Camera Relay Server</title></head>
<body>
<h1>Camera Relay Server</h1>
<h2>Camera Endpoints</h2>
<ul>
  <li>POST /camera/register/&lt;camera_num&gt; - Register camera stream URL</li>
  <li>POST /camera/trigger_alarm/&lt;camera_num&gt; - Trigger alarm</li>
  <li>POST /camera/clear_alarm/&lt;camera_num&gt; - Clear alarm</li>
  <li>POST /camera/heartbeat/&lt;camera_num&gt; - Send heartbeat</li>
  <li>POST /camera/frame/&lt;camera_num&gt; - Push a JPEG frame (raw body)</li>
</ul>
<h2>Website Endpoints</h2>
<ul>
  <li>GET /api/commands - Poll for commands</li>
  <li>GET /api/alarm_status - Get all alarm states</li>
  <li>GET /api/camera_streams - Get registered camera stream URLs</li>
  <li>POST /api/trigger_alarm_&lt;camera_num&gt; - Trigger alarm</li>
  <li>POST /api/clear_alarm_&lt;camera_num&gt; - Clear alarm</li>
  <li>POST /api/clear_all_alarms - Clear all alarms</li>
  <li>GET /api/snapshot/&lt;camera_num&gt; - Latest frame as JPEG</li>
  <li>GET /video_feed/&lt;camera_num&gt; - Live MJPEG stream</li>
  <li>GET /status - System status</li>
  <li>GET /metrics - Prometheus metrics</li>
</ul>
</body>
</html>
`

func (c *Controller) Index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, indexPage)
}
