package app

import (
	"context"
	"errors"
	"math"
	"time"

	"camrelay/app/alarm"
	"camrelay/app/helper"
	"camrelay/app/liveness"
	"camrelay/app/mailbox"
	"camrelay/app/slot"
	"camrelay/app/upload"
	"camrelay/app/video"
	"camrelay/apperror"
	"camrelay/config"
	"camrelay/logger"
	"camrelay/metrics"
	"camrelay/models"
)

type App struct {
	table    *slot.Table
	mailbox  *mailbox.Mailbox
	alarms   *alarm.Machine
	relay    *video.Relay
	monitor  *liveness.Monitor
	uploader *upload.Uploader
	metrics  *metrics.Metrics
	logger   *logger.Logger

	logFolder string
	now       func() time.Time
	done      chan struct{}
}

func NewApp(conf config.Config, logger *logger.Logger, m *metrics.Metrics) (*App, error) {
	relayConf := conf.Relay
	if relayConf.MaxCameras <= 0 {
		return nil, errors.New("at least one camera must be configured")
	}

	logger.LogInfo("Initializing camera slots", "cameras", relayConf.MaxCameras, "max_frame_size", relayConf.MaxFrameSize)
	table := slot.NewTable(relayConf.MaxCameras, relayConf.MaxFrameSize)
	box := mailbox.New()
	machine := alarm.NewMachine(table, box, m, logger)

	var uploader *upload.Uploader
	if conf.S3Config.Enabled() && conf.LogFolder != "" {
		logger.LogInfo("Initializing log uploader", "bucket", conf.S3Config.Bucket)
		u, err := upload.NewUploader(conf.S3Config, conf.LogFolder, logger)

		if err != nil {
			logger.LogError(err, "Error initializing uploader")
		} else {
			uploader = u
		}
	}

	return &App{
		table:   table,
		mailbox: box,
		alarms:  machine,
		relay:   video.NewRelay(table, relayConf.StreamInterval, m, logger),
		monitor: liveness.NewMonitor(table, machine, liveness.Options{
			Interval:         relayConf.LivenessInterval,
			AutoClearTimeout: relayConf.AutoClearTimeout,
			OnlineThreshold:  relayConf.OnlineThreshold,
		}, m, logger),
		uploader:  uploader,
		metrics:   m,
		logger:    logger,
		logFolder: conf.LogFolder,
		now:       time.Now,
		done:      make(chan struct{}),
	}, nil
}

// WithClock swaps the time source of every component.
func (a *App) WithClock(now func() time.Time) *App {
	a.now = now
	a.alarms.WithClock(now)
	a.relay.WithClock(now)
	return a
}

// Start launches background work: the liveness monitor and, when
// configured, a one-off upload of old log files. Done is closed once the
// monitor has stopped after ctx ends.
func (a *App) Start(ctx context.Context) {
	if a.uploader != nil {
		go a.uploader.UploadLogs()
	}

	go func() {
		defer close(a.done)
		if err := a.monitor.Run(ctx); err != nil {
			a.logger.LogError(err, "Error running liveness monitor")
		}
	}()
}

func (a *App) Done() <-chan struct{} {
	return a.done
}

func (a *App) RegisterCamera(id int, streamURL string) error {
	if err := a.table.SetStreamURL(id, streamURL); err != nil {
		return err
	}
	a.logger.LogInfo("Camera registered", "camera", id, "stream_url", streamURL)
	return nil
}

func (a *App) TriggerAlarm(id int) (string, error) {
	return a.alarms.Trigger(id)
}

func (a *App) ClearAlarm(id int) (string, error) {
	return a.alarms.Clear(id)
}

func (a *App) ClearAllAlarms() string {
	return a.alarms.ClearAll()
}

func (a *App) Heartbeat(id int) error {
	return a.alarms.Heartbeat(id)
}

func (a *App) PushFrame(id int, frame []byte) error {
	return a.relay.PushFrame(id, frame)
}

func (a *App) Snapshot(id int) ([]byte, time.Time, error) {
	return a.relay.Snapshot(id)
}

func (a *App) OpenStream(ctx context.Context, id int) (*video.Stream, error) {
	stream, err := a.relay.OpenStream(ctx, id)

	if err != nil && !errors.Is(err, apperror.InvalidCamera) {
		a.metrics.StreamErrors.Add(1)
		a.logger.LogError(err, "Error starting camera stream", "camera", id)
		if !errors.Is(err, apperror.CameraUnavailable) {
			err = apperror.CameraUnavailable.Wrap(err)
		}
	}

	return stream, err
}

// StreamFailed records a consumer whose transport broke mid-stream.
func (a *App) StreamFailed(stream *video.Stream, err error) {
	a.metrics.StreamErrors.Add(1)
	a.logger.LogWarning(apperror.CameraUnavailable.Wrap(err), "Stream consumer went away", "camera", stream.Camera, "stream", stream.ID)
}

func (a *App) FrameEmitted() {
	a.metrics.FramesEmitted.Add(1)
}

func (a *App) PollCommand() *string {
	command, ok := a.mailbox.TakeLatest()
	if !ok {
		return nil
	}
	a.metrics.CommandsDelivered.Add(1)
	return &command
}

func (a *App) AlarmStatus() models.AlarmStatus {
	alarms := make(map[int]models.AlarmState, a.table.Len())
	for _, e := range a.table.List() {
		alarms[e.ID] = models.AlarmState{
			Active:     e.Slot.AlarmActive,
			LastUpdate: unixSeconds(e.Slot.AlarmLastUpdate),
		}
	}
	return models.AlarmStatus{Alarms: alarms}
}

func (a *App) CameraStreams() models.Streams {
	streams := make(map[int]*string, a.table.Len())
	for _, e := range a.table.List() {
		if e.Slot.StreamURL == "" {
			streams[e.ID] = nil
			continue
		}
		url := e.Slot.StreamURL
		streams[e.ID] = &url
	}
	return models.Streams{Streams: streams}
}

func (a *App) AppStatus() *models.Status {
	now := a.now()
	cameras := make(map[int]models.CameraStatus, a.table.Len())

	for _, v := range a.monitor.View(now) {
		cameras[v.ID] = models.CameraStatus{
			Online:             v.Online,
			AlarmActive:        v.AlarmActive,
			LastSeenSecondsAgo: math.Round(v.LastSeenAgo.Seconds()*10) / 10,
			HasFrame:           v.HasFrame,
			StreamRegistered:   v.StreamURL != "",
		}
	}

	status := &models.Status{
		Status:    "running",
		Cameras:   cameras,
		Timestamp: unixSeconds(now),
	}

	if command, ok := a.mailbox.Peek(); ok {
		status.PendingCommand = &command
	}

	if a.logFolder != "" {
		usage, err := helper.DiskUsage(a.logFolder)
		if err != nil {
			a.logger.LogError(err, "Error getting disk usage", "folder", a.logFolder)
		} else {
			status.DiskUsage = &usage
		}
	}

	return status
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func (a *App) ValidateCamera(id int) error {
	return a.table.Validate(id)
}

func (a *App) MaxFrameSize() int {
	return a.table.MaxFrameSize()
}
