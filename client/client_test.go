package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"camrelay/app"
	"camrelay/config"
	"camrelay/logger"
	"camrelay/metrics"
	"camrelay/web/controller"
	"camrelay/web/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRelay(t *testing.T) (*httptest.Server, *app.App) {
	t.Helper()
	conf := config.Config{Relay: config.DefaultRelay(), CORSOrigins: []string{"*"}}
	log := logger.New(io.Discard)
	m := metrics.New()
	svc, err := app.NewApp(conf, log, m)
	require.NoError(t, err)

	srv := httptest.NewServer(router.InitRouter(controller.NewController(svc, log), log, m, conf.CORSOrigins))
	t.Cleanup(srv.Close)
	return srv, svc
}

func TestCameraLifecycle(t *testing.T) {
	srv, svc := newRelay(t)
	c := New(srv.URL+"/", 2, time.Second)
	ctx := context.Background()

	require.NoError(t, c.Register(ctx, "http://cam2/stream"))
	require.NoError(t, c.Heartbeat(ctx))
	require.NoError(t, c.PushFrame(ctx, []byte("jpeg")))

	cmd, err := c.TriggerAlarm(ctx)
	require.NoError(t, err)
	assert.Equal(t, "trigger_alarm_2", cmd)

	cmd, err = c.ClearAlarm(ctx)
	require.NoError(t, err)
	assert.Equal(t, "clear_alarm_2", cmd)

	status := svc.AppStatus()
	assert.True(t, status.Cameras[2].Online)
	assert.True(t, status.Cameras[2].HasFrame)
	assert.True(t, status.Cameras[2].StreamRegistered)
	assert.False(t, status.Cameras[2].AlarmActive)
}

func TestStatusErrorCarriesMessage(t *testing.T) {
	srv, _ := newRelay(t)
	c := New(srv.URL, 99, time.Second)

	err := c.Heartbeat(context.Background())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
	assert.Contains(t, statusErr.Message, "Invalid camera number")
}
