package video

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"camrelay/app/slot"
	"camrelay/apperror"
	"camrelay/logger"
	"camrelay/metrics"

	"github.com/google/uuid"
	"github.com/mattn/go-mjpeg"
	"github.com/pkg/errors"
)

// upstreamHeaderTimeout bounds how long a registered camera stream may take
// to answer before a viewer gets CameraUnavailable.
const upstreamHeaderTimeout = 5 * time.Second

// upstream is one puller reading a camera's registered MJPEG stream into the
// slot table. It lives as long as at least one viewer holds it.
type upstream struct {
	cancel  context.CancelFunc
	viewers int
}

// Relay stores the latest frame per camera and fans it out to any number of
// stream consumers. Each consumer polls the slot table on its own ticker.
type Relay struct {
	table    *slot.Table
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *logger.Logger
	now      func() time.Time

	client    *http.Client
	mu        sync.Mutex
	upstreams map[int]*upstream
}

func NewRelay(table *slot.Table, interval time.Duration, m *metrics.Metrics, logger *logger.Logger) *Relay {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = upstreamHeaderTimeout

	return &Relay{
		table:     table,
		interval:  interval,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
		client:    &http.Client{Transport: transport},
		upstreams: make(map[int]*upstream),
	}
}

func (r *Relay) WithClock(now func() time.Time) *Relay {
	r.now = now
	return r
}

func (r *Relay) PushFrame(id int, frame []byte) error {
	if err := r.table.UpdateFrame(id, frame, r.now()); err != nil {
		r.metrics.FramesRejected.Add(1)
		return err
	}
	r.metrics.FramesReceived.Add(1)
	return nil
}

// Snapshot returns the latest frame of a camera, or apperror.NotFound when
// none was pushed yet.
func (r *Relay) Snapshot(id int) ([]byte, time.Time, error) {
	s, err := r.table.Get(id)
	if err != nil {
		return nil, time.Time{}, err
	}
	if !s.HasFrame() {
		return nil, time.Time{}, apperror.NotFound.SetMessage("No frame received from this camera yet")
	}
	return s.Frame, s.FrameLastUpdate, nil
}

// Stream is one consumer's view of a camera.
type Stream struct {
	ID     string
	Camera int
	Frames <-chan []byte

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Close stops the emitter and waits for it to exit.
func (s *Stream) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

// OpenStream starts an emitter for camera id. The emitter sends a frame only
// when it differs from the last one this stream sent and stops when ctx is
// done or Close is called; Frames is closed on exit.
//
// A camera that registered a stream URL and is not pushing frames itself is
// pulled from that URL while at least one viewer is open. An upstream that
// cannot be reached fails the call with apperror.CameraUnavailable.
func (r *Relay) OpenStream(ctx context.Context, id int) (*Stream, error) {
	current, err := r.table.Get(id)
	if err != nil {
		return nil, err
	}

	var up *upstream
	if current.StreamURL != "" && (!current.HasFrame() || current.Pulled) {
		if up, err = r.acquireUpstream(id, current.StreamURL); err != nil {
			r.metrics.UpstreamErrors.Add(1)
			return nil, apperror.CameraUnavailable.Wrap(err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	frames := make(chan []byte)
	s := &Stream{
		ID:     uuid.NewString(),
		Camera: id,
		Frames: frames,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	r.metrics.ActiveStreams.Add(1)
	r.metrics.TotalStreams.Add(1)
	r.logger.LogInfo("Starting video stream", "camera", id, "stream", s.ID)

	go func() {
		defer func() {
			close(frames)
			if up != nil {
				r.releaseUpstream(id, up)
			}
			r.metrics.ActiveStreams.Add(-1)
			r.logger.LogInfo("Closing video stream", "camera", id, "stream", s.ID)
			close(s.done)
		}()
		r.emit(ctx, id, frames)
	}()

	return s, nil
}

func (r *Relay) emit(ctx context.Context, id int, frames chan<- []byte) {
	var previousFrame []byte

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if s, err := r.table.Get(id); err == nil && s.HasFrame() && !bytes.Equal(s.Frame, previousFrame) {
			select {
			case frames <- s.Frame:
				previousFrame = s.Frame
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// acquireUpstream joins the running puller for camera id or dials url and
// starts a new one. Dialing happens outside the lock; when two viewers race,
// the loser closes its connection and joins the winner.
func (r *Relay) acquireUpstream(id int, url string) (*upstream, error) {
	r.mu.Lock()
	if up, ok := r.upstreams[id]; ok {
		up.viewers++
		r.mu.Unlock()
		return up, nil
	}
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	decoder, body, err := r.dialUpstream(ctx, url)
	if err != nil {
		cancel()
		return nil, err
	}

	r.mu.Lock()
	if up, ok := r.upstreams[id]; ok {
		up.viewers++
		r.mu.Unlock()
		cancel()
		body.Close()
		return up, nil
	}
	up := &upstream{cancel: cancel, viewers: 1}
	r.upstreams[id] = up
	r.mu.Unlock()

	r.metrics.ActiveUpstreams.Add(1)
	r.logger.LogInfo("Pulling registered camera stream", "camera", id, "url", url)

	go r.pull(ctx, id, up, decoder, body)

	return up, nil
}

func (r *Relay) releaseUpstream(id int, up *upstream) {
	r.mu.Lock()
	up.viewers--
	last := up.viewers == 0
	if last && r.upstreams[id] == up {
		delete(r.upstreams, id)
	}
	r.mu.Unlock()

	if last {
		up.cancel()
	}
}

// forgetUpstream unhooks a puller that stopped on its own so the next viewer
// dials again. Viewers still holding it release it as usual.
func (r *Relay) forgetUpstream(id int, up *upstream) {
	r.mu.Lock()
	if r.upstreams[id] == up {
		delete(r.upstreams, id)
	}
	r.mu.Unlock()
}

func (r *Relay) dialUpstream(ctx context.Context, url string) (*mjpeg.Decoder, io.Closer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "invalid stream url")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error dialing camera stream")
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, nil, errors.Errorf("camera stream answered %s", resp.Status)
	}

	decoder, err := mjpeg.NewDecoderFromResponse(resp)
	if err != nil {
		resp.Body.Close()
		return nil, nil, errors.Wrap(err, "camera stream is not multipart")
	}

	return decoder, resp.Body, nil
}

// pull copies frames from the upstream decoder into the slot table until ctx
// is cancelled, the upstream breaks or the camera starts pushing frames itself.
func (r *Relay) pull(ctx context.Context, id int, up *upstream, decoder *mjpeg.Decoder, body io.Closer) {
	defer func() {
		body.Close()
		r.forgetUpstream(id, up)
		r.metrics.ActiveUpstreams.Add(-1)
		r.logger.LogInfo("Stopped pulling registered camera stream", "camera", id)
	}()

	for {
		frame, err := decoder.DecodeRaw()
		if err != nil {
			if ctx.Err() == nil {
				r.metrics.UpstreamErrors.Add(1)
				r.logger.LogWarning(errors.Wrap(err, "error reading camera stream"), "Upstream stream broke", "camera", id)
			}
			return
		}

		if s, err := r.table.Get(id); err == nil && s.HasFrame() && !s.Pulled {
			r.logger.LogInfo("Camera pushes frames itself, dropping upstream", "camera", id)
			return
		}

		if err := r.table.UpdatePulledFrame(id, frame, r.now()); err != nil {
			r.metrics.FramesRejected.Add(1)
			r.logger.LogWarning(err, "Discarding upstream frame", "camera", id)
			continue
		}
		r.metrics.FramesPulled.Add(1)
	}
}
