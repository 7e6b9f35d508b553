package config

import "time"

type Config struct {
	Environment     string
	LogFolder       string
	Port            string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	Relay           Relay
	S3Config        S3
}

// Relay holds the knobs the camera core has to honor.
type Relay struct {
	MaxCameras       int
	MaxFrameSize     int
	OnlineThreshold  time.Duration
	AutoClearTimeout time.Duration
	LivenessInterval time.Duration
	StreamInterval   time.Duration
}

type S3 struct {
	AccessKey   string
	SecretKey   string
	Region      string
	Bucket      string
	EndpointUrl string
}

// Enabled reports whether log shipping has somewhere to go.
func (s S3) Enabled() bool {
	return s.Bucket != ""
}

func DefaultRelay() Relay {
	return Relay{
		MaxCameras:       4,
		MaxFrameSize:     5 << 20,
		OnlineThreshold:  30 * time.Second,
		AutoClearTimeout: 60 * time.Second,
		LivenessInterval: 60 * time.Second,
		StreamInterval:   33 * time.Millisecond,
	}
}
