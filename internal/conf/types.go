package conf

import "google.golang.org/protobuf/types/known/durationpb"

// Bootstrap is the root configuration of the service.
type Bootstrap struct {
	Server *Server
	Data   *Data
	Sync   *Sync
	Log    *Log
}

// Server holds transport configuration.
type Server struct {
	Http *Server_HTTP
}

// Server_HTTP configures the HTTP server.
type Server_HTTP struct {
	Network string
	Addr    string
	Timeout *durationpb.Duration
}

// Data holds storage configuration.
type Data struct {
	Database *Data_Database
	Redis    *Data_Redis
}

// Data_Database configures the relational store.
type Data_Database struct {
	Driver string
	Source string
}

// Data_Redis configures the cache backend.
type Data_Redis struct {
	Network      string
	Addr         string
	ReadTimeout  *durationpb.Duration
	WriteTimeout *durationpb.Duration
}

// Sync configures the channel-sync engine: endpoints, retry policy, circuit
// breaker thresholds, and the pricing cache TTL.
type Sync struct {
	ChannelUrl    string
	ChannelApiKey string
	ComputeUrl    string
	ProxyUrl      string

	RequestTimeout    *durationpb.Duration
	InterRequestDelay *durationpb.Duration

	MaxAttempts   int32
	InitialDelay  *durationpb.Duration
	MaxDelay      *durationpb.Duration
	BackoffFactor float64

	FailureThreshold         int32
	VolumeThreshold          int32
	ErrorThresholdPercentage float64
	TimeoutWindow            *durationpb.Duration
	MonitoringWindow         *durationpb.Duration

	CacheTtl *durationpb.Duration
}

// Log configures the zap logger.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}
