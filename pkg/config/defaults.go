package config

const (
	defaultGatewayBaseURL = "http://localhost:11434/v1"
	defaultGatewayModel   = "gemma3:latest"
	defaultGatewayTimeout = "5m"
	defaultTemperature    = 0.7

	defaultProxyListen    = ":8080"
	defaultProxyWorkers   = 3
	defaultProxyQueueSize = 256

	defaultClientProxyTarget = ""

	defaultMaxBufferBytes  = 1 << 20
	defaultMaxPendingBytes = 1 << 20
	defaultMaxPendingLines = 16

	defaultEventStreamTopic = "promptsmith.turns"

	// EventStreamKafka is the only supported event stream provider.
	EventStreamKafka = "kafka"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Gateway: GatewayConfig{
			BaseURL:     defaultGatewayBaseURL,
			Model:       defaultGatewayModel,
			Timeout:     defaultGatewayTimeout,
			Temperature: defaultTemperature,
		},
		Proxy: ProxyConfig{
			Listen:    defaultProxyListen,
			Workers:   defaultProxyWorkers,
			QueueSize: defaultProxyQueueSize,
		},
		Client: ClientConfig{
			ProxyTarget: defaultClientProxyTarget,
		},
		Stream: StreamConfig{
			MaxBufferBytes:  defaultMaxBufferBytes,
			MaxPendingBytes: defaultMaxPendingBytes,
			MaxPendingLines: defaultMaxPendingLines,
		},
		EventStream: EventStreamConfig{
			Topic: defaultEventStreamTopic,
		},
	}
}
