package tracing

import (
	"fmt"
	"net"
	"os"

	"contrib.go.opencensus.io/exporter/jaeger"
	"go.opencensus.io/trace"
	"go.uber.org/zap"

	"github.com/ozontech/seq-registry/buildinfo"
	"github.com/ozontech/seq-registry/logger"
)

var defaultProbability = 0.01

type Config struct {
	ServiceName string  `yaml:"serviceName"`
	AgentHost   string  `yaml:"agentHost"`
	AgentPort   string  `yaml:"agentPort"`
	Probability float64 `yaml:"probability"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "seq-registry",
		AgentHost:   "127.0.0.1",
		AgentPort:   "6831",
		Probability: defaultProbability,
	}
}

// FromEnv overrides the agent location with TRACING_* variables if they are set.
func (c Config) FromEnv() Config {
	if v := os.Getenv("TRACING_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("TRACING_AGENT_HOST"); v != "" {
		c.AgentHost = v
	}
	if v := os.Getenv("TRACING_AGENT_PORT"); v != "" {
		c.AgentPort = v
	}
	return c
}

// Start registers the jaeger exporter. Zero probability leaves tracing off.
func Start(cfg Config) error {
	if cfg.Probability <= 0 {
		trace.ApplyConfig(trace.Config{DefaultSampler: trace.NeverSample()})
		defaultProbability = 0
		logger.Info("tracing disabled")
		return nil
	}
	defaultProbability = cfg.Probability

	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("getting hostname: %w", err)
	}

	exp, err := jaeger.NewExporter(jaeger.Options{
		AgentEndpoint: net.JoinHostPort(cfg.AgentHost, cfg.AgentPort),
		OnError: func(err error) {
			logger.Error("error sending trace", zap.Error(err))
		},
		Process: jaeger.Process{
			ServiceName: cfg.ServiceName,
			Tags: []jaeger.Tag{
				jaeger.StringTag("host.name", hostname),
				jaeger.StringTag("version", buildinfo.Version),
				jaeger.StringTag("build.time", buildinfo.BuildTime),
				jaeger.StringTag("ip", localIP()),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating jaeger exporter: %w", err)
	}

	trace.RegisterExporter(exp)
	trace.ApplyConfig(trace.Config{DefaultSampler: trace.ProbabilitySampler(cfg.Probability)})
	logger.Info("tracing initialized",
		zap.String("service", cfg.ServiceName),
		zap.Float64("probability", cfg.Probability),
	)
	return nil
}

// localIP returns the first private ipv4 address of an up interface.
func localIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "unknown"
	}
	for _, i := range ifaces {
		if i.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := i.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if v, ok := addr.(*net.IPNet); ok && !v.IP.IsLoopback() && v.IP.IsPrivate() && v.IP.To4() != nil {
				return v.IP.String()
			}
		}
	}
	return "unknown"
}
