package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cep21/circuit/v3"
	"github.com/cep21/circuit/v3/closers/hystrix"
	"go.uber.org/zap"

	"github.com/ozontech/seq-registry/logger"
	"github.com/ozontech/seq-registry/metric"
)

var (
	_ circuit.RunMetrics = promMetrics{}
	_ circuit.Metrics    = promMetrics{}

	manager = circuit.Manager{} // circuits are unique by name
)

// ErrBadRequest marks failures caused by the caller. They are returned as is
// and never count towards opening the circuit.
var ErrBadRequest = errors.New("bad request")

type Config struct {
	// Timeout of a single execution.
	Timeout time.Duration `yaml:"timeout"`
	// MaxConcurrent executions, extra ones are rejected.
	MaxConcurrent int64 `yaml:"maxConcurrent"`

	// NumBuckets the rolling window is divided into.
	NumBuckets int `yaml:"numBuckets"`
	// BucketWidth times NumBuckets is the rolling window duration.
	BucketWidth time.Duration `yaml:"bucketWidth"`

	// RequestVolumeThreshold is the minimal number of requests in the window
	// before ErrorThresholdPercentage is checked at all.
	RequestVolumeThreshold int64 `yaml:"requestVolumeThreshold"`
	// ErrorThresholdPercentage of failed requests in the window opens the circuit.
	ErrorThresholdPercentage int64 `yaml:"errorThresholdPercentage"`

	// SleepWindow is how long requests are denied before a probe is let through.
	SleepWindow time.Duration `yaml:"sleepWindow"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:                  10 * time.Second,
		MaxConcurrent:            4,
		NumBuckets:               10,
		BucketWidth:              time.Second,
		RequestVolumeThreshold:   5,
		ErrorThresholdPercentage: 50,
		SleepWindow:              5 * time.Second,
	}
}

const (
	halfOpenAttempts             = 1
	requiredConcurrentSuccessful = 1
)

type CircuitBreaker struct {
	c *circuit.Circuit
}

func New(name string, cfg Config) *CircuitBreaker {
	if c := manager.GetCircuit(name); c != nil {
		return &CircuitBreaker{c: c}
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = time.Minute
	}

	collector := promMetrics{name: name}
	metric.CircuitBreakerState.WithLabelValues(name).Set(0)

	c := manager.MustCreateCircuit(name, circuit.Config{
		Execution: circuit.ExecutionConfig{
			Timeout:               cfg.Timeout,
			MaxConcurrentRequests: cfg.MaxConcurrent,
		},
		General: circuit.GeneralConfig{
			OpenToClosedFactory: hystrix.CloserFactory(hystrix.ConfigureCloser{
				SleepWindow:                  cfg.SleepWindow,
				HalfOpenAttempts:             halfOpenAttempts,
				RequiredConcurrentSuccessful: requiredConcurrentSuccessful,
			}),
			ClosedToOpenFactory: hystrix.OpenerFactory(hystrix.ConfigureOpener{
				RequestVolumeThreshold:   cfg.RequestVolumeThreshold,
				ErrorThresholdPercentage: cfg.ErrorThresholdPercentage,
				NumBuckets:               cfg.NumBuckets,
				RollingDuration:          time.Duration(cfg.NumBuckets) * cfg.BucketWidth,
			}),
		},
		Metrics: circuit.MetricsCollectors{
			Run:     []circuit.RunMetrics{collector},
			Circuit: []circuit.Metrics{collector},
		},
	})
	return &CircuitBreaker{c: c}
}

func (cb *CircuitBreaker) IsOpen() bool {
	return cb.c.IsOpen()
}

// Execute runs fn through the circuit. Errors wrapping ErrBadRequest are
// reported as bad requests and come back unwrapped by the circuit.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	err := cb.c.Execute(ctx, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, ErrBadRequest) {
			return circuit.SimpleBadRequest{Err: err}
		}
		return err
	}, nil)
	if err == nil {
		return nil
	}

	var br circuit.SimpleBadRequest
	if errors.As(err, &br) {
		return br.Err
	}
	return fmt.Errorf("circuit %s: %w", cb.c.Name(), err)
}

type promMetrics struct {
	name string
}

func (p promMetrics) Closed(_ time.Time) {
	metric.CircuitBreakerState.WithLabelValues(p.name).Set(0)
	logger.Info("circuit breaker closed", zap.String("name", p.name))
}

func (p promMetrics) Opened(_ time.Time) {
	metric.CircuitBreakerState.WithLabelValues(p.name).Set(1)
	logger.Error("circuit breaker opened", zap.String("name", p.name))
}

func (p promMetrics) Success(_ time.Time, _ time.Duration) {
	metric.CircuitBreakerSuccess.WithLabelValues(p.name).Inc()
}

func (p promMetrics) ErrFailure(_ time.Time, _ time.Duration) {
	p.err("failure")
}

func (p promMetrics) ErrTimeout(_ time.Time, _ time.Duration) {
	p.err("timeout")
}

func (p promMetrics) ErrBadRequest(_ time.Time, _ time.Duration) {
	p.err("bad_request")
}

func (p promMetrics) ErrInterrupt(_ time.Time, _ time.Duration) {
	p.err("interrupt")
}

func (p promMetrics) ErrConcurrencyLimitReject(_ time.Time) {
	p.err("concurrency_limit")
}

func (p promMetrics) ErrShortCircuit(_ time.Time) {
	p.err("short_circuit")
}

func (p promMetrics) err(kind string) {
	metric.CircuitBreakerErr.WithLabelValues(p.name, kind).Inc()
}
