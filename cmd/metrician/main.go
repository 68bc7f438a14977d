// metrician posts one mix metric report, handy to check the metrics server.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/ozontech/seq-registry/buildinfo"
	"github.com/ozontech/seq-registry/logger"
	"github.com/ozontech/seq-registry/mixmetrics"
	"github.com/ozontech/seq-registry/network/circuitbreaker"
)

var (
	flagServer   = kingpin.Flag("server", `metrics server base url`).Default("http://testnet-metrics.nymtech.net:8080").URL()
	flagPubKey   = kingpin.Flag("pub-key", `identity key of the reporting node`).Required().String()
	flagReceived = kingpin.Flag("received", `number of received packets`).Default("10").Uint64()
	flagSent     = kingpin.Flag("sent", `packets sent per peer, e.g. --sent=<identity key>=10`).StringMap()
	flagTimeout  = kingpin.Flag("timeout", `request timeout`).Default("10s").Duration()
)

func main() {
	kingpin.Version(buildinfo.Version)
	kingpin.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sent, err := parseSent(*flagSent)
	if err != nil {
		logger.Fatal("bad --sent value", zap.Error(err))
	}

	client := mixmetrics.New(mixmetrics.Config{
		BaseURL:        (*flagServer).String(),
		Timeout:        *flagTimeout,
		CircuitBreaker: circuitbreaker.DefaultConfig(),
	})

	err = client.PostMixMetrics(ctx, mixmetrics.MixMetric{
		PubKey:   *flagPubKey,
		Received: *flagReceived,
		Sent:     sent,
	})
	if err != nil {
		logger.Fatal("can't post metrics", zap.Error(err))
	}
	logger.Info("metrics posted", zap.Int("peers", len(sent)))
}
