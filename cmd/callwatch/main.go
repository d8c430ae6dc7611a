// Command callwatch connects to a switch's manager interface, tracks
// call state and publishes high-level call notifications to the
// configured sinks.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/sweeney/callwatch/internal/callstate"
	"github.com/sweeney/callwatch/internal/config"
	"github.com/sweeney/callwatch/internal/reporter"
	"github.com/sweeney/callwatch/internal/runner"
)

func main() {
	configPath := flag.String("config", "/etc/callwatch/callwatch.yaml", "Path to config file")
	traceEvents := flag.Bool("trace-events", false, "Log every raw manager event at trace level")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	sink, err := buildSink(cfg, log, *traceEvents)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting sinks")
	}
	defer sink.Close()

	r := runner.NewAMIRunner(sink, runner.AMIOptions{
		Addr:     cfg.AMI.Addr(),
		Username: cfg.AMI.Username,
		Secret:   cfg.AMI.Secret,
		Log:      log,
	})
	if err := r.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("runner failed")
	}

	log.Info().Msg("shutdown complete")
}

func buildSink(cfg *config.Config, log zerolog.Logger, traceEvents bool) (*reporter.Multi, error) {
	var sinks []callstate.Reporter

	if cfg.Log.Calls || traceEvents {
		sinks = append(sinks, reporter.NewLog(log, traceEvents))
	}

	if cfg.MQTT.Enabled {
		m, err := reporter.NewMQTT(reporter.MQTTOptions{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         byte(cfg.MQTT.QoS),
			OnError: func(err error) {
				log.Error().Err(err).Msg("mqtt publish failed")
			},
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("broker", cfg.MQTT.Broker).Msg("connected to MQTT broker")
		sinks = append(sinks, m)
	}

	if cfg.Redis.Enabled {
		r, err := reporter.NewRedis(reporter.RedisOptions{
			Addr:          cfg.Redis.Addr,
			Password:      cfg.Redis.Password,
			DB:            cfg.Redis.DB,
			ChannelPrefix: cfg.Redis.ChannelPrefix,
			OnError: func(err error) {
				log.Error().Err(err).Msg("redis publish failed")
			},
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
		sinks = append(sinks, r)
	}

	return reporter.NewMulti(sinks...), nil
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var w io.Writer = os.Stderr
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
