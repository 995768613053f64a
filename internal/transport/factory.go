package transport

import (
	"context"
	"fmt"

	"github.com/nerrad567/tsbuffer/internal/infrastructure/config"
	"github.com/nerrad567/tsbuffer/internal/infrastructure/influxdb"
	"github.com/nerrad567/tsbuffer/internal/infrastructure/logging"
	"github.com/nerrad567/tsbuffer/internal/infrastructure/mqtt"
)

// FromConfig builds the transport selected by cfg.Target.Backend.
//
// Backends that hold a connection (influxdb, mqtt) connect here, so an
// unreachable server is reported before any point is buffered.
func FromConfig(ctx context.Context, cfg *config.Config, logger *logging.Logger) (Transport, error) {
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.Target.Backend {
	case config.BackendInfluxDB:
		client, err := influxdb.Connect(ctx, cfg.Target)
		if err != nil {
			return nil, err
		}
		logger.Info("influxdb connected",
			"url", cfg.Target.URL,
			"org", client.Org(),
			"bucket", client.Bucket(),
		)
		return NewInfluxDB(client), nil

	case config.BackendHTTP:
		return NewHTTP(cfg.Target)

	case config.BackendTCP:
		return NewTCP(cfg.Target.URL, cfg.GetTargetTimeout())

	case config.BackendMQTT:
		client, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return nil, err
		}
		client.SetOnDisconnect(func(err error) {
			logger.Warn("mqtt connection lost", "error", err)
		})
		client.SetOnConnect(func() {
			logger.Info("mqtt connected", "broker", cfg.MQTT.Broker.Host)
		})
		return NewMQTT(client, cfg.Target.Topic), nil

	case config.BackendLog:
		return NewLog(logger), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Target.Backend)
	}
}
