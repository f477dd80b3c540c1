package di

import (
	"io"
	"log/slog"

	"universe_backend/internal/feature/instruments/adapters"
	"universe_backend/internal/feature/instruments/usecase"
	"universe_backend/internal/platform/config"
)

// NewDeltaPublisher returns a Kafka publisher when brokers are configured,
// otherwise nil. The closer is nil whenever the publisher is.
func NewDeltaPublisher(cfg config.KafkaConfig) (usecase.DeltaPublisher, io.Closer) {
	if !cfg.Enabled() {
		return nil, nil
	}
	slog.Info("publishing import deltas", "brokers", cfg.Brokers, "topic", cfg.Topic)
	p := adapters.NewKafkaPublisher(adapters.NewKafkaWriter(cfg.Brokers, cfg.Topic))
	return p, p
}
