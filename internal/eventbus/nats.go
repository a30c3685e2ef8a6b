/*
Copyright (C) 2026 Playloft Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/playloft/playloft/internal/events"
)

// NATSBus forwards published events to NATS subjects in addition to the
// local in-process bus. The NATS client handles reconnection itself;
// publishes during an outage are buffered by the client or dropped, which
// matches the at-most-once contract of the broadcast channel.
type NATSBus struct {
	conn   *nats.Conn
	local  *events.Bus
	logger zerolog.Logger
	nodeID string
}

// NewNATSBus connects to NATS and wraps the local bus.
func NewNATSBus(url string, local *events.Bus, nodeID string, logger zerolog.Logger) (*NATSBus, error) {
	lg := logger.With().Str("component", "eventbus-nats").Logger()

	conn, err := nats.Connect(url,
		nats.Name("playloft-"+nodeID),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			lg.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			lg.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}

	return &NATSBus{
		conn:   conn,
		local:  local,
		logger: lg,
		nodeID: nodeID,
	}, nil
}

// Subscribe registers a local subscriber.
func (nb *NATSBus) Subscribe(eventType events.EventType) events.Subscriber {
	return nb.local.Subscribe(eventType)
}

// Unsubscribe removes a local subscriber.
func (nb *NATSBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	nb.local.Unsubscribe(eventType, sub)
}

// Publish delivers locally and forwards to the NATS subject for the type.
func (nb *NATSBus) Publish(eventType events.EventType, payload events.Payload) {
	nb.local.Publish(eventType, payload)

	data, err := marshalMessage(eventType, payload, nb.nodeID)
	if err != nil {
		nb.logger.Error().Err(err).Str("event", string(eventType)).Msg("marshal event failed")
		return
	}

	if err := nb.conn.Publish(subjectFor(eventType), data); err != nil {
		nb.logger.Debug().Err(err).Str("event", string(eventType)).Msg("nats publish failed")
	}
}

// Close drains and closes the NATS connection.
func (nb *NATSBus) Close() error {
	if err := nb.conn.Drain(); err != nil {
		nb.conn.Close()
		return err
	}
	return nil
}
