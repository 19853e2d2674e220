package connect

import "errors"

var (
	// ErrConnectorExists is returned when Kafka Connect already has a connector with the same name.
	ErrConnectorExists = errors.New("connector already exists")

	// ErrConnectorRejected is returned when Kafka Connect refuses a connector config.
	ErrConnectorRejected = errors.New("connector rejected")

	// ErrUnavailable is returned when the Kafka Connect server cannot be reached.
	ErrUnavailable = errors.New("kafka connect unavailable")

	// ErrNotReady is returned when a connector does not appear before the timeout.
	ErrNotReady = errors.New("connector not ready")
)
