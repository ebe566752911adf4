package backend

import (
	"errors"
	"fmt"

	"fintrack/internal/config"
)

// FromAppConfig picks the backend settings out of the application config.
func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, errors.New("app config is nil")
	}
	cfg := Config{
		Type:         BackendType(app.DataBackend),
		SQLiteDBPath: app.SQLiteDBPath,
		BoltDBPath:   app.BoltDBPath,
		AMQPURL:      app.AMQPURL,
		AMQPExchange: app.AMQPExchange,
		AMQPQueue:    app.AMQPQueue,
	}
	if !cfg.Type.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %q", app.DataBackend)
	}
	return cfg, nil
}

// WithoutEvents returns a copy that opens no publisher, for processes that
// only consume events.
func (c Config) WithoutEvents() Config {
	c.AMQPURL = ""
	return c
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	if !c.Type.IsValid() {
		errs = append(errs, fmt.Errorf("invalid backend type: %q", c.Type))
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		errs = append(errs, errors.New("sqlite backend needs a database path"))
	}
	if c.Type == BoltBackend && c.BoltDBPath == "" {
		errs = append(errs, errors.New("bolt backend needs a database path"))
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		errs = append(errs, errors.New("AMQP exchange and queue are required when AMQP URL is set"))
	}
	return errors.Join(errs...)
}
