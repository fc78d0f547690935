package drivetrain

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// LogTelemetry publishes telemetry as one log entry per Update.
type LogTelemetry struct {
	Message string
	Level   log.Level

	lock   sync.Mutex
	fields log.Fields
	keys   []string
}

func NewLogTelemetry() *LogTelemetry {
	return &LogTelemetry{
		Message: "Telemetry",
		Level:   log.InfoLevel,
	}
}

func (t *LogTelemetry) AddData(key string, value interface{}) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.fields == nil {
		t.fields = make(log.Fields)
	}
	if _, ok := t.fields[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.fields[key] = value
}

// Keys returns the keys added since the last Update, in insertion order.
func (t *LogTelemetry) Keys() []string {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]string(nil), t.keys...)
}

func (t *LogTelemetry) Update() error {
	t.lock.Lock()
	fields := t.fields
	t.fields = nil
	t.keys = nil
	t.lock.Unlock()
	if len(fields) > 0 {
		log.WithFields(fields).Log(t.Level, t.Message)
	}
	return nil
}
