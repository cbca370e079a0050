package event

import (
	log "github.com/sirupsen/logrus"

	"storefront/pkg/common/domain"
)

// LogDispatcher writes events to the application log when no broker is configured.
type LogDispatcher struct{}

func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

func (d *LogDispatcher) Dispatch(event domain.Event) error {
	log.WithFields(log.Fields{"event": event.Type(), "payload": event}).Info("domain event")
	return nil
}
