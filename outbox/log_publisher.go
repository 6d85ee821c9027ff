package outbox

import "context"

// LogPublisher writes messages to the logger. It is used when no broker is
// configured.
type LogPublisher struct {
	logger Logger
}

func NewLogPublisher(logger Logger) *LogPublisher {
	if logger == nil {
		logger = stdLogger{}
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, msg Message) error {
	p.logger.Info("outbox message id=%s type=%s created_at=%s content=%s",
		msg.ID, msg.Type, msg.CreatedAt.Format("2006-01-02T15:04:05.000000Z07:00"), msg.Content)
	return nil
}
