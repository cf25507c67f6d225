package notify

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/Sheulydsp/kanban-dashboard/board"
)

const publishTimeout = 2 * time.Second

// RedisPublisher publishes board changes on a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *log.Logger
}

func NewRedisPublisher(client *redis.Client, channel string, logger *log.Logger) *RedisPublisher {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

// Notify is a board.Listener. Publish failures are logged and otherwise
// ignored; the change is already committed.
func (p *RedisPublisher) Notify(ch board.Change) {
	payload, err := sonic.Marshal(NewEvent(ch))
	if err != nil {
		p.logger.WithError(err).Error("unable to encode board event")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"channel":  p.channel,
			"revision": ch.Revision,
		}).Error("unable to publish board update")
	}
}
