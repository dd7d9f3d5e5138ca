package realtime

import (
	"context"
	"encoding/json"
	"strconv"

	"cashier/models"

	"github.com/redis/go-redis/v9"
)

// Channel is the pub/sub channel carrying new notifications for one profile.
func Channel(profileID uint) string {
	return "notifications:" + strconv.FormatUint(uint64(profileID), 10)
}

type Event struct {
	Event        string               `json:"event"`
	Notification *models.Notification `json:"notification"`
}

func Encode(n *models.Notification) ([]byte, error) {
	return json.Marshal(Event{Event: "notification.created", Notification: n})
}

// Redis publishes committed notifications so session gateways subscribed to
// Channel(id) can forward them to connected clients.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(addr, password string) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})}
}

func NewRedisWithClient(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Publish(ctx context.Context, n *models.Notification) error {
	payload, err := Encode(n)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, Channel(n.ProfileID), payload).Err()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
