package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	tasksKey        = "chatrelay:tasks"
	chatTasksKey    = "chatrelay:tasks:chat"
	commandsChannel = "chatrelay:task-commands"
)

// command is the pub/sub payload exchanged between instances.
type command struct {
	Action string `json:"action"`
	ID     string `json:"id"`
}

// Redis tracks runs locally and mirrors their ids into Redis so every
// instance sees the full registry. Stop broadcasts on a pub/sub channel and
// whichever instance owns the run cancels it.
type Redis struct {
	client *redis.Client
	local  *Local
	pubsub *redis.PubSub
}

// NewRedis subscribes to the task-command channel and starts the listener.
// The caller keeps ownership of client.
func NewRedis(client *redis.Client) (*Redis, error) {
	r := &Redis{client: client, local: NewLocal()}
	r.local.onExit = r.release

	r.pubsub = client.Subscribe(context.Background(), commandsChannel)
	if _, err := r.pubsub.Receive(context.Background()); err != nil {
		return nil, fmt.Errorf("subscribe task commands: %w", err)
	}
	go r.listen()

	return r, nil
}

func (r *Redis) listen() {
	for msg := range r.pubsub.Channel() {
		var cmd command
		if err := json.Unmarshal([]byte(msg.Payload), &cmd); err != nil {
			slog.Warn("tracker: bad task command", "payload", msg.Payload, "error", err)
			continue
		}
		if cmd.Action == "stop" {
			r.local.Stop(cmd.ID)
		}
	}
}

// Launch mirrors the run into Redis before the goroutine starts so a run can
// never finish ahead of its registration.
func (r *Redis) Launch(ctx context.Context, chatID string, fn func(context.Context)) string {
	id := uuid.NewString()
	bg := context.Background()

	pipe := r.client.Pipeline()
	pipe.HSet(bg, tasksKey, id, chatID)
	if chatID != "" {
		pipe.SAdd(bg, chatKey(chatID), id)
	}
	if _, err := pipe.Exec(bg); err != nil {
		slog.Warn("tracker: redis save failed", "id", id, "error", err)
	}

	r.local.launch(ctx, id, chatID, fn)
	return id
}

// Stop broadcasts a stop command. Every instance, this one included, cancels
// the run if it owns it. The return value reports only that the broadcast
// went out.
func (r *Redis) Stop(id string) bool {
	payload, _ := json.Marshal(command{Action: "stop", ID: id})
	if err := r.client.Publish(context.Background(), commandsChannel, payload).Err(); err != nil {
		slog.Warn("tracker: stop publish failed", "id", id, "error", err)
		return false
	}
	return true
}

func (r *Redis) List() []string {
	ids, err := r.client.HKeys(context.Background(), tasksKey).Result()
	if err != nil {
		slog.Warn("tracker: redis list failed", "error", err)
		return nil
	}
	sort.Strings(ids)
	return ids
}

func (r *Redis) ListByChat(chatID string) []string {
	ids, err := r.client.SMembers(context.Background(), chatKey(chatID)).Result()
	if err != nil {
		slog.Warn("tracker: redis list failed", "chat", chatID, "error", err)
		return nil
	}
	sort.Strings(ids)
	return ids
}

// Close stops the command listener and cancels local runs. Redis entries of
// still-running work are left for their owning goroutines to clear.
func (r *Redis) Close() error {
	err := r.pubsub.Close()
	if cerr := r.local.Close(); err == nil {
		err = cerr
	}
	return err
}

// release drops the mirrored entries after a run deregisters. Emptied chat
// sets are deleted outright.
func (r *Redis) release(id, chatID string) {
	bg := context.Background()

	pipe := r.client.Pipeline()
	pipe.HDel(bg, tasksKey, id)
	if chatID != "" {
		pipe.SRem(bg, chatKey(chatID), id)
	}
	if _, err := pipe.Exec(bg); err != nil {
		slog.Warn("tracker: redis cleanup failed", "id", id, "error", err)
		return
	}
	if chatID != "" {
		if n, err := r.client.SCard(bg, chatKey(chatID)).Result(); err == nil && n == 0 {
			r.client.Del(bg, chatKey(chatID))
		}
	}
}

func chatKey(chatID string) string { return chatTasksKey + ":" + chatID }
