package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const traceKeyPrefix = "saidia:trace:"

type RedisTransport struct {
	rdb *redis.Client
}

func NewRedisTransport(rdb *redis.Client) *RedisTransport {
	return &RedisTransport{
		rdb: rdb,
	}
}

func (t *RedisTransport) GetMessageStream(id string) (MessageStream, error) {
	if len(id) == 0 {
		return nil, fmt.Errorf("invalid stream ID")
	}
	rs := &RedisStream{
		id:          id,
		lastRedisID: "0",
		rdb:         t.rdb,
	}
	return rs, nil
}

func (t *RedisTransport) SetTrace(ctx context.Context, trace *RequestTrace) error {
	key := traceKeyPrefix + trace.ID

	if err := t.rdb.HSet(ctx, key, trace).Err(); err != nil {
		return fmt.Errorf("failed to store trace '%s': %w", trace.ID, err)
	}
	if err := t.rdb.Expire(ctx, key, TraceExpiry).Err(); err != nil {
		slog.Warn("failed to set trace expiry", "trace", trace.ID, "err", err)
	}
	return nil
}

func (t *RedisTransport) GetTrace(ctx context.Context, traceID string) (*RequestTrace, error) {
	key := traceKeyPrefix + traceID

	exists, err := t.rdb.Exists(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to look up trace '%s': %w", traceID, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("trace '%s': %w", traceID, ErrTraceNotFound)
	}

	var trace RequestTrace
	if err := t.rdb.HGetAll(ctx, key).Scan(&trace); err != nil {
		return nil, fmt.Errorf("failed to read trace '%s': %w", traceID, err)
	}
	return &trace, nil
}

type RedisStream struct {
	id          string
	lastRedisID string

	rdb *redis.Client
}

func (s *RedisStream) Send(ctx context.Context, payload MessageStreamPayload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	err = s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.id,
		ID:     "*",
		Values: map[string]any{
			"payload": string(payloadJSON),
		},
	}).Err()
	if err != nil {
		return err
	}

	if err := s.rdb.Expire(ctx, s.id, StreamExpiry).Err(); err != nil {
		slog.Debug("failed to set stream expiry", "stream", s.id, "err", err)
	}
	return nil
}

func (s *RedisStream) Recv(ctx context.Context) (*MessageStreamPayload, error) {
	rstreams, err := s.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{s.id, s.lastRedisID},
		Count:   1,
		Block:   0,
	}).Result()
	if err != nil {
		return nil, err
	}

	msg := rstreams[0].Messages[0]
	s.lastRedisID = msg.ID
	payloadJSON, ok := msg.Values["payload"].(string)
	if !ok {
		return nil, fmt.Errorf("failed to read payload from stream message")
	}

	var payload MessageStreamPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return nil, fmt.Errorf("failed to deserialize stream message payload")
	}

	return &payload, nil
}

func (s *RedisStream) Text(ctx context.Context) (string, error) {
	var acc string
	for {
		payload, err := s.Recv(ctx)
		if err != nil {
			return acc, err
		}

		acc += payload.Content

		if payload.Final {
			switch payload.Status {
			case StatusErr:
				return acc, fmt.Errorf("stream '%s' reported an error", s.id)
			case StatusDegraded:
				return payload.Content, nil
			}
			return acc, nil
		}
	}
}

func (s *RedisStream) GetID() string {
	return s.id
}
