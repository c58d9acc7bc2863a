// Package linkstate mirrors an HDLC session's connection status, sequence
// counters, and most recent payloads into Redis, so other processes on
// the same host can observe link health without touching the serial
// line themselves.
package linkstate

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/librescoot/hdlc-link/pkg/hdlc"
)

// Key is the Redis hash holding the mirrored link state.
const Key = "hdlc-link"

// Hash fields within Key.
const (
	FieldStatus      = "status"
	FieldSendSeq     = "send-seq"
	FieldRecvSeq     = "recv-seq"
	FieldLastRXFrame = "last-rx-frame"
	FieldLastTXFrame = "last-tx-frame"
)

// Client wraps a go-redis client with the hash-write-then-publish pattern
// the teacher uses throughout pkg/redis/client.go, re-keyed from
// battery/vehicle telemetry to HDLC link state.
type Client struct {
	client *redis.Client
	ctx    context.Context
}

// New connects to Redis at addr, verifying the connection with a Ping.
func New(addr, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("linkstate: connect to redis: %w", err)
	}

	return &Client{client: client, ctx: ctx}, nil
}

// WriteStatus mirrors the session's connection status and publishes the
// change on Key so subscribers can react without polling.
func (c *Client) WriteStatus(status hdlc.ConnectionStatus) error {
	return c.writeAndPublish(FieldStatus, status.String())
}

// WriteSequences mirrors both sequence counters in a single pipeline.
func (c *Client) WriteSequences(sendSeq, recvSeq byte) error {
	pipe := c.client.Pipeline()
	pipe.HSet(c.ctx, Key, FieldSendSeq, strconv.Itoa(int(sendSeq)))
	pipe.HSet(c.ctx, Key, FieldRecvSeq, strconv.Itoa(int(recvSeq)))
	pipe.Publish(c.ctx, Key, fmt.Sprintf("%s:%d", FieldSendSeq, sendSeq))
	pipe.Publish(c.ctx, Key, fmt.Sprintf("%s:%d", FieldRecvSeq, recvSeq))
	_, err := pipe.Exec(c.ctx)
	return err
}

// WriteFrame mirrors the most recent frame seen in direction ("rx" or
// "tx") as its type name, a space, and the hex encoding of its payload.
func (c *Client) WriteFrame(direction string, f hdlc.Frame) error {
	field := FieldLastRXFrame
	if direction == "tx" {
		field = FieldLastTXFrame
	}
	return c.writeAndPublish(field, fmt.Sprintf("%s %s", f.Type(), hex.EncodeToString(f.Payload())))
}

func (c *Client) writeAndPublish(field, value string) error {
	pipe := c.client.Pipeline()
	pipe.HSet(c.ctx, Key, field, value)
	pipe.Publish(c.ctx, Key, fmt.Sprintf("%s:%s", field, value))
	_, err := pipe.Exec(c.ctx)
	return err
}

// Status reads the mirrored status back, for diagnostics or a CLI "status"
// subcommand.
func (c *Client) Status() (string, error) {
	val, err := c.client.HGet(c.ctx, Key, FieldStatus).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("linkstate: field %s not set", FieldStatus)
	}
	return val, err
}

// Subscribe subscribes to Key and returns the message channel alongside a
// closer, mirroring the teacher's Subscribe/closeFunc pattern.
func (c *Client) Subscribe() (<-chan *redis.Message, func()) {
	pubsub := c.client.Subscribe(c.ctx, Key)
	ch := pubsub.Channel()
	return ch, func() { pubsub.Close() }
}

// Close closes the underlying Redis client.
func (c *Client) Close() error {
	return c.client.Close()
}
