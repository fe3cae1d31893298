package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/audioforge/ttsgate/internal/config"
)

type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueSynthesize schedules a plain-text synthesis job.
func (c *Client) EnqueueSynthesize(payload SynthesizePayload) error {
	return c.enqueue(TypeSynthesize, payload, asynq.MaxRetry(3), asynq.Timeout(5*time.Minute))
}

// EnqueueDocumentSynthesize schedules synthesis of extracted document text.
// These run on the low queue since inputs tend to be long.
func (c *Client) EnqueueDocumentSynthesize(payload SynthesizePayload) error {
	return c.enqueue(TypeSynthesize, payload,
		asynq.Queue("low"), asynq.MaxRetry(2), asynq.Timeout(15*time.Minute))
}

func (c *Client) enqueue(taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	_, err = c.client.Enqueue(task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
