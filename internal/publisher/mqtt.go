package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/jgoulah/plantlog/internal/config"
	"github.com/jgoulah/plantlog/pkg/models"
)

// ErrNoTargets is returned by Publish when neither MQTT nor Home Assistant is enabled
var ErrNoTargets = errors.New("no publish targets enabled")

// Publisher sends day summaries to MQTT and the Home Assistant HTTP API
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	haConfig    config.HAConfig
	httpClient  *http.Client
	logger      *zap.Logger
}

// New creates a new publisher (supports both MQTT and HA HTTP API)
func New(mqttCfg config.MQTTConfig, topicPrefix string, haCfg config.HAConfig, logger *zap.Logger) (*Publisher, error) {
	if haCfg.Enabled {
		if haCfg.URL == "" {
			return nil, fmt.Errorf("Home Assistant URL is required when enabled")
		}
		if haCfg.Token == "" {
			return nil, fmt.Errorf("Home Assistant token is required when enabled")
		}
		if haCfg.EntityID == "" {
			return nil, fmt.Errorf("Home Assistant entity_id is required when enabled")
		}
	}

	var client mqtt.Client
	if mqttCfg.Enabled {
		if mqttCfg.Broker == "" {
			return nil, fmt.Errorf("MQTT broker address is required when enabled")
		}

		opts := mqtt.NewClientOptions()
		opts.AddBroker(fmt.Sprintf("tcp://%s", mqttCfg.Broker))
		opts.SetClientID("plantlog")
		opts.SetAutoReconnect(true)
		opts.SetConnectRetry(true)
		opts.SetConnectTimeout(10 * time.Second)

		if mqttCfg.Username != "" {
			opts.SetUsername(mqttCfg.Username)
		}
		if mqttCfg.Password != "" {
			opts.SetPassword(mqttCfg.Password)
		}

		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
		}
	}

	return newPublisher(client, topicPrefix, haCfg, logger), nil
}

func newPublisher(client mqtt.Client, topicPrefix string, haCfg config.HAConfig, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:      client,
		topicPrefix: topicPrefix,
		haConfig:    haCfg,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		logger:      logger.Named("publisher"),
	}
}

// Enabled reports whether at least one target is configured
func (p *Publisher) Enabled() bool {
	return p.client != nil || p.haConfig.Enabled
}

// Topic returns the MQTT topic for a date
func (p *Publisher) Topic(dateKey string) string {
	return fmt.Sprintf("%s/%s", p.topicPrefix, dateKey)
}

// HAPayload matches the Home Assistant backfill service call data
type HAPayload struct {
	EntityID    string `json:"entity_id"`
	State       string `json:"state"`
	LastChanged string `json:"last_changed"`
	LastUpdated string `json:"last_updated"`
}

// Publish sends a day summary to every enabled target
func (p *Publisher) Publish(summary models.DaySummary) error {
	if !p.Enabled() {
		return ErrNoTargets
	}

	if p.client != nil {
		if err := p.publishMQTT(summary); err != nil {
			return err
		}
	}
	if p.haConfig.Enabled {
		if err := p.publishHA(summary); err != nil {
			return err
		}
	}

	p.logger.Debug("published day summary", zap.String("date", summary.DateKey))
	return nil
}

func (p *Publisher) publishMQTT(summary models.DaySummary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}

	token := p.client.Publish(p.Topic(summary.DateKey), 1, true, body)
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("publishing %s: timed out", summary.DateKey)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing %s: %w", summary.DateKey, err)
	}
	return nil
}

// publishHA backfills the entity's state at midnight UTC of the summary's date
// with the day's net feeder flow.
func (p *Publisher) publishHA(summary models.DaySummary) error {
	date, err := models.ParseDateKey(summary.DateKey)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", summary.DateKey, err)
	}
	timestamp := date.Format(time.RFC3339)

	payload := HAPayload{
		EntityID:    p.haConfig.EntityID,
		State:       fmt.Sprintf("%.2f", summary.ExportVal),
		LastChanged: timestamp,
		LastUpdated: timestamp,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return p.post(ctx, "/api/appdaemon/backfill_state", payload, nil)
}

// GenerateStatistics asks AppDaemon to compile long-term statistics from the
// backfilled states. Run it after publishing to populate the Energy dashboard.
func (p *Publisher) GenerateStatistics(ctx context.Context) (map[string]interface{}, error) {
	if !p.haConfig.Enabled {
		return nil, fmt.Errorf("Home Assistant is not enabled in config")
	}

	var result map[string]interface{}
	payload := map[string]string{"entity_id": p.haConfig.EntityID}
	if err := p.post(ctx, "/api/appdaemon/generate_statistics", payload, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Publisher) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.haConfig.URL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.haConfig.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: status %d, response: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
