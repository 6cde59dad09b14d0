// Package bridge connects the control core to the hardware drivers over
// MQTT. Sensor samples arrive as JSON on <prefix>/sensors/<name> and land
// on the robot bus; wheel commands and telemetry are published back.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/multierr"

	"github.com/chamburr/soccer/internal/log"
	"github.com/chamburr/soccer/pkg/protocol"
	"github.com/chamburr/soccer/pkg/robot"
)

var (
	// ErrTimeout is returned when the broker does not acknowledge in time.
	ErrTimeout = errors.New("bridge: timeout")

	// ErrBadPayload is returned for sensor messages that cannot be decoded.
	ErrBadPayload = errors.New("bridge: bad payload")

	// ErrUnknownTopic is returned for messages on topics the bridge does
	// not handle.
	ErrUnknownTopic = errors.New("bridge: unknown topic")
)

// Sensor topic suffixes under <prefix>/sensors/.
const (
	SensorLidar   = "lidar"
	SensorCamera  = "camera"
	SensorIMU     = "imu"
	SensorLine    = "line"
	SensorCapture = "capture"
	SensorStart   = "start"
)

// Config holds broker settings
type Config struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Username string
	Password string
	Prefix   string

	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// DefaultConfig returns settings for a broker on the robot itself.
func DefaultConfig() Config {
	return Config{
		Broker:         "tcp://localhost:1883",
		ClientID:       fmt.Sprintf("soccer-%d", time.Now().Unix()),
		Prefix:         "soccer",
		ConnectTimeout: 10 * time.Second,
		PublishTimeout: 100 * time.Millisecond,
	}
}

// IMUData is the fused heading sample.
type IMUData struct {
	Heading float64 `json:"heading"`
}

// CaptureData is the ball capture sensor state.
type CaptureData struct {
	Captured bool `json:"captured"`
}

// StartData is the start module state.
type StartData struct {
	Start bool `json:"start"`
}

// Bridge moves sensor samples onto the bus and publishes wheel commands.
// It implements robot.MotorDriver.
type Bridge struct {
	cfg    Config
	bus    *robot.Bus
	client mqtt.Client
	logger *slog.Logger

	received  atomic.Uint64
	rejected  atomic.Uint64
	published atomic.Uint64
}

// New creates a bridge feeding bus. Call Connect before use.
func New(cfg Config, bus *robot.Bus) *Bridge {
	b := &Bridge{cfg: cfg, bus: bus, logger: log.Component("bridge")}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(5 * time.Second)

	opts.OnConnect = b.onConnect
	opts.OnConnectionLost = b.onConnectionLost
	opts.OnReconnecting = b.onReconnecting

	b.client = mqtt.NewClient(opts)
	return b
}

// Connect dials the broker. Subscriptions are (re)made on every connect.
func (b *Bridge) Connect() error {
	b.logger.Info("connecting", "broker", b.cfg.Broker, "client_id", b.cfg.ClientID)

	token := b.client.Connect()
	if !token.WaitTimeout(b.cfg.ConnectTimeout) {
		return fmt.Errorf("connect %s: %w", b.cfg.Broker, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect %s: %w", b.cfg.Broker, err)
	}
	return nil
}

// Close stops the wheels, drops the subscriptions and disconnects.
func (b *Bridge) Close() error {
	if !b.client.IsConnected() {
		return nil
	}

	err := b.SetMotors(robot.MotorCommand{})

	token := b.client.Unsubscribe(b.sensorTopics()...)
	if !token.WaitTimeout(b.cfg.ConnectTimeout) {
		err = multierr.Append(err, fmt.Errorf("unsubscribe: %w", ErrTimeout))
	} else {
		err = multierr.Append(err, token.Error())
	}

	b.client.Disconnect(250)
	b.logger.Info("disconnected",
		"received", b.received.Load(),
		"rejected", b.rejected.Load(),
		"published", b.published.Load())
	return err
}

func (b *Bridge) sensorTopics() []string {
	names := []string{SensorLidar, SensorCamera, SensorIMU, SensorLine, SensorCapture, SensorStart}
	topics := make([]string, len(names))
	for i, n := range names {
		topics[i] = b.cfg.Prefix + "/sensors/" + n
	}
	return topics
}

func (b *Bridge) onConnect(client mqtt.Client) {
	b.logger.Info("connected")

	filters := make(map[string]byte)
	for _, t := range b.sensorTopics() {
		filters[t] = 0
	}

	token := client.SubscribeMultiple(filters, b.onMessage)
	if !token.WaitTimeout(b.cfg.ConnectTimeout) {
		b.logger.Error("subscribe timeout")
		return
	}
	if err := token.Error(); err != nil {
		b.logger.Error("subscribe failed", "error", err)
		return
	}
	b.logger.Info("subscribed", "topics", len(filters))
}

func (b *Bridge) onConnectionLost(_ mqtt.Client, err error) {
	b.logger.Warn("connection lost, will reconnect", "error", err)
}

func (b *Bridge) onReconnecting(mqtt.Client, *mqtt.ClientOptions) {
	b.logger.Info("reconnecting")
}

func (b *Bridge) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if err := b.Handle(msg.Topic(), msg.Payload()); err != nil {
		b.logger.Debug("dropped sensor message", "topic", msg.Topic(), "error", err)
	}
}

// Handle decodes one sensor message and posts it to the bus. It never
// blocks; bus mailboxes keep only the newest sample.
func (b *Bridge) Handle(topic string, payload []byte) error {
	b.received.Add(1)

	name, ok := strings.CutPrefix(topic, b.cfg.Prefix+"/sensors/")
	if !ok {
		b.rejected.Add(1)
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	var err error
	switch name {
	case SensorLidar:
		var v robot.LidarData
		if err = decode(payload, &v); err == nil {
			b.bus.Lidar.Send(v)
		}
	case SensorCamera:
		var v robot.CameraData
		if err = decode(payload, &v); err == nil {
			b.bus.Camera.Send(v)
		}
	case SensorIMU:
		var v IMUData
		if err = decode(payload, &v); err == nil {
			b.bus.Heading.Send(v.Heading)
		}
	case SensorLine:
		var v robot.Sides
		if err = decode(payload, &v); err == nil {
			b.bus.Line.Send(v)
		}
	case SensorCapture:
		var v CaptureData
		if err = decode(payload, &v); err == nil {
			b.bus.Capture.Send(v.Captured)
		}
	case SensorStart:
		var v StartData
		if err = decode(payload, &v); err == nil {
			b.bus.Start.Send(v.Start)
		}
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	if err != nil {
		b.rejected.Add(1)
	}
	return err
}

func decode(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}

// SetMotors publishes a wheel command to <prefix>/motors.
func (b *Bridge) SetMotors(cmd robot.MotorCommand) error {
	return b.publish(b.cfg.Prefix+"/motors", cmd)
}

// PublishStatus publishes a telemetry snapshot to <prefix>/telemetry.
func (b *Bridge) PublishStatus(status protocol.StatusData) error {
	return b.publish(b.cfg.Prefix+"/telemetry", status)
}

func (b *Bridge) publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	token := b.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(b.cfg.PublishTimeout) {
		return fmt.Errorf("publish %s: %w", topic, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	b.published.Add(1)
	return nil
}

// Stats returns message counters.
func (b *Bridge) Stats() (received, rejected, published uint64) {
	return b.received.Load(), b.rejected.Load(), b.published.Load()
}
