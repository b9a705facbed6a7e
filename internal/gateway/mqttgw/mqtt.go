// Package mqttgw bridges the engine to an MQTT broker. Clients talk
// on <root>/<roomID>/<verb>; the engine's events go out on
// <root>/<roomID>/<suffix> and the statistics document is retained on
// <root>/statistics.
package mqttgw

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/dudo-games/dudo/internal/dudosrv"
	"github.com/dudo-games/dudo/internal/logging"
)

const (
	statsTopic     = "statistics"
	connectTimeout = 10 * time.Second
)

type Gateway struct {
	client mqtt.Client
	root   string

	handle func(context.Context, dudosrv.Command) error
}

type Config struct {
	BrokerURL string
	ClientID  string
	TopicRoot string
}

func New(cfg Config, handle func(context.Context, dudosrv.Command) error) *Gateway {
	gw := &Gateway{root: cfg.TopicRoot, handle: handle}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	gw.client = mqtt.NewClient(opts)

	return gw
}

// Connect establishes the broker session. The engine publishes
// through the gateway during startup, so this runs before Run.
func (gw *Gateway) Connect(ctx context.Context) error {
	if token := gw.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("broker connect: %w", token.Error())
	}
	logging.FromContext(ctx).Infof("connected to broker, root topic %q", gw.root)
	return nil
}

// Run subscribes to the command topics and blocks until the context
// is cancelled.
func (gw *Gateway) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	onMessage := func(_ mqtt.Client, msg mqtt.Message) {
		gw.dispatch(ctx, msg)
	}

	// Commands arrive as root/room/verb; brokers that stamp the
	// publishing client append its id as a fourth level.
	filters := map[string]byte{
		gw.root + "/+/+":   1,
		gw.root + "/+/+/+": 1,
	}
	if token := gw.client.SubscribeMultiple(filters, onMessage); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe: %w", token.Error())
	}

	<-ctx.Done()
	gw.client.Disconnect(uint(connectTimeout.Milliseconds()))
	logger.Infof("disconnected from broker")
	return nil
}

func (gw *Gateway) dispatch(ctx context.Context, msg mqtt.Message) {
	logger := logging.FromContext(ctx)

	parts := strings.Split(msg.Topic(), "/")
	if len(parts) < 3 || parts[0] != gw.root {
		return
	}
	// Our own event publishes come back on the same filters.
	if !dudosrv.KnownVerb(parts[2]) {
		return
	}

	cmd := dudosrv.Command{
		RoomID:  parts[1],
		Verb:    parts[2],
		Payload: msg.Payload(),
	}
	if len(parts) > 3 {
		cmd.ConnID = parts[3]
	} else {
		// Without a broker-stamped client id the claimed seat id is
		// the only connection identity available.
		var claim struct {
			UUID string `json:"uuid"`
		}
		_ = json.Unmarshal(msg.Payload(), &claim)
		cmd.ConnID = claim.UUID
	}

	if err := gw.handle(ctx, cmd); err != nil {
		logger.Errorf("handle %s: %v", msg.Topic(), err)
	}
}

func (gw *Gateway) Publish(roomID, suffix string, payload []byte) error {
	topic := fmt.Sprintf("%s/%s/%s", gw.root, roomID, suffix)
	if token := gw.client.Publish(topic, 1, false, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}

func (gw *Gateway) PublishStats(payload []byte) error {
	topic := gw.root + "/" + statsTopic
	if token := gw.client.Publish(topic, 1, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}
