package reporter

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/sweeney/callwatch/internal/ami"
)

// MQTT publishes derived notifications to an MQTT broker, one topic
// per call and notification kind.
type MQTT struct {
	emitter

	client mqtt.Client
	prefix string
	qos    byte
	errCb  func(error)
}

// MQTTOptions configures the MQTT reporter.
type MQTTOptions struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte

	// OnError is called for publish/marshal failures, which are
	// otherwise swallowed so a flaky broker cannot stall ingestion.
	OnError func(error)
}

// NewMQTT creates and connects an MQTT reporter. The client id gets a
// random suffix so several instances can share a configured id.
func NewMQTT(opts MQTTOptions) (*MQTT, error) {
	clientID := fmt.Sprintf("%s-%s", opts.ClientID, uuid.NewString()[:8])

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(60 * time.Second)

	client := mqtt.NewClient(clientOpts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", opts.Broker, err)
	}

	r := &MQTT{
		client: client,
		prefix: opts.TopicPrefix,
		qos:    opts.QoS,
		errCb:  opts.OnError,
	}
	r.emitter = emitter{emit: r.publish}
	return r, nil
}

func (r *MQTT) publish(n Notification) {
	topic := fmt.Sprintf("%s/call/%s/%s", r.prefix, n.Caller.LinkedID, n.Kind)

	payload, err := json.Marshal(n)
	if err != nil {
		r.fail(fmt.Errorf("marshaling %s notification: %w", n.Kind, err))
		return
	}

	token := r.client.Publish(topic, r.qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		r.fail(fmt.Errorf("publishing to %s: %w", topic, err))
	}
}

func (r *MQTT) fail(err error) {
	if r.errCb != nil {
		r.errCb(err)
	}
}

func (r *MQTT) OnEvent(ami.Event) {}

func (r *MQTT) Close() error {
	r.client.Disconnect(1000)
	return nil
}
