package mqtt

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultKeepAlive is used when the broker URL doesn't set keepalive.
const DefaultKeepAlive = 30 * time.Second

// Broker is a parsed broker URL:
//
//	mqtt://[user[:password]@]host:port/topic-prefix/?client-id=&qos=&keepalive=
//
// The scheme mqtt maps to tcp, others (ws, wss, ssl) are passed to paho.
type Broker struct {
	Options     *paho.ClientOptions
	TopicPrefix string
	QoS         byte
}

// ParseBroker parses a broker URL.
func ParseBroker(brokerURL string) (*Broker, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, err
	}
	scheme := u.Scheme
	if scheme == "" || scheme == "mqtt" {
		scheme = "tcp"
	}
	b := &Broker{
		Options:     paho.NewClientOptions(),
		TopicPrefix: strings.TrimPrefix(u.Path, "/"),
	}
	b.Options.AddBroker(scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetKeepAlive(DefaultKeepAlive)
	if u.User != nil {
		b.Options.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			b.Options.SetPassword(pwd)
		}
	}

	query := u.Query()
	if id := query.Get("client-id"); id != "" {
		b.Options.SetClientID(id)
	}
	if val := query.Get("qos"); val != "" {
		qos, err := strconv.ParseUint(val, 10, 8)
		if err != nil || qos > 2 {
			return nil, fmt.Errorf("invalid qos %q", val)
		}
		b.QoS = byte(qos)
	}
	if val := query.Get("keepalive"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid keepalive %q", val)
		}
		b.Options.SetKeepAlive(d)
	}
	return b, nil
}

// SetDefaultClientID sets the client ID unless the URL has one.
func (b *Broker) SetDefaultClientID(id string) {
	if b.Options.ClientID == "" {
		b.Options.SetClientID(id)
	}
}

// NewQueue creates a Queue on the broker. Options must be final,
// paho copies them.
func (b *Broker) NewQueue() *Queue {
	q := &Queue{TopicPrefix: b.TopicPrefix, QoS: b.QoS}
	b.Options.SetOnConnectHandler(q.connected)
	b.Options.SetConnectionLostHandler(q.connectionLost)
	q.Client = paho.NewClient(b.Options)
	return q
}

// MatchTopic reports whether topic matches the filter, which may
// contain + for one level and a trailing # for the rest.
func MatchTopic(topic, filter string) bool {
	for filter != "" {
		var level string
		level, filter, _ = cut(filter)
		if level == "#" && filter == "" {
			return true
		}
		if topic == "" && level != "" {
			return false
		}
		var got string
		got, topic, _ = cut(topic)
		if level != "+" && level != got {
			return false
		}
	}
	return topic == ""
}

func cut(s string) (head, rest string, found bool) {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		return s[:i], s[i+1:], true
	}
	return s, "", false
}
