package mqtt

import (
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// Handler is the callback when a message is received. The topic is
// relative to the queue's TopicPrefix.
type Handler func(topic string, payload []byte)

// ConnectHandler is to handle connect/disconnect events.
type ConnectHandler func(*Queue)

// Queue shares one MQTT client among handlers. Each distinct filter is
// subscribed on the broker once, and again after reconnecting.
type Queue struct {
	Client       paho.Client
	TopicPrefix  string
	QoS          byte
	OnConnect    ConnectHandler
	OnDisconnect ConnectHandler

	lock   sync.RWMutex
	routes map[string]*route
}

type route struct {
	filter   string
	wildcard bool
	subs     []*Subscription
}

// Subscription is a handler registered on a filter.
type Subscription struct {
	// Token completes when the broker acknowledged the filter. It is
	// nil if the filter was already subscribed.
	Token paho.Token

	queue   *Queue
	route   *route
	handler Handler
}

// NewQueueFromURL creates Queue from a broker URL.
func NewQueueFromURL(brokerURL string) (*Queue, error) {
	b, err := ParseBroker(brokerURL)
	if err != nil {
		return nil, err
	}
	return b.NewQueue(), nil
}

// Connect connects the client.
func (q *Queue) Connect() paho.Token {
	return q.Client.Connect()
}

// Close implements io.Closer.
func (q *Queue) Close() error {
	q.Client.Disconnect(0)
	return nil
}

// Sub registers handler on filter.
func (q *Queue) Sub(filter string, handler Handler) *Subscription {
	sub := &Subscription{queue: q, handler: handler}
	q.lock.Lock()
	if q.routes == nil {
		q.routes = make(map[string]*route)
	}
	r := q.routes[filter]
	created := r == nil
	if created {
		r = &route{
			filter:   filter,
			wildcard: strings.ContainsAny(filter, "+#"),
		}
		q.routes[filter] = r
	}
	r.subs = append(r.subs, sub)
	sub.route = r
	q.lock.Unlock()

	if created {
		glog.V(2).Infof("SUB %q", q.TopicPrefix+filter)
		sub.Token = q.Client.Subscribe(q.TopicPrefix+filter, q.QoS, q.dispatch)
	}
	return sub
}

// Pub publishes to a topic.
func (q *Queue) Pub(topic string, payload []byte) paho.Token {
	return q.PubWith(topic, payload, q.QoS, false)
}

// PubWith publishes with QoS and retain settings.
func (q *Queue) PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token {
	return q.Client.Publish(q.TopicPrefix+topic, qos, retain, payload)
}

// Resubscribe subscribes all registered filters.
func (q *Queue) Resubscribe() paho.Token {
	q.lock.RLock()
	filters := make(map[string]byte, len(q.routes))
	for filter := range q.routes {
		filters[q.TopicPrefix+filter] = q.QoS
	}
	q.lock.RUnlock()
	if len(filters) == 0 {
		return &paho.DummyToken{}
	}
	glog.V(2).Infof("SUB %d filters", len(filters))
	return q.Client.SubscribeMultiple(filters, q.dispatch)
}

func (q *Queue) connected(paho.Client) {
	glog.Info("connected")
	q.Resubscribe()
	if h := q.OnConnect; h != nil {
		h(q)
	}
}

func (q *Queue) connectionLost(_ paho.Client, err error) {
	glog.Warningf("connection lost: %v", err)
	if h := q.OnDisconnect; h != nil {
		h(q)
	}
}

func (q *Queue) handlers(topic string) (handlers []Handler) {
	q.lock.RLock()
	defer q.lock.RUnlock()
	for _, r := range q.routes {
		if r.filter == topic || (r.wildcard && MatchTopic(topic, r.filter)) {
			for _, sub := range r.subs {
				handlers = append(handlers, sub.handler)
			}
		}
	}
	return
}

func (q *Queue) dispatch(_ paho.Client, msg paho.Message) {
	topic := msg.Topic()
	if !strings.HasPrefix(topic, q.TopicPrefix) {
		return
	}
	topic = topic[len(q.TopicPrefix):]
	glog.V(2).Infof("RCV %q", topic)
	payload := msg.Payload()
	for _, h := range q.handlers(topic) {
		h(topic, payload)
	}
}

// Close removes the handler. The filter is unsubscribed from the
// broker when its last handler is removed.
func (s *Subscription) Close() error {
	q, r := s.queue, s.route
	q.lock.Lock()
	for i, sub := range r.subs {
		if sub == s {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			break
		}
	}
	last := len(r.subs) == 0 && q.routes[r.filter] == r
	if last {
		delete(q.routes, r.filter)
	}
	q.lock.Unlock()
	if !last {
		return nil
	}
	glog.V(2).Infof("UNSUB %q", r.filter)
	token := q.Client.Unsubscribe(q.TopicPrefix + r.filter)
	token.Wait()
	return token.Error()
}
