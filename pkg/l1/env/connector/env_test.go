package connector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/laserlink/pkg/l1/comm/mqtt"
	"github.com/robotalks/laserlink/pkg/l1/comm/serial"
	"github.com/robotalks/laserlink/pkg/l1/comm/websocket"
)

func TestNewConnector(t *testing.T) {
	testCases := []struct {
		name string
		url  string
		want interface{}
	}{
		{name: "mqtt", url: "mqtt://localhost:1883/laserlink/", want: &mqtt.Connector{}},
		{name: "websocket", url: "ws://localhost:8080", want: &websocket.Connector{}},
		{name: "serial", url: "serial:///dev/ttyACM0?baud=9600", want: &serial.Connector{}},
		{name: "unknown", url: "http://localhost"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conf := NewConfig()
			conf.RegistryURL = tc.url
			c, err := conf.NewConnector()
			if tc.want == nil {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.IsType(t, tc.want, c)
		})
	}
}

func TestConnectRequiresRef(t *testing.T) {
	conf := NewConfig()
	conf.RegistryURL = "mqtt://localhost:1883/laserlink/"
	conf.Ref.ID = ""
	_, err := conf.Connect()
	require.Error(t, err)
}

func TestPointToPoint(t *testing.T) {
	testCases := []struct {
		url string
		p2p bool
	}{
		{"mqtt://localhost:1883/laserlink/", false},
		{"ws://localhost:8080", true},
		{"wss://node:8443", true},
		{"serial:///dev/ttyUSB0", true},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			conf := &Config{RegistryURL: tc.url}
			require.Equal(t, tc.p2p, conf.PointToPoint())
		})
	}
}
