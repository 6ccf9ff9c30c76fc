package controller

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/laserlink/pkg/l1"
	"github.com/robotalks/laserlink/pkg/l1/comm/serial"
	"github.com/robotalks/laserlink/pkg/l1/comm/websocket"
)

func TestNewEnv(t *testing.T) {
	ref := l1.ControllerRef{Type: "laserlink", ID: "bench"}
	testCases := []struct {
		name   string
		conf   Config
		urls   []string
		errMsg string
	}{
		{
			name:   "invalid ref",
			conf:   Config{WebsocketListen: ":8080"},
			errMsg: "controller type and id must be specified",
		},
		{
			name:   "no registrar",
			conf:   Config{Info: l1.ControllerInfo{Ref: ref}},
			errMsg: "at least one registrar is required",
		},
		{
			name: "serial and websocket",
			conf: Config{
				Info:            l1.ControllerInfo{Ref: ref},
				SerialURL:       "serial:///dev/ttyUSB0",
				WebsocketListen: "127.0.0.1:8080",
			},
			urls: []string{"serial:///dev/ttyUSB0", "ws://127.0.0.1:8080"},
		},
		{
			name: "bad serial URL",
			conf: Config{
				Info:      l1.ControllerInfo{Ref: ref},
				SerialURL: "serial:///dev/ttyUSB0?parity=mark",
			},
			errMsg: "create serial registrar error",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := tc.conf.NewEnv()
			if tc.errMsg != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errMsg)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.urls, e.RegistryURLs)
			require.Len(t, e.Registrar.Registrars, 2)
			require.IsType(t, &serial.Registrar{}, e.Registrar.Registrars[0])
			require.IsType(t, &websocket.Registrar{}, e.Registrar.Registrars[1])
		})
	}
}

func TestSetControllerType(t *testing.T) {
	saved := defaultConfig
	defer func() { defaultConfig = saved }()
	SetControllerType("laserlink", l1.ControllerMeta{Description: "laser link node"})
	conf := NewConfig()
	require.Equal(t, "laserlink", conf.Info.Ref.Type)
	require.Equal(t, "laser link node", conf.Info.Meta.Description)
}
