package controller

import (
	"flag"
	"fmt"
	"log"
	"os"

	fx "github.com/robotalks/laserlink/pkg/framework"
	"github.com/robotalks/laserlink/pkg/l1"
	"github.com/robotalks/laserlink/pkg/l1/comm"
	"github.com/robotalks/laserlink/pkg/l1/comm/mqtt"
	"github.com/robotalks/laserlink/pkg/l1/comm/serial"
	"github.com/robotalks/laserlink/pkg/l1/comm/websocket"
	"github.com/robotalks/laserlink/pkg/l1/env"
)

// Config provides common options to setup an env for L1 controllers.
type Config struct {
	Info l1.ControllerInfo

	// MQTTBrokerURL specifies the MQTT broker to use.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// SerialURL serves a serial line.
	// e.g. serial:///dev/ttyUSB0?baud=115200
	SerialURL string
	// WebsocketListen serves websocket clients on the address.
	// e.g. :8080
	WebsocketListen string
}

var defaultConfig = Config{
	MQTTBrokerURL: "mqtt://localhost:1883/laserlink/",
}

func init() {
	if val, ok := os.LookupEnv("LASERLINK_MQTT_URL"); ok {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("LASERLINK_SERIAL"); val != "" {
		defaultConfig.SerialURL = val
	}
	if val := os.Getenv("LASERLINK_WS_LISTEN"); val != "" {
		defaultConfig.WebsocketListen = val
	}
	if val := os.Getenv("LASERLINK_ID"); val != "" {
		defaultConfig.Info.Ref.ID = val
	} else if id, err := env.MachineID(); err == nil {
		defaultConfig.Info.Ref.ID = id
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Info.Ref.Type, "type", defaultConfig.Info.Ref.Type, "Controller type")
	flag.StringVar(&defaultConfig.Info.Ref.ID, "id", defaultConfig.Info.Ref.ID, "Controller ID")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable")
	flag.StringVar(&defaultConfig.SerialURL, "serial", defaultConfig.SerialURL, "Serve on serial port URL")
	flag.StringVar(&defaultConfig.WebsocketListen, "ws-listen", defaultConfig.WebsocketListen, "Serve websocket clients on address")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// SetControllerType should be called in init with basic info about the controller.
func SetControllerType(typ string, meta l1.ControllerMeta) {
	defaultConfig.Info.Ref.Type = typ
	defaultConfig.Info.Meta = meta
}

// Env is the env for L1 controllers.
type Env struct {
	Config       *Config
	RegistryURLs []string
	Registrar    *comm.RegistrarMux
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	if !c.Info.Ref.IsValid() {
		return nil, fmt.Errorf("controller type and id must be specified")
	}
	env := &Env{
		Config:    c,
		Registrar: &comm.RegistrarMux{},
	}
	if c.MQTTBrokerURL != "" {
		reg, err := mqtt.NewRegistrar(c.MQTTBrokerURL, c.Info)
		if err != nil {
			return nil, fmt.Errorf("create MQTT registrar error: %w", err)
		}
		env.Registrar.Add(reg)
		env.RegistryURLs = append(env.RegistryURLs, c.MQTTBrokerURL)
	}
	if c.SerialURL != "" {
		reg, err := serial.NewRegistrar(c.SerialURL)
		if err != nil {
			return nil, fmt.Errorf("create serial registrar error: %w", err)
		}
		env.Registrar.Add(reg)
		env.RegistryURLs = append(env.RegistryURLs, c.SerialURL)
	}
	if c.WebsocketListen != "" {
		env.Registrar.Add(websocket.NewRegistrar(c.WebsocketListen, c.Info))
		env.RegistryURLs = append(env.RegistryURLs, "ws://"+c.WebsocketListen)
	}
	if len(env.Registrar.Registrars) == 0 {
		return nil, fmt.Errorf("at least one registrar is required")
	}
	return env, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

// AddToLoop adds controllers/runners to loop.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.Add(e.Registrar)
	loop.Add(&comm.UnsupportedCommands{})
}
