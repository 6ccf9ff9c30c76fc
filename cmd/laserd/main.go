package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	fx "github.com/robotalks/laserlink/pkg/framework"
	"github.com/robotalks/laserlink/pkg/l1"
	env "github.com/robotalks/laserlink/pkg/l1/env/controller"
	"github.com/robotalks/laserlink/pkg/node"
)

func init() {
	env.SetControllerType("laserlink", l1.ControllerMeta{Description: "Laser Link Transceiver"})
	env.SetupFlags()
	node.SetupFlags()
}

func main() {
	flag.Parse()

	conf := node.NewConfig()
	env.Default().Info.Meta.Labels = map[string]string{"driver": conf.Driver}
	env := env.NewConfig().MustNewEnv()
	ctl := conf.MustNewController(env.Registrar)
	fx.NewLoop().Add(env, ctl).RunOrFail()
}
