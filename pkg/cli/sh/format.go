package sh

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	fx "github.com/robotalks/laserlink/pkg/framework"
	"github.com/robotalks/laserlink/pkg/l1"
	"github.com/robotalks/laserlink/pkg/l1/msgs"
)

// FormatInfo prints ControllerInfo into friendly string for display.
func FormatInfo(info l1.ControllerInfo) string {
	var w bytes.Buffer
	w.WriteString(info.Ref.Name())
	if info.Meta.Description != "" {
		fmt.Fprintf(&w, ": %s", info.Meta.Description)
	}
	for key, val := range info.Meta.Labels {
		fmt.Fprintf(&w, " %s=%s", key, val)
	}
	return w.String()
}

// MessageName is the type name of msg without package.
func MessageName(msg fx.Message) string {
	return reflect.Indirect(reflect.ValueOf(msg)).Type().Name()
}

// FormatMessage renders a reply or event as text or JSON.
func FormatMessage(msg fx.Message, asJSON bool) (string, error) {
	s, ok := msg.(msgs.SerializableMessage)
	if !ok {
		return "", msgs.ErrNotSerializable
	}
	if asJSON {
		out, err := json.Marshal(s.Serializable())
		return string(out), err
	}
	if _, ok := msg.(*msgs.CommandOK); ok {
		return "OK", nil
	}
	return MessageName(msg) + " " + s.Serializable().String(), nil
}
