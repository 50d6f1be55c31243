package notify

import (
	"github.com/go-ble/ble"

	"github.com/itohio/aquaprobe/pkg/probe"
)

// Environmental Sensing service and the characteristics the probe exposes.
var (
	ServiceUUID     = ble.UUID16(0x181A)
	TemperatureUUID = ble.UUID16(0x2A6E)
	PHUUID          = ble.UUID16(0x2A6D)
	LevelUUID       = ble.UUID16(0x2A56)
	ColorUUID       = ble.UUID16(0x2A70)
)

// Characteristic is one readable and notifiable GATT value.
type Characteristic struct {
	UUID    ble.UUID
	Payload func(r probe.Reading) []byte
}

// Characteristics lists the probe characteristics with their text payloads.
var Characteristics = []Characteristic{
	{TemperatureUUID, func(r probe.Reading) []byte { return fieldPayload(r, probe.FieldTemperature) }},
	{PHUUID, func(r probe.Reading) []byte { return fieldPayload(r, probe.FieldPH) }},
	{LevelUUID, func(r probe.Reading) []byte { return fieldPayload(r, probe.FieldLevel) }},
	{ColorUUID, func(r probe.Reading) []byte { return []byte(r.Color()) }},
}

func fieldPayload(r probe.Reading, name string) []byte {
	for _, f := range r.Fields() {
		if f.Name == name {
			return []byte(f.Value)
		}
	}
	return nil
}

// NewService builds the GATT service. Reads serve the latest reading; each
// subscriber is pushed every new reading through its notify channel.
func NewService(latest *Latest, subs *Subscribers) *ble.Service {
	svc := ble.NewService(ServiceUUID)
	for _, ch := range Characteristics {
		c := svc.NewCharacteristic(ch.UUID)
		c.HandleRead(ble.ReadHandlerFunc(func(req ble.Request, rsp ble.ResponseWriter) {
			r, _, ok := latest.Get()
			if !ok {
				return
			}
			rsp.Write(ch.Payload(r))
		}))
		c.HandleNotify(ble.NotifyHandlerFunc(func(req ble.Request, n ble.Notifier) {
			readings, cancel := subs.Subscribe()
			defer cancel()
			for {
				select {
				case <-n.Context().Done():
					return
				case r, ok := <-readings:
					if !ok {
						return
					}
					if _, err := n.Write(ch.Payload(r)); err != nil {
						return
					}
				}
			}
		}))
	}
	return svc
}
