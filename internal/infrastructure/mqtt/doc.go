// Package mqtt provides MQTT client connectivity for depthcam.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing of retained device status and per-tick frame state
//   - Command subscriptions that survive reconnects
//   - Last Will and Testament (LWT) for offline detection
//
// # Topic Layout
//
//	depthcam/system/status                    service online/offline (retained, LWT)
//	depthcam/device/{id}/status               device snapshot (retained)
//	depthcam/device/{id}/frames               frame-new state per tick window
//	depthcam/device/{id}/event/{type}         open/close/source lifecycle events
//	depthcam/device/{id}/command/{command}    inbound control (textures, open, close)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{DeviceID: cfg.Device.ID}
//	err = client.Subscribe(topics.AllDeviceCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        cmd, _ := topics.CommandFromTopic(topic)
//	        return handle(cmd, payload)
//	    })
package mqtt
