package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every depthcam topic.
const TopicPrefix = "depthcam"

// Topics builds the topics for one device. The zero value builds topics for
// an empty device ID and is only useful for SystemStatus and AllTopics.
//
//	topics := mqtt.Topics{DeviceID: "depthcam-01"}
//	topics.DeviceStatus() // "depthcam/device/depthcam-01/status"
type Topics struct {
	DeviceID string
}

// SystemStatus returns the service status topic carrying online/offline and
// the LWT.
//
// Example: depthcam/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

func (t Topics) device() string {
	return fmt.Sprintf("%s/device/%s", TopicPrefix, t.DeviceID)
}

// DeviceStatus returns the retained device snapshot topic.
//
// Example: depthcam/device/depthcam-01/status
func (t Topics) DeviceStatus() string {
	return t.device() + "/status"
}

// DeviceFrames returns the frame statistics topic.
//
// Example: depthcam/device/depthcam-01/frames
func (t Topics) DeviceFrames() string {
	return t.device() + "/frames"
}

// DeviceEvent returns the topic for a device lifecycle event.
//
// Example: depthcam/device/depthcam-01/event/source_init
func (t Topics) DeviceEvent(eventType string) string {
	return t.device() + "/event/" + eventType
}

// DeviceCommand returns the inbound topic for a named command.
//
// Example: depthcam/device/depthcam-01/command/textures
func (t Topics) DeviceCommand(command string) string {
	return t.device() + "/command/" + command
}

// AllDeviceCommands returns a pattern matching every command for the device.
//
// Pattern: depthcam/device/depthcam-01/command/+
func (t Topics) AllDeviceCommands() string {
	return t.DeviceCommand("+")
}

// AllDeviceStatus returns a pattern matching the status of every device.
//
// Pattern: depthcam/device/+/status
func (Topics) AllDeviceStatus() string {
	return TopicPrefix + "/device/+/status"
}

// AllTopics returns a pattern matching all depthcam traffic.
//
// Pattern: depthcam/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// CommandFromTopic extracts the command name from a topic built by
// DeviceCommand for this device.
func (t Topics) CommandFromTopic(topic string) (string, bool) {
	prefix := t.DeviceCommand("")
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	cmd := topic[len(prefix):]
	if cmd == "" || strings.Contains(cmd, "/") {
		return "", false
	}
	return cmd, true
}
