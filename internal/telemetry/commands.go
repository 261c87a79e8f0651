package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/depthcam-core/internal/source"
)

// Command names accepted on depthcam/device/{id}/command/{cmd}.
const (
	CommandTextures = "textures"
	CommandOpen     = "open"
	CommandClose    = "close"
	CommandInit     = "init"
)

type texturesCommand struct {
	Enabled *bool `json:"enabled"`
}

type openCommand struct {
	Sources []string `json:"sources"`
}

type initCommand struct {
	Kind string `json:"kind"`
}

// ListenCommands subscribes to the device command topics and routes them
// to ctrl.
func (r *Reporter) ListenCommands(ctrl Controller) error {
	r.ctrlMu.Lock()
	r.ctrl = ctrl
	r.ctrlMu.Unlock()

	if r.mqtt == nil {
		return nil
	}
	if err := r.mqtt.Subscribe(r.topics.AllDeviceCommands(), r.opts.QoS, r.handleCommand); err != nil {
		return fmt.Errorf("subscribing to device commands: %w", err)
	}
	r.logger.Info("listening for device commands", "topic", r.topics.AllDeviceCommands())
	return nil
}

// StopCommands unsubscribes from the command topics.
func (r *Reporter) StopCommands() error {
	if r.mqtt == nil {
		return nil
	}
	return r.mqtt.Unsubscribe(r.topics.AllDeviceCommands())
}

func (r *Reporter) controller() Controller {
	r.ctrlMu.RLock()
	defer r.ctrlMu.RUnlock()
	return r.ctrl
}

// handleCommand runs on a paho goroutine. Returned errors are logged by
// the MQTT client.
func (r *Reporter) handleCommand(topic string, payload []byte) error {
	cmd, ok := r.topics.CommandFromTopic(topic)
	if !ok {
		return fmt.Errorf("%w: topic %s", ErrUnknownCommand, topic)
	}
	ctrl := r.controller()
	if ctrl == nil {
		return ErrNoController
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	r.logger.Debug("device command received", "command", cmd)

	switch cmd {
	case CommandTextures:
		var c texturesCommand
		if err := decode(payload, &c); err != nil {
			return err
		}
		if c.Enabled == nil {
			return fmt.Errorf("%w: enabled is required", ErrInvalidPayload)
		}
		return ctrl.SetUseTextures(ctx, *c.Enabled)

	case CommandOpen:
		var c openCommand
		if len(payload) > 0 {
			if err := decode(payload, &c); err != nil {
				return err
			}
		}
		kinds := make([]source.Kind, 0, len(c.Sources))
		for _, name := range c.Sources {
			k, err := source.ParseKind(name)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
			}
			kinds = append(kinds, k)
		}
		return ctrl.Open(ctx, kinds...)

	case CommandClose:
		return ctrl.Close(ctx)

	case CommandInit:
		var c initCommand
		if err := decode(payload, &c); err != nil {
			return err
		}
		k, err := source.ParseKind(c.Kind)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		return ctrl.InitSource(ctx, k)

	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

func decode(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}
