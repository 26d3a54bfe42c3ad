package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hearthware/stovetop/pkg/metrics"
	"github.com/hearthware/stovetop/pkg/types"
)

// TimerStarted mirrors a start to the remote authority.
func (c *Client) TimerStarted(t *types.Timer) {
	go c.sendCommand(c.command(types.CommandStart, t))
}

// TimerPaused mirrors a pause to the remote authority.
func (c *Client) TimerPaused(t *types.Timer) {
	go c.sendCommand(c.command(types.CommandPause, t))
}

// TimerDeleted mirrors an alarm dismissal to the remote authority.
func (c *Client) TimerDeleted(id string) {
	go c.sendCommand(types.TimerCommand{
		Action:     types.CommandDelete,
		UserID:     c.cfg.UserID,
		TimerID:    id,
		CreationID: c.cfg.CreationID,
	})
}

func (c *Client) command(action types.CommandAction, t *types.Timer) types.TimerCommand {
	return types.TimerCommand{
		Action:     action,
		UserID:     c.cfg.UserID,
		TimerID:    t.ID,
		CreationID: c.cfg.CreationID,
		Duration:   t.Duration,
		Label:      t.Label,
		Remaining:  t.Remaining,
		Status:     t.Status,
		StepIndex:  t.StepIndex,
	}
}

// sendCommand posts one point-to-point command. Fire-and-forget:
// failure is logged and counted, never surfaced.
func (c *Client) sendCommand(cmd types.TimerCommand) {
	body, err := json.Marshal(cmd)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to encode command")
		return
	}

	resp, err := c.httpc.Post(c.cfg.BaseURL+"/v1/timers/command", "application/json", bytes.NewReader(body))
	if err != nil {
		metrics.CommandsTotal.WithLabelValues(string(cmd.Action), "error").Inc()
		c.logger.Warn().Err(err).
			Str("action", string(cmd.Action)).
			Str("timer_id", cmd.TimerID).
			Msg("command failed, local operation unaffected")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		metrics.CommandsTotal.WithLabelValues(string(cmd.Action), "error").Inc()
		c.logger.Warn().Err(fmt.Errorf("status %d", resp.StatusCode)).
			Str("action", string(cmd.Action)).
			Str("timer_id", cmd.TimerID).
			Msg("command rejected, local operation unaffected")
		return
	}
	metrics.CommandsTotal.WithLabelValues(string(cmd.Action), "ok").Inc()
}
