package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/your-org/fdalert/internal/models"
)

// Player plays the notification sound once.
type Player interface {
	Play(ctx context.Context) error
}

// CommandPlayer plays a sound file through an external command such as
// aplay or afplay.
type CommandPlayer struct {
	Command   string
	SoundFile string
}

func (p *CommandPlayer) Play(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, p.Command, p.SoundFile)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("run %s: %w (%s)", p.Command, err, out)
	}
	return nil
}

// Audio triggers local playback asynchronously. Playback errors are logged,
// never reported as a channel failure. Overlapping alerts share one playback.
type Audio struct {
	player  Player
	timeout time.Duration

	mu sync.Mutex
	wg sync.WaitGroup
}

func NewAudio(player Player, timeout time.Duration) *Audio {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Audio{player: player, timeout: timeout}
}

func (a *Audio) Name() string { return ChannelAudio }

func (a *Audio) Enabled(cfg *models.Configuration) bool {
	return cfg.AudioAlertsEnabled
}

func (a *Audio) Dispatch(_ context.Context, alert *models.AlertNotification, _ *models.Configuration) Outcome {
	if a.player == nil {
		return skipped(ChannelAudio)
	}
	if !a.mu.TryLock() {
		return ok(ChannelAudio)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.player.Play(ctx); err != nil {
			slog.Warn("play notification sound", "alert_id", alert.ID, "error", err)
		}
	}()
	return ok(ChannelAudio)
}

// Wait blocks until the current playback, if any, has finished.
func (a *Audio) Wait() {
	a.wg.Wait()
}
