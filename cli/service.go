package cli

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aliher1911/resinctl/axis"
	"github.com/aliher1911/resinctl/config"
	"github.com/aliher1911/resinctl/controller"
	i2cdev "github.com/aliher1911/resinctl/i2c"
	"github.com/aliher1911/resinctl/input"
	"github.com/aliher1911/resinctl/ui"

	"github.com/stianeikeland/go-rpio/v4"
)

const statusInterval = 5 * time.Second

func openMachine(cfg config.Machine, sim bool) (*Machine, error) {
	if sim {
		return OpenSim(cfg)
	}
	return Open(cfg)
}

func (m *Machine) start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		m.Controller.Run(ctx)
	}()
}

// Service runs control loop with front panel until signal is received.
func Service(cfg config.Machine, sim bool, sigs <-chan os.Signal) error {
	m, err := openMachine(cfg, sim)
	if err != nil {
		return err
	}
	defer m.Close()

	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.start(ctx, &wg)

	if cfg.Panel.Enabled && !sim {
		if err := startPanel(ctx, &wg, cfg.Panel, m); err != nil {
			lg.Errorf("front panel disabled: %s", err)
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logStatus(ctx, m.Controller)
	}()

	s := <-sigs
	lg.Infof("received %s, stopping", s)
	return nil
}

func startPanel(ctx context.Context, wg *sync.WaitGroup, cfg config.Panel, m *Machine) error {
	bus := i2cdev.NewBus(cfg.Rotary.Bus)
	r, err := input.NewRotary(bus, cfg.Rotary)
	if err != nil {
		bus.Close()
		return fmt.Errorf("failed to init rotary: %w", err)
	}
	m.onClose(bus.Close)
	m.onClose(r.Close)

	l, ledC := input.NewLED(r)
	m.Controller.SetIndicator(input.NewIndicator(ledC))

	intPin := i2cdev.NewIntPin(cfg.IntPin, rpio.FallEdge)
	intC := make(chan time.Time, 1)
	panel := ui.NewPanel(r, intC, ledC, &DocAdapter{ctrl: m.Controller})

	wg.Add(3)
	go func() {
		defer wg.Done()
		l.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		i2cdev.Watch(ctx, intPin, 20*time.Millisecond, intC)
	}()
	go func() {
		defer wg.Done()
		panel.Run(ctx)
	}()
	return nil
}

func logStatus(ctx context.Context, c *controller.Controller) {
	t := time.NewTicker(statusInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := c.Status()
			lg.Debugf("platform %s pos=%d target=%d, tilt %s",
				s.Platform.State, s.Platform.Position, s.Platform.Target, s.Tilt.State)
		}
	}
}

// DocAdapter lets front panel edit platform target.
type DocAdapter struct {
	ctrl *controller.Controller
}

func (a *DocAdapter) SetTarget(target uint16) {
	a.ctrl.MoveTo(target)
}

func (a *DocAdapter) ToggleHome() {
	a.ctrl.Home()
}

func (a *DocAdapter) GetState() ui.State {
	s := a.ctrl.Status()
	return ui.State{
		Target: s.Platform.Target,
		Jog:    uint16(s.Layer),
		Max:    a.ctrl.MaxPosition(),
	}
}

// runCommand issues a single motion command and waits until it completes.
func runCommand(cfg config.Machine, sim bool, sigs <-chan os.Signal, cmd func(c *controller.Controller), done func(c *controller.Controller) bool) error {
	m, err := openMachine(cfg, sim)
	if err != nil {
		return err
	}
	defer m.Close()

	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.start(ctx, &wg)
	cmd(m.Controller)

	t := time.NewTicker(10 * cfg.PollInterval)
	defer t.Stop()
	for {
		select {
		case s := <-sigs:
			return fmt.Errorf("interrupted by %s", s)
		case <-t.C:
			if done(m.Controller) {
				s := m.Controller.Status()
				lg.Infof("done: platform at %d, target %d", s.Platform.Position, s.Platform.Target)
				return nil
			}
		}
	}
}

func idle(c *controller.Controller) bool {
	s := c.Status()
	return s.Platform.State == axis.Idle && s.Tilt.State == axis.Idle
}

// Home runs homing sweep.
func Home(cfg config.Machine, sim bool, sigs <-chan os.Signal) error {
	return runCommand(cfg, sim, sigs, (*controller.Controller).Home, idle)
}

// Move drives platform to absolute position.
func Move(cfg config.Machine, sim bool, target uint16, sigs <-chan os.Signal) error {
	return runCommand(cfg, sim, sigs,
		func(c *controller.Controller) {
			c.MoveTo(target)
		},
		func(c *controller.Controller) bool {
			return c.IsReady() || idle(c) && c.Status().Platform.Position == target
		})
}

// Tilt performs a single tilt. Backward leg is stopped after it took as
// long as forward leg.
func Tilt(cfg config.Machine, sim bool, sigs <-chan os.Signal) error {
	var started, reversed time.Time
	return runCommand(cfg, sim, sigs,
		func(c *controller.Controller) {
			started = time.Now()
			c.Tilt()
		},
		func(c *controller.Controller) bool {
			switch c.Status().Tilt.State {
			case axis.SweepForward:
				return false
			case axis.SweepBackward:
				if reversed.IsZero() {
					reversed = time.Now()
				}
				if time.Since(reversed) >= reversed.Sub(started) {
					c.StopTilt()
				}
				return false
			}
			return true
		})
}
