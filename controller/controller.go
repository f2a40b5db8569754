// Package controller ties both axes together with persisted parameters and
// the state seen by the print sequencer.
package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aliher1911/resinctl/axis"
	"github.com/aliher1911/resinctl/platform"
	"github.com/aliher1911/resinctl/settings"
	"github.com/aliher1911/resinctl/tilt"
	"github.com/aliher1911/resinctl/ui"

	logger "github.com/d2r2/go-logger"
)

var lg = logger.NewPackageLogger("controller", logger.InfoLevel)

// Limits is an inclusive range with a value used when nothing was saved.
type Limits struct {
	Min     uint8 `toml:"min"`
	Max     uint8 `toml:"max"`
	Default uint8 `toml:"default"`
}

type Config struct {
	PollInterval  time.Duration
	TiltAngle     Limits
	TiltSpeed     Limits
	PlatformSpeed Limits
	Layer         Limits
	BaseLayer     Limits
}

// MaxStandardLayers is the upper bound of layer heights in position units.
const MaxStandardLayers = 100

func Defaults() Config {
	return Config{
		PollInterval:  10 * time.Millisecond,
		TiltAngle:     Limits{Min: 9, Max: 18, Default: 14},
		TiltSpeed:     Limits{Min: 1, Max: 10, Default: 5},
		PlatformSpeed: Limits{Min: 1, Max: 4, Default: 2},
		Layer:         Limits{Min: 1, Max: MaxStandardLayers, Default: 36},
		BaseLayer:     Limits{Min: 1, Max: MaxStandardLayers, Default: 10},
	}
}

// Indicator shows motion state to the operator.
type Indicator interface {
	Show(platform, tilt axis.State)
}

type param struct {
	key    settings.Key
	slot   ui.Slot
	limits Limits
	v      uint8
}

type Controller struct {
	Config
	platform *platform.Platform
	tilt     *tilt.Tilt
	store    settings.Store
	display  ui.Display

	mu            sync.Mutex
	tiltAngle     param
	tiltSpeed     param
	platformSpeed param
	layer         param
	baseLayer     param
	indicator     Indicator

	operating    bool
	ready        bool
	printerState uint8
	slice        uint16
	slices       uint16
}

// New loads parameters from store, clamps them and shows them on display.
func New(p *platform.Platform, t *tilt.Tilt, store settings.Store, display ui.Display, cfg Config) *Controller {
	if display == nil {
		display = ui.NopDisplay{}
	}
	c := &Controller{
		Config:        cfg,
		platform:      p,
		tilt:          t,
		store:         store,
		display:       display,
		tiltAngle:     param{key: settings.TiltAngle, slot: ui.SlotTiltAngle, limits: cfg.TiltAngle},
		tiltSpeed:     param{key: settings.TiltSpeed, slot: ui.SlotTiltSpeed, limits: cfg.TiltSpeed},
		platformSpeed: param{key: settings.PlatformSpeed, slot: ui.SlotPlatformSpeed, limits: cfg.PlatformSpeed},
		layer:         param{key: settings.Layer, slot: ui.SlotLayer, limits: cfg.Layer},
		baseLayer:     param{key: settings.BaseLayer, slot: ui.SlotBaseLayer, limits: cfg.BaseLayer},
		slice:         1,
		slices:        1,
	}
	for _, pr := range c.params() {
		c.load(pr)
	}
	display.SetValue(ui.SlotPlatformTarget, p.Target())
	return c
}

func (c *Controller) params() []*param {
	return []*param{&c.tiltAngle, &c.tiltSpeed, &c.platformSpeed, &c.layer, &c.baseLayer}
}

func (c *Controller) load(p *param) {
	v, err := c.store.Load(p.key)
	switch {
	case errors.Is(err, settings.ErrNotFound):
		v = p.limits.Default
	case err != nil:
		lg.Errorf("failed to load %s, using default: %s", p.key, err)
		v = p.limits.Default
	}
	p.v = axis.Clamp(v, p.limits.Min, p.limits.Max)
	c.display.SetValue(p.slot, uint16(p.v))
	lg.Debugf("loaded %s=%d", p.key, p.v)
}

// update must be called with lock held.
func (c *Controller) update(p *param, v uint8) {
	p.v = axis.Clamp(v, p.limits.Min, p.limits.Max)
	c.display.SetValue(p.slot, uint16(p.v))
	if err := c.store.Save(p.key, p.v); err != nil {
		lg.Errorf("failed to save %s=%d: %s", p.key, p.v, err)
	}
}

func (c *Controller) set(p *param, v uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.update(p, v)
}

func (c *Controller) adjust(p *param, a axis.Adjust) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.update(p, axis.Step(p.v, a, p.limits.Min, p.limits.Max))
}

func (c *Controller) get(p *param) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return p.v
}

func (c *Controller) SetTiltAngle(v uint8)          { c.set(&c.tiltAngle, v) }
func (c *Controller) AdjustTiltAngle(a axis.Adjust) { c.adjust(&c.tiltAngle, a) }
func (c *Controller) TiltAngle() uint8              { return c.get(&c.tiltAngle) }

func (c *Controller) SetTiltSpeed(v uint8)          { c.set(&c.tiltSpeed, v) }
func (c *Controller) AdjustTiltSpeed(a axis.Adjust) { c.adjust(&c.tiltSpeed, a) }
func (c *Controller) TiltSpeed() uint8              { return c.get(&c.tiltSpeed) }

func (c *Controller) SetPlatformSpeed(v uint8)          { c.set(&c.platformSpeed, v) }
func (c *Controller) AdjustPlatformSpeed(a axis.Adjust) { c.adjust(&c.platformSpeed, a) }
func (c *Controller) PlatformSpeed() uint8              { return c.get(&c.platformSpeed) }

func (c *Controller) SetLayer(v uint8)          { c.set(&c.layer, v) }
func (c *Controller) AdjustLayer(a axis.Adjust) { c.adjust(&c.layer, a) }
func (c *Controller) Layer() uint8              { return c.get(&c.layer) }

func (c *Controller) SetBaseLayer(v uint8)          { c.set(&c.baseLayer, v) }
func (c *Controller) AdjustBaseLayer(a axis.Adjust) { c.adjust(&c.baseLayer, a) }
func (c *Controller) BaseLayer() uint8              { return c.get(&c.baseLayer) }

// SetIndicator replaces motion indicator, nil disables it.
func (c *Controller) SetIndicator(i Indicator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indicator = i
}

func (c *Controller) markOperating() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.operating = true
}

// Poll is a single control loop iteration. It could block for driver
// settle delay when a move starts.
func (c *Controller) Poll() {
	c.platform.Compare(c.PlatformSpeed())
	c.tilt.Compare(c.TiltSpeed())

	c.mu.Lock()
	ind := c.indicator
	c.mu.Unlock()
	if ind != nil {
		ind.Show(c.platform.State(), c.tilt.State())
	}
}

// Run is a control work loop and should be started in a separate
// goroutine. Both drivers are disabled when loop terminates.
func (c *Controller) Run(ctx context.Context) error {
	t := time.NewTicker(c.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			c.DisableSteppers()
			return ctx.Err()
		case <-t.C:
			c.Poll()
		}
	}
}

// Tilt starts a vat tilt with current angle and speed.
func (c *Controller) Tilt() {
	c.mu.Lock()
	angle, speed := c.tiltAngle.v, c.tiltSpeed.v
	c.operating = true
	c.mu.Unlock()
	c.tilt.Tilt(angle, speed)
}

// StopTilt ends the backward leg of a tilt.
func (c *Controller) StopTilt() {
	c.tilt.Disable()
}

// Home toggles platform homing.
func (c *Controller) Home() {
	if c.platform.Home() {
		c.markOperating()
	}
}

// Top toggles platform move to the top of travel.
func (c *Controller) Top() {
	c.platform.Top()
	c.markOperating()
}

// Stop stops platform in place.
func (c *Controller) Stop() {
	c.platform.Stop()
}

// LayerUp raises platform target by one layer.
func (c *Controller) LayerUp() {
	c.platform.Raise(uint16(c.Layer()))
	c.markOperating()
}

// BaseLayerUp raises platform target by one base layer.
func (c *Controller) BaseLayerUp() {
	c.platform.Raise(uint16(c.BaseLayer()))
	c.markOperating()
}

// AdjustPosition moves platform target one layer up or down.
func (c *Controller) AdjustPosition(a axis.Adjust) {
	switch a {
	case axis.Increase:
		c.platform.Raise(uint16(c.Layer()))
	case axis.Decrease:
		c.platform.Lower(uint16(c.Layer()))
	default:
		return
	}
	c.markOperating()
}

// SetTarget moves platform target by signed delta.
func (c *Controller) SetTarget(delta int16) {
	c.platform.SetTarget(delta)
	c.markOperating()
}

// MoveTo sets absolute platform target.
func (c *Controller) MoveTo(target uint16) {
	c.platform.SetAbsoluteTarget(target)
	c.markOperating()
}

// MaxPosition is the top of platform travel.
func (c *Controller) MaxPosition() uint16 {
	return c.platform.MaxPosition()
}

// IsReady returns true once after both axes became idle following motion.
func (c *Controller) IsReady() bool {
	idle := !c.platform.State().Moving() && !c.tilt.State().Moving()
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !idle:
		c.operating = true
		c.ready = false
	case c.operating:
		c.operating = false
		c.ready = true
	default:
		c.ready = false
	}
	return c.ready
}

func (c *Controller) PrinterState() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.printerState
}

func (c *Controller) SetPrinterState(s uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.printerState = s
}

func (c *Controller) Slice() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slice
}

func (c *Controller) SetSlice(v uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slice = v
}

func (c *Controller) Slices() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slices
}

func (c *Controller) SetSlices(v uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slices = v
}

// DisableSteppers cuts power to both drivers.
func (c *Controller) DisableSteppers() {
	c.tilt.Disable()
	c.platform.Disable()
}

type Status struct {
	Platform      platform.Status
	Tilt          tilt.Status
	TiltAngle     uint8
	TiltSpeed     uint8
	PlatformSpeed uint8
	Layer         uint8
	BaseLayer     uint8
	Slice         uint16
	Slices        uint16
}

func (c *Controller) Status() Status {
	s := Status{
		Platform: c.platform.Status(),
		Tilt:     c.tilt.Status(),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s.TiltAngle = c.tiltAngle.v
	s.TiltSpeed = c.tiltSpeed.v
	s.PlatformSpeed = c.platformSpeed.v
	s.Layer = c.layer.v
	s.BaseLayer = c.baseLayer.v
	s.Slice = c.slice
	s.Slices = c.slices
	return s
}
