package cartpole

import (
	"math"

	"github.com/fogleman/gg"
)

const (
	// Viewport dimensions in pixels
	ViewportW float64 = 600
	ViewportH float64 = 400

	// World width rendered in the viewport. The position bounds are
	// ±2.4 in the usual balancing setup, so a 2 * 2.4 wide world with
	// a small margin keeps the cart visible.
	worldWidth float64 = 2 * PositionBounds

	cartWidth  float64 = 50
	cartHeight float64 = 30
	axleOffset float64 = cartHeight / 4
)

// Render draws the current state of the environment to a PNG file at
// the argument path. The cart is drawn on a horizontal track with the
// pole extending from the cart's axle at the pole's current angle.
func (c *base) Render(path string) error {
	state := c.lastStep.Observation
	x, th := state.AtVec(0), state.AtVec(2)

	scale := ViewportW / worldWidth
	cartX := x*scale + ViewportW/2
	cartY := ViewportH * 0.6
	poleLen := scale * 2 * c.halfPoleLength

	dc := gg.NewContext(int(ViewportW), int(ViewportH))

	// Background
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// Track
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(2.0)
	dc.DrawLine(0, cartY, ViewportW, cartY)
	dc.Stroke()

	// Cart
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.DrawRectangle(cartX-cartWidth/2, cartY-cartHeight/2, cartWidth,
		cartHeight)
	dc.Fill()

	// Pole. An angle of 0 points straight up.
	axleX := cartX
	axleY := cartY - axleOffset
	tipX := axleX + poleLen*math.Sin(th)
	tipY := axleY - poleLen*math.Cos(th)

	dc.SetRGB(0.8, 0.6, 0.2)
	dc.SetLineWidth(6.0)
	dc.DrawLine(axleX, axleY, tipX, tipY)
	dc.Stroke()

	// Axle
	dc.SetRGB(0.5, 0.5, 0.8)
	dc.DrawCircle(axleX, axleY, 4.0)
	dc.Fill()

	return dc.SavePNG(path)
}
