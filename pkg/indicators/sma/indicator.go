package sma

import (
	"github.com/jan-sykora/meridian/pkg/common"
	"github.com/jan-sykora/meridian/pkg/utility/fixed"
)

type Indicator struct {
	window *fixed.RingBuffer

	currentSma fixed.Point
}

func NewIndicator(windowSize int) *Indicator {
	return &Indicator{
		window:     fixed.NewRingBuffer(windowSize),
		currentSma: fixed.Zero,
	}
}

func (i *Indicator) OnBar(bar common.Bar) {
	i.window.Add(bar.Close)
	i.currentSma = i.window.Mean()
}

func (i *Indicator) Average() fixed.Point {
	return i.currentSma
}

func (i *Indicator) Ready() bool {
	return i.window.IsFull()
}

func (i *Indicator) Reset() {
	i.window.Clear()
	i.currentSma = fixed.Zero
}
