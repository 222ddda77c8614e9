package mapper

import (
	"time"

	"github.com/jan-sykora/meridian/pkg/common"
	"github.com/jan-sykora/meridian/pkg/utility/fixed"
)

// BinaryBar is the on-disk record layout, 56 bytes, no padding.
type BinaryBar struct {
	TimeStamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	AdjClose  float64
}

func (binaryBar BinaryBar) ToBar(symbol string) (common.Bar, error) {
	return common.NewBar(symbol, time.Unix(0, binaryBar.TimeStamp),
		fixed.FromFloat64(binaryBar.Open), fixed.FromFloat64(binaryBar.High),
		fixed.FromFloat64(binaryBar.Low), fixed.FromFloat64(binaryBar.Close),
		fixed.FromFloat64(binaryBar.Volume), fixed.FromFloat64(binaryBar.AdjClose))
}
