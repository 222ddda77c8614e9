package common

import (
	"time"

	"github.com/jan-sykora/meridian/pkg/utility"
	"github.com/jan-sykora/meridian/pkg/utility/fixed"
)

// Cash is posted by the broker whenever the available cash changes.
type Cash struct {
	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
	Value       fixed.Point         `json:"value"`
}

// Equity is posted by the broker whenever the portfolio value changes.
type Equity struct {
	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
	Value       fixed.Point         `json:"value"`
}
