package fixed

import "github.com/govalues/decimal"

var (
	NegOne = Point{decimal.MustNew(-1, 0)}
	Zero   = Point{decimal.MustNew(0, 0)}
	One    = Point{decimal.MustNew(1, 0)}
	Two    = Point{decimal.MustNew(2, 0)}
	Three  = Point{decimal.MustNew(3, 0)}
	Four   = Point{decimal.MustNew(4, 0)}
	Five   = Point{decimal.MustNew(5, 0)}
	Ten    = Point{decimal.MustNew(10, 0)}

	Hundred = Point{decimal.MustNew(100, 0)}

	PointOne  = Point{decimal.MustNew(1, 1)}
	PointFive = Point{decimal.MustNew(5, 1)}
)
