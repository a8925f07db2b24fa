package decimalx

import "github.com/shopspring/decimal"

func MustFromString(s string) decimal.Decimal {
	res, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return res
}

// SMA 取序列末尾 period 个值的简单移动平均
// 数据不足时返回 zero
func SMA(ds []decimal.Decimal, period int) decimal.Decimal {
	if period <= 0 || len(ds) < period {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, d := range ds[len(ds)-period:] {
		sum = sum.Add(d)
	}
	return sum.Div(decimal.NewFromInt(int64(period)))
}
