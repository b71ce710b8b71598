package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSV struct {
	orders   *csv.Writer
	balances *csv.Writer
	of, bf   *os.File
}

func NewCSV(ordersPath, balancesPath string) (*CSV, error) {
	of, err := os.Create(ordersPath)
	if err != nil {
		return nil, err
	}
	bf, err := os.Create(balancesPath)
	if err != nil {
		return nil, err
	}

	ow := csv.NewWriter(of)
	bw := csv.NewWriter(bf)

	if err := ow.Write([]string{"order_id", "symbol", "side", "quantity", "price", "success", "raw", "time"}); err != nil {
		return nil, err
	}
	if err := bw.Write([]string{"time", "securities_eval", "total_pl", "total_eval"}); err != nil {
		return nil, err
	}

	ow.Flush()
	if err := ow.Error(); err != nil {
		return nil, err
	}
	bw.Flush()
	if err := bw.Error(); err != nil {
		return nil, err
	}

	return &CSV{ow, bw, of, bf}, nil
}

func (j *CSV) RecordOrder(o OrderRecord) error {
	err := j.orders.Write([]string{
		o.OrderID,
		o.Symbol,
		o.Side,
		i(o.Quantity),
		i(o.Price),
		strconv.FormatBool(o.Success),
		o.Raw,
		o.Time.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	j.orders.Flush()
	return j.orders.Error()
}

func (j *CSV) RecordBalance(b BalanceSnapshot) error {
	err := j.balances.Write([]string{
		b.Time.Format(time.RFC3339),
		i(b.SecuritiesEval),
		i(b.TotalPL),
		i(b.TotalEval),
	})
	if err != nil {
		return err
	}

	j.balances.Flush()
	return j.balances.Error()
}

func (j *CSV) Close() error {
	j.orders.Flush()
	if err := j.orders.Error(); err != nil {
		return err
	}
	j.balances.Flush()
	if err := j.balances.Error(); err != nil {
		return err
	}

	if err := j.of.Close(); err != nil {
		return err
	}
	return j.bf.Close()
}

func i(x int64) string {
	return strconv.FormatInt(x, 10)
}
