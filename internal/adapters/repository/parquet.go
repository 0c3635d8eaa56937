package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/deprecated"
	"github.com/parquet-go/parquet-go/format"

	"github.com/okian/stampview/internal/domain/table"
)

// julianUnixEpoch is the Julian day number of 1970-01-01, used by INT96
// timestamps.
const julianUnixEpoch = 2440588

type decodeFunc func(parquet.Value) table.Value

// readParquet decodes a flat parquet file. Column order follows the file
// schema. Logical timestamp, date and INT96 columns become time values and
// decimals become floats.
func readParquet(ctx context.Context, name string, r io.ReaderAt, size int64, batch int) (*table.Table, error) {
	f, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, err
	}

	fields := f.Schema().Fields()
	columns := make([]table.Column, len(fields))
	decoders := make([]decodeFunc, len(fields))
	for i, field := range fields {
		if !field.Leaf() {
			return nil, fmt.Errorf("%w: %q", ErrNestedColumn, field.Name())
		}
		kind, dec := columnDecoder(field.Type())
		columns[i] = table.Column{Name: field.Name(), Kind: kind}
		decoders[i] = dec
	}

	rows := make([][]table.Value, 0, f.NumRows())
	buf := make([]parquet.Row, batch)
	for _, rg := range f.RowGroups() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rr := rg.Rows()
		for {
			n, err := rr.ReadRows(buf)
			for _, row := range buf[:n] {
				rows = append(rows, decodeRow(row, columns, decoders))
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				_ = rr.Close()
				return nil, err
			}
			if n == 0 {
				break
			}
		}
		if err := rr.Close(); err != nil {
			return nil, err
		}
	}
	return table.New(name, columns, rows)
}

func decodeRow(row parquet.Row, columns []table.Column, decoders []decodeFunc) []table.Value {
	out := make([]table.Value, len(columns))
	for c := range out {
		out[c] = table.Null(columns[c].Kind)
	}
	for _, v := range row {
		c := v.Column()
		if c < 0 || c >= len(out) || v.IsNull() {
			continue
		}
		out[c] = decoders[c](v)
	}
	return out
}

func columnDecoder(t parquet.Type) (table.Kind, decodeFunc) {
	if lt := t.LogicalType(); lt != nil {
		switch {
		case lt.Timestamp != nil:
			return table.KindTime, timestampDecoder(lt.Timestamp.Unit)
		case lt.Date != nil:
			return table.KindTime, func(v parquet.Value) table.Value {
				return table.Time(time.Unix(int64(v.Int32())*86400, 0).UTC())
			}
		case lt.Decimal != nil:
			return table.KindFloat, decimalDecoder(t.Kind(), lt.Decimal.Scale)
		case lt.UTF8 != nil, lt.Enum != nil, lt.Json != nil:
			return table.KindString, func(v parquet.Value) table.Value {
				return table.String(string(v.ByteArray()))
			}
		}
	}

	switch t.Kind() {
	case parquet.Boolean:
		return table.KindBool, func(v parquet.Value) table.Value { return table.Bool(v.Boolean()) }
	case parquet.Int32:
		return table.KindInt, func(v parquet.Value) table.Value { return table.Int(int64(v.Int32())) }
	case parquet.Int64:
		return table.KindInt, func(v parquet.Value) table.Value { return table.Int(v.Int64()) }
	case parquet.Int96:
		return table.KindTime, func(v parquet.Value) table.Value { return table.Time(int96Time(v.Int96())) }
	case parquet.Float:
		return table.KindFloat, func(v parquet.Value) table.Value { return table.Float(float64(v.Float())) }
	case parquet.Double:
		return table.KindFloat, func(v parquet.Value) table.Value { return table.Float(v.Double()) }
	default:
		return table.KindString, func(v parquet.Value) table.Value { return table.String(string(v.ByteArray())) }
	}
}

func timestampDecoder(unit format.TimeUnit) decodeFunc {
	switch {
	case unit.Nanos != nil:
		return func(v parquet.Value) table.Value { return table.Time(time.Unix(0, v.Int64()).UTC()) }
	case unit.Micros != nil:
		return func(v parquet.Value) table.Value { return table.Time(time.UnixMicro(v.Int64()).UTC()) }
	default:
		return func(v parquet.Value) table.Value { return table.Time(time.UnixMilli(v.Int64()).UTC()) }
	}
}

func decimalDecoder(kind parquet.Kind, scale int32) decodeFunc {
	div := math.Pow10(int(scale))
	switch kind {
	case parquet.Int32:
		return func(v parquet.Value) table.Value { return table.Float(float64(v.Int32()) / div) }
	case parquet.Int64:
		return func(v parquet.Value) table.Value { return table.Float(float64(v.Int64()) / div) }
	default:
		return func(v parquet.Value) table.Value {
			f, _ := new(big.Float).SetInt(twosComplement(v.ByteArray())).Float64()
			return table.Float(f / div)
		}
	}
}

// twosComplement decodes a big-endian two's complement integer.
func twosComplement(b []byte) *big.Int {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return n
}

func int96Time(v deprecated.Int96) time.Time {
	nanos := int64(uint64(v[1])<<32 | uint64(v[0]))
	days := int64(v[2]) - julianUnixEpoch
	return time.Unix(days*86400, nanos).UTC()
}
