// Package productjson is the JSON representation of a catalog product,
// shared by the HTTP API and the bulk importer.
package productjson

import (
	"io"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/bookstore-catalog/internal/domain/product"
)

const dateOnly = "2006-01-02"

// Encode writes p as a JSON object. A zero publishing date is written as null.
func Encode(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("isbn10", func(e *jx.Encoder) { e.Str(p.ISBN10) })
		e.Field("isbn13", func(e *jx.Encoder) { e.Str(p.ISBN13) })
		e.Field("title", func(e *jx.Encoder) { e.Str(p.Title) })
		e.Field("version", func(e *jx.Encoder) { e.Str(p.Version) })
		e.Field("authors", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, a := range p.Authors {
					e.Str(a)
				}
			})
		})
		e.Field("publishingDate", func(e *jx.Encoder) {
			if p.PublishingDate.IsZero() {
				e.Null()
				return
			}
			e.Str(p.PublishingDate.UTC().Format(time.RFC3339))
		})
		e.Field("publishingHouse", func(e *jx.Encoder) { e.Str(p.PublishingHouse) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("language", func(e *jx.Encoder) { e.Str(p.Language) })
		e.Field("pages", func(e *jx.Encoder) { e.Int(p.Pages) })
		e.Field("coverUrl", func(e *jx.Encoder) { e.Str(p.CoverURL) })
		e.Field("price", func(e *jx.Encoder) { e.Float64(p.Price) })
		e.Field("stock", func(e *jx.Encoder) { e.Int(p.Stock) })
	})
}

// EncodeList writes products as a JSON array.
func EncodeList(e *jx.Encoder, products []product.Product) {
	e.Arr(func(e *jx.Encoder) {
		for _, p := range products {
			Encode(e, p)
		}
	})
}

// Decode reads a product object. Unknown fields are skipped and null
// leaves a field at its zero value.
func Decode(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		switch string(key) {
		case "id":
			p.ID, err = d.Str()
		case "isbn10":
			p.ISBN10, err = d.Str()
		case "isbn13":
			p.ISBN13, err = d.Str()
		case "title":
			p.Title, err = d.Str()
		case "version":
			p.Version, err = d.Str()
		case "authors":
			p.Authors = []string{}
			err = d.Arr(func(d *jx.Decoder) error {
				a, err := d.Str()
				if err != nil {
					return err
				}
				p.Authors = append(p.Authors, a)
				return nil
			})
		case "publishingDate":
			p.PublishingDate, err = decodeDate(d)
		case "publishingHouse":
			p.PublishingHouse, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "language":
			p.Language, err = d.Str()
		case "pages":
			p.Pages, err = decodeInt32(d)
		case "coverUrl":
			p.CoverURL, err = d.Str()
		case "price":
			p.Price, err = d.Float64()
		case "stock":
			p.Stock, err = decodeInt32(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	return p, err
}

// DecodeBytes is Decode over a complete JSON document. Anything but
// whitespace after the object is an error.
func DecodeBytes(data []byte) (product.Product, error) {
	d := jx.DecodeBytes(data)
	p, err := Decode(d)
	if err != nil {
		return product.Product{}, err
	}
	if err := d.Skip(); err != io.EOF {
		return product.Product{}, errors.New("unexpected trailing data")
	}
	return p, nil
}

// decodeInt32 reads integers that are stored in 32-bit columns.
func decodeInt32(d *jx.Decoder) (int, error) {
	v, err := d.Int32()
	return int(v), err
}

// decodeDate accepts RFC 3339 timestamps, plain dates and epoch milliseconds.
func decodeDate(d *jx.Decoder) (time.Time, error) {
	if d.Next() == jx.Number {
		ms, err := d.Int64()
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid date %q", s)
	}
	return t, nil
}
