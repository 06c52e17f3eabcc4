// Package stockcheck answers stock availability requests arriving on Kafka.
//
// A request {"productId": "...", "quantity": n} is answered on the reply
// topic with {"productId": "...", "quantity": n, "inStock": bool}, keyed by
// the product id. Requests for unknown products get no reply.
package stockcheck

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/bookstore-catalog/internal/domain/product"
)

// Request asks whether quantity units of a product can be supplied.
type Request struct {
	ProductID string
	Quantity  int
}

// Reply answers a Request.
type Reply struct {
	ProductID string
	Quantity  int
	InStock   bool
}

// StockReader is implemented by *product.Service.
type StockReader interface {
	GetStock(ctx context.Context, id string) (int, error)
}

// Answer builds the reply for req. The boolean is false when the product is
// unknown and no reply should be sent. A request is in stock only when the
// current stock is strictly greater than the requested quantity.
func Answer(ctx context.Context, stock StockReader, req Request) (Reply, bool, error) {
	current, err := stock.GetStock(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return Reply{}, false, nil
		}
		return Reply{}, false, errors.Wrap(err, "get stock")
	}
	return Reply{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		InStock:   req.Quantity < current,
	}, true, nil
}

// DecodeRequest parses a request message value.
func DecodeRequest(data []byte) (Request, error) {
	var (
		req    Request
		hasID  bool
		hasQty bool
	)
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			req.ProductID, err = d.Str()
			hasID = true
		case "quantity":
			req.Quantity, err = d.Int()
			hasQty = true
		default:
			return d.Skip()
		}
		return err
	})
	if err != nil {
		return Request{}, errors.Wrap(err, "decode stock check request")
	}
	if !hasID || !hasQty {
		return Request{}, errors.New("stock check request needs productId and quantity")
	}
	return req, nil
}

// Encode renders the reply as JSON.
func (r Reply) Encode() []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("productId", func(e *jx.Encoder) { e.Str(r.ProductID) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(r.Quantity) })
		e.Field("inStock", func(e *jx.Encoder) { e.Bool(r.InStock) })
	})
	return e.Bytes()
}
