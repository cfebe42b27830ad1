// Package storage defines the wire format shared by every cart snapshot
// store backend.
//
// The persisted value is one JSON object: {"items": [...], "totalQuantity":
// N, "totalAmount": N}, with line-item fields named exactly as the engine's
// model. Snapshots written by prior sessions must remain readable, so the
// decoder tolerates unknown fields but is strict about the structure of the
// known ones.
package storage

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/falcon-storefront/internal/cart"
)

// DefaultSlot is the snapshot slot name used when none is configured. It
// matches the storage key used by earlier releases so existing carts migrate
// on first load.
const DefaultSlot = "falcon_cart"

// EncodeSnapshot serializes the cart into the canonical snapshot shape.
func EncodeSnapshot(c cart.Cart) []byte {
	var e jx.Encoder
	e.ObjStart()

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range c.Items {
		e.ObjStart()
		e.FieldStart("lineItemKey")
		e.Str(it.Key)
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("unitPrice")
		encodeDecimal(&e, it.UnitPrice)
		e.FieldStart("imageRef")
		e.Str(it.ImageRef)
		e.FieldStart("variantColor")
		e.Str(it.VariantColor)
		e.FieldStart("variantSize")
		e.Str(it.VariantSize)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("lineTotal")
		encodeDecimal(&e, it.LineTotal)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("totalQuantity")
	e.Int(c.TotalQuantity)
	e.FieldStart("totalAmount")
	encodeDecimal(&e, c.TotalAmount)

	e.ObjEnd()
	return e.Bytes()
}

// DecodeSnapshot parses a persisted snapshot. Callers treat any error as
// corruption and fall back to the empty cart; nothing here is fatal.
func DecodeSnapshot(data []byte) (cart.Cart, error) {
	c := cart.Empty()
	d := jx.DecodeBytes(data)

	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				it, err := decodeItem(d)
				if err != nil {
					return err
				}
				c.Items = append(c.Items, it)
				return nil
			})
		case "totalQuantity":
			n, err := d.Int()
			c.TotalQuantity = n
			return err
		case "totalAmount":
			n, err := decodeDecimal(d)
			c.TotalAmount = n
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return cart.Cart{}, errors.Wrap(err, "decode snapshot")
	}
	return c, nil
}

func decodeItem(d *jx.Decoder) (cart.LineItem, error) {
	var it cart.LineItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "lineItemKey":
			it.Key, err = d.Str()
		case "productId":
			it.ProductID, err = d.Str()
		case "name":
			it.Name, err = d.Str()
		case "unitPrice":
			it.UnitPrice, err = decodeDecimal(d)
		case "imageRef":
			it.ImageRef, err = d.Str()
		case "variantColor":
			it.VariantColor, err = d.Str()
		case "variantSize":
			it.VariantSize, err = d.Str()
		case "quantity":
			it.Quantity, err = d.Int()
		case "lineTotal":
			it.LineTotal, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return it, err
}

func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.String()))
}

// decodeDecimal accepts both plain and string-quoted JSON numbers; older
// clients serialized prices through generic JSON stringification.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(strings.Trim(string(n), `"`))
}
