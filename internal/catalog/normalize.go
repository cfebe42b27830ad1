package catalog

import (
	"strings"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Defaults applied to products the catalog returns with missing variant data.
// They mirror what the service's own clients assume.
var (
	defaultSizes  = []string{"XS", "S", "M", "L", "XL"}
	defaultColors = []string{"Blue", "Black", "White", "Gray"}
)

// unwrapEnvelope returns the payload inside a {"data": ...} envelope, or the
// input unchanged when there is no envelope. The catalog wraps some endpoints
// and not others.
func unwrapEnvelope(data []byte) []byte {
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return data
	}

	var inner []byte
	_ = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "data" {
			return d.Skip()
		}
		raw, err := d.Raw()
		if err != nil {
			return err
		}
		if raw.Type() != jx.Null {
			inner = raw
		}
		return nil
	})
	if inner != nil {
		return inner
	}
	return data
}

// decodeProduct normalizes one loosely-typed catalog product into the strict
// Product shape.
func decodeProduct(d *jx.Decoder) (Product, error) {
	var (
		p                          Product
		altID, title, singleImage  string
		slug                       string
		stockKnown, stock          bool
	)

	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = flexString(d)
		case "_id":
			altID, err = flexString(d)
		case "name":
			p.Name, err = flexString(d)
		case "title":
			title, err = flexString(d)
		case "price":
			p.Price, err = flexDecimal(d)
		case "image":
			singleImage, err = flexString(d)
		case "images":
			p.Images, err = flexStrings(d)
		case "sizes":
			p.Sizes, err = flexStrings(d)
		case "colors":
			p.Colors, err = flexStrings(d)
		case "inStock":
			if d.Next() == jx.Bool {
				stock, err = d.Bool()
				stockKnown = true
			} else {
				err = d.Skip()
			}
		case "description":
			p.Description, err = flexString(d)
		case "category":
			p.Category, err = decodeCategoryRef(d)
		case "slug":
			slug, err = flexString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return Product{}, err
	}

	if p.ID == "" {
		p.ID = altID
	}
	if p.Name == "" {
		p.Name = title
	}
	p.Slug = slug
	if p.Slug == "" {
		p.Slug = p.ID
	}
	if len(p.Images) == 0 {
		if singleImage != "" {
			p.Images = []string{singleImage}
		} else {
			p.Images = []string{PlaceholderImage}
		}
	}
	if len(p.Sizes) == 0 {
		p.Sizes = append(p.Sizes, defaultSizes...)
	}
	if len(p.Colors) == 0 {
		p.Colors = append(p.Colors, defaultColors...)
	}
	p.InStock = !stockKnown || stock

	return p, nil
}

func decodeCategory(d *jx.Decoder) (Category, error) {
	var c Category
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id", "_id":
			if c.ID == "" {
				c.ID, err = flexString(d)
			} else {
				err = d.Skip()
			}
		case "name", "title":
			if c.Name == "" {
				c.Name, err = flexString(d)
			} else {
				err = d.Skip()
			}
		case "slug":
			c.Slug, err = flexString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if c.Slug == "" {
		c.Slug = c.ID
	}
	return c, err
}

// decodeCategoryRef reads a product's category, which arrives either as a
// plain string or as an embedded category object.
func decodeCategoryRef(d *jx.Decoder) (string, error) {
	if d.Next() != jx.Object {
		return flexString(d)
	}
	c, err := decodeCategory(d)
	if err != nil {
		return "", err
	}
	if c.Slug != "" {
		return c.Slug, nil
	}
	return c.Name, nil
}

// flexString reads a string-valued field, accepting numbers (stringified)
// and nulls (empty). Anything else is skipped and reads as empty.
func flexString(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return strings.Trim(string(n), `"`), nil
	case jx.Null:
		return "", d.Null()
	default:
		return "", d.Skip()
	}
}

// flexDecimal reads a price-like field as a decimal, accepting plain numbers
// and numeric strings. Missing or malformed values read as zero.
func flexDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	s, err := flexString(d)
	if err != nil || s == "" {
		return decimal.Zero, err
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, nil
	}
	return v, nil
}

// flexStrings reads an array of strings, accepting a single bare string as a
// one-element array.
func flexStrings(d *jx.Decoder) ([]string, error) {
	if d.Next() != jx.Array {
		s, err := flexString(d)
		if err != nil || s == "" {
			return nil, err
		}
		return []string{s}, nil
	}

	var out []string
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := flexString(d)
		if err != nil {
			return err
		}
		if s != "" {
			out = append(out, s)
		}
		return nil
	})
	return out, err
}
