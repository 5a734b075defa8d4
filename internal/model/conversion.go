package model

// Conversion is one directional rule: 1 From = Ratio To.
type Conversion struct {
	From  string  `json:"from" validate:"required"`
	To    string  `json:"to" validate:"required"`
	Ratio float64 `json:"ratio" validate:"finite,gt=0"`
}

// ConversionRatio lists the conversions available inside one base product.
// The reverse direction only exists if it is listed explicitly.
type ConversionRatio struct {
	BaseProduct string       `json:"baseProduct" validate:"required"`
	Conversions []Conversion `json:"conversions" validate:"dive"`
}

// Find returns the conversion matching the exact unit pair.
func (r ConversionRatio) Find(from, to string) (Conversion, bool) {
	for _, c := range r.Conversions {
		if c.From == from && c.To == to {
			return c, true
		}
	}
	return Conversion{}, false
}
