package adapters

import (
	"strconv"

	"polytec-extractor/internal/types"
)

// specRename maps known attribute labels to stable column identifiers.
// Unknown labels pass through unchanged.
var specRename = map[string]string{
	"Substrate": "substrate",
	"Thickness": "thickness",
	"Length":    "length",
	"Width":     "width",
	"Pack Size": "pack_size",
	"Finish":    "finish_attr",
}

// NormalizeSpecs turns a row's free-form attribute list into the variable
// column set of a record: known keys renamed, SKU/Title dropped (they are
// fixed fields), anything colliding with a fixed core field dropped, and
// the resolved MOQ constraint appended as string values. A row with no
// MOQ signal records min=1 step=1. Input order is preserved, which fixes
// the CSV column discovery order.
func NormalizeSpecs(attrs []types.KV, core map[string]string, min, step int) []types.KV {
	if min < 1 {
		min = 1
	}
	if step < 1 {
		step = 1
	}
	out := make([]types.KV, 0, len(attrs)+2)
	for _, kv := range attrs {
		if kv.Key == "SKU" || kv.Key == "Title" {
			continue
		}
		key := kv.Key
		if renamed, ok := specRename[key]; ok {
			key = renamed
		}
		if _, collides := core[key]; collides {
			continue
		}
		out = append(out, types.KV{Key: key, Value: kv.Value})
	}
	out = append(out,
		types.KV{Key: "minimum_order_qty", Value: strconv.Itoa(min)},
		types.KV{Key: "order_multiple", Value: strconv.Itoa(step)},
	)
	return out
}
