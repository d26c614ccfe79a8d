package adapters

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polytec-extractor/internal/types"
)

func testWalker(drv PageDriver, sink RecordSink, seen map[string]bool) *Walker {
	return NewWalker(drv, sink, seen, types.DefaultConfig(), logrus.New())
}

func simpleRow(sku, title, family string) *fakeRow {
	return &fakeRow{
		family:     family,
		triggerOK:  true,
		stockQueue: []string{"In stock"},
		priceQueue: []string{"$10.00"},
		specs: &RowSpecs{
			SKU:   sku,
			Title: title,
			Attrs: []types.KV{{Key: "Substrate", Value: "MDF"}},
		},
	}
}

func TestWalker_TwoTabs(t *testing.T) {
	drv := newFakeDriver()
	drv.colourName = "Coastal Oak"
	drv.tabs = []TabInfo{
		{Label: "Matt", Fragment: "panel-matt"},
		{Label: "Gloss", Fragment: "panel-gloss"},
	}
	drv.panels["Matt"] = &fakePanel{
		finish: "Matt",
		rows:   []*fakeRow{simpleRow("SKU-1", "Board 1", "Melamine")},
	}
	moqRow := simpleRow("SKU-2", "Board 2", "Melamine")
	moqRow.minAttr = "3"
	drv.panels["Gloss"] = &fakePanel{finish: "Gloss", rows: []*fakeRow{moqRow}}

	sink := &fakeSink{}
	written, err := testWalker(drv, sink, nil).ProcessColour(context.Background(), types.Colour{
		Name: "Coastal Oak",
		URL:  "https://example.com/colour/coastal-oak/",
	})

	require.NoError(t, err)
	assert.Equal(t, 2, written)
	require.Len(t, sink.cores, 2)

	first, second := sink.cores[0], sink.cores[1]
	assert.Equal(t, "Coastal Oak", first["colour_name"])
	assert.Equal(t, "Matt", first["finish"])
	assert.Equal(t, "SKU-1", first["sku_code"])
	assert.Equal(t, "1", first["qty_used_for_checks"])
	assert.Equal(t, "In stock", first["stock_result_raw"])
	assert.Equal(t, "https://example.com/colour/coastal-oak/", first["product_url"])
	assert.NotEmpty(t, first["checked_at_iso"])

	assert.Equal(t, "Gloss", second["finish"])
	assert.Equal(t, "3", second["qty_used_for_checks"])

	// Normalized specs carry the renamed attribute and the MOQ columns.
	assert.Contains(t, sink.specs[1], types.KV{Key: "substrate", Value: "MDF"})
	assert.Contains(t, sink.specs[1], types.KV{Key: "minimum_order_qty", Value: "3"})
}

func TestWalker_DeduplicatesByFinishAndSKU(t *testing.T) {
	drv := newFakeDriver()
	drv.tabs = []TabInfo{{Label: "Matt"}}
	drv.panels["Matt"] = &fakePanel{
		finish: "Matt",
		rows: []*fakeRow{
			simpleRow("SKU-1", "Board", "Melamine"),
			simpleRow("SKU-1", "Board again", "Melamine"),
		},
	}

	sink := &fakeSink{}
	written, err := testWalker(drv, sink, nil).ProcessColour(context.Background(), types.Colour{URL: "u"})

	require.NoError(t, err)
	assert.Equal(t, 1, written)
}

func TestWalker_EmptySKURowsAreNeverDeduplicated(t *testing.T) {
	drv := newFakeDriver()
	drv.tabs = []TabInfo{{Label: "Matt"}}
	drv.panels["Matt"] = &fakePanel{
		finish: "Matt",
		rows: []*fakeRow{
			simpleRow("", "Board", "Melamine"),
			simpleRow("", "Board again", "Melamine"),
		},
	}

	sink := &fakeSink{}
	written, err := testWalker(drv, sink, nil).ProcessColour(context.Background(), types.Colour{URL: "u"})

	require.NoError(t, err)
	assert.Equal(t, 2, written)
}

func TestWalker_SharedSeenSetSpansColours(t *testing.T) {
	seen := map[string]bool{"Matt|SKU-1": true}

	drv := newFakeDriver()
	drv.tabs = []TabInfo{{Label: "Matt"}}
	drv.panels["Matt"] = &fakePanel{
		finish: "Matt",
		rows:   []*fakeRow{simpleRow("SKU-1", "Board", "Melamine")},
	}

	sink := &fakeSink{}
	written, err := testWalker(drv, sink, seen).ProcessColour(context.Background(), types.Colour{URL: "u"})

	require.NoError(t, err)
	assert.Equal(t, 0, written)
}

func TestWalker_SyntheticDefaultTab(t *testing.T) {
	drv := newFakeDriver()
	// No tab strip at all; the single panel registered under the empty
	// active label is walked as "Default".
	drv.panels[""] = &fakePanel{rows: []*fakeRow{simpleRow("SKU-9", "Board", "")}}

	sink := &fakeSink{}
	written, err := testWalker(drv, sink, nil).ProcessColour(context.Background(), types.Colour{URL: "u"})

	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.Equal(t, "Default", sink.cores[0]["finish"])
	// A row with no preceding heading lands in the Unknown range.
	assert.Equal(t, "Unknown", sink.ranges[0])
}

func TestWalker_OpenFailureIsEntryLevel(t *testing.T) {
	drv := newFakeDriver()
	drv.openErr = errors.New("navigation timed out")

	written, err := testWalker(drv, &fakeSink{}, nil).ProcessColour(context.Background(), types.Colour{URL: "u"})

	assert.Error(t, err)
	assert.Equal(t, 0, written)
}

func TestWalker_FamilyGrouping(t *testing.T) {
	drv := newFakeDriver()
	drv.tabs = []TabInfo{{Label: "Matt"}}
	drv.panels["Matt"] = &fakePanel{
		finish: "Matt",
		rows: []*fakeRow{
			simpleRow("SKU-1", "Board", "Melamine"),
			simpleRow("SKU-2", "Door", "Thermolaminated"),
		},
	}

	sink := &fakeSink{}
	_, err := testWalker(drv, sink, nil).ProcessColour(context.Background(), types.Colour{URL: "u"})

	require.NoError(t, err)
	assert.Equal(t, []string{"Melamine", "Thermolaminated"}, sink.ranges)
	assert.Equal(t, "Melamine", sink.cores[0]["product_family"])
	assert.Equal(t, "Thermolaminated", sink.cores[1]["product_family"])
}
