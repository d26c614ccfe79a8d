package adapters

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"polytec-extractor/internal/types"
)

func testChecker(drv RowDriver) *RowChecker {
	return NewRowChecker(drv, types.DefaultConfig(), logrus.New())
}

func singleRowDriver(row *fakeRow) *fakeDriver {
	drv := newFakeDriver()
	drv.panels[""] = &fakePanel{rows: []*fakeRow{row}}
	return drv
}

func TestRowChecker_HappyPath(t *testing.T) {
	drv := singleRowDriver(&fakeRow{
		code:       "ABC123",
		triggerOK:  true,
		stockQueue: []string{"In stock"},
		priceQueue: []string{"$42.00"},
	})

	res := testChecker(drv).Check(context.Background(), 0, 1)

	assert.Equal(t, "In stock", res.Stock)
	assert.Equal(t, "$42.00", res.Price)
	assert.Equal(t, 1, res.Qty)
	assert.Equal(t, []int{1}, drv.qtySet)
	assert.Equal(t, 2, drv.triggerCalls)
}

func TestRowChecker_BumpsToInputHints(t *testing.T) {
	drv := singleRowDriver(&fakeRow{
		minAttr:    "5",
		stepAttr:   "3",
		triggerOK:  true,
		stockQueue: []string{"In stock"},
		priceQueue: []string{"$10.00"},
	})

	res := testChecker(drv).Check(context.Background(), 0, 1)

	assert.Equal(t, 6, res.Qty) // >=5 and a multiple of 3
	assert.Equal(t, 5, res.Min)
	assert.Equal(t, 3, res.Step)
	assert.Equal(t, []int{6}, drv.qtySet)
}

func TestRowChecker_TextHintBeatsSmallerAttr(t *testing.T) {
	drv := singleRowDriver(&fakeRow{
		minAttr:    "1",
		warning:    "Minimum Order Qty: 4",
		triggerOK:  true,
		stockQueue: []string{"In stock"},
		priceQueue: []string{"$10.00"},
	})

	res := testChecker(drv).Check(context.Background(), 0, 1)

	assert.Equal(t, 4, res.Qty)
}

func TestRowChecker_RetriesOnLateMOQMessage(t *testing.T) {
	drv := singleRowDriver(&fakeRow{
		triggerOK:  true,
		stockQueue: []string{"Minimum Order Qty: 10", "In stock"},
		priceQueue: []string{"$42.00", "$420.00"},
	})

	res := testChecker(drv).Check(context.Background(), 0, 1)

	assert.Equal(t, "In stock", res.Stock)
	assert.Equal(t, "$420.00", res.Price)
	assert.Equal(t, 10, res.Qty)
	assert.Equal(t, 10, res.Min)
	assert.Equal(t, []int{1, 10}, drv.qtySet)
}

func TestRowChecker_MOQMessageWithoutQtyChangeDoesNotRetry(t *testing.T) {
	// The hint was already known up front, so the message cannot change
	// the effective quantity and a second round would be wasted.
	drv := singleRowDriver(&fakeRow{
		minAttr:    "10",
		triggerOK:  true,
		stockQueue: []string{"Minimum Order Qty: 10", "should never be read"},
		priceQueue: []string{"$42.00"},
	})

	res := testChecker(drv).Check(context.Background(), 0, 1)

	assert.Equal(t, "Minimum Order Qty: 10", res.Stock)
	assert.Equal(t, []int{10}, drv.qtySet)
}

func TestRowChecker_LastChanceRetryWhenBothEmpty(t *testing.T) {
	drv := singleRowDriver(&fakeRow{
		triggerOK:  true,
		stockQueue: []string{"", "In stock"},
		priceQueue: []string{"", ""},
	})

	res := testChecker(drv).Check(context.Background(), 0, 1)

	assert.Equal(t, "In stock", res.Stock)
	assert.Equal(t, ResultEmpty, res.Price)
	// Initial mitigation plus one more before the last-chance round.
	assert.Equal(t, 2, drv.overlayCalls)
}

func TestRowChecker_EmptyStaysEmptyAfterRetries(t *testing.T) {
	drv := singleRowDriver(&fakeRow{triggerOK: true})

	res := testChecker(drv).Check(context.Background(), 0, 1)

	assert.Equal(t, ResultEmpty, res.Stock)
	assert.Equal(t, ResultEmpty, res.Price)
	// Two rounds of clear-both: the first attempt and the last chance.
	assert.Equal(t, 4, drv.clearCalls)
}

func TestRowChecker_ErrorMarker(t *testing.T) {
	drv := singleRowDriver(&fakeRow{
		triggerOK:  true,
		stockErr:   errors.New("target crashed"),
		priceQueue: []string{"$42.00", "$42.00"},
	})

	res := testChecker(drv).Check(context.Background(), 0, 1)

	assert.Equal(t, ResultError, res.Stock)
	assert.Equal(t, "$42.00", res.Price)
}

func TestRowChecker_FailedTriggerStillReads(t *testing.T) {
	// A click rejected by both paths does not abort the lookup; whatever
	// text is present is still read.
	drv := singleRowDriver(&fakeRow{
		triggerOK:  false,
		stockQueue: []string{"Low stock"},
		priceQueue: []string{"$9.00"},
	})

	res := testChecker(drv).Check(context.Background(), 0, 1)

	assert.Equal(t, "Low stock", res.Stock)
	assert.Equal(t, "$9.00", res.Price)
}
