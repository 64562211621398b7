package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/halodent/clinic-api/internal/models"
)

func TestMergeIntervalsCollapsesOverlapAndTouching(t *testing.T) {
	merged := mergeIntervals([]models.Interval{
		{Start: 600, End: 660},
		{Start: 630, End: 690},
		{Start: 690, End: 720},
		{Start: 800, End: 860},
	})

	assert.Equal(t, []models.Interval{
		{Start: 600, End: 720},
		{Start: 800, End: 860},
	}, merged)
}

func TestMergeIntervalsIgnoresEmptyAndUnsortedInput(t *testing.T) {
	merged := mergeIntervals([]models.Interval{
		{Start: 900, End: 960},
		{Start: 500, End: 500},
		{Start: 540, End: 600},
	})

	assert.Equal(t, []models.Interval{
		{Start: 540, End: 600},
		{Start: 900, End: 960},
	}, merged)
}

func TestMergeIntervalsIdempotent(t *testing.T) {
	once := mergeIntervals([]models.Interval{
		{Start: 540, End: 600},
		{Start: 570, End: 630},
	})
	twice := mergeIntervals(once)

	assert.Equal(t, once, twice)
}

func TestMergeIntervalsEmpty(t *testing.T) {
	assert.Nil(t, mergeIntervals(nil))
	assert.Nil(t, mergeIntervals([]models.Interval{{Start: 100, End: 100}}))
}

func TestSubtractIntervalsSplitsAroundBusyMiddle(t *testing.T) {
	free := subtractIntervals(
		[]models.Interval{{Start: 540, End: 1020}},
		[]models.Interval{{Start: 720, End: 780}},
	)

	assert.Equal(t, []models.Interval{
		{Start: 540, End: 720},
		{Start: 780, End: 1020},
	}, free)
}

func TestSubtractIntervalsFullCoverRemovesBase(t *testing.T) {
	free := subtractIntervals(
		[]models.Interval{{Start: 600, End: 660}},
		[]models.Interval{{Start: 540, End: 720}},
	)

	assert.Empty(t, free)
}

func TestSubtractIntervalsTouchingBusyLeavesBase(t *testing.T) {
	free := subtractIntervals(
		[]models.Interval{{Start: 600, End: 660}},
		[]models.Interval{
			{Start: 540, End: 600},
			{Start: 660, End: 720},
		},
	)

	assert.Equal(t, []models.Interval{{Start: 600, End: 660}}, free)
}

func TestSubtractIntervalsNoBusy(t *testing.T) {
	base := []models.Interval{{Start: 540, End: 720}}

	assert.Equal(t, base, subtractIntervals(base, nil))
}

func TestSubtractIntervalsTrimsEdges(t *testing.T) {
	free := subtractIntervals(
		[]models.Interval{{Start: 540, End: 720}},
		[]models.Interval{
			{Start: 500, End: 570},
			{Start: 690, End: 750},
		},
	)

	assert.Equal(t, []models.Interval{{Start: 570, End: 690}}, free)
}
