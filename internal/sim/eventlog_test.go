package sim

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventLog_RouteWritesTaggedLine(t *testing.T) {
	var buf bytes.Buffer
	log := NewEventLog(&buf)
	log.Route(5, 1, []int{0, 1, 2})
	assert.Equal(t, "5 R 1 0 1 2\n", buf.String())
}

func TestEventLog_MatchNegatesRemovedIds(t *testing.T) {
	var buf bytes.Buffer
	log := NewEventLog(&buf)
	log.Match(10, 1, []int{2}, []int{3})
	assert.Equal(t, "10 M 1 2 -3\n", buf.String())
}

func TestEventLog_PickupSkippedWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	log := NewEventLog(&buf)
	log.Pickup(1)
	assert.Empty(t, buf.String())
}

func TestEventLog_TailReturnsMostRecentLines(t *testing.T) {
	var buf bytes.Buffer
	log := NewEventLog(&buf)
	for i := 0; i < 5; i++ {
		log.Pickup(i, i)
	}
	tail := log.Tail(2)
	assert.Len(t, tail, 2)
	assert.True(t, strings.HasPrefix(tail[0], "3 P 3"))
	assert.True(t, strings.HasPrefix(tail[1], "4 P 4"))
}

func TestEventLog_TailCapsAtTailSize(t *testing.T) {
	var buf bytes.Buffer
	log := NewEventLog(&buf)
	for i := 0; i < tailSize+10; i++ {
		log.Pickup(i, 1)
	}
	assert.Len(t, log.Tail(0), tailSize)
}
