package triage

import (
	"github.com/nhle/inbox-triage/internal/model"
)

// Direction says who authored the most recent message in a thread.
type Direction string

const (
	DirectionSent     Direction = model.DirectionSent
	DirectionReceived Direction = model.DirectionReceived
	DirectionUnknown  Direction = model.DirectionUnknown
)

// ResolveDirection decides whether the last message in t was sent by the
// organization or received from outside. Rules are applied in priority
// order and the first match wins:
//
//  1. last internal timestamp equals the last message timestamp: sent
//  2. last external timestamp equals the last message timestamp: received
//  3. sender address belongs to the organization: sent
//  4. any recipient belongs to the organization: received
//  5. the stored direction label, or unknown
func ResolveDirection(t model.Thread, org AddressSet) Direction {
	last := model.Millis(t.LastMessageDate)
	if last != 0 {
		if internal := model.Millis(t.LastInternalMessageAt); internal != 0 && internal == last {
			return DirectionSent
		}
		if external := model.Millis(t.LastExternalMessageAt); external != 0 && external == last {
			return DirectionReceived
		}
	}

	if org.Contains(t.FromAddress) {
		return DirectionSent
	}
	for _, to := range t.ToAddresses {
		if org.Contains(to) {
			return DirectionReceived
		}
	}

	switch Direction(t.LastDirection) {
	case DirectionSent, DirectionReceived:
		return Direction(t.LastDirection)
	}
	return DirectionUnknown
}
