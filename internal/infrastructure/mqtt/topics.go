package mqtt

import (
	"fmt"
	"time"
)

// topicPrefix is the root of the BeaconWatch topic namespace.
const topicPrefix = "beaconwatch"

// Topics builds the BeaconWatch topic namespace. Using a struct keeps all
// topic construction in one place and greppable.
//
//	beaconwatch/system/status            - agent online/offline (retained)
//	beaconwatch/finalized/{window}       - one summary per finalized interval
type Topics struct{}

// SystemStatus returns the agent status topic.
func (Topics) SystemStatus() string {
	return topicPrefix + "/system/status"
}

// Finalized returns the summary topic for one interval window. The window
// segment is the RFC3339 window start with colons replaced, since ':' has
// no special meaning in MQTT topics but trips up some client tooling.
func (Topics) Finalized(window time.Time) string {
	return fmt.Sprintf("%s/finalized/%s",
		topicPrefix,
		window.UTC().Format("2006-01-02T15-04-05Z"),
	)
}
