// Package device manages the registry of BLE beacon devices the fleet has
// ever sighted. Devices are keyed by MAC address; a device row is created
// the first time any agent finalizes a sighting for that MAC, and its
// last_seen timestamp tracks the most recent finalized observation.
//
// Advertised names are best-effort: many beacons advertise none, so an
// empty incoming name never overwrites a name learned earlier.
package device
