// Package mqtt provides the MQTT publishing client for BeaconWatch.
//
// BeaconWatch is publish-only: the lease holder announces each finalized
// interval on beaconwatch/finalized/{window} so downstream consumers
// (presence automations, dashboards) get a push instead of polling the
// store, and the client maintains an online/offline status topic with a
// Last Will for crash detection.
//
// The client follows the same lifecycle pattern as the other
// infrastructure components:
//
//	client, err := mqtt.Connect(cfg)
//	defer client.Close()
//
// Thread Safety: all methods are safe for concurrent use.
package mqtt
