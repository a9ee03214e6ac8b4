// Package influxdb provides InfluxDB connectivity for BeaconWatch.
//
// It wraps the official influxdb-client-go v2 library for one purpose:
// long-term signal-strength history. Every observation an agent stages is
// also written as an RSSI point tagged with the beacon MAC and the
// observing monitor, so signal trends survive long after the SQLite store
// has consolidated each interval down to a single reading.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    // InfluxDB is optional; log and continue without it
//	}
//	defer client.Close()
//
//	client.WriteSignalStrength("AA:BB:CC:DD:EE:01", "tile", "garage-pi", -62, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are non-blocking and
// batched according to config.yaml settings (batch_size, flush_interval);
// batch errors surface via the SetOnError callback.
package influxdb
