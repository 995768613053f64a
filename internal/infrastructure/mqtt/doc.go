// Package mqtt provides MQTT client connectivity for tsbuffer.
//
// This package manages:
//   - Connection to an MQTT broker with auto-reconnect
//   - Publishing with QoS guarantees
//   - Last Will and Testament (LWT) on tsbuffer/status/<client_id>
//   - Connection health monitoring
//
// The MQTT transport publishes each flushed line protocol batch as one
// message; a Telegraf mqtt_consumer with data_format "influx" can forward it
// to the database.
//
// # Security Considerations
//
//   - Use TLS for anything but local development (cfg.Broker.TLS=true)
//   - Prefer TSBUFFER_MQTT_USERNAME/TSBUFFER_MQTT_PASSWORD over the config file
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Publish(ctx, "tsbuffer/lines", payload, 1, false)
package mqtt
