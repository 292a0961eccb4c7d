// Package mqtt provides MQTT client connectivity for SecureWatch Core.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// SecureWatch uses MQTT as the message bus connecting the core to scanner
// and report-generation workers. The broker (Mosquitto) decouples the core
// from worker implementations: the core publishes start/generate requests
// and the workers stream status updates back.
//
//	SecureWatch Core ↔ MQTT Broker ↔ Scanner Workers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all scan worker status updates
//	err = client.Subscribe(mqtt.Topics{}.AllScanStatuses(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Dispatch a scan job
//	topic := mqtt.Topics{}.ScanStart("scn-abc123")
//	client.Publish(topic, []byte(`{"jobId":"scn-abc123"}`), 1, false)
package mqtt
