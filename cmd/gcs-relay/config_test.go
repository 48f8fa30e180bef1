package main

import (
	"testing"
	"time"
)

func validConfig() *appConfig {
	return &appConfig{
		transport:         "udp",
		serialDev:         "/dev/null",
		baud:              57600,
		serialReadTO:      10 * time.Millisecond,
		udpLocal:          ":14550",
		udpRemote:         "127.0.0.1:14551",
		systemID:          255,
		componentID:       190,
		peerSystem:        1,
		peerComp:          1,
		heartbeatInterval: time.Second,
		logFormat:         "text",
		logLevel:          "info",
	}
}

func TestConfigValidate_OK(t *testing.T) {
	if err := validConfig().validate(); err != nil {
		t.Fatalf("expected ok got %v", err)
	}
}

func TestConfigValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*appConfig)
	}{
		{"badTransport", func(c *appConfig) { c.transport = "x" }},
		{"badFormat", func(c *appConfig) { c.logFormat = "xx" }},
		{"badLevel", func(c *appConfig) { c.logLevel = "nope" }},
		{"badBaud", func(c *appConfig) { c.baud = 0 }},
		{"badSerialTO", func(c *appConfig) { c.serialReadTO = 0 }},
		{"badSystemID", func(c *appConfig) { c.systemID = 256 }},
		{"badComponentID", func(c *appConfig) { c.componentID = -1 }},
		{"badPeerSystem", func(c *appConfig) { c.peerSystem = 256 }},
		{"badPeerComp", func(c *appConfig) { c.peerComp = -1 }},
		{"badHeartbeat", func(c *appConfig) { c.heartbeatInterval = 0 }},
	}
	for _, tc := range tests {
		base := validConfig()
		tc.mod(base)
		if err := base.validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
