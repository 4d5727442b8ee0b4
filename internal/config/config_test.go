package config

import "testing"

func TestDefaultReturnsSensibleValues(t *testing.T) {
	c := Default()
	if c.Addr != ":8090" {
		t.Errorf("Addr = %q, want :8090", c.Addr)
	}
	if c.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", c.LogLevel)
	}
	if c.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want text", c.LogFormat)
	}
	if c.TraceDB != "" {
		t.Errorf("TraceDB = %q, want empty (tracing disabled by default)", c.TraceDB)
	}
}
