package gelf

import (
	"encoding/json"
	"net"
	"os"
	"strings"
	"time"
)

// Writer sends GELF messages over UDP. It is fed zap's JSON encoder output,
// one entry per Write, and implements zapcore.WriteSyncer.
type Writer struct {
	conn     net.Conn
	hostname string
	service  string
}

// New creates a GELF UDP writer connected to addr (e.g. "172.17.0.1:12201").
func New(addr, service string) (*Writer, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = service + "-server"
	}

	return &Writer{conn: conn, hostname: hostname, service: service}, nil
}

// zap levels to syslog severities.
var levels = map[string]int{
	"debug":  7,
	"info":   6,
	"warn":   4,
	"error":  3,
	"dpanic": 2,
	"panic":  2,
	"fatal":  2,
}

// reserved keys of zap's production encoder; everything else becomes an
// additional GELF field.
var reserved = map[string]bool{"level": true, "ts": true, "msg": true, "caller": true, "stacktrace": true, "logger": true}

// Write implements io.Writer. A line that is not a zap JSON entry is sent
// verbatim as the short message.
func (w *Writer) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")

	msg := map[string]any{
		"version":       "1.1",
		"host":          w.hostname,
		"short_message": line,
		"timestamp":     float64(time.Now().UnixNano()) / 1e9,
		"level":         6,
		"_service":      w.service,
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err == nil {
		if s, ok := entry["msg"].(string); ok {
			msg["short_message"] = s
		}
		if lvl, ok := entry["level"].(string); ok {
			if sev, ok := levels[lvl]; ok {
				msg["level"] = sev
			}
		}
		if ts, ok := entry["ts"].(float64); ok {
			msg["timestamp"] = ts
		}
		if st, ok := entry["stacktrace"].(string); ok {
			msg["full_message"] = st
		}
		for k, v := range entry {
			if reserved[k] || k == "id" {
				continue
			}
			msg["_"+k] = v
		}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return len(p), nil // don't fail the log call
	}

	// Fire-and-forget
	w.conn.Write(payload)
	return len(p), nil
}

// Sync implements zapcore.WriteSyncer. UDP has nothing to flush.
func (w *Writer) Sync() error { return nil }

func (w *Writer) Close() error { return w.conn.Close() }
