// Package distlog holds the shared vocabulary of the distributed-logger
// administration protocol: verbosity levels, well-known topic names, and the
// record field paths this tool reads and writes.
package distlog

import (
	"fmt"
	"strings"

	"ddspy/internal/bus"
)

// Level is a logging verbosity threshold. The numeric values are part of
// the command payload wire contract and must not change.
type Level int

const (
	Silent  Level = 0
	Fatal   Level = 100
	Severe  Level = 200
	Error   Level = 300
	Warning Level = 400
	Notice  Level = 500
	Info    Level = 600
	Debug   Level = 700
	Trace   Level = 800
)

// Levels lists every valid level in ascending order.
var Levels = []Level{Silent, Fatal, Severe, Error, Warning, Notice, Info, Debug, Trace}

func (l Level) String() string {
	switch l {
	case Silent:
		return "SILENT"
	case Fatal:
		return "FATAL"
	case Severe:
		return "SEVERE"
	case Error:
		return "ERROR"
	case Warning:
		return "WARNING"
	case Notice:
		return "NOTICE"
	case Info:
		return "INFO"
	case Debug:
		return "DEBUG"
	case Trace:
		return "TRACE"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel resolves a level by name (case-insensitive).
func ParseLevel(name string) (Level, error) {
	for _, l := range Levels {
		if strings.EqualFold(l.String(), name) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown verbosity level %q", name)
}

// Next returns the adjacent level in the given direction, clamped at the
// enumeration bounds.
func (l Level) Next(up bool) Level {
	for i, v := range Levels {
		if v != l {
			continue
		}
		if up && i+1 < len(Levels) {
			return Levels[i+1]
		}
		if !up && i > 0 {
			return Levels[i-1]
		}
		return l
	}
	return l
}

// Well-known topic names of the administration protocol. Overridable via
// config for buses that deploy the services under different names.
const (
	DefaultLogTopic             = "rti/distlog"
	DefaultStateTopic           = "rti/distlog/administration/state"
	DefaultCommandRequestTopic  = "rti/distlog/administration/command_request"
	DefaultCommandResponseTopic = "rti/distlog/administration/command_response"
)

// DefaultCompositeIDField is the record field holding the originating
// peer's (host, app) pair on the log and state streams.
const DefaultCompositeIDField = "hostAndAppId"

// Field paths inside administration records. Resolved against dynamic
// records; kept in one place so the tool never does open-ended stringly
// typed access (each constant names exactly one known field).
const (
	PathHostID = "rtps_host_id"
	PathAppID  = "rtps_app_id"

	PathTargetID     = "targetHostAndAppId"
	PathOriginatorID = "originatorHostAndAppId"
	PathInvocation   = "invocation"
	PathFilterLevel  = "filterLevel"
	PathResult       = "result"
	PathMessage      = "message"
)

// HostIDPath and AppIDPath join a composite identity field with its leaves.
func HostIDPath(field string) string { return field + "." + PathHostID }
func AppIDPath(field string) string  { return field + "." + PathAppID }

// RecordIdentity reads the (host, app) pair stored under field.
func RecordIdentity(rec bus.Record, field string) (bus.Identity, error) {
	host, err := rec.Int64(HostIDPath(field))
	if err != nil {
		return bus.Identity{}, err
	}
	app, err := rec.Int64(AppIDPath(field))
	if err != nil {
		return bus.Identity{}, err
	}
	return bus.Identity{HostID: uint32(host), AppID: uint32(app)}, nil
}

// SetRecordIdentity writes the (host, app) pair under field.
func SetRecordIdentity(rec bus.Record, field string, id bus.Identity) error {
	if err := rec.SetInt64(HostIDPath(field), int64(id.HostID)); err != nil {
		return err
	}
	return rec.SetInt64(AppIDPath(field), int64(id.AppID))
}

// RenderRecord flattens a record into a single display line, skipping the
// composite identity field (the monitor already scopes records to one
// target, so repeating the identity per line is noise).
func RenderRecord(rec bus.Record, identityField string) string {
	var b strings.Builder
	for _, f := range rec.Fields() {
		if identityField != "" && strings.HasPrefix(f.Name, identityField+".") {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" | ")
		}
		fmt.Fprintf(&b, "%s: %v", f.Name, f.Value)
	}
	return b.String()
}
