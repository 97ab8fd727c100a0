// Package filter builds the content-filter expression that scopes a
// monitoring subscription to a single target peer.
package filter

import (
	"fmt"
	"strconv"

	"ddspy/internal/bus"
)

// Expression returns the filter expression and its positional parameters
// for records whose composite identity field matches target. The shape is
// fixed: "<field>.rtps_host_id = %0 AND <field>.rtps_app_id = %1".
func Expression(field string, target bus.Identity) (string, []string) {
	expr := fmt.Sprintf("%s.rtps_host_id = %%0 AND %s.rtps_app_id = %%1", field, field)
	params := []string{
		strconv.FormatUint(uint64(target.HostID), 10),
		strconv.FormatUint(uint64(target.AppID), 10),
	}
	return expr, params
}

// TopicName derives the filtered-topic name for a target. The name is
// deterministic so re-monitoring the same target reuses a stable,
// human-diagnosable topic; it is not required to be unique across restarts.
func TopicName(base string, target bus.Identity) string {
	return fmt.Sprintf("%s_filtered_%d_%d", base, target.HostID, target.AppID)
}
