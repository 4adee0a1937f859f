// Package mqttbus speaks the scanner fleet's MQTT contract: scans arrive
// on <prefix>/<scannerUID>/tag with a "YYYYMMDDhhmmss <tagUID>" payload,
// decisions go back on <prefix>/<scannerUID>/command as the literal string
// PERMIT or DENY.
package mqttbus

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultTopicPrefix matches the topic namespace the scanner firmware
// ships with.
const DefaultTopicPrefix = "iot/nfc"

// scanStampLayout is the scanner clock format: YYYYMMDDhhmmss.
const scanStampLayout = "20060102150405"

var ErrBadPayload = errors.New("bad scan payload")

// ScanTopicFilter returns the subscription filter covering every scanner
// under the prefix.
func ScanTopicFilter(prefix string) string {
	return prefix + "/+/tag"
}

// CommandTopic returns the response topic for one scanner.
func CommandTopic(prefix, scannerUID string) string {
	return prefix + "/" + scannerUID + "/command"
}

// ParseScanTopic extracts the scanner uid from a scan topic.
func ParseScanTopic(prefix, topic string) (string, error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return "", fmt.Errorf("%w: topic %q outside prefix %q", ErrBadPayload, topic, prefix)
	}
	uid, ok := strings.CutSuffix(rest, "/tag")
	if !ok || uid == "" || strings.Contains(uid, "/") {
		return "", fmt.Errorf("%w: topic %q is not a scan topic", ErrBadPayload, topic)
	}
	return uid, nil
}

// ParseScanPayload parses "YYYYMMDDhhmmss <tagUID>".  The timestamp is the
// scanner's wall clock, interpreted in loc (the site's zone).
func ParseScanPayload(payload []byte, loc *time.Location) (time.Time, string, error) {
	stamp, tagUID, ok := strings.Cut(string(payload), " ")
	if !ok {
		return time.Time{}, "", fmt.Errorf("%w: missing separator", ErrBadPayload)
	}

	at, err := time.ParseInLocation(scanStampLayout, stamp, loc)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: timestamp %q: %v", ErrBadPayload, stamp, err)
	}

	tagUID = strings.TrimSpace(tagUID)
	if tagUID == "" {
		return time.Time{}, "", fmt.Errorf("%w: empty tag uid", ErrBadPayload)
	}

	return at, tagUID, nil
}
