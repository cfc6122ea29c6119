package model

import (
	"encoding/json"
	"fmt"
)

// Format identifies which recognizer classified a line.
type Format uint8

const (
	// FormatUnknown marks a line that no recognizer and no JSON decode accepted.
	FormatUnknown Format = iota
	// FormatKlog is "E0714 23:11:19.386396       1 file.go:70] message".
	FormatKlog
	// FormatLogr is "2024-03-05T10:07:17.123Z	ERROR	source	message".
	FormatLogr
	// FormatLogrEpoch is "1.6599427639039357e+09	INFO	source	message".
	FormatLogrEpoch
	// FormatLogrus is `time="..." level=info msg="..." src="..."`.
	FormatLogrus
	// FormatLogrAlt has the same shape as FormatLogr and sits after FormatLogrus.
	FormatLogrAlt
	// FormatCustom is a user-configured named-group pattern.
	FormatCustom
	// FormatJSON is the fallback decode of a JSON object.
	FormatJSON
)

var formatNames = [...]string{
	FormatUnknown:   "unknown",
	FormatKlog:      "klog",
	FormatLogr:      "logr",
	FormatLogrEpoch: "logr-epoch",
	FormatLogrus:    "logrus",
	FormatLogrAlt:   "logr-alt",
	FormatCustom:    "custom",
	FormatJSON:      "json",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("format(%d)", uint8(f))
}

// ParseFormat is the inverse of Format.String.
func ParseFormat(s string) (Format, error) {
	for i, name := range formatNames {
		if name == s {
			return Format(i), nil
		}
	}
	return FormatUnknown, fmt.Errorf("unknown format %q", s)
}

func (f Format) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *Format) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}
