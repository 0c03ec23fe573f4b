package discovery

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Service identity.
const (
	ServiceType = "_mocks3._tcp"
	Domain      = "local."

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63
)

// TXT record keys.
const (
	TXTKeyRunID  = "run"
	TXTKeyPID    = "pid"
	TXTKeyScript = "script"
)

// ErrMissingRunID is returned when a TXT record has no run key.
var ErrMissingRunID = errors.New("txt record missing run id")

// Info describes an advertised fixture.
type Info struct {
	// Instance is the mDNS instance name. Empty derives one from RunID.
	Instance string

	// Port the fixture listens on.
	Port int

	RunID  string
	PID    int
	Script string
}

// InstanceName returns the instance name to register.
func (i *Info) InstanceName() string {
	name := i.Instance
	if name == "" {
		name = "mock-s3-" + i.RunID
	}
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}

// EncodeTXT returns the TXT strings for info.
func EncodeTXT(info *Info) []string {
	txt := []string{
		TXTKeyRunID + "=" + info.RunID,
		TXTKeyPID + "=" + strconv.Itoa(info.PID),
	}
	if info.Script != "" {
		txt = append(txt, TXTKeyScript+"="+info.Script)
	}
	return txt
}

// DecodeTXT parses TXT strings into info. Unknown keys are ignored.
func DecodeTXT(txt []string) (*Info, error) {
	info := &Info{}
	for _, kv := range txt {
		key, value, _ := strings.Cut(kv, "=")
		switch key {
		case TXTKeyRunID:
			info.RunID = value
		case TXTKeyPID:
			pid, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid pid %q: %w", value, err)
			}
			info.PID = pid
		case TXTKeyScript:
			info.Script = value
		}
	}
	if info.RunID == "" {
		return nil, ErrMissingRunID
	}
	return info, nil
}
