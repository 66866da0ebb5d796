package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/muurk/mdcctl/internal/protocol"
)

// inputAliases maps CLI names to input codes. Labels from
// protocol.InputSources are accepted too, case and spaces ignored.
var inputAliases = map[string]byte{
	"magicinfo":   protocol.InputMagicInfo,
	"hdmi1":       protocol.InputHDMI1,
	"hdmi2":       protocol.InputHDMI2,
	"hdmi3":       protocol.InputHDMI3,
	"displayport": protocol.InputDisplayPort,
	"dp":          protocol.InputDisplayPort,
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid state %q (expected on or off)", s)
}

// parseInput accepts an input name or a raw code such as 0x21
func parseInput(s string) (byte, error) {
	key := strings.ToLower(strings.ReplaceAll(s, " ", ""))
	if code, ok := inputAliases[key]; ok {
		return code, nil
	}
	for _, in := range protocol.InputSources {
		if strings.ToLower(strings.ReplaceAll(in.Label, " ", "")) == key {
			return in.Code, nil
		}
	}

	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown input %q (expected magicinfo, hdmi1, hdmi2, hdmi3, displayport or 0xNN)", s)
	}
	return byte(n), nil
}

func parseVolume(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 100 {
		return 0, fmt.Errorf("invalid volume %q (expected 0-100)", s)
	}
	return n, nil
}
