package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is the one-byte command tag of a Message.
type Command uint8

// Command tags. These values are a stable contract with clients.
const (
	CmdSerial       Command = 0x0d
	CmdFlush        Command = 0x0e
	CmdDisconnect   Command = 0x0f
	CmdGet          Command = 0x18
	CmdSet          Command = 0x19
	CmdData         Command = 0x1a
	CmdPicFwVersion Command = 0x1b
	CmdFlashFPGA    Command = 0x24
	CmdDataPort     Command = 0x2a
	CmdAcquisition  Command = 0x34

	// Router-mode commands. Only dispatchable when the server has a
	// network configurator attached.
	CmdLedeListAPs   Command = 0x40
	CmdLedeReset     Command = 0x41
	CmdLedeConnectAP Command = 0x42
	CmdLedeReboot    Command = 0x43
	CmdLedeModeAP    Command = 0x44

	CmdServerVersion Command = 0x50
	CmdServerInfo    Command = 0x51

	// CmdError is sent by the server only. Its payload is the failed request's
	// command byte followed by a UTF-8 error message.
	CmdError Command = 0x5f
)

var commandNames = map[Command]string{
	CmdSerial:        "SERIAL",
	CmdFlush:         "FLUSH",
	CmdDisconnect:    "DISCONNECT",
	CmdGet:           "GET",
	CmdSet:           "SET",
	CmdData:          "DATA",
	CmdPicFwVersion:  "PIC_FW_VERSION",
	CmdFlashFPGA:     "FLASH_FPGA",
	CmdDataPort:      "DATA_PORT",
	CmdAcquisition:   "ACQUISITION",
	CmdLedeListAPs:   "LEDE_LIST_APS",
	CmdLedeReset:     "LEDE_RESET",
	CmdLedeConnectAP: "LEDE_CONNECT_AP",
	CmdLedeReboot:    "LEDE_REBOOT",
	CmdLedeModeAP:    "LEDE_MODE_AP",
	CmdServerVersion: "SERVER_VERSION",
	CmdServerInfo:    "SERVER_INFO",
	CmdError:         "ERROR",
}

// String returns the protocol name of the command.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(c))
}

// ParseCommand parses a command name such as "GET" (case-insensitive) or a
// numeric tag such as "0x18".
func ParseCommand(s string) (Command, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for cmd, name := range commandNames {
		if name == upper {
			return cmd, nil
		}
	}
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown command %q", s)
	}
	return Command(n), nil
}

// IsValid reports whether c is a recognized command tag.
func (c Command) IsValid() bool {
	_, ok := commandNames[c]
	return ok
}

// IsRouter reports whether c belongs to the router-mode command set.
func (c Command) IsRouter() bool {
	return c >= CmdLedeListAPs && c <= CmdLedeModeAP
}

// CommandSet is a set of command tags a decoder accepts.
type CommandSet map[Command]struct{}

// Contains reports whether cmd is in the set.
func (s CommandSet) Contains(cmd Command) bool {
	_, ok := s[cmd]
	return ok
}

// StandardCommands returns every command except the router-mode set.
func StandardCommands() CommandSet {
	set := make(CommandSet, len(commandNames))
	for cmd := range commandNames {
		if !cmd.IsRouter() {
			set[cmd] = struct{}{}
		}
	}
	return set
}

// AllCommands returns every recognized command, router-mode included.
func AllCommands() CommandSet {
	set := make(CommandSet, len(commandNames))
	for cmd := range commandNames {
		set[cmd] = struct{}{}
	}
	return set
}
