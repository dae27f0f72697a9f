// Package interactive provides the sss-server console.
package interactive

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/labnation/sss-go/pkg/hardware"
	"github.com/labnation/sss-go/pkg/hardware/sim"
	"github.com/labnation/sss-go/pkg/server"
	"github.com/labnation/sss-go/pkg/wire"
)

// Console drives a running server and its simulated scope from a prompt.
type Console struct {
	scope *sim.Scope
	rl    *readline.Instance
}

// New creates a console for scope.
func New(scope *sim.Scope) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "sss> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("help"),
			readline.PcItem("status"),
			readline.PcItem("start"),
			readline.PcItem("stop"),
			readline.PcItem("get"),
			readline.PcItem("set"),
			readline.PcItem("fault", readline.PcItem("gone"), readline.PcItem("clear")),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{scope: scope, rl: rl}, nil
}

// Stdout returns a writer that does not corrupt the prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that does not corrupt the prompt.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run reads commands until quit, EOF or ctx is done. Quitting calls cancel.
func (c *Console) Run(ctx context.Context, srv *server.InterfaceServer, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := strings.ToLower(fields[0]), fields[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()
		case "status", "s":
			c.cmdStatus(srv)
		case "start":
			srv.Start()
		case "stop":
			srv.Stop()
		case "get", "g":
			c.cmdGet(args)
		case "set":
			c.cmdSet(args)
		case "fault":
			c.cmdFault(args)
		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
Server:
  status                   - Show state, ports and advertisement
  start                    - Request Started
  stop                     - Request Stopped

Simulated scope:
  get <ctrl> <addr> <len>  - Read registers (ctrl: pic, rom, flash, fpga, awg or a number)
  set <ctrl> <addr> <hex>  - Write registers
  fault gone|clear         - Inject or clear a device failure

  help                     - Show this help
  quit                     - Stop the server and exit`)
}

func (c *Console) cmdStatus(srv *server.InterfaceServer) {
	w := c.rl.Stdout()
	fmt.Fprintf(w, "State:      %s (requested %s)\n", srv.State(), srv.RequestedState())
	fmt.Fprintf(w, "Flavor:     %s\n", srv.Flavor())
	fmt.Fprintf(w, "Ports:      control %d, data %d\n", srv.ControlPort(), srv.DataPort())
	if err := srv.AdvertiseErr(); err != nil {
		fmt.Fprintf(w, "Advertised: no (%v)\n", err)
	} else if srv.State() == server.StateStarted {
		fmt.Fprintln(w, "Advertised: yes")
	}
	if err := srv.LastErr(); err != nil {
		fmt.Fprintf(w, "Last error: %v\n", err)
	}
	fmt.Fprintf(w, "Scope:      session %t, acquiring %t, flushes %d\n",
		c.scope.SessionOpen(), c.scope.Acquiring(), c.scope.Flushes())
}

func (c *Console) cmdGet(args []string) {
	if len(args) != 3 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: get <ctrl> <addr> <len>")
		return
	}
	ctrl, addr, err := parseTarget(args[0], args[1])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	length, err := strconv.ParseUint(args[2], 0, 16)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid length: %v\n", err)
		return
	}
	data, err := c.scope.Get(ctrl, addr, uint16(length))
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprint(c.rl.Stdout(), hex.Dump(data))
}

func (c *Console) cmdSet(args []string) {
	if len(args) != 3 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: set <ctrl> <addr> <hex>")
		return
	}
	ctrl, addr, err := parseTarget(args[0], args[1])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	data, err := hex.DecodeString(args[2])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid data: %v\n", err)
		return
	}
	if err := c.scope.Set(ctrl, addr, data); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Wrote %d bytes\n", len(data))
}

func (c *Console) cmdFault(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: fault gone|clear")
		return
	}
	switch args[0] {
	case "gone":
		c.scope.SetFault(hardware.ErrDeviceGone)
	case "clear":
		c.scope.SetFault(nil)
	default:
		fmt.Fprintf(c.rl.Stdout(), "Unknown fault: %s\n", args[0])
	}
}

var controllerNames = map[string]wire.ControllerID{
	"pic":   hardware.ControllerPIC,
	"rom":   hardware.ControllerROM,
	"flash": hardware.ControllerFlash,
	"fpga":  hardware.ControllerFPGA,
	"awg":   hardware.ControllerAWG,
}

// parseTarget parses a controller name or number and a register address.
func parseTarget(ctrlArg, addrArg string) (wire.ControllerID, uint16, error) {
	ctrl, ok := controllerNames[strings.ToLower(ctrlArg)]
	if !ok {
		n, err := strconv.ParseUint(ctrlArg, 0, 8)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid controller %q", ctrlArg)
		}
		ctrl = wire.ControllerID(n)
	}
	addr, err := strconv.ParseUint(addrArg, 0, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid address %q", addrArg)
	}
	return ctrl, uint16(addr), nil
}
