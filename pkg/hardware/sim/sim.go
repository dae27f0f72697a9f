// Package sim implements a simulated SmartScope behind the hardware.Controller
// contract. Register maps live in memory and acquisition produces a synthetic
// two-channel waveform at a fixed packet rate.
package sim

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/labnation/sss-go/pkg/hardware"
	"github.com/labnation/sss-go/pkg/wire"
)

// registerMapSize is the size of each simulated controller's register space.
const registerMapSize = 1 << 16

// Config configures a simulated scope.
type Config struct {
	// Serial is the reported serial number.
	Serial string

	// Firmware is the reported PIC firmware version.
	Firmware []byte

	// PacketInterval is the time between acquisition packets.
	PacketInterval time.Duration

	// SamplesPerPacket is the number of sample bytes per packet.
	// Clamped to hardware.FetchSizeMax.
	SamplesPerPacket int
}

// DefaultConfig returns a configuration resembling a real scope.
func DefaultConfig() Config {
	return Config{
		Serial:           "SIM0000000001",
		Firmware:         []byte{0, 0, 8},
		PacketInterval:   20 * time.Millisecond,
		SamplesPerPacket: 4096,
	}
}

// Scope is a simulated scope. It is safe for concurrent use.
type Scope struct {
	config Config

	mu          sync.Mutex
	registers   map[wire.ControllerID][]byte
	acquiring   bool
	sessionOpen bool
	sequence    uint32
	lastPacket  time.Time
	fpgaImage   []byte
	flushes     int
	fault       error
}

// New creates a simulated scope.
func New(config Config) *Scope {
	if config.SamplesPerPacket <= 0 || config.SamplesPerPacket > hardware.FetchSizeMax {
		config.SamplesPerPacket = hardware.FetchSizeMax
	}
	if config.PacketInterval <= 0 {
		config.PacketInterval = DefaultConfig().PacketInterval
	}
	s := &Scope{
		config:    config,
		registers: make(map[wire.ControllerID][]byte),
	}
	for _, id := range []wire.ControllerID{
		hardware.ControllerPIC,
		hardware.ControllerROM,
		hardware.ControllerFlash,
		hardware.ControllerFPGA,
		hardware.ControllerAWG,
	} {
		s.registers[id] = make([]byte, registerMapSize)
	}
	return s
}

// SetFault makes every subsequent register, flash and fetch call fail with
// err. Pass nil to clear.
func (s *Scope) SetFault(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = err
}

// Serial returns the configured serial number.
func (s *Scope) Serial() (string, error) {
	return s.config.Serial, nil
}

// FirmwareVersion returns the configured firmware version.
func (s *Scope) FirmwareVersion() ([]byte, error) {
	out := make([]byte, len(s.config.Firmware))
	copy(out, s.config.Firmware)
	return out, nil
}

// Get reads from the simulated register map.
func (s *Scope) Get(ctrl wire.ControllerID, addr, length uint16) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fault != nil {
		return nil, s.fault
	}
	regs, err := s.span(ctrl, addr, int(length))
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, regs)
	return out, nil
}

// Set writes to the simulated register map.
func (s *Scope) Set(ctrl wire.ControllerID, addr uint16, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fault != nil {
		return s.fault
	}
	regs, err := s.span(ctrl, addr, len(data))
	if err != nil {
		return err
	}
	copy(regs, data)
	return nil
}

func (s *Scope) span(ctrl wire.ControllerID, addr uint16, length int) ([]byte, error) {
	regs, ok := s.registers[ctrl]
	if !ok {
		return nil, fmt.Errorf("%w: %d", hardware.ErrInvalidController, ctrl)
	}
	end := int(addr) + length
	if end > len(regs) {
		return nil, fmt.Errorf("%w: %d+%d", hardware.ErrOutOfRange, addr, length)
	}
	return regs[addr:end], nil
}

// SetAcquisition turns the synthetic acquisition on or off.
func (s *Scope) SetAcquisition(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquiring = on
	return nil
}

// Acquiring reports whether acquisition is on.
func (s *Scope) Acquiring() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquiring
}

// FetchAcquisition produces one packet, pacing packets at PacketInterval.
func (s *Scope) FetchAcquisition(buf []byte) (int, error) {
	s.mu.Lock()
	wait := s.config.PacketInterval - time.Since(s.lastPacket)
	s.mu.Unlock()
	if wait > 0 {
		time.Sleep(wait)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fault != nil {
		return 0, s.fault
	}
	if !s.acquiring {
		return 0, hardware.ErrNotAcquiring
	}
	if len(buf) < hardware.HeaderSize {
		return 0, fmt.Errorf("buffer of %d bytes cannot hold a packet header", len(buf))
	}

	s.sequence++
	s.lastPacket = time.Now()

	samples := min(s.config.SamplesPerPacket, len(buf)-hardware.HeaderSize)
	hdr := buf[:hardware.HeaderSize]
	clear(hdr)
	copy(hdr[0:2], "LN")
	binary.LittleEndian.PutUint32(hdr[4:8], s.sequence)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(samples))

	// Interleaved channel A (sine) and channel B (square).
	body := buf[hardware.HeaderSize : hardware.HeaderSize+samples]
	for i := range body {
		n := i / 2
		if i%2 == 0 {
			body[i] = byte(128 + 100*math.Sin(2*math.Pi*float64(n)/256))
		} else if (n/128)%2 == 0 {
			body[i] = 228
		} else {
			body[i] = 28
		}
	}
	return hardware.HeaderSize + samples, nil
}

// FlashFPGA stores the image.
func (s *Scope) FlashFPGA(image []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fault != nil {
		return s.fault
	}
	if len(image) == 0 {
		return fmt.Errorf("empty FPGA image")
	}
	s.fpgaImage = append(s.fpgaImage[:0], image...)
	return nil
}

// FPGAImage returns the last flashed image.
func (s *Scope) FPGAImage() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.fpgaImage...)
}

// Flush counts the flush.
func (s *Scope) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

// Flushes returns how many times Flush was called.
func (s *Scope) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

// BeginSession opens a session.
func (s *Scope) BeginSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionOpen = true
	return nil
}

// EndSession closes the session and stops acquisition.
func (s *Scope) EndSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionOpen = false
	s.acquiring = false
	return nil
}

// SessionOpen reports whether a session is open.
func (s *Scope) SessionOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionOpen
}

// Compile-time interface satisfaction check.
var _ hardware.Controller = (*Scope)(nil)
