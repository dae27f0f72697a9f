package hardware

import (
	"errors"

	"github.com/labnation/sss-go/pkg/wire"
)

// Controller IDs addressed by GET/SET.
const (
	ControllerPIC   wire.ControllerID = 0
	ControllerROM   wire.ControllerID = 1
	ControllerFlash wire.ControllerID = 2
	ControllerFPGA  wire.ControllerID = 3
	ControllerAWG   wire.ControllerID = 4
)

// Acquisition sizes.
const (
	// HeaderSize is the size of the header the scope prepends to every
	// acquisition packet.
	HeaderSize = 64

	// FetchSizeMax is the largest sample block returned by one fetch.
	FetchSizeMax = 16 * 1024

	// AcquisitionPacketSize is the largest packet FetchAcquisition produces.
	AcquisitionPacketSize = HeaderSize + FetchSizeMax
)

// Hardware errors.
var (
	// ErrNotAcquiring is returned by FetchAcquisition when acquisition is off.
	ErrNotAcquiring = errors.New("acquisition not active")

	// ErrNoData is returned by FetchAcquisition when no packet is ready yet.
	ErrNoData = errors.New("no acquisition data available")

	// ErrInvalidController indicates a controller ID the device does not have.
	ErrInvalidController = errors.New("invalid controller")

	// ErrOutOfRange indicates a register access beyond the controller's map.
	ErrOutOfRange = errors.New("register range out of bounds")

	// ErrDeviceGone indicates the USB device disappeared.
	ErrDeviceGone = errors.New("device disconnected")
)

// Controller is the hardware capability the server drives.
type Controller interface {
	// Serial returns the device serial number.
	Serial() (string, error)

	// FirmwareVersion returns the PIC firmware version as reported by the device.
	FirmwareVersion() ([]byte, error)

	// Get reads length bytes starting at addr from controller ctrl.
	Get(ctrl wire.ControllerID, addr, length uint16) ([]byte, error)

	// Set writes data starting at addr on controller ctrl.
	Set(ctrl wire.ControllerID, addr uint16, data []byte) error

	// FetchAcquisition reads one acquisition packet into buf and returns its
	// size. buf should be AcquisitionPacketSize bytes; shorter buffers bound
	// the fetch. It blocks for at most one packet interval.
	FetchAcquisition(buf []byte) (int, error)

	// SetAcquisition turns continuous acquisition on or off.
	SetAcquisition(on bool) error

	// Acquiring reports whether acquisition is on.
	Acquiring() bool

	// FlashFPGA loads an FPGA bitstream.
	FlashFPGA(image []byte) error

	// Flush discards buffered device-side data.
	Flush() error

	// BeginSession opens a session with the device.
	BeginSession() error

	// EndSession closes the current session. Calling it without an open
	// session is not an error.
	EndSession() error
}
