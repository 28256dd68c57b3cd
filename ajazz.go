package griddeck

import (
	"encoding/binary"
	"runtime"
)

const ajazzFrameLen = 512

// ajazz drives the Ajazz CRT command protocol (AKP153). Every command is
// a 512-byte zero-padded frame opening with ASCII "CRT" and a four-letter
// opcode; image data follows a BAT announcement as raw 512-byte chunks.
type ajazz struct {
	baseProto
}

func (a ajazz) open(d *Device) error { return a.reset(d) }

func (a ajazz) shutdown(d *Device) error { return a.cmdExit(d) }

// reset stops any pending upload, restores full brightness, and blanks
// the panel.
func (a ajazz) reset(d *Device) error {
	if err := a.cmdStop(d); err != nil {
		return err
	}
	if err := a.cmdLight(d, 100); err != nil {
		return err
	}
	return a.cmdClear(d, 0xff)
}

func (a ajazz) clear(d *Device) error { return a.cmdClear(d, 0xff) }

// flush issues the stop command that makes the panel apply the uploads
// queued since the last one.
func (a ajazz) flush(d *Device) error { return a.cmdStop(d) }

func (a ajazz) setBrightness(d *Device, percent int) error {
	return a.cmdLight(d, byte(percent))
}

// setKeyImage announces the upload with a BAT frame carrying the payload
// size big-endian and the one-based panel position, then streams the JPEG
// in raw chunks.
func (a ajazz) setKeyImage(d *Device, key int, payload []byte) error {
	frame := make([]byte, ajazzFrameLen)
	copy(frame, []byte{
		0x43, 0x52, 0x54, 0x00, 0x00, 0x42, 0x41, 0x54, // CRT..BAT
	})
	binary.BigEndian.PutUint32(frame[8:12], uint32(len(payload)))
	frame[12] = byte(d.model.keyToRaw(key) + 1)
	if err := a.writeFrame(d, frame); err != nil {
		return err
	}

	for off := 0; off < len(payload); off += ajazzFrameLen {
		end := min(off+ajazzFrameLen, len(payload))
		if err := a.writeFrame(d, payload[off:end]); err != nil {
			return err
		}
	}
	return nil
}

func (ajazz) serial(d *Device) (string, error) {
	// The panel has no serial feature report; enumeration carries it.
	return d.info.Serial, nil
}

func (ajazz) firmware(d *Device) (string, error) {
	return d.featureStringLocked(0x01, 1)
}

// decodeInput handles the panel's momentary reports: a single one-based
// key position at byte 9, only ever sent for presses. The matching
// release is synthesized by the next read.
func (ajazz) decodeInput(d *Device, report []byte) {
	if len(report) < 10 || report[9] == 0 {
		return
	}
	k := d.model.rawToKey(int(report[9]) - 1)
	if k < 0 || k >= len(d.keyStates) {
		return
	}
	d.keyStates[k] = true
	d.pendingRelease = k
}

func (a ajazz) cmdLight(d *Device, brightness byte) error {
	frame := make([]byte, ajazzFrameLen)
	copy(frame, []byte{
		0x43, 0x52, 0x54, 0x00, 0x00, 0x4c, 0x49, 0x47, // CRT..LIG
	})
	frame[10] = brightness
	return a.writeFrame(d, frame)
}

// cmdClear blanks one one-based panel position, or the whole panel for
// target 0xff.
func (a ajazz) cmdClear(d *Device, target byte) error {
	frame := make([]byte, ajazzFrameLen)
	copy(frame, []byte{
		0x43, 0x52, 0x54, 0x00, 0x00, 0x43, 0x4c, 0x45, // CRT..CLE
	})
	frame[11] = target
	return a.writeFrame(d, frame)
}

// cmdExit leaves drawing mode and returns the panel to its logo screen.
func (a ajazz) cmdExit(d *Device) error {
	frame := make([]byte, ajazzFrameLen)
	copy(frame, []byte{
		0x43, 0x52, 0x54, 0x00, 0x00, 0x43, 0x4c, 0x45, 0x00, 0x00, 0x44, 0x43, // CRT..CLE..DC
	})
	return a.writeFrame(d, frame)
}

func (a ajazz) cmdStop(d *Device) error {
	frame := make([]byte, ajazzFrameLen)
	copy(frame, []byte{
		0x43, 0x52, 0x54, 0x00, 0x00, 0x53, 0x54, 0x50, // CRT..STP
	})
	return a.writeFrame(d, frame)
}

// writeFrame pads a frame to the fixed length before writing. hidapi on
// non-Windows platforms consumes the first byte as the report ID, so
// frames opening with 0x00 get one prepended to survive the trip.
func (ajazz) writeFrame(d *Device, data []byte) error {
	var p []byte
	if runtime.GOOS != "windows" && len(data) > 0 && data[0] == 0x00 {
		p = make([]byte, ajazzFrameLen+1)
		copy(p[1:], data)
	} else {
		p = make([]byte, ajazzFrameLen)
		copy(p, data)
	}
	return d.writeLocked(p)
}
