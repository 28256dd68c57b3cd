package griddeck

import "encoding/binary"

// gen2 drives the second hardware generation (V2 and later): JPEG images
// in 1024-byte reports with little-endian length framing and 32-byte
// feature reports. The Plus additionally reports dials and touchscreen
// gestures, the Neo adds touch keys and an info screen.
type gen2 struct {
	baseProto
}

func (g gen2) reset(d *Device) error {
	p := make([]byte, d.model.featureLen)
	p[0] = 0x03
	p[1] = 0x02
	return d.sendFeatureLocked(p)
}

func (g gen2) clear(d *Device) error { return g.reset(d) }

func (gen2) setBrightness(d *Device, percent int) error {
	p := make([]byte, d.model.featureLen)
	p[0] = 0x03
	p[1] = 0x08
	p[2] = byte(percent)
	return d.sendFeatureLocked(p)
}

// setKeyImage uploads the JPEG payload in fixed-length reports. Pages
// count from zero; each header carries its chunk length little-endian.
func (gen2) setKeyImage(d *Device, key int, payload []byte) error {
	raw := d.model.keyToRaw(key)
	chunk := d.model.imageReportLen - d.model.imageHeaderLen

	remaining := len(payload)
	for page := 0; remaining > 0; page++ {
		n := min(remaining, chunk)
		sent := len(payload) - remaining

		report := make([]byte, d.model.imageReportLen)
		report[0] = 0x02
		report[1] = 0x07
		report[2] = byte(raw)
		report[3] = boolByte(n == remaining)
		binary.LittleEndian.PutUint16(report[4:6], uint16(n))
		binary.LittleEndian.PutUint16(report[6:8], uint16(page))
		copy(report[d.model.imageHeaderLen:], payload[sent:sent+n])

		if err := d.writeLocked(report); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}

func (gen2) setTouchscreenImage(d *Device, payload []byte, x, y, w, h int) error {
	const headerLen = 16
	chunk := d.model.imageReportLen - headerLen

	remaining := len(payload)
	for page := 0; remaining > 0; page++ {
		n := min(remaining, chunk)
		sent := len(payload) - remaining

		report := make([]byte, d.model.imageReportLen)
		report[0] = 0x02
		report[1] = 0x0c
		binary.LittleEndian.PutUint16(report[2:4], uint16(x))
		binary.LittleEndian.PutUint16(report[4:6], uint16(y))
		binary.LittleEndian.PutUint16(report[6:8], uint16(w))
		binary.LittleEndian.PutUint16(report[8:10], uint16(h))
		report[10] = boolByte(n == remaining)
		report[11] = byte(page)
		binary.LittleEndian.PutUint16(report[12:14], uint16(n))
		copy(report[headerLen:], payload[sent:sent+n])

		if err := d.writeLocked(report); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}

func (gen2) setScreenImage(d *Device, payload []byte) error {
	const headerLen = 8
	chunk := d.model.imageReportLen - headerLen

	remaining := len(payload)
	for page := 0; remaining > 0; page++ {
		n := min(remaining, chunk)
		sent := len(payload) - remaining

		report := make([]byte, d.model.imageReportLen)
		report[0] = 0x02
		report[1] = 0x0b
		report[3] = boolByte(n == remaining)
		binary.LittleEndian.PutUint16(report[4:6], uint16(n))
		binary.LittleEndian.PutUint16(report[6:8], uint16(page))
		copy(report[headerLen:], payload[sent:sent+n])

		if err := d.writeLocked(report); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}

func (gen2) setKeyColor(d *Device, key int, r, g, b uint8) error {
	p := make([]byte, d.model.featureLen)
	p[0] = 0x03
	p[1] = 0x06
	p[2] = byte(key)
	p[3] = r
	p[4] = g
	p[5] = b
	return d.sendFeatureLocked(p)
}

func (gen2) serial(d *Device) (string, error) {
	return d.featureStringLocked(0x06, 2)
}

func (gen2) firmware(d *Device) (string, error) {
	return d.featureStringLocked(0x05, 6)
}

// decodeInput splits the report families of dial/touch models apart;
// models without dials or a touchscreen always report plain key states.
func (g gen2) decodeInput(d *Device, report []byte) {
	if d.model.Dials == 0 && !d.model.HasTouchscreen() {
		d.decodeKeyStates(report)
		return
	}
	if len(report) < 2 {
		return
	}

	switch report[1] {
	case 0x00:
		d.decodeKeyStates(report)
	case 0x02:
		g.decodeTouch(d, report)
	case 0x03:
		g.decodeDials(d, report)
	}
}

func (gen2) decodeTouch(d *Device, report []byte) {
	if len(report) < 10 {
		return
	}

	ev := TouchEvent{
		X: int(binary.LittleEndian.Uint16(report[6:8])),
		Y: int(binary.LittleEndian.Uint16(report[8:10])),
	}
	switch report[4] {
	case 0x01:
		ev.Type = TouchShort
	case 0x02:
		ev.Type = TouchLong
	case 0x03:
		if len(report) < 14 {
			return
		}
		ev.Type = TouchDrag
		ev.EndX = int(binary.LittleEndian.Uint16(report[10:12]))
		ev.EndY = int(binary.LittleEndian.Uint16(report[12:14]))
	default:
		return
	}
	d.pendingTouch = append(d.pendingTouch, ev)
}

func (gen2) decodeDials(d *Device, report []byte) {
	if len(report) < 5 {
		return
	}

	switch report[4] {
	case 0x00:
		for i := range d.dialStates {
			if 5+i < len(report) {
				d.dialStates[i].Pressed = report[5+i] != 0
			}
		}
	case 0x01:
		// Turn deltas are signed and add up until the next read consumes
		// them.
		for i := range d.dialStates {
			if 5+i < len(report) {
				d.dialStates[i].Delta += int(int8(report[5+i]))
			}
		}
	}
}
