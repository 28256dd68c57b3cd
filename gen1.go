package griddeck

// gen1 drives the first hardware generation (Original, Mini). Images are
// bottom-up BMPs shipped in zero-padded fixed-length reports; control
// commands are short feature reports.
type gen1 struct {
	baseProto
}

func (g gen1) reset(d *Device) error {
	p := make([]byte, d.model.featureLen)
	p[0] = 0x0b
	p[1] = 0x63
	return d.sendFeatureLocked(p)
}

func (g gen1) clear(d *Device) error { return g.reset(d) }

func (gen1) setBrightness(d *Device, percent int) error {
	p := make([]byte, d.model.featureLen)
	p[0] = 0x05
	p[1] = 0x55
	p[2] = 0xaa
	p[3] = 0xd1
	p[4] = 0x01
	p[5] = byte(percent)
	return d.sendFeatureLocked(p)
}

// setKeyImage uploads the BMP payload in fixed-length reports. Pages count
// from one and the key index on the wire is one-based.
func (gen1) setKeyImage(d *Device, key int, payload []byte) error {
	raw := d.model.keyToRaw(key)
	chunk := d.model.imageReportLen - d.model.imageHeaderLen

	remaining := len(payload)
	for page := 1; remaining > 0; page++ {
		n := min(remaining, chunk)
		sent := len(payload) - remaining

		report := make([]byte, d.model.imageReportLen)
		report[0] = 0x02
		report[1] = 0x01
		report[2] = byte(page)
		report[4] = boolByte(n == remaining)
		report[5] = byte(raw + 1)
		copy(report[d.model.imageHeaderLen:], payload[sent:sent+n])

		if err := d.writeLocked(report); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}

func (gen1) serial(d *Device) (string, error) {
	return d.featureStringLocked(0x03, 5)
}

func (gen1) firmware(d *Device) (string, error) {
	return d.featureStringLocked(0x04, 5)
}

func (gen1) decodeInput(d *Device, report []byte) {
	d.decodeKeyStates(report)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
