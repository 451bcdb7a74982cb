// Package bno08x reads fused orientation reports from a BNO08X IMU running
// in UART-RVC mode and exposes the yaw as the robot heading.
package bno08x

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"github.com/15303/UltimateGoal/pkg/angle"
)

const ReportFrequency = 100
const ReportInterval = time.Second / ReportFrequency

const (
	packetLen = 19
	baudRate  = 115200
)

var (
	header = []byte{0xaa, 0xaa}

	ErrBadHeader   = errors.New("packet header missing")
	ErrBadChecksum = errors.New("packet checksum mismatch")
)

type Report struct {
	Time   time.Time
	Index  uint8
	Yaw    int16 // hundredths of a degree
	Pitch  int16
	Roll   int16
	XAccel int16
	YAccel int16
	ZAccel int16
}

func (r Report) YawDegrees() float64 {
	return float64(r.Yaw) / 100.0
}

func (r Report) String() string {
	return fmt.Sprintf("[%02x] Y:%7.2f P:%7.2f R:%7.2f", r.Index,
		float64(r.Yaw)/100.0, float64(r.Pitch)/100.0, float64(r.Roll)/100.0)
}

// ParsePacket decodes one 19-byte RVC packet.
func ParsePacket(buf []byte) (Report, error) {
	if len(buf) < packetLen || !bytes.Equal(buf[:2], header) {
		return Report{}, ErrBadHeader
	}
	var checksum uint8
	for _, b := range buf[2 : packetLen-1] {
		checksum += b
	}
	if buf[packetLen-1] != checksum {
		return Report{}, ErrBadChecksum
	}
	return Report{
		Index:  buf[2],
		Yaw:    int16(binary.LittleEndian.Uint16(buf[3:5])),
		Pitch:  int16(binary.LittleEndian.Uint16(buf[5:7])),
		Roll:   int16(binary.LittleEndian.Uint16(buf[7:9])),
		XAccel: int16(binary.LittleEndian.Uint16(buf[9:11])),
		YAccel: int16(binary.LittleEndian.Uint16(buf[11:13])),
		ZAccel: int16(binary.LittleEndian.Uint16(buf[13:15])),
	}, nil
}

type BNO08X struct {
	device string
	log    zerolog.Logger

	lock       sync.Mutex
	lastReport Report
	zero       float64
}

func New(device string, log zerolog.Logger) *BNO08X {
	return &BNO08X{device: device, log: log.With().Str("component", "bno08x").Logger()}
}

// WaitForFirstReport blocks until a report has arrived or ctx ends.  A
// heading sensor that never reports is a start-up failure.
func (b *BNO08X) WaitForFirstReport(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for ctx.Err() == nil {
		if !b.CurrentReport().Time.IsZero() {
			b.lock.Lock()
			b.zero = b.lastReport.YawDegrees()
			b.lock.Unlock()
			return nil
		}
		if time.Now().After(deadline) {
			return errors.Errorf("no report from IMU on %s after %v", b.device, timeout)
		}
		time.Sleep(20 * time.Millisecond)
	}
	return ctx.Err()
}

func (b *BNO08X) CurrentReport() Report {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.lastReport
}

// CurrentHeading returns the heading relative to the one at start-up, in
// (-180, 180].  The sensor's yaw is anticlockwise-positive; headings
// increase clockwise.
func (b *BNO08X) CurrentHeading() float64 {
	b.lock.Lock()
	defer b.lock.Unlock()
	return angle.FromFloat(b.zero - b.lastReport.YawDegrees()).Float()
}

func (b *BNO08X) LoopReadingReports(ctx context.Context) {
	for ctx.Err() == nil {
		err := b.openAndLoop(ctx)
		if ctx.Err() != nil {
			return
		}
		b.log.Warn().Err(err).Msg("BNO08X loop stopped; will retry")
		time.Sleep(100 * time.Millisecond)
	}
}

func (b *BNO08X) openAndLoop(ctx context.Context) error {
	s, err := serial.Open(b.device, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return errors.Wrapf(err, "failed to open serial port %s", b.device)
	}
	defer s.Close()
	return b.readPackets(ctx, bufio.NewReader(s))
}

func (b *BNO08X) readPackets(ctx context.Context, br *bufio.Reader) error {
	buf := make([]byte, packetLen)
	for ctx.Err() == nil {
		if err := skipToHeader(br); err != nil {
			return err
		}
		if _, err := io.ReadFull(br, buf); err != nil {
			return errors.Wrap(err, "failed to read from serial")
		}
		report, err := ParsePacket(buf)
		if err != nil {
			b.log.Debug().Err(err).Msg("Bad packet, resyncing")
			continue
		}
		report.Time = time.Now()
		b.setReport(report)
	}
	return ctx.Err()
}

func skipToHeader(br *bufio.Reader) error {
	for {
		peek, err := br.Peek(len(header))
		if err != nil {
			return errors.Wrap(err, "failed to read from serial")
		}
		if bytes.Equal(peek, header) {
			return nil
		}
		if _, err := br.Discard(1); err != nil {
			return errors.Wrap(err, "failed to read from serial")
		}
	}
}

func (b *BNO08X) setReport(report Report) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.lastReport = report
}
