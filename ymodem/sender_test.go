package ymodem

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/moffa90/go-ymboot/firmware"
	"github.com/moffa90/go-ymboot/protocol"
	"github.com/moffa90/go-ymboot/transport"
	"github.com/moffa90/go-ymboot/transport/transporttest"
)

const testSetupTimeout = 15 * time.Second

// mockReceiver answers frames written to a transporttest.Channel the way a
// YMODEM receiver would, with scripted faults.
type mockReceiver struct {
	ch *transporttest.Channel

	rejectSetups int         // NAK this many setup frames first
	nakBlocks    map[int]int // NAK block n this many times
	cancelBlock  int         // answer CAN to this block
	silentBlock  int         // never answer this block
	nakEOT       int         // NAK this many EOTs first
	noClosingC   bool        // do not ask for the closing frame

	setups   []protocol.SetupInfo
	payloads [][]byte
	blocks   []byte
	eots     int
	closing  int
}

func newMockReceiver() *mockReceiver {
	r := &mockReceiver{ch: transporttest.New(), nakBlocks: map[int]int{}}
	r.ch.OnWrite = r.onWrite
	r.ch.Feed(protocol.CRCRequest)
	return r
}

func (r *mockReceiver) onWrite(p []byte) {
	if len(p) == 1 && p[0] == protocol.EOT {
		r.eots++
		if r.nakEOT > 0 {
			r.nakEOT--
			r.ch.Feed(protocol.NAK)
			return
		}
		r.ch.Feed(protocol.ACK)
		if !r.noClosingC {
			r.ch.Feed(protocol.CRCRequest)
		}
		return
	}

	f, err := protocol.ParseFrame(p)
	if err != nil {
		r.ch.Feed(protocol.NAK)
		return
	}

	if f.Block == 0 && f.Header == protocol.SOH {
		info, closing, err := protocol.ParseSetupPayload(f.Payload)
		if err != nil {
			r.ch.Feed(protocol.NAK)
			return
		}
		if closing {
			r.closing++
			r.ch.Feed(protocol.ACK)
			return
		}
		r.setups = append(r.setups, info)
		if r.rejectSetups > 0 {
			r.rejectSetups--
			r.ch.Feed(protocol.NAK, protocol.CRCRequest)
			return
		}
		r.ch.Feed(protocol.ACK, protocol.CRCRequest)
		return
	}

	n := len(r.payloads) + 1
	switch {
	case n == r.silentBlock:
		return
	case n == r.cancelBlock:
		r.ch.Feed(protocol.CAN)
		return
	case r.nakBlocks[n] > 0:
		r.nakBlocks[n]--
		r.ch.Feed(protocol.NAK)
		return
	}
	r.payloads = append(r.payloads, f.Payload)
	r.blocks = append(r.blocks, f.Block)
	r.ch.Feed(protocol.ACK)
}

func (r *mockReceiver) received(size int64) []byte {
	return bytes.Join(r.payloads, nil)[:size]
}

func testImage(size int) *firmware.Image {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*7 + 3)
	}
	return &firmware.Image{Name: "app.bin", Data: data}
}

func TestSendPartitionsImage(t *testing.T) {
	tests := []struct {
		size       int
		wantBlocks int
	}{
		{0, 0},
		{1, 1},
		{1024, 1},
		{1025, 2},
		{3000, 3},
	}

	for _, tt := range tests {
		r := newMockReceiver()
		img := testImage(tt.size)

		if err := New(r.ch).Send(img, testSetupTimeout, nil); err != nil {
			t.Fatalf("size %d: Send() error = %v", tt.size, err)
		}

		if diff := cmp.Diff([]protocol.SetupInfo{{Name: "app.bin", Size: int64(tt.size)}}, r.setups); diff != "" {
			t.Errorf("size %d: setup mismatch (-want +got):\n%s", tt.size, diff)
		}
		if len(r.payloads) != tt.wantBlocks {
			t.Errorf("size %d: got %d data frames, want %d", tt.size, len(r.payloads), tt.wantBlocks)
		}
		if r.closing != 1 {
			t.Errorf("size %d: got %d closing frames, want 1", tt.size, r.closing)
		}
		if tt.size > 0 && !bytes.Equal(r.received(int64(tt.size)), img.Data) {
			t.Errorf("size %d: received data mismatch", tt.size)
		}

		// the tail of the last frame is zero padding
		if tt.wantBlocks > 0 {
			last := r.payloads[len(r.payloads)-1]
			used := tt.size - (tt.wantBlocks-1)*protocol.BlockSize1K
			for i, b := range last[used:] {
				if b != 0 {
					t.Fatalf("size %d: padding byte %d = 0x%02X, want 0", tt.size, used+i, b)
				}
			}
		}
		if r.ch.Pending() != 0 {
			t.Errorf("size %d: %d unread bytes left", tt.size, r.ch.Pending())
		}
	}
}

func TestSendBlockNumbersWrap(t *testing.T) {
	r := newMockReceiver()
	img := testImage(257 * protocol.BlockSize1K)

	if err := New(r.ch).Send(img, testSetupTimeout, nil); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if len(r.blocks) != 257 {
		t.Fatalf("got %d blocks, want 257", len(r.blocks))
	}
	if r.blocks[0] != 1 || r.blocks[254] != 255 || r.blocks[255] != 0 || r.blocks[256] != 1 {
		t.Errorf("unexpected block numbering around wrap: %v", r.blocks[253:])
	}
}

func TestSendSetupRetry(t *testing.T) {
	r := newMockReceiver()
	r.rejectSetups = 2

	sentinels := 0
	err := New(r.ch).Send(testImage(100), testSetupTimeout, func(done, total int, msg string) {
		if done == -1 && total == 0 && msg == "" {
			sentinels++
		}
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(r.setups) != 3 {
		t.Errorf("setup frame written %d times, want 3", len(r.setups))
	}
	if sentinels != 3 {
		t.Errorf("setup sentinel reported %d times, want 3", sentinels)
	}
}

func TestSendSetupBudget(t *testing.T) {
	tests := []struct {
		name      string
		opts      []Option
		wantTries int
	}{
		{"default budget", nil, protocol.MaxErrors},
		{"custom budget", []Option{WithMaxErrors(3)}, 3},
		{"invalid budget ignored", []Option{WithMaxErrors(0)}, protocol.MaxErrors},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newMockReceiver()
			r.rejectSetups = 1000

			err := New(r.ch, tt.opts...).Send(testImage(10), testSetupTimeout, nil)

			var te *protocol.TransferError
			if !errors.As(err, &te) || te.Phase != PhaseSetup {
				t.Fatalf("Send() error = %v, want setup TransferError", err)
			}
			if !protocol.IsProtocolError(err) {
				t.Errorf("expected protocol error, got %v", err)
			}
			if len(r.setups) != tt.wantTries {
				t.Errorf("setup frame written %d times, want %d", len(r.setups), tt.wantTries)
			}
			if len(r.payloads) != 0 {
				t.Error("no data frame should be sent")
			}
		})
	}
}

func TestSendSilentReceiver(t *testing.T) {
	ch := transporttest.New()
	start := ch.Clock.Now()

	err := New(ch).Send(testImage(10), testSetupTimeout, nil)

	if !protocol.IsTimeoutError(err) {
		t.Fatalf("Send() error = %v, want timeout", err)
	}
	if !errors.Is(err, transport.ErrTimeout) {
		t.Error("timeout should unwrap to transport.ErrTimeout")
	}
	if got, want := ch.Clock.Now().Sub(start), protocol.MaxErrors*protocol.CRCTimeout; got != want {
		t.Errorf("elapsed %s, want %s", got, want)
	}
	if len(ch.Writes()) != 0 {
		t.Errorf("wrote %d chunks to a silent receiver", len(ch.Writes()))
	}
}

func TestSendDataFailureSkipsEOT(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(r *mockReceiver)
		wantTimeout bool
		wantElapsed time.Duration
	}{
		{
			name:  "cancelled",
			setup: func(r *mockReceiver) { r.cancelBlock = 2 },
		},
		{
			name:  "NAK budget exhausted",
			setup: func(r *mockReceiver) { r.nakBlocks[1] = 1000 },
		},
		{
			name:        "no acknowledgement",
			setup:       func(r *mockReceiver) { r.silentBlock = 2 },
			wantTimeout: true,
			wantElapsed: protocol.NAKTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newMockReceiver()
			tt.setup(r)
			start := r.ch.Clock.Now()

			err := New(r.ch).Send(testImage(3000), testSetupTimeout, nil)

			var te *protocol.TransferError
			if !errors.As(err, &te) || te.Phase != PhaseData {
				t.Fatalf("Send() error = %v, want data TransferError", err)
			}
			if protocol.IsTimeoutError(err) != tt.wantTimeout {
				t.Errorf("IsTimeoutError = %v, want %v", protocol.IsTimeoutError(err), tt.wantTimeout)
			}
			if !tt.wantTimeout && !protocol.IsProtocolError(err) {
				t.Errorf("expected protocol error, got %v", err)
			}
			if r.eots != 0 {
				t.Errorf("EOT written %d times after failed data phase", r.eots)
			}
			if got := r.ch.Clock.Now().Sub(start); got != tt.wantElapsed {
				t.Errorf("elapsed %s, want %s", got, tt.wantElapsed)
			}
		})
	}
}

func TestSendBlockResend(t *testing.T) {
	r := newMockReceiver()
	r.nakBlocks[2] = 2
	img := testImage(2500)

	if err := New(r.ch).Send(img, testSetupTimeout, nil); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !bytes.Equal(r.received(img.Size()), img.Data) {
		t.Error("received data mismatch")
	}
	// setup + 3 blocks + 2 resends + EOT + closing
	if got := len(r.ch.Writes()); got != 8 {
		t.Errorf("got %d writes, want 8", got)
	}
}

func TestSendEOTResend(t *testing.T) {
	tests := []struct {
		name        string
		nakEOT      int
		wantEOTs    int
		wantClosing int
	}{
		{"acknowledged", 0, 1, 1},
		{"NAKed once", 1, 2, 1},
		{"NAKed twice", 2, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newMockReceiver()
			r.nakEOT = tt.nakEOT

			if err := New(r.ch).Send(testImage(10), testSetupTimeout, nil); err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if r.eots != tt.wantEOTs {
				t.Errorf("EOT written %d times, want %d", r.eots, tt.wantEOTs)
			}
			if r.closing != tt.wantClosing {
				t.Errorf("closing frame written %d times, want %d", r.closing, tt.wantClosing)
			}
		})
	}
}

func TestSendClosingProblemsIgnored(t *testing.T) {
	r := newMockReceiver()
	r.noClosingC = true

	if err := New(r.ch).Send(testImage(10), testSetupTimeout, nil); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if r.closing != 0 {
		t.Errorf("closing frame written without a CRC request")
	}
}

func TestSendProgress(t *testing.T) {
	r := newMockReceiver()

	type call struct {
		Done, Total int
		Msg         string
	}
	var calls []call
	err := New(r.ch).Send(testImage(2500), testSetupTimeout, func(done, total int, msg string) {
		calls = append(calls, call{done, total, msg})
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	want := []call{
		{-1, 0, ""},
		{1024, 2500, "block 1/3"},
		{2048, 2500, "block 2/3"},
		{2500, 2500, "block 3/3"},
	}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("progress mismatch (-want +got):\n%s", diff)
	}
}

func TestSendChannelFault(t *testing.T) {
	r := newMockReceiver()
	_ = r.ch.Close()

	err := New(r.ch).Send(testImage(10), testSetupTimeout, nil)
	if err == nil {
		t.Fatal("expected error on closed channel")
	}
	if protocol.IsTimeoutError(err) || protocol.IsProtocolError(err) {
		t.Errorf("channel fault misclassified: %v", err)
	}
	if !errors.Is(err, transport.ErrClosed) {
		t.Errorf("error should wrap transport.ErrClosed, got %v", err)
	}
}

func TestSendInvalidImage(t *testing.T) {
	ch := transporttest.New()
	s := New(ch)

	if err := s.Send(nil, testSetupTimeout, nil); err == nil {
		t.Error("expected error for nil image")
	}
	if err := s.Send(&firmware.Image{}, testSetupTimeout, nil); err == nil {
		t.Error("expected error for unnamed image")
	}
	if len(ch.Writes()) != 0 {
		t.Error("nothing should be written for an invalid image")
	}
}

func TestNewPanicsOnNilChannel(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New(nil) should panic")
		}
	}()
	New(nil)
}
