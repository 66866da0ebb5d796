package simulator

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/muurk/mdcctl/internal/protocol"
)

func startSimulator(t *testing.T, deviceNumber int) *Simulator {
	t.Helper()
	sim, err := New(Config{Addr: "127.0.0.1:0", DeviceNumber: deviceNumber})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := sim.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = sim.Shutdown(ctx)
	})
	return sim
}

func dial(t *testing.T, sim *Simulator) (net.Conn, *bufio.Scanner) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", sim.Addr(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	scanner := bufio.NewScanner(conn)
	scanner.Split(protocol.SplitFrames)
	return conn, scanner
}

func roundTrip(t *testing.T, conn net.Conn, scanner *bufio.Scanner, out protocol.Frame) protocol.Frame {
	t.Helper()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Write(out); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !scanner.Scan() {
		t.Fatalf("no reply to %s: %v", out, scanner.Err())
	}
	return protocol.Frame(bytes.Clone(scanner.Bytes()))
}

func TestNewRejectsDeviceNumber(t *testing.T) {
	if _, err := New(Config{DeviceNumber: 101}); err == nil {
		t.Error("New() with device number 101 succeeded")
	}
}

func TestSimulatorAnswers(t *testing.T) {
	sim := startSimulator(t, 1)
	conn, scanner := dial(t, sim)

	tests := []struct {
		name string
		cmd  protocol.Command
		want protocol.Frame
	}{
		{"power query default", protocol.PowerQuery(), protocol.EncodeAck(0x01, protocol.CmdPower, 0x00)},
		{"power on", protocol.PowerSet(true), protocol.EncodeAck(0x01, protocol.CmdPower, 0x01)},
		{"power query after set", protocol.PowerQuery(), protocol.EncodeAck(0x01, protocol.CmdPower, 0x01)},
		{"input hdmi2", protocol.InputSet(protocol.InputHDMI2), protocol.EncodeAck(0x01, protocol.CmdInput, 0x23)},
		{"volume 42", protocol.VolumeSet(42), protocol.EncodeAck(0x01, protocol.CmdVolume, 42)},
		{"volume 101 rejected", protocol.VolumeSet(101), protocol.EncodeNak(0x01, protocol.CmdVolume, NakUnsupported)},
		{"wall on", protocol.WallModeSet(true), protocol.EncodeAck(0x01, protocol.CmdWallMode, 0x01)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := protocol.Encode(tt.cmd, 0x01)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got := roundTrip(t, conn, scanner, frame)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("reply = %s, want %s", got, tt.want)
			}
		})
	}

	state := sim.State()
	want := protocol.State{Power: 0x01, Input: 0x23, Volume: 42, WallMode: 0x01}
	if state != want {
		t.Errorf("State() = %s, want %s", state, want)
	}
	if got := len(sim.Received()); got != len(tests) {
		t.Errorf("len(Received()) = %d, want %d", got, len(tests))
	}
}

func TestSimulatorUnknownCommand(t *testing.T) {
	sim := startSimulator(t, 1)
	conn, scanner := dial(t, sim)

	got := roundTrip(t, conn, scanner, protocol.BuildFrame(0x0B, 0x01))
	want := protocol.EncodeNak(0x01, 0x0B, NakUnsupported)
	if !bytes.Equal(got, want) {
		t.Errorf("reply = %s, want %s", got, want)
	}
}

func TestSimulatorDropsForeignAndCorruptFrames(t *testing.T) {
	sim := startSimulator(t, 5)
	conn, scanner := dial(t, sim)

	foreign, _ := protocol.Encode(protocol.PowerSet(true), 0x01)
	corrupt, _ := protocol.Encode(protocol.PowerSet(true), 0x05)
	corrupt = append(protocol.Frame(nil), corrupt...)
	corrupt[len(corrupt)-1]++

	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Write(append(append([]byte{}, foreign...), corrupt...)); err != nil {
		t.Fatalf("write: %v", err)
	}

	// A valid query behind the dropped frames gets the only reply
	got := roundTrip(t, conn, scanner, protocol.BuildFrame(protocol.CmdPower, 0x05))
	want := protocol.EncodeAck(0x05, protocol.CmdPower, 0x00)
	if !bytes.Equal(got, want) {
		t.Errorf("reply = %s, want %s", got, want)
	}
	if sim.State().Power != protocol.StateOff {
		t.Error("dropped frame changed power state")
	}
}

func TestSimulatorCoalescedFrames(t *testing.T) {
	sim := startSimulator(t, 1)
	conn, scanner := dial(t, sim)

	a, _ := protocol.Encode(protocol.VolumeSet(10), 0x01)
	b, _ := protocol.Encode(protocol.VolumeSet(20), 0x01)

	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Write(append(append([]byte{}, a...), b...)); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, want := range []byte{10, 20} {
		if !scanner.Scan() {
			t.Fatalf("missing reply: %v", scanner.Err())
		}
		if got := protocol.Frame(scanner.Bytes()).Data()[2]; got != want {
			t.Errorf("ack value = %d, want %d", got, want)
		}
	}
}

func TestPushAndShutdown(t *testing.T) {
	sim := startSimulator(t, 1)
	conn, _ := dial(t, sim)

	deadline := time.Now().Add(time.Second)
	for sim.ActiveConnections() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	ack := protocol.EncodeAck(0x01, protocol.CmdPower, 0x01)
	if err := sim.Push(ack); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	buf := make([]byte, len(ack))
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read pushed frame: %v", err)
	}
	if !bytes.Equal(buf, ack) {
		t.Errorf("pushed = % x, want % x", buf, ack)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sim.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if _, err := conn.Read(buf); err == nil {
		t.Error("connection still open after Shutdown")
	}
}

func TestShutdownRightAfterDial(t *testing.T) {
	for i := 0; i < 50; i++ {
		sim, err := New(Config{Addr: "127.0.0.1:0", DeviceNumber: 1})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if err := sim.Start(); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		conn, err := net.DialTimeout("tcp", sim.Addr(), time.Second)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err = sim.Shutdown(ctx)
		cancel()
		_ = conn.Close()
		if err != nil {
			t.Fatalf("iteration %d: Shutdown() error = %v", i, err)
		}
	}
}

func TestTrackRefusedAfterShutdown(t *testing.T) {
	sim, err := New(Config{Addr: "127.0.0.1:0", DeviceNumber: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := sim.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sim.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	server, client := net.Pipe()
	defer client.Close()
	if sim.track(server) {
		t.Error("track() = true after Shutdown")
	}
	if n := sim.ActiveConnections(); n != 0 {
		t.Errorf("ActiveConnections() = %d after Shutdown, want 0", n)
	}
	_ = server.Close()
}
