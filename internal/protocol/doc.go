// Package protocol implements the binary serial-command protocol spoken by
// commercial display panels over TCP port 1515.
//
// This package builds outbound command frames, splits the inbound byte stream
// into frames, classifies acknowledgments and folds them into a mirrored
// device state. It performs no I/O.
//
// # Frame Format
//
// Every frame, in either direction, has this structure:
//   - Marker: 0xAA
//   - Command id: 1 byte (0xFF for acknowledgments)
//   - Device id: 1 byte (configured device number 0-100)
//   - Data length: 1 byte
//   - Data: data_length bytes
//   - Checksum: 1 byte (low byte of the sum of command id through last data byte)
//
// The display silently drops frames whose checksum disagrees with its own
// recomputation, so Checksum must match byte for byte.
//
// # Commands
//
//   - Power (0x11): set on/off, query
//   - Volume (0x12): set level, query
//   - Input source (0x14): set source, query
//   - Video wall mode (0x84): set on/off, query
//
// Queries carry no data bytes; sets carry exactly one.
//
// # Acknowledgments
//
// The display answers with:
//
//	[0xAA, 0xFF, device_id, 0x03, 0x41, command, value, checksum]
//
// Power and wall-mode acks are matched as complete frames. Input and volume
// acks are matched on their first six bytes, with the value read from the
// second-to-last byte.
//
// # Usage Example - Encoding
//
//	frame, err := protocol.Encode(protocol.InputSet(protocol.InputHDMI2), 0x01)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_, err = conn.Write(frame)
//
// # Usage Example - Reconciling
//
//	acks := protocol.NewAckSet(0x01)
//	state := protocol.DefaultState()
//
//	scanner := bufio.NewScanner(conn)
//	scanner.Split(protocol.SplitFrames)
//	for scanner.Scan() {
//	    var changes []protocol.Change
//	    state, changes = acks.Reconcile(scanner.Bytes(), state)
//	    for _, c := range changes {
//	        fmt.Printf("%s changed: %s\n", c.Category, state)
//	    }
//	}
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use. AckSet is
// immutable after NewAckSet.
package protocol
