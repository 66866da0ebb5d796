package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/mdcctl/internal/config"
	"github.com/muurk/mdcctl/internal/logging"
	"github.com/muurk/mdcctl/internal/protocol"
)

var decodeFile string

func init() {
	decodeCmd.Flags().StringVar(&decodeFile, "file", "", "Read hex from a file instead of arguments (- for stdin)")
	rootCmd.AddCommand(decodeCmd)
}

var decodeCmd = &cobra.Command{
	Use:   "decode [hex...]",
	Short: "Decode captured protocol bytes",
	Long: `Split hex-encoded protocol bytes into frames, validate each checksum and
classify acknowledgments for the selected device id.

Spaces, colons and 0x prefixes in the input are ignored.`,
	Example: `  mdcctl decode aa 11 01 01 01 14
  mdcctl decode --device-id 5 --file capture.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw string
		switch {
		case decodeFile == "-":
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			raw = string(b)
		case decodeFile != "":
			b, err := os.ReadFile(decodeFile)
			if err != nil {
				return fmt.Errorf("failed to read capture: %w", err)
			}
			raw = string(b)
		default:
			raw = strings.Join(args, " ")
		}

		data, err := decodeHex(raw)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return fmt.Errorf("no bytes to decode")
		}

		number := deviceIDFlag
		if number < 0 {
			number = config.DefaultDeviceNumber
		}
		id, err := protocol.DeviceIDFromNumber(number)
		if err != nil {
			return err
		}
		return decodeStream(cmd.OutOrStdout(), data, protocol.NewAckSet(id))
	},
}

// decodeHex strips separators and 0x prefixes before decoding
func decodeHex(s string) ([]byte, error) {
	s = strings.NewReplacer("0x", "", "0X", "", ":", "", ",", "").Replace(s)
	s = strings.Join(strings.Fields(s), "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return b, nil
}

// decodeStream prints one line per frame found in data
func decodeStream(w io.Writer, data []byte, acks *protocol.AckSet) error {
	logging.LogRawBytes("Decoding capture", data)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Split(protocol.SplitFrames)

	n := 0
	for scanner.Scan() {
		n++
		chunk := scanner.Bytes()
		fmt.Fprintf(w, "#%d %s\n", n, protocol.Frame(chunk))
		fmt.Fprintf(w, "    %s\n", describeChunk(chunk, acks))
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if n == 0 {
		fmt.Fprintln(w, "no frame marker found")
	}
	return nil
}

func describeChunk(chunk []byte, acks *protocol.AckSet) string {
	if match, ok := acks.Classify(chunk); ok {
		return fmt.Sprintf("ack %s: %s = %s", match.Kind, match.Category, describeValue(match.Category, match.Value))
	}

	frame, err := protocol.ParseFrame(chunk)
	if err != nil {
		return "invalid: " + err.Error()
	}

	cmd := frame.Command()
	switch {
	case cmd == protocol.AckCommand:
		data := frame.Data()
		if len(data) >= 3 && data[0] == protocol.AckFailure {
			return fmt.Sprintf("nak for command 0x%02x (code 0x%02x)", data[1], data[2])
		}
		if frame.DeviceID() != acks.DeviceID() {
			return fmt.Sprintf("ack from device 0x%02x (expected 0x%02x)", frame.DeviceID(), acks.DeviceID())
		}
		return "unrecognized ack"
	case protocol.CategoryForCommand(cmd) == "":
		return fmt.Sprintf("unknown command 0x%02x to device 0x%02x", cmd, frame.DeviceID())
	case frame.IsQuery():
		return fmt.Sprintf("%s query to device 0x%02x", protocol.CategoryForCommand(cmd), frame.DeviceID())
	default:
		c := protocol.CategoryForCommand(cmd)
		return fmt.Sprintf("%s set %s to device 0x%02x", c, describeValue(c, frame.Data()[0]), frame.DeviceID())
	}
}

func describeValue(c protocol.Category, v byte) string {
	switch c {
	case protocol.CategoryPower, protocol.CategoryWallMode:
		return onOff(v == protocol.StateOn)
	case protocol.CategorySource:
		return protocol.InputLabel(v)
	default:
		return fmt.Sprintf("%d", v)
	}
}
