package robodk

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Wire format of the station link: big-endian int32 for integers and frame
// lengths, length-prefixed UTF-8 for strings, and count-prefixed IEEE 754
// float64 vectors. Every exchange is a command string followed by its
// arguments; the station answers with the command's reply shape.
const (
	cmdStart     = "CMD_START"
	respReady    = "READY"
	cmdVersion   = "Version"
	cmdGetItem   = "G_Item"
	cmdGetJoints = "G_Thetas"
	cmdMoveJ     = "MoveJ"
	cmdSetSpeed  = "S_Speed"
	cmdStop      = "Stop"
)

// Station item types, matching the remote API's type tags
const (
	itemTypeRobot int32 = 2
	itemTypeTool  int32 = 4
)

// Movement status codes returned by MoveJ
const (
	moveStatusOK int32 = 0
)

// maxStringLen rejects absurd frames before allocating for them
const maxStringLen = 1 << 16

func writeInt32(w io.Writer, v int32) error {
	return binary.Write(w, binary.BigEndian, v)
}

func readInt32(r io.Reader) (int32, error) {
	var v int32
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func writeString(w io.Writer, s string) error {
	if err := writeInt32(w, int32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readInt32(r)
	if err != nil {
		return "", err
	}
	if n < 0 || n > maxStringLen {
		return "", fmt.Errorf("string frame length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeFloats(w io.Writer, vals []float64) error {
	if err := writeInt32(w, int32(len(vals))); err != nil {
		return err
	}
	for _, v := range vals {
		if err := binary.Write(w, binary.BigEndian, math.Float64bits(v)); err != nil {
			return err
		}
	}
	return nil
}

func readFloats(r io.Reader) ([]float64, error) {
	n, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	if n < 0 || n > 64 {
		return nil, fmt.Errorf("float frame length %d", n)
	}
	out := make([]float64, n)
	for i := range out {
		var bits uint64
		if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
			return nil, err
		}
		out[i] = math.Float64frombits(bits)
	}
	return out, nil
}
