package audio

import "fmt"

// Position marks where a frame sits in its stream. It is a bitmask
// because a clip of exactly one frame is both the first and the last.
type Position uint8

const (
	// PositionMiddle is the zero value: neither first nor last.
	PositionMiddle Position = 0
	// PositionFirst marks the opening frame of a stream.
	PositionFirst Position = 1 << 0
	// PositionLast marks the closing frame of a stream.
	PositionLast Position = 1 << 1
)

// IsFirst reports whether the frame opens its stream.
func (p Position) IsFirst() bool { return p&PositionFirst != 0 }

// IsLast reports whether the frame closes its stream.
func (p Position) IsLast() bool { return p&PositionLast != 0 }

// String returns a human-readable representation of the position
func (p Position) String() string {
	switch {
	case p.IsFirst() && p.IsLast():
		return "first+last"
	case p.IsFirst():
		return "first"
	case p.IsLast():
		return "last"
	default:
		return "middle"
	}
}

// Frame is one fixed-size chunk of PCM audio, carried as little-endian
// bytes, ready to be sent as a single protocol message.
type Frame struct {
	Index    int
	Position Position
	Payload  []byte
}

// Framer slices a normalized signal into fixed-size frames
type Framer struct {
	frameSize int // samples per frame
}

// NewFramer creates a framer with the given frame size in samples
func NewFramer(frameSize int) (*Framer, error) {
	if frameSize <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", frameSize)
	}
	return &Framer{frameSize: frameSize}, nil
}

// FrameSize returns the frame size in samples
func (f *Framer) FrameSize() int { return f.frameSize }

// Frames splits the signal into consecutive frames covering every sample
// exactly once, in strictly increasing index order. The signal length
// must already be a multiple of the frame size (the normalizer pads it).
// The result is a pure function of the input.
func (f *Framer) Frames(signal *Signal) ([]Frame, error) {
	if signal == nil || len(signal.Samples) == 0 {
		return nil, fmt.Errorf("cannot frame an empty signal")
	}

	if len(signal.Samples)%f.frameSize != 0 {
		return nil, fmt.Errorf("signal length %d is not a multiple of frame size %d",
			len(signal.Samples), f.frameSize)
	}

	count := len(signal.Samples) / f.frameSize
	frames := make([]Frame, 0, count)

	for i := 0; i < count; i++ {
		var pos Position
		if i == 0 {
			pos |= PositionFirst
		}
		if i == count-1 {
			pos |= PositionLast
		}

		chunk := signal.Samples[i*f.frameSize : (i+1)*f.frameSize]
		frames = append(frames, Frame{
			Index:    i,
			Position: pos,
			Payload:  SamplesToBytes(chunk),
		})
	}

	return frames, nil
}
