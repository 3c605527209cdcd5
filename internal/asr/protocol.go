package asr

import (
	"fmt"

	"github.com/alexzhu0/voicepipe/internal/audio"
)

// Frame status values understood by the recognition service
const (
	StatusFirstFrame    = 0
	StatusContinueFrame = 1
	StatusLastFrame     = 2
)

// ResultStatusFinal marks the last result message of a session
const ResultStatusFinal = 2

// CommonParams identifies the application on every outgoing frame
type CommonParams struct {
	AppID string `json:"app_id"`
}

// BusinessParams carries the recognition parameters. They are attached to
// every outgoing frame; the service reads them from the first one.
type BusinessParams struct {
	Language          string `json:"language"`
	Domain            string `json:"domain"`
	Accent            string `json:"accent"`
	VadEOS            int    `json:"vad_eos"`
	DynamicCorrection string `json:"dwa,omitempty"`
	Field             string `json:"pd,omitempty"`
	Punctuation       int    `json:"ptt"`
	ResultLanguage    string `json:"rlang,omitempty"`
	AudioInfo         int    `json:"vinfo"`
	NumberFormat      int    `json:"nunum"`
	SpeexSize         int    `json:"speex_size,omitempty"`
}

// DefaultBusinessParams returns the parameter set for Mandarin dictation
// with word-level dynamic correction enabled
func DefaultBusinessParams() BusinessParams {
	return BusinessParams{
		Language:          "zh_cn",
		Domain:            "iat",
		Accent:            "mandarin",
		VadEOS:            3000,
		DynamicCorrection: "wpgs",
		Field:             "game",
		Punctuation:       0,
		ResultLanguage:    "zh-cn",
		AudioInfo:         1,
		NumberFormat:      0,
		SpeexSize:         70,
	}
}

// FramePayload wraps one base64-encoded audio frame
type FramePayload struct {
	Status   int    `json:"status"`
	Format   string `json:"format"`
	Encoding string `json:"encoding"`
	Audio    string `json:"audio"`
}

// FrameMessage is one outgoing client message
type FrameMessage struct {
	Common   CommonParams   `json:"common"`
	Business BusinessParams `json:"business"`
	Data     FramePayload   `json:"data"`
}

// FrameStatus maps a frame position to the wire status value. A frame
// that is both first and last is reported as last, since the service
// only needs to know when the stream ends.
func FrameStatus(pos audio.Position) int {
	switch {
	case pos.IsLast():
		return StatusLastFrame
	case pos.IsFirst():
		return StatusFirstFrame
	default:
		return StatusContinueFrame
	}
}

// ResultMessage is one incoming server message
type ResultMessage struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	SID     string      `json:"sid"`
	Data    *ResultData `json:"data"`
}

// ResultData carries one recognition hypothesis and its status
type ResultData struct {
	Status int                `json:"status"`
	Result *RecognitionResult `json:"result"`
}

// Final reports whether this is the last result of the session
func (d *ResultData) Final() bool {
	return d.Status == ResultStatusFinal
}

// RecognitionResult is an ordered sequence of word groups
type RecognitionResult struct {
	WS []WordGroup `json:"ws"`
}

// WordGroup holds the candidate words for one position in the utterance
type WordGroup struct {
	CW []WordCandidate `json:"cw"`
}

// WordCandidate is one alternative word with its confidence score
type WordCandidate struct {
	W  string  `json:"w"`
	SC float64 `json:"sc"`
}

// Best returns the candidate with the highest confidence score. When
// several candidates share the top score the first listed wins. Returns
// an empty candidate when the group has none.
func (g WordGroup) Best() WordCandidate {
	var best WordCandidate
	for i, c := range g.CW {
		if i == 0 || c.SC > best.SC {
			best = c
		}
	}
	return best
}

func (m *ResultMessage) String() string {
	return fmt.Sprintf("ResultMessage{code=%d, sid=%s}", m.Code, m.SID)
}
