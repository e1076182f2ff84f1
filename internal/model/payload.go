package model

// Payload is the output of a capture: exactly one of TextPayload, AudioPayload
// or PhotoPayload.
type Payload interface {
	Mode() InputMode
	isPayload()
}

// TextPayload is typed free text.
type TextPayload struct {
	Content string
}

// AudioPayload is a finished recording.
type AudioPayload struct {
	MIMEType string
	Data     []byte
}

// PhotoPayload is a chosen image.
type PhotoPayload struct {
	MIMEType string
	Name     string
	Data     []byte
}

// Mode implements Payload.
func (TextPayload) Mode() InputMode { return ModeText }

// Mode implements Payload.
func (AudioPayload) Mode() InputMode { return ModeAudio }

// Mode implements Payload.
func (PhotoPayload) Mode() InputMode { return ModePhoto }

func (TextPayload) isPayload()  {}
func (AudioPayload) isPayload() {}
func (PhotoPayload) isPayload() {}
